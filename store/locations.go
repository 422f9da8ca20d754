package store

import (
	"database/sql"
	"fmt"
)

// LocationKind says which table a LocationRef id points into.
type LocationKind string

const (
	LocationDepot    LocationKind = "depot"
	LocationCustomer LocationKind = "customer"
)

// LocationRef is a depot or a customer. Movement endpoints are stored as
// (kind, id) pairs so the id is never interpreted against the wrong table.
type LocationRef struct {
	Kind LocationKind `json:"kind"`
	ID   int64        `json:"id"`
}

func DepotRef(id int64) LocationRef    { return LocationRef{Kind: LocationDepot, ID: id} }
func CustomerRef(id int64) LocationRef { return LocationRef{Kind: LocationCustomer, ID: id} }

func (l LocationRef) IsDepot() bool    { return l.Kind == LocationDepot }
func (l LocationRef) IsCustomer() bool { return l.Kind == LocationCustomer }

func (l LocationRef) String() string {
	return fmt.Sprintf("%s:%d", l.Kind, l.ID)
}

func (l LocationRef) Valid() bool {
	return (l.Kind == LocationDepot || l.Kind == LocationCustomer) && l.ID > 0
}

func locationArgs(l *LocationRef) (any, any) {
	if l == nil {
		return "", nil
	}
	return string(l.Kind), l.ID
}

func scanLocation(kind string, id sql.NullInt64) *LocationRef {
	if kind == "" || !id.Valid {
		return nil
	}
	return &LocationRef{Kind: LocationKind(kind), ID: id.Int64}
}
