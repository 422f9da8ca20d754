package lifecycle

import (
	"context"
	"fmt"

	"gasflow/store"
)

// Location categories reported by DeriveLocation.
const (
	CategoryCustomer    = "customer"
	CategoryDepot       = "depot"
	CategoryMaintenance = "maintenance"
	CategoryInTransit   = "in_transit"
	CategoryUnknown     = "unknown"
)

// DerivedLocation is where an instance is, inferred from its latest movement.
type DerivedLocation struct {
	Category   string `json:"category"`
	LocationID *int64 `json:"location_id,omitempty"`
	MovementID int64  `json:"movement_id,omitempty"`
	Name       string `json:"name,omitempty"`
}

// Known reports whether the location points at a concrete depot or customer.
func (l DerivedLocation) Known() bool { return l.LocationID != nil }

// DeriveLocation maps the latest movement of an instance to its location.
// A nil movement means no history.
func DeriveLocation(latest *store.Movement) DerivedLocation {
	if latest == nil {
		return DerivedLocation{Category: CategoryUnknown}
	}
	switch latest.Status {
	case store.MovementCompleted:
	case store.MovementInProgress:
		return DerivedLocation{Category: CategoryInTransit, MovementID: latest.ID}
	default:
		return DerivedLocation{Category: CategoryUnknown, MovementID: latest.ID}
	}
	id := latest.Destination.ID
	loc := DerivedLocation{Category: CategoryDepot, LocationID: &id, MovementID: latest.ID}
	switch latest.MovementType {
	case store.MovementDelivery:
		loc.Category = CategoryCustomer
	case store.MovementMaintenance:
		loc.Category = CategoryMaintenance
	}
	return loc
}

// Location derives the current location of an instance. It never writes.
func (s *Service) Location(ctx context.Context, instanceID int64) (DerivedLocation, error) {
	loc, err := locate(ctx, s.db.Queries, instanceID)
	if err != nil {
		return loc, err
	}
	loc.Name, err = locationName(ctx, s.db.Queries, loc)
	return loc, err
}

func locate(ctx context.Context, q *store.Queries, instanceID int64) (DerivedLocation, error) {
	latest, err := q.LatestMovement(ctx, instanceID)
	if store.IsNotFound(err) {
		return DeriveLocation(nil), nil
	}
	if err != nil {
		return DerivedLocation{}, fmt.Errorf("latest movement: %w", err)
	}
	return DeriveLocation(latest), nil
}

// refreshCachedLocation rewrites the instance's cached location from the ledger.
func refreshCachedLocation(ctx context.Context, q *store.Queries, instanceID int64) (DerivedLocation, error) {
	loc, err := locate(ctx, q, instanceID)
	if err != nil {
		return loc, err
	}
	if err := q.SetInstanceLocation(ctx, instanceID, loc.Category, loc.LocationID); err != nil {
		return loc, fmt.Errorf("cache location: %w", err)
	}
	return loc, nil
}

func locationName(ctx context.Context, q *store.Queries, loc DerivedLocation) (string, error) {
	if loc.LocationID == nil {
		return "", nil
	}
	kind := store.LocationDepot
	if loc.Category == CategoryCustomer {
		kind = store.LocationCustomer
	}
	return refName(ctx, q, store.LocationRef{Kind: kind, ID: *loc.LocationID})
}

// refName resolves a location reference to a display name. Missing rows
// resolve to an empty name.
func refName(ctx context.Context, q *store.Queries, ref store.LocationRef) (string, error) {
	switch ref.Kind {
	case store.LocationDepot:
		d, err := q.GetDepot(ctx, ref.ID)
		if store.IsNotFound(err) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return d.Label, nil
	case store.LocationCustomer:
		c, err := q.GetCustomer(ctx, ref.ID)
		if store.IsNotFound(err) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return c.FullName(), nil
	}
	return "", nil
}

// refExists reports whether the referenced depot or customer row exists.
func refExists(ctx context.Context, q *store.Queries, ref store.LocationRef) (bool, error) {
	var err error
	switch ref.Kind {
	case store.LocationDepot:
		_, err = q.GetDepot(ctx, ref.ID)
	case store.LocationCustomer:
		_, err = q.GetCustomer(ctx, ref.ID)
	default:
		return false, nil
	}
	if store.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}
