// Package directory manages the reference data the rest of the back office
// points at: depots, customers, staff, fleet and products.
package directory

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"gasflow/lifecycle"
	"gasflow/store"
)

// DepotCache is told about depot changes so cached stock stays labelled.
type DepotCache interface {
	RefreshDepotMeta(ctx context.Context, depotID int64)
	ForgetDepot(ctx context.Context, depotID int64)
}

type Service struct {
	db       *store.DB
	cache    DepotCache
	validate *validator.Validate
}

func NewService(db *store.DB, cache DepotCache) *Service {
	return &Service{db: db, cache: cache, validate: lifecycle.NewValidator()}
}

func (s *Service) check(v any) error {
	return lifecycle.ValidationFromValidator(s.validate.Struct(v))
}

// --- Depots ---

type DepotInput struct {
	Code       string  `json:"code" validate:"required,max=20"`
	Label      string  `json:"label" validate:"required,max=100"`
	Address    string  `json:"address" validate:"max=255"`
	City       string  `json:"city" validate:"max=100"`
	PostalCode string  `json:"postal_code" validate:"max=20"`
	Phone      string  `json:"phone" validate:"max=30"`
	GPSX       float64 `json:"gps_x" validate:"min=-180,max=180"`
	GPSY       float64 `json:"gps_y" validate:"min=-90,max=90"`
	DepotType  string  `json:"depot_type" validate:"omitempty,oneof=storage maintenance"`
}

func (in DepotInput) apply(d *store.Depot) {
	d.Code, d.Label = in.Code, in.Label
	d.Address, d.City, d.PostalCode, d.Phone = in.Address, in.City, in.PostalCode, in.Phone
	d.GPSX, d.GPSY = in.GPSX, in.GPSY
	d.DepotType = in.DepotType
	if d.DepotType == "" {
		d.DepotType = store.DepotTypeStorage
	}
}

func uniqueDepotCode(ctx context.Context, q *store.Queries, code string, self int64) error {
	d, err := q.GetDepotByCode(ctx, code)
	if store.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if d.ID != self {
		return lifecycle.Invalid("code", "already used by "+d.Label)
	}
	return nil
}

func (s *Service) CreateDepot(ctx context.Context, in DepotInput) (*store.Depot, error) {
	if err := s.check(&in); err != nil {
		return nil, err
	}
	d := &store.Depot{}
	in.apply(d)
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		if err := uniqueDepotCode(ctx, q, in.Code, 0); err != nil {
			return err
		}
		return q.CreateDepot(ctx, d)
	})
	if err != nil {
		logError("create depot", err)
		return nil, err
	}
	s.refreshDepot(ctx, d.ID)
	return s.db.GetDepot(ctx, d.ID)
}

func (s *Service) UpdateDepot(ctx context.Context, id int64, in DepotInput) (*store.Depot, error) {
	if err := s.check(&in); err != nil {
		return nil, err
	}
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		d, err := q.GetDepot(ctx, id)
		if err != nil {
			return err
		}
		if err := uniqueDepotCode(ctx, q, in.Code, id); err != nil {
			return err
		}
		in.apply(d)
		return q.UpdateDepot(ctx, d)
	})
	if err != nil {
		logError("update depot", err)
		return nil, err
	}
	s.refreshDepot(ctx, id)
	return s.db.GetDepot(ctx, id)
}

// DeleteDepot refuses depots that still hold inventory or employees.
func (s *Service) DeleteDepot(ctx context.Context, id int64) error {
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		d, err := q.GetDepot(ctx, id)
		if err != nil {
			return err
		}
		inUse, err := q.DepotInUse(ctx, id)
		if err != nil {
			return err
		}
		if inUse {
			return lifecycle.ConflictError("depot %s still has inventory or employees", d.Label)
		}
		return q.DeleteDepot(ctx, id)
	})
	if err != nil {
		logError("delete depot", err)
		return err
	}
	if s.cache != nil {
		s.cache.ForgetDepot(ctx, id)
	}
	return nil
}

func (s *Service) refreshDepot(ctx context.Context, id int64) {
	if s.cache != nil {
		s.cache.RefreshDepotMeta(ctx, id)
	}
}

func (s *Service) GetDepot(ctx context.Context, id int64) (*store.Depot, error) {
	return s.db.GetDepot(ctx, id)
}

func (s *Service) ListDepots(ctx context.Context) ([]*store.Depot, error) {
	return s.db.ListDepots(ctx)
}

// --- Customers ---

type AddressInput struct {
	Label      string `json:"label" validate:"required,max=100"`
	Street     string `json:"street" validate:"required,max=255"`
	City       string `json:"city" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"max=20"`
	IsDefault  bool   `json:"is_default"`
}

type CustomerInput struct {
	Name      string        `json:"name" validate:"required,max=100"`
	FirstName string        `json:"first_name" validate:"max=100"`
	Phone     string        `json:"phone" validate:"max=30"`
	Email     string        `json:"email" validate:"omitempty,email"`
	Address   *AddressInput `json:"address,omitempty"`
}

// CreateCustomer writes the customer and, when given, its first address,
// which becomes the default.
func (s *Service) CreateCustomer(ctx context.Context, in CustomerInput) (*store.Customer, error) {
	if err := s.check(&in); err != nil {
		return nil, err
	}
	c := &store.Customer{Name: in.Name, FirstName: in.FirstName, Phone: in.Phone, Email: in.Email}
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		if err := q.CreateCustomer(ctx, c); err != nil {
			return err
		}
		if in.Address == nil {
			return nil
		}
		a := in.Address.toStore(c.ID)
		a.IsDefault = true
		return q.AddCustomerAddress(ctx, a)
	})
	if err != nil {
		logError("create customer", err)
		return nil, err
	}
	return s.GetCustomer(ctx, c.ID)
}

func (s *Service) UpdateCustomer(ctx context.Context, id int64, in CustomerInput) (*store.Customer, error) {
	if err := s.check(&in); err != nil {
		return nil, err
	}
	c, err := s.db.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name, c.FirstName, c.Phone, c.Email = in.Name, in.FirstName, in.Phone, in.Email
	if err := s.db.UpdateCustomer(ctx, c); err != nil {
		logError("update customer", err)
		return nil, err
	}
	return s.GetCustomer(ctx, id)
}

func (a AddressInput) toStore(customerID int64) *store.CustomerAddress {
	return &store.CustomerAddress{
		CustomerID: customerID,
		Label:      a.Label,
		Street:     a.Street,
		City:       a.City,
		PostalCode: a.PostalCode,
		IsDefault:  a.IsDefault,
	}
}

func (s *Service) AddAddress(ctx context.Context, customerID int64, in AddressInput) (*store.CustomerAddress, error) {
	if err := s.check(&in); err != nil {
		return nil, err
	}
	a := in.toStore(customerID)
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		if _, err := q.GetCustomer(ctx, customerID); err != nil {
			return err
		}
		return q.AddCustomerAddress(ctx, a)
	})
	if err != nil {
		logError("add address", err)
		return nil, err
	}
	return a, nil
}

// DeleteCustomer refuses customers that have placed orders.
func (s *Service) DeleteCustomer(ctx context.Context, id int64) error {
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		c, err := q.GetCustomer(ctx, id)
		if err != nil {
			return err
		}
		n, err := q.CountCustomerOrders(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return lifecycle.ConflictError("customer %s has %d orders", c.FullName(), n)
		}
		return q.DeleteCustomer(ctx, id)
	})
	logError("delete customer", err)
	return err
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (*store.Customer, error) {
	c, err := s.db.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Addresses, err = s.db.ListCustomerAddresses(ctx, id)
	return c, err
}

func (s *Service) ListCustomers(ctx context.Context, search string) ([]*store.Customer, error) {
	return s.db.ListCustomers(ctx, search)
}

// --- Staff and fleet ---

type EmployeeInput struct {
	Name      string `json:"name" validate:"required,max=100"`
	FirstName string `json:"first_name" validate:"max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
	DepotID   *int64 `json:"depot_id,omitempty"`
}

func (s *Service) CreateEmployee(ctx context.Context, in EmployeeInput) (*store.Employee, error) {
	if err := s.check(&in); err != nil {
		return nil, err
	}
	e := &store.Employee{Name: in.Name, FirstName: in.FirstName, Email: in.Email, DepotID: in.DepotID}
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		if in.DepotID != nil {
			if _, err := q.GetDepot(ctx, *in.DepotID); err != nil {
				if store.IsNotFound(err) {
					return lifecycle.Invalid("depot_id", "unknown depot")
				}
				return err
			}
		}
		return q.CreateEmployee(ctx, e)
	})
	if err != nil {
		logError("create employee", err)
		return nil, err
	}
	return s.db.GetEmployee(ctx, e.ID)
}

func (s *Service) ListEmployees(ctx context.Context) ([]*store.Employee, error) {
	return s.db.ListEmployees(ctx)
}

func (s *Service) DeleteEmployee(ctx context.Context, id int64) error {
	if _, err := s.db.GetEmployee(ctx, id); err != nil {
		return err
	}
	return s.db.DeleteEmployee(ctx, id)
}

type DriverInput struct {
	Name          string `json:"name" validate:"required,max=100"`
	Phone         string `json:"phone" validate:"max=30"`
	LicenseNumber string `json:"license_number" validate:"max=50"`
	Active        *bool  `json:"active,omitempty"`
}

func (s *Service) CreateDriver(ctx context.Context, in DriverInput) (*store.Driver, error) {
	if err := s.check(&in); err != nil {
		return nil, err
	}
	d := &store.Driver{Name: in.Name, Phone: in.Phone, LicenseNumber: in.LicenseNumber, Active: true}
	if in.Active != nil {
		d.Active = *in.Active
	}
	if err := s.db.CreateDriver(ctx, d); err != nil {
		logError("create driver", err)
		return nil, err
	}
	return d, nil
}

func (s *Service) ListDrivers(ctx context.Context) ([]*store.Driver, error) {
	return s.db.ListDrivers(ctx)
}

func (s *Service) DeleteDriver(ctx context.Context, id int64) error {
	if _, err := s.db.GetDriver(ctx, id); err != nil {
		return err
	}
	return s.db.DeleteDriver(ctx, id)
}

type VehicleInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Plate    string `json:"plate" validate:"required,max=20"`
	Capacity int    `json:"capacity" validate:"min=0"`
}

func (s *Service) CreateVehicle(ctx context.Context, in VehicleInput) (*store.Vehicle, error) {
	if err := s.check(&in); err != nil {
		return nil, err
	}
	v := &store.Vehicle{Name: in.Name, Plate: in.Plate, Capacity: in.Capacity}
	if err := s.db.CreateVehicle(ctx, v); err != nil {
		logError("create vehicle", err)
		return nil, err
	}
	return v, nil
}

func (s *Service) ListVehicles(ctx context.Context) ([]*store.Vehicle, error) {
	return s.db.ListVehicles(ctx)
}

func (s *Service) DeleteVehicle(ctx context.Context, id int64) error {
	if _, err := s.db.GetVehicle(ctx, id); err != nil {
		return err
	}
	return s.db.DeleteVehicle(ctx, id)
}

// --- Products ---

type ProductInput struct {
	Code         string          `json:"code" validate:"required,max=20"`
	ProductType  string          `json:"product_type" validate:"omitempty,max=30"`
	UnitCode     string          `json:"unit_code" validate:"max=10"`
	Label        string          `json:"label" validate:"required,max=100"`
	Price        decimal.Decimal `json:"price"`
	RealCapacity float64         `json:"real_capacity" validate:"min=0"`
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*store.Product, error) {
	if err := s.check(&in); err != nil {
		return nil, err
	}
	if in.Price.IsNegative() {
		return nil, lifecycle.Invalid("price", "min")
	}
	p := &store.Product{
		Code:         in.Code,
		ProductType:  in.ProductType,
		UnitCode:     in.UnitCode,
		Label:        in.Label,
		Price:        in.Price,
		RealCapacity: in.RealCapacity,
	}
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		if _, err := q.GetProductByCode(ctx, in.Code); err == nil {
			return lifecycle.Invalid("code", "already used")
		} else if !store.IsNotFound(err) {
			return err
		}
		return q.CreateProduct(ctx, p)
	})
	if err != nil {
		logError("create product", err)
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*store.Product, error) {
	if err := s.check(&in); err != nil {
		return nil, err
	}
	if in.Price.IsNegative() {
		return nil, lifecycle.Invalid("price", "min")
	}
	var p *store.Product
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		var err error
		if p, err = q.GetProduct(ctx, id); err != nil {
			return err
		}
		if other, err := q.GetProductByCode(ctx, in.Code); err == nil && other.ID != id {
			return lifecycle.Invalid("code", "already used")
		} else if err != nil && !store.IsNotFound(err) {
			return err
		}
		p.Code, p.UnitCode, p.Label, p.Price, p.RealCapacity = in.Code, in.UnitCode, in.Label, in.Price, in.RealCapacity
		if in.ProductType != "" {
			p.ProductType = in.ProductType
		}
		return q.UpdateProduct(ctx, p)
	})
	if err != nil {
		logError("update product", err)
		return nil, err
	}
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*store.Product, error) {
	return s.db.GetProduct(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context) ([]*store.Product, error) {
	return s.db.ListProducts(ctx)
}

// Counts is the dashboard head-count of reference data.
type Counts struct {
	Depots    int `json:"depots"`
	Customers int `json:"customers"`
	Products  int `json:"products"`
	Drivers   int `json:"drivers"`
	Vehicles  int `json:"vehicles"`
}

func (s *Service) Counts(ctx context.Context) (*Counts, error) {
	var c Counts
	depots, err := s.db.ListDepots(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := s.db.ListCustomers(ctx, "")
	if err != nil {
		return nil, err
	}
	products, err := s.db.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	drivers, err := s.db.ListDrivers(ctx)
	if err != nil {
		return nil, err
	}
	vehicles, err := s.db.ListVehicles(ctx)
	if err != nil {
		return nil, err
	}
	c.Depots, c.Customers, c.Products = len(depots), len(customers), len(products)
	c.Drivers, c.Vehicles = len(drivers), len(vehicles)
	return &c, nil
}

func logError(op string, err error) {
	if err == nil || lifecycle.IsConflict(err) || store.IsNotFound(err) {
		return
	}
	if _, ok := lifecycle.AsValidation(err); ok {
		return
	}
	log.WithError(err).Errorf("directory: %s", op)
}
