// Package billing handles guarantee deposits on cylinders and the billing
// documents issued for orders and deposits.
package billing

import (
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"gasflow/lifecycle"
	"gasflow/store"
)

// PaymentMethods lists the accepted payment methods with their labels.
var PaymentMethods = map[string]string{
	"cash":     "Cash",
	"card":     "Card",
	"transfer": "Bank transfer",
	"check":    "Check",
}

type Service struct {
	db       *store.DB
	emitter  EventEmitter
	validate *validator.Validate
	now      func() time.Time
}

func NewService(db *store.DB, emitter EventEmitter) *Service {
	return &Service{
		db:       db,
		emitter:  emitter,
		validate: lifecycle.NewValidator(),
		now:      time.Now,
	}
}

func logError(op string, err error) {
	if lifecycle.IsConflict(err) || store.IsNotFound(err) {
		return
	}
	if _, ok := lifecycle.AsValidation(err); ok {
		return
	}
	log.WithError(err).Errorf("billing: %s", op)
}
