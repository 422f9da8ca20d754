// Package lifecycle tracks where each cylinder is and what service it has
// had: the movement ledger, the maintenance state machine and the location
// derived from both.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"gasflow/config"
	"gasflow/store"
)

// PageSize is the number of rows per listing page.
const PageSize = 15

type Options struct {
	LockTTL          time.Duration
	ScheduleHorizon  time.Duration
	RepairFollowUp   time.Duration
	InspectionPeriod time.Duration
}

func OptionsFromConfig(cfg config.LifecycleConfig) Options {
	return Options{
		LockTTL:          cfg.LockTTL,
		ScheduleHorizon:  cfg.ScheduleHorizon,
		RepairFollowUp:   cfg.RepairFollowUp,
		InspectionPeriod: cfg.InspectionPeriod,
	}
}

type Service struct {
	db       *store.DB
	emitter  Emitter
	locker   Locker
	validate *validator.Validate
	opts     Options
	now      func() time.Time
}

func NewService(db *store.DB, emitter Emitter, locker Locker, opts Options) *Service {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	if opts.ScheduleHorizon <= 0 {
		opts.ScheduleHorizon = 90 * 24 * time.Hour
	}
	if opts.RepairFollowUp <= 0 {
		opts.RepairFollowUp = 24 * time.Hour
	}
	if opts.InspectionPeriod <= 0 {
		opts.InspectionPeriod = 365 * 24 * time.Hour
	}
	return &Service{
		db:       db,
		emitter:  emitter,
		locker:   locker,
		validate: NewValidator(),
		opts:     opts,
		now:      time.Now,
	}
}

// Page is one page of a filtered listing.
type Page[T any] struct {
	Items   []T `json:"items"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Pages   int `json:"pages"`
}

func newPage[T any](items []T, total, page int) Page[T] {
	pages := (total + PageSize - 1) / PageSize
	if pages == 0 {
		pages = 1
	}
	return Page[T]{Items: items, Total: total, Page: page, PerPage: PageSize, Pages: pages}
}

func pageOffset(page int) (int, int) {
	if page < 1 {
		page = 1
	}
	return page, (page - 1) * PageSize
}

// withLock runs fn while holding the lock on key. A busy lock is reported
// as a state conflict.
func (s *Service) withLock(ctx context.Context, key string, fn func() error) error {
	release, err := s.locker.Obtain(ctx, key, s.opts.LockTTL)
	if err != nil {
		if err == ErrLockBusy {
			return ConflictError("%s is being modified by someone else", key)
		}
		return fmt.Errorf("obtain lock %s: %w", key, err)
	}
	defer release()
	return fn()
}

// afterCommit collects event emissions so they fire only once the
// transaction that produced them has committed.
type afterCommit []func()

func (a *afterCommit) add(fn func()) { *a = append(*a, fn) }

func (a afterCommit) run() {
	for _, fn := range a {
		fn()
	}
}

func today(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func logTx(op string, err error) {
	if err != nil && !IsConflict(err) {
		if _, ok := AsValidation(err); !ok {
			log.WithError(err).Errorf("lifecycle: %s", op)
		}
	}
}
