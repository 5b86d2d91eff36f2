//go:generate mockgen -source ./service.go -destination=./mocks/service.go -package=mock_service
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"gitlab.com/pdhero/retur/internal/metrics"
	"gitlab.com/pdhero/retur/internal/retur"
	"gitlab.com/pdhero/retur/internal/storage"
)

// createAttempts bounds how often Create draws a new document number after
// losing a race for the previous one.
const createAttempts = 3

type Store interface {
	List(ctx context.Context) (storage.Listing, error)
	Get(ctx context.Context, number string) (retur.Record, error)
	Upsert(ctx context.Context, rec retur.Record) (retur.Record, error)
	Delete(ctx context.Context, number string) error
	Count(ctx context.Context) (int, error)
	DocumentNumbers(ctx context.Context, p retur.Period) ([]string, error)
}

// Snapshot is the fully reloaded view both front ends render from.
type Snapshot struct {
	Records    []retur.Record
	Partitions retur.Partitions
	Summary    retur.Summary
	SentByDate []retur.SentBatch
	Count      int
	Connected  bool
	Warnings   []string
	LoadedAt   time.Time
}

// ReturnService runs the workflow on top of the store. It keeps the last
// snapshot as a disposable cache that is rebuilt after every mutation.
type ReturnService struct {
	store   Store
	logger  *zap.Logger
	loc     *time.Location
	timeNow func() time.Time

	mu       sync.RWMutex
	snapshot Snapshot
}

func New(store Store, logger *zap.Logger, loc *time.Location) *ReturnService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReturnService{
		store:   store,
		logger:  logger,
		loc:     loc,
		timeNow: time.Now,
	}
}

func (s *ReturnService) now() time.Time {
	return s.timeNow().In(s.loc)
}

// Load reads the whole table and replaces the cached snapshot. An unreachable
// store yields an empty, disconnected snapshot rather than an error.
func (s *ReturnService) Load(ctx context.Context) (Snapshot, error) {
	listing, err := s.store.List(ctx)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("load").Inc()
		s.logger.Error("Failed to load returns", zap.Error(err))
		return Snapshot{}, err
	}

	snap := Snapshot{
		Records:    listing.Records,
		Partitions: retur.Partition(listing.Records),
		Summary:    retur.Summarize(listing.Records),
		SentByDate: retur.GroupSent(listing.Records, s.loc),
		Count:      len(listing.Records),
		Connected:  listing.Available,
		Warnings:   listing.Warnings,
		LoadedAt:   s.now(),
	}

	if listing.Available {
		n, err := s.store.Count(ctx)
		if err != nil {
			s.logger.Warn("Failed to count returns", zap.Error(err))
			snap.Warnings = append(snap.Warnings, "total row count unavailable")
		} else {
			snap.Count = n
		}
	} else {
		s.logger.Warn("Record store unavailable, showing empty list")
	}
	for _, w := range snap.Warnings {
		s.logger.Warn("Unexpected stored value", zap.String("warning", w))
	}

	metrics.RecordsLoaded.Set(float64(len(snap.Records)))

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
	return snap, nil
}

// Snapshot returns the last loaded snapshot without touching the store.
func (s *ReturnService) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *ReturnService) reload(ctx context.Context) {
	if _, err := s.Load(ctx); err != nil {
		s.logger.Warn("Reload after mutation failed", zap.Error(err))
	}
}

// NextNumber previews the document number the next submission would get.
func (s *ReturnService) NextNumber(ctx context.Context) (string, error) {
	now := s.now()
	numbers, err := s.store.DocumentNumbers(ctx, retur.PeriodOf(now))
	if err != nil {
		return "", err
	}
	return retur.NextDocumentNumber(now, numbers), nil
}

func (s *ReturnService) Get(ctx context.Context, number string) (retur.Record, error) {
	return s.store.Get(ctx, number)
}

// Create validates the form, assigns the next document number and stores the
// record as awaiting approval.
func (s *ReturnService) Create(ctx context.Context, form retur.Form) (retur.Record, error) {
	l := s.logger.With(zap.String("operation", "Create"), zap.String("item_name", form.ItemName))

	if err := form.Validate(); err != nil {
		l.Warn("Validation failed", zap.Error(err))
		return retur.Record{}, err
	}

	for attempt := 1; attempt <= createAttempts; attempt++ {
		number, err := s.NextNumber(ctx)
		if err != nil {
			metrics.OperationErrorsTotal.WithLabelValues("create").Inc()
			l.Error("Failed to read document numbers", zap.Error(err))
			return retur.Record{}, err
		}

		rec, err := retur.NewRecord(form, number, s.now())
		if err != nil {
			return retur.Record{}, err
		}

		saved, err := s.store.Upsert(ctx, rec)
		if errors.Is(err, retur.ErrDuplicate) {
			l.Warn("Document number taken, retrying", zap.String("document_number", number), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			metrics.OperationErrorsTotal.WithLabelValues("create").Inc()
			l.Error("Failed to save return", zap.Error(err))
			return retur.Record{}, err
		}

		metrics.ReturnsCreatedTotal.Inc()
		l.Info("Return created", zap.String("document_number", saved.DocumentNumber))
		s.reload(ctx)
		return saved, nil
	}

	metrics.OperationErrorsTotal.WithLabelValues("create").Inc()
	return retur.Record{}, fmt.Errorf("no free document number after %d attempts: %w", createAttempts, retur.ErrDuplicate)
}

func (s *ReturnService) Approve(ctx context.Context, number string) (retur.Record, error) {
	return s.transition(ctx, number, retur.ActionApprove, false)
}

// PreviewDestroy returns the record a destroy confirmation should show.
func (s *ReturnService) PreviewDestroy(ctx context.Context, number string) (retur.Record, error) {
	rec, err := s.store.Get(ctx, number)
	if err != nil {
		return retur.Record{}, err
	}
	if !retur.Allowed(rec.Status, retur.ActionDestroy) {
		return retur.Record{}, &retur.TransitionError{DocumentNumber: number, From: rec.Status, Action: retur.ActionDestroy}
	}
	return rec, nil
}

// Destroy only proceeds once the caller has confirmed.
func (s *ReturnService) Destroy(ctx context.Context, number string, confirmed bool) (retur.Record, error) {
	return s.transition(ctx, number, retur.ActionDestroy, confirmed)
}

func (s *ReturnService) Send(ctx context.Context, number string) (retur.Record, error) {
	return s.transition(ctx, number, retur.ActionSend, false)
}

func (s *ReturnService) transition(ctx context.Context, number string, action retur.Action, confirmed bool) (retur.Record, error) {
	l := s.logger.With(zap.String("operation", string(action)), zap.String("document_number", number))

	rec, err := s.store.Get(ctx, number)
	if err != nil {
		l.Warn("Failed to load return", zap.Error(err))
		return retur.Record{}, err
	}

	next, err := retur.Apply(rec.Status, action)
	if err != nil {
		var te *retur.TransitionError
		if errors.As(err, &te) {
			te.DocumentNumber = number
		}
		l.Warn("Transition rejected", zap.String("status", string(rec.Status)))
		return retur.Record{}, err
	}
	if retur.RequiresConfirmation(action) && !confirmed {
		return retur.Record{}, retur.ErrConfirmationRequired
	}

	rec.Status = next
	rec.UpdatedAt = s.now()

	saved, err := s.store.Upsert(ctx, rec)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues(string(action)).Inc()
		l.Error("Failed to save transition", zap.Error(err))
		return retur.Record{}, err
	}

	metrics.TransitionsTotal.WithLabelValues(string(action)).Inc()
	l.Info("Return status changed", zap.String("status", string(saved.Status)))
	s.reload(ctx)
	return saved, nil
}

// Delete removes the record whatever its status.
func (s *ReturnService) Delete(ctx context.Context, number string) error {
	l := s.logger.With(zap.String("operation", "Delete"), zap.String("document_number", number))

	if err := s.store.Delete(ctx, number); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("delete").Inc()
		l.Error("Failed to delete return", zap.Error(err))
		return err
	}

	metrics.ReturnsDeletedTotal.Inc()
	l.Info("Return deleted")
	s.reload(ctx)
	return nil
}
