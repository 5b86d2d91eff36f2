//go:generate mockgen -source ./store.go -destination=./mocks/store.go -package=mock_storage
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gitlab.com/pdhero/retur/internal/db"
	"gitlab.com/pdhero/retur/internal/repository"
	"gitlab.com/pdhero/retur/internal/retur"
)

type ReturnRepository interface {
	List(ctx context.Context) ([]*repository.ReturnRow, error)
	Count(ctx context.Context) (int, error)
	NumbersForPeriod(ctx context.Context, prefix string) ([]string, error)
	GetByNumber(ctx context.Context, number string) (*repository.ReturnRow, error)
	GetByNumberTx(ctx context.Context, tx db.Tx, number string) (*repository.ReturnRow, error)
	CreateTx(ctx context.Context, tx db.Tx, row *repository.ReturnRow) error
	UpdateTx(ctx context.Context, tx db.Tx, row *repository.ReturnRow) error
	DeleteTx(ctx context.Context, tx db.Tx, number string) error
}

// Listing is one full read of the table. Available is false when the
// database could not be reached; Records is then empty.
type Listing struct {
	Records   []retur.Record
	Warnings  []string
	Available bool
}

// Storage is the record store client. Every mutation runs in a single
// transaction together with its outbox event.
type Storage struct {
	db          db.DB
	returnRepo  ReturnRepository
	outboxRepo  OutboxTaskRepository
	eventsTopic string
	timeNow     func() time.Time
}

func NewStorage(db db.DB, returnRepo ReturnRepository, outboxRepo OutboxTaskRepository, eventsTopic string) *Storage {
	return &Storage{
		db:          db,
		returnRepo:  returnRepo,
		outboxRepo:  outboxRepo,
		eventsTopic: eventsTopic,
		timeNow:     time.Now,
	}
}

// List returns every record, newest first. An unreachable database is not an
// error: the listing comes back empty and marked unavailable.
func (s *Storage) List(ctx context.Context) (Listing, error) {
	rows, err := s.returnRepo.List(ctx)
	if err != nil {
		if db.IsUnavailable(err) {
			return Listing{Records: []retur.Record{}}, nil
		}
		return Listing{}, fmt.Errorf("failed to list returns: %w", err)
	}

	listing := Listing{Records: make([]retur.Record, 0, len(rows)), Available: true}
	for _, row := range rows {
		rec, warnings := rowToRecord(row)
		listing.Records = append(listing.Records, rec)
		listing.Warnings = append(listing.Warnings, warnings...)
	}
	return listing, nil
}

func (s *Storage) Get(ctx context.Context, number string) (retur.Record, error) {
	row, err := s.returnRepo.GetByNumber(ctx, number)
	if err != nil {
		return retur.Record{}, classify("failed to get return "+number, err)
	}
	rec, _ := rowToRecord(row)
	return rec, nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	n, err := s.returnRepo.Count(ctx)
	if err != nil {
		return 0, classify("failed to count returns", err)
	}
	return n, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", retur.ErrUnavailable, err)
	}
	return nil
}

// DocumentNumbers lists the numbers already issued in period p.
func (s *Storage) DocumentNumbers(ctx context.Context, p retur.Period) ([]string, error) {
	numbers, err := s.returnRepo.NumbersForPeriod(ctx, p.Prefix())
	if err != nil {
		return nil, classify("failed to read document numbers", err)
	}
	return numbers, nil
}

// Upsert inserts rec when its document number is new and updates it otherwise.
// An update only succeeds while rec.Version matches the stored version. A
// record with a zero version has never been stored, so finding its number
// taken is reported as retur.ErrDuplicate.
func (s *Storage) Upsert(ctx context.Context, rec retur.Record) (retur.Record, error) {
	var saved *repository.ReturnRow
	err := s.inTx(ctx, func(tx db.Tx) error {
		existing, err := s.returnRepo.GetByNumberTx(ctx, tx, rec.DocumentNumber)
		switch {
		case errors.Is(err, repository.ErrObjectNotFound):
			row := recordToRow(rec)
			if err := s.returnRepo.CreateTx(ctx, tx, row); err != nil {
				return err
			}
			saved = row
			return s.enqueue(ctx, tx, repository.EventCreated, "", row)
		case err != nil:
			return err
		}

		if rec.Version == 0 {
			return fmt.Errorf("%w: %s", retur.ErrDuplicate, rec.DocumentNumber)
		}
		row := recordToRow(rec)
		row.ID = existing.ID
		if err := s.returnRepo.UpdateTx(ctx, tx, row); err != nil {
			return err
		}
		saved = row
		return s.enqueue(ctx, tx, eventForStatus(retur.Status(row.Status)), existing.Status, row)
	})
	if err != nil {
		return retur.Record{}, classify("failed to save return "+rec.DocumentNumber, err)
	}

	out, _ := rowToRecord(saved)
	return out, nil
}

func (s *Storage) Delete(ctx context.Context, number string) error {
	err := s.inTx(ctx, func(tx db.Tx) error {
		existing, err := s.returnRepo.GetByNumberTx(ctx, tx, number)
		if err != nil {
			return err
		}
		if err := s.returnRepo.DeleteTx(ctx, tx, number); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, repository.EventDeleted, existing.Status, existing)
	})
	if err != nil {
		return classify("failed to delete return "+number, err)
	}
	return nil
}

func (s *Storage) inTx(ctx context.Context, fn func(tx db.Tx) error) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Storage) enqueue(ctx context.Context, tx db.Tx, eventType, oldStatus string, row *repository.ReturnRow) error {
	event := repository.ReturnEvent{
		EventID:        uuid.New(),
		Type:           eventType,
		DocumentNumber: row.NoNotaRetur,
		ItemName:       row.NamaBarang,
		Quantity:       row.Quantity,
		Unit:           row.Satuan,
		Reason:         row.Alasan,
		OldStatus:      oldStatus,
		OccurredAt:     s.timeNow().UTC(),
	}
	if eventType != repository.EventDeleted {
		event.NewStatus = row.Status
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	task := &repository.OutboxTask{
		ID:      event.EventID,
		Payload: payload,
		Topic:   s.eventsTopic,
	}
	if err := s.outboxRepo.CreateTx(ctx, tx, task); err != nil {
		return fmt.Errorf("failed to enqueue %s event: %w", eventType, err)
	}
	return nil
}

func eventForStatus(s retur.Status) string {
	switch s {
	case retur.StatusApproved:
		return repository.EventApproved
	case retur.StatusDestroyed:
		return repository.EventDestroyed
	case retur.StatusSent:
		return repository.EventSent
	default:
		return repository.EventUpdated
	}
}

// classify attaches the matching retur sentinel to a repository or driver
// error so callers can branch with errors.Is.
func classify(msg string, err error) error {
	var kind error
	switch {
	case errors.Is(err, repository.ErrObjectNotFound):
		kind = retur.ErrNotFound
	case errors.Is(err, repository.ErrVersionConflict):
		kind = retur.ErrConflict
	case db.IsUniqueViolation(err):
		kind = retur.ErrDuplicate
	case db.IsUnavailable(err):
		kind = retur.ErrUnavailable
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, kind, err)
}
