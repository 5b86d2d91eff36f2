package repository

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusCreated    TaskStatus = "CREATED"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusFailed     TaskStatus = "FAILED"
	TaskStatusDone       TaskStatus = "DONE"
)

type OutboxTask struct {
	ID          uuid.UUID       `db:"id"`
	Status      TaskStatus      `db:"status"`
	Payload     json.RawMessage `db:"payload"`
	Topic       string          `db:"topic"`
	Attempts    int             `db:"attempts"`
	LastError   *string         `db:"last_error"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
	CompletedAt *time.Time      `db:"completed_at"`
}

// ReturnEvent is the payload published for every change to a return record.
type ReturnEvent struct {
	EventID        uuid.UUID `json:"event_id"`
	Type           string    `json:"type"`
	DocumentNumber string    `json:"document_number"`
	ItemName       string    `json:"item_name,omitempty"`
	Quantity       int       `json:"quantity,omitempty"`
	Unit           string    `json:"unit,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	OldStatus      string    `json:"old_status,omitempty"`
	NewStatus      string    `json:"new_status,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

const (
	EventCreated   = "return.created"
	EventApproved  = "return.approved"
	EventDestroyed = "return.destroyed"
	EventSent      = "return.sent"
	EventUpdated   = "return.updated"
	EventDeleted   = "return.deleted"
)
