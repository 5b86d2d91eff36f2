package handler

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	mock_handler "gitlab.com/pdhero/retur/internal/handler/mocks"
	"gitlab.com/pdhero/retur/internal/retur"
	"gitlab.com/pdhero/retur/internal/service"
)

var now = time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC)

func record(number string, status retur.Status) retur.Record {
	return retur.Record{
		DocumentNumber: number,
		SubmissionDate: time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC),
		ItemName:       "Pakan Ayam",
		Quantity:       3,
		Unit:           retur.UnitBox,
		ExpiryDate:     time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
		Reason:         retur.ReasonExpired,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        1,
	}
}

func snapshotOf(records ...retur.Record) service.Snapshot {
	return service.Snapshot{
		Records:    records,
		Partitions: retur.Partition(records),
		Summary:    retur.Summarize(records),
		SentByDate: retur.GroupSent(records, time.UTC),
		Count:      len(records),
		Connected:  true,
	}
}

func newTestHandler(t *testing.T, input string) (*Handler, *mock_handler.MockService, *bytes.Buffer, *[]time.Duration) {
	ctrl := gomock.NewController(t)
	svc := mock_handler.NewMockService(ctrl)
	out := &bytes.Buffer{}
	h := New(svc, strings.NewReader(input), out, time.UTC, time.Second)
	var pauses []time.Duration
	h.sleep = func(d time.Duration) { pauses = append(pauses, d) }
	h.timeNow = func() time.Time { return now }
	return h, svc, out, &pauses
}

func TestHandler_List(t *testing.T) {
	ctx := context.Background()

	t.Run("groups by status", func(t *testing.T) {
		h, svc, out, _ := newTestHandler(t, "")
		svc.EXPECT().Load(ctx).Return(snapshotOf(
			record("2024/05/002", retur.StatusApproved),
			record("2024/05/001", retur.StatusAwaitingApproval),
		), nil)

		h.Execute(ctx, "list")

		assert.Contains(t, out.String(), "== Menunggu Persetujuan (1) ==")
		assert.Contains(t, out.String(), "== Sudah Disetujui (1) ==")
		assert.Contains(t, out.String(), "[destroy, delete]")
		assert.Contains(t, out.String(), "3 DUS")
	})

	t.Run("filter", func(t *testing.T) {
		h, svc, out, _ := newTestHandler(t, "")
		svc.EXPECT().Load(ctx).Return(snapshotOf(record("2024/05/001", retur.StatusSent)), nil)

		h.Execute(ctx, "list sent")

		assert.Contains(t, out.String(), "== Sudah Kirim ke Pak Taufik (1) ==")
		assert.NotContains(t, out.String(), "Menunggu")
		assert.Equal(t, "sent", h.Session().Filter)
	})

	t.Run("unknown filter", func(t *testing.T) {
		h, _, out, _ := newTestHandler(t, "")

		h.Execute(ctx, "list lost")

		assert.Contains(t, out.String(), "Unknown status")
	})

	t.Run("disconnected banner", func(t *testing.T) {
		h, svc, out, _ := newTestHandler(t, "")
		svc.EXPECT().Load(ctx).Return(service.Snapshot{}, nil)

		h.Execute(ctx, "refresh")

		assert.Contains(t, out.String(), "NOT connected")
	})
}

func TestHandler_DestroyNeedsConfirmation(t *testing.T) {
	ctx := context.Background()

	t.Run("confirm", func(t *testing.T) {
		h, svc, out, pauses := newTestHandler(t, "")
		approved := record("2024/05/001", retur.StatusApproved)
		destroyed := record("2024/05/001", retur.StatusDestroyed)

		svc.EXPECT().PreviewDestroy(ctx, "2024/05/001").Return(approved, nil)
		h.Execute(ctx, "destroy 2024/05/001")
		assert.Contains(t, out.String(), "About to destroy")
		assert.Contains(t, out.String(), "Pakan Ayam")
		assert.Equal(t, "2024/05/001", h.Session().PendingDestroy)

		svc.EXPECT().Destroy(ctx, "2024/05/001", true).Return(destroyed, nil)
		svc.EXPECT().Snapshot().Return(snapshotOf(destroyed))
		h.Execute(ctx, "confirm")

		assert.Contains(t, out.String(), "Return 2024/05/001 destroyed")
		assert.Empty(t, h.Session().PendingDestroy)
		assert.Equal(t, []time.Duration{time.Second}, *pauses)
	})

	t.Run("cancel", func(t *testing.T) {
		h, svc, out, _ := newTestHandler(t, "")
		svc.EXPECT().PreviewDestroy(ctx, "2024/05/001").Return(record("2024/05/001", retur.StatusApproved), nil)

		h.Execute(ctx, "destroy 2024/05/001")
		h.Execute(ctx, "cancel")

		assert.Contains(t, out.String(), "Destroy of 2024/05/001 cancelled")
		assert.Empty(t, h.Session().PendingDestroy)
	})

	t.Run("other command drops the pending destroy", func(t *testing.T) {
		h, svc, _, _ := newTestHandler(t, "")
		svc.EXPECT().PreviewDestroy(ctx, "2024/05/001").Return(record("2024/05/001", retur.StatusApproved), nil)

		h.Execute(ctx, "destroy 2024/05/001")
		h.Execute(ctx, "help")

		assert.Empty(t, h.Session().PendingDestroy)
	})

	t.Run("wrong state", func(t *testing.T) {
		h, svc, out, _ := newTestHandler(t, "")
		svc.EXPECT().PreviewDestroy(ctx, "2024/05/001").Return(retur.Record{},
			&retur.TransitionError{DocumentNumber: "2024/05/001", From: retur.StatusAwaitingApproval, Action: retur.ActionDestroy})

		h.Execute(ctx, "destroy 2024/05/001")

		assert.Contains(t, out.String(), "cannot destroy return 2024/05/001")
		assert.Empty(t, h.Session().PendingDestroy)
	})
}

func TestHandler_Transitions(t *testing.T) {
	ctx := context.Background()

	t.Run("approve", func(t *testing.T) {
		h, svc, out, _ := newTestHandler(t, "")
		approved := record("2024/05/001", retur.StatusApproved)
		svc.EXPECT().Approve(ctx, "2024/05/001").Return(approved, nil)
		svc.EXPECT().Snapshot().Return(snapshotOf(approved))

		h.Execute(ctx, "approve 2024/05/001")

		assert.Contains(t, out.String(), "Return 2024/05/001 approved")
		assert.Contains(t, out.String(), "== Sudah Disetujui (1) ==")
	})

	t.Run("send unavailable", func(t *testing.T) {
		h, svc, out, _ := newTestHandler(t, "")
		svc.EXPECT().Send(ctx, "2024/05/001").Return(retur.Record{}, retur.ErrUnavailable)

		h.Execute(ctx, "send 2024/05/001")

		assert.Contains(t, out.String(), "database not connected")
	})

	t.Run("delete clears expanded record", func(t *testing.T) {
		h, svc, _, _ := newTestHandler(t, "")
		svc.EXPECT().Get(ctx, "2024/05/001").Return(record("2024/05/001", retur.StatusSent), nil)
		svc.EXPECT().Delete(ctx, "2024/05/001").Return(nil)
		svc.EXPECT().Snapshot().Return(snapshotOf())

		h.Execute(ctx, "show 2024/05/001")
		assert.Equal(t, "2024/05/001", h.Session().Expanded)

		h.Execute(ctx, "delete 2024/05/001")
		assert.Empty(t, h.Session().Expanded)
	})

	t.Run("usage", func(t *testing.T) {
		h, _, out, _ := newTestHandler(t, "")

		h.Execute(ctx, "approve")

		assert.Contains(t, out.String(), "Usage: approve <number>")
	})
}

func TestHandler_New(t *testing.T) {
	ctx := context.Background()

	t.Run("custom reason", func(t *testing.T) {
		input := strings.Join([]string{"", "Pakan Ayam", "3", "bks", "2024-04-30", "4", "Kemasan sobek"}, "\n") + "\n"
		h, svc, out, _ := newTestHandler(t, input)

		svc.EXPECT().NextNumber(ctx).Return("2024/05/003", nil)
		svc.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, form retur.Form) (retur.Record, error) {
			assert.Equal(t, "Pakan Ayam", form.ItemName)
			assert.Equal(t, 3, form.Quantity)
			assert.Equal(t, retur.UnitPack, form.Unit)
			assert.Equal(t, "Kemasan sobek", form.Reason())
			assert.Equal(t, now, form.SubmissionDate)
			return record("2024/05/003", retur.StatusAwaitingApproval), nil
		})
		svc.EXPECT().Snapshot().Return(snapshotOf(record("2024/05/003", retur.StatusAwaitingApproval)))

		h.Execute(ctx, "new")

		assert.Contains(t, out.String(), "Document number: 2024/05/003")
		assert.Contains(t, out.String(), "Return 2024/05/003 submitted")
	})

	t.Run("bad date is reported before saving", func(t *testing.T) {
		input := strings.Join([]string{"", "Pakan Ayam", "3", "", "30/04/2024", "1"}, "\n") + "\n"
		h, svc, out, _ := newTestHandler(t, input)
		svc.EXPECT().NextNumber(ctx).Return("2024/05/003", nil)

		h.Execute(ctx, "new")

		assert.Contains(t, out.String(), "Please fill in: expiry date")
	})

	t.Run("missing fields from service", func(t *testing.T) {
		input := strings.Join([]string{"", "", "0", "", "", "1"}, "\n") + "\n"
		h, svc, out, _ := newTestHandler(t, input)
		svc.EXPECT().NextNumber(ctx).Return("2024/05/003", nil)
		svc.EXPECT().Create(ctx, gomock.Any()).Return(retur.Record{},
			&retur.ValidationError{Fields: []string{"item name", "quantity", "expiry date"}})

		h.Execute(ctx, "new")

		assert.Contains(t, out.String(), "Please fill in: item name, quantity, expiry date")
	})

	t.Run("input closes mid form", func(t *testing.T) {
		h, svc, out, _ := newTestHandler(t, "\nPakan")
		svc.EXPECT().NextNumber(ctx).Return("2024/05/003", nil)

		h.Execute(ctx, "new")

		assert.Contains(t, out.String(), "form discarded")
	})
}

func TestHandler_Run(t *testing.T) {
	h, svc, out, _ := newTestHandler(t, "summary\nexit\n")
	snap := snapshotOf(record("2024/05/001", retur.StatusSent), record("2024/05/002", retur.StatusAwaitingApproval))

	svc.EXPECT().Load(gomock.Any()).Return(snap, nil).Times(2)

	require.NoError(t, h.Run(context.Background()))
	assert.Contains(t, out.String(), "Total data: 2")
	assert.Contains(t, out.String(), "Processed: 1")
	assert.Contains(t, out.String(), "-- Sent to recipient --")
	assert.Contains(t, out.String(), "Bye")
}
