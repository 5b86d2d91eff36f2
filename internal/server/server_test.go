package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"gitlab.com/pdhero/retur/internal/retur"
	mock_server "gitlab.com/pdhero/retur/internal/server/mocks"
	"gitlab.com/pdhero/retur/internal/service"
)

var created = time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC)

func record(number string, status retur.Status) retur.Record {
	return retur.Record{
		ID:             1,
		DocumentNumber: number,
		SubmissionDate: time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC),
		ItemName:       "Pakan Ayam",
		Quantity:       3,
		Unit:           retur.UnitBox,
		ExpiryDate:     time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
		Reason:         retur.ReasonExpired,
		Status:         status,
		CreatedAt:      created,
		UpdatedAt:      created,
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
		LoadedAt:   created,
	}
}

func newTestServer(t *testing.T) (*Server, *mock_server.MockService, *mock_server.MockPinger) {
	ctrl := gomock.NewController(t)
	svc := mock_server.NewMockService(ctrl)
	pinger := mock_server.NewMockPinger(ctrl)
	return New(svc, pinger, zap.NewNop(), time.UTC), svc, pinger
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestHandleListReturns(t *testing.T) {
	s, svc, _ := newTestServer(t)

	snap := snapshotOf(
		record("2024/05/002", retur.StatusApproved),
		record("2024/05/001", retur.StatusAwaitingApproval),
	)

	tests := []struct {
		name           string
		path           string
		setupMocks     func()
		expectedStatus int
		expectedCount  int
	}{
		{
			name:           "all returns",
			path:           "/returns",
			setupMocks:     func() { svc.EXPECT().Load(gomock.Any()).Return(snap, nil) },
			expectedStatus: http.StatusOK,
			expectedCount:  2,
		},
		{
			name:           "filtered by slug",
			path:           "/returns?status=approved",
			setupMocks:     func() { svc.EXPECT().Load(gomock.Any()).Return(snap, nil) },
			expectedStatus: http.StatusOK,
			expectedCount:  1,
		},
		{
			name:           "unknown status filter",
			path:           "/returns?status=lost",
			setupMocks:     func() { svc.EXPECT().Load(gomock.Any()).Return(snap, nil) },
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "load error",
			path:           "/returns",
			setupMocks:     func() { svc.EXPECT().Load(gomock.Any()).Return(service.Snapshot{}, errors.New("boom")) },
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMocks()

			rr := do(t, s, http.MethodGet, tc.path, nil)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			if tc.expectedStatus == http.StatusOK {
				var resp listResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				assert.True(t, resp.Connected)
				assert.Len(t, resp.Returns, tc.expectedCount)
			}
		})
	}
}

func TestHandleListReturnsDisconnected(t *testing.T) {
	s, svc, _ := newTestServer(t)
	svc.EXPECT().Load(gomock.Any()).Return(service.Snapshot{Records: []retur.Record{}}, nil)

	rr := do(t, s, http.MethodGet, "/returns", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"connected":false,"total":0,"returns":[]}`, rr.Body.String())
}

func TestHandleGetReturn(t *testing.T) {
	s, svc, _ := newTestServer(t)

	t.Run("document number with slashes", func(t *testing.T) {
		svc.EXPECT().Get(gomock.Any(), "2024/05/001").Return(record("2024/05/001", retur.StatusAwaitingApproval), nil)

		rr := do(t, s, http.MethodGet, "/returns/2024/05/001", nil)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp recordResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "2024/05/001", resp.DocumentNumber)
		assert.Equal(t, "3 DUS", resp.QuantityDisplay)
		assert.Equal(t, []string{"approve", "delete"}, resp.Actions)
		assert.Equal(t, "2024-04-30", resp.ExpiryDate)
	})

	t.Run("not found", func(t *testing.T) {
		svc.EXPECT().Get(gomock.Any(), "2024/05/404").Return(retur.Record{}, retur.ErrNotFound)

		rr := do(t, s, http.MethodGet, "/returns/2024/05/404", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("malformed number does not route", func(t *testing.T) {
		rr := do(t, s, http.MethodGet, "/returns/abc", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestHandleCreateReturn(t *testing.T) {
	s, svc, _ := newTestServer(t)

	tests := []struct {
		name           string
		requestBody    interface{}
		setupMocks     func()
		expectedStatus int
	}{
		{
			name: "preset reason",
			requestBody: map[string]interface{}{
				"item_name":   "Pakan Ayam",
				"quantity":    3,
				"unit":        "box",
				"expiry_date": "2024-04-30",
				"reason":      retur.ReasonExpired,
			},
			setupMocks: func() {
				svc.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, form retur.Form) (retur.Record, error) {
						assert.Equal(t, retur.UnitBox, form.Unit)
						assert.Equal(t, retur.ReasonExpired, form.Reason())
						assert.Equal(t, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), form.ExpiryDate)
						return record("2024/05/003", retur.StatusAwaitingApproval), nil
					})
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "free text reason",
			requestBody: map[string]interface{}{
				"item_name":   "Pakan Ayam",
				"quantity":    1,
				"expiry_date": "2024-04-30",
				"reason":      "Kemasan sobek",
			},
			setupMocks: func() {
				svc.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, form retur.Form) (retur.Record, error) {
						assert.Equal(t, retur.ReasonCustom, form.ReasonOption)
						assert.Equal(t, "Kemasan sobek", form.Reason())
						return record("2024/05/004", retur.StatusAwaitingApproval), nil
					})
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "validation failure",
			requestBody: map[string]interface{}{
				"quantity": 1,
			},
			setupMocks: func() {
				svc.EXPECT().Create(gomock.Any(), gomock.Any()).
					Return(retur.Record{}, &retur.ValidationError{Fields: []string{"item name", "expiry date", "reason"}})
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unparseable date",
			requestBody: map[string]interface{}{
				"item_name":   "Pakan Ayam",
				"quantity":    1,
				"expiry_date": "30/04/2024",
				"reason":      retur.ReasonExpired,
			},
			setupMocks:     func() {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid body",
			requestBody:    "not an object",
			setupMocks:     func() {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "store unavailable",
			requestBody: map[string]interface{}{
				"item_name":   "Pakan Ayam",
				"quantity":    1,
				"expiry_date": "2024-04-30",
				"reason":      retur.ReasonExpired,
			},
			setupMocks: func() {
				svc.EXPECT().Create(gomock.Any(), gomock.Any()).Return(retur.Record{}, retur.ErrUnavailable)
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMocks()

			rr := do(t, s, http.MethodPost, "/returns", tc.requestBody)

			assert.Equal(t, tc.expectedStatus, rr.Code)
		})
	}
}

func TestHandleTransitions(t *testing.T) {
	s, svc, _ := newTestServer(t)

	tests := []struct {
		name           string
		method         string
		path           string
		body           interface{}
		setupMocks     func()
		expectedStatus int
	}{
		{
			name:   "approve",
			method: http.MethodPost,
			path:   "/returns/2024/05/001/approve",
			setupMocks: func() {
				svc.EXPECT().Approve(gomock.Any(), "2024/05/001").Return(record("2024/05/001", retur.StatusApproved), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "send from wrong state",
			method: http.MethodPost,
			path:   "/returns/2024/05/001/send",
			setupMocks: func() {
				svc.EXPECT().Send(gomock.Any(), "2024/05/001").Return(retur.Record{},
					&retur.TransitionError{DocumentNumber: "2024/05/001", From: retur.StatusAwaitingApproval, Action: retur.ActionSend})
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:   "destroy preview",
			method: http.MethodGet,
			path:   "/returns/2024/05/001/destroy",
			setupMocks: func() {
				svc.EXPECT().PreviewDestroy(gomock.Any(), "2024/05/001").Return(record("2024/05/001", retur.StatusApproved), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "destroy without confirmation",
			method: http.MethodPost,
			path:   "/returns/2024/05/001/destroy",
			setupMocks: func() {
				svc.EXPECT().PreviewDestroy(gomock.Any(), "2024/05/001").Return(record("2024/05/001", retur.StatusApproved), nil)
			},
			expectedStatus: http.StatusPreconditionRequired,
		},
		{
			name:   "destroy unconfirmed from wrong state",
			method: http.MethodPost,
			path:   "/returns/2024/05/001/destroy",
			body:   map[string]bool{"confirm": false},
			setupMocks: func() {
				svc.EXPECT().PreviewDestroy(gomock.Any(), "2024/05/001").Return(retur.Record{},
					&retur.TransitionError{DocumentNumber: "2024/05/001", From: retur.StatusSent, Action: retur.ActionDestroy})
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:   "get legacy number by query",
			method: http.MethodGet,
			path:   "/returns/by-number?number=RTR%2F0007",
			setupMocks: func() {
				svc.EXPECT().Get(gomock.Any(), "RTR/0007").Return(record("RTR/0007", retur.StatusApproved), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "delete legacy number by query",
			method: http.MethodDelete,
			path:   "/returns/by-number?number=NR-12",
			setupMocks: func() {
				svc.EXPECT().Delete(gomock.Any(), "NR-12").Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "approve legacy number by query",
			method: http.MethodPost,
			path:   "/returns/by-number/approve?number=NR-12",
			setupMocks: func() {
				svc.EXPECT().Approve(gomock.Any(), "NR-12").Return(record("NR-12", retur.StatusApproved), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "query form without number",
			method:         http.MethodGet,
			path:           "/returns/by-number",
			setupMocks:     func() {},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "destroy confirmed",
			method: http.MethodPost,
			path:   "/returns/2024/05/001/destroy",
			body:   map[string]bool{"confirm": true},
			setupMocks: func() {
				svc.EXPECT().Destroy(gomock.Any(), "2024/05/001", true).Return(record("2024/05/001", retur.StatusDestroyed), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "concurrent edit",
			method: http.MethodPost,
			path:   "/returns/2024/05/001/approve",
			setupMocks: func() {
				svc.EXPECT().Approve(gomock.Any(), "2024/05/001").Return(retur.Record{}, retur.ErrConflict)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:   "delete",
			method: http.MethodDelete,
			path:   "/returns/2024/05/001",
			setupMocks: func() {
				svc.EXPECT().Delete(gomock.Any(), "2024/05/001").Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMocks()

			rr := do(t, s, tc.method, tc.path, tc.body)

			assert.Equal(t, tc.expectedStatus, rr.Code)
		})
	}
}

func TestHandleDestroyUnconfirmedReturnsPreview(t *testing.T) {
	s, svc, _ := newTestServer(t)

	svc.EXPECT().PreviewDestroy(gomock.Any(), "2024/05/001").Return(record("2024/05/001", retur.StatusApproved), nil)

	rr := do(t, s, http.MethodPost, "/returns/2024/05/001/destroy", nil)

	require.Equal(t, http.StatusPreconditionRequired, rr.Code)
	var resp struct {
		Error  string         `json:"error"`
		Return recordResponse `json:"return"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, retur.ErrConfirmationRequired.Error(), resp.Error)
	assert.Equal(t, "2024/05/001", resp.Return.DocumentNumber)
	assert.Equal(t, "Pakan Ayam", resp.Return.ItemName)
}

func TestHandleSummaryAndRefresh(t *testing.T) {
	s, svc, _ := newTestServer(t)

	sent := record("2024/05/001", retur.StatusSent)
	snap := snapshotOf(sent, record("2024/05/002", retur.StatusAwaitingApproval))

	t.Run("summary", func(t *testing.T) {
		svc.EXPECT().Load(gomock.Any()).Return(snap, nil)

		rr := do(t, s, http.MethodGet, "/summary", nil)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp summaryResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Total)
		assert.Equal(t, 1, resp.Awaiting)
		assert.Equal(t, 1, resp.Processed)
		require.Len(t, resp.SentByDate, 1)
		assert.Equal(t, []string{"2024/05/001"}, resp.SentByDate[0].Returns)
	})

	t.Run("refresh", func(t *testing.T) {
		svc.EXPECT().Load(gomock.Any()).Return(snap, nil)

		rr := do(t, s, http.MethodPost, "/refresh", nil)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"count":2`)
	})

	t.Run("next number", func(t *testing.T) {
		svc.EXPECT().NextNumber(gomock.Any()).Return("2024/05/003", nil)

		rr := do(t, s, http.MethodGet, "/returns/next-number", nil)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"document_number":"2024/05/003"}`, rr.Body.String())
	})
}

func TestHandleHealth(t *testing.T) {
	s, _, pinger := newTestServer(t)

	pinger.EXPECT().Ping(gomock.Any()).Return(nil)
	rr := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))

	pinger.EXPECT().Ping(gomock.Any()).Return(retur.ErrUnavailable)
	rr = do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
