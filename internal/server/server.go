//go:generate mockgen -source ./server.go -destination=./mocks/server.go -package=mock_server
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"gitlab.com/pdhero/retur/internal/retur"
	"gitlab.com/pdhero/retur/internal/service"
)

// numberPattern lets a YYYY/MM/NNN document number sit in a single path
// variable despite its slashes.
const numberPattern = "{number:[0-9]{4}/[0-9]{2}/[0-9]+}"

const numberQuery = "{number:.+}"

type Service interface {
	Load(ctx context.Context) (service.Snapshot, error)
	NextNumber(ctx context.Context) (string, error)
	Get(ctx context.Context, number string) (retur.Record, error)
	Create(ctx context.Context, form retur.Form) (retur.Record, error)
	Approve(ctx context.Context, number string) (retur.Record, error)
	PreviewDestroy(ctx context.Context, number string) (retur.Record, error)
	Destroy(ctx context.Context, number string, confirmed bool) (retur.Record, error)
	Send(ctx context.Context, number string) (retur.Record, error)
	Delete(ctx context.Context, number string) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	svc    Service
	health Pinger
	logger *zap.Logger
	loc    *time.Location
	server *http.Server
}

func New(svc Service, health Pinger, logger *zap.Logger, loc *time.Location) *Server {
	if loc == nil {
		loc = time.UTC
	}
	return &Server{
		svc:    svc,
		health: health,
		logger: logger,
		loc:    loc,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("HTTP server shutdown completed")
	return nil
}

func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.requestMiddleware)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/returns", s.handleListReturns).Methods(http.MethodGet)
	router.HandleFunc("/returns", s.handleCreateReturn).Methods(http.MethodPost)
	router.HandleFunc("/returns/next-number", s.handleNextNumber).Methods(http.MethodGet)

	// Every record route is served twice: with the number in the path, and
	// under /returns/by-number with ?number= for stored numbers that do not
	// follow the YYYY/MM/NNN layout.
	numbered := func(suffix, method string, h http.HandlerFunc) {
		router.HandleFunc("/returns/"+numberPattern+suffix, h).Methods(method)
		router.HandleFunc("/returns/by-number"+suffix, h).Methods(method).Queries("number", numberQuery)
	}
	numbered("", http.MethodGet, s.handleGetReturn)
	numbered("", http.MethodDelete, s.handleDeleteReturn)
	numbered("/approve", http.MethodPost, s.handleApprove)
	numbered("/destroy", http.MethodGet, s.handleDestroyPreview)
	numbered("/destroy", http.MethodPost, s.handleDestroy)
	numbered("/send", http.MethodPost, s.handleSend)
	router.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	router.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)

	return router
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps workflow and store errors onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	var verr *retur.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  verr.Error(),
			"fields": verr.Fields,
		})
	case errors.Is(err, retur.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, retur.ErrInvalidTransition),
		errors.Is(err, retur.ErrConflict),
		errors.Is(err, retur.ErrDuplicate):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, retur.ErrConfirmationRequired):
		respondError(w, http.StatusPreconditionRequired, err.Error())
	case errors.Is(err, retur.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "Error: record store is not connected")
	default:
		respondError(w, http.StatusInternalServerError, "Error: "+err.Error())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.health.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "degraded", "connected": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "connected": true})
}

func (s *Server) handleListReturns(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Load(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	resp := listResponse{
		Connected: snap.Connected,
		Total:     snap.Count,
		Warnings:  snap.Warnings,
	}

	records := snap.Records
	if q := r.URL.Query().Get("status"); q != "" {
		if strings.EqualFold(q, "unclassified") {
			records = snap.Partitions.Unclassified
			resp.Status = "unclassified"
		} else {
			status, err := retur.ParseStatus(q)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid value for 'status' parameter")
				return
			}
			records = snap.Partitions.ByStatus(status)
			resp.Status = string(status)
		}
	}
	resp.Returns = toRecordResponses(records)

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNextNumber(w http.ResponseWriter, r *http.Request) {
	number, err := s.svc.NextNumber(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"document_number": number})
}

func (s *Server) handleCreateReturn(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	form, err := s.formFromRequest(req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	rec, err := s.svc.Create(r.Context(), form)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Return " + rec.DocumentNumber + " submitted",
		"return":  toRecordResponse(rec),
	})
}

// formFromRequest parses dates and the unit. Fields that cannot be parsed
// are reported the same way as missing ones.
func (s *Server) formFromRequest(req createRequest) (retur.Form, error) {
	var invalid []string
	form := retur.Form{
		ItemName: req.ItemName,
		Quantity: req.Quantity,
	}

	if req.SubmissionDate != "" {
		d, err := time.ParseInLocation(dateLayout, req.SubmissionDate, s.loc)
		if err != nil {
			invalid = append(invalid, "submission date")
		}
		form.SubmissionDate = d
	}
	if req.ExpiryDate != "" {
		d, err := time.ParseInLocation(dateLayout, req.ExpiryDate, s.loc)
		if err != nil {
			invalid = append(invalid, "expiry date")
		}
		form.ExpiryDate = d
	}
	if req.Unit != "" {
		u, err := retur.ParseUnit(req.Unit)
		if err != nil {
			invalid = append(invalid, "unit")
		}
		form.Unit = u
	}

	form.ReasonOption, form.CustomReason = splitReason(req.Reason, req.CustomReason)

	if len(invalid) > 0 {
		return retur.Form{}, &retur.ValidationError{Fields: invalid}
	}
	return form, nil
}

// splitReason treats any reason outside the presets as custom text.
func splitReason(reason, custom string) (string, string) {
	reason = strings.TrimSpace(reason)
	for _, opt := range retur.ReasonOptions {
		if reason == opt {
			return reason, custom
		}
	}
	if reason == "" {
		return "", ""
	}
	return retur.ReasonCustom, reason
}

func (s *Server) handleGetReturn(w http.ResponseWriter, r *http.Request) {
	number := mux.Vars(r)["number"]
	if number == "" {
		respondError(w, http.StatusBadRequest, "Missing document number")
		return
	}

	rec, err := s.svc.Get(r.Context(), number)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.svc.Approve, "approved")
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.svc.Send, "sent to recipient")
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request, apply func(context.Context, string) (retur.Record, error), verb string) {
	number := mux.Vars(r)["number"]
	if number == "" {
		respondError(w, http.StatusBadRequest, "Missing document number")
		return
	}

	rec, err := apply(r.Context(), number)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Return " + number + " " + verb,
		"return":  toRecordResponse(rec),
	})
}

func (s *Server) handleDestroyPreview(w http.ResponseWriter, r *http.Request) {
	number := mux.Vars(r)["number"]
	rec, err := s.svc.PreviewDestroy(r.Context(), number)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Confirm destruction of return " + number,
		"return":  toRecordResponse(rec),
	})
}

func (s *Server) handleDestroy(w http.ResponseWriter, r *http.Request) {
	number := mux.Vars(r)["number"]

	var req destroyRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	if !req.Confirm {
		rec, err := s.svc.PreviewDestroy(r.Context(), number)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusPreconditionRequired, map[string]interface{}{
			"error":  retur.ErrConfirmationRequired.Error(),
			"return": toRecordResponse(rec),
		})
		return
	}

	rec, err := s.svc.Destroy(r.Context(), number, true)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Return " + number + " destroyed",
		"return":  toRecordResponse(rec),
	})
}

func (s *Server) handleDeleteReturn(w http.ResponseWriter, r *http.Request) {
	number := mux.Vars(r)["number"]
	if err := s.svc.Delete(r.Context(), number); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Return " + number + " deleted",
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Load(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toSummaryResponse(snap))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Load(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Data refreshed",
		"connected": snap.Connected,
		"count":     snap.Count,
		"loaded_at": snap.LoadedAt,
	})
}
