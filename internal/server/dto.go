package server

import (
	"time"

	"gitlab.com/pdhero/retur/internal/retur"
	"gitlab.com/pdhero/retur/internal/service"
)

const dateLayout = "2006-01-02"

type recordResponse struct {
	ID               int64     `json:"id"`
	DocumentNumber   string    `json:"document_number"`
	SubmissionDate   string    `json:"submission_date"`
	ItemName         string    `json:"item_name"`
	Quantity         int       `json:"quantity"`
	Unit             string    `json:"unit"`
	QuantityDisplay  string    `json:"quantity_display"`
	ExpiryDate       string    `json:"expiry_date"`
	Reason           string    `json:"reason"`
	FormReference    string    `json:"form_reference,omitempty"`
	MinutesReference string    `json:"minutes_reference,omitempty"`
	Status           string    `json:"status"`
	StatusSlug       string    `json:"status_slug,omitempty"`
	StatusLabel      string    `json:"status_label"`
	Actions          []string  `json:"actions"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Version          int64     `json:"version"`
}

func toRecordResponse(r retur.Record) recordResponse {
	actions := []string{}
	if r.Status.Valid() {
		for _, a := range retur.Actions(r.Status) {
			actions = append(actions, string(a))
		}
	} else {
		actions = append(actions, string(retur.ActionDelete))
	}

	return recordResponse{
		ID:               r.ID,
		DocumentNumber:   r.DocumentNumber,
		SubmissionDate:   formatDate(r.SubmissionDate),
		ItemName:         r.ItemName,
		Quantity:         r.Quantity,
		Unit:             string(r.Unit),
		QuantityDisplay:  r.QuantityDisplay(),
		ExpiryDate:       formatDate(r.ExpiryDate),
		Reason:           r.Reason,
		FormReference:    r.FormReference,
		MinutesReference: r.MinutesReference,
		Status:           string(r.Status),
		StatusSlug:       r.Status.Slug(),
		StatusLabel:      r.Status.Label(),
		Actions:          actions,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		Version:          r.Version,
	}
}

func toRecordResponses(records []retur.Record) []recordResponse {
	out := make([]recordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, toRecordResponse(r))
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

type listResponse struct {
	Connected bool             `json:"connected"`
	Total     int              `json:"total"`
	Warnings  []string         `json:"warnings,omitempty"`
	Status    string           `json:"status,omitempty"`
	Returns   []recordResponse `json:"returns"`
}

type statusCountResponse struct {
	Status string `json:"status"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
}

type recapResponse struct {
	Key           string `json:"key"`
	Returns       int    `json:"returns"`
	TotalQuantity int    `json:"total_quantity"`
}

type sentBatchResponse struct {
	Date          string   `json:"date"`
	Returns       []string `json:"returns"`
	TotalQuantity int      `json:"total_quantity"`
}

type summaryResponse struct {
	Connected  bool                  `json:"connected"`
	Count      int                   `json:"count"`
	Total      int                   `json:"total"`
	Awaiting   int                   `json:"awaiting"`
	Approved   int                   `json:"approved"`
	Processed  int                   `json:"processed"`
	ByStatus   []statusCountResponse `json:"by_status"`
	ByDate     []recapResponse       `json:"by_date"`
	ByItem     []recapResponse       `json:"by_item"`
	SentByDate []sentBatchResponse   `json:"sent_by_date"`
	Warnings   []string              `json:"warnings,omitempty"`
	LoadedAt   time.Time             `json:"loaded_at"`
}

func toSummaryResponse(snap service.Snapshot) summaryResponse {
	sum := snap.Summary
	resp := summaryResponse{
		Connected:  snap.Connected,
		Count:      snap.Count,
		Total:      sum.Total,
		Awaiting:   sum.Awaiting,
		Approved:   sum.Approved,
		Processed:  sum.Processed,
		ByStatus:   []statusCountResponse{},
		ByDate:     []recapResponse{},
		ByItem:     []recapResponse{},
		SentByDate: []sentBatchResponse{},
		Warnings:   snap.Warnings,
		LoadedAt:   snap.LoadedAt,
	}
	for _, sc := range sum.ByStatus {
		resp.ByStatus = append(resp.ByStatus, statusCountResponse{Status: string(sc.Status), Label: sc.Status.Label(), Count: sc.Count})
	}
	for _, d := range sum.ByDate {
		resp.ByDate = append(resp.ByDate, recapResponse{Key: formatDate(d.Date), Returns: d.Returns, TotalQuantity: d.TotalQuantity})
	}
	for _, it := range sum.ByItem {
		resp.ByItem = append(resp.ByItem, recapResponse{Key: it.ItemName, Returns: it.Returns, TotalQuantity: it.TotalQuantity})
	}
	for _, b := range snap.SentByDate {
		numbers := make([]string, 0, len(b.Records))
		for _, r := range b.Records {
			numbers = append(numbers, r.DocumentNumber)
		}
		resp.SentByDate = append(resp.SentByDate, sentBatchResponse{Date: formatDate(b.Date), Returns: numbers, TotalQuantity: b.TotalQuantity})
	}
	return resp
}

type createRequest struct {
	SubmissionDate string `json:"submission_date"`
	ItemName       string `json:"item_name"`
	Quantity       int    `json:"quantity"`
	Unit           string `json:"unit"`
	ExpiryDate     string `json:"expiry_date"`
	Reason         string `json:"reason"`
	CustomReason   string `json:"custom_reason"`
}

type destroyRequest struct {
	Confirm bool `json:"confirm"`
}
