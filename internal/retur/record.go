package retur

import (
	"fmt"
	"strings"
	"time"
)

type Unit string

const (
	UnitBox   Unit = "DUS"
	UnitPack  Unit = "BKS"
	UnitPail  Unit = "PAIL"
	UnitUnit  Unit = "UNIT"
	UnitPiece Unit = "PCS"
)

var Units = []Unit{UnitBox, UnitPack, UnitPail, UnitUnit, UnitPiece}

var unitAliases = map[string]Unit{
	"box":   UnitBox,
	"pack":  UnitPack,
	"pail":  UnitPail,
	"unit":  UnitUnit,
	"piece": UnitPiece,
}

func (u Unit) Valid() bool {
	for _, v := range Units {
		if u == v {
			return true
		}
	}
	return false
}

// ParseUnit accepts the stored code (DUS, BKS, ...) or its English name.
func ParseUnit(s string) (Unit, error) {
	v := strings.TrimSpace(s)
	if u := Unit(strings.ToUpper(v)); u.Valid() {
		return u, nil
	}
	if u, ok := unitAliases[strings.ToLower(v)]; ok {
		return u, nil
	}
	return "", fmt.Errorf("unknown unit: %q", s)
}

// Preset reasons offered by the form. ReasonCustom selects free text.
const (
	ReasonExpired       = "Kedaluwarsa"
	ReasonBrokenPlastic = "Plastik Dalam Pecah"
	ReasonDampClumped   = "Lembab dan Menggumpal"
	ReasonCustom        = "Isi sendiri"
)

var ReasonOptions = []string{ReasonExpired, ReasonBrokenPlastic, ReasonDampClumped, ReasonCustom}

// Record is one return request.
type Record struct {
	ID               int64
	DocumentNumber   string
	SubmissionDate   time.Time
	ItemName         string
	Quantity         int
	Unit             Unit
	ExpiryDate       time.Time
	Reason           string
	FormReference    string
	MinutesReference string
	Status           Status
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Version          int64
}

func (r Record) QuantityDisplay() string {
	if r.Unit == "" {
		return fmt.Sprintf("%d", r.Quantity)
	}
	return fmt.Sprintf("%d %s", r.Quantity, r.Unit)
}

// Form carries the user-entered fields of a new return request.
type Form struct {
	SubmissionDate time.Time
	ItemName       string
	Quantity       int
	Unit           Unit
	ExpiryDate     time.Time
	ReasonOption   string
	CustomReason   string
}

// Reason resolves the preset or custom text chosen on the form.
func (f Form) Reason() string {
	if f.ReasonOption == ReasonCustom {
		return strings.TrimSpace(f.CustomReason)
	}
	return strings.TrimSpace(f.ReasonOption)
}

func (f Form) Validate() error {
	var fields []string
	if strings.TrimSpace(f.ItemName) == "" {
		fields = append(fields, "item name")
	}
	if f.Quantity < 1 {
		fields = append(fields, "quantity")
	}
	if f.Unit != "" && !f.Unit.Valid() {
		fields = append(fields, "unit")
	}
	if f.ExpiryDate.IsZero() {
		fields = append(fields, "expiry date")
	}
	if f.Reason() == "" {
		fields = append(fields, "reason")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// NewRecord builds a record awaiting approval. created and updated timestamps
// are both set to now.
func NewRecord(f Form, number string, now time.Time) (Record, error) {
	if err := f.Validate(); err != nil {
		return Record{}, err
	}

	unit := f.Unit
	if unit == "" {
		unit = UnitBox
	}
	submitted := f.SubmissionDate
	if submitted.IsZero() {
		submitted = now
	}

	return Record{
		DocumentNumber: number,
		SubmissionDate: DateOf(submitted),
		ItemName:       strings.TrimSpace(f.ItemName),
		Quantity:       f.Quantity,
		Unit:           unit,
		ExpiryDate:     DateOf(f.ExpiryDate),
		Reason:         f.Reason(),
		Status:         StatusAwaitingApproval,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// DateOf truncates t to its calendar day, keeping the day as seen in t's
// location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const dateDisplayLayout = "02 Jan 2006"

func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "Tanggal tidak tersedia"
	}
	return t.Format(dateDisplayLayout)
}
