package retur

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is the calendar year-month that scopes document-number sequencing.
type Period struct {
	Year  int
	Month time.Month
}

func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// Prefix renders the period as it appears in a document number, e.g. 2024/05.
func (p Period) Prefix() string {
	return fmt.Sprintf("%04d/%02d", p.Year, int(p.Month))
}

func (p Period) String() string {
	return p.Prefix()
}

// ParseDocumentNumber splits YYYY/MM/NNN into its period and sequence.
func ParseDocumentNumber(number string) (Period, int, error) {
	parts := strings.Split(number, "/")
	if len(parts) != 3 {
		return Period{}, 0, fmt.Errorf("document number %q: want 3 segments, got %d", number, len(parts))
	}

	year, err := parseDigits(parts[0])
	if err != nil {
		return Period{}, 0, fmt.Errorf("document number %q: year: %w", number, err)
	}
	month, err := parseDigits(parts[1])
	if err != nil || month < 1 || month > 12 {
		return Period{}, 0, fmt.Errorf("document number %q: bad month", number)
	}
	seq, err := parseDigits(parts[2])
	if err != nil {
		return Period{}, 0, fmt.Errorf("document number %q: sequence: %w", number, err)
	}

	return Period{Year: year, Month: time.Month(month)}, seq, nil
}

func parseDigits(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty segment")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-numeric segment %q", s)
		}
	}
	return strconv.Atoi(s)
}

// NextDocumentNumber returns the next unused number in the period of now.
// Numbers from other periods and malformed numbers are ignored, so the result
// is never an error; an empty period starts at 001.
func NextDocumentNumber(now time.Time, existing []string) string {
	period := PeriodOf(now)

	last := 0
	for _, number := range existing {
		p, seq, err := ParseDocumentNumber(number)
		if err != nil || p != period {
			continue
		}
		if seq > last {
			last = seq
		}
	}

	return FormatDocumentNumber(period, last+1)
}

func FormatDocumentNumber(p Period, seq int) string {
	return fmt.Sprintf("%s/%03d", p.Prefix(), seq)
}
