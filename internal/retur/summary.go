package retur

import (
	"sort"
	"time"
)

type StatusCount struct {
	Status Status
	Count  int
}

type DailyRecap struct {
	Date          time.Time
	Returns       int
	TotalQuantity int
}

type ItemRecap struct {
	ItemName      string
	Returns       int
	TotalQuantity int
}

// SentBatch is the set of returns handed to the recipient on one day.
type SentBatch struct {
	Date          time.Time
	Records       []Record
	TotalQuantity int
}

type Summary struct {
	Total     int
	Awaiting  int
	Approved  int
	Processed int
	ByStatus  []StatusCount
	ByDate    []DailyRecap
	ByItem    []ItemRecap
}

// Summarize computes the counters and the two aggregate breakdowns shown on
// the summary view. Processed counts destroyed and sent returns together.
func Summarize(records []Record) Summary {
	s := Summary{Total: len(records)}

	counts := make(map[Status]int)
	days := make(map[time.Time]*DailyRecap)
	items := make(map[string]*ItemRecap)

	for _, r := range records {
		counts[r.Status]++

		day := DateOf(r.SubmissionDate)
		d, ok := days[day]
		if !ok {
			d = &DailyRecap{Date: day}
			days[day] = d
		}
		d.Returns++
		d.TotalQuantity += r.Quantity

		it, ok := items[r.ItemName]
		if !ok {
			it = &ItemRecap{ItemName: r.ItemName}
			items[r.ItemName] = it
		}
		it.Returns++
		it.TotalQuantity += r.Quantity
	}

	s.Awaiting = counts[StatusAwaitingApproval]
	s.Approved = counts[StatusApproved]
	s.Processed = counts[StatusDestroyed] + counts[StatusSent]

	for st, n := range counts {
		s.ByStatus = append(s.ByStatus, StatusCount{Status: st, Count: n})
	}
	sort.Slice(s.ByStatus, func(i, j int) bool {
		if s.ByStatus[i].Count != s.ByStatus[j].Count {
			return s.ByStatus[i].Count > s.ByStatus[j].Count
		}
		return statusOrder(s.ByStatus[i].Status) < statusOrder(s.ByStatus[j].Status)
	})

	for _, d := range days {
		s.ByDate = append(s.ByDate, *d)
	}
	sort.Slice(s.ByDate, func(i, j int) bool { return s.ByDate[i].Date.Before(s.ByDate[j].Date) })

	for _, it := range items {
		s.ByItem = append(s.ByItem, *it)
	}
	sort.Slice(s.ByItem, func(i, j int) bool { return s.ByItem[i].ItemName < s.ByItem[j].ItemName })

	return s
}

// statusOrder places unknown statuses after the workflow states.
func statusOrder(s Status) int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return len(Statuses)
}

// Partitions groups records for the status tabs. Records whose stored status
// is not a workflow state land in Unclassified.
type Partitions struct {
	Awaiting     []Record
	Approved     []Record
	Destroyed    []Record
	Sent         []Record
	Unclassified []Record
}

func Partition(records []Record) Partitions {
	var p Partitions
	for _, r := range records {
		switch r.Status {
		case StatusAwaitingApproval:
			p.Awaiting = append(p.Awaiting, r)
		case StatusApproved:
			p.Approved = append(p.Approved, r)
		case StatusDestroyed:
			p.Destroyed = append(p.Destroyed, r)
		case StatusSent:
			p.Sent = append(p.Sent, r)
		default:
			p.Unclassified = append(p.Unclassified, r)
		}
	}
	return p
}

func (p Partitions) ByStatus(s Status) []Record {
	switch s {
	case StatusAwaitingApproval:
		return p.Awaiting
	case StatusApproved:
		return p.Approved
	case StatusDestroyed:
		return p.Destroyed
	case StatusSent:
		return p.Sent
	}
	return p.Unclassified
}

// GroupSent groups sent returns by the day they reached the Sent state. Sent
// is terminal, so the last-updated timestamp is the sending time. loc selects
// the calendar used to cut days; nil means UTC.
func GroupSent(records []Record, loc *time.Location) []SentBatch {
	if loc == nil {
		loc = time.UTC
	}

	byDay := make(map[time.Time]*SentBatch)
	for _, r := range records {
		if r.Status != StatusSent {
			continue
		}
		day := DateOf(r.UpdatedAt.In(loc))
		b, ok := byDay[day]
		if !ok {
			b = &SentBatch{Date: day}
			byDay[day] = b
		}
		b.Records = append(b.Records, r)
		b.TotalQuantity += r.Quantity
	}

	batches := make([]SentBatch, 0, len(byDay))
	for _, b := range byDay {
		batches = append(batches, *b)
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].Date.After(batches[j].Date) })
	return batches
}
