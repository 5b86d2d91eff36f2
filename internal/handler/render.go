package handler

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"gitlab.com/pdhero/retur/internal/retur"
	"gitlab.com/pdhero/retur/internal/service"
)

func (h *Handler) renderBanner(snap service.Snapshot) {
	if snap.Connected {
		h.printf("Database: connected | Total data: %d\n", snap.Count)
	} else {
		h.println("Database: NOT connected, showing no data")
	}
	for _, w := range snap.Warnings {
		h.println("Warning: " + w)
	}
}

func (h *Handler) renderList(snap service.Snapshot, filter string) {
	type tab struct {
		title   string
		records []retur.Record
	}

	var tabs []tab
	switch filter {
	case "":
		for _, st := range retur.Statuses {
			tabs = append(tabs, tab{title: string(st), records: snap.Partitions.ByStatus(st)})
		}
		if len(snap.Partitions.Unclassified) > 0 {
			tabs = append(tabs, tab{title: "Unclassified", records: snap.Partitions.Unclassified})
		}
	case "unclassified":
		tabs = append(tabs, tab{title: "Unclassified", records: snap.Partitions.Unclassified})
	default:
		st, _ := retur.ParseStatus(filter)
		tabs = append(tabs, tab{title: string(st), records: snap.Partitions.ByStatus(st)})
	}

	for _, t := range tabs {
		h.printf("== %s (%d) ==\n", t.title, len(t.records))
		if len(t.records) == 0 {
			h.println("  (none)")
			continue
		}
		tw := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
		for _, r := range t.records {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t[%s]\n",
				r.DocumentNumber,
				retur.FormatDate(r.SubmissionDate),
				r.ItemName,
				r.QuantityDisplay(),
				r.Reason,
				actionList(r.Status),
			)
		}
		tw.Flush()
	}
}

func (h *Handler) renderRecord(r retur.Record) {
	tw := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "No. Nota Retur:\t%s\n", r.DocumentNumber)
	fmt.Fprintf(tw, "Submitted:\t%s\n", retur.FormatDate(r.SubmissionDate))
	fmt.Fprintf(tw, "Item:\t%s\n", r.ItemName)
	fmt.Fprintf(tw, "Quantity:\t%s\n", r.QuantityDisplay())
	fmt.Fprintf(tw, "Expiry date:\t%s\n", retur.FormatDate(r.ExpiryDate))
	fmt.Fprintf(tw, "Reason:\t%s\n", r.Reason)
	if r.FormReference != "" {
		fmt.Fprintf(tw, "Return form:\t%s\n", r.FormReference)
	}
	if r.MinutesReference != "" {
		fmt.Fprintf(tw, "Minutes:\t%s\n", r.MinutesReference)
	}
	fmt.Fprintf(tw, "Status:\t%s\n", r.Status)
	fmt.Fprintf(tw, "Last updated:\t%s\n", r.UpdatedAt.In(h.loc).Format("02 Jan 2006 15:04"))
	fmt.Fprintf(tw, "Actions:\t%s\n", actionList(r.Status))
	tw.Flush()
}

func (h *Handler) renderSummary(snap service.Snapshot) {
	h.renderBanner(snap)
	sum := snap.Summary
	h.printf("Total: %d | Awaiting: %d | Approved: %d | Processed: %d\n",
		sum.Total, sum.Awaiting, sum.Approved, sum.Processed)

	h.println("-- Status --")
	tw := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	for _, sc := range sum.ByStatus {
		fmt.Fprintf(tw, "  %s\t%d\n", sc.Status, sc.Count)
	}
	tw.Flush()

	h.println("-- Per day --")
	tw = tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	for _, d := range sum.ByDate {
		fmt.Fprintf(tw, "  %s\t%d returns\t%d items\n", retur.FormatDate(d.Date), d.Returns, d.TotalQuantity)
	}
	tw.Flush()

	h.println("-- Per item --")
	tw = tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	for _, it := range sum.ByItem {
		fmt.Fprintf(tw, "  %s\t%d returns\t%d items\n", it.ItemName, it.Returns, it.TotalQuantity)
	}
	tw.Flush()

	h.println("-- Sent to recipient --")
	for _, b := range snap.SentByDate {
		numbers := make([]string, 0, len(b.Records))
		for _, r := range b.Records {
			numbers = append(numbers, r.DocumentNumber)
		}
		h.printf("  %s: %d returns, %d items (%s)\n",
			retur.FormatDate(b.Date), len(b.Records), b.TotalQuantity, strings.Join(numbers, ", "))
	}
}

func actionList(s retur.Status) string {
	if !s.Valid() {
		return string(retur.ActionDelete)
	}
	actions := retur.Actions(s)
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}
