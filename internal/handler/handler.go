//go:generate mockgen -source ./handler.go -destination=./mocks/handler.go -package=mock_handler
package handler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gitlab.com/pdhero/retur/internal/retur"
	"gitlab.com/pdhero/retur/internal/service"
)

type Service interface {
	Load(ctx context.Context) (service.Snapshot, error)
	Snapshot() service.Snapshot
	NextNumber(ctx context.Context) (string, error)
	Get(ctx context.Context, number string) (retur.Record, error)
	Create(ctx context.Context, form retur.Form) (retur.Record, error)
	Approve(ctx context.Context, number string) (retur.Record, error)
	PreviewDestroy(ctx context.Context, number string) (retur.Record, error)
	Destroy(ctx context.Context, number string, confirmed bool) (retur.Record, error)
	Send(ctx context.Context, number string) (retur.Record, error)
	Delete(ctx context.Context, number string) error
}

// Session is the per-run UI state. Nothing in it is persisted.
type Session struct {
	// Expanded is the record last opened with show.
	Expanded string
	// PendingDestroy is the record waiting for confirm or cancel.
	PendingDestroy string
	// Filter is the status tab selected by the last list command.
	Filter string
}

type Handler struct {
	svc     Service
	in      *bufio.Scanner
	out     io.Writer
	loc     *time.Location
	pause   time.Duration
	sleep   func(time.Duration)
	timeNow func() time.Time
	session Session
}

func New(svc Service, in io.Reader, out io.Writer, loc *time.Location, pause time.Duration) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		svc:     svc,
		in:      bufio.NewScanner(in),
		out:     out,
		loc:     loc,
		pause:   pause,
		sleep:   time.Sleep,
		timeNow: time.Now,
	}
}

func (h *Handler) Session() Session {
	return h.session
}

func (h *Handler) printf(format string, args ...interface{}) {
	fmt.Fprintf(h.out, format, args...)
}

func (h *Handler) println(args ...interface{}) {
	fmt.Fprintln(h.out, args...)
}

// Run reads commands until exit, end of input or ctx cancellation.
func (h *Handler) Run(ctx context.Context) error {
	h.HandleRefresh(ctx)
	h.HandleHelp()

	for {
		if ctx.Err() != nil {
			return nil
		}
		h.printf("> ")
		if !h.in.Scan() {
			return h.in.Err()
		}
		if exit := h.Execute(ctx, h.in.Text()); exit {
			return nil
		}
	}
}

// Execute runs one command line and reports whether the user asked to exit.
func (h *Handler) Execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	if h.session.PendingDestroy != "" && cmd != "confirm" && cmd != "cancel" {
		h.println("Destroy of " + h.session.PendingDestroy + " cancelled")
		h.session.PendingDestroy = ""
	}

	switch cmd {
	case "help":
		h.HandleHelp()
	case "list":
		h.HandleList(ctx, args)
	case "show":
		h.HandleShow(ctx, args)
	case "new":
		h.HandleNew(ctx)
	case "approve":
		h.HandleApprove(ctx, args)
	case "destroy":
		h.HandleDestroy(ctx, args)
	case "confirm":
		h.HandleConfirm(ctx)
	case "cancel":
		h.HandleCancel()
	case "send":
		h.HandleSend(ctx, args)
	case "delete":
		h.HandleDelete(ctx, args)
	case "summary":
		h.HandleSummary(ctx)
	case "refresh":
		h.HandleRefresh(ctx)
	case "exit", "quit":
		h.println("Bye")
		return true
	default:
		h.println("Unknown command. Type 'help' for usage")
	}
	return false
}

func (h *Handler) HandleHelp() {
	h.println(`Available commands:
	list [awaiting|approved|destroyed|sent|unclassified] - List returns
	show <number> - Show one return and its actions
	new - Submit a new return request
	approve <number> - Approve a return awaiting approval
	destroy <number> - Destroy an approved return (asks for confirmation)
	confirm | cancel - Answer a pending destroy
	send <number> - Mark a destroyed return as sent to the recipient
	delete <number> - Delete a return in any status
	summary - Status counters, daily and item recaps
	refresh - Reload all data
	exit - Exit program`)
}

func (h *Handler) HandleRefresh(ctx context.Context) {
	snap, err := h.svc.Load(ctx)
	if err != nil {
		h.println("Error:", err)
		return
	}
	h.renderBanner(snap)
}

func (h *Handler) HandleList(ctx context.Context, args []string) {
	if len(args) > 1 {
		h.println("Usage: list [awaiting|approved|destroyed|sent|unclassified]")
		return
	}

	filter := ""
	if len(args) == 1 {
		filter = strings.ToLower(args[0])
		if filter != "unclassified" {
			if _, err := retur.ParseStatus(filter); err != nil {
				h.println("Unknown status. Use awaiting, approved, destroyed, sent or unclassified")
				return
			}
		}
	}
	h.session.Filter = filter

	snap, err := h.svc.Load(ctx)
	if err != nil {
		h.println("Error:", err)
		return
	}
	h.renderList(snap, filter)
}

func (h *Handler) HandleShow(ctx context.Context, args []string) {
	if len(args) != 1 {
		h.println("Usage: show <number>")
		return
	}

	rec, err := h.svc.Get(ctx, args[0])
	if err != nil {
		h.printError(err)
		return
	}
	h.session.Expanded = rec.DocumentNumber
	h.renderRecord(rec)
}

func (h *Handler) HandleApprove(ctx context.Context, args []string) {
	if len(args) != 1 {
		h.println("Usage: approve <number>")
		return
	}
	rec, err := h.svc.Approve(ctx, args[0])
	if err != nil {
		h.printError(err)
		return
	}
	h.afterMutation("Return " + rec.DocumentNumber + " approved")
}

func (h *Handler) HandleDestroy(ctx context.Context, args []string) {
	if len(args) != 1 {
		h.println("Usage: destroy <number>")
		return
	}

	rec, err := h.svc.PreviewDestroy(ctx, args[0])
	if err != nil {
		h.printError(err)
		return
	}

	h.println("About to destroy:")
	h.renderRecord(rec)
	h.println("Type 'confirm' to destroy or 'cancel' to keep it")
	h.session.PendingDestroy = rec.DocumentNumber
}

func (h *Handler) HandleConfirm(ctx context.Context) {
	number := h.session.PendingDestroy
	if number == "" {
		h.println("Nothing to confirm")
		return
	}
	h.session.PendingDestroy = ""

	rec, err := h.svc.Destroy(ctx, number, true)
	if err != nil {
		h.printError(err)
		return
	}
	h.afterMutation("Return " + rec.DocumentNumber + " destroyed")
}

func (h *Handler) HandleCancel() {
	if h.session.PendingDestroy == "" {
		h.println("Nothing to cancel")
		return
	}
	h.println("Destroy of " + h.session.PendingDestroy + " cancelled")
	h.session.PendingDestroy = ""
}

func (h *Handler) HandleSend(ctx context.Context, args []string) {
	if len(args) != 1 {
		h.println("Usage: send <number>")
		return
	}
	rec, err := h.svc.Send(ctx, args[0])
	if err != nil {
		h.printError(err)
		return
	}
	h.afterMutation("Return " + rec.DocumentNumber + " sent to recipient")
}

func (h *Handler) HandleDelete(ctx context.Context, args []string) {
	if len(args) != 1 {
		h.println("Usage: delete <number>")
		return
	}
	if err := h.svc.Delete(ctx, args[0]); err != nil {
		h.printError(err)
		return
	}
	if h.session.Expanded == args[0] {
		h.session.Expanded = ""
	}
	h.afterMutation("Return " + args[0] + " deleted")
}

func (h *Handler) HandleSummary(ctx context.Context) {
	snap, err := h.svc.Load(ctx)
	if err != nil {
		h.println("Error:", err)
		return
	}
	h.renderSummary(snap)
}

// HandleNew prompts for every form field, previewing the number the return
// will get.
func (h *Handler) HandleNew(ctx context.Context) {
	if next, err := h.svc.NextNumber(ctx); err == nil {
		h.println("Document number: " + next)
	} else {
		h.println("Document number: (unavailable)")
	}

	var invalid []string
	form := retur.Form{}

	if v, ok := h.prompt("Submission date [YYYY-MM-DD, empty for today]: "); !ok {
		return
	} else if v != "" {
		d, err := time.ParseInLocation("2006-01-02", v, h.loc)
		if err != nil {
			invalid = append(invalid, "submission date")
		}
		form.SubmissionDate = d
	} else {
		form.SubmissionDate = h.timeNow().In(h.loc)
	}

	v, ok := h.prompt("Item name: ")
	if !ok {
		return
	}
	form.ItemName = v

	if v, ok = h.prompt("Quantity: "); !ok {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		form.Quantity = n
	}

	if v, ok = h.prompt("Unit [DUS/BKS/PAIL/UNIT/PCS, empty for DUS]: "); !ok {
		return
	}
	if v != "" {
		u, err := retur.ParseUnit(v)
		if err != nil {
			invalid = append(invalid, "unit")
		}
		form.Unit = u
	}

	if v, ok = h.prompt("Expiry date [YYYY-MM-DD]: "); !ok {
		return
	}
	if v != "" {
		d, err := time.ParseInLocation("2006-01-02", v, h.loc)
		if err != nil {
			invalid = append(invalid, "expiry date")
		}
		form.ExpiryDate = d
	}

	for i, opt := range retur.ReasonOptions {
		h.printf("  %d) %s\n", i+1, opt)
	}
	if v, ok = h.prompt("Reason [1-4]: "); !ok {
		return
	}
	if i, err := strconv.Atoi(v); err == nil && i >= 1 && i <= len(retur.ReasonOptions) {
		form.ReasonOption = retur.ReasonOptions[i-1]
	}
	if form.ReasonOption == retur.ReasonCustom {
		if v, ok = h.prompt("Custom reason: "); !ok {
			return
		}
		form.CustomReason = v
	}

	if len(invalid) > 0 {
		h.printError(&retur.ValidationError{Fields: invalid})
		return
	}

	rec, err := h.svc.Create(ctx, form)
	if err != nil {
		h.printError(err)
		return
	}
	h.afterMutation("Return " + rec.DocumentNumber + " submitted")
}

func (h *Handler) prompt(label string) (string, bool) {
	h.printf("%s", label)
	if !h.in.Scan() {
		h.println()
		h.println("Input closed, form discarded")
		return "", false
	}
	return strings.TrimSpace(h.in.Text()), true
}

// afterMutation keeps the success message on screen for the configured pause
// and then redraws the list from the freshly reloaded snapshot.
func (h *Handler) afterMutation(message string) {
	h.println(message)
	if h.pause > 0 {
		h.sleep(h.pause)
	}
	snap := h.svc.Snapshot()
	h.renderBanner(snap)
	h.renderList(snap, h.session.Filter)
}

func (h *Handler) printError(err error) {
	var verr *retur.ValidationError
	switch {
	case errors.As(err, &verr):
		h.println("Please fill in: " + strings.Join(verr.Fields, ", "))
	case errors.Is(err, retur.ErrUnavailable):
		h.println("Error: database not connected, nothing was saved")
	case errors.Is(err, retur.ErrConflict):
		h.println("Error: the return was changed elsewhere, run 'refresh' and try again")
	default:
		h.println("Error:", err)
	}
}
