// Package console renders help-desk state as terminal text. Rendering
// never fails the caller; backend errors arrive here already classified
// and are printed inline.
package console

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/NishantPriyadarshi063/shopify-frontend/internal/model"
	"github.com/NishantPriyadarshi063/shopify-frontend/internal/refund"
	"github.com/NishantPriyadarshi063/shopify-frontend/internal/upload"
)

// Renderer writes the terminal views.
type Renderer struct {
	out io.Writer
}

func New(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Errorf prints an inline error line. Views stay up; nothing here is fatal.
func (r *Renderer) Errorf(format string, args ...interface{}) {
	fmt.Fprintf(r.out, "error: "+format+"\n", args...)
}

// Noticef prints an informational line.
func (r *Renderer) Noticef(format string, args ...interface{}) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

// RequestTable prints the admin list view.
func (r *Renderer) RequestTable(reqs []model.HelpRequest) {
	if len(reqs) == 0 {
		fmt.Fprintln(r.out, "no requests found")
		return
	}
	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tORDER\tCUSTOMER\tCREATED")
	for _, req := range reqs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			req.ID, req.Type, req.Status, req.OrderNumber, req.CustomerEmail, req.CreatedAt)
	}
	tw.Flush()
}

// RequestDetail prints the single-request admin view.
func (r *Renderer) RequestDetail(req *model.HelpRequest) {
	fmt.Fprintf(r.out, "Request %s\n", req.ID)
	fmt.Fprintf(r.out, "  type:     %s\n", req.Type)
	fmt.Fprintf(r.out, "  status:   %s\n", req.Status)
	fmt.Fprintf(r.out, "  order:    %s\n", req.OrderNumber)
	fmt.Fprintf(r.out, "  customer: %s <%s>\n", req.CustomerName, req.CustomerEmail)
	if req.CustomerPhone != nil && *req.CustomerPhone != "" {
		fmt.Fprintf(r.out, "  phone:    %s\n", *req.CustomerPhone)
	}
	if req.Reason != nil && *req.Reason != "" {
		fmt.Fprintf(r.out, "  reason:   %s\n", *req.Reason)
	}
	if req.AdminNotes != nil && *req.AdminNotes != "" {
		fmt.Fprintf(r.out, "  notes:    %s\n", *req.AdminNotes)
	}
	if u := req.AdminOrderURL(); u != "" {
		fmt.Fprintf(r.out, "  platform: %s\n", u)
	}
	fmt.Fprintf(r.out, "  created:  %s\n", req.CreatedAt)
	if len(req.Attachments) > 0 {
		fmt.Fprintf(r.out, "  attachments:\n")
		for _, a := range req.Attachments {
			name := a.ID
			if a.FileName != nil && *a.FileName != "" {
				name = *a.FileName
			}
			fmt.Fprintf(r.out, "    %s  %s\n", name, a.ReadURL)
		}
	}
}

// StatusSummary prints the public status-lookup view.
func (r *Renderer) StatusSummary(s *model.StatusSummary) {
	fmt.Fprintf(r.out, "Reference %s\n", s.Reference)
	fmt.Fprintf(r.out, "  type:    %s\n", s.Type)
	fmt.Fprintf(r.out, "  status:  %s\n", s.Status)
	fmt.Fprintf(r.out, "  order:   %s\n", s.OrderNumber)
	fmt.Fprintf(r.out, "  created: %s\n", s.CreatedAt)
	if s.UpdatedAt != "" {
		fmt.Fprintf(r.out, "  updated: %s\n", s.UpdatedAt)
	}
}

// Message prints one chat line. Attachment-only messages render the file
// name in place of a body.
func (r *Renderer) Message(m model.ChatMessage) {
	body := ""
	if m.Body != nil {
		body = *m.Body
	}
	if body == "" && m.AttachmentFileName != nil {
		body = "[attachment] " + *m.AttachmentFileName
	}
	fmt.Fprintf(r.out, "%s  %-8s  %s\n", m.CreatedAt, m.Sender, body)
}

// ChatTimeline prints the full history in order.
func (r *Renderer) ChatTimeline(msgs []model.ChatMessage) {
	if len(msgs) == 0 {
		fmt.Fprintln(r.out, "no messages yet")
		return
	}
	for _, m := range msgs {
		r.Message(m)
	}
}

// Worksheet prints the refund selection with its suggested total, the
// manual override if any, and the divergence warning.
func (r *Renderer) Worksheet(w *refund.Worksheet, currency string) {
	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tPRICE\tBOUGHT\tREFUND")
	for _, l := range w.Lines() {
		title := l.Item.Title
		if l.Item.VariantTitle != nil && *l.Item.VariantTitle != "" {
			title += " / " + *l.Item.VariantTitle
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", title, l.Item.Price, l.Item.Quantity, l.Quantity)
	}
	tw.Flush()

	fmt.Fprintf(r.out, "suggested total: %s %s\n", w.SuggestedTotal().StringFixed(2), currency)
	if manual, ok := w.ManualAmount(); ok {
		fmt.Fprintf(r.out, "manual amount:   %s %s\n", manual.StringFixed(2), currency)
		if w.Divergent() {
			fmt.Fprintf(r.out, "warning: manual amount differs from the suggested total\n")
		}
	}
}

// UploadResults prints per-file outcomes of an attachment batch.
func (r *Renderer) UploadResults(results []upload.Result) {
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(r.out, "  %s: %v\n", res.Path, res.Err)
			continue
		}
		fmt.Fprintf(r.out, "  %s: uploaded (%s)\n", res.Path, res.ContentType)
	}
}

// ActionMenu prints which admin actions currently apply.
func (r *Renderer) ActionMenu(actions []string) {
	fmt.Fprintf(r.out, "actions: %s\n", strings.Join(actions, ", "))
}
