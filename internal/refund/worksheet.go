// Package refund implements the line-item refund worksheet an admin fills
// in before submitting a refund to the commerce platform. All money math is
// done on decimals; float64 appears only at the wire boundary.
package refund

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NishantPriyadarshi063/shopify-frontend/internal/client"
	"github.com/NishantPriyadarshi063/shopify-frontend/internal/model"

	"github.com/shopspring/decimal"
)

// DivergenceTolerance is how far a manual amount may drift from the
// suggested total before the worksheet flags it.
var DivergenceTolerance = decimal.NewFromFloat(0.01)

var (
	ErrNothingSelected = errors.New("select at least one item to refund")
	ErrUnknownLineItem = errors.New("unknown line item")
)

// Line is one order line with the quantity chosen for refund.
type Line struct {
	Item     model.PlatformLineItem
	Quantity int

	price decimal.Decimal
}

// Worksheet accumulates an admin's refund selection against a platform
// order: per-line quantities, restock mode, an optional note and an
// optional manual amount overriding the suggested total.
type Worksheet struct {
	lines   []Line
	index   map[int64]int
	restock model.RestockType
	note    string

	manual    decimal.Decimal
	hasManual bool
}

// NewWorksheet builds a worksheet over the order's line items with all
// quantities at zero. Lines whose price does not parse as a decimal are
// rejected rather than silently priced at zero.
func NewWorksheet(order *model.PlatformOrder) (*Worksheet, error) {
	w := &Worksheet{
		index:   make(map[int64]int, len(order.LineItems)),
		restock: model.RestockNone,
	}
	for _, it := range order.LineItems {
		price, err := decimal.NewFromString(it.Price)
		if err != nil {
			return nil, fmt.Errorf("line item %d has unparseable price %q: %w", it.ID, it.Price, err)
		}
		w.index[it.ID] = len(w.lines)
		w.lines = append(w.lines, Line{Item: it, price: price})
	}
	return w, nil
}

// Lines returns the current selection in order appearance order.
func (w *Worksheet) Lines() []Line {
	out := make([]Line, len(w.lines))
	copy(out, w.lines)
	return out
}

// SetQuantity sets the refund quantity for a line item, clamped to the
// range [0, purchased quantity].
func (w *Worksheet) SetQuantity(lineItemID int64, qty int) error {
	i, ok := w.index[lineItemID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownLineItem, lineItemID)
	}
	if qty < 0 {
		qty = 0
	}
	if max := w.lines[i].Item.Quantity; qty > max {
		qty = max
	}
	w.lines[i].Quantity = qty
	return nil
}

// SetRestockType selects how the platform restocks refunded inventory.
func (w *Worksheet) SetRestockType(rt model.RestockType) {
	w.restock = rt
}

// RestockType returns the currently selected restock mode.
func (w *Worksheet) RestockType() model.RestockType { return w.restock }

// SetNote attaches a free-text note to the refund.
func (w *Worksheet) SetNote(note string) { w.note = strings.TrimSpace(note) }

// SuggestedTotal is the sum of price times selected quantity over all
// lines, at two decimal places.
func (w *Worksheet) SuggestedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range w.lines {
		if l.Quantity == 0 {
			continue
		}
		total = total.Add(l.price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total.Round(2)
}

// SetManualAmount overrides the suggested total. An empty string clears
// the override; anything else must parse as a decimal.
func (w *Worksheet) SetManualAmount(amount string) error {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		w.hasManual = false
		w.manual = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return fmt.Errorf("amount %q is not a number: %w", amount, err)
	}
	w.manual = d
	w.hasManual = true
	return nil
}

// ManualAmount returns the override and whether one is set.
func (w *Worksheet) ManualAmount() (decimal.Decimal, bool) {
	return w.manual, w.hasManual
}

// Divergent reports whether a manual amount is set and differs from the
// suggested total by more than the tolerance. Callers surface this as a
// warning; it never blocks submission.
func (w *Worksheet) Divergent() bool {
	if !w.hasManual {
		return false
	}
	return w.manual.Sub(w.SuggestedTotal()).Abs().GreaterThan(DivergenceTolerance)
}

// Submittable reports whether at least one line has a nonzero quantity.
func (w *Worksheet) Submittable() bool {
	for _, l := range w.lines {
		if l.Quantity > 0 {
			return true
		}
	}
	return false
}

// Build assembles the wire submission: only lines with a nonzero quantity
// are included, and the manual amount is carried only when it is set and
// positive.
func (w *Worksheet) Build() (client.RefundSubmission, error) {
	sub := client.RefundSubmission{RestockType: w.restock}
	for _, l := range w.lines {
		if l.Quantity == 0 {
			continue
		}
		sub.RefundLineItems = append(sub.RefundLineItems, client.RefundLineItemInput{
			LineItemID: l.Item.ID,
			Quantity:   l.Quantity,
		})
	}
	if len(sub.RefundLineItems) == 0 {
		return client.RefundSubmission{}, ErrNothingSelected
	}
	if w.note != "" {
		note := w.note
		sub.Note = &note
	}
	if w.hasManual && w.manual.IsPositive() {
		amount, _ := w.manual.Round(2).Float64()
		sub.RefundAmount = &amount
	}
	return sub, nil
}
