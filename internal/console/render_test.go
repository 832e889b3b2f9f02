package console

import (
	"bytes"
	"testing"

	"github.com/NishantPriyadarshi063/shopify-frontend/internal/model"
	"github.com/NishantPriyadarshi063/shopify-frontend/internal/refund"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestDetail(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	reason := "wrong size"
	shop := "shop.example"
	orderID := "1001"
	r.RequestDetail(&model.HelpRequest{
		ID:             "hr-1",
		Type:           model.TypeReturn,
		Status:         model.StatusPending,
		CustomerName:   "Ada",
		CustomerEmail:  "ada@example.com",
		OrderNumber:    "1001",
		Reason:         &reason,
		ShopifyShop:    &shop,
		ShopifyOrderID: &orderID,
		CreatedAt:      "2026-08-30T10:00:00Z",
	})

	out := buf.String()
	assert.Contains(t, out, "Request hr-1")
	assert.Contains(t, out, "wrong size")
	assert.Contains(t, out, "https://shop.example/admin/orders/1001")
}

func TestChatTimelineRendersAttachmentOnlyMessages(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	body := "hello"
	file := "receipt.png"
	r.ChatTimeline([]model.ChatMessage{
		{ID: "m1", Sender: model.SenderCustomer, Body: &body, CreatedAt: "t1"},
		{ID: "m2", Sender: model.SenderAdmin, AttachmentFileName: &file, CreatedAt: "t2"},
	})

	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "[attachment] receipt.png")
}

func TestWorksheetShowsDivergenceWarning(t *testing.T) {
	w, err := refund.NewWorksheet(&model.PlatformOrder{
		Currency:  "USD",
		LineItems: []model.PlatformLineItem{{ID: 11, Title: "Mug", Quantity: 2, Price: "10.00"}},
	})
	require.NoError(t, err)
	require.NoError(t, w.SetQuantity(11, 2))
	require.NoError(t, w.SetManualAmount("30.00"))

	var buf bytes.Buffer
	New(&buf).Worksheet(w, "USD")

	out := buf.String()
	assert.Contains(t, out, "suggested total: 20.00 USD")
	assert.Contains(t, out, "manual amount:   30.00 USD")
	assert.Contains(t, out, "warning: manual amount differs")
}

func TestEmptyViews(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	r.RequestTable(nil)
	r.ChatTimeline(nil)

	assert.Contains(t, buf.String(), "no requests found")
	assert.Contains(t, buf.String(), "no messages yet")
}
