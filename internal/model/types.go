package model

import "fmt"

// RequestType represents what the customer is asking for
type RequestType string

const (
	TypeCancel   RequestType = "cancel"
	TypeReturn   RequestType = "return"
	TypeRefund   RequestType = "refund"
	TypeExchange RequestType = "exchange"
)

// RequestStatus represents help-request lifecycle status
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusInProgress RequestStatus = "in_progress"
	StatusApproved   RequestStatus = "approved"
	StatusCompleted  RequestStatus = "completed"
	StatusRejected   RequestStatus = "rejected"
)

// Terminal reports whether a status accepts no further transitions.
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// Sender identifies which side of the chat a message came from
type Sender string

const (
	SenderCustomer Sender = "customer"
	SenderAdmin    Sender = "admin"
)

// Attachment is a file reference owned by one help request. ReadURL is
// time-limited and served by blob storage, not the API server.
type Attachment struct {
	ID          string  `json:"id"`
	ReadURL     string  `json:"read_url"`
	FileName    *string `json:"file_name,omitempty"`
	ContentType *string `json:"content_type,omitempty"`
}

// HelpRequest is a customer service case. The backend owns the record;
// clients hold non-authoritative read-through copies.
type HelpRequest struct {
	ID             string        `json:"id"`
	Type           RequestType   `json:"type"`
	Status         RequestStatus `json:"status"`
	CustomerName   string        `json:"customer_name"`
	CustomerEmail  string        `json:"customer_email"`
	CustomerPhone  *string       `json:"customer_phone,omitempty"`
	OrderNumber    string        `json:"order_number"`
	Reason         *string       `json:"reason,omitempty"`
	AdminNotes     *string       `json:"admin_notes,omitempty"`
	ShopifyOrderID *string       `json:"shopify_order_id,omitempty"`
	ShopifyShop    *string       `json:"shopify_shop,omitempty"`
	CreatedAt      string        `json:"created_at"`
	UpdatedAt      string        `json:"updated_at,omitempty"`
	Attachments    []Attachment  `json:"attachments,omitempty"`
}

// AdminOrderURL derives the commerce-platform deep link for a linked order.
// Returns "" until a lookup action has persisted the link.
func (r *HelpRequest) AdminOrderURL() string {
	if r.ShopifyOrderID == nil || r.ShopifyShop == nil {
		return ""
	}
	return fmt.Sprintf("https://%s/admin/orders/%s", *r.ShopifyShop, *r.ShopifyOrderID)
}

// ChatMessage belongs to exactly one help request. Two messages are the
// same message iff their IDs match.
type ChatMessage struct {
	ID                    string  `json:"id"`
	RequestID             string  `json:"request_id"`
	Sender                Sender  `json:"sender"`
	SenderID              *string `json:"sender_id,omitempty"`
	Body                  *string `json:"body,omitempty"`
	AttachmentBlobURL     *string `json:"attachment_blob_url,omitempty"`
	AttachmentFileName    *string `json:"attachment_file_name,omitempty"`
	AttachmentContentType *string `json:"attachment_content_type,omitempty"`
	CreatedAt             string  `json:"created_at"`
}

// StatusSummary is the public status-lookup view of a request.
type StatusSummary struct {
	ID           string        `json:"id"`
	Reference    string        `json:"reference"`
	Type         RequestType   `json:"type"`
	Status       RequestStatus `json:"status"`
	CustomerName string        `json:"customer_name"`
	OrderNumber  string        `json:"order_number"`
	CreatedAt    string        `json:"created_at"`
	UpdatedAt    string        `json:"updated_at,omitempty"`
}

// PlatformLineItem is one purchasable line of a commerce-platform order.
// Price is the platform's decimal string (e.g. "10.00").
type PlatformLineItem struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	VariantTitle *string `json:"variant_title,omitempty"`
	Quantity     int     `json:"quantity"`
	Price        string  `json:"price"`
}

// PlatformOrder is the commerce-platform order a request references.
type PlatformOrder struct {
	OrderID   int64              `json:"order_id"`
	OrderName string             `json:"order_name"`
	Currency  string             `json:"currency"`
	LineItems []PlatformLineItem `json:"line_items"`
	AdminURL  string             `json:"admin_url,omitempty"`
}

// RestockType tells the platform how to handle inventory on refund
type RestockType string

const (
	RestockNone   RestockType = "no_restock"
	RestockReturn RestockType = "return"
	RestockCancel RestockType = "cancel"
)
