package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/NishantPriyadarshi063/shopify-frontend/internal/model"
	"github.com/NishantPriyadarshi063/shopify-frontend/internal/schema"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const maxResponseBytes = 4 << 20

// Client is the typed transport for all backend calls. It holds no state
// beyond its configuration; credentials are passed per call.
type Client struct {
	baseURL  string
	http     *http.Client
	log      *zap.Logger
	validate *schema.Validator
}

// New creates a client against the given API base URL.
func New(baseURL string, log *zap.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      log,
		validate: schema.NewValidator(responseSchemas, 32),
	}
}

// SetTimeout overrides the per-request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.http.Timeout = d
}

// CheckOrderResult reports whether an order already has an open request.
type CheckOrderResult struct {
	OrderNumber    string `json:"order_number"`
	HasOpenRequest bool   `json:"has_open_request"`
}

// CheckOrder asks the backend whether orderNumber already has an open
// request. This is a pre-submit courtesy only; the backend re-checks on
// create and remains authoritative.
func (c *Client) CheckOrder(ctx context.Context, orderNumber string) (*CheckOrderResult, error) {
	q := url.Values{"order_number": {orderNumber}}
	var out CheckOrderResult
	err := c.call(ctx, callOpts{
		method: http.MethodGet,
		path:   "/api/help-requests/check",
		query:  q,
		schema: "check_order",
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateHelpRequestInput is the body for POST /api/help-requests.
type CreateHelpRequestInput struct {
	Type          model.RequestType `json:"type"`
	CustomerEmail string            `json:"customer_email"`
	CustomerName  string            `json:"customer_name"`
	OrderNumber   string            `json:"order_number"`
	CustomerPhone *string           `json:"customer_phone,omitempty"`
	Reason        *string           `json:"reason,omitempty"`
}

// CreateHelpRequest submits a new case. A duplicate open request for the
// same order number yields an ErrKindConflict error.
func (c *Client) CreateHelpRequest(ctx context.Context, input CreateHelpRequestInput) (*model.HelpRequest, error) {
	var out model.HelpRequest
	err := c.call(ctx, callOpts{
		method: http.MethodPost,
		path:   "/api/help-requests",
		body:   input,
		schema: "help_request",
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListFilter narrows the admin request list.
type ListFilter struct {
	Type   string
	Status string
	Search string
}

// ListHelpRequests returns the admin view of all requests, optionally
// filtered by type, status and a free-text search.
func (c *Client) ListHelpRequests(ctx context.Context, cred Credential, filter ListFilter) ([]model.HelpRequest, error) {
	q := url.Values{}
	if filter.Type != "" {
		q.Set("type", filter.Type)
	}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}

	var out []model.HelpRequest
	err := c.call(ctx, callOpts{
		method: http.MethodGet,
		path:   "/api/help-requests",
		query:  q,
		cred:   cred,
		schema: "help_request_list",
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetHelpRequest fetches one request with its attachments.
func (c *Client) GetHelpRequest(ctx context.Context, cred Credential, id string) (*model.HelpRequest, error) {
	var out model.HelpRequest
	err := c.call(ctx, callOpts{
		method: http.MethodGet,
		path:   "/api/help-requests/" + url.PathEscape(id),
		cred:   cred,
		schema: "help_request",
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStatus transitions a request's status. Local bookkeeping only; the
// commerce platform is not involved.
func (c *Client) UpdateStatus(ctx context.Context, cred Credential, id string, status model.RequestStatus) error {
	return c.call(ctx, callOpts{
		method: http.MethodPatch,
		path:   "/api/help-requests/" + url.PathEscape(id),
		cred:   cred,
		body:   map[string]string{"status": string(status)},
	})
}

type shopifyEnvelope struct {
	Shopify struct {
		AdminURL string `json:"admin_url"`
	} `json:"shopify"`
}

// LookupPlatformOrder resolves the request's order number to a platform
// order, persists the link server-side, and returns the admin deep link.
func (c *Client) LookupPlatformOrder(ctx context.Context, cred Credential, id string) (string, error) {
	var out shopifyEnvelope
	err := c.call(ctx, callOpts{
		method:   http.MethodPost,
		path:     "/api/help-requests/" + url.PathEscape(id) + "/shopify/lookup",
		cred:     cred,
		schema:   "shopify_envelope",
		out:      &out,
		platform: true,
	})
	if err != nil {
		return "", err
	}
	return out.Shopify.AdminURL, nil
}

// CancelPlatformOrder cancels the linked order on the platform. The platform
// rejects cancellation of fulfilled orders; that rejection comes back as an
// ErrKindPlatform error and the request is left unchanged.
func (c *Client) CancelPlatformOrder(ctx context.Context, cred Credential, id string) (string, error) {
	var out shopifyEnvelope
	err := c.call(ctx, callOpts{
		method:   http.MethodPost,
		path:     "/api/help-requests/" + url.PathEscape(id) + "/shopify/cancel",
		cred:     cred,
		schema:   "shopify_envelope",
		out:      &out,
		platform: true,
	})
	if err != nil {
		return "", err
	}
	return out.Shopify.AdminURL, nil
}

// GetPlatformOrder fetches the linked platform order with its line items.
func (c *Client) GetPlatformOrder(ctx context.Context, cred Credential, id string) (*model.PlatformOrder, error) {
	var out model.PlatformOrder
	err := c.call(ctx, callOpts{
		method:   http.MethodGet,
		path:     "/api/help-requests/" + url.PathEscape(id) + "/shopify/order",
		cred:     cred,
		schema:   "platform_order",
		out:      &out,
		platform: true,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RefundLineItemInput is one refunded line in a refund submission.
type RefundLineItemInput struct {
	LineItemID int64 `json:"lineItemId"`
	Quantity   int   `json:"quantity"`
}

// RefundSubmission is the body for POST …/shopify/refund. RefundAmount is
// sent only when the admin entered a manual override; otherwise the backend
// uses the suggested total.
type RefundSubmission struct {
	RefundLineItems []RefundLineItemInput `json:"refundLineItems"`
	RestockType     model.RestockType     `json:"restockType"`
	Note            *string               `json:"note,omitempty"`
	RefundAmount    *float64              `json:"refundAmount,omitempty"`
}

// SubmitRefund submits a refund to the platform for the request's order.
func (c *Client) SubmitRefund(ctx context.Context, cred Credential, id string, sub RefundSubmission) (string, error) {
	var out shopifyEnvelope
	err := c.call(ctx, callOpts{
		method:   http.MethodPost,
		path:     "/api/help-requests/" + url.PathEscape(id) + "/shopify/refund",
		cred:     cred,
		body:     sub,
		schema:   "shopify_envelope",
		out:      &out,
		platform: true,
	})
	if err != nil {
		return "", err
	}
	return out.Shopify.AdminURL, nil
}

// LookupStatus is the public status check keyed by order number + email.
func (c *Client) LookupStatus(ctx context.Context, orderNumber, email string) (*model.StatusSummary, error) {
	q := url.Values{
		"order_number": {orderNumber},
		"email":        {email},
	}
	var out model.StatusSummary
	err := c.call(ctx, callOpts{
		method: http.MethodGet,
		path:   "/api/help-requests/status",
		query:  q,
		schema: "status_summary",
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FileMeta describes a file about to be uploaded.
type FileMeta struct {
	FileName      string `json:"file_name"`
	ContentType   string `json:"content_type,omitempty"`
	FileSizeBytes int64  `json:"file_size_bytes,omitempty"`
}

// UploadTicket is a pre-signed write location for one attachment.
type UploadTicket struct {
	AttachmentID     string `json:"attachment_id"`
	UploadURL        string `json:"upload_url"`
	BlobPath         string `json:"blob_path"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
}

// CreateUploadURL obtains a pre-signed write location for an attachment.
// No file bytes pass through the API server.
func (c *Client) CreateUploadURL(ctx context.Context, requestID string, meta FileMeta) (*UploadTicket, error) {
	var out UploadTicket
	err := c.call(ctx, callOpts{
		method: http.MethodPost,
		path:   "/api/help-requests/" + url.PathEscape(requestID) + "/attachments/upload-url",
		body:   meta,
		schema: "upload_ticket",
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadFile performs the direct binary transfer to a pre-signed location.
// The target is blob storage, outside the API server.
func (c *Client) UploadFile(ctx context.Context, uploadURL, contentType string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, body)
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-ms-blob-type", "BlockBlob")

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Kind: ErrKindNetwork, Message: "could not reach the upload target", cause: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Kind:       ErrKindUpload,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("upload target returned status %d", resp.StatusCode),
		}
	}
	return nil
}

// ListMessages fetches the full chat history for a request, scoped by the
// caller's role credential.
func (c *Client) ListMessages(ctx context.Context, cred Credential, requestID string) ([]model.ChatMessage, error) {
	q := url.Values{}
	cred.applyQuery(q)

	var out []model.ChatMessage
	err := c.call(ctx, callOpts{
		method: http.MethodGet,
		path:   "/api/chat/" + url.PathEscape(requestID) + "/messages",
		query:  q,
		cred:   cred,
		schema: "chat_message_list",
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage posts a chat message and returns the authoritative stored
// message (with its server-assigned id).
func (c *Client) SendMessage(ctx context.Context, cred Credential, requestID, body string) (*model.ChatMessage, error) {
	q := url.Values{}
	cred.applyQuery(q)

	var out model.ChatMessage
	err := c.call(ctx, callOpts{
		method: http.MethodPost,
		path:   "/api/chat/" + url.PathEscape(requestID) + "/messages",
		query:  q,
		cred:   cred,
		body:   map[string]string{"body": body},
		schema: "chat_message",
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// StreamURL builds the SSE endpoint URL for a request's chat. The stream
// transport cannot set headers, so the credential travels in the query.
func (c *Client) StreamURL(requestID string, cred Credential) string {
	q := url.Values{}
	cred.streamQuery(q)
	u := c.baseURL + "/api/chat/" + url.PathEscape(requestID) + "/stream"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// TokenPair is the login result.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Login exchanges admin credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	var out TokenPair
	err := c.call(ctx, callOpts{
		method: http.MethodPost,
		path:   "/api/auth/login",
		body:   map[string]string{"email": email, "password": password},
		schema: "token_pair",
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes a refresh token. Best effort; callers ignore failures.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.call(ctx, callOpts{
		method: http.MethodPost,
		path:   "/api/auth/logout",
		body:   map[string]string{"refresh_token": refreshToken},
	})
}

type callOpts struct {
	method string
	path   string
	query  url.Values
	cred   Credential
	body   interface{}
	schema string      // response schema name; empty means the body is discarded
	out    interface{}
	// platform marks commerce-platform operations so their failures are
	// classified ErrKindPlatform (shown inline, state unchanged) rather
	// than generic validation errors.
	platform bool
}

func (c *Client) call(ctx context.Context, opts callOpts) error {
	var bodyReader io.Reader
	if opts.body != nil {
		data, err := json.Marshal(opts.body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	u := c.baseURL + opts.path
	if len(opts.query) > 0 {
		u += "?" + opts.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, opts.method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if opts.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	opts.cred.applyHeader(req)

	requestID := ulid.Make().String()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("API call failed",
			zap.String("method", opts.method),
			zap.String("path", opts.path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return &APIError{Kind: ErrKindNetwork, Message: "could not reach the server", cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &APIError{Kind: ErrKindNetwork, Message: "connection lost while reading response", cause: err}
	}

	c.log.Debug("API call",
		zap.String("method", opts.method),
		zap.String("path", opts.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", requestID),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classify(resp.StatusCode, data, opts.platform)
	}
	if opts.out == nil {
		return nil
	}

	if err := c.validate.Validate(opts.schema, data); err != nil {
		return &APIError{
			Kind:       ErrKindMalformed,
			StatusCode: resp.StatusCode,
			Message:    "unexpected response from server",
			cause:      err,
		}
	}
	if err := json.Unmarshal(data, opts.out); err != nil {
		return &APIError{
			Kind:       ErrKindMalformed,
			StatusCode: resp.StatusCode,
			Message:    "unexpected response from server",
			cause:      err,
		}
	}
	return nil
}

// classify maps a non-2xx response to the error taxonomy. The backend's own
// error text is surfaced verbatim when the body carries one.
func classify(status int, body []byte, platform bool) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)
	msg := payload.Error

	apiErr := &APIError{StatusCode: status, Message: msg}
	switch {
	case status == http.StatusUnauthorized:
		apiErr.Kind = ErrKindUnauthorized
	case status == http.StatusConflict:
		apiErr.Kind = ErrKindConflict
		if apiErr.Message == "" {
			apiErr.Message = "order already has an open request"
		}
	case platform:
		apiErr.Kind = ErrKindPlatform
	case status >= 400 && status < 500:
		apiErr.Kind = ErrKindValidation
	default:
		apiErr.Kind = ErrKindServer
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("request failed with status %d", status)
	}
	return apiErr
}
