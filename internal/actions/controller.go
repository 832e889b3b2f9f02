// Package actions drives the admin-side lifecycle of a help request:
// platform lookups, returns, cancellations, refunds and status rulings.
// Which actions apply depends on the request's type and current status,
// and at most one action runs at a time.
package actions

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/NishantPriyadarshi063/shopify-frontend/internal/client"
	"github.com/NishantPriyadarshi063/shopify-frontend/internal/model"
	"github.com/NishantPriyadarshi063/shopify-frontend/internal/session"

	"go.uber.org/zap"
)

// Action names one admin operation on a help request.
type Action string

const (
	ActionLookup   Action = "lookup"
	ActionReturn   Action = "return"
	ActionRefund   Action = "refund"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
	ActionReject   Action = "reject"
)

var (
	// ErrActionInFlight means another action has not finished yet.
	ErrActionInFlight = errors.New("another action is already running")
	// ErrActionUnavailable means the request's type or status rules the
	// action out.
	ErrActionUnavailable = errors.New("action not available for this request")
	// ErrSessionExpired means the backend rejected the admin credential;
	// the local session has been invalidated and the admin must log in
	// again.
	ErrSessionExpired = errors.New("admin session expired")
)

// API is the slice of the backend client the controller needs.
type API interface {
	GetHelpRequest(ctx context.Context, cred client.Credential, id string) (*model.HelpRequest, error)
	UpdateStatus(ctx context.Context, cred client.Credential, id string, status model.RequestStatus) error
	LookupPlatformOrder(ctx context.Context, cred client.Credential, id string) (string, error)
	CancelPlatformOrder(ctx context.Context, cred client.Credential, id string) (string, error)
	GetPlatformOrder(ctx context.Context, cred client.Credential, id string) (*model.PlatformOrder, error)
	SubmitRefund(ctx context.Context, cred client.Credential, id string, sub client.RefundSubmission) (string, error)
}

// Controller executes admin actions against one help request. Every
// successful action re-fetches the request so the cached snapshot always
// reflects what the backend decided, not what the controller assumed.
type Controller struct {
	api  API
	sess *session.Session
	log  *zap.Logger

	mu      sync.Mutex
	busy    bool
	request *model.HelpRequest
}

func New(api API, sess *session.Session, log *zap.Logger) *Controller {
	return &Controller{api: api, sess: sess, log: log}
}

// Open fetches the request and primes the controller's snapshot.
func (c *Controller) Open(ctx context.Context, id string) (*model.HelpRequest, error) {
	cred, err := c.cred()
	if err != nil {
		return nil, err
	}
	req, err := c.api.GetHelpRequest(ctx, cred, id)
	if err != nil {
		return nil, c.classify(err)
	}
	c.mu.Lock()
	c.request = req
	c.mu.Unlock()
	return req, nil
}

// Request returns the last fetched snapshot, nil before Open.
func (c *Controller) Request() *model.HelpRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.request
}

// Available reports whether the action applies to the current snapshot.
func (c *Controller) Available(a Action) bool {
	c.mu.Lock()
	req := c.request
	c.mu.Unlock()
	if req == nil {
		return false
	}
	return available(a, req.Type, req.Status)
}

func available(a Action, typ model.RequestType, status model.RequestStatus) bool {
	switch a {
	case ActionLookup:
		return true
	case ActionReturn:
		return typ == model.TypeReturn && status == model.StatusPending
	case ActionRefund:
		if status == model.StatusCompleted || status == model.StatusRejected {
			return false
		}
		if typ == model.TypeRefund {
			return true
		}
		return typ == model.TypeReturn &&
			(status == model.StatusInProgress || status == model.StatusApproved)
	case ActionCancel:
		return typ == model.TypeCancel && !status.Terminal()
	case ActionComplete:
		return status != model.StatusCompleted
	case ActionReject:
		return status != model.StatusRejected
	default:
		return false
	}
}

// Lookup resolves the platform admin URL for the request's order.
func (c *Controller) Lookup(ctx context.Context) (string, error) {
	var adminURL string
	err := c.run(ctx, ActionLookup, func(ctx context.Context, cred client.Credential, id string) error {
		var err error
		adminURL, err = c.api.LookupPlatformOrder(ctx, cred, id)
		return err
	})
	return adminURL, err
}

// AcceptReturn moves a pending return request into processing.
func (c *Controller) AcceptReturn(ctx context.Context) error {
	return c.run(ctx, ActionReturn, func(ctx context.Context, cred client.Credential, id string) error {
		return c.api.UpdateStatus(ctx, cred, id, model.StatusInProgress)
	})
}

// CancelOrder cancels the order on the commerce platform and returns the
// platform admin URL for the cancelled order.
func (c *Controller) CancelOrder(ctx context.Context) (string, error) {
	var adminURL string
	err := c.run(ctx, ActionCancel, func(ctx context.Context, cred client.Credential, id string) error {
		var err error
		adminURL, err = c.api.CancelPlatformOrder(ctx, cred, id)
		return err
	})
	return adminURL, err
}

// BeginRefund fetches the platform order backing the refund worksheet.
// It does not count as the in-flight action; the admin is only gathering
// data at this point.
func (c *Controller) BeginRefund(ctx context.Context) (*model.PlatformOrder, error) {
	if !c.Available(ActionRefund) {
		return nil, fmt.Errorf("%w: %s", ErrActionUnavailable, ActionRefund)
	}
	cred, err := c.cred()
	if err != nil {
		return nil, err
	}
	id := c.Request().ID
	order, err := c.api.GetPlatformOrder(ctx, cred, id)
	if err != nil {
		return nil, c.classify(err)
	}
	return order, nil
}

// SubmitRefund submits the assembled refund and returns the platform
// admin URL of the refunded order.
func (c *Controller) SubmitRefund(ctx context.Context, sub client.RefundSubmission) (string, error) {
	var adminURL string
	err := c.run(ctx, ActionRefund, func(ctx context.Context, cred client.Credential, id string) error {
		var err error
		adminURL, err = c.api.SubmitRefund(ctx, cred, id, sub)
		return err
	})
	return adminURL, err
}

// Complete marks the request completed.
func (c *Controller) Complete(ctx context.Context) error {
	return c.run(ctx, ActionComplete, func(ctx context.Context, cred client.Credential, id string) error {
		return c.api.UpdateStatus(ctx, cred, id, model.StatusCompleted)
	})
}

// Reject marks the request rejected.
func (c *Controller) Reject(ctx context.Context) error {
	return c.run(ctx, ActionReject, func(ctx context.Context, cred client.Credential, id string) error {
		return c.api.UpdateStatus(ctx, cred, id, model.StatusRejected)
	})
}

// run executes one gated action: it takes the in-flight slot, checks the
// gate against the current snapshot, performs the call and on success
// re-fetches the request.
func (c *Controller) run(ctx context.Context, a Action, fn func(ctx context.Context, cred client.Credential, id string) error) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrActionInFlight
	}
	if c.request == nil {
		c.mu.Unlock()
		return errors.New("no request loaded")
	}
	if !available(a, c.request.Type, c.request.Status) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrActionUnavailable, a)
	}
	c.busy = true
	id := c.request.ID
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	cred, err := c.cred()
	if err != nil {
		return err
	}

	c.log.Info("Running admin action", zap.String("action", string(a)), zap.String("request_id", id))
	if err := fn(ctx, cred, id); err != nil {
		return c.classify(err)
	}

	// The backend owns the lifecycle; reflect whatever it decided.
	req, err := c.api.GetHelpRequest(ctx, cred, id)
	if err != nil {
		return c.classify(fmt.Errorf("action succeeded but refresh failed: %w", err))
	}
	c.mu.Lock()
	c.request = req
	c.mu.Unlock()
	return nil
}

func (c *Controller) cred() (client.Credential, error) {
	tok, err := c.sess.Token()
	if err != nil {
		return client.Credential{}, err
	}
	return client.Bearer(tok), nil
}

// classify turns a backend rejection of the credential into a durable
// local logout.
func (c *Controller) classify(err error) error {
	if client.IsUnauthorized(err) {
		c.log.Warn("Admin credential rejected, invalidating session")
		c.sess.Invalidate()
		return fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	return err
}
