package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/NishantPriyadarshi063/shopify-frontend/internal/actions"
	"github.com/NishantPriyadarshi063/shopify-frontend/internal/client"
	"github.com/NishantPriyadarshi063/shopify-frontend/internal/model"
	"github.com/NishantPriyadarshi063/shopify-frontend/internal/refund"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newLoginCmd(a *app) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Log in as an admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				fmt.Fprint(os.Stderr, "password: ")
				sc := bufio.NewScanner(os.Stdin)
				if sc.Scan() {
					password = sc.Text()
				}
			}
			pair, err := a.api.Login(cmd.Context(), args[0], password)
			if err != nil {
				a.render.Errorf("login failed: %v", err)
				return err
			}
			if err := a.sess.SetTokens(pair.AccessToken, pair.RefreshToken); err != nil {
				return fmt.Errorf("could not persist session: %w", err)
			}
			a.render.Noticef("logged in as %s", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "admin password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and revoke the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Revocation is best effort; the local session goes either way.
			if rt := a.sess.RefreshToken(); rt != "" {
				if err := a.api.Logout(cmd.Context(), rt); err != nil {
					a.log.Warn("Token revocation failed", zap.Error(err))
				}
			}
			a.sess.Clear()
			a.render.Noticef("logged out")
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var (
		typ    string
		status string
		search string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List help requests (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := a.adminCred()
			if err != nil {
				return err
			}
			reqs, err := a.api.ListHelpRequests(cmd.Context(), cred, client.ListFilter{
				Type:   typ,
				Status: status,
				Search: search,
			})
			if err != nil {
				a.render.Errorf("could not list requests: %v", err)
				return err
			}
			a.render.RequestTable(reqs)
			return nil
		},
	}

	cmd.Flags().StringVar(&typ, "type", "", "filter by request type")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&search, "search", "", "free-text search")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <request-id>",
		Short: "Show one help request with its available actions and chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := actions.New(a.api, a.sess, a.log)
			req, err := ctrl.Open(cmd.Context(), args[0])
			if err != nil {
				return a.reportActionErr(err)
			}
			a.render.RequestDetail(req)

			var avail []string
			for _, act := range []actions.Action{
				actions.ActionLookup, actions.ActionReturn, actions.ActionRefund,
				actions.ActionCancel, actions.ActionComplete, actions.ActionReject,
			} {
				if ctrl.Available(act) {
					avail = append(avail, string(act))
				}
			}
			a.render.ActionMenu(avail)

			cred, err := a.adminCred()
			if err != nil {
				return err
			}
			msgs, err := a.api.ListMessages(cmd.Context(), cred, args[0])
			if err != nil {
				a.render.Errorf("could not load chat: %v", err)
				return nil
			}
			a.render.Noticef("")
			a.render.ChatTimeline(msgs)
			return nil
		},
	}
}

// openController loads the request and hands back a primed controller.
func (a *app) openController(cmd *cobra.Command, id string) (*actions.Controller, error) {
	ctrl := actions.New(a.api, a.sess, a.log)
	if _, err := ctrl.Open(cmd.Context(), id); err != nil {
		return nil, a.reportActionErr(err)
	}
	return ctrl, nil
}

// reportActionErr prints the failure inline and maps expired sessions to a
// log-in hint. State is left to the controller; there are no retries.
func (a *app) reportActionErr(err error) error {
	if errors.Is(err, actions.ErrSessionExpired) {
		a.render.Errorf("your session has expired, run 'helpdesk login' again")
		return err
	}
	a.render.Errorf("%v", err)
	return err
}

func newLookupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <request-id>",
		Short: "Resolve the request's order on the commerce platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := a.openController(cmd, args[0])
			if err != nil {
				return err
			}
			u, err := ctrl.Lookup(cmd.Context())
			if err != nil {
				return a.reportActionErr(err)
			}
			a.render.Noticef("platform order: %s", u)
			return nil
		},
	}
}

func newReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return <request-id>",
		Short: "Accept a pending return request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := a.openController(cmd, args[0])
			if err != nil {
				return err
			}
			if err := ctrl.AcceptReturn(cmd.Context()); err != nil {
				return a.reportActionErr(err)
			}
			a.render.Noticef("return accepted, status is now %s", ctrl.Request().Status)
			return nil
		},
	}
}

func newCancelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <request-id>",
		Short: "Cancel the order on the commerce platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := a.openController(cmd, args[0])
			if err != nil {
				return err
			}
			u, err := ctrl.CancelOrder(cmd.Context())
			if err != nil {
				return a.reportActionErr(err)
			}
			a.render.Noticef("order cancelled: %s", u)
			return nil
		},
	}
}

func newCompleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <request-id>",
		Short: "Mark a request completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := a.openController(cmd, args[0])
			if err != nil {
				return err
			}
			if err := ctrl.Complete(cmd.Context()); err != nil {
				return a.reportActionErr(err)
			}
			a.render.Noticef("request %s completed", args[0])
			return nil
		},
	}
}

func newRejectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <request-id>",
		Short: "Mark a request rejected",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := a.openController(cmd, args[0])
			if err != nil {
				return err
			}
			if err := ctrl.Reject(cmd.Context()); err != nil {
				return a.reportActionErr(err)
			}
			a.render.Noticef("request %s rejected", args[0])
			return nil
		},
	}
}

func newRefundCmd(a *app) *cobra.Command {
	var (
		lines   []string
		restock string
		note    string
		amount  string
	)

	cmd := &cobra.Command{
		Use:   "refund <request-id>",
		Short: "Build and submit a line-item refund",
		Long: "Fetches the platform order behind the request, applies the " +
			"selected quantities and submits the refund. Each --line takes " +
			"the form <line-item-id>=<quantity>.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := a.openController(cmd, args[0])
			if err != nil {
				return err
			}
			order, err := ctrl.BeginRefund(cmd.Context())
			if err != nil {
				return a.reportActionErr(err)
			}

			w, err := refund.NewWorksheet(order)
			if err != nil {
				return a.reportActionErr(err)
			}
			for _, spec := range lines {
				id, qty, err := parseLineFlag(spec)
				if err != nil {
					a.render.Errorf("%v", err)
					return err
				}
				if err := w.SetQuantity(id, qty); err != nil {
					a.render.Errorf("%v", err)
					return err
				}
			}
			w.SetRestockType(model.RestockType(restock))
			w.SetNote(note)
			if amount != "" {
				if err := w.SetManualAmount(amount); err != nil {
					a.render.Errorf("%v", err)
					return err
				}
			}

			a.render.Worksheet(w, order.Currency)
			sub, err := w.Build()
			if err != nil {
				a.render.Errorf("%v", err)
				return err
			}
			u, err := ctrl.SubmitRefund(cmd.Context(), sub)
			if err != nil {
				return a.reportActionErr(err)
			}
			a.render.Noticef("refund submitted: %s", u)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&lines, "line", nil, "line to refund as <line-item-id>=<quantity>, repeatable")
	cmd.Flags().StringVar(&restock, "restock", string(model.RestockNone), "restock mode: no_restock, return or cancel")
	cmd.Flags().StringVar(&note, "note", "", "note attached to the refund")
	cmd.Flags().StringVar(&amount, "amount", "", "manual refund amount overriding the suggested total")
	cmd.MarkFlagRequired("line")
	return cmd
}

func parseLineFlag(spec string) (int64, int, error) {
	idStr, qtyStr, ok := strings.Cut(spec, "=")
	if !ok {
		return 0, 0, fmt.Errorf("invalid --line %q, expected <line-item-id>=<quantity>", spec)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid line item id in %q: %w", spec, err)
	}
	qty, err := strconv.Atoi(strings.TrimSpace(qtyStr))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid quantity in %q: %w", spec, err)
	}
	return id, qty, nil
}
