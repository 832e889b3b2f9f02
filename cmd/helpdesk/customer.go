package main

import (
	"bufio"
	"os"
	"strings"

	"github.com/NishantPriyadarshi063/shopify-frontend/internal/chat"
	"github.com/NishantPriyadarshi063/shopify-frontend/internal/client"
	"github.com/NishantPriyadarshi063/shopify-frontend/internal/model"
	"github.com/NishantPriyadarshi063/shopify-frontend/internal/upload"

	"github.com/spf13/cobra"
)

func newSubmitCmd(a *app) *cobra.Command {
	var (
		reqType string
		name    string
		email   string
		phone   string
		order   string
		reason  string
		attach  []string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Open a new help request for an order",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// Courtesy pre-check; the backend re-checks on create.
			if res, err := a.api.CheckOrder(ctx, order); err == nil && res.HasOpenRequest {
				a.render.Noticef("note: order %s already has an open request; submitting will be rejected", order)
			}

			input := client.CreateHelpRequestInput{
				Type:          model.RequestType(reqType),
				CustomerName:  name,
				CustomerEmail: email,
				OrderNumber:   order,
			}
			if phone != "" {
				input.CustomerPhone = &phone
			}
			if reason != "" {
				input.Reason = &reason
			}

			req, err := a.api.CreateHelpRequest(ctx, input)
			if err != nil {
				if client.IsConflict(err) {
					a.render.Errorf("%v", err)
					return err
				}
				a.render.Errorf("could not submit the request: %v", err)
				return err
			}

			a.render.Noticef("request submitted, reference %s", req.ID)
			a.render.Noticef("chat with support: helpdesk chat %s --email %s", req.ID, email)

			if len(attach) > 0 {
				up := upload.New(a.api, upload.DefaultPolicy(), a.log)
				results, err := up.UploadAll(ctx, req.ID, attach)
				if err != nil {
					a.render.Errorf("attachments not uploaded: %v", err)
					return nil
				}
				a.render.Noticef("attachments:")
				a.render.UploadResults(results)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&reqType, "type", "", "request type: cancel, return, refund or exchange")
	cmd.Flags().StringVar(&name, "name", "", "customer name")
	cmd.Flags().StringVar(&email, "email", "", "customer email")
	cmd.Flags().StringVar(&phone, "phone", "", "customer phone (optional)")
	cmd.Flags().StringVar(&order, "order", "", "order number")
	cmd.Flags().StringVar(&reason, "reason", "", "why you are reaching out (optional)")
	cmd.Flags().StringArrayVar(&attach, "attach", nil, "file to attach, repeatable (max 5)")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("order")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	var (
		order string
		email string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Look up the status of a request by order number and email",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.api.LookupStatus(cmd.Context(), order, email)
			if err != nil {
				a.render.Errorf("status lookup failed: %v", err)
				return err
			}
			a.render.StatusSummary(s)
			return nil
		},
	}

	cmd.Flags().StringVar(&order, "order", "", "order number")
	cmd.Flags().StringVar(&email, "email", "", "email used on the request")
	cmd.MarkFlagRequired("order")
	cmd.MarkFlagRequired("email")
	return cmd
}

func newChatCmd(a *app) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "chat <request-id>",
		Short: "Open the live chat for a request",
		Long: "Opens the chat for a help request. Customers pass --email; " +
			"a logged-in admin joins with the admin credential instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cred := client.CustomerEmail(email)
			if email == "" {
				var err error
				cred, err = a.adminCred()
				if err != nil {
					return err
				}
			}
			return a.runChat(cmd, args[0], cred)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email used on the request (customers)")
	return cmd
}

// runChat drives the interactive chat view: history and live messages are
// printed as they merge in, stdin lines are sent, /quit leaves.
func (a *app) runChat(cmd *cobra.Command, requestID string, cred client.Credential) error {
	ctx := cmd.Context()

	engine := chat.New(a.api, cred, requestID, a.log)
	engine.Notify(func(m model.ChatMessage) {
		a.render.Message(m)
	})

	runErr := make(chan error, 1)
	go func() { runErr <- engine.Run(ctx) }()

	a.render.Noticef("connected to chat for request %s, /quit to leave", requestID)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-runErr:
			if err != nil {
				a.render.Errorf("chat closed: %v", err)
				return err
			}
			return nil
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == "/quit" {
				return nil
			}
			if _, err := engine.Send(ctx, line); err != nil {
				// The draft stays with the user; just say what happened.
				a.render.Errorf("message not sent: %v", err)
			}
		}
	}
}
