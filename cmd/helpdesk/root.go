package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/NishantPriyadarshi063/shopify-frontend/internal/client"
	"github.com/NishantPriyadarshi063/shopify-frontend/internal/console"
	"github.com/NishantPriyadarshi063/shopify-frontend/internal/session"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	defaultAPIURL  = "http://localhost:8080"
	envAPIURL      = "HELPDESK_API_URL"
	envStateDir    = "HELPDESK_STATE_DIR"
	envHTTPTimeout = "HELPDESK_HTTP_TIMEOUT"
	envDebug       = "HELPDESK_DEBUG"
)

// app holds the wired components every subcommand uses.
type app struct {
	log    *zap.Logger
	api    *client.Client
	sess   *session.Session
	render *console.Renderer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "helpdesk",
		Short:         "Customer-support front-end for the help-desk backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				a.log.Sync()
			}
		},
	}

	root.AddCommand(
		newSubmitCmd(a),
		newStatusCmd(a),
		newChatCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newLookupCmd(a),
		newReturnCmd(a),
		newCancelCmd(a),
		newRefundCmd(a),
		newCompleteCmd(a),
		newRejectCmd(a),
	)
	return root
}

func (a *app) init() error {
	// A missing .env is fine; explicit environment always wins.
	godotenv.Load()

	var err error
	if os.Getenv(envDebug) != "" {
		a.log, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		a.log, err = cfg.Build()
	}
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	baseURL := os.Getenv(envAPIURL)
	if baseURL == "" {
		baseURL = defaultAPIURL
	}
	a.api = client.New(baseURL, a.log)
	if raw := os.Getenv(envHTTPTimeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", envHTTPTimeout, err)
		}
		a.api.SetTimeout(d)
	}

	stateDir := os.Getenv(envStateDir)
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not resolve home directory: %w", err)
		}
		stateDir = filepath.Join(home, ".helpdesk")
	}
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return fmt.Errorf("could not create state directory: %w", err)
	}
	a.sess, err = session.Load(stateDir, a.log)
	if err != nil {
		return fmt.Errorf("could not load session: %w", err)
	}

	a.render = console.New(os.Stdout)
	return nil
}

// adminCred resolves the logged-in admin credential, warning when the
// stored token looks past its expiry.
func (a *app) adminCred() (client.Credential, error) {
	tok, err := a.sess.Token()
	if err != nil {
		return client.Credential{}, fmt.Errorf("not logged in, run 'helpdesk login' first: %w", err)
	}
	if a.sess.LooksExpired(time.Now()) {
		a.render.Noticef("note: the stored session token looks expired; the server may ask you to log in again")
	}
	return client.Bearer(tok), nil
}
