package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/classtime-project/classtime-client/internal/client"
	"github.com/classtime-project/classtime-client/internal/config"
	"github.com/classtime-project/classtime-client/internal/logger"
	"github.com/classtime-project/classtime-client/internal/session"
	"github.com/classtime-project/classtime-client/internal/version"
)

// app holds the wiring shared by all commands. The session store is created
// by this application root and passed down explicitly.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	api    *client.Client
	store  *session.Store
}

func main() {
	a := &app{}

	root := &cobra.Command{
		Use:   "classtime",
		Short: "Classtime account client",
		Long:  `Command line client for the classtime account API: registration, login, password reset and profile editing.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		SilenceUsage: true,
	}

	v := version.Get()
	root.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	root.AddCommand(
		a.loginCommand(),
		a.logoutCommand(),
		a.whoamiCommand(),
		a.requestRegistrationCommand(),
		a.registerCommand(),
		a.requestResetCommand(),
		a.resetPasswordCommand(),
		a.profileCommand(),
		a.stubServerCommand(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) init() error {
	// .env is optional - real environments set variables directly
	_ = godotenv.Load()

	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.cfg = cfg

	a.logger = logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	api, err := client.NewClient(cfg.APIBaseURL, client.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}
	a.api = api

	// restore the session cookie from the previous run, if any
	cookies, err := loadCookies(cfg.SessionFile)
	if err != nil {
		a.logger.Warn("failed to load saved session", slog.String("error", err.Error()))
	} else if len(cookies) > 0 {
		a.api.SetSessionCookies(cookies)
	}

	a.store = session.NewStore(api)
	return nil
}

// saveSession persists the session cookies so the next invocation stays
// logged in.
func (a *app) saveSession() {
	if err := saveCookies(a.cfg.SessionFile, a.api.SessionCookies()); err != nil {
		a.logger.Warn("failed to save session", slog.String("error", err.Error()))
	}
}

func (a *app) clearSession() {
	if err := saveCookies(a.cfg.SessionFile, nil); err != nil {
		a.logger.Warn("failed to clear saved session", slog.String("error", err.Error()))
	}
}
