package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claims-center/claimsapi/internal/client"
	"github.com/claims-center/claimsapi/internal/config"
	"github.com/claims-center/claimsapi/internal/logger"
	"github.com/claims-center/claimsapi/internal/queries"
	"github.com/claims-center/claimsapi/internal/version"
	"github.com/spf13/cobra"

	// CA roots for minimal container images without a system trust store
	_ "golang.org/x/crypto/x509roots/fallback"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app holds the flag values and the dependencies built from them before a subcommand runs
type app struct {
	baseURL  string
	token    string
	timeout  time.Duration
	logLevel string

	logger  *slog.Logger
	client  *client.Client
	queries *queries.Queries
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "claimsctl",
		Short: "Claims center API client",
		Long: `Query closed claims and agent activities from the claims center REST API.

The API location and credentials are read from CLAIMS_API_URL and CLAIMS_API_TOKEN
(a .env file in the working directory is loaded when present) and can be overridden with flags.`,
		SilenceUsage: true,
	}
	cmd.Version = version.Get().String()

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.baseURL, "base-url", "", "claims API base URL (overrides CLAIMS_API_URL)")
	flags.StringVar(&a.token, "token", "", "bearer token (overrides CLAIMS_API_TOKEN)")
	flags.DurationVar(&a.timeout, "timeout", 0, "timeout for each request attempt (overrides CLAIMS_API_TIMEOUT)")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	// only the API commands need a client; help and completion run without credentials
	for _, sub := range []*cobra.Command{
		a.closedClaimsCmd(),
		a.agentActivitiesCmd(),
		a.agentClosedClaimsCmd(),
		a.globalClosedClaimsCmd(),
		a.activitiesCmd(),
	} {
		sub.PreRunE = a.setup
		cmd.AddCommand(sub)
	}

	return cmd
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if a.baseURL != "" {
		cfg.BaseURL = a.baseURL
	}
	if a.token != "" {
		cfg.Token = a.token
	}
	if a.timeout > 0 {
		cfg.Timeout = a.timeout
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	a.logger = logger.NewLogger(cmd.ErrOrStderr(), logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	a.client, err = client.New(
		client.WithBaseURL(cfg.BaseURL),
		client.WithToken(cfg.Token),
		client.WithTimeout(cfg.Timeout),
		client.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	a.queries = queries.New(a.client, a.logger)

	a.logger.Debug("using claims API", slog.String("base_url", a.client.BaseURL()))
	return nil
}

func (a *app) closedClaimsCmd() *cobra.Command {
	var agentID string

	cmd := &cobra.Command{
		Use:   "closed-claims",
		Short: "List closed claims, optionally for a single agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var agent *string
			if cmd.Flags().Changed("agent") {
				agent = &agentID
			}
			return a.print(cmd)(a.client.GetClosedClaims(cmd.Context(), agent))
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "only return claims closed by this agent")

	return cmd
}

func (a *app) agentActivitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agent-activities AGENT_ID",
		Short: "List the activities created and closed by an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.print(cmd)(a.client.GetAgentActivities(cmd.Context(), args[0]))
		},
	}
}

func (a *app) agentClosedClaimsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agent-closed-claims AGENT_ID",
		Short: "List the closed claims of an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.print(cmd)(a.queries.GetClosedClaimsByAgent(cmd.Context(), args[0]))
		},
	}
}

func (a *app) globalClosedClaimsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "global-closed-claims",
		Short: "List closed claims across the organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := queries.GlobalClosedClaimsOptions{Limit: limit}
			return a.print(cmd)(a.queries.GetGlobalClosedClaims(cmd.Context(), opts))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", queries.DefaultGlobalClosedClaimsLimit, "maximum number of claims to return")

	return cmd
}

func (a *app) activitiesCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "activities AGENT_ID",
		Short: "List the activities of an agent, optionally filtered by status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := queries.ActivityFilter{Status: status}
			return a.print(cmd)(a.queries.GetActivitiesByAgent(cmd.Context(), args[0], filter))
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "activity status filter (e.g. open, closed)")

	return cmd
}

// print returns a function that writes a query result to stdout as indented JSON
func (a *app) print(cmd *cobra.Command) func(any, error) error {
	return func(result any, err error) error {
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
		return nil
	}
}
