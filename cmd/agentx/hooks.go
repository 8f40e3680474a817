package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/agentx/internal/eventbridge"
	"github.com/kingrea/agentx/internal/extension"
	"github.com/kingrea/agentx/internal/logging"
)

func newHookCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Run lifecycle hooks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newBeforeAgentStartCommand(opts), newSessionShutdownCommand(opts))
	return cmd
}

func newBeforeAgentStartCommand(opts *globalOptions) *cobra.Command {
	var evt extension.BeforeAgentStartEvent
	cmd := &cobra.Command{
		Use:   "before-agent-start",
		Short: "Print messages to inject before the agent turn, one JSON object per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if evt.SessionID == "" {
				return errors.New("--session-id is required")
			}
			a, err := loadApp(opts, nil)
			if err != nil {
				return err
			}
			defer a.Close()
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, msg := range a.catalog.BeforeAgentStart(cmd.Context(), evt) {
				if err := enc.Encode(msg); err != nil {
					return fmt.Errorf("write message: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&evt.Prompt, "prompt", "", "the user's prompt")
	cmd.Flags().StringVar(&evt.SessionID, "session-id", "", "host session id")
	return cmd
}

func newSessionShutdownCommand(opts *globalOptions) *cobra.Command {
	var evt extension.SessionShutdownEvent
	cmd := &cobra.Command{
		Use:   "session-shutdown",
		Short: "Run end-of-session housekeeping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if evt.SessionID == "" {
				return errors.New("--session-id is required")
			}
			a, err := loadApp(opts, nil)
			if err != nil {
				return err
			}
			defer a.Close()
			// Housekeeping failures are logged, never reported as a failed hook.
			a.catalog.SessionShutdown(cmd.Context(), evt)
			return nil
		},
	}
	cmd.Flags().StringVar(&evt.SessionID, "session-id", "", "host session id")
	cmd.Flags().StringVar(&evt.Reason, "reason", "", "why the session ended")
	return cmd
}

func newBridgeCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bridge",
		Short: "Serve the HTTP event bridge until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			printf := logging.Printf(a.logger.Named("eventbridge"))
			router := eventbridge.NewRouter(eventbridge.RouterLimits{}, printf)
			stopDispatch := eventbridge.DispatchShutdowns(ctx, router, a.catalog, printf)
			defer stopDispatch()

			srv := eventbridge.NewServer(eventbridge.SettingsFromConfig(a.cfg),
				eventbridge.WithProcessor(router),
				eventbridge.WithHooks(a.catalog),
				eventbridge.WithLogger(printf))
			if err := srv.Start(ctx); err != nil {
				if errors.Is(err, eventbridge.ErrServerDisabled) {
					return errors.New("event bridge is disabled in .agentx/config.yaml")
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Event bridge listening on %s\n", srv.BaseURL())
			<-ctx.Done()

			a.logger.Info("event bridge stopping", zap.String("addr", srv.Addr()))
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
