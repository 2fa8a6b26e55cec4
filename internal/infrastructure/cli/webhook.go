package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/redline/internal/infrastructure/config"
	"github.com/felixgeelhaar/redline/internal/infrastructure/webhook"
	"github.com/felixgeelhaar/redline/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
)

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage endpoints notified of review decisions",
	Long: `Webhooks receive a signed JSON payload for every accept or reject.
Failed deliveries are retried and then kept as dead letters in the
workspace.`,
}

var (
	webhookSecret   string
	webhookStatuses []string
	webhookFormat   string
	webhookJSON     bool
)

var webhookAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add an outgoing webhook endpoint",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url := args[0], args[1]

		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		cfg := ws.Config
		for _, h := range cfg.Webhooks {
			if h.Name == name {
				return fmt.Errorf("webhook %q already exists", name)
			}
		}

		cfg.Webhooks = append(cfg.Webhooks, config.Webhook{
			Name:       name,
			URL:        url,
			Secret:     webhookSecret,
			Enabled:    true,
			MaxRetries: 3,
			RetryDelay: time.Second,
			Statuses:   webhookStatuses,
			Format:     webhookFormat,
		})
		if err := config.Save(ws.Repo, cfg); err != nil {
			return MapError(err)
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added webhook %q → %s\n", name, url)
		return nil
	},
}

var webhookRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an outgoing webhook endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		cfg := ws.Config

		found := false
		remaining := cfg.Webhooks[:0:0]
		for _, h := range cfg.Webhooks {
			if h.Name == name {
				found = true
				continue
			}
			remaining = append(remaining, h)
		}
		if !found {
			return fmt.Errorf("webhook %q not found", name)
		}

		cfg.Webhooks = remaining
		if err := config.Save(ws.Repo, cfg); err != nil {
			return MapError(err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed webhook %q\n", name)
		return nil
	},
}

var webhookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured outgoing webhook endpoints",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(ws.Config.Webhooks) == 0 {
			_, _ = fmt.Fprintln(out, "No outgoing webhooks configured.")
			return nil
		}
		for _, h := range ws.Config.Webhooks {
			status := "enabled"
			if !h.Enabled {
				status = "disabled"
			}
			filters := "all decisions"
			if len(h.Statuses) > 0 {
				filters = strings.Join(h.Statuses, ",")
			}
			_, _ = fmt.Fprintf(out, "  %s → %s [%s] statuses=%s\n", h.Name, h.URL, status, filters)
		}
		return nil
	},
}

var webhookTestCmd = &cobra.Command{
	Use:   "test <name>",
	Short: "Send a test decision to a webhook endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		ws, err := openWorkspace()
		if err != nil {
			return err
		}

		var target *config.Webhook
		for i, h := range ws.Config.Webhooks {
			if h.Name == name {
				target = &ws.Config.Webhooks[i]
				break
			}
		}
		if target == nil {
			return fmt.Errorf("webhook %q not found", name)
		}

		ep := wiring.Endpoint(*target)
		ep.Statuses = nil
		session, err := ws.Repo.LoadSession()
		if err != nil {
			return err
		}
		notifier := ws.NewNotifier(session.ID, ep)

		err = notifier.RecordDecision(cmd.Context(), "redline-test", suggestion.Decision{
			Status:    suggestion.StatusAccepted,
			Applied:   true,
			DecidedAt: time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("test delivery to %q failed: %w", name, err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Test decision delivered to webhook %q\n", name)
		return nil
	},
}

var webhookDeadLettersCmd = &cobra.Command{
	Use:   "deadletters",
	Short: "List notifications that could not be delivered",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		letters, err := ws.DeadLetters.ReadAll()
		if err != nil {
			return fmt.Errorf("failed to read dead letters: %w", err)
		}

		out := cmd.OutOrStdout()
		if webhookJSON {
			return writeJSON(out, letters)
		}
		if len(letters) == 0 {
			_, _ = fmt.Fprintln(out, "No undelivered notifications.")
			return nil
		}
		for _, dl := range letters {
			_, _ = fmt.Fprintf(out, "%s  %s %s %s after %d attempts: %s\n",
				dl.Timestamp.Local().Format("2006-01-02 15:04:05"), dl.WebhookName, dl.SuggestionID, dl.Status, dl.Attempts, dl.Error)
		}
		return nil
	},
}

var webhookRedeliverCmd = &cobra.Command{
	Use:   "redeliver",
	Short: "Retry undelivered notifications against their webhooks",
	Long: `Post every dead letter again to the enabled webhook it was meant for.
Delivered letters are removed; the rest stay for a later attempt.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		var endpoints []webhook.Endpoint
		for _, h := range ws.Config.EnabledWebhooks() {
			endpoints = append(endpoints, wiring.Endpoint(h))
		}

		delivered, err := ws.NewNotifier("", endpoints...).Redeliver(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to update dead letters: %w", err)
		}
		remaining, err := ws.DeadLetters.ReadAll()
		if err != nil {
			return fmt.Errorf("failed to read dead letters: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Redelivered %d notifications, %d still undelivered\n", delivered, len(remaining))
		return nil
	},
}

func init() {
	webhookAddCmd.Flags().StringVar(&webhookSecret, "secret", "", "HMAC-SHA256 signing secret")
	webhookAddCmd.Flags().StringSliceVar(&webhookStatuses, "status", nil, "Only notify these decisions (accepted, rejected)")
	webhookAddCmd.Flags().StringVar(&webhookFormat, "format", "", "Body format: json or slack")
	webhookDeadLettersCmd.Flags().BoolVar(&webhookJSON, "json", false, "Output in JSON format")

	webhookCmd.AddCommand(webhookAddCmd)
	webhookCmd.AddCommand(webhookRemoveCmd)
	webhookCmd.AddCommand(webhookListCmd)
	webhookCmd.AddCommand(webhookTestCmd)
	webhookCmd.AddCommand(webhookDeadLettersCmd)
	webhookCmd.AddCommand(webhookRedeliverCmd)
	RootCmd.AddCommand(webhookCmd)
}
