package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"tarik-chat-be/pkg/events"
	pktNats "tarik-chat-be/pkg/nats"

	"github.com/spf13/cobra"
)

func formatEvent(e events.Event) string {
	payload := e.Payload()
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, payload[k]))
	}
	return fmt.Sprintf("%s %s %s",
		dateStyle.Render(e.Timestamp().Local().Format("15:04:05")),
		titleStyle.Render(e.EventType()),
		strings.Join(parts, " "))
}

func (a *app) eventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events [subject]",
		Short: "Follow chat events published on NATS",
		Long: `Print chat events as they are published. The subject defaults to every
chat event (events.chat.>); pass e.g. events.chat.turn.failed to narrow it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.App.NatsURL == "" {
				return errors.New("NATS_URL is not set")
			}
			subject := pktNats.SubjectPrefix + "chat.>"
			if len(args) == 1 {
				subject = args[0]
			}

			sub, err := pktNats.NewSubscriber(a.cfg.App.NatsURL)
			if err != nil {
				return err
			}
			defer sub.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Fprintln(cmd.ErrOrStderr(), headerStyle.Render("Following "+subject+" (Ctrl+C to stop)"))
			return sub.Tail(ctx, subject, func(_ context.Context, e events.Event) error {
				fmt.Fprintln(cmd.OutOrStdout(), formatEvent(e))
				return nil
			})
		},
	}
}
