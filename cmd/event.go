package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/ops-portal/internal/core/events"
	"github.com/frahmantamala/ops-portal/internal/notify"
	"github.com/frahmantamala/ops-portal/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish portal events through the configured notification sink`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Long: `Publish a test event on the event bus and deliver it through the configured
sink. Event types: ` + strings.Join(events.EventTypes(), ", "),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(cmd.Context(), strings.ToUpper(args[0]))
	},
}

var eventData string

func publishTestEvent(ctx context.Context, eventType string) error {
	if !events.IsEventType(eventType) {
		return fmt.Errorf("unknown event type %q (want one of %s)", eventType, strings.Join(events.EventTypes(), ", "))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lg := logger.LoggerWrapper()

	bus := events.NewEventBus(lg)
	sink, shutdown := notify.New(cfg.Notification, lg, nil)
	defer shutdown()
	notify.Subscribe(bus, sink, lg)

	event := events.NewPortalEvent(eventType, events.Notification{
		RequestType: "System",
		Event:       "test",
		ID:          fmt.Sprintf("cli-%d", time.Now().Unix()),
		Requester:   events.Party{Name: "ops-portal cli"},
		Fields:      map[string]any{"message": eventData, "source": "cli-command"},
		Status:      "active",
		DeepLink:    "/admin",
	})

	lg.Info("publishing test event", "event_type", eventType, "event_id", event.ID)
	if err := bus.PublishSync(ctx, event); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	lg.Info("test event published", "event_id", event.ID)
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "test message", "Event data message")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
