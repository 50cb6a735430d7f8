package api

import (
	"context"
	"fmt"
	"log/slog"

	"storefront/config"
	"storefront/internal/api/external/opensearch"
	"storefront/internal/api/external/smtp"
	"storefront/internal/api/live"
	"storefront/internal/api/notify"
)

// notificationSinks lists the sinks every committed change fans out to. Mail
// and search are optional; a search cluster that is down at startup only
// disables the projection.
func notificationSinks(ctx context.Context, cfg config.Config, hub *live.Hub) ([]notify.Sink, error) {
	sinks := []notify.Sink{{Name: "live", Notifier: hub}}

	if cfg.MailEnabled() {
		mailer, err := smtp.NewMailer(smtp.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			Timeout:  cfg.MailTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("api - notificationSinks - smtp.NewMailer: %w", err)
		}
		sinks = append(sinks, notify.Sink{Name: "mail", Notifier: notify.NewMailNotifier(mailer, cfg.AdminEmail)})
	} else {
		slog.Warn("SMTP_HOST is not set, admin mail is disabled")
	}

	if cfg.SearchEnabled() {
		indexer, err := opensearch.NewOrderIndexer(ctx, cfg.OpensearchUrls, cfg.OpensearchIndexOrders)
		if err != nil {
			slog.Warn("Order search projection disabled", slog.Any("error", err))
		} else {
			sinks = append(sinks, notify.Sink{Name: "search", Notifier: indexer})
		}
	}

	return sinks, nil
}

func newDispatcher(cfg config.Config, sinks []notify.Sink) *notify.Dispatcher {
	return notify.NewDispatcher(
		notify.NewFanout(sinks...),
		notify.WithWorkers(cfg.NotifyWorkers),
		notify.WithQueueSize(cfg.NotifyQueueSize),
		notify.WithTimeout(cfg.NotifyTimeout),
	)
}
