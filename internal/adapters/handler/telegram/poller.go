package telegram

import (
	"context"
	"errors"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateSource is the long polling part of the Bot API.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

const pollTimeoutSeconds = 60

// Poll feeds updates from long polling to d until ctx is done.
func Poll(ctx context.Context, source UpdateSource, d *Dispatcher, logger *slog.Logger) error {
	config := tgbotapi.NewUpdate(0)
	config.Timeout = pollTimeoutSeconds

	updates := source.GetUpdatesChan(config)
	defer source.StopReceivingUpdates()

	logger.Info("polling for updates")
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := d.Dispatch(ctx, update); err != nil {
				if errors.Is(err, ErrDispatcherClosed) || errors.Is(err, context.Canceled) {
					return nil
				}
				logger.Error("failed to dispatch update", "update_id", update.UpdateID, "error", err)
			}
		}
	}
}
