package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vncsmyrnk/planner/internal/config"
)

func TestWebhookParamsCarrySecret(t *testing.T) {
	params := webhookParams(config.TelegramConfig{
		Mode:          config.ModeWebhook,
		WebhookURL:    "https://bot.example.org/telegram/webhook",
		WebhookSecret: "s3cr3t",
	})

	assert.Equal(t, "https://bot.example.org/telegram/webhook", params["url"])
	assert.Equal(t, "s3cr3t", params["secret_token"])
}
