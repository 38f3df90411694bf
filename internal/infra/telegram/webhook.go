package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// WebhookEndpoint joins the public base URL with the webhook path.
func WebhookEndpoint(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/webhook"
}

// SetWebhook registers the webhook with Telegram. The secret, when set, is
// echoed back by Telegram in the X-Telegram-Bot-Api-Secret-Token header of
// every delivery; the raw API call is used because the library's typed
// WebhookConfig predates secret_token.
func SetWebhook(bot *tgbotapi.BotAPI, url, secret string, dropPending bool) error {
	params := tgbotapi.Params{"url": url}
	if secret != "" {
		params["secret_token"] = secret
	}
	if dropPending {
		params["drop_pending_updates"] = "true"
	}
	resp, err := bot.MakeRequest("setWebhook", params)
	if err != nil {
		return fmt.Errorf("setWebhook: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("setWebhook: %s", resp.Description)
	}
	return nil
}

// DeleteWebhook removes the webhook so polling can take over.
func DeleteWebhook(bot *tgbotapi.BotAPI, dropPending bool) error {
	_, err := bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPending})
	return err
}

// WebhookInfo fetches the current webhook registration.
func WebhookInfo(bot *tgbotapi.BotAPI) (tgbotapi.WebhookInfo, error) {
	return bot.GetWebhookInfo()
}

// DropWebhook clears any webhook registration. Polling mode calls this on
// startup; a leftover webhook would swallow the updates.
func (r *RealTelegramBotAdapter) DropWebhook() error {
	return DeleteWebhook(r.bot, false)
}

// ConfigureWebhook points Telegram at this deployment using the configured
// public URL and secret. Called on startup in webhook mode.
func (r *RealTelegramBotAdapter) ConfigureWebhook() error {
	url := WebhookEndpoint(r.cfg.Webhook.URL)
	if err := SetWebhook(r.bot, url, r.cfg.Webhook.Secret, false); err != nil {
		return err
	}
	info, err := WebhookInfo(r.bot)
	if err != nil {
		return err
	}
	if info.LastErrorMessage != "" {
		r.log.Warn().Str("last_error", info.LastErrorMessage).Msg("webhook has a recorded delivery error")
	}
	r.log.Info().Str("url", url).Int("pending", info.PendingUpdateCount).Msg("webhook configured")
	return nil
}
