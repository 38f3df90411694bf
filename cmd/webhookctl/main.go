// File: cmd/webhookctl/main.go
// webhookctl manages the Telegram webhook registration out of band:
//
//	webhookctl set -url https://example.app
//	webhookctl info
//	webhookctl delete -drop-pending
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"cashpoints/internal/config"
	tele "cashpoints/internal/infra/telegram"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	cmd := os.Args[1]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to YAML config file")
	baseURL := fs.String("url", "", "public base URL (defaults to webhook.url from config)")
	dropPending := fs.Bool("drop-pending", false, "drop queued updates")
	_ = fs.Parse(os.Args[2:])

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}

	switch cmd {
	case "set":
		base := *baseURL
		if base == "" {
			base = cfg.Webhook.URL
		}
		if base == "" {
			log.Fatal("no URL: pass -url or set WEBHOOK_URL")
		}
		url := tele.WebhookEndpoint(base)
		if err := tele.SetWebhook(bot, url, cfg.Webhook.Secret, *dropPending); err != nil {
			log.Fatalf("set webhook: %v", err)
		}
		fmt.Printf("webhook set to %s\n", url)
	case "info":
		info, err := tele.WebhookInfo(bot)
		if err != nil {
			log.Fatalf("webhook info: %v", err)
		}
		fmt.Printf("url:             %s\n", info.URL)
		fmt.Printf("pending updates: %d\n", info.PendingUpdateCount)
		if info.LastErrorMessage != "" {
			fmt.Printf("last error:      %s (at %d)\n", info.LastErrorMessage, info.LastErrorDate)
		}
	case "delete":
		if err := tele.DeleteWebhook(bot, *dropPending); err != nil {
			log.Fatalf("delete webhook: %v", err)
		}
		fmt.Println("webhook deleted")
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: webhookctl <set|info|delete> [flags]")
	os.Exit(2)
}
