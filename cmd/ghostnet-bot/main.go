package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nebusoku/ghostnet-daemon/internal/client"
	"github.com/nebusoku/ghostnet-daemon/internal/domain"
)

// The bot forwards each incoming message to the daemon's chat endpoint and
// relays the reply. Stateless by design: every Telegram message is its own
// single-turn conversation.
func main() {
	_ = godotenv.Load()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	token := os.Getenv("TG_BOT_TOKEN")
	if token == "" {
		log.Fatal().Msg("TG_BOT_TOKEN is not set")
	}

	api := client.New(client.Config{
		BaseURL: getenv("BACKEND_URL", "http://127.0.0.1:8001"),
		APIKey:  getenv("BACKEND_API_KEY", "change-me"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := bot.New(token, bot.WithDefaultHandler(handler(api)))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bot")
	}

	log.Info().Msg("ghostnet bot started")
	b.Start(ctx)
}

func handler(api *client.Client) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil || update.Message.Text == "" {
			return
		}
		if update.Message.From != nil && update.Message.From.IsBot {
			return
		}

		messages := []domain.ChatMessage{{Role: domain.RoleUser, Content: update.Message.Text}}
		reply, err := api.Chat(ctx, messages, "", true)
		if err != nil {
			log.Error().Err(err).Msg("chat request failed")
			reply = "GhostNet backend error: " + err.Error()
		}

		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   reply,
		}); err != nil {
			log.Error().Err(err).Msg("failed to send reply")
		}
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
