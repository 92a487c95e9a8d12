package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/nebusoku/ghostnet-daemon/internal/client"
	"github.com/nebusoku/ghostnet-daemon/internal/tui"
)

func main() {
	_ = godotenv.Load()

	api := client.New(client.Config{
		BaseURL: getenv("BACKEND_URL", "http://127.0.0.1:8001"),
		APIKey:  getenv("BACKEND_API_KEY", "change-me"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := api.Health(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "cannot reach daemon: %v\n", err)
		os.Exit(1)
	}

	if _, err := tea.NewProgram(tui.New(api)).Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
