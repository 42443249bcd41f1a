// termchat
//
// A terminal chat client for OpenAI-style completion endpoints.
// Keeps the conversation in memory, archives completed exchanges to
// SQLite, and talks to OpenRouter by default.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/termchat/termchat/internal/chat"
	"github.com/termchat/termchat/internal/config"
	"github.com/termchat/termchat/internal/history"
	"github.com/termchat/termchat/internal/llm/openrouter"
	"github.com/termchat/termchat/internal/repl"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "termchat",
	Short: "termchat - Terminal AI Chat",
	Long: `termchat is a terminal chat client for LLM completion endpoints.

  termchat                             Start chatting
  termchat config set KEY VALUE        Set a config value
  termchat config show                 Show current configuration
  termchat config path                 Print config file path`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runChat,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := openrouter.New(cfg.Endpoint, cfg.APIKey, cfg.HTTPTimeout)
	session := chat.New(client, chat.Config{
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		MaxHistory:  cfg.MaxHistory,
		Credential:  cfg.APIKey,
	})

	var lister repl.Lister
	if !cfg.NoArchive {
		archive, err := history.NewStore(cfg.DatabasePath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.DatabasePath).
				Msg("archive unavailable, continuing in memory only")
		} else {
			defer archive.Close()
			session.AttachArchive(archive)
			lister = archive
		}
	}

	loop := repl.New(session, modelList(cfg.Model), lister, os.Stdin, os.Stdout)
	return loop.Run(ctx)
}

// modelList returns the fixed model allow-list for the models command.
// The configured default is always part of it.
func modelList(current string) []string {
	models := []string{
		"deepseek/deepseek-r1-0528:free",
		"openai/gpt-4o",
		"anthropic/claude-sonnet-4",
		"meta-llama/llama-3.3-70b-instruct",
	}
	for _, m := range models {
		if m == current {
			return models
		}
	}
	return append([]string{current}, models...)
}

// setupLogging configures zerolog for console output. The default level
// is warn so log lines stay out of the chat unless asked for.
func setupLogging() {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})
	zerolog.TimeFieldFormat = time.RFC3339
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}
