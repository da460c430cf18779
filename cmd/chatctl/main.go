package main

import (
	"context"
	"fmt"
	"os"

	"chatdesk/internal/chat"
	"chatdesk/internal/config"
	"chatdesk/internal/conversation"
	"chatdesk/internal/llm"
	"chatdesk/internal/logging"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "chatctl",
		Short:         "Send chat messages and manage local conversations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config file")

	rootCmd.AddCommand(newSendCommand())
	rootCmd.AddCommand(newConversationsCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds the services a command runs against.
type app struct {
	cfg           config.Config
	local         *conversation.LocalRepository
	conversations conversation.Service
	chat          chat.Service
}

// openApp loads the configuration and wires the services over the local store.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Log.File == "" {
		cfg.Log.File = "-"
		cfg.Log.Level = "error"
	}
	if _, err := logging.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}

	local, err := conversation.NewLocalRepository(cfg.LocalStorePath)
	if err != nil {
		return nil, fmt.Errorf("could not open local store: %w", err)
	}
	router, err := llm.NewRouterFromConfig(ctx, cfg)
	if err != nil {
		local.Close()
		return nil, fmt.Errorf("could not create model backends: %w", err)
	}

	conversations := conversation.NewService(local, nil, true, cfg.DefaultModel)
	return &app{
		cfg:           cfg,
		local:         local,
		conversations: conversations,
		chat:          chat.NewService(conversations, router, chat.SettingsFromConfig(cfg), chat.WithHooks(chat.DefaultHooks())),
	}, nil
}

func (a *app) Close() error {
	return a.local.Close()
}
