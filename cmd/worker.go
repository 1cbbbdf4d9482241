/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nexora-chat/apiserver/config"
	"github.com/nexora-chat/apiserver/internal/events"
	"github.com/nexora-chat/apiserver/internal/logging"
	"github.com/nexora-chat/apiserver/internal/mirror"
	"github.com/spf13/cobra"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Runs the identity sync worker",
	Long: `Consumes identity sync events from the configured broker and pushes
them to the chat provider. Usage:

	nexora worker
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log := logging.Default()

		if cfg.Events.Backend == "" {
			return fmt.Errorf("EVENTS_BACKEND is required to run the worker")
		}

		client, err := mirror.NewClient(cfg.Mirror)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := events.New(ctx, cfg.Events)
		if err != nil {
			return err
		}
		defer func() {
			_ = broker.Close()
		}()

		worker := mirror.NewWorker(broker, cfg.Events.Channel, client, log)
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
