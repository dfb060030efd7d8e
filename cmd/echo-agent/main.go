package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentweave/dialogmq/pkg/router"
	dialog "github.com/agentweave/dialogmq/pkg/schemas/dialog/v1"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "echo-agent",
		Short: "Backend agent that echoes text prompts back to the sender",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to YAML router config")
	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Consume the input queue and reply to every dialog",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

			cfg, err := router.LoadConfig(configPath)
			if err != nil {
				return err
			}
			r := router.New(cfg, logger)
			defer r.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			handler := func(ctx context.Context, d *dialog.Dialog) (bool, error) {
				if err := echo(d); err != nil {
					return true, err
				}
				err := r.SendDialog(ctx, d.ID, router.SendOptions{
					IsReply:                       true,
					NewestMessagesToSend:          1,
					AutoGenerateRoutingStrategies: true,
				})
				return true, err
			}

			err = r.RunServer(ctx, handler, true)
			if errors.Is(err, context.Canceled) {
				logger.Info("shutting down")
				return nil
			}
			return err
		},
	}
}

// echo appends an assistant turn repeating every text prompt of the last
// received message.
func echo(d *dialog.Dialog) error {
	var lines []string
	if last := d.Last(); last != nil {
		for _, p := range last.Prompts {
			if p.ContentType == dialog.ContentText {
				lines = append(lines, p.Text)
			}
		}
	}
	if len(lines) == 0 {
		lines = []string{"(nothing to echo)"}
	}
	prompt, err := dialog.NewTextPrompt(strings.Join(lines, "\n"))
	if err != nil {
		return err
	}
	msg, err := dialog.NewMessage(dialog.RoleAssistant, prompt)
	if err != nil {
		return err
	}
	msg.SenderInfo = "echo-agent"
	d.Append(msg)
	return nil
}
