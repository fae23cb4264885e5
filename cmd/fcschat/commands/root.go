package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/VanshAg283/FCS-Project/internal/app"
	"github.com/VanshAg283/FCS-Project/internal/domain"
	"github.com/VanshAg283/FCS-Project/internal/logger"
	"github.com/VanshAg283/FCS-Project/internal/services/message"
)

var appCtx *app.App

// onMessage receives messages arriving on the open channel; chat sets it.
var onMessage atomic.Pointer[func(domain.ChatMessage)]

var hooks = message.Options{
	OnNotice: printNotice,
	OnMessage: func(m domain.ChatMessage) {
		if f := onMessage.Load(); f != nil {
			(*f)(m)
		}
	},
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return newRoot().ExecuteContext(ctx)
}

func newRoot() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:          "fcschat",
		Short:        "End-to-end encrypted chat CLI",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(v)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
				return err
			}
			log, err := logger.New(cfg.LogLevel, cfg.Development)
			if err != nil {
				return err
			}
			appCtx = app.New(cfg, log, hooks)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if appCtx == nil {
				return nil
			}
			return appCtx.Close()
		},
	}

	pf := root.PersistentFlags()
	pf.String("home", "", "config dir (default ~/.fcschat)")
	pf.StringP("passphrase", "p", "", "passphrase protecting the private key")
	pf.String("relay", "", "relay base URL (e.g. http://127.0.0.1:8080)")
	pf.String("token", "", "relay bearer token")
	pf.String("user", "", "your relay user id")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.Int("history-workers", 0, "parallel decryption workers for history")
	pf.Bool("dev", false, "human-readable logs")
	for key, flag := range map[string]string{
		"home":            "home",
		"passphrase":      "passphrase",
		"relay":           "relay",
		"token":           "token",
		"user":            "user",
		"log_level":       "log-level",
		"history_workers": "history-workers",
		"dev":             "dev",
	} {
		_ = v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		registerCmd(), loginCmd(),
		keygenCmd(), pubkeyCmd(), fingerprintCmd(),
		sendCmd(), historyCmd(), chatCmd(), deleteCmd(),
		groupCmd(), blockCmd(),
	)
	return root
}

func printNotice(n message.Notice) {
	if n.ID != "" {
		fmt.Fprintf(os.Stderr, "! %s: %v\n", n.ID, n.Err)
		return
	}
	fmt.Fprintf(os.Stderr, "! %v\n", n.Err)
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
