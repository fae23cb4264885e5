package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/VanshAg283/FCS-Project/internal/devrelay"
	"github.com/VanshAg283/FCS-Project/internal/domain"
	"github.com/VanshAg283/FCS-Project/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRoot().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("addr", ":8080")
	v.SetDefault("db", "relay.db")
	v.SetDefault("media_dir", "media")
	v.SetDefault("log_level", "info")

	root := &cobra.Command{
		Use:          "relay",
		Short:        "Development relay for fcschat",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.String("jwt-secret", "", "HMAC secret for bearer tokens (RELAY_JWT_SECRET)")
	pf.String("log-level", "", "log level")
	pf.Bool("dev", false, "human-readable logs")
	_ = v.BindPFlag("jwt_secret", pf.Lookup("jwt-secret"))
	_ = v.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = v.BindPFlag("dev", pf.Lookup("dev"))

	root.AddCommand(serveCmd(v), tokenCmd(v))
	return root
}

func secret(v *viper.Viper) ([]byte, error) {
	s := v.GetString("jwt_secret")
	if s == "" {
		return nil, errors.New("jwt secret required (--jwt-secret or RELAY_JWT_SECRET)")
	}
	return []byte(s), nil
}

func serveCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := secret(v)
			if err != nil {
				return err
			}
			log, err := logger.New(v.GetString("log_level"), v.GetBool("dev"))
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			store, err := devrelay.OpenStore(v.GetString("db"))
			if err != nil {
				return fmt.Errorf("open %s: %w", v.GetString("db"), err)
			}
			defer store.Close()

			srv := devrelay.NewServer(store, key, v.GetString("media_dir"), log)
			if err := srv.Serve(cmd.Context(), v.GetString("addr")); err != nil {
				log.Error("relay stopped", zap.Error(err))
				return err
			}
			log.Info("relay stopped")
			return nil
		},
	}
	f := cmd.Flags()
	f.String("addr", "", "listen address (RELAY_ADDR)")
	f.String("db", "", "sqlite database path (RELAY_DB)")
	f.String("media-dir", "", "attachment directory (RELAY_MEDIA_DIR)")
	_ = v.BindPFlag("addr", f.Lookup("addr"))
	_ = v.BindPFlag("db", f.Lookup("db"))
	_ = v.BindPFlag("media_dir", f.Lookup("media-dir"))
	return cmd
}

// token mints a bearer token for an existing user id, for scripting.
func tokenCmd(v *viper.Viper) *cobra.Command {
	var ttl string
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := secret(v)
			if err != nil {
				return err
			}
			d := devrelay.TokenTTL
			if ttl != "" {
				if d, err = parseTTL(ttl); err != nil {
					return err
				}
			}
			tok, err := devrelay.IssueToken(key, domain.UserID(args[0]), d)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&ttl, "ttl", "", "token lifetime, e.g. 1h (default 24h)")
	return cmd
}
