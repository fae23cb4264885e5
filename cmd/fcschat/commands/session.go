package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/VanshAg283/FCS-Project/internal/app"
	"github.com/VanshAg283/FCS-Project/internal/relay"
)

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <username> <password>",
		Short: "Create a relay account and remember the session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return authenticate(cmd, appCtx.Relay.Register, args[0], args[1])
		},
	}
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username> <password>",
		Short: "Log in and remember the session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return authenticate(cmd, appCtx.Relay.Login, args[0], args[1])
		},
	}
}

func authenticate(
	cmd *cobra.Command,
	fn func(ctx context.Context, username, password string) (relay.Session, error),
	username, password string,
) error {
	sess, err := fn(ctxOf(cmd), username, password)
	if err != nil {
		return err
	}
	if err := app.SaveSession(appCtx.Config.Home, sess.ID, sess.Token); err != nil {
		return err
	}
	fmt.Printf("Logged in as %s (user id %s)\n", username, sess.ID)
	return nil
}
