package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/VanshAg283/FCS-Project/internal/app"
	"github.com/VanshAg283/FCS-Project/internal/domain"
)

func keygenCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate the key pair, store it securely and publish the public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if appCtx.Config.Passphrase == "" {
				return app.ErrNoPassphrase
			}
			has, err := appCtx.Store.HasPrivateKey()
			if err != nil {
				return err
			}
			if has && !force {
				return errors.New("a key pair already exists; use --force to replace it")
			}
			if _, err := appCtx.Keys.Generate(appCtx.Config.Passphrase); err != nil {
				return err
			}
			fp, err := appCtx.Keys.Fingerprint()
			if err != nil {
				return err
			}
			fmt.Printf("Key pair created.\nFingerprint: %s\n", fp)

			if err := appCtx.RequireSession(); err != nil {
				fmt.Println("Not published: log in, then run `fcschat keygen --force` again.")
				return nil
			}
			if err := appCtx.Keys.Publish(ctxOf(cmd)); err != nil {
				return fmt.Errorf("publish public key: %w", err)
			}
			fmt.Println("Public key published.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing key pair")
	return cmd
}

func pubkeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pubkey",
		Short: "Print the portable public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appCtx.Unlock(); err != nil {
				return err
			}
			pk, err := appCtx.Keys.ExportPublicKey()
			if err != nil {
				return err
			}
			fmt.Println(pk)
			return nil
		},
	}
}

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint [peer]",
		Short: "Print your key fingerprint, or a peer's from the relay directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := appCtx.RequireSession(); err != nil {
					return err
				}
				fp, err := appCtx.Keys.PeerFingerprint(ctxOf(cmd), domain.UserID(args[0]))
				if err != nil {
					return err
				}
				fmt.Printf("Fingerprint of %s: %s\n", args[0], fp)
				return nil
			}
			if err := appCtx.Unlock(); err != nil {
				return err
			}
			fp, err := appCtx.Keys.Fingerprint()
			if err != nil {
				return err
			}
			fmt.Printf("Fingerprint: %s\n", fp)
			return nil
		},
	}
}
