package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// send <peer> <message> | send --group <id> <message>
func sendCmd() *cobra.Command {
	var group, media string
	cmd := &cobra.Command{
		Use:   "send [peer] <message>",
		Short: "Encrypt and send a message to a peer or group",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var peer string
			if len(args) == 2 {
				peer = args[0]
			}
			text := args[len(args)-1]
			conv, err := conversationFor(peer, group)
			if err != nil {
				return err
			}
			ctx := ctxOf(cmd)
			if err := openConversation(ctx, conv); err != nil {
				return err
			}

			if media == "" {
				id, err := appCtx.Messages.Send(ctx, text)
				if err != nil {
					return err
				}
				fmt.Printf("sent %s\n", id)
				return nil
			}
			upload, err := readMedia(media)
			if err != nil {
				return err
			}
			id, err := appCtx.Messages.SendWithMedia(ctx, text, upload)
			if err != nil {
				return err
			}
			fmt.Printf("sent %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "send to this group id")
	cmd.Flags().StringVar(&media, "media", "", "attach an image, gif, svg or video file")
	return cmd
}
