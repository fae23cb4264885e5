package commands

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "history [peer]",
		Short: "Print a conversation grouped by day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var peer string
			if len(args) == 1 {
				peer = args[0]
			}
			conv, err := conversationFor(peer, group)
			if err != nil {
				return err
			}
			if err := openConversation(ctxOf(cmd), conv); err != nil {
				return err
			}
			printTimeline(os.Stdout, time.Now())
			return nil
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "show this group")
	return cmd
}
