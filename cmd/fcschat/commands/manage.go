package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/VanshAg283/FCS-Project/internal/domain"
)

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <message-id>",
		Short: "Delete a message you sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appCtx.RequireSession(); err != nil {
				return err
			}
			if err := appCtx.Relay.DeleteMessage(ctxOf(cmd), domain.MessageID(args[0])); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}
}

func groupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage groups",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create <name> [member-id...]",
		Short: "Create a group with you and the given members",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appCtx.RequireSession(); err != nil {
				return err
			}
			members := make([]domain.UserID, 0, len(args)-1)
			for _, m := range args[1:] {
				members = append(members, domain.UserID(m))
			}
			id, err := appCtx.Relay.CreateGroup(ctxOf(cmd), args[0], members)
			if err != nil {
				return err
			}
			fmt.Printf("group %s created\n", id)
			return nil
		},
	}, &cobra.Command{
		Use:   "members <group-id>",
		Short: "List group members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appCtx.RequireSession(); err != nil {
				return err
			}
			members, err := appCtx.Relay.FetchGroupMembers(ctxOf(cmd), domain.GroupID(args[0]))
			if err != nil {
				return err
			}
			for _, m := range members {
				fmt.Println(m)
			}
			return nil
		},
	})
	return cmd
}

func blockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "block <user-id>",
		Short: "Stop a user from messaging you",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appCtx.RequireSession(); err != nil {
				return err
			}
			if err := appCtx.Relay.Block(ctxOf(cmd), domain.UserID(args[0])); err != nil {
				return err
			}
			fmt.Printf("blocked %s\n", args[0])
			return nil
		},
	}
}
