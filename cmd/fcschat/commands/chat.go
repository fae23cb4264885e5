package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/VanshAg283/FCS-Project/internal/domain"
)

const chatHelp = `/retry <id>    re-send a failed message
/discard <id>  drop a failed message
/delete <id>   delete a message you sent
/media <file> [text]
/history       reprint the conversation
/quit`

func chatCmd() *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "chat [peer]",
		Short: "Interactive conversation with live delivery",
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
			show := func(m domain.ChatMessage) {
				if !m.IsSender {
					printMessage(os.Stdout, m)
				}
			}
			onMessage.Store(&show)
			defer onMessage.Store(nil)

			ctx := ctxOf(cmd)
			if err := openConversation(ctx, conv); err != nil {
				return err
			}
			printTimeline(os.Stdout, time.Now())
			fmt.Println("type /help for commands")
			return chatLoop(ctx)
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "chat in this group")
	return cmd
}

func chatLoop(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := chatLine(ctx, strings.TrimSpace(line))
			if err != nil {
				fmt.Fprintf(os.Stderr, "! %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func chatLine(ctx context.Context, line string) (bool, error) {
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		_, err := appCtx.Messages.Send(ctx, line)
		return false, err
	}

	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch verb {
	case "/quit":
		return true, nil
	case "/help":
		fmt.Println(chatHelp)
	case "/history":
		printTimeline(os.Stdout, time.Now())
	case "/retry":
		_, err := appCtx.Messages.Retry(ctx, domain.MessageID(rest))
		return false, err
	case "/discard":
		return false, appCtx.Messages.Discard(domain.MessageID(rest))
	case "/delete":
		return false, appCtx.Messages.Delete(ctx, domain.MessageID(rest))
	case "/media":
		path, text, _ := strings.Cut(rest, " ")
		upload, err := readMedia(path)
		if err != nil {
			return false, err
		}
		_, err = appCtx.Messages.SendWithMedia(ctx, text, upload)
		return false, err
	default:
		return false, fmt.Errorf("unknown command %s", verb)
	}
	return false, nil
}
