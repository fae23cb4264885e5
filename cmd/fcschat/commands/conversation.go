package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/VanshAg283/FCS-Project/internal/domain"
)

// conversationFor picks the conversation named by a peer argument or the
// --group flag.
func conversationFor(peer, group string) (domain.Conversation, error) {
	self := appCtx.Config.User
	switch {
	case peer != "" && group != "":
		return domain.Conversation{}, errors.New("give either a peer or --group, not both")
	case group != "":
		return domain.GroupConversation(self, domain.GroupID(group)), nil
	case peer != "":
		return domain.DirectConversation(self, domain.UserID(peer)), nil
	}
	return domain.Conversation{}, errors.New("a peer or --group is required")
}

// openConversation unlocks the key and opens conv. Transport failures only
// produce a warning: whatever history loaded is shown and sends go through
// the relay API.
func openConversation(ctx context.Context, conv domain.Conversation) error {
	if err := appCtx.RequireSession(); err != nil {
		return err
	}
	if err := appCtx.Unlock(); err != nil {
		return err
	}
	err := appCtx.Messages.Open(ctx, conv)
	if errors.Is(err, domain.ErrTransport) {
		fmt.Fprintf(os.Stderr, "! live updates unavailable: %v\n", err)
		return nil
	}
	return err
}

func printTimeline(w io.Writer, now time.Time) {
	for _, g := range appCtx.Messages.Groups(now) {
		fmt.Fprintf(w, "-- %s --\n", g.Label)
		for _, m := range g.Messages {
			printMessage(w, m)
		}
	}
}

func printMessage(w io.Writer, m domain.ChatMessage) {
	who := m.SenderID.String()
	if m.IsSender {
		who = "me"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s <%s> %s", m.Timestamp.Local().Format("15:04"), m.ID, who, m.DisplayText())
	for _, a := range m.Attachments {
		fmt.Fprintf(&b, " [%s %s]", a.FileType, a.FileURL)
	}
	switch m.Status {
	case domain.StatusPending, domain.StatusFailed:
		fmt.Fprintf(&b, " (%s)", m.Status)
	}
	fmt.Fprintln(w, b.String())
}

func readMedia(path string) (domain.MediaUpload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.MediaUpload{}, err
	}
	return domain.MediaUpload{Name: filepath.Base(path), Data: data}, nil
}
