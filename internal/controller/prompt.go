package controller

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aaltonen/chanflow/internal/domain"
)

type promptInputs struct {
	agent        string
	workflow     string
	inbox        []domain.InboxEntry
	recent       []domain.Message
	projectDir   string
	retryAttempt int
	maxAttempts  int
}

// buildPrompt assembles the per-turn prompt: a fixed prelude, an Inbox
// section, a Recent Activity section, a working directory line, and (on
// retry) a retry notice.
func buildPrompt(in promptInputs) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are agent @%s in workflow %q.\n", in.agent, in.workflow)
	b.WriteString("Reply by calling channel_send; mention @name to address a peer.\n\n")

	b.WriteString("## Inbox\n")
	if len(in.inbox) == 0 {
		b.WriteString("(empty)\n")
	} else {
		sorted := append([]domain.InboxEntry(nil), in.inbox...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return priorityRank(sorted[i].Priority) < priorityRank(sorted[j].Priority)
		})
		for _, e := range sorted {
			fmt.Fprintf(&b, "From @%s: %s\n", e.From, e.Content)
		}
	}
	b.WriteString("\n")

	b.WriteString("## Recent Activity\n")
	if len(in.recent) == 0 {
		b.WriteString("(none)\n")
	} else {
		for _, m := range in.recent {
			from := m.From
			if m.To != "" {
				from = fmt.Sprintf("%s→%s", m.From, m.To)
			}
			fmt.Fprintf(&b, "[%s] %s: %s\n", m.Timestamp, from, m.Content)
		}
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Working on: %s\n", in.projectDir)

	if in.retryAttempt > 0 {
		fmt.Fprintf(&b, "\nThis is retry attempt %d of %d.\n", in.retryAttempt+1, in.maxAttempts)
	}

	return b.String()
}

// priorityRank orders inbox entries DM > @mention > system-mention for
// display, matching the inbox's priority annotation.
func priorityRank(p string) int {
	switch p {
	case "dm":
		return 0
	case "mention":
		return 1
	case "system-mention":
		return 2
	default:
		return 3
	}
}
