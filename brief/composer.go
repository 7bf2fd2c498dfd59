// Package brief composes bounded generation briefs from the user prompt and
// recent conversation context.
package brief

import (
	"fmt"
	"strings"

	"github.com/Panchalparth471/Peppo-AI-Backend/types"
)

const (
	// maxBriefLen bounds the brief before truncation marking.
	maxBriefLen = 600

	// historyWindow is how many trailing messages feed the context snippet.
	historyWindow = 6
)

// Ack is the fixed assistant acknowledgment recorded alongside every
// generation request.
const Ack = "Generating a short (5s) preview video based on your prompt. I'll return the video when ready."

// Compose builds the generation brief from the prompt and the last few
// history messages. Pure function of its inputs. The returned brief never
// exceeds 603 characters (600 plus the truncation marker).
func Compose(history []types.Message, userPrompt string) (string, string) {
	parts := []string{strings.TrimSpace(userPrompt)}

	if len(history) > 0 {
		last := history
		if len(last) > historyWindow {
			last = last[len(last)-historyWindow:]
		}
		rendered := make([]string, 0, len(last))
		for _, m := range last {
			rendered = append(rendered, fmt.Sprintf("%s: %s", m.Role, m.Text))
		}
		parts = append(parts, "Context: "+strings.Join(rendered, " | "))
	}

	brief := strings.Join(parts, " — ")
	if len(brief) > maxBriefLen {
		brief = brief[:maxBriefLen] + "..."
	}

	return brief, Ack
}
