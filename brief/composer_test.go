package brief

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/Panchalparth471/Peppo-AI-Backend/types"
)

func msg(role types.Role, text string) types.Message {
	return types.Message{Role: role, Text: text}
}

func TestCompose_NoHistory(t *testing.T) {
	brief, ack := Compose(nil, "  A cat on a skateboard  ")

	assert.Equal(t, "A cat on a skateboard", brief)
	assert.Equal(t, Ack, ack)
}

func TestCompose_WithHistory(t *testing.T) {
	history := []types.Message{
		msg(types.RoleUser, "make it rainy"),
		msg(types.RoleAssistant, "ok"),
	}

	brief, _ := Compose(history, "A cat on a skateboard")

	assert.Equal(t, "A cat on a skateboard — Context: user: make it rainy | assistant: ok", brief)
}

func TestCompose_HistoryWindow(t *testing.T) {
	var history []types.Message
	for i := 0; i < 10; i++ {
		history = append(history, msg(types.RoleUser, strings.Repeat("x", 3)))
	}
	history = append(history, msg(types.RoleAssistant, "newest"))

	brief, _ := Compose(history, "prompt")

	// Only the trailing six messages are rendered: five separators.
	assert.Equal(t, 5, strings.Count(brief, " | "))
	assert.Contains(t, brief, "newest")
}

func TestCompose_Truncation(t *testing.T) {
	longPrompt := strings.Repeat("a", 700)

	brief, _ := Compose(nil, longPrompt)

	assert.Len(t, brief, 603)
	assert.True(t, strings.HasSuffix(brief, "..."))
}

func TestCompose_LengthInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		prompt := rapid.StringN(0, 2000, -1).Draw(t, "prompt")
		n := rapid.IntRange(0, 12).Draw(t, "n")
		var history []types.Message
		for i := 0; i < n; i++ {
			history = append(history, msg(types.RoleUser, rapid.StringN(0, 300, -1).Draw(t, "text")))
		}

		brief, _ := Compose(history, prompt)
		if len(brief) > 603 {
			t.Fatalf("brief length %d exceeds 603", len(brief))
		}
	})
}

func TestCompose_Deterministic(t *testing.T) {
	history := []types.Message{msg(types.RoleUser, "hello")}

	a, _ := Compose(history, "prompt")
	b, _ := Compose(history, "prompt")

	assert.Equal(t, a, b)
}
