package telegram

import (
	"fmt"
	"strings"

	"typing-assistant/api/internal/correction"
)

const maxMessageRunes = 3900

func FormatResult(res correction.Result) string {
	m := res.Metrics
	icon := "✏️"
	if res.Failure != nil {
		icon = "⚠️"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", icon, res.Task.Title())
	b.WriteString(res.Corrected)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Errors: %d\n", m.ErrorCount)
	fmt.Fprintf(&b, "Accuracy Rate: %s\n", m.AccuracyLabel())
	fmt.Fprintf(&b, "Correct Words: %d\n", m.CorrectWordCount)
	fmt.Fprintf(&b, "Missing Data per Count Time: %d\n", m.LengthDelta)
	fmt.Fprintf(&b, "Needs Suggestions: %s\n", m.NeedsSuggestionsLabel())
	fmt.Fprintf(&b, "Auto Assistant Becomes 0: %s", m.AutoAssistantDisabledLabel())
	return b.String()
}

// truncate keeps messages under the Telegram limit without splitting a rune.
func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxMessageRunes {
		return s
	}
	return string(r[:maxMessageRunes]) + "…"
}
