package correction

import (
	"fmt"
	"strings"
	"unicode"
)

// Metrics compares the user's text with the corrected text word by word.
// AccuracyRate is nil when the original text has no words.
type Metrics struct {
	ErrorCount            int      `json:"errorCount"`
	AccuracyRate          *float64 `json:"accuracyRate"`
	CorrectWordCount      int      `json:"correctWordCount"`
	LengthDelta           int      `json:"lengthDelta"`
	NeedsSuggestions      bool     `json:"needsSuggestions"`
	AutoAssistantDisabled bool     `json:"autoAssistantDisabled"`
}

// isSeparator is unicode.IsSpace plus the ASCII information separators U+001C..U+001F.
func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

func words(s string) []string { return strings.FieldsFunc(s, isSeparator) }

// ComputeMetrics compares words by position only: a word that merely moved
// counts as an error. It never fails.
func ComputeMetrics(original, corrected string) Metrics {
	ow := words(original)
	cw := words(corrected)

	var m Metrics
	n := min(len(ow), len(cw))
	for i := 0; i < n; i++ {
		if ow[i] != cw[i] {
			m.ErrorCount++
		} else {
			m.CorrectWordCount++
		}
	}

	m.LengthDelta = abs(len(ow) - len(cw))
	m.ErrorCount += m.LengthDelta

	if len(ow) > 0 {
		rate := float64(len(ow)-m.ErrorCount) / float64(len(ow)) * 100
		m.AccuracyRate = &rate
	}

	m.NeedsSuggestions = m.ErrorCount > 0
	m.AutoAssistantDisabled = m.NeedsSuggestions
	return m
}

// AccuracyLabel renders the rate with two decimals, or "-" when undefined.
func (m Metrics) AccuracyLabel() string {
	if m.AccuracyRate == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", *m.AccuracyRate)
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (m Metrics) NeedsSuggestionsLabel() string      { return flag(m.NeedsSuggestions) }
func (m Metrics) AutoAssistantDisabledLabel() string { return flag(m.AutoAssistantDisabled) }

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
