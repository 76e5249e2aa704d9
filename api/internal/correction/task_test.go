package correction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTaskKind(t *testing.T) {
	tests := []struct {
		in   string
		want TaskKind
		ok   bool
	}{
		{"word", TaskWord, true},
		{"word_correction", TaskWord, true},
		{" Sentence ", TaskSentence, true},
		{"sentence_correction", TaskSentence, true},
		{"command_correction", TaskCommand, true},
		{"spacing", TaskSpacing, true},
		{"space_correction", TaskSpacing, true},
		{"spacing_correction", "", false},
		{"", "", false},
		{"grammar", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseTaskKind(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestTaskKind_Prompt(t *testing.T) {
	assert.Equal(t, "Correct the spelling of these words: helo wrld", TaskWord.Prompt("helo wrld"))
	assert.Equal(t, "Correct the grammar and spelling of this sentence: i has a apple", TaskSentence.Prompt("i has a apple"))
	assert.Equal(t,
		"Interpret and correct this natural language command. Output only the corrected command: opn teh fil",
		TaskCommand.Prompt("opn teh fil"))
	assert.Equal(t,
		"Correct the spacing in this text. Output only the text with corrected spacing: thisisatest",
		TaskSpacing.Prompt("thisisatest"))

	// input is passed through verbatim
	assert.Equal(t, TaskWord.Prefix()+"  x\n", TaskWord.Prompt("  x\n"))
	assert.Equal(t, "raw", TaskKind("other").Prompt("raw"))
}

func TestTaskKind_Metadata(t *testing.T) {
	assert.Len(t, AllTasks, 4)
	for _, k := range AllTasks {
		assert.NotEmpty(t, k.Title(), k)
		parsed, ok := ParseTaskKind(k.Action())
		assert.True(t, ok, k)
		assert.Equal(t, k, parsed)
	}
	assert.Empty(t, TaskKind("nope").Action())
	assert.Equal(t, "Spacing Correction", TaskSpacing.Title())
}
