package correction

import "strings"

// TaskKind selects the canned correction prompt.
type TaskKind string

const (
	TaskWord     TaskKind = "word"
	TaskSentence TaskKind = "sentence"
	TaskCommand  TaskKind = "command"
	TaskSpacing  TaskKind = "spacing"
)

// AllTasks is the display order of the four blocks.
var AllTasks = []TaskKind{TaskWord, TaskSentence, TaskCommand, TaskSpacing}

type taskInfo struct {
	action string
	prefix string
	title  string
}

var tasks = map[TaskKind]taskInfo{
	TaskWord: {
		action: "word_correction",
		prefix: "Correct the spelling of these words: ",
		title:  "Misspelled Words Correction",
	},
	TaskSentence: {
		action: "sentence_correction",
		prefix: "Correct the grammar and spelling of this sentence: ",
		title:  "Misspelled Sentences Correction",
	},
	TaskCommand: {
		action: "command_correction",
		prefix: "Interpret and correct this natural language command. Output only the corrected command: ",
		title:  "Command Correction",
	},
	TaskSpacing: {
		action: "space_correction",
		prefix: "Correct the spacing in this text. Output only the text with corrected spacing: ",
		title:  "Spacing Correction",
	},
}

// ParseTaskKind accepts both the short name ("word") and the form action ("word_correction").
func ParseTaskKind(s string) (TaskKind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, info := range tasks {
		if s == string(k) || s == info.action {
			return k, true
		}
	}
	return "", false
}

// Prefix is empty for unknown kinds, which yields an unprefixed prompt.
func (k TaskKind) Prefix() string { return tasks[k].prefix }

// Action is the form action value posted by the page.
func (k TaskKind) Action() string { return tasks[k].action }

func (k TaskKind) Title() string { return tasks[k].title }

// Prompt joins the task prefix and the user's text.
func (k TaskKind) Prompt(input string) string {
	return k.Prefix() + input
}
