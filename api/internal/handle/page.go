package handle

import (
	"embed"
	"html/template"
	"io"
	"strconv"

	"typing-assistant/api/internal/correction"
)

//go:embed templates/index.html
var templatesFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

type blockCopy struct {
	label       string
	placeholder string
	button      string
}

var copyByTask = map[correction.TaskKind]blockCopy{
	correction.TaskWord:     {"Enter misspelled words:", "e.g., mispelled wrods for corecction", "Correct Words"},
	correction.TaskSentence: {"Enter misspelled sentences:", "e.g., this is a gramatticaly uncorrect sentance.", "Correct Sentences"},
	correction.TaskCommand:  {"Enter a wrong command:", "e.g., open da fiile on dekstop", "Correct Command"},
	correction.TaskSpacing:  {"Enter text with wrong spacing:", "e.g., Thisis badlyspaced text with toomany or toolittle spaces.", "Correct Spacing"},
}

type metricsView struct {
	Errors                string
	Accuracy              string
	CorrectWords          string
	LengthDelta           string
	NeedsSuggestions      string
	AutoAssistantDisabled string
}

var emptyMetrics = metricsView{"-", "-", "-", "-", "-", "-"}

func newMetricsView(m correction.Metrics) metricsView {
	return metricsView{
		Errors:                strconv.Itoa(m.ErrorCount),
		Accuracy:              m.AccuracyLabel(),
		CorrectWords:          strconv.Itoa(m.CorrectWordCount),
		LengthDelta:           strconv.Itoa(m.LengthDelta),
		NeedsSuggestions:      m.NeedsSuggestionsLabel(),
		AutoAssistantDisabled: m.AutoAssistantDisabledLabel(),
	}
}

type blockView struct {
	Number      int
	Title       string
	Action      string
	FieldID     string
	Label       string
	Placeholder string
	Button      string
	Input       string
	Output      string
	Failed      bool
	Metrics     metricsView
}

type pageView struct {
	Blocks []blockView
}

// newPage builds the four blocks; res, if non-nil, fills the block of its task.
func newPage(res *correction.Result) pageView {
	p := pageView{Blocks: make([]blockView, 0, len(correction.AllTasks))}
	for i, k := range correction.AllTasks {
		c := copyByTask[k]
		b := blockView{
			Number:      i + 1,
			Title:       k.Title(),
			Action:      k.Action(),
			FieldID:     "input_" + k.Action(),
			Label:       c.label,
			Placeholder: c.placeholder,
			Button:      c.button,
			Metrics:     emptyMetrics,
		}
		if res != nil && res.Task == k {
			b.Input = res.Input
			b.Output = res.Corrected
			b.Failed = res.Failure != nil
			b.Metrics = newMetricsView(res.Metrics)
		}
		p.Blocks = append(p.Blocks, b)
	}
	return p
}

func renderPage(w io.Writer, res *correction.Result) error {
	return indexTmpl.Execute(w, newPage(res))
}
