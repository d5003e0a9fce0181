package reflective

import (
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/gepa-run/gepa-engine/internal/domain"
)

// defaultTemplate has exactly two named holes: the current text of the
// component being rewritten, and a markdown rendering of its feedback
// records.
const defaultTemplateText = `You are improving one component of a larger program.

## Current text

` + "```" + `
{{.CurrentText}}
` + "```" + `

## Feedback from recent executions

{{.FeedbackMarkdown}}

## Instructions

Rewrite the component above so it performs better against the feedback.
Reply with exactly one fenced code block containing the full replacement
text and nothing else.
`

var defaultTemplate = template.Must(template.New("instruction_proposal").Parse(defaultTemplateText))

type templateData struct {
	CurrentText      string
	FeedbackMarkdown string
}

// RenderPrompt fills the default template's two holes: the component's
// current text, and a markdown rendering of its feedback records — each
// record rendered as its own nested headed section.
func RenderPrompt(currentText string, records []map[string]any) (string, error) {
	var buf strings.Builder
	data := templateData{
		CurrentText:      currentText,
		FeedbackMarkdown: renderFeedbackMarkdown(records),
	}
	if err := defaultTemplate.Execute(&buf, data); err != nil {
		return "", domain.WrapProposalError(err)
	}
	return buf.String(), nil
}

func renderFeedbackMarkdown(records []map[string]any) string {
	if len(records) == 0 {
		return "_(no feedback records)_"
	}
	var b strings.Builder
	for i, record := range records {
		fmt.Fprintf(&b, "### Example %d\n\n", i+1)
		keys := make([]string, 0, len(record))
		for k := range record {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "#### %s\n\n%v\n\n", k, record[k])
		}
	}
	return b.String()
}

// ExtractFencedBlock pulls the first triple-backtick fenced block out of
// text, stripping an optional language tag right after the opening fence.
// If no closing fence is found, everything after the opening fence runs to
// end-of-string. An empty extraction is a proposal error.
func ExtractFencedBlock(text string) (string, error) {
	const fence = "```"
	start := strings.Index(text, fence)
	if start == -1 {
		return "", domain.WrapProposalError(fmt.Errorf("no fenced block found in LM reply"))
	}
	rest := text[start+len(fence):]
	// Strip an optional language tag: everything up to the first newline,
	// as long as that header line contains no fence and is shorter than 40
	// characters once trimmed.
	if nl := strings.Index(rest, "\n"); nl != -1 {
		header := rest[:nl]
		if !strings.Contains(header, fence) && len(strings.TrimSpace(header)) < 40 {
			rest = rest[nl+1:]
		}
	}
	end := strings.Index(rest, fence)
	var body string
	if end == -1 {
		body = rest
	} else {
		body = rest[:end]
	}
	body = strings.TrimRight(body, "\n")
	if strings.TrimSpace(body) == "" {
		return "", domain.WrapProposalError(fmt.Errorf("empty fenced block extracted from LM reply"))
	}
	return body, nil
}
