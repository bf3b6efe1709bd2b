package summarizer

import (
	"fmt"
	"strings"
	"text/template"
)

const systemPrompt = "You are a helpful assistant that writes concise work summaries."

var promptTemplate = template.Must(template.New("summary").Parse(
	`Summarize the following work log entries written during one day.
Group related entries, keep every concrete task that was done and mention blockers if any.
Answer in {{.Language}} with at most ten short bullet points and no preamble.

Work log:
{{.Text}}
`))

type prompt struct {
	language string
}

func newPrompt(language string) prompt {
	language = strings.TrimSpace(language)
	if language == "" {
		language = "English"
	}
	return prompt{language: language}
}

func (p prompt) render(text string) (string, error) {
	var b strings.Builder
	err := promptTemplate.Execute(&b, struct {
		Language string
		Text     string
	}{p.language, text})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}
