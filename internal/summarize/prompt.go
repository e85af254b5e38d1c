// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// SystemPrompt is the role description sent with every task.
const SystemPrompt = "You are an expert research assistant specializing in robotics and AI."

var taskTemplates = map[types.SummaryTask]*template.Template{
	types.TaskSummarize: template.Must(template.New("summarize").Parse(`Please provide a concise academic summary of this research paper:

Title: {{.Title}}

Text: {{.Excerpt}}...

Provide a summary covering:
1. Main contribution
2. Methodology
3. Key findings
4. Significance

Keep it under 200 words and academic in tone.`)),

	types.TaskExtractKeywords: template.Must(template.New("extract_keywords").Parse(`Extract the most important keywords and research concepts from this paper:

Title: {{.Title}}
Text: {{.Excerpt}}...

List 10-15 key technical terms, methods, and concepts.`)),

	types.TaskFindMethodology: template.Must(template.New("find_methodology").Parse(`Identify and summarize the research methodology used in this paper:

Title: {{.Title}}
Text: {{.Excerpt}}...

Focus on:
1. Research approach
2. Experimental setup
3. Data collection methods
4. Analysis techniques`)),

	types.TaskIdentifyGaps: template.Must(template.New("identify_gaps").Parse(`Identify research gaps and future work opportunities mentioned in this paper:

Title: {{.Title}}
Text: {{.Excerpt}}...

Highlight:
1. Limitations mentioned by authors
2. Suggested future work
3. Potential research directions`)),
}

// RenderPrompt executes the instruction template for task.
func RenderPrompt(task types.SummaryTask, title, excerpt string) (string, error) {
	tmpl, ok := taskTemplates[task]
	if !ok {
		return "", fmt.Errorf("unknown summary task %q", task)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Title, Excerpt string }{title, excerpt}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Excerpt returns the first n characters of text.
func Excerpt(text string, n int) string {
	if n <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
