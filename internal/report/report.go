// Package report describes a pipeline as Markdown or sanitized HTML, for pasting
// into notes and experiment logs.
package report

import (
	"fmt"
	"strings"

	"procpipe/internal/pipeline"
	"procpipe/internal/process"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

// Markdown describes p: the command in a code block followed by a table with one
// row per stage.
func Markdown(p *pipeline.Pipeline, verbosity process.Verbosity) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Pipeline (%d stages)\n\n", p.Len())
	sb.WriteString("```sh\n")
	sb.WriteString(p.Display(verbosity))
	sb.WriteString("\n```\n\n")

	sb.WriteString("| Stage | Program | Arguments |\n")
	sb.WriteString("|------:|---------|----------:|\n")
	for i, stage := range p.Stages() {
		fmt.Fprintf(&sb, "| %d | `%s` | %d |\n", i, strings.ReplaceAll(stage.Program(), "`", "'"), len(stage.Args()))
	}
	return sb.String()
}

// HTML renders Markdown(p, verbosity) to sanitized HTML.
func HTML(p *pipeline.Pipeline, verbosity process.Verbosity) string {
	return RenderToHTML(Markdown(p, verbosity))
}

// RenderToHTML converts markdown text to sanitized HTML.
// It uses blackfriday for markdown parsing and bluemonday for HTML sanitization.
func RenderToHTML(markdown string) string {
	unsafeHTML := blackfriday.Run(
		[]byte(markdown),
		blackfriday.WithExtensions(blackfriday.CommonExtensions),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre")

	return string(policy.SanitizeBytes(unsafeHTML))
}
