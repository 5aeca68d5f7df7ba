package app

import (
	"fmt"
	"strings"

	"github.com/nathantilsley/compat-sentry/internal/pipeline/domain"
)

// maxOutputLines bounds the per-step output included in reports.
const maxOutputLines = 100

// Conclusion maps a run result to a GitHub check run conclusion.
func Conclusion(res domain.RunResult) string {
	if res.Failed() {
		return "failure"
	}
	return "success"
}

// Title produces the one-line summary used as check run title.
func Title(res domain.RunResult) string {
	passed, failed, skipped := domain.CountByStatus(res.Steps)
	if res.Failed() {
		return fmt.Sprintf("Backwards-compatibility pipeline failed: %d passed, %d failed, %d skipped", passed, failed, skipped)
	}
	return fmt.Sprintf("Backwards-compatibility pipeline passed: %d step(s)", passed)
}

// RenderCheckRun produces the markdown body of the check run: a step table
// with collapsible per-step output sections, plus the descriptor diff when
// one was computed.
func RenderCheckRun(res domain.RunResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# compat-sentry: %s\n\n", res.Workflow)
	fmt.Fprintf(&sb, "**Conclusion:** %s\n\n", Conclusion(res))

	sb.WriteString("### Steps\n\n")
	sb.WriteString("| Step | Status | Duration |\n")
	sb.WriteString("|------|--------|----------|\n")
	for _, s := range res.Steps {
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", s.Name, s.Status, s.Duration)
	}
	sb.WriteString("\n### Output\n")

	for _, s := range res.Steps {
		if s.Status == domain.StatusSkipped {
			continue
		}

		fmt.Fprintf(&sb, "\n<details><summary>%s — %s</summary>\n\n", s.Name, s.Status)
		if s.Err != "" {
			fmt.Fprintf(&sb, "**Error:** %s\n\n", s.Err)
		}
		if out := tailLines(s.Output, maxOutputLines); out != "" {
			fmt.Fprintf(&sb, "```\n%s\n```\n", out)
		} else {
			sb.WriteString("No output.\n")
		}
		sb.WriteString("\n</details>\n")
	}

	if res.DescriptorDiff != "" {
		sb.WriteString("\n### Descriptor changes\n\n")
		fmt.Fprintf(&sb, "```diff\n%s\n```\n", res.DescriptorDiff)
	}

	return sb.String()
}

// RenderPRComment produces the summary comment posted on pull requests.
func RenderPRComment(res domain.RunResult) string {
	var sb strings.Builder
	sb.WriteString("## Compat-Sentry Report\n\n")
	fmt.Fprintf(&sb, "**%s** — %s\n\n", res.Workflow, Title(res))

	sb.WriteString("| Step | Status |\n")
	sb.WriteString("|------|--------|\n")
	for _, s := range res.Steps {
		fmt.Fprintf(&sb, "| %s | %s |\n", s.Name, s.Status)
	}
	sb.WriteString("\n")

	if res.DescriptorDiff != "" {
		sb.WriteString("<details><summary>Descriptor changes</summary>\n\n")
		fmt.Fprintf(&sb, "```diff\n%s\n```\n", res.DescriptorDiff)
		sb.WriteString("</details>\n")
	}

	return sb.String()
}

// tailLines keeps the last n lines of output, prefixing a truncation marker
// when lines were dropped.
func tailLines(s string, n int) string {
	trimmed := strings.TrimRight(s, "\n")
	if trimmed == "" {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) <= n {
		return trimmed
	}
	kept := lines[len(lines)-n:]
	return fmt.Sprintf("... (%d lines truncated)\n%s", len(lines)-n, strings.Join(kept, "\n"))
}
