// Package banner renders the final skill selection into the text block the
// assistant sees ahead of the user's prompt. Rendering is a pure function
// of the selection; all decisions happen upstream in the pipeline.
package banner

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Method describes how the confidence scores were produced, surfaced so
// users understand reduced precision when a fallback path was taken.
type Method string

const (
	MethodAI       Method = "AI-scored"
	MethodCached   Method = "AI-scored (cached)"
	MethodKeyword  Method = "keyword matching"
	MethodFallback Method = "keyword matching (fallback)"
)

// Item is one skill in the banner with its presentation metadata.
type Item struct {
	ID            string
	Confidence    float64
	HasConfidence bool
	InjectionType string // "direct", "affinity" or "promoted"
}

// Selection is the formatter's input: the pipeline's final answer.
type Selection struct {
	Injected      []Item
	AlreadyLoaded []string
	Suggested     []Item
	Method        Method
}

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// Render produces the activation banner. Sections with empty sets are
// omitted entirely; if every set is empty the banner itself is omitted and
// the empty string is returned. In debug mode confidence scores and
// injection-type annotations are appended inline.
func Render(sel Selection, debug bool) string {
	if len(sel.Injected) == 0 && len(sel.AlreadyLoaded) == 0 && len(sel.Suggested) == 0 {
		return ""
	}

	header := color.New(color.Bold)
	injectedColor := color.New(color.FgYellow)
	loadedColor := color.New(color.Faint)
	suggestedColor := color.New(color.FgGreen)

	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString(header.Sprint("🎯 SKILL ACTIVATION CHECK") + "\n")
	b.WriteString(rule + "\n\n")

	if len(sel.Injected) > 0 {
		b.WriteString(color.New(color.FgRed, color.Bold).Sprint("⚡ ACTIVATED SKILLS:") + "\n")
		for _, item := range sel.Injected {
			b.WriteString("  → " + injectedColor.Sprint(item.ID) + annotate(item, debug) + "\n")
		}
		b.WriteString("\n")
	}

	if len(sel.AlreadyLoaded) > 0 {
		b.WriteString(color.New(color.FgBlue, color.Bold).Sprint("📌 ALREADY LOADED:") + "\n")
		for _, id := range sel.AlreadyLoaded {
			b.WriteString("  → " + loadedColor.Sprint(id) + "\n")
		}
		b.WriteString("\n")
	}

	if len(sel.Suggested) > 0 {
		b.WriteString(color.New(color.FgGreen, color.Bold).Sprint("💡 SUGGESTED SKILLS:") + "\n")
		for _, item := range sel.Suggested {
			b.WriteString("  → " + suggestedColor.Sprint(item.ID) + annotate(item, debug) + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("analysis: %s\n", sel.Method))
	b.WriteString(rule + "\n")
	return b.String()
}

// annotate appends debug metadata to a line: the confidence score and how
// the skill entered the set.
func annotate(item Item, debug bool) string {
	if !debug {
		return ""
	}

	var parts []string
	if item.HasConfidence {
		parts = append(parts, fmt.Sprintf("confidence %.2f", item.Confidence))
	}
	switch item.InjectionType {
	case "affinity":
		parts = append(parts, "affinity: free bonus")
	case "promoted":
		parts = append(parts, "promoted from suggested")
	}

	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
