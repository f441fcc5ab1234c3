package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
)

// DateLayout formats the report date.
const DateLayout = "2006-01-02 15:04"

// WriteText writes a plain-text rendition of r.
func WriteText(w io.Writer, r *Report) error {
	var sb strings.Builder
	sb.WriteString("Session Report\n")
	sb.WriteString(r.Title + "\n\n")
	fmt.Fprintf(&sb, "Date:    %s\n", r.Date.Format(DateLayout))
	fmt.Fprintf(&sb, "Patient: %s\n", r.Patient)
	sb.WriteString("\nSession Summary\n")
	for _, e := range r.Entries {
		writeTextEntry(&sb, e, 0)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeTextEntry(sb *strings.Builder, e Entry, depth int) {
	indent := strings.Repeat("  ", depth)
	bullet := ""
	if depth > 0 {
		bullet = "- "
	}
	if e.IsGroup() {
		fmt.Fprintf(sb, "%s%s%s:\n", indent, bullet, e.Label)
		for _, item := range e.Items {
			writeTextEntry(sb, item, depth+1)
		}
		return
	}
	fmt.Fprintf(sb, "%s%s%s: %s\n", indent, bullet, e.Label, e.Value)
}

// Markdown renders r as a Markdown document.
func Markdown(r *Report) string {
	var sb strings.Builder
	sb.WriteString("# Session Report\n\n")
	fmt.Fprintf(&sb, "**%s**\n\n", r.Title)
	fmt.Fprintf(&sb, "- **Date:** %s\n", r.Date.Format(DateLayout))
	fmt.Fprintf(&sb, "- **Patient:** %s\n", r.Patient)
	sb.WriteString("\n## Session Summary\n")
	for _, e := range r.Entries {
		fmt.Fprintf(&sb, "\n### %s\n\n", e.Label)
		if !e.IsGroup() {
			if e.Value == "" {
				sb.WriteString("_No answer_\n")
			} else {
				sb.WriteString(e.Value + "\n")
			}
			continue
		}
		writeMarkdownItems(&sb, e.Items, 0)
	}
	return sb.String()
}

func writeMarkdownItems(sb *strings.Builder, items []Entry, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, item := range items {
		if item.IsGroup() {
			fmt.Fprintf(sb, "%s- **%s:**\n", indent, item.Label)
			writeMarkdownItems(sb, item.Items, depth+1)
			continue
		}
		fmt.Fprintf(sb, "%s- **%s:** %s\n", indent, item.Label, item.Value)
	}
}

// Terminal renders the Markdown form of r for a terminal of the given width.
// style is a glamour style name; empty selects one from the terminal background.
func Terminal(r *Report, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}

	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := renderer.Render(Markdown(r))
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return out, nil
}
