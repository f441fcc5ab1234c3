package graph

import (
	"fmt"
	"strings"

	"github.com/manas360/stepwise/pkg/domain"
)

// Overlay marks session progress on the chart.
type Overlay struct {
	Visited []int
	Current int
}

// OverlayFor builds the overlay of a session state.
func OverlayFor(state *domain.SessionState) *Overlay {
	if state == nil {
		return nil
	}
	return &Overlay{Visited: state.History, Current: state.CurrentStep}
}

// GenerateMermaid renders a protocol as a Mermaid flowchart.
// Shapes:
// - First step: ((Circle))
// - Terminal step: (((Double circle)))
// - Steps with multi-select or group fields: [/Parallelogram/]
// - Default: [Rectangle]
func GenerateMermaid(schema *domain.StepSchema, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i, step := range schema.Steps {
		id := nodeID(step)
		opener, closer := "[", "]"
		switch {
		case step.Terminal:
			opener, closer = "(((", ")))"
		case i == 0:
			opener, closer = "((", "))"
		case hasStructuredInput(step):
			opener, closer = "[/", "/]"
		}

		label := fmt.Sprintf("%d. %s", step.Index, strings.ReplaceAll(step.Title, "\"", "'"))
		if n := len(step.Fields); n > 0 {
			label = fmt.Sprintf("%s <br/> %d field(s)", label, n)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, label, closer)

		if i > 0 {
			fmt.Fprintf(&sb, "    %s --> %s\n", nodeID(schema.Steps[i-1]), id)
		}
	}

	if overlay == nil {
		return sb.String()
	}

	sb.WriteString("\n    %% Overlay Styles\n")
	sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

	seen := make(map[int]bool)
	for _, idx := range overlay.Visited {
		step, ok := schema.Step(idx)
		if !ok || seen[idx] {
			continue
		}
		seen[idx] = true
		fmt.Fprintf(&sb, "    class %s visited;\n", nodeID(step))
	}
	if step, ok := schema.Step(overlay.Current); ok {
		fmt.Fprintf(&sb, "    class %s current;\n", nodeID(step))
	}

	return sb.String()
}

func hasStructuredInput(step domain.StepDefinition) bool {
	for _, f := range step.Fields {
		if f.Kind == domain.FieldMultiSelect || f.Kind == domain.FieldGroup {
			return true
		}
	}
	return false
}

func nodeID(step domain.StepDefinition) string {
	if step.ID == "" {
		return fmt.Sprintf("step_%d", step.Index)
	}
	return fmt.Sprintf("s%d_%s", step.Index, sanitizeMermaidID(step.ID))
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
