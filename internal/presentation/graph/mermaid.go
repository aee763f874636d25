// Package graph renders the workflow as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/compass/pkg/workflow"
)

// Overlay contains per-session data to visualize on the graph.
type Overlay struct {
	Visited []string
	Current string
}

// Topology is the part of a compiled workflow the renderer reads.
type Topology interface {
	Nodes() []string
	Entry() string
	Edges() []workflow.Edge
}

// GenerateMermaid produces a Mermaid flowchart of the graph.
// The entry node is drawn as a circle and the end of a turn as a stadium.
// Conditional edges carry their route key as label.
func GenerateMermaid(g Topology, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	entry := g.Entry()
	for _, node := range g.Nodes() {
		opener, closer := "[", "]"
		if node == entry {
			opener, closer = "((", "))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(node), opener, node, closer)
	}
	fmt.Fprintf(&sb, "    %s([\"END\"])\n", sanitizeMermaidID(workflow.End))

	for _, e := range g.Edges() {
		from, to := sanitizeMermaidID(e.From), sanitizeMermaidID(e.To)
		if e.Conditional {
			label := strings.ReplaceAll(e.Label, "\"", "'")
			if e.Label == workflow.End {
				label = "end"
			}
			fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", from, label, to)
			continue
		}
		fmt.Fprintf(&sb, "    %s --> %s\n", from, to)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for contrast on light fills in both themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.Visited {
			safeID := sanitizeMermaidID(id)
			if safeID != "" && !seen[safeID] {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.Current != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.Current))
		}
	}

	return sb.String()
}

// ForVisited returns the overlay of a finished turn: every visited node is
// marked, and the last one is current. Nil when nothing was visited.
func ForVisited(visited []string) *Overlay {
	if len(visited) == 0 {
		return nil
	}
	return &Overlay{Visited: visited, Current: visited[len(visited)-1]}
}

// endID stands in for workflow.End; "end" is reserved in Mermaid.
const endID = "turn_end"

func sanitizeMermaidID(id string) string {
	if id == workflow.End {
		return endID
	}
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", "@", "_").Replace(id)
}
