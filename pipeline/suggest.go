package pipeline

import (
	"strings"
)

// Suggestion is a proposed connection between two widgets. Suggestions are
// heuristic and carry no confidence; they are meant for human review.
type Suggestion struct {
	FromWidgetID string `json:"from_widget_id"`
	FromOutput   string `json:"from_output"`
	ToWidgetID   string `json:"to_widget_id"`
	ToInput      string `json:"to_input"`
}

// SuggestConnections proposes connections between a batch of widgets by
// port name similarity. For every ordered pair of distinct widgets, each
// output of the first is compared with each input of the second; names
// match when, lowercased and with hyphens removed, they are equal or one
// contains the other. Port types are ignored and both directions of a pair
// are considered independently.
func SuggestConnections(widgets []Widget) []Suggestion {
	var suggestions []Suggestion
	for i, from := range widgets {
		for j, to := range widgets {
			if i == j {
				continue
			}
			for _, out := range from.Outputs {
				for _, in := range to.Inputs {
					if !PortNamesMatch(out.Name, in.Name) {
						continue
					}
					suggestions = append(suggestions, Suggestion{
						FromWidgetID: from.ID,
						FromOutput:   out.Name,
						ToWidgetID:   to.ID,
						ToInput:      in.Name,
					})
				}
			}
		}
	}
	return suggestions
}

// PortNamesMatch is the similarity test used by SuggestConnections.
// Names that normalize to the empty string never match.
func PortNamesMatch(output, input string) bool {
	out := normalizePortName(output)
	in := normalizePortName(input)
	if out == "" || in == "" {
		return false
	}
	return out == in || strings.Contains(out, in) || strings.Contains(in, out)
}

func normalizePortName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "-", "")
}

// ApplySuggestions wires every suggestion through the builder. Suggestions
// naming widgets outside the batch are skipped.
func ApplySuggestions(b *Builder, widgets []Widget, suggestions []Suggestion) *Builder {
	byID := make(map[string]Widget, len(widgets))
	for _, w := range widgets {
		byID[w.ID] = w
	}
	for _, s := range suggestions {
		from, ok := byID[s.FromWidgetID]
		if !ok {
			continue
		}
		to, ok := byID[s.ToWidgetID]
		if !ok {
			continue
		}
		b.Connect(from, s.FromOutput).To(to, s.ToInput)
	}
	return b
}
