package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/compass/pkg/domain"
)

// ItineraryMarkdown formats an itinerary as a Markdown document.
func ItineraryMarkdown(it *domain.Itinerary) string {
	if it == nil {
		return "_No itinerary yet._\n"
	}
	var sb strings.Builder

	title := it.Destination
	if it.Theme != "" {
		title = fmt.Sprintf("%s · %s", it.Destination, it.Theme)
	}
	fmt.Fprintf(&sb, "# %s\n\n", strings.TrimSpace(title))
	if it.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", it.Description)
	}

	var facts []string
	if it.DepartureLocation != "" {
		facts = append(facts, "**From:** "+it.DepartureLocation)
	}
	if !it.StartDate.IsZero() {
		dates := it.StartDate.String()
		if !it.EndDate.IsZero() {
			dates += " → " + it.EndDate.String()
		}
		facts = append(facts, "**Dates:** "+dates)
	}
	if it.Duration != "" {
		facts = append(facts, "**Duration:** "+it.Duration)
	}
	if it.Travelers > 0 {
		facts = append(facts, fmt.Sprintf("**Travelers:** %d", it.Travelers))
	}
	if len(facts) > 0 {
		sb.WriteString(strings.Join(facts, " · "))
		sb.WriteString("\n\n")
	}
	if it.Highlight != "" {
		fmt.Fprintf(&sb, "> %s\n\n", it.Highlight)
	}

	for i, day := range it.Days {
		heading := fmt.Sprintf("Day %d", i+1)
		if !day.Date.IsZero() {
			heading += " (" + day.Date.String() + ")"
		}
		if day.Location != "" {
			heading += " · " + day.Location
		}
		fmt.Fprintf(&sb, "## %s\n\n", heading)
		if day.Theme != "" {
			fmt.Fprintf(&sb, "_%s_\n\n", day.Theme)
		}
		for _, seg := range day.Segments {
			fmt.Fprintf(&sb, "### %s\n\n", seg.TimeSlot)
			for _, a := range seg.Activities {
				line := "- **" + a.Name + "**"
				if a.Location != "" {
					line += " @ " + a.Location
				}
				if a.EstimatedDuration != "" {
					line += " (" + a.EstimatedDuration + ")"
				}
				if a.Description != "" {
					line += ": " + a.Description
				}
				sb.WriteString(line + "\n")
			}
			sb.WriteString("\n")
		}
		if day.Transportation != "" {
			fmt.Fprintf(&sb, "**Getting around:** %s\n\n", day.Transportation)
		}
		if acc := day.Accommodation; acc != nil {
			fmt.Fprintf(&sb, "**Stay:** %s", acc.Name)
			if acc.Price > 0 {
				fmt.Fprintf(&sb, " (%.0f %s)", acc.Price, acc.Currency)
			}
			if acc.ReviewScore > 0 {
				fmt.Fprintf(&sb, " ★ %.1f", acc.ReviewScore)
			}
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}
