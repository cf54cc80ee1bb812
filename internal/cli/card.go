package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"nse-fees/internal/fees"
	"nse-fees/pkg/utils"
)

var (
	tierBorder = map[string]lipgloss.Color{
		"excellent": lipgloss.Color("#10B981"),
		"good":      lipgloss.Color("#3B82F6"),
		"caution":   lipgloss.Color("#F59E0B"),
		"poor":      lipgloss.Color("#EF4444"),
	}

	cardTitleStyle = lipgloss.NewStyle().Bold(true)

	cardActionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C3AED")).
			Bold(true)

	cardDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

func cardStyle(class string) lipgloss.Style {
	border, ok := tierBorder[class]
	if !ok {
		border = lipgloss.Color("#6B7280")
	}
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(64)
}

// renderVerdictCard draws the verdict as a bordered card.
func renderVerdictCard(v fees.Verdict) string {
	var content strings.Builder

	content.WriteString(cardTitleStyle.Render(fmt.Sprintf("%s %s", v.Emoji, v.Title)))
	content.WriteString("\n")
	content.WriteString(v.Message)
	content.WriteString("\n\n")
	content.WriteString(fmt.Sprintf("Fees: %s of the trade value", utils.FormatPercent(v.FeePercentage)))

	if v.ActionLabel != "" {
		content.WriteString("\n\n")
		content.WriteString(cardActionStyle.Render("→ " + v.ActionLabel))
		if v.Intermediate != nil {
			content.WriteString("\n")
			content.WriteString(cardDimStyle.Render(fmt.Sprintf("  or try %s shares (%s fees)",
				utils.FormatQuantity(v.Intermediate.Quantity), utils.FormatPercent(v.Intermediate.FeePercentage))))
		}
	}

	return cardStyle(v.Class).Render(content.String())
}
