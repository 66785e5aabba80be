// Package styles provides consistent styling for the stoat CLI.
package styles

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	Primary   = lipgloss.Color("#D97706") // Amber, stoat summer coat
	Secondary = lipgloss.Color("#06B6D4") // Cyan
	Success   = lipgloss.Color("#10B981") // Emerald green
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Error     = lipgloss.Color("#EF4444") // Red
	Info      = lipgloss.Color("#3B82F6") // Blue
	Text      = lipgloss.Color("#F9FAFB") // Almost white
	TextMuted = lipgloss.Color("#9CA3AF") // Gray
	Surface   = lipgloss.Color("#1F2937") // Slightly lighter than background
	Border    = lipgloss.Color("#374151") // Border gray
)

// Icons
const (
	IconSuccess  = "✓"
	IconError    = "✗"
	IconWarning  = "⚠"
	IconInfo     = "ℹ"
	IconArrow    = "→"
	IconDot      = "•"
	IconDatabase = "🗄️"
	IconStream   = "⇶"
)

// Styles, rebuilt from the palette by DisableColors.
var (
	Bold         lipgloss.Style
	Title        lipgloss.Style
	Normal       lipgloss.Style
	Muted        lipgloss.Style
	Highlight    lipgloss.Style
	Code         lipgloss.Style
	SuccessStyle lipgloss.Style
	WarningStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	InfoStyle    lipgloss.Style
	Box          lipgloss.Style
	InfoBox      lipgloss.Style
	Indent       lipgloss.Style
)

func init() {
	build()
}

// newRoundedBox creates a box style with rounded border and specified border color.
func newRoundedBox(borderColor lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(1, 2)
}

func build() {
	Bold = lipgloss.NewStyle().Bold(true)
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)
	Normal = lipgloss.NewStyle().Foreground(Text)
	Muted = lipgloss.NewStyle().Foreground(TextMuted)
	Highlight = lipgloss.NewStyle().
		Bold(true).
		Foreground(Secondary)
	Code = lipgloss.NewStyle().
		Foreground(Warning).
		Background(Surface).
		Padding(0, 1)

	SuccessStyle = lipgloss.NewStyle().Foreground(Success)
	WarningStyle = lipgloss.NewStyle().Foreground(Warning)
	ErrorStyle = lipgloss.NewStyle().Foreground(Error)
	InfoStyle = lipgloss.NewStyle().Foreground(Info)

	Box = newRoundedBox(Border)
	InfoBox = newRoundedBox(Info).MarginTop(1)
	Indent = lipgloss.NewStyle().PaddingLeft(2)
}

// FormatSuccess formats a success message with icon
func FormatSuccess(msg string) string {
	return SuccessStyle.Render(IconSuccess) + " " + Normal.Render(msg)
}

// FormatError formats an error message with icon
func FormatError(msg string) string {
	return ErrorStyle.Render(IconError) + " " + Normal.Render(msg)
}

// FormatWarning formats a warning message with icon
func FormatWarning(msg string) string {
	return WarningStyle.Render(IconWarning) + " " + Normal.Render(msg)
}

// FormatInfo formats an info message with icon
func FormatInfo(msg string) string {
	return InfoStyle.Render(IconInfo) + " " + Normal.Render(msg)
}

// FormatKeyValue formats a key-value pair
func FormatKeyValue(key, value string) string {
	keyStyle := lipgloss.NewStyle().
		Foreground(TextMuted).
		Width(20)
	return keyStyle.Render(key+":") + " " + Highlight.Render(value)
}

// FormatAmount renders minor units as a decimal amount, e.g. 1050 as "10.50".
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// FormatEvent formats one entry of an event listing.
func FormatEvent(position int, eventType string, payload string) string {
	pos := Muted.Render(strconv.Itoa(position) + ".")
	return Indent.Render(pos + " " + Highlight.Render(eventType) + " " + Muted.Render(payload))
}

// DisableColors disables all colors for terminals that don't support them
func DisableColors() {
	Primary = lipgloss.Color("")
	Secondary = lipgloss.Color("")
	Success = lipgloss.Color("")
	Warning = lipgloss.Color("")
	Error = lipgloss.Color("")
	Info = lipgloss.Color("")
	Text = lipgloss.Color("")
	TextMuted = lipgloss.Color("")
	Surface = lipgloss.Color("")
	Border = lipgloss.Color("")
	build()
}
