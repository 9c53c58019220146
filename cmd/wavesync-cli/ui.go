package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	accentColor = lipgloss.Color("99")
	greenColor  = lipgloss.Color("76")
	redColor    = lipgloss.Color("204")
	dimColor    = lipgloss.Color("243")
)

var (
	accentStyle = lipgloss.NewStyle().Foreground(accentColor)
	successStyle = lipgloss.NewStyle().Foreground(greenColor)
	errorStyle   = lipgloss.NewStyle().Foreground(redColor)
	labelStyle   = lipgloss.NewStyle().Foreground(dimColor)
)

func errStyle(s string) string { return errorStyle.Render(s) }

func boolStyle(v bool) string {
	if v {
		return successStyle.Render("true")
	}
	return errorStyle.Render("false")
}

// kv is a single label/value pair for keyValues.
type kv struct {
	label string
	value string
}

// keyValues renders aligned "label:  value" lines.
func keyValues(pairs ...kv) string {
	maxLen := 0
	for _, p := range pairs {
		if len(p.label) > maxLen {
			maxLen = len(p.label)
		}
	}
	var sb strings.Builder
	for _, p := range pairs {
		label := fmt.Sprintf("%-*s", maxLen+1, p.label+":")
		sb.WriteString(labelStyle.Render(label) + " " + p.value + "\n")
	}
	return sb.String()
}

func prompt() string {
	return accentStyle.Render("wavesync>") + " "
}
