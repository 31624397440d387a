package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

func printHelp(out io.Writer) {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#4ade80")).
		Bold(true).
		Render("T A S K D A S H")

	tagline := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Italic(true).
		Render("Tasks, profiles and assignments from your terminal.")

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	commands := []struct{ cmd, desc string }{
		{"taskdash", "Open the dashboard (log in or register first)"},
		{"taskdash whoami", "Show the stored session"},
		{"taskdash logout", "Clear your session"},
		{"taskdash mock-api [addr]", "Run an in-memory backend (default :5000)"},
		{"taskdash --version", "Show version"},
		{"taskdash help", "You are here"},
	}

	fmt.Fprintf(out, "\n  %s\n\n  %s\n\n  Commands:\n", title, tagline)
	for _, c := range commands {
		fmt.Fprintf(out, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-26s", c.cmd)), descStyle.Render(c.desc))
	}
	env := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).
		Render("Settings: ~/.taskdash/config.yaml or TASKDASH_* (e.g. TASKDASH_API_URL)")
	fmt.Fprintf(out, "\n  %s\n\n", env)
}
