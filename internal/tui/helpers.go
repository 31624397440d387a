package tui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/naveenspark/taskdash/internal/query"
	"github.com/naveenspark/taskdash/pkg/client"
)

// formatTime renders a relative timestamp for "updated" lines.
func formatTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// truncStr truncates a string to maxLen runes, appending an ellipsis if needed.
func truncStr(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}

// oneLine collapses newlines and runs of whitespace so free text fits a row.
func oneLine(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

func entryError(e query.Entry) string {
	return client.Message(e.Err)
}

// entryFooter describes how fresh a loaded entry is.
func entryFooter(e query.Entry) string {
	var parts []string
	if e.HasData() {
		parts = append(parts, metaStyle.Render("updated "+formatTime(e.UpdatedAt)))
	}
	if e.Loading {
		parts = append(parts, dimStyle.Render("refreshing..."))
	}
	if e.Err != nil {
		parts = append(parts, warnStyle.Render("refresh failed: "+entryError(e)))
	}
	return strings.Join(parts, "  ")
}
