package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestEditRune(t *testing.T) {
	atLimit := strings.Repeat("x", maxInputLen)
	tests := []struct {
		name  string
		start string
		key   string
		want  string
	}{
		{"first char", "", "W", "W"},
		{"email symbol", "ana", "@", "ana@"},
		{"space", "Write", " ", "Write "},
		{"backspace", "Write", "backspace", "Writ"},
		{"backspace on empty", "", "backspace", ""},
		{"backspace removes accented rune", "café", "backspace", "caf"},
		{"backspace removes emoji", "done \U0001f389", "backspace", "done "},
		{"pasted text", "Task: ", "ship release notes", "Task: ship release notes"},
		{"paste clamped to limit", atLimit[:maxInputLen-2], "abcd", atLimit[:maxInputLen-2] + "ab"},
		{"full input rejects chars", atLimit, "y", atLimit},
		{"full input still deletes", atLimit, "backspace", atLimit[:maxInputLen-1]},
		{"empty key", "keep", "", "keep"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := editRune(tc.start, tc.key); got != tc.want {
				t.Errorf("editRune(%q, %q) = %q, want %q", tc.start, tc.key, got, tc.want)
			}
		})
	}
}

func TestEditRuneIgnoresNamedKeys(t *testing.T) {
	for _, key := range []string{
		"enter", "esc", "tab", "shift+tab", "up", "down", "left", "right",
		"ctrl+s", "ctrl+r", "alt+enter", "shift+enter", "f1", "f12", "pgup", "home", "delete",
	} {
		t.Run(key, func(t *testing.T) {
			if got := editRune("ana@x.com", key); got != "ana@x.com" {
				t.Errorf("editRune with %q changed the text to %q", key, got)
			}
		})
	}
}

func TestEditRuneKeepsSingleLetterF(t *testing.T) {
	if got := editRune("de", "f"); got != "def" {
		t.Errorf("expected 'f' typed as text, got %q", got)
	}
}

func TestKeyText(t *testing.T) {
	paste := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("enter"), Paste: true}
	if got := keyText(paste); got != "enter" {
		t.Errorf("expected pasted runes verbatim, got %q", got)
	}
	if got := editRune("", keyText(paste)); got != "enter" {
		t.Errorf("expected pasted word inserted, got %q", got)
	}
	if got := keyText(tea.KeyMsg{Type: tea.KeyEnter}); got != "enter" {
		t.Errorf("expected the key name for enter, got %q", got)
	}
}

func TestTruncStr(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   string
	}{
		{"Buy milk", 20, "Buy milk"},
		{"Buy milk", 8, "Buy milk"},
		{"Prepare quarterly report", 9, "Prepare …"},
		{"", 5, ""},
		{"ab", 1, "…"},
		{"résumé review", 7, "résumé…"},
		{"任务清单", 3, "任务…"},
	}
	for _, tc := range tests {
		if got := truncStr(tc.s, tc.maxLen); got != tc.want {
			t.Errorf("truncStr(%q, %d) = %q, want %q", tc.s, tc.maxLen, got, tc.want)
		}
	}
}

func TestTruncateToHeight(t *testing.T) {
	body := "Tasks\n  one\n  two\n  three\n"
	tests := []struct {
		name     string
		maxLines int
		want     string
	}{
		{"cuts extra lines", 2, "Tasks\n  one\n"},
		{"exact fit", 4, body},
		{"room to spare", 10, body},
		{"zero means unlimited", 0, body},
		{"negative means unlimited", -3, body},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := truncateToHeight(body, tc.maxLines); got != tc.want {
				t.Errorf("truncateToHeight(%d) = %q, want %q", tc.maxLines, got, tc.want)
			}
		})
	}
}
