package tui

import (
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
)

// maxInputLen is the maximum number of runes allowed in form inputs.
const maxInputLen = 2000

// namedKeys are key names bubbletea reports for non-printable keys.
var namedKeys = map[string]bool{
	"enter": true, "esc": true, "tab": true, "backspace": true, "delete": true, "insert": true,
	"up": true, "down": true, "left": true, "right": true,
	"home": true, "end": true, "pgup": true, "pgdown": true,
}

// isNamedKey reports whether key names a non-printable key or a modifier combo.
func isNamedKey(key string) bool {
	if namedKeys[key] {
		return true
	}
	for _, mod := range []string{"ctrl+", "alt+", "shift+"} {
		if strings.HasPrefix(key, mod) {
			return true
		}
	}
	if len(key) >= 2 && key[0] == 'f' && strings.Trim(key[1:], "0123456789") == "" {
		return true
	}
	return false
}

// editRune processes a keystroke or pasted text for inline editing.
// Backspace removes one rune; named keys leave the text unchanged.
// Input is clamped to maxInputLen runes.
func editRune(text string, key string) string {
	if key == "backspace" {
		if len(text) > 0 {
			runes := []rune(text)
			return string(runes[:len(runes)-1])
		}
		return text
	}
	if key == "" || isNamedKey(key) {
		return text
	}
	room := maxInputLen - utf8.RuneCountInString(text)
	if room <= 0 {
		return text
	}
	if runes := []rune(key); len(runes) > room {
		key = string(runes[:room])
	}
	return text + key
}

// keyText returns what a key press inserts: the pasted text for a paste,
// otherwise the key name.
func keyText(msg tea.KeyMsg) string {
	if msg.Paste {
		return string(msg.Runes)
	}
	return msg.String()
}

// truncateToHeight limits output to maxLines newline-delimited lines.
// Returns the original string if it fits or maxLines is <= 0.
func truncateToHeight(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
			if n >= maxLines {
				return s[:i+1]
			}
		}
	}
	return s
}
