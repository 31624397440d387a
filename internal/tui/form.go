package tui

import (
	"fmt"
	"strings"
)

// field is one labelled input of a form.
type field struct {
	label  string
	value  string
	masked bool
	// choices turns the field into a picker cycled with h/l.
	choices []string
}

// form is the inline multi-field editor shared by the auth screens and the
// task, profile and assign views.
type form struct {
	fields []field
	focus  int
}

func newForm(fields ...field) form {
	return form{fields: fields}
}

func (f form) value(i int) string { return f.fields[i].value }

func (f form) trimmed(i int) string { return strings.TrimSpace(f.fields[i].value) }

// set returns a copy with field i set to v.
func (f form) set(i int, v string) form {
	fields := make([]field, len(f.fields))
	copy(fields, f.fields)
	fields[i].value = v
	f.fields = fields
	return f
}

// reset clears every value and focuses the first field.
func (f form) reset() form {
	fields := make([]field, len(f.fields))
	copy(fields, f.fields)
	for i := range fields {
		fields[i].value = ""
		if len(fields[i].choices) > 0 {
			fields[i].value = fields[i].choices[0]
		}
	}
	f.fields = fields
	f.focus = 0
	return f
}

func (f form) onLast() bool { return f.focus == len(f.fields)-1 }

// withChoices replaces the choices of field i, keeping its value when it is
// still one of them.
func (f form) withChoices(i int, choices []string) form {
	fields := make([]field, len(f.fields))
	copy(fields, f.fields)
	fields[i].choices = choices
	keep := false
	for _, c := range choices {
		if c == fields[i].value {
			keep = true
			break
		}
	}
	if !keep {
		fields[i].value = ""
		if len(choices) > 0 {
			fields[i].value = choices[0]
		}
	}
	f.fields = fields
	return f
}

// choiceIndex returns the position of field i's value among its choices.
func (f form) choiceIndex(i int) int {
	for j, c := range f.fields[i].choices {
		if c == f.fields[i].value {
			return j
		}
	}
	return -1
}

// handleKey applies navigation and editing keys. It reports whether the key
// was consumed; enter, esc and ctrl+s are left to the caller.
func (f form) handleKey(key string) (form, bool) {
	n := len(f.fields)
	switch key {
	case "tab", "down":
		f.focus = (f.focus + 1) % n
		return f, true
	case "shift+tab", "up":
		f.focus = (f.focus - 1 + n) % n
		return f, true
	case "enter", "esc", "ctrl+s":
		return f, false
	}

	cur := f.fields[f.focus]
	if len(cur.choices) > 0 {
		if key == "h" || key == "l" || key == "left" || key == "right" {
			idx := f.choiceIndex(f.focus)
			if key == "l" || key == "right" {
				idx = (idx + 1) % len(cur.choices)
			} else {
				idx = (idx - 1 + len(cur.choices)) % len(cur.choices)
			}
			return f.set(f.focus, cur.choices[idx]), true
		}
		return f, true
	}
	return f.set(f.focus, editRune(cur.value, key)), true
}

// view renders one line per field with the focused one marked.
func (f form) view(focused bool) string {
	var b strings.Builder
	for i, fl := range f.fields {
		cursor := " "
		style := metaStyle
		active := focused && i == f.focus
		if active {
			cursor = ">"
			style = selectedStyle
		}
		value := fl.value
		if fl.masked {
			value = strings.Repeat("•", len([]rune(value)))
		}
		if len(fl.choices) > 0 {
			hint := ""
			if active {
				hint = dimStyle.Render("  (h/l to cycle)")
			}
			fmt.Fprintf(&b, "%s %s: %s%s\n", cursor, style.Render(fl.label), accentStyle.Render(value), hint)
			continue
		}
		if active {
			value += "█"
		}
		fmt.Fprintf(&b, "%s %s: %s\n", cursor, style.Render(fl.label), value)
	}
	return b.String()
}
