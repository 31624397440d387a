package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/taskdash/pkg/client"
	"github.com/naveenspark/taskdash/pkg/domain"
)

// toastMsg asks the root model to show a notification.
type toastMsg struct {
	text string
	err  bool
}

type toastExpiredMsg struct{ id int }

type toast struct {
	id   int
	text string
	err  bool
}

func toastCmd(text string) tea.Cmd {
	return func() tea.Msg { return toastMsg{text: text} }
}

// errorToastCmd reports a failed mutation with the server's message.
func errorToastCmd(action string, err error) tea.Cmd {
	text := fmt.Sprintf("%s: %s", action, client.Message(err))
	return func() tea.Msg { return toastMsg{text: text, err: true} }
}

func assignedToastText(ta domain.TaskAssigned) string {
	return fmt.Sprintf("Task Assigned: %s to %s", ta.Task.Title, ta.User.Name)
}

func expireToast(id int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return toastExpiredMsg{id: id} })
}

// toastLine renders the newest toast and how many others are showing.
func toastLine(toasts []toast) string {
	if len(toasts) == 0 {
		return ""
	}
	last := toasts[len(toasts)-1]
	style := toastStyle
	if last.err {
		style = toastErrStyle
	}
	line := " " + style.Render(last.text)
	if n := len(toasts) - 1; n > 0 {
		line += dimStyle.Render(fmt.Sprintf("  +%d", n))
	}
	return line
}
