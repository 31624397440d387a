package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/taskdash/internal/query"
	"github.com/naveenspark/taskdash/pkg/client"
	"github.com/naveenspark/taskdash/pkg/domain"
)

// taskState is the state machine for task CRUD interactions.
type taskState int

const (
	tsBrowse   taskState = iota
	tsForm               // creating, or editing when editingID is set
	tsDeleting           // delete confirmation
)

// -- messages --

type taskSavedMsg struct {
	editingID string
	task      *domain.Task
	err       error
}

type taskDeletedMsg struct {
	id   string
	conf *client.Confirmation
	err  error
}

type taskCopyMsg struct{ err error }

const (
	taskTitle = iota
	taskDescription
)

// -- model --

type tasksModel struct {
	env       *env
	entry     query.Entry
	cursor    int
	state     taskState
	form      form
	editingID string
	saving    bool
	status    string
	width     int
	height    int
}

func newTasksModel(e *env) tasksModel {
	return tasksModel{
		env:   e,
		entry: query.Entry{Key: query.KeyTasks},
		form:  newTaskForm(),
	}
}

func newTaskForm() form {
	return newForm(field{label: "title"}, field{label: "description"})
}

func (m tasksModel) mount() tasksModel {
	m.entry = m.env.query(query.KeyTasks)
	m.clampCursor()
	return m
}

func (m tasksModel) tasks() []domain.Task {
	tasks, _ := query.Value[[]domain.Task](m.entry)
	return tasks
}

func (m *tasksModel) clampCursor() {
	if n := len(m.tasks()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

func (m tasksModel) selected() (domain.Task, bool) {
	tasks := m.tasks()
	if m.cursor < 0 || m.cursor >= len(tasks) {
		return domain.Task{}, false
	}
	return tasks[m.cursor], true
}

// editing reports whether a text field has focus, which suppresses the
// global keys.
func (m tasksModel) editing() bool { return m.state == tsForm }

func (m tasksModel) Update(msg tea.Msg) (tasksModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case query.Entry:
		m.entry = msg
		m.clampCursor()

	case taskSavedMsg:
		m.saving = false
		if msg.err != nil {
			action := "create failed"
			if msg.editingID != "" {
				action = "update failed"
			}
			return m, errorToastCmd(action, msg.err)
		}
		m.state = tsBrowse
		m.editingID = ""
		m.form = m.form.reset()
		if msg.editingID != "" {
			return m, toastCmd("Task updated")
		}
		return m, toastCmd("Task created")

	case taskDeletedMsg:
		if msg.err != nil {
			return m, errorToastCmd("delete failed", msg.err)
		}
		text := msg.conf.Text()
		if text == "" {
			text = "Task deleted"
		}
		return m, toastCmd(text)

	case taskCopyMsg:
		if msg.err != nil {
			return m, errorToastCmd("copy failed", msg.err)
		}
		return m, toastCmd("Copied title")

	case tea.KeyMsg:
		switch m.state {
		case tsForm:
			return m.handleKeyForm(msg)
		case tsDeleting:
			return m.handleKeyDeleting(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m tasksModel) handleKey(msg tea.KeyMsg) (tasksModel, tea.Cmd) {
	m.status = ""
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.tasks())-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "a":
		m.state = tsForm
		m.editingID = ""
		m.form = m.form.reset()
	case "e":
		if t, ok := m.selected(); ok {
			m.state = tsForm
			m.editingID = t.ID
			m.form = m.form.reset().set(taskTitle, t.Title).set(taskDescription, t.Description)
		}
	case "d":
		if _, ok := m.selected(); ok {
			m.state = tsDeleting
		}
	case "c":
		if t, ok := m.selected(); ok {
			title := t.Title
			return m, func() tea.Msg {
				return taskCopyMsg{err: clipboard.WriteAll(title)}
			}
		}
	case "r":
		return m, m.env.refetch(query.KeyTasks)
	}
	return m, nil
}

func (m tasksModel) handleKeyForm(msg tea.KeyMsg) (tasksModel, tea.Cmd) {
	key := keyText(msg)
	switch key {
	case "esc":
		m.state = tsBrowse
		m.editingID = ""
		m.form = m.form.reset()
		m.status = ""
		return m, nil
	case "enter":
		if !m.form.onLast() {
			m.form.focus++
			return m, nil
		}
		return m.submit()
	case "ctrl+s":
		return m.submit()
	}
	m.form, _ = m.form.handleKey(key)
	return m, nil
}

func (m tasksModel) submit() (tasksModel, tea.Cmd) {
	title := m.form.trimmed(taskTitle)
	desc := m.form.trimmed(taskDescription)
	if title == "" {
		m.status = "title required"
		return m, nil
	}
	m.saving = true
	m.status = ""
	e := m.env
	ctx := e.ctx()
	id := m.editingID
	if id != "" {
		return m, func() tea.Msg {
			task, err := query.Mutate(ctx, e.cache, query.UpdateTask, func(ctx context.Context) (*domain.Task, error) {
				return e.client.UpdateTask(ctx, id, client.TaskUpdate{Title: title, Description: desc})
			})
			return taskSavedMsg{editingID: id, task: task, err: err}
		}
	}
	return m, func() tea.Msg {
		task, err := query.Mutate(ctx, e.cache, query.CreateTask, func(ctx context.Context) (*domain.Task, error) {
			return e.client.CreateTask(ctx, client.TaskInput{Title: title, Description: desc})
		})
		return taskSavedMsg{task: task, err: err}
	}
}

func (m tasksModel) handleKeyDeleting(msg tea.KeyMsg) (tasksModel, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.state = tsBrowse
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		e := m.env
		ctx := e.ctx()
		id := t.ID
		return m, func() tea.Msg {
			conf, err := query.Mutate(ctx, e.cache, query.DeleteTask, func(ctx context.Context) (*client.Confirmation, error) {
				return e.client.DeleteTask(ctx, id)
			})
			return taskDeletedMsg{id: id, conf: conf, err: err}
		}
	case "n", "N", "esc":
		m.state = tsBrowse
	}
	return m, nil
}

// helpKeys returns context-sensitive help text based on the current state.
func (m tasksModel) helpKeys() string {
	switch m.state {
	case tsForm:
		return helpEntry("tab", "next") + "  " + helpEntry("enter", "save") + "  " + helpEntry("esc", "cancel")
	case tsDeleting:
		return helpEntry("y", "confirm") + "  " + helpEntry("n", "cancel")
	}
	return helpEntry("j/k", "nav") + "  " + helpEntry("a", "add") + "  " + helpEntry("e", "edit") + "  " +
		helpEntry("d", "delete") + "  " + helpEntry("c", "copy") + "  " + helpEntry("r", "refresh")
}

func (m tasksModel) View() string {
	var b strings.Builder
	b.WriteString("\n")

	if m.state == tsForm {
		heading := "New task"
		if m.editingID != "" {
			heading = "Edit task"
		}
		b.WriteString("  " + selectedStyle.Render(heading) + "\n")
		for _, line := range strings.Split(strings.TrimRight(m.form.view(true), "\n"), "\n") {
			b.WriteString("  " + line + "\n")
		}
		switch {
		case m.saving:
			b.WriteString("  " + dimStyle.Render("saving...") + "\n")
		case m.status != "":
			b.WriteString("  " + warnStyle.Render(m.status) + "\n")
		}
		b.WriteString("\n")
	}

	tasks := m.tasks()
	switch {
	case len(tasks) == 0 && !m.entry.HasData() && m.entry.Err != nil:
		b.WriteString("  " + errorStyle.Render("couldn't load tasks: "+entryError(m.entry)) + "\n")
		return b.String()
	case len(tasks) == 0 && !m.entry.HasData():
		b.WriteString("  " + dimStyle.Render("loading tasks...") + "\n")
		return b.String()
	case len(tasks) == 0:
		b.WriteString("  " + dimStyle.Render("no tasks yet, press a to add one") + "\n")
		b.WriteString("\n  " + entryFooter(m.entry) + "\n")
		return b.String()
	}

	titleWidth := 32
	if m.width > 0 {
		titleWidth = max(m.width/3, 16)
	}
	for i, t := range tasks {
		isActive := i == m.cursor && m.state != tsForm
		cursor := "  "
		title := normalStyle.Render(truncStr(oneLine(t.Title), titleWidth))
		if isActive {
			cursor = accentStyle.Render("> ")
			title = selectedStyle.Render(truncStr(oneLine(t.Title), titleWidth))
		}
		status := StatusStyle(t.DisplayStatus()).Render(fmt.Sprintf("%-12s", t.DisplayStatus()))
		assignee := ""
		if label := t.AssignedTo.Label(); label != "" {
			assignee = "  " + metaStyle.Render("@"+label)
		}
		fmt.Fprintf(&b, " %s%s  %s%s\n", cursor, status, title, assignee)

		if i == m.cursor && m.state == tsDeleting {
			b.WriteString("     " + errorStyle.Render("delete this task? ") +
				accentStyle.Render("y") + dimStyle.Render("/") + dimStyle.Render("n") + "\n")
			continue
		}
		if isActive && t.Description != "" {
			b.WriteString("     " + dimStyle.Render(truncStr(oneLine(t.Description), titleWidth*2)) + "\n")
		}
	}
	b.WriteString("\n  " + entryFooter(m.entry) + "\n")
	return b.String()
}
