package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/taskdash/internal/query"
	"github.com/naveenspark/taskdash/pkg/client"
	"github.com/naveenspark/taskdash/pkg/domain"
)

type assignedMsg struct {
	task *domain.Task
	err  error
}

const (
	assignTitle = iota
	assignDescription
	assignUser
)

// assignModel creates a task on behalf of a chosen user.
type assignModel struct {
	env    *env
	users  query.Entry
	form   form
	active bool
	saving bool
	status string
}

func newAssignModel(e *env) assignModel {
	return assignModel{
		env:   e,
		users: query.Entry{Key: query.KeyUsers},
		form: newForm(
			field{label: "title"},
			field{label: "description"},
			field{label: "assignee"},
		),
	}
}

func (m assignModel) mount() assignModel {
	return m.withUsers(m.env.query(query.KeyUsers))
}

func userLabel(u domain.User) string {
	return u.Name + " <" + u.Email + ">"
}

// withUsers refreshes the assignee picker from a users entry.
func (m assignModel) withUsers(e query.Entry) assignModel {
	m.users = e
	users, _ := query.Value[[]domain.User](e)
	choices := make([]string, 0, len(users))
	for _, u := range users {
		choices = append(choices, userLabel(u))
	}
	m.form = m.form.withChoices(assignUser, choices)
	return m
}

// assignee maps the picker's label back to a user id.
func (m assignModel) assignee() (domain.User, bool) {
	users, _ := query.Value[[]domain.User](m.users)
	idx := m.form.choiceIndex(assignUser)
	if idx < 0 || idx >= len(users) {
		return domain.User{}, false
	}
	return users[idx], true
}

func (m assignModel) Update(msg tea.Msg) (assignModel, tea.Cmd) {
	switch msg := msg.(type) {
	case query.Entry:
		return m.withUsers(msg), nil

	case assignedMsg:
		m.saving = false
		if msg.err != nil {
			return m, errorToastCmd("assign failed", msg.err)
		}
		m.form = m.form.reset()
		m.active = false
		return m, toastCmd("Task assigned")

	case tea.KeyMsg:
		if !m.active {
			switch msg.String() {
			case "a", "enter":
				m.active = true
			case "r":
				return m, m.env.refetch(query.KeyUsers)
			}
			return m, nil
		}
		key := keyText(msg)
		switch key {
		case "enter":
			if !m.form.onLast() {
				m.form.focus++
				return m, nil
			}
			return m.submit()
		case "ctrl+s":
			return m.submit()
		case "esc":
			m.active = false
			m.status = ""
			return m, nil
		}
		m.status = ""
		m.form, _ = m.form.handleKey(key)
	}
	return m, nil
}

func (m assignModel) submit() (assignModel, tea.Cmd) {
	title := m.form.trimmed(assignTitle)
	desc := m.form.trimmed(assignDescription)
	u, ok := m.assignee()
	switch {
	case title == "":
		m.status = "title required"
		return m, nil
	case !ok:
		m.status = "pick a user to assign"
		return m, nil
	}
	m.saving = true
	m.status = ""
	e := m.env
	ctx := e.ctx()
	in := client.TaskInput{Title: title, Description: desc, AssignedTo: u.ID}
	return m, func() tea.Msg {
		task, err := query.Mutate(ctx, e.cache, query.AssignTask(in.AssignedTo), func(ctx context.Context) (*domain.Task, error) {
			return e.client.CreateTask(ctx, in)
		})
		return assignedMsg{task: task, err: err}
	}
}

// editing reports whether the form has focus.
func (m assignModel) editing() bool { return m.active }

func (m assignModel) helpKeys() string {
	if !m.active {
		return helpEntry("a", "start") + "  " + helpEntry("r", "refresh users")
	}
	return helpEntry("tab", "next") + "  " + helpEntry("h/l", "pick user") + "  " +
		helpEntry("ctrl+s", "assign") + "  " + helpEntry("esc", "done")
}

func (m assignModel) View() string {
	var b strings.Builder
	b.WriteString("\n  " + selectedStyle.Render("Assign a task") + "\n\n")
	for _, line := range strings.Split(strings.TrimRight(m.form.view(m.active), "\n"), "\n") {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("\n")
	switch {
	case m.saving:
		b.WriteString("  " + dimStyle.Render("assigning..."))
	case m.status != "":
		b.WriteString("  " + warnStyle.Render(m.status))
	case !m.users.HasData() && m.users.Err != nil:
		b.WriteString("  " + errorStyle.Render("couldn't load users: "+entryError(m.users)))
	case !m.users.HasData():
		b.WriteString("  " + dimStyle.Render("loading users..."))
	}
	b.WriteString("\n")
	return b.String()
}
