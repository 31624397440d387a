package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/taskdash/internal/query"
	"github.com/naveenspark/taskdash/pkg/client"
	"github.com/naveenspark/taskdash/pkg/domain"
)

type userDeletedMsg struct {
	id   string
	conf *client.Confirmation
	err  error
}

type usersModel struct {
	env      *env
	entry    query.Entry
	cursor   int
	deleting bool

	// detail is the user opened with enter, with their assigned tasks.
	detail      *domain.User
	detailTasks query.Entry
}

func newUsersModel(e *env) usersModel {
	return usersModel{env: e, entry: query.Entry{Key: query.KeyUsers}}
}

func (m usersModel) mount() usersModel {
	m.entry = m.env.query(query.KeyUsers)
	if m.detail != nil {
		m.detailTasks = m.env.query(query.TasksForUser(m.detail.ID))
	}
	m.clampCursor()
	return m
}

func (m usersModel) users() []domain.User {
	users, _ := query.Value[[]domain.User](m.entry)
	return users
}

func (m *usersModel) clampCursor() {
	if n := len(m.users()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

func (m usersModel) selected() (domain.User, bool) {
	users := m.users()
	if m.cursor < 0 || m.cursor >= len(users) {
		return domain.User{}, false
	}
	return users[m.cursor], true
}

// closeDetail stops watching the open user's task list.
func (m usersModel) closeDetail() usersModel {
	if m.detail != nil {
		m.env.unwatch(query.TasksForUser(m.detail.ID))
	}
	m.detail = nil
	m.detailTasks = query.Entry{}
	return m
}

func (m usersModel) Update(msg tea.Msg) (usersModel, tea.Cmd) {
	switch msg := msg.(type) {
	case query.Entry:
		if _, ok := userTasksID(msg.Key); ok {
			if m.detail != nil && msg.Key == query.TasksForUser(m.detail.ID) {
				m.detailTasks = msg
			}
			return m, nil
		}
		m.entry = msg
		m.clampCursor()
		if m.detail != nil {
			if _, still := m.findUser(m.detail.ID); !still && m.entry.HasData() && m.entry.Err == nil {
				m = m.closeDetail()
			}
		}

	case userDeletedMsg:
		if msg.err != nil {
			return m, errorToastCmd("delete failed", msg.err)
		}
		text := msg.conf.Text()
		if text == "" {
			text = "User deleted"
		}
		return m, toastCmd(text)

	case tea.KeyMsg:
		if m.deleting {
			return m.handleKeyDeleting(msg)
		}
		if m.detail != nil {
			switch msg.String() {
			case "esc", "backspace":
				m = m.closeDetail()
			case "r":
				return m, m.env.refetch(query.TasksForUser(m.detail.ID))
			}
			return m, nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m usersModel) findUser(id string) (domain.User, bool) {
	for _, u := range m.users() {
		if u.ID == id {
			return u, true
		}
	}
	return domain.User{}, false
}

func (m usersModel) handleKey(msg tea.KeyMsg) (usersModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.users())-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		if u, ok := m.selected(); ok {
			m.detail = &u
			m.detailTasks = m.env.query(query.TasksForUser(u.ID))
		}
	case "d":
		if _, ok := m.selected(); ok {
			m.deleting = true
		}
	case "r":
		return m, m.env.refetch(query.KeyUsers)
	}
	return m, nil
}

func (m usersModel) handleKeyDeleting(msg tea.KeyMsg) (usersModel, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.deleting = false
		u, ok := m.selected()
		if !ok {
			return m, nil
		}
		e := m.env
		ctx := e.ctx()
		id := u.ID
		return m, func() tea.Msg {
			conf, err := query.Mutate(ctx, e.cache, query.DeleteUser, func(ctx context.Context) (*client.Confirmation, error) {
				return e.client.DeleteUser(ctx, id)
			})
			return userDeletedMsg{id: id, conf: conf, err: err}
		}
	case "n", "N", "esc":
		m.deleting = false
	}
	return m, nil
}

func (m usersModel) helpKeys() string {
	switch {
	case m.deleting:
		return helpEntry("y", "confirm") + "  " + helpEntry("n", "cancel")
	case m.detail != nil:
		return helpEntry("esc", "back") + "  " + helpEntry("r", "refresh")
	}
	return helpEntry("j/k", "nav") + "  " + helpEntry("enter", "view") + "  " +
		helpEntry("d", "delete") + "  " + helpEntry("r", "refresh")
}

func (m usersModel) View() string {
	if m.detail != nil {
		return m.viewDetail()
	}

	var b strings.Builder
	b.WriteString("\n")
	users := m.users()
	switch {
	case len(users) == 0 && !m.entry.HasData() && m.entry.Err != nil:
		b.WriteString("  " + errorStyle.Render("couldn't load users: "+entryError(m.entry)) + "\n")
		return b.String()
	case len(users) == 0 && !m.entry.HasData():
		b.WriteString("  " + dimStyle.Render("loading users...") + "\n")
		return b.String()
	case len(users) == 0:
		b.WriteString("  " + dimStyle.Render("no users") + "\n")
		return b.String()
	}

	for i, u := range users {
		cursor := "  "
		name := normalStyle.Render(fmt.Sprintf("%-20s", truncStr(u.Name, 20)))
		if i == m.cursor {
			cursor = accentStyle.Render("> ")
			name = selectedStyle.Render(fmt.Sprintf("%-20s", truncStr(u.Name, 20)))
		}
		fmt.Fprintf(&b, " %s%s  %s %s\n", cursor, name, metaStyle.Render(u.Email), roleBadge(string(u.Role)))
		if i == m.cursor && m.deleting {
			b.WriteString("     " + errorStyle.Render("delete this user? ") +
				accentStyle.Render("y") + dimStyle.Render("/") + dimStyle.Render("n") + "\n")
		}
	}
	b.WriteString("\n  " + entryFooter(m.entry) + "\n")
	return b.String()
}

func (m usersModel) viewDetail() string {
	u := m.detail
	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s %s\n", selectedStyle.Render(u.Name), roleBadge(string(u.Role)))
	fmt.Fprintf(&b, "  %s\n\n", metaStyle.Render(u.Email))
	b.WriteString("  " + sectionHeaderStyle.Render("Assigned tasks") + "\n")

	tasks, _ := query.Value[[]domain.Task](m.detailTasks)
	switch {
	case len(tasks) == 0 && !m.detailTasks.HasData() && m.detailTasks.Err != nil:
		b.WriteString("  " + errorStyle.Render("couldn't load tasks: "+entryError(m.detailTasks)) + "\n")
		return b.String()
	case len(tasks) == 0 && !m.detailTasks.HasData():
		b.WriteString("  " + dimStyle.Render("loading...") + "\n")
		return b.String()
	case len(tasks) == 0:
		b.WriteString("  " + dimStyle.Render("nothing assigned") + "\n")
	}
	for _, t := range tasks {
		status := StatusStyle(t.DisplayStatus()).Render(fmt.Sprintf("%-12s", t.DisplayStatus()))
		fmt.Fprintf(&b, "   %s  %s\n", status, normalStyle.Render(truncStr(oneLine(t.Title), 48)))
	}
	b.WriteString("\n  " + entryFooter(m.detailTasks) + "\n")
	return b.String()
}
