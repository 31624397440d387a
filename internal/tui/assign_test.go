package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/taskdash/internal/query"
	"github.com/naveenspark/taskdash/pkg/domain"
)

func TestAssignPickerFollowsUsers(t *testing.T) {
	m := newAssignModel(newEnv(Deps{}))
	users := []domain.User{{ID: "1", Name: "ana", Email: "ana@x.com"}, {ID: "2", Name: "bo", Email: "bo@x.com"}}
	m, _ = m.Update(query.Entry{Key: query.KeyUsers, Data: users})

	if got := m.form.value(assignUser); got != "ana <ana@x.com>" {
		t.Fatalf("expected the first user picked, got %q", got)
	}
	m, _ = m.Update(runes("a"))
	m.form.focus = assignUser
	m, _ = m.Update(runes("l"))
	u, ok := m.assignee()
	if !ok || u.ID != "2" {
		t.Errorf("expected bo picked after 'l', got %+v", u)
	}

	m, _ = m.Update(query.Entry{Key: query.KeyUsers, Data: users[1:]})
	if u, ok := m.assignee(); !ok || u.ID != "2" {
		t.Errorf("expected the pick kept while the user still exists, got %+v", u)
	}
}

func TestAssignRequiresTitleAndUser(t *testing.T) {
	m := newAssignModel(newEnv(Deps{}))
	m, _ = m.Update(runes("a"))
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd != nil || m.status != "title required" {
		t.Errorf("expected title required, got %q", m.status)
	}
	m = typeInto(m, "T")
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd != nil || m.status != "pick a user to assign" {
		t.Errorf("expected a missing user, got %q", m.status)
	}
}

func typeInto(m assignModel, s string) assignModel {
	for _, r := range s {
		m, _ = m.Update(runes(string(r)))
	}
	return m
}

func TestAssignInactiveKeys(t *testing.T) {
	m := newAssignModel(newEnv(Deps{}))
	if m.editing() {
		t.Fatal("expected the form inactive until started")
	}
	m, _ = m.Update(runes("x"))
	if m.form.value(assignTitle) != "" {
		t.Error("expected keys ignored while inactive")
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.editing() {
		t.Error("expected enter to start the form")
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.editing() {
		t.Error("expected esc to leave the form")
	}
}

func TestAssignCreatesTaskForUser(t *testing.T) {
	b := newBackend(t)
	bo := b.seed(t, "bo", domain.RoleUser)
	b.signIn(t, b.seed(t, "root", domain.RoleAdmin))
	a := b.app(t)
	a, _ = update(a, runes("4"))
	a = settle(t, a, func(a App) bool { return a.assign.users.HasData() })

	a, _ = update(a, runes("a"))
	a = typeText(a, "Ship")
	a, _ = update(a, tea.KeyMsg{Type: tea.KeyEnter})
	a = typeText(a, "it")
	a, _ = update(a, tea.KeyMsg{Type: tea.KeyEnter})
	for {
		u, ok := a.assign.assignee()
		if !ok {
			t.Fatal("expected users in the picker")
		}
		if u.ID == bo.ID {
			break
		}
		a, _ = update(a, runes("l"))
	}
	a, cmd := update(a, tea.KeyMsg{Type: tea.KeyEnter})
	a, cmd = run(t, a, cmd)
	if a.assign.editing() || a.assign.form.value(assignTitle) != "" {
		t.Error("expected the form reset after assigning")
	}
	a, _ = run(t, a, cmd)
	if a.toasts[len(a.toasts)-1].text != "Task assigned" {
		t.Errorf("expected an assigned toast, got %+v", a.toasts)
	}

	tasks, err := a.env.client.ListTasksForUser(a.env.ctx(), bo.ID)
	if err != nil {
		t.Fatalf("list tasks for bo: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Ship" {
		t.Fatalf("expected Ship assigned to bo, got %+v", tasks)
	}
	if !strings.Contains(a.assign.View(), "Assign a task") {
		t.Error("expected the assign heading")
	}
}
