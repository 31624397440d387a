package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/taskdash/internal/query"
	"github.com/naveenspark/taskdash/pkg/client"
	"github.com/naveenspark/taskdash/pkg/domain"
)

func usersApp(t *testing.T, b *backend) App {
	t.Helper()
	b.signIn(t, b.seed(t, "root", domain.RoleAdmin))
	a := b.app(t)
	a, _ = update(a, runes("3"))
	return settle(t, a, func(a App) bool { return a.users.entry.HasData() })
}

func TestUsersListAndDetail(t *testing.T) {
	b := newBackend(t)
	bo := b.seed(t, "bo", domain.RoleUser)
	a := usersApp(t, b)

	if n := len(a.users.users()); n != 2 {
		t.Fatalf("expected 2 users, got %d", n)
	}
	if !strings.Contains(a.View(), "bo@x.com") {
		t.Error("expected bo in the list")
	}

	for a.users.users()[a.users.cursor].ID != bo.ID {
		a, _ = update(a, runes("j"))
	}
	a, _ = update(a, tea.KeyMsg{Type: tea.KeyEnter})
	if a.users.detail == nil || a.users.detail.ID != bo.ID {
		t.Fatalf("expected bo's detail open, got %+v", a.users.detail)
	}
	key := query.TasksForUser(bo.ID)
	if _, ok := a.env.watched[key]; !ok {
		t.Error("expected the detail to watch bo's tasks")
	}
	a = settle(t, a, func(a App) bool { return a.users.detailTasks.HasData() })
	if !strings.Contains(a.View(), "nothing assigned") {
		t.Error("expected the empty assignment list")
	}

	a, _ = update(a, tea.KeyMsg{Type: tea.KeyEsc})
	if a.users.detail != nil {
		t.Error("expected the detail closed on esc")
	}
	if _, ok := a.env.watched[key]; ok {
		t.Error("expected bo's tasks unwatched after closing")
	}
}

func TestUsersDetailShowsAssignedTasks(t *testing.T) {
	b := newBackend(t)
	bo := b.seed(t, "bo", domain.RoleUser)
	a := usersApp(t, b)

	ctx := a.env.ctx()
	if _, err := a.env.client.CreateTask(ctx, client.TaskInput{Title: "Ship", AssignedTo: bo.ID}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	for a.users.users()[a.users.cursor].ID != bo.ID {
		a, _ = update(a, runes("j"))
	}
	a, _ = update(a, tea.KeyMsg{Type: tea.KeyEnter})
	a = settle(t, a, func(a App) bool {
		tasks, _ := query.Value[[]domain.Task](a.users.detailTasks)
		return len(tasks) == 1
	})
	if !strings.Contains(a.View(), "Ship") {
		t.Error("expected the assigned task in the detail")
	}
}

func TestUsersDelete(t *testing.T) {
	b := newBackend(t)
	bo := b.seed(t, "bo", domain.RoleUser)
	a := usersApp(t, b)

	for a.users.users()[a.users.cursor].ID != bo.ID {
		a, _ = update(a, runes("j"))
	}
	a, _ = update(a, runes("d"))
	if !a.users.deleting || !strings.Contains(a.View(), "delete this user?") {
		t.Fatal("expected the delete confirmation")
	}
	a, cmd := update(a, runes("y"))
	a, cmd = run(t, a, cmd)
	a, _ = run(t, a, cmd)
	if a.toasts[len(a.toasts)-1].err {
		t.Fatalf("expected delete to succeed, got %+v", a.toasts)
	}
	a = settle(t, a, func(a App) bool { return len(a.users.users()) == 1 })
}

func TestUsersDeleteCancel(t *testing.T) {
	m := newUsersModel(newEnv(Deps{}))
	m, _ = m.Update(query.Entry{Key: query.KeyUsers, Data: []domain.User{{ID: "1", Name: "bo"}}})
	m, _ = m.Update(runes("d"))
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd != nil || m.deleting {
		t.Error("expected esc to cancel the delete")
	}
}

func TestUsersIgnoresOtherUsersTaskEntries(t *testing.T) {
	m := newUsersModel(newEnv(Deps{}))
	m.detail = &domain.User{ID: "1"}
	m, _ = m.Update(query.Entry{Key: query.TasksForUser("2"), Data: []domain.Task{{ID: "x"}}})
	if m.detailTasks.Data != nil {
		t.Error("expected entries for another user to be ignored")
	}
}
