package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/taskdash/internal/mockapi"
	"github.com/naveenspark/taskdash/internal/notify"
	"github.com/naveenspark/taskdash/internal/query"
	"github.com/naveenspark/taskdash/internal/session"
	"github.com/naveenspark/taskdash/pkg/client"
	"github.com/naveenspark/taskdash/pkg/domain"
)

func TestAppStartsOnLoginWithoutSession(t *testing.T) {
	b := newBackend(t)
	a := b.app(t)
	if a.screen != screenLogin {
		t.Fatalf("expected login screen, got %d", a.screen)
	}
	if !strings.Contains(a.View(), "Log in") {
		t.Error("expected the login form in the view")
	}
}

func TestAppWithoutStore(t *testing.T) {
	a := NewApp(Deps{})
	if a.screen != screenLogin {
		t.Fatalf("expected login screen, got %d", a.screen)
	}
	if a.Init() == nil {
		t.Error("expected Init to return a command")
	}
}

func TestAppOpensDashboardWithStoredSession(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, b.seed(t, "ana", domain.RoleUser))

	a := b.app(t)
	if a.screen != screenDashboard || a.tab != tabProfile {
		t.Fatalf("expected dashboard on profile, got screen=%d tab=%d", a.screen, a.tab)
	}
	a = settle(t, a, func(a App) bool { _, ok := a.profile.loaded(); return ok })
	p, _ := a.profile.loaded()
	if p.Name != "ana" {
		t.Errorf("expected profile for ana, got %+v", p)
	}
}

func TestAppLoginStoresSession(t *testing.T) {
	b := newBackend(t)
	b.seed(t, "ana", domain.RoleUser)
	a := b.app(t)

	a = typeText(a, "ana@x.com")
	a, _ = update(a, tea.KeyMsg{Type: tea.KeyEnter})
	a = typeText(a, "pw")
	a, cmd := update(a, tea.KeyMsg{Type: tea.KeyEnter})
	a, _ = run(t, a, cmd)

	if a.screen != screenDashboard {
		t.Fatalf("expected dashboard after login, got %d", a.screen)
	}
	if b.store.Token() == "" {
		t.Error("expected a stored token after login")
	}
	if sess := b.store.Current(); sess == nil || sess.User == nil || sess.User.Name != "ana" {
		t.Errorf("expected the stored user record, got %+v", sess)
	}
}

func TestAppLoginInvalidCredentials(t *testing.T) {
	b := newBackend(t)
	b.seed(t, "ana", domain.RoleUser)
	a := b.app(t)

	a = typeText(a, "ana@x.com")
	a, _ = update(a, tea.KeyMsg{Type: tea.KeyTab})
	a = typeText(a, "wrong")
	a, cmd := update(a, tea.KeyMsg{Type: tea.KeyCtrlS})
	a, _ = run(t, a, cmd)

	if a.screen != screenLogin {
		t.Fatalf("expected to stay on login, got %d", a.screen)
	}
	if b.store.Token() != "" {
		t.Error("expected no session after a failed login")
	}
	if a.login.errMsg != "Invalid Credentials" {
		t.Errorf("expected the server message, got %q", a.login.errMsg)
	}
	if a.login.form.value(loginPassword) != "" {
		t.Error("expected the password cleared after a failed login")
	}
}

func TestAppRegisterStoresTokenOnly(t *testing.T) {
	b := newBackend(t)
	a := b.app(t)

	a, cmd := update(a, tea.KeyMsg{Type: tea.KeyCtrlR})
	a, _ = run(t, a, cmd)
	if a.screen != screenRegister {
		t.Fatalf("expected register screen, got %d", a.screen)
	}

	for i, text := range []string{"A", "a@x.com", "p"} {
		a = typeText(a, text)
		a, _ = update(a, tea.KeyMsg{Type: tea.KeyEnter})
		if a.register.form.focus != i+1 {
			t.Fatalf("expected focus %d, got %d", i+1, a.register.form.focus)
		}
	}
	a, cmd = update(a, tea.KeyMsg{Type: tea.KeyEnter})
	a, _ = run(t, a, cmd)

	if a.screen != screenDashboard {
		t.Fatalf("expected dashboard after register, got %d (err %q)", a.screen, a.register.errMsg)
	}
	sess, err := b.store.Load()
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if sess.User != nil {
		t.Errorf("expected no stored user after register, got %+v", sess.User)
	}
	if sess.IsAdmin() {
		t.Error("expected a user-role session")
	}
}

func TestAppRegisterDuplicateShowsServerMessage(t *testing.T) {
	b := newBackend(t)
	b.seed(t, "ana", domain.RoleUser)
	a := b.app(t)
	a.screen = screenRegister

	a = typeText(a, "Ana")
	a, _ = update(a, tea.KeyMsg{Type: tea.KeyTab})
	a = typeText(a, "ana@x.com")
	a, _ = update(a, tea.KeyMsg{Type: tea.KeyTab})
	a = typeText(a, "pw")
	a, cmd := update(a, tea.KeyMsg{Type: tea.KeyCtrlS})
	a, _ = run(t, a, cmd)

	if a.screen != screenRegister {
		t.Fatalf("expected to stay on register, got %d", a.screen)
	}
	if a.register.errMsg != "User already exists" {
		t.Errorf("expected duplicate message, got %q", a.register.errMsg)
	}
}

func TestAppAdminTabsHiddenForUsers(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, b.seed(t, "ana", domain.RoleUser))
	a := b.app(t)

	for _, key := range []string{"3", "4"} {
		a, _ = update(a, runes(key))
		if a.tab != tabProfile {
			t.Errorf("key %q: expected to stay on profile, got tab %d", key, a.tab)
		}
	}
	view := a.View()
	if strings.Contains(view, "Users") || strings.Contains(view, "Assign") {
		t.Error("expected admin tabs hidden from a non-admin")
	}
}

func TestAppTabSwitching(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, b.seed(t, "root", domain.RoleAdmin))

	tests := []struct {
		key  string
		want tab
		name string
	}{
		{"2", tabTasks, "Tasks"},
		{"3", tabUsers, "Users"},
		{"4", tabAssign, "Assign"},
		{"1", tabProfile, "Profile"},
	}
	a := b.app(t)
	for _, tc := range tests {
		a, _ = update(a, runes(tc.key))
		if a.tab != tc.want {
			t.Errorf("after key %q: expected tab=%d, got %d", tc.key, tc.want, a.tab)
		}
		if !strings.Contains(a.View(), tc.name) {
			t.Errorf("expected %q in the tab bar", tc.name)
		}
	}
}

func TestAppGlobalQuitOnQ(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, b.seed(t, "ana", domain.RoleUser))
	a := b.app(t)
	_, cmd := update(a, runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command on 'q', got nil")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestAppGlobalKeysSuppressedWhileEditing(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, b.seed(t, "ana", domain.RoleUser))
	a := b.app(t)
	a, _ = update(a, runes("2"))
	a, _ = update(a, runes("a"))
	if !a.isEditing() {
		t.Fatal("expected the task form to be editing")
	}
	a = typeText(a, "q1")
	if a.tab != tabTasks {
		t.Errorf("expected to stay on tasks while typing, got %d", a.tab)
	}
	if got := a.tasks.form.value(taskTitle); got != "q1" {
		t.Errorf("expected typed title %q, got %q", "q1", got)
	}
}

func TestAppHelpOverlay(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, b.seed(t, "ana", domain.RoleUser))
	a := b.app(t)

	a, _ = update(a, runes("h"))
	if !a.helpOpen {
		t.Fatal("expected help open after 'h'")
	}
	if !strings.Contains(a.View(), "T A S K D A S H") {
		t.Error("expected the help overlay in the view")
	}
	a, _ = update(a, runes("j"))
	if a.helpCursor != 1 {
		t.Errorf("expected helpCursor=1, got %d", a.helpCursor)
	}
	a, _ = update(a, tea.KeyMsg{Type: tea.KeyEsc})
	if a.helpOpen {
		t.Error("expected help closed after esc")
	}
}

func TestAppLogout(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, b.seed(t, "ana", domain.RoleUser))
	a := b.app(t)
	a = settle(t, a, func(a App) bool { _, ok := a.profile.loaded(); return ok })

	a, cmd := update(a, runes("L"))
	if a.screen != screenLogin {
		t.Fatalf("expected login screen after logout, got %d", a.screen)
	}
	if b.store.Token() != "" {
		t.Error("expected the stored session cleared")
	}
	if _, ok := a.env.cache.Get(query.KeyProfile); ok {
		t.Error("expected the cache reset")
	}
	if _, ok := a.profile.loaded(); ok {
		t.Error("expected the profile view reset")
	}
	a, _ = run(t, a, cmd)
	if len(a.toasts) != 1 || a.toasts[0].text != "Logged out" {
		t.Errorf("expected a logout toast, got %+v", a.toasts)
	}
}

func TestAppToastExpires(t *testing.T) {
	a := NewApp(Deps{})
	a, cmd := update(a, toastMsg{text: "hello"})
	if cmd == nil {
		t.Fatal("expected an expiry command")
	}
	if !strings.Contains(a.View(), "hello") {
		t.Error("expected the toast in the view")
	}
	a, _ = update(a, toastExpiredMsg{id: a.toasts[0].id})
	if len(a.toasts) != 0 {
		t.Errorf("expected toast removed, got %+v", a.toasts)
	}
}

func TestAppAssignedEventOnlyToastsMountedTab(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, b.seed(t, "root", domain.RoleAdmin))
	a := b.app(t)
	a, _ = update(a, runes("2"))

	ta := domain.TaskAssigned{Task: domain.Task{Title: "T1"}, User: domain.User{Name: "bo"}}
	a, _ = update(a, mailMsg{events: []assignedEvent{{tab: tabAssign, task: ta}, {tab: tabTasks, task: ta}}})
	if len(a.toasts) != 1 {
		t.Fatalf("expected one toast, got %+v", a.toasts)
	}
	if a.toasts[0].text != "Task Assigned: T1 to bo" {
		t.Errorf("unexpected toast text %q", a.toasts[0].text)
	}

	a, _ = update(a, runes("1"))
	a, _ = update(a, mailMsg{events: []assignedEvent{{tab: tabTasks, task: ta}}})
	if len(a.toasts) != 1 {
		t.Errorf("expected no toast after the tasks tab unmounted, got %+v", a.toasts)
	}
}

func TestAppTabsShareOnePushConnection(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, b.seed(t, "root", domain.RoleAdmin))
	mgr := notify.NewManager(notify.NewSSEDialer(b.srv.URL, mockapi.EventsPath), b.store,
		notify.WithBackoff(10*time.Millisecond, 50*time.Millisecond))
	b.deps.Notifier = mgr
	a := b.app(t)
	t.Cleanup(a.env.releaseAllPush)

	if mgr.Subscribers() != 0 {
		t.Fatalf("expected no push subscription on profile, got %d", mgr.Subscribers())
	}
	a, _ = update(a, runes("2"))
	if mgr.Subscribers() != 1 {
		t.Fatalf("expected tasks to subscribe, got %d", mgr.Subscribers())
	}
	a, _ = update(a, runes("4"))
	if mgr.Subscribers() != 1 {
		t.Fatalf("expected assign to take over the subscription, got %d", mgr.Subscribers())
	}
	if !a.env.holdsPush(tabAssign) || a.env.holdsPush(tabTasks) {
		t.Error("expected only the assign tab to hold the push channel")
	}
	a, _ = update(a, runes("1"))
	if mgr.Subscribers() != 0 {
		t.Errorf("expected the subscription released on profile, got %d", mgr.Subscribers())
	}
	if mgr.State() != notify.Disconnected {
		t.Errorf("expected disconnected, got %v", mgr.State())
	}
}

func TestAppAssignedPushShowsToast(t *testing.T) {
	b := newBackend(t)
	admin := b.seed(t, "root", domain.RoleAdmin)
	bo := b.seed(t, "bo", domain.RoleUser)
	b.signIn(t, admin)
	mgr := notify.NewManager(notify.NewSSEDialer(b.srv.URL, mockapi.EventsPath), b.store,
		notify.WithBackoff(10*time.Millisecond, 50*time.Millisecond))
	b.deps.Notifier = mgr
	a := b.app(t)
	t.Cleanup(a.env.releaseAllPush)

	a, _ = update(a, runes("2"))
	deadline := time.Now().Add(5 * time.Second)
	for mgr.State() != notify.Connected || b.api.Streams() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("push channel never connected")
		}
		time.Sleep(10 * time.Millisecond)
	}

	ctx := session.WithSession(context.Background(), b.store.Current())
	if _, err := b.deps.Client.CreateTask(ctx, client.TaskInput{Title: "Ship", AssignedTo: bo.ID}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	a = settle(t, a, func(a App) bool { return len(a.toasts) > 0 })
	if a.toasts[0].text != "Task Assigned: Ship to bo" {
		t.Errorf("unexpected toast %q", a.toasts[0].text)
	}
}
