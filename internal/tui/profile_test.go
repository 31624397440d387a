package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/taskdash/internal/query"
	"github.com/naveenspark/taskdash/pkg/domain"
)

func loadedProfileModel(p domain.Profile) profileModel {
	m := newProfileModel(newEnv(Deps{}))
	m, _ = m.Update(query.Entry{Key: query.KeyProfile, Data: &p})
	return m
}

func TestProfileSaveDisabledWhenUnchanged(t *testing.T) {
	m := loadedProfileModel(domain.Profile{Name: "ana", Email: "ana@x.com"})
	m, _ = m.Update(runes("e"))
	if !m.editing {
		t.Fatal("expected editing after 'e'")
	}
	if !m.unchanged() {
		t.Fatal("expected the fresh draft to equal the loaded profile")
	}
	if !strings.Contains(m.View(), "save disabled") {
		t.Error("expected the disabled hint")
	}
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || m.saving {
		t.Error("expected no save for an unchanged draft")
	}
}

func TestProfileEscDiscardsDraft(t *testing.T) {
	m := loadedProfileModel(domain.Profile{Name: "ana", Email: "ana@x.com"})
	m, _ = m.Update(runes("e"))
	m, _ = m.Update(runes("x"))
	if m.unchanged() {
		t.Fatal("expected the draft to differ after typing")
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.editing {
		t.Error("expected editing to end on esc")
	}
	m, _ = m.Update(runes("e"))
	if m.draft.value(profileName) != "ana" {
		t.Errorf("expected a fresh draft from the cached profile, got %q", m.draft.value(profileName))
	}
}

func TestProfileEditBeforeLoad(t *testing.T) {
	m := newProfileModel(newEnv(Deps{}))
	m, _ = m.Update(runes("e"))
	if m.editing {
		t.Error("expected no editing before the profile loads")
	}
	if m.status == "" {
		t.Error("expected a status hint")
	}
}

func TestProfileSaveUpdatesBackend(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, b.seed(t, "ana", domain.RoleUser))
	a := b.app(t)
	a = settle(t, a, func(a App) bool { _, ok := a.profile.loaded(); return ok })

	a, _ = update(a, runes("e"))
	if !a.isEditing() {
		t.Fatal("expected the profile to be editing")
	}
	a = typeText(a, "na")
	a, cmd := update(a, tea.KeyMsg{Type: tea.KeyEnter})
	if !a.profile.saving {
		t.Fatal("expected saving after enter")
	}
	a, cmd = run(t, a, cmd)
	if a.profile.editing {
		t.Error("expected editing to end after a successful save")
	}
	a, _ = run(t, a, cmd)
	if a.toasts[len(a.toasts)-1].text != "Profile updated" {
		t.Errorf("expected an updated toast, got %+v", a.toasts)
	}
	a = settle(t, a, func(a App) bool {
		p, ok := a.profile.loaded()
		return ok && p.Name == "anana"
	})
}

func TestProfileSaveConflictShowsServerMessage(t *testing.T) {
	b := newBackend(t)
	b.seed(t, "bo", domain.RoleUser)
	b.signIn(t, b.seed(t, "ana", domain.RoleUser))
	a := b.app(t)
	a = settle(t, a, func(a App) bool { _, ok := a.profile.loaded(); return ok })

	a, _ = update(a, runes("e"))
	a.profile.draft = a.profile.draft.set(profileEmail, "bo@x.com")
	a, cmd := update(a, tea.KeyMsg{Type: tea.KeyCtrlS})
	a, cmd = run(t, a, cmd)
	if !a.profile.editing {
		t.Error("expected the draft kept after a failed save")
	}
	a, _ = run(t, a, cmd)
	last := a.toasts[len(a.toasts)-1]
	if !last.err || !strings.Contains(last.text, "Email already in use") {
		t.Errorf("expected the conflict message, got %+v", last)
	}
	if p, _ := a.profile.loaded(); p.Email != "ana@x.com" {
		t.Errorf("expected the cached profile untouched, got %+v", p)
	}
}
