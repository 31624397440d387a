package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/taskdash/internal/query"
	"github.com/naveenspark/taskdash/pkg/domain"
)

type profileSavedMsg struct {
	profile *domain.Profile
	err     error
}

const (
	profileName = iota
	profileEmail
)

type profileModel struct {
	env     *env
	entry   query.Entry
	editing bool
	draft   form
	saving  bool
	status  string
}

func newProfileModel(e *env) profileModel {
	return profileModel{
		env:   e,
		entry: query.Entry{Key: query.KeyProfile},
		draft: newForm(field{label: "name"}, field{label: "email"}),
	}
}

// mount queries the profile, showing any cached copy right away.
func (m profileModel) mount() profileModel {
	m.entry = m.env.query(query.KeyProfile)
	return m
}

func (m profileModel) loaded() (domain.Profile, bool) {
	p, ok := query.Value[*domain.Profile](m.entry)
	if !ok || p == nil {
		return domain.Profile{}, false
	}
	return *p, true
}

func (m profileModel) draftProfile() domain.Profile {
	return domain.Profile{Name: m.draft.trimmed(profileName), Email: m.draft.trimmed(profileEmail)}
}

// unchanged reports whether saving would be a no-op. Save is disabled then.
func (m profileModel) unchanged() bool {
	p, ok := m.loaded()
	return ok && m.draftProfile() == p
}

func (m profileModel) Update(msg tea.Msg) (profileModel, tea.Cmd) {
	switch msg := msg.(type) {
	case query.Entry:
		m.entry = msg
		return m, nil

	case profileSavedMsg:
		m.saving = false
		if msg.err != nil {
			return m, errorToastCmd("save failed", msg.err)
		}
		m.editing = false
		m.status = ""
		return m, toastCmd("Profile updated")

	case tea.KeyMsg:
		if m.editing {
			return m.handleKeyEditing(msg)
		}
		switch msg.String() {
		case "e":
			p, ok := m.loaded()
			if !ok {
				m.status = "profile not loaded yet"
				return m, nil
			}
			m.draft = m.draft.set(profileName, p.Name).set(profileEmail, p.Email)
			m.draft.focus = profileName
			m.editing = true
			m.status = ""
		case "r":
			return m, m.env.refetch(query.KeyProfile)
		}
	}
	return m, nil
}

func (m profileModel) handleKeyEditing(msg tea.KeyMsg) (profileModel, tea.Cmd) {
	key := keyText(msg)
	switch key {
	case "esc":
		m.editing = false
		m.status = ""
		return m, nil
	case "enter", "ctrl+s":
		return m.save()
	}
	m.draft, _ = m.draft.handleKey(key)
	return m, nil
}

func (m profileModel) save() (profileModel, tea.Cmd) {
	if m.saving || m.unchanged() {
		return m, nil
	}
	p := m.draftProfile()
	if p.Name == "" || p.Email == "" {
		m.status = "name and email are required"
		return m, nil
	}
	m.saving = true
	m.status = ""
	e := m.env
	ctx := e.ctx()
	return m, func() tea.Msg {
		saved, err := query.Mutate(ctx, e.cache, query.UpdateProfile, func(ctx context.Context) (*domain.Profile, error) {
			return e.client.UpdateProfile(ctx, p)
		})
		return profileSavedMsg{profile: saved, err: err}
	}
}

func (m profileModel) helpKeys() string {
	if m.editing {
		return helpEntry("tab", "next") + "  " + helpEntry("enter", "save") + "  " + helpEntry("esc", "discard")
	}
	return helpEntry("e", "edit") + "  " + helpEntry("r", "refresh")
}

func (m profileModel) View() string {
	var b strings.Builder
	b.WriteString("\n")
	p, ok := m.loaded()
	switch {
	case !ok && m.entry.Loading:
		b.WriteString("  " + dimStyle.Render("loading profile...") + "\n")
	case !ok && m.entry.Err != nil:
		b.WriteString("  " + errorStyle.Render(fmt.Sprintf("couldn't load profile: %s", entryError(m.entry))) + "\n")
	case !ok:
		b.WriteString("  " + dimStyle.Render("no profile") + "\n")
	case m.editing:
		for _, line := range strings.Split(strings.TrimRight(m.draft.view(true), "\n"), "\n") {
			b.WriteString("  " + line + "\n")
		}
		b.WriteString("\n")
		switch {
		case m.saving:
			b.WriteString("  " + dimStyle.Render("saving..."))
		case m.unchanged():
			b.WriteString("  " + metaStyle.Render("save disabled: no changes"))
		default:
			b.WriteString("  " + accentStyle.Render("enter to save"))
		}
		b.WriteString("\n")
	default:
		fmt.Fprintf(&b, "  %s  %s\n", sectionHeaderStyle.Render("name "), selectedStyle.Render(p.Name))
		fmt.Fprintf(&b, "  %s  %s\n", sectionHeaderStyle.Render("email"), normalStyle.Render(p.Email))
		if s := m.env.session; s != nil {
			fmt.Fprintf(&b, "  %s  %s %s\n", sectionHeaderStyle.Render("role "), roleBadge(string(s.ClaimedRole())), metaStyle.Render("(claimed by token)"))
		}
		b.WriteString("\n  " + entryFooter(m.entry) + "\n")
	}
	if m.status != "" {
		b.WriteString("\n  " + warnStyle.Render(m.status) + "\n")
	}
	return b.String()
}
