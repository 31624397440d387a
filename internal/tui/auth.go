package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/taskdash/pkg/client"
	"github.com/naveenspark/taskdash/pkg/domain"
)

// authResultMsg carries the result of a login or register call.
type authResultMsg struct {
	resp     *domain.AuthResponse
	err      error
	register bool
}

// switchAuthMsg flips between the login and register screens.
type switchAuthMsg struct{}

const (
	loginEmail = iota
	loginPassword
)

type loginModel struct {
	env        *env
	form       form
	submitting bool
	errMsg     string
}

func newLoginModel(e *env) loginModel {
	return loginModel{
		env: e,
		form: newForm(
			field{label: "email"},
			field{label: "password", masked: true},
		),
	}
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case authResultMsg:
		if msg.register {
			return m, nil
		}
		m.submitting = false
		if msg.err != nil {
			m.errMsg = client.Message(msg.err)
			m.form = m.form.set(loginPassword, "")
		}
		return m, nil

	case tea.KeyMsg:
		key := keyText(msg)
		switch key {
		case "ctrl+r":
			return m, func() tea.Msg { return switchAuthMsg{} }
		case "enter":
			if !m.form.onLast() {
				m.form.focus++
				return m, nil
			}
			return m.submit()
		case "ctrl+s":
			return m.submit()
		}
		m.errMsg = ""
		m.form, _ = m.form.handleKey(key)
	}
	return m, nil
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	email := m.form.trimmed(loginEmail)
	password := m.form.value(loginPassword)
	if email == "" || password == "" {
		m.errMsg = "email and password are required"
		return m, nil
	}
	m.submitting = true
	m.errMsg = ""
	c := m.env.client
	creds := client.Credentials{Email: email, Password: password}
	return m, func() tea.Msg {
		resp, err := c.Login(context.Background(), creds)
		return authResultMsg{resp: resp, err: err}
	}
}

func (m loginModel) View() string {
	var b strings.Builder
	b.WriteString("\n  " + selectedStyle.Render("Log in") + "\n\n")
	for _, line := range strings.Split(strings.TrimRight(m.form.view(true), "\n"), "\n") {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("\n")
	switch {
	case m.submitting:
		b.WriteString("  " + dimStyle.Render("logging in..."))
	case m.errMsg != "":
		b.WriteString("  " + errorStyle.Render(m.errMsg))
	default:
		b.WriteString("  " + metaStyle.Render("no account? ctrl+r to register"))
	}
	return b.String()
}

const (
	registerName = iota
	registerEmail
	registerPassword
	registerRole
)

type registerModel struct {
	env        *env
	form       form
	submitting bool
	errMsg     string
}

func roleChoices() []string {
	out := make([]string, 0, len(domain.Roles))
	for _, r := range domain.Roles {
		out = append(out, string(r))
	}
	return out
}

func newRegisterModel(e *env) registerModel {
	f := newForm(
		field{label: "name"},
		field{label: "email"},
		field{label: "password", masked: true},
		field{label: "role", choices: roleChoices()},
	)
	return registerModel{env: e, form: f.reset()}
}

func (m registerModel) Update(msg tea.Msg) (registerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case authResultMsg:
		if !msg.register {
			return m, nil
		}
		m.submitting = false
		if msg.err != nil {
			m.errMsg = client.Message(msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		key := keyText(msg)
		switch key {
		case "ctrl+r", "esc":
			return m, func() tea.Msg { return switchAuthMsg{} }
		case "enter":
			if !m.form.onLast() {
				m.form.focus++
				return m, nil
			}
			return m.submit()
		case "ctrl+s":
			return m.submit()
		}
		m.errMsg = ""
		m.form, _ = m.form.handleKey(key)
	}
	return m, nil
}

func (m registerModel) submit() (registerModel, tea.Cmd) {
	reg := client.Registration{
		Name:     m.form.trimmed(registerName),
		Email:    m.form.trimmed(registerEmail),
		Password: m.form.value(registerPassword),
		Role:     domain.Role(m.form.value(registerRole)),
	}
	if reg.Name == "" || reg.Email == "" || reg.Password == "" {
		m.errMsg = "name, email and password are required"
		return m, nil
	}
	if !domain.ValidRole(reg.Role) {
		m.errMsg = "invalid role"
		return m, nil
	}
	m.submitting = true
	m.errMsg = ""
	c := m.env.client
	return m, func() tea.Msg {
		resp, err := c.Register(context.Background(), reg)
		return authResultMsg{resp: resp, err: err, register: true}
	}
}

func (m registerModel) View() string {
	var b strings.Builder
	b.WriteString("\n  " + selectedStyle.Render("Register") + "\n\n")
	for _, line := range strings.Split(strings.TrimRight(m.form.view(true), "\n"), "\n") {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("\n")
	switch {
	case m.submitting:
		b.WriteString("  " + dimStyle.Render("creating account..."))
	case m.errMsg != "":
		b.WriteString("  " + errorStyle.Render(m.errMsg))
	default:
		b.WriteString("  " + metaStyle.Render("have an account? ctrl+r to log in"))
	}
	return b.String()
}
