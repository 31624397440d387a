package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/taskdash/internal/browser"
	"github.com/naveenspark/taskdash/internal/query"
	"github.com/naveenspark/taskdash/internal/session"
)

type screen int

const (
	screenLogin screen = iota
	screenRegister
	screenDashboard
)

type tab int

const (
	tabProfile tab = iota
	tabTasks
	tabUsers
	tabAssign
)

// adminOnly reports whether t is hidden from non-admin sessions.
func (t tab) adminOnly() bool { return t == tabUsers || t == tabAssign }

// wantsPush reports whether t holds the push channel while mounted.
func (t tab) wantsPush() bool { return t == tabTasks || t == tabAssign }

// App is the root Bubbletea model.
type App struct {
	env        *env
	screen     screen
	tab        tab
	login      loginModel
	register   registerModel
	profile    profileModel
	tasks      tasksModel
	users      usersModel
	assign     assignModel
	toasts     []toast
	nextToast  int
	helpOpen   bool
	helpCursor int
	width      int
	height     int
	frame      int // logo shimmer animation frame
}

// NewApp creates the TUI. A stored session opens the dashboard directly.
func NewApp(d Deps) App {
	e := newEnv(d)
	a := App{
		env:      e,
		login:    newLoginModel(e),
		register: newRegisterModel(e),
	}
	a = a.resetViews()
	if e.store != nil {
		if s := e.store.Current(); s != nil {
			a = a.enterDashboard(s)
		}
	}
	return a
}

func (a App) Init() tea.Cmd {
	return tea.Batch(a.env.mail.wait(), shimmerTickCmd())
}

func (a App) resetViews() App {
	a.profile = newProfileModel(a.env)
	a.tasks = newTasksModel(a.env)
	a.users = newUsersModel(a.env)
	a.assign = newAssignModel(a.env)
	return a
}

func (a App) enterDashboard(s *session.Session) App {
	a.env.session = s
	a.screen = screenDashboard
	a.tab = tabProfile
	a.helpOpen = false
	a = a.resetViews()
	return a.mount(tabProfile)
}

// mount shows t, acquiring the push channel before the previous tab lets
// go of it so the shared connection survives the switch.
func (a App) mount(t tab) App {
	prev := a.tab
	if t.wantsPush() {
		a.env.acquirePush(t)
	}
	if prev != t {
		a.env.releasePush(prev)
	}
	a.tab = t
	switch t {
	case tabProfile:
		a.profile = a.profile.mount()
	case tabTasks:
		a.tasks = a.tasks.mount()
	case tabUsers:
		a.users = a.users.mount()
	case tabAssign:
		a.assign = a.assign.mount()
	}
	return a
}

func (a App) switchTab(t tab) App {
	if t == a.tab || (t.adminOnly() && !a.env.isAdmin()) {
		return a
	}
	return a.mount(t)
}

func (a App) logout() (App, tea.Cmd) {
	e := a.env
	e.releaseAllPush()
	e.unwatchAll()
	e.cache.Reset()
	if e.store != nil {
		if err := e.store.Clear(); err != nil {
			e.log.WithError(err).Warn("tui: clear session")
		}
	}
	e.session = nil
	a.screen = screenLogin
	a.tab = tabProfile
	a.helpOpen = false
	a.login = newLoginModel(e)
	a.register = newRegisterModel(e)
	a = a.resetViews()
	return a, toastCmd("Logged out")
}

func (a App) signedIn(msg authResultMsg) (App, tea.Cmd) {
	e := a.env
	s := session.New(msg.resp.Token, msg.resp.User)
	if e.store != nil {
		// A fresh registration only persists the token; the profile
		// comes from the backend once the dashboard loads.
		user := msg.resp.User
		if msg.register {
			user = nil
		}
		stored, err := e.store.Set(msg.resp.Token, user)
		if err != nil {
			e.log.WithError(err).Warn("tui: store session")
			return a, errorToastCmd("couldn't save session", err)
		}
		s = stored
	}
	if err := s.DecodeErr(); err != nil {
		e.log.WithError(err).Debug("tui: token claims unreadable, treating as non-admin")
	}
	a = a.enterDashboard(s)
	if name := s.DisplayName(); name != "" {
		return a, toastCmd("Welcome, " + name)
	}
	return a, toastCmd("Logged in")
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Chrome: logo(1) + status(1) + tabs(1) + toast(1) + help(1) = 5 lines
		bodyMsg := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 5}
		a.tasks, _ = a.tasks.Update(bodyMsg)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case mailMsg:
		return a.deliver(msg)

	case toastMsg:
		return a.addToast(msg)

	case toastExpiredMsg:
		for i, t := range a.toasts {
			if t.id == msg.id {
				a.toasts = append(a.toasts[:i:i], a.toasts[i+1:]...)
				break
			}
		}
		return a, nil

	case switchAuthMsg:
		switch a.screen {
		case screenLogin:
			a.screen = screenRegister
		case screenRegister:
			a.screen = screenLogin
		}
		return a, nil

	case authResultMsg:
		var cmd tea.Cmd
		if msg.register {
			a.register, cmd = a.register.Update(msg)
		} else {
			a.login, cmd = a.login.Update(msg)
		}
		if msg.err != nil || msg.resp == nil || a.screen == screenDashboard {
			return a, cmd
		}
		return a.signedIn(msg)

	case profileSavedMsg:
		var cmd tea.Cmd
		a.profile, cmd = a.profile.Update(msg)
		return a, cmd

	case taskSavedMsg, taskDeletedMsg, taskCopyMsg:
		var cmd tea.Cmd
		a.tasks, cmd = a.tasks.Update(msg)
		return a, cmd

	case userDeletedMsg:
		var cmd tea.Cmd
		a.users, cmd = a.users.Update(msg)
		return a, cmd

	case assignedMsg:
		var cmd tea.Cmd
		a.assign, cmd = a.assign.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

// deliver routes cache changes to the views that show them and turns push
// events into toasts for the tab that asked for them.
func (a App) deliver(msg mailMsg) (App, tea.Cmd) {
	cmds := []tea.Cmd{a.env.mail.wait()}
	for _, entry := range msg.entries {
		var cmd tea.Cmd
		switch entry.Key {
		case query.KeyProfile:
			a.profile, cmd = a.profile.Update(entry)
		case query.KeyTasks:
			a.tasks, cmd = a.tasks.Update(entry)
		case query.KeyUsers:
			var assignCmd tea.Cmd
			a.users, cmd = a.users.Update(entry)
			a.assign, assignCmd = a.assign.Update(entry)
			cmds = append(cmds, assignCmd)
		default:
			if _, ok := userTasksID(entry.Key); ok {
				a.users, cmd = a.users.Update(entry)
			}
		}
		cmds = append(cmds, cmd)
	}
	for _, ev := range msg.events {
		if a.screen != screenDashboard || ev.tab != a.tab || !a.env.holdsPush(ev.tab) {
			continue
		}
		var cmd tea.Cmd
		a, cmd = a.addToast(toastMsg{text: assignedToastText(ev.task)})
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

func (a App) addToast(msg toastMsg) (App, tea.Cmd) {
	a.nextToast++
	a.toasts = append(a.toasts, toast{id: a.nextToast, text: msg.text, err: msg.err})
	return a, expireToast(a.nextToast, a.env.toastDuration)
}

func (a App) handleKey(msg tea.KeyMsg) (App, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.screen {
	case screenLogin:
		var cmd tea.Cmd
		a.login, cmd = a.login.Update(msg)
		return a, cmd
	case screenRegister:
		var cmd tea.Cmd
		a.register, cmd = a.register.Update(msg)
		return a, cmd
	}

	// Help overlay captures all keys when open
	if a.helpOpen {
		items := helpItems(a.env.webURL)
		switch msg.String() {
		case "h", "esc":
			a.helpOpen = false
		case "q":
			return a, tea.Quit
		case "j", "down":
			if a.helpCursor < len(items)-1 {
				a.helpCursor++
			}
		case "k", "up":
			if a.helpCursor > 0 {
				a.helpCursor--
			}
		case "enter":
			if a.helpCursor < len(items) {
				if err := browser.Open(items[a.helpCursor].url); err != nil {
					return a, errorToastCmd("open link", err)
				}
			}
		}
		return a, nil
	}

	// Global keys (only when not editing)
	if !a.isEditing() {
		switch msg.String() {
		case "h":
			a.helpOpen = true
			a.helpCursor = 0
			return a, nil
		case "q":
			return a, tea.Quit
		case "L":
			return a.logout()
		case "1":
			return a.switchTab(tabProfile), nil
		case "2":
			return a.switchTab(tabTasks), nil
		case "3":
			return a.switchTab(tabUsers), nil
		case "4":
			return a.switchTab(tabAssign), nil
		}
	}

	var cmd tea.Cmd
	switch a.tab {
	case tabProfile:
		a.profile, cmd = a.profile.Update(msg)
	case tabTasks:
		a.tasks, cmd = a.tasks.Update(msg)
	case tabUsers:
		a.users, cmd = a.users.Update(msg)
	case tabAssign:
		a.assign, cmd = a.assign.Update(msg)
	}
	return a, cmd
}

func (a App) isEditing() bool {
	switch a.tab {
	case tabProfile:
		return a.profile.editing
	case tabTasks:
		return a.tasks.editing()
	case tabAssign:
		return a.assign.editing()
	}
	return false
}

type tabEntry struct {
	key  string
	name string
	t    tab
}

// visibleTabs lists the tabs the current session may open.
func (a App) visibleTabs() []tabEntry {
	tabs := []tabEntry{
		{"1", "Profile", tabProfile},
		{"2", "Tasks", tabTasks},
	}
	if a.env.isAdmin() {
		tabs = append(tabs, tabEntry{"3", "Users", tabUsers}, tabEntry{"4", "Assign", tabAssign})
	}
	return tabs
}

func centered(s string, width int) string {
	pad := (width - lipgloss.Width(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + s
}

func (a App) View() string {
	header := centered(renderShimmerLogo(a.frame), a.width)

	var statusLine, tabBar, body, help string
	switch a.screen {
	case screenLogin:
		body = a.login.View()
		help = helpBar(helpEntry("tab", "next"), helpEntry("enter", "submit"), helpEntry("ctrl+r", "register"), helpEntry("ctrl+c", "quit"))
	case screenRegister:
		body = a.register.View()
		help = helpBar(helpEntry("tab", "next"), helpEntry("h/l", "role"), helpEntry("enter", "submit"), helpEntry("esc", "log in"), helpEntry("ctrl+c", "quit"))
	default:
		s := a.env.session
		name := s.DisplayName()
		if p, ok := a.profile.loaded(); ok && name == "" {
			name = p.Name
		}
		statusLine = centered(metaStyle.Render(name)+" "+roleBadge(string(s.ClaimedRole())), a.width)
		tabBar = a.viewTabs()
		switch a.tab {
		case tabProfile:
			body = a.profile.View()
			help = helpBar(helpEntry("1-4", "tabs"), a.profile.helpKeys())
		case tabTasks:
			body = a.tasks.View()
			help = helpBar(helpEntry("1-4", "tabs"), a.tasks.helpKeys())
		case tabUsers:
			body = a.users.View()
			help = helpBar(helpEntry("1-4", "tabs"), a.users.helpKeys())
		case tabAssign:
			body = a.assign.View()
			help = helpBar(helpEntry("1-4", "tabs"), a.assign.helpKeys())
		}
		if !a.isEditing() {
			help += "  " + helpEntry("h", "help") + "  " + helpEntry("L", "logout") + "  " + helpEntry("q", "quit")
		}
		if a.helpOpen {
			body = helpView(helpItems(a.env.webURL), a.helpCursor, a.env.version)
			help = helpBar(helpEntry("j/k", "nav"), helpEntry("enter", "open"), helpEntry("esc", "close"))
		}
	}

	chrome := 5
	if a.height > 0 {
		body = truncateToHeight(body, a.height-chrome)
	}
	body = strings.TrimRight(body, "\n")

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s\n%s", header, statusLine, tabBar, body, toastLine(a.toasts), help)
}

func (a App) viewTabs() string {
	tabs := a.visibleTabs()
	colWidth := a.width / len(tabs)
	var b strings.Builder
	for _, t := range tabs {
		var label string
		if t.t == a.tab {
			label = accentStyle.Render(t.key) + " " + selectedStyle.Underline(true).Render(t.name)
		} else {
			label = metaStyle.Render(t.key) + " " + dimStyle.Render(t.name)
		}
		labelWidth := lipgloss.Width(label)
		leftPad := max((colWidth-labelWidth)/2, 0)
		rightPad := max(colWidth-labelWidth-leftPad, 0)
		b.WriteString(strings.Repeat(" ", leftPad) + label + strings.Repeat(" ", rightPad))
	}
	return b.String()
}
