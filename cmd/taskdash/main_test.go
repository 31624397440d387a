package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/naveenspark/taskdash/internal/mockapi"
	"github.com/naveenspark/taskdash/internal/session"
	"github.com/naveenspark/taskdash/pkg/domain"
)

// isolate points config and the session store at temp dirs.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TASKDASH_CONFIG", "")
	dir := t.TempDir()
	t.Setenv("TASKDASH_SESSION_DIR", dir)
	return dir
}

func runOut(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(args, &out)
	return out.String(), err
}

func TestRunVersion(t *testing.T) {
	for _, arg := range []string{"version", "--version", "-v"} {
		t.Run(arg, func(t *testing.T) {
			out, err := runOut(t, arg)
			if err != nil {
				t.Fatal(err)
			}
			if out != "taskdash dev\n" {
				t.Errorf("unexpected output %q", out)
			}
		})
	}
}

func TestRunHelp(t *testing.T) {
	out, err := runOut(t, "help")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"whoami", "logout", "mock-api"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in help output", want)
		}
	}
}

func TestRunUnknownCommand(t *testing.T) {
	isolate(t)
	_, err := runOut(t, "frobnicate")
	if err == nil || !strings.Contains(err.Error(), "frobnicate") {
		t.Errorf("expected an unknown command error, got %v", err)
	}
}

func TestWhoamiWithoutSession(t *testing.T) {
	isolate(t)
	out, err := runOut(t, "whoami")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Not logged in") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestWhoamiShowsClaimedRole(t *testing.T) {
	dir := isolate(t)
	api := mockapi.New()
	u, err := api.Seed("Root", "root@x.com", "pw", domain.RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	tok, err := api.Token(u)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := session.NewStore(dir).Set(tok, &u); err != nil {
		t.Fatal(err)
	}

	out, err := runOut(t, "whoami")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Root <root@x.com>", "role: admin", "not verified", u.ID} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}

func TestWhoamiUnreadableToken(t *testing.T) {
	dir := isolate(t)
	if _, err := session.NewStore(dir).Set("not-a-jwt", nil); err != nil {
		t.Fatal(err)
	}
	out, err := runOut(t, "whoami")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "unknown") {
		t.Errorf("expected an unknown role, got %q", out)
	}
}

func TestLogout(t *testing.T) {
	dir := isolate(t)
	store := session.NewStore(dir)
	if _, err := store.Set("tok", nil); err != nil {
		t.Fatal(err)
	}

	out, err := runOut(t, "logout")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Logged out.\n" {
		t.Errorf("unexpected output %q", out)
	}
	if store.Token() != "" {
		t.Error("expected the token removed")
	}

	out, err = runOut(t, "logout")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Already logged out.\n" {
		t.Errorf("unexpected output %q", out)
	}
}
