package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/naveenspark/taskdash/internal/config"
	"github.com/naveenspark/taskdash/internal/logging"
	"github.com/naveenspark/taskdash/internal/mockapi"
	"github.com/naveenspark/taskdash/internal/notify"
	"github.com/naveenspark/taskdash/internal/query"
	"github.com/naveenspark/taskdash/internal/session"
	"github.com/naveenspark/taskdash/internal/tui"
	"github.com/naveenspark/taskdash/pkg/client"
	"github.com/naveenspark/taskdash/pkg/domain"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// Seeded into `taskdash mock-api` so there is an admin to log in as.
const (
	mockAdminEmail    = "admin@taskdash.local"
	mockAdminPassword = "admin"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "--version", "version", "-v":
			fmt.Fprintln(out, "taskdash "+version)
			return nil
		case "help", "--help", "-h":
			printHelp(out)
			return nil
		case "mock-api":
			addr := ":5000"
			if len(args) > 1 {
				addr = args[1]
			}
			return runMockAPI(addr, out)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if len(args) > 0 {
		switch args[0] {
		case "logout":
			return runLogout(cfg, out)
		case "whoami":
			return runWhoami(cfg, out)
		default:
			return fmt.Errorf("unknown command %q, see taskdash help", args[0])
		}
	}
	return runTUI(cfg)
}

func runTUI(cfg *config.Config) error {
	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close() //nolint:errcheck

	store := session.NewStore(cfg.SessionDir)
	c := client.New(cfg.APIURL, store,
		client.WithTimeout(cfg.HTTP.Timeout),
		client.WithLogger(log),
	)
	cache := query.New(
		query.WithStaleTime(cfg.Cache.StaleTime),
		query.WithLogger(log),
	)
	notifier := notify.NewManager(notify.NewSSEDialer(cfg.APIURL, cfg.EventsPath), store,
		notify.WithLogger(log),
	)

	log.WithFields(logrus.Fields{
		"version": version,
		"api_url": cfg.APIURL,
	}).Info("taskdash: starting")

	app := tui.NewApp(tui.Deps{
		Client:        c,
		Store:         store,
		Cache:         cache,
		Notifier:      notifier,
		Log:           log,
		ToastDuration: cfg.Toast.Duration,
		WebURL:        cfg.WebURL,
		Version:       version,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

func runLogout(cfg *config.Config, out io.Writer) error {
	store := session.NewStore(cfg.SessionDir)
	if store.Token() == "" {
		fmt.Fprintln(out, "Already logged out.")
		return nil
	}
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(out, "Logged out.")
	return nil
}

func runWhoami(cfg *config.Config, out io.Writer) error {
	sess, err := session.NewStore(cfg.SessionDir).Load()
	if errors.Is(err, session.ErrNoSession) {
		fmt.Fprintln(out, "Not logged in. Run taskdash to log in.")
		return nil
	}
	if err != nil {
		return err
	}

	if sess.User != nil {
		fmt.Fprintf(out, "%s <%s>\n", sess.User.Name, sess.User.Email)
	}
	if id := sess.UserID(); id != "" {
		fmt.Fprintf(out, "id:   %s\n", id)
	}
	role := string(sess.ClaimedRole())
	if role == "" {
		role = "unknown (token unreadable)"
	}
	fmt.Fprintf(out, "role: %s (claimed by the token, not verified; the server decides)\n", role)
	return nil
}

func runMockAPI(addr string, out io.Writer) error {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	srv := mockapi.New(mockapi.WithLogger(log))
	if _, err := srv.Seed("Admin", mockAdminEmail, mockAdminPassword, domain.RoleAdmin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx) //nolint:errcheck
	}()

	fmt.Fprintf(out, "mock API on %s (admin: %s / %s)\n", addr, mockAdminEmail, mockAdminPassword)
	return srv.Start(addr)
}
