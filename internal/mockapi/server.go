// Package mockapi is an in-memory task backend speaking the same REST and
// push-channel protocol as the real one. It backs tests and local runs of
// the dashboard.
package mockapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/naveenspark/taskdash/pkg/domain"
)

// EventsPath is where the push channel is served.
const EventsPath = "/api/events"

// Server is the mock backend.
type Server struct {
	echo      *echo.Echo
	store     *store
	events    *broker
	secret    []byte
	tokenTTL  time.Duration
	keepAlive time.Duration
	log       logrus.FieldLogger
}

// Option configures a Server.
type Option func(*Server)

// WithSecret sets the HS256 signing secret.
func WithSecret(secret []byte) Option {
	return func(s *Server) { s.secret = secret }
}

// WithLogger sets the request logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTokenTTL sets how long issued tokens are valid.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) { s.tokenTTL = d }
}

// New returns a Server with no users.
func New(opts ...Option) *Server {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	s := &Server{
		echo:      echo.New(),
		store:     newStore(),
		events:    newBroker(),
		secret:    []byte("taskdash-mock-secret"),
		tokenTTL:  time.Hour,
		keepAlive: 15 * time.Second,
		log:       discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.log.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency,
			}).Info("mock api request")
			return nil
		},
	}))
	s.routes()
	return s
}

// routes registers every endpoint.
func (s *Server) routes() {
	api := s.echo.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", s.register)
	auth.POST("/login", s.login)

	users := api.Group("/users", s.requireToken)
	users.GET("/viewProfile", s.viewProfile)
	users.PUT("/updateProfile", s.updateProfile)
	users.GET("/getAllUsers", s.listUsers, requireAdmin)

	admin := api.Group("/admin", s.requireToken, requireAdmin)
	admin.DELETE("/deleteProfile/:id", s.deleteUser)

	tasks := api.Group("/tasks", s.requireToken)
	tasks.GET("/getAll", s.listTasks)
	tasks.POST("/create", s.createTask)
	tasks.PUT("/update/:id", s.updateTask)
	tasks.DELETE("/delete/:id", s.deleteTask)
	tasks.GET("/getTasksForUser/:id", s.tasksForUser)

	api.GET("/events", s.streamEvents, s.requireToken)
}

// ServeHTTP lets the Server be mounted in an httptest.Server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops a server started with Start.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Seed creates a user directly, bypassing registration.
func (s *Server) Seed(name, email, password string, role domain.Role) (domain.User, error) {
	return s.store.addUser(name, email, password, role)
}

// Streams returns the number of open push-channel connections.
func (s *Server) Streams() int {
	return s.events.connected()
}
