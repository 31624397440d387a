package mockapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/naveenspark/taskdash/pkg/domain"
)

type validationError struct {
	Msg string `json:"msg"`
}

func badRequest(c echo.Context, msgs ...string) error {
	errs := make([]validationError, 0, len(msgs))
	for _, m := range msgs {
		errs = append(errs, validationError{Msg: m})
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"errors": errs})
}

func required(fields map[string]string, order ...string) []string {
	var missing []string
	for _, name := range order {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, name+" is required")
		}
	}
	return missing
}

type registerRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

func (s *Server) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if missing := required(map[string]string{
		"name": req.Name, "email": req.Email, "password": req.Password,
	}, "name", "email", "password"); len(missing) > 0 {
		return badRequest(c, missing...)
	}
	if req.Role == "" {
		req.Role = domain.RoleUser
	}
	if !domain.ValidRole(req.Role) {
		return badRequest(c, "role must be user or admin")
	}
	u, err := s.store.addUser(strings.TrimSpace(req.Name), req.Email, req.Password, req.Role)
	if errors.Is(err, errUserExists) {
		return c.JSON(http.StatusBadRequest, echo.Map{"msg": err.Error()})
	}
	if err != nil {
		return err
	}
	return s.issue(c, u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	u, err := s.store.authenticate(req.Email, req.Password)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"msg": err.Error()})
	}
	return s.issue(c, u)
}

func (s *Server) issue(c echo.Context, u domain.User) error {
	token, err := s.Token(u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, domain.AuthResponse{Token: token, User: &u})
}

func (s *Server) viewProfile(c echo.Context) error {
	u, ok := s.store.user(callerID(c))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"message": errUserNotFound.Error()})
	}
	return c.JSON(http.StatusOK, domain.Profile{Name: u.Name, Email: u.Email})
}

func (s *Server) updateProfile(c echo.Context) error {
	var req domain.Profile
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if missing := required(map[string]string{"name": req.Name, "email": req.Email}, "name", "email"); len(missing) > 0 {
		return badRequest(c, missing...)
	}
	p, err := s.store.updateProfile(callerID(c), req)
	switch {
	case errors.Is(err, errEmailTaken):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	case errors.Is(err, errUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"message": err.Error()})
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) listUsers(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.listUsers())
}

func (s *Server) deleteUser(c echo.Context) error {
	if err := s.store.deleteUser(c.Param("id")); err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted successfully"})
}

// listTasks returns every task to an admin, and to anyone else the tasks
// they created or were assigned.
func (s *Server) listTasks(c echo.Context) error {
	admin, me := isAdmin(c), callerID(c)
	return c.JSON(http.StatusOK, s.store.listTasks(func(t taskRecord) bool {
		return admin || t.owner == me || (t.AssignedTo != nil && t.AssignedTo.ID == me)
	}))
}

type taskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AssignedTo  string `json:"assignedTo"`
}

func (s *Server) createTask(c echo.Context) error {
	var req taskRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return badRequest(c, "title is required")
	}

	var assignee *domain.User
	if req.AssignedTo != "" {
		if req.AssignedTo != callerID(c) && !isAdmin(c) {
			return c.JSON(http.StatusForbidden, echo.Map{"message": "Only admins can assign tasks"})
		}
		u, ok := s.store.user(req.AssignedTo)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Assigned user not found"})
		}
		assignee = &u
	}

	t := s.store.addTask(callerID(c), strings.TrimSpace(req.Title), req.Description, assignee)
	if assignee != nil {
		s.taskAssigned(t, *assignee)
	}
	return c.JSON(http.StatusCreated, t)
}

// ownedTask loads the :id task and checks the caller may change it. The
// returned *echo.HTTPError renders as {"message": ...}.
func (s *Server) ownedTask(c echo.Context) (taskRecord, error) {
	t, ok := s.store.task(c.Param("id"))
	if !ok {
		return t, echo.NewHTTPError(http.StatusNotFound, errTaskNotFound.Error())
	}
	if !isAdmin(c) && t.owner != callerID(c) {
		return t, echo.NewHTTPError(http.StatusForbidden, "Not authorized")
	}
	return t, nil
}

func (s *Server) updateTask(c echo.Context) error {
	var req taskRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return badRequest(c, "title is required")
	}
	t, err := s.ownedTask(c)
	if err != nil {
		return err
	}
	updated, err := s.store.updateTask(t.ID, strings.TrimSpace(req.Title), req.Description)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteTask(c echo.Context) error {
	t, err := s.ownedTask(c)
	if err != nil {
		return err
	}
	if err := s.store.deleteTask(t.ID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Task deleted"})
}

func (s *Server) tasksForUser(c echo.Context) error {
	id := c.Param("id")
	if !isAdmin(c) && id != callerID(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "Access denied"})
	}
	if _, ok := s.store.user(id); !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"message": errUserNotFound.Error()})
	}
	return c.JSON(http.StatusOK, s.store.listTasks(func(t taskRecord) bool {
		return t.AssignedTo != nil && t.AssignedTo.ID == id
	}))
}
