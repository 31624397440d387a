package mockapi

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/naveenspark/taskdash/pkg/domain"
)

// Error texts are sent to clients verbatim.
var (
	errUserExists   = errors.New("User already exists")
	errBadLogin     = errors.New("Invalid Credentials")
	errUserNotFound = errors.New("User not found")
	errTaskNotFound = errors.New("Task not found")
	errEmailTaken   = errors.New("Email already in use")
)

type userRecord struct {
	domain.User
	hash []byte
}

type taskRecord struct {
	domain.Task
	owner string
}

// store is the in-memory data behind the mock backend.
type store struct {
	mu        sync.RWMutex
	users     map[string]*userRecord
	byEmail   map[string]string
	userOrder []string
	tasks     map[string]*taskRecord
	taskOrder []string
	cost      int
}

func newStore() *store {
	return &store{
		users:   make(map[string]*userRecord),
		byEmail: make(map[string]string),
		tasks:   make(map[string]*taskRecord),
		cost:    bcrypt.MinCost,
	}
}

func normEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *store) addUser(name, email, password string, role domain.Role) (domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return domain.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normEmail(email)
	if _, ok := s.byEmail[key]; ok {
		return domain.User{}, errUserExists
	}
	u := &userRecord{
		User: domain.User{ID: uuid.NewString(), Name: name, Email: strings.TrimSpace(email), Role: role},
		hash: hash,
	}
	s.users[u.ID] = u
	s.byEmail[key] = u.ID
	s.userOrder = append(s.userOrder, u.ID)
	return u.User, nil
}

func (s *store) authenticate(email, password string) (domain.User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[normEmail(email)]
	var u *userRecord
	if ok {
		u = s.users[id]
	}
	s.mu.RUnlock()
	if u == nil {
		return domain.User{}, errBadLogin
	}
	if err := bcrypt.CompareHashAndPassword(u.hash, []byte(password)); err != nil {
		return domain.User{}, errBadLogin
	}
	return u.User, nil
}

func (s *store) user(id string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, false
	}
	return u.User, true
}

func (s *store) listUsers() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		out = append(out, s.users[id].User)
	}
	return out
}

func (s *store) updateProfile(id string, p domain.Profile) (domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.Profile{}, errUserNotFound
	}
	newKey := normEmail(p.Email)
	if other, taken := s.byEmail[newKey]; taken && other != id {
		return domain.Profile{}, errEmailTaken
	}
	delete(s.byEmail, normEmail(u.Email))
	s.byEmail[newKey] = id
	u.Name = strings.TrimSpace(p.Name)
	u.Email = strings.TrimSpace(p.Email)
	return domain.Profile{Name: u.Name, Email: u.Email}, nil
}

// deleteUser removes the user and unassigns their tasks.
func (s *store) deleteUser(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return errUserNotFound
	}
	delete(s.users, id)
	delete(s.byEmail, normEmail(u.Email))
	s.userOrder = without(s.userOrder, id)
	for _, t := range s.tasks {
		if t.AssignedTo != nil && t.AssignedTo.ID == id {
			t.AssignedTo = nil
		}
	}
	return nil
}

func (s *store) addTask(owner string, title, description string, assignee *domain.User) domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &taskRecord{
		Task: domain.Task{
			ID:          uuid.NewString(),
			Title:       title,
			Description: description,
			Status:      domain.StatusPending,
		},
		owner: owner,
	}
	if assignee != nil {
		t.AssignedTo = &domain.Assignee{ID: assignee.ID, Name: assignee.Name, Email: assignee.Email}
	}
	s.tasks[t.ID] = t
	s.taskOrder = append(s.taskOrder, t.ID)
	return t.Task
}

func (s *store) task(id string) (taskRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return taskRecord{}, false
	}
	return *t, true
}

func (s *store) updateTask(id, title, description string) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, errTaskNotFound
	}
	t.Title = title
	t.Description = description
	return t.Task, nil
}

func (s *store) deleteTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return errTaskNotFound
	}
	delete(s.tasks, id)
	s.taskOrder = without(s.taskOrder, id)
	return nil
}

// listTasks returns the tasks matching keep, in creation order.
func (s *store) listTasks(keep func(taskRecord) bool) []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Task, 0)
	for _, id := range s.taskOrder {
		t := s.tasks[id]
		if keep(*t) {
			out = append(out, t.Task)
		}
	}
	return out
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
