package query

import "context"

// Mutation describes a write and the keys its success makes stale.
type Mutation struct {
	Name        string
	Invalidates []Key
}

// Mutate runs fn. On success it invalidates m.Invalidates and waits for
// their refetches before returning fn's result. On failure the cache is
// left untouched.
func Mutate[T any](ctx context.Context, c *Cache, m Mutation, fn func(context.Context) (T, error)) (T, error) {
	log := c.log.WithField("mutation", m.Name)
	v, err := fn(ctx)
	if err != nil {
		log.WithError(err).Info("mutation failed")
		var zero T
		return zero, err
	}
	if err := c.Invalidate(ctx, m.Invalidates...); err != nil {
		log.WithError(err).WithField("keys", m.Invalidates).Warn("refetch after mutation failed")
	}
	log.WithField("invalidated", len(m.Invalidates)).Debug("mutation applied")
	return v, nil
}

// Mutation declarations shared by the views.
var (
	UpdateProfile = Mutation{Name: "update-profile", Invalidates: []Key{KeyProfile}}
	CreateTask    = Mutation{Name: "create-task", Invalidates: []Key{KeyTasks}}
	UpdateTask    = Mutation{Name: "update-task", Invalidates: []Key{KeyTasks}}
	DeleteTask    = Mutation{Name: "delete-task", Invalidates: []Key{KeyTasks}}
	DeleteUser    = Mutation{Name: "delete-user", Invalidates: []Key{KeyUsers}}
)

// AssignTask invalidates the task list and the assignee's own list.
func AssignTask(userID string) Mutation {
	return Mutation{Name: "assign-task", Invalidates: []Key{KeyTasks, TasksForUser(userID)}}
}
