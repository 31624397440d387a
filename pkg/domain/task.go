package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StatusPending is shown for tasks the backend returns without a status.
const StatusPending = "pending"

// Task is a unit of work owned by the backend.
type Task struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status,omitempty"`
	AssignedTo  *Assignee `json:"assignedTo,omitempty"`
}

// DisplayStatus returns the task status, defaulting to pending.
func (t Task) DisplayStatus() string {
	if t.Status == "" {
		return StatusPending
	}
	return t.Status
}

// Assignee references the user a task is assigned to. The backend sends
// either a bare id or a populated user object.
type Assignee struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// UnmarshalJSON accepts an id string, a user object or null.
func (a *Assignee) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &a.ID)
	}
	type plain Assignee
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("assignee: %w", err)
	}
	*a = Assignee(p)
	return nil
}

// Label returns the best human-readable name for the assignee.
func (a *Assignee) Label() string {
	if a == nil {
		return ""
	}
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}
