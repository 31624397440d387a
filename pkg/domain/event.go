package domain

// EventTaskAssigned is the push-channel event raised when a task is assigned.
const EventTaskAssigned = "taskAssigned"

// TaskAssigned is the payload of a taskAssigned push event.
type TaskAssigned struct {
	Task Task `json:"task"`
	User User `json:"user"`
}
