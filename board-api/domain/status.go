package domain

import (
	"sort"
	"strings"
)

// Status is the lane a task sits in.
type Status string

const (
	StatusToDo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusWontDo     Status = "Won't Do"
)

// Statuses lists the lanes in form order.
var Statuses = []Status{StatusToDo, StatusInProgress, StatusCompleted, StatusWontDo}

// Icon is the emoji shown next to a task.
type Icon string

const (
	IconClock   Icon = "⏰"
	IconCoffee  Icon = "\u2615\ufe0f"
	IconBoom    Icon = "💥"
	IconBooks   Icon = "📚"
	IconRocket  Icon = "🚀"
	IconBlocked Icon = "🚫"

	DefaultIcon = IconClock
)

// Icons lists the selectable icons in form order.
var Icons = []Icon{IconClock, IconCoffee, IconBoom, IconBooks, IconRocket, IconBlocked}

// ParseStatus returns the enumerated status matching s.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", &ValidationError{Field: "status", Message: "Invalid task status"}
}

// ParseIcon returns the enumerated icon matching s. A coffee cup sent without
// the emoji variation selector is accepted.
func ParseIcon(s string) (Icon, error) {
	if s == strings.TrimSuffix(string(IconCoffee), "\ufe0f") {
		return IconCoffee, nil
	}
	for _, ic := range Icons {
		if string(ic) == s {
			return ic, nil
		}
	}
	return "", &ValidationError{Field: "icon", Message: "Invalid task icon"}
}

// Priority is the display rank of a status; lower sorts first.
func (s Status) Priority() int {
	switch s {
	case StatusInProgress:
		return 1
	case StatusToDo:
		return 2
	case StatusWontDo:
		return 3
	case StatusCompleted:
		return 4
	default:
		return 5
	}
}

// SortForDisplay orders tasks by status priority, keeping the incoming order
// among tasks of the same status. The input slice is not modified.
func SortForDisplay(tasks []Task) []Task {
	out := append([]Task(nil), tasks...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Status.Priority() < out[j].Status.Priority()
	})
	return out
}
