package domain

import "fmt"

// Role tags which actor store a sender resolves against.
type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
)

// ParseRole validates a role string from the wire.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleTutor:
		return RoleTutor, nil
	default:
		return "", fmt.Errorf("unknown sender role: %q", s)
	}
}

// ActorRef is the resolved display identity of a student or tutor.
type ActorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
