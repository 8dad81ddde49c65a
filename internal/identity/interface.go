package identity

import (
	"context"
	"errors"

	"github.com/learnsphere/chat-service/internal/domain"
)

var (
	ErrActorNotFound = errors.New("actor not found")
)

// Resolver fetches display identity for a sender. Students and tutors live
// in disjoint stores; an id valid in one store fails resolution when
// queried with the other role.
type Resolver interface {
	Resolve(ctx context.Context, actorID string, role domain.Role) (*domain.ActorRef, error)
}
