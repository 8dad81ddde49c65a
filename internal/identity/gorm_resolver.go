package identity

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/learnsphere/chat-service/internal/domain"
	"github.com/learnsphere/chat-service/pkg/log"
)

// GormResolver resolves actors against the students and tutors tables.
type GormResolver struct {
	db *gorm.DB
}

// NewGormResolver creates a new GORM-backed resolver.
func NewGormResolver(db *gorm.DB) *GormResolver {
	return &GormResolver{db: db}
}

// Resolve looks the actor up in the store matching its role.
func (r *GormResolver) Resolve(ctx context.Context, actorID string, role domain.Role) (*domain.ActorRef, error) {
	l := log.Ctx(ctx)

	var (
		name string
		err  error
	)

	switch role {
	case domain.RoleStudent:
		var model StudentModel
		err = r.db.WithContext(ctx).Select("id", "name").First(&model, "id = ?", actorID).Error
		name = model.Name
	case domain.RoleTutor:
		var model TutorModel
		err = r.db.WithContext(ctx).Select("id", "name").First(&model, "id = ?", actorID).Error
		name = model.Name
	default:
		return nil, fmt.Errorf("unsupported role: %q", role)
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActorNotFound
		}
		l.Error().Err(err).Str(log.FieldUserID, actorID).Str(log.FieldRole, string(role)).Msg("failed to resolve actor")
		return nil, err
	}

	return &domain.ActorRef{ID: actorID, Name: name}, nil
}
