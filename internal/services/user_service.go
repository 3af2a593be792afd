package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/educlove/educlove-backend/internal/models"
	"github.com/educlove/educlove-backend/internal/repositories/postgres"
	"github.com/educlove/educlove-backend/internal/utils"
)

// UserService maintains the identity mirror. Every authenticated request
// passes through EnsureUser so last_login stays current.
type UserService struct {
	users postgres.UserRepository
	log   *logrus.Logger
}

func NewUserService(users postgres.UserRepository, log *logrus.Logger) *UserService {
	return &UserService{users: users, log: log}
}

func (s *UserService) EnsureUser(ctx context.Context, id models.Identity) (*models.User, error) {
	const op = "UserService.EnsureUser"

	if id.Sub == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "missing subject claim", nil)
	}
	u, err := s.users.UpsertFromIdentity(ctx, id)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "upsert user", err)
	}
	return u, nil
}

func (s *UserService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	const op = "UserService.GetByID"

	u, err := s.users.GetByID(ctx, userID)
	if err == utils.ErrNotFound {
		return nil, utils.E(utils.CodeNotFound, op, "user not found", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "load user", err)
	}
	return u, nil
}

func (s *UserService) GetByProfileID(ctx context.Context, profileID string) (*models.User, error) {
	const op = "UserService.GetByProfileID"

	u, err := s.users.GetByProfileID(ctx, profileID)
	if err == utils.ErrNotFound {
		return nil, utils.E(utils.CodeNotFound, op, "user not found", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "load user", err)
	}
	return u, nil
}
