// Package user manages registration and credential checks against the
// internal store.
package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/foliohq/folio/internal/common"
	"github.com/foliohq/folio/internal/domain"
	"github.com/foliohq/folio/internal/interfaces"
	"github.com/foliohq/folio/internal/models"
)

// Compile-time interface check
var _ interfaces.UserService = (*Service)(nil)

// Service implements UserService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewService creates a new user service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// Register creates a new user account. Usernames are unique.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)

	existing, err := s.storage.InternalStore().GetUserByUsername(ctx, username)
	if err != nil && domain.KindOf(err) != domain.KindNotFound {
		return nil, err
	}
	if existing != nil {
		return nil, domain.Validation("username %s is already taken", username)
	}

	user := &models.User{
		ID:       fmt.Sprintf("u_%s", uuid.New().String()[:8]),
		Username: username,
		Email:    strings.TrimSpace(email),
		Role:     "user",
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	if err := s.storage.InternalStore().SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user %s: %w", username, err)
	}

	s.logger.Info().
		Str("user", user.ID).
		Str("username", username).
		Msg("User registered")

	return user, nil
}

// Authenticate verifies the username/password pair. Unknown usernames
// and bad passwords both come back as the same unauthorized error so the
// response does not leak which usernames exist.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.storage.InternalStore().GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, domain.Unauthorized("invalid username or password")
		}
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, domain.Unauthorized("invalid username or password")
	}
	return user, nil
}

// Get returns the user by id
func (s *Service) Get(ctx context.Context, userID string) (*models.User, error) {
	return s.storage.InternalStore().GetUser(ctx, userID)
}
