package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/knwn/storefront/internal/domain/availability"
	"github.com/knwn/storefront/internal/domain/profile"
	"github.com/knwn/storefront/internal/domain/shared"
)

// RegisterRequest is the registration form
type RegisterRequest struct {
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone" binding:"required"`
	Zip   string `json:"zip" binding:"required"`
}

// Service stores one profile per session
type Service struct {
	store  shared.KeyValueStore
	clock  availability.Clock
	logger *zap.Logger
}

// NewService creates a profile Service
func NewService(store shared.KeyValueStore, clock availability.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, clock: clock, logger: logger}
}

// Register replaces the session's profile
func (s *Service) Register(ctx context.Context, sessionID string, req RegisterRequest) (*profile.Profile, error) {
	p, err := profile.New(req.Email, req.Phone, req.Zip, s.clock.Now())
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	if err := s.store.Save(ctx, shared.SessionKey(sessionID, shared.StorageKeyUser), data); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	s.logger.Info("profile registered", zap.String("session_id", sessionID))
	return p, nil
}

// Get returns the session's profile
func (s *Service) Get(ctx context.Context, sessionID string) (*profile.Profile, error) {
	data, err := s.store.Load(ctx, shared.SessionKey(sessionID, shared.StorageKeyUser))
	if errors.Is(err, shared.ErrKeyNotFound) {
		return nil, profile.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	var p profile.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Warn("discarding unreadable profile", zap.String("session_id", sessionID), zap.Error(err))
		return nil, profile.ErrNotFound
	}
	return &p, nil
}

// Logout forgets the session's profile
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, shared.SessionKey(sessionID, shared.StorageKeyUser)); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
