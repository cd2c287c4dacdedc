package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Alexjoshwa/agri-1.0/internal/auth"
	"github.com/Alexjoshwa/agri-1.0/internal/config"
	"github.com/Alexjoshwa/agri-1.0/internal/models"
	"github.com/Alexjoshwa/agri-1.0/internal/store"
)

// SignInResult carries the declared identity and a token that lets a client
// keep acting as it independently of the persisted singleton.
type SignInResult struct {
	Identity models.SessionIdentity `json:"identity"`
	Token    string                 `json:"token"`
}

// ISessionService defines the interface for the current-session context.
type ISessionService interface {
	SignIn(ctx context.Context, name string, role models.Role) (*SignInResult, error)
	Current(ctx context.Context) (*models.SessionIdentity, error)
	SignOut(ctx context.Context) error
	Resolve(token string) (*models.SessionIdentity, error)
}

// sessionService implements ISessionService.
type sessionService struct {
	st  *store.EntityStore
	cfg *config.Config
	log *zap.SugaredLogger
}

// NewSessionService creates a new SessionService.
func NewSessionService(st *store.EntityStore, cfg *config.Config, log *zap.SugaredLogger) ISessionService {
	return &sessionService{st: st, cfg: cfg, log: log}
}

// SignIn overwrites the declared identity. The role defaults to visitor.
func (s *sessionService) SignIn(ctx context.Context, name string, role models.Role) (*SignInResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("name is required")
	}
	if role == "" {
		role = models.RoleVisitor
	}
	if !role.Valid() {
		return nil, validationError("unknown role %q", role)
	}

	identity := models.SessionIdentity{Name: name, Role: role}
	token, err := auth.GenerateSessionToken(identity, s.cfg.SessionSecret, s.cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	if err := s.st.Session.Set(ctx, identity); err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}

	s.log.Infow("Signed in", "name", identity.Name, "role", identity.Role)
	return &SignInResult{Identity: identity, Token: token}, nil
}

// Current returns the declared identity, or nil before the first sign-in.
func (s *sessionService) Current(ctx context.Context) (*models.SessionIdentity, error) {
	return s.st.Session.Get(ctx)
}

func (s *sessionService) SignOut(ctx context.Context) error {
	return s.st.Session.Clear(ctx)
}

// Resolve turns a session token back into the identity it was issued for.
func (s *sessionService) Resolve(token string) (*models.SessionIdentity, error) {
	identity, err := auth.ValidateSessionToken(token, s.cfg.SessionSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return identity, nil
}
