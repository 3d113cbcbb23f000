package auth

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/frahmantamala/hrm-access/internal"
	"github.com/frahmantamala/hrm-access/internal/account"
	userDatamodel "github.com/frahmantamala/hrm-access/internal/core/datamodel/user"
	"github.com/frahmantamala/hrm-access/internal/core/events"
	"github.com/frahmantamala/hrm-access/internal/metrics"
	"github.com/frahmantamala/hrm-access/internal/permission"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type ServiceAPI interface {
	Login(ctx context.Context, dto LoginDTO) (*LoginResult, error)
	SessionFromToken(tokenString string) (*permission.Session, error)
	Logout(ctx context.Context, tokenString string) error
}

// Service is the main auth service with dependencies
type Service struct {
	userRepo       UserRepository
	tokenGenerator TokenGeneratorAPI
	revoked        *RevocationList
	publisher      Publisher
	logger         *slog.Logger
	queryTimeout   time.Duration
}

// NewService creates a new auth service
func NewService(userRepo UserRepository, tokenGen TokenGeneratorAPI, publisher Publisher, logger *slog.Logger, queryTimeout time.Duration) *Service {
	return &Service{
		userRepo:       userRepo,
		tokenGenerator: tokenGen,
		revoked:        NewRevocationList(),
		publisher:      publisher,
		logger:         logger,
		queryTimeout:   queryTimeout,
	}
}

var (
	compareHash = bcrypt.CompareHashAndPassword

	// unknownUserHash is compared against when the username does not exist
	// so both rejection paths pay the bcrypt cost.
	unknownUserHash = sync.OnceValue(func() []byte {
		hash, _ := bcrypt.GenerateFromPassword([]byte("unknown-user"), bcrypt.DefaultCost)
		return hash
	})
)

// Login verifies credentials and returns a token carrying the session snapshot.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*LoginResult, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	user, err := s.lookup(ctx, dto.Username)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		s.logger.Error("login lookup failed", "username", dto.Username, "error", err)
		return nil, err
	}

	hash := unknownUserHash()
	if user != nil {
		hash = []byte(user.PasswordHash)
	}
	if compareHash(hash, []byte(dto.Password)) != nil || user == nil {
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		s.logger.Warn("login rejected", "username", dto.Username)
		s.publish(ctx, events.EventTypeLoginFailed, nil, dto.Username, "", "Failed login attempt")
		return nil, internal.ErrInvalidCredentials
	}

	if !user.IsActive {
		metrics.LoginsTotal.WithLabelValues("inactive").Inc()
		s.logger.Warn("login rejected for inactive account", "username", dto.Username)
		s.publish(ctx, events.EventTypeLoginFailed, &user.ID, user.Username, strconv.FormatInt(user.ID, 10), "Login attempt on deactivated account")
		return nil, internal.ErrUserInactive
	}

	now := time.Now()
	touchCtx, cancel := internal.WithTimeout(ctx, s.queryTimeout)
	if err := s.userRepo.TouchLastLogin(touchCtx, user.ID, now); err != nil {
		s.logger.Warn("failed to record last login", "user_id", user.ID, "error", err)
	}
	cancel()

	acc := account.FromDataModel(user)
	acc.LastLogin = &now
	session := acc.Session()

	token, claims, err := s.tokenGenerator.GenerateAccessToken(session)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, internal.NewInternalError("failed to issue session token", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.logger.Info("user logged in", "user_id", user.ID, "username", user.Username, "role", user.Role)
	s.publish(ctx, events.EventTypeLoginSucceeded, &user.ID, user.Username, strconv.FormatInt(user.ID, 10), "User logged in")

	return &LoginResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   claims.ExpiresAt.Time,
		Session:     session,
	}, nil
}

// SessionFromToken rebuilds the session from the token claims alone.
func (s *Service) SessionFromToken(tokenString string) (*permission.Session, error) {
	claims, err := s.tokenGenerator.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if s.revoked.IsRevoked(claims.ID) {
		return nil, internal.ErrInvalidToken
	}
	return claims.Session(), nil
}

// Logout revokes the token until it would have expired.
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.tokenGenerator.ValidateToken(tokenString)
	if err != nil {
		return err
	}
	if s.revoked.IsRevoked(claims.ID) {
		return internal.ErrInvalidToken
	}
	s.revoked.Revoke(claims.ID, claims.ExpiresAt.Time)

	s.logger.Info("user logged out", "user_id", claims.UserID, "username", claims.Username)
	s.publish(ctx, events.EventTypeLoggedOut, &claims.UserID, claims.Username, strconv.FormatInt(claims.UserID, 10), "User logged out")
	return nil
}

func (s *Service) lookup(ctx context.Context, username string) (*userDatamodel.User, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, account.StoreError(err)
	}
	return user, nil
}

func (s *Service) publish(ctx context.Context, eventType string, userID *int64, username, entityID, details string) {
	if s.publisher == nil {
		return
	}
	event := events.NewActivityEvent(eventType, userID, username, "session", entityID).WithDetails(details)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish auth event", "event_type", eventType, "error", err)
	}
}
