package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/yashrajoria/grocery-backend/common/errors"
	"github.com/yashrajoria/grocery-backend/common/logger"
	"github.com/yashrajoria/grocery-backend/models"
	awspkg "github.com/yashrajoria/grocery-backend/pkg/aws"
	"github.com/yashrajoria/grocery-backend/repository"
)

type ITokenService interface {
	Generate(userID, deviceID string) (string, error)
	Validate(tokenStr string) (*Claims, error)
}

// Principal is the authenticated caller of a protected request.
type Principal struct {
	UserID   string
	DeviceID string
	Token    string
}

type LoginResult struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	UserID  string `json:"userId"`
}

type AuthService struct {
	users     repository.UserRepository
	sessions  repository.SessionRepository
	tokens    ITokenService
	passwords *PasswordValidator
	metrics   *awspkg.MetricsClient
	logger    *zap.Logger
	now       func() time.Time
}

func NewAuthService(users repository.UserRepository, sessions repository.SessionRepository, tokens ITokenService, log *zap.Logger) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		passwords: NewPasswordValidator(),
		logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithMetrics enables business metrics for registrations and logins.
func (s *AuthService) WithMetrics(m *awspkg.MetricsClient) *AuthService {
	s.metrics = m
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)

	if err := s.passwords.ValidatePassword(password); err != nil {
		return apperrors.Validation(err.Error())
	}

	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return apperrors.Conflict("User already exists")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return apperrors.Internal("Error registering user", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Internal("Error registering user", err)
	}

	user := &models.User{Email: email, Password: string(hashed)}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperrors.Conflict("User already exists")
		}
		return apperrors.Internal("Error registering user", err)
	}

	logger.ForRequest(ctx, s.logger).Info("user registered", zap.String("user_id", user.ID))
	recordCount(s.metrics, awspkg.MetricUsersRegistered)
	return nil
}

// Login checks credentials and (re)activates the session for deviceID.
func (s *AuthService) Login(ctx context.Context, email, password, deviceID string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.Internal("Error logging in", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, deviceID)
	if err != nil {
		return nil, apperrors.Internal("Error logging in", err)
	}

	now := s.now()
	if err := s.sessions.Upsert(ctx, user.ID, deviceID, token, now); err != nil {
		return nil, apperrors.Internal("Error logging in", err)
	}

	log := logger.ForRequest(ctx, s.logger)
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		log.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	log.Info("user logged in", zap.String("user_id", user.ID), zap.String("device_id", deviceID))
	recordCount(s.metrics, awspkg.MetricLogins)

	return &LoginResult{
		Message: "Logged in successfully",
		Token:   token,
		UserID:  user.ID,
	}, nil
}

// Verify authenticates a token: valid signature, not expired and backed by
// an active session for the same user, device and token. The session's
// lastActive is refreshed on success.
func (s *AuthService) Verify(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperrors.TokenInvalid("Token is not valid")
	}

	active, err := s.sessions.IsActive(ctx, claims.UserID, claims.DeviceID, token)
	if err != nil {
		return nil, apperrors.Internal("Error verifying session", err)
	}
	if !active {
		return nil, apperrors.TokenInvalid("Session is not valid or has expired")
	}

	if err := s.sessions.Touch(ctx, claims.UserID, claims.DeviceID, token, s.now()); err != nil {
		logger.ForRequest(ctx, s.logger).Warn("failed to touch session",
			zap.String("user_id", claims.UserID),
			zap.String("device_id", claims.DeviceID),
			zap.Error(err),
		)
	}

	return &Principal{UserID: claims.UserID, DeviceID: claims.DeviceID, Token: token}, nil
}

// Profile returns the account behind userID.
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, apperrors.Internal("Error fetching user", err)
	}
	return user, nil
}

// Logout deactivates the session of deviceID, or of the caller's own device
// when deviceID is empty. Logging out an already inactive device succeeds.
func (s *AuthService) Logout(ctx context.Context, p *Principal, deviceID string) error {
	if deviceID == "" {
		deviceID = p.DeviceID
	}

	found, err := s.sessions.Deactivate(ctx, p.UserID, deviceID)
	if err != nil {
		return apperrors.Internal("Error logging out", err)
	}

	logger.ForRequest(ctx, s.logger).Info("user logged out",
		zap.String("user_id", p.UserID),
		zap.String("device_id", deviceID),
		zap.Bool("session_found", found),
	)
	return nil
}

func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]models.DeviceSession, error) {
	sessions, err := s.sessions.ListActive(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Error fetching sessions", err)
	}
	return sessions, nil
}
