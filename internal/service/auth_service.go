package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Joseph-Bethune/Gabble-Live/internal/auth"
	"github.com/Joseph-Bethune/Gabble-Live/internal/models"
	"github.com/Joseph-Bethune/Gabble-Live/internal/observability"
	"github.com/Joseph-Bethune/Gabble-Live/internal/repository"
	"github.com/Joseph-Bethune/Gabble-Live/internal/validation"
)

// RevocationStore remembers revoked access-token ids.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type AuthService struct {
	userRepo repository.UserRepository
	tokens   *auth.TokenManager
	hasher   auth.PasswordHasher
	revoked  RevocationStore
	roles    models.RolePolicy
}

// Session is what a successful register, login or refresh hands back.
type Session struct {
	UserID       string        `json:"userId"`
	DisplayName  string        `json:"displayName"`
	Roles        []models.Role `json:"roles"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"-"`
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

type LoginInput struct {
	Email    string
	Password string
}

// LogoutInput carries the refresh cookie and, optionally, the Authorization
// header so the access token can be revoked too.
type LogoutInput struct {
	RefreshToken  string
	Authorization string
}

func NewAuthService(userRepo repository.UserRepository, cfg auth.Config, revoked RevocationStore, roles models.RolePolicy) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   auth.NewTokenManager(cfg),
		hasher:   auth.NewBcryptHasher(cfg.BcryptCost),
		revoked:  revoked,
		roles:    roles,
	}
}

// Tokens exposes the token manager, mainly for tests and tooling.
func (s *AuthService) Tokens() *auth.TokenManager {
	return s.tokens
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (session *Session, err error) {
	span, ctx := observability.NewSpan(ctx, "auth.register")
	defer func() {
		observability.RecordAuth("register", err)
		span.End(err)
	}()

	email := validation.NormalizeEmail(in.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateDisplayName(in.DisplayName); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("An account with that email already exists")
	}

	key := validation.DisplayNameKey(in.DisplayName)
	claimed, err := s.userRepo.IsDisplayNameClaimed(ctx, key)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, models.NewConflictError("Display name is already taken")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		ID:             uuid.NewString(),
		Email:          email,
		PasswordHash:   hash,
		DisplayName:    in.DisplayName,
		DisplayNameKey: key,
		Roles:          s.roles.InitialRoles(),
	}
	session, err = s.newSession(user)
	if err != nil {
		return nil, err
	}
	user.RefreshToken = session.RefreshToken

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	span.AddAttributes(attribute.String("user.id", user.ID))
	return session, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (session *Session, err error) {
	span, ctx := observability.NewSpan(ctx, "auth.login")
	defer func() {
		observability.RecordAuth("login", err)
		span.End(err)
	}()

	email := validation.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid email or password")
	}
	if err := s.hasher.Compare(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, models.NewUnauthorizedError("Invalid email or password")
		}
		return nil, models.NewInternalError(err)
	}

	session, err = s.newSession(user)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.SetRefreshToken(ctx, user.ID, session.RefreshToken); err != nil {
		return nil, err
	}
	return session, nil
}

// RefreshAccessToken exchanges a stored refresh token for a new session,
// rotating the refresh token.
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (session *Session, err error) {
	span, ctx := observability.NewSpan(ctx, "auth.refresh")
	defer func() {
		observability.RecordAuth("refresh", err)
		span.End(err)
	}()

	if refreshToken == "" {
		return nil, models.NewUnauthorizedError("Refresh token required")
	}
	user, err := s.userRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewForbiddenError("Refresh token is not recognized")
	}

	claims, verr := s.tokens.VerifyRefresh(refreshToken)
	if verr != nil || claims.UserID() != user.ID {
		if _, err := s.userRepo.ClearRefreshToken(ctx, user.ID, refreshToken); err != nil {
			return nil, err
		}
		observability.Logger.InfoContext(ctx, "cleared rejected refresh token",
			"user_id", user.ID, "reason", errString(verr))
		return nil, models.NewForbiddenError("Refresh token is invalid or expired")
	}

	session, err = s.newSession(user)
	if err != nil {
		return nil, err
	}
	rotated, err := s.userRepo.RotateRefreshToken(ctx, user.ID, refreshToken, session.RefreshToken)
	if err != nil {
		return nil, err
	}
	if !rotated {
		return nil, models.NewForbiddenError("Refresh token was already used")
	}
	return session, nil
}

func (s *AuthService) Logout(ctx context.Context, in LogoutInput) (err error) {
	span, ctx := observability.NewSpan(ctx, "auth.logout")
	defer func() {
		observability.RecordAuth("logout", err)
		span.End(err)
	}()

	if in.RefreshToken == "" {
		return models.NewValidationError("No refresh token to log out")
	}
	user, err := s.userRepo.GetByRefreshToken(ctx, in.RefreshToken)
	if err != nil {
		return err
	}
	if user == nil {
		return models.NewValidationError("No session matches the refresh token")
	}
	if _, err := s.userRepo.ClearRefreshToken(ctx, user.ID, in.RefreshToken); err != nil {
		return err
	}

	if in.Authorization == "" {
		return nil
	}
	token, perr := auth.ParseBearer(in.Authorization)
	if perr != nil {
		return nil
	}
	claims, verr := s.tokens.VerifyAccess(token)
	if verr != nil || claims.UserID() != user.ID {
		return nil
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAtTime()); err != nil {
		observability.Logger.WarnContext(ctx, "failed to revoke access token on logout",
			"user_id", user.ID, "error", err)
	}
	return nil
}

// ResolveBearerToken turns an Authorization header into the acting user,
// read fresh from the store.
func (s *AuthService) ResolveBearerToken(ctx context.Context, header string) (*models.Identity, error) {
	token, err := auth.ParseBearer(header)
	if err != nil {
		return nil, models.NewUnauthorizedError("Access token required")
	}
	claims, err := s.tokens.VerifyAccess(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, models.NewForbiddenError("Access token expired")
		}
		return nil, models.NewForbiddenError("Access token is invalid")
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		// Redis is optional; an outage must not lock everyone out.
		observability.Logger.WarnContext(ctx, "token denylist unavailable", "error", err)
	}
	if revoked {
		return nil, models.NewForbiddenError("Access token has been revoked")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID())
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewForbiddenError("User no longer exists")
		}
		return nil, err
	}
	return &models.Identity{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Roles:       user.RoleList(),
	}, nil
}

// CheckAccessToken reports the identity behind a valid access token.
func (s *AuthService) CheckAccessToken(ctx context.Context, header string) (*models.Identity, error) {
	return s.ResolveBearerToken(ctx, header)
}

// CheckRefreshToken validates a refresh cookie without rotating it.
func (s *AuthService) CheckRefreshToken(ctx context.Context, refreshToken string) (*models.Identity, error) {
	if refreshToken == "" {
		return nil, models.NewUnauthorizedError("Refresh token required")
	}
	user, err := s.userRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewForbiddenError("Refresh token is not recognized")
	}
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil || claims.UserID() != user.ID {
		return nil, models.NewForbiddenError("Refresh token is invalid or expired")
	}
	return &models.Identity{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Roles:       user.RoleList(),
	}, nil
}

func (s *AuthService) newSession(user *models.User) (*Session, error) {
	roles := user.RoleList()
	access, err := s.tokens.IssueAccess(user.ID, roles)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	refresh, err := s.tokens.IssueRefresh(user.ID, roles)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &Session{
		UserID:       user.ID,
		DisplayName:  user.DisplayName,
		Roles:        roles,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func errString(err error) string {
	if err == nil {
		return "subject mismatch"
	}
	return err.Error()
}
