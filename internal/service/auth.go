package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ferramentastecnologia/rosamexicano-reservas/config"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/models"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/util"
)

// AdminStore is the slice of the store the auth service needs.
type AdminStore interface {
	CreateAdmin(ctx context.Context, admin *models.Admin) error
	GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
	GetAdminByID(ctx context.Context, id string) (*models.Admin, error)
}

// Claims is the JWT payload for admin tokens.
type Claims struct {
	UserID      string             `json:"user_id"`
	Email       string             `json:"email"`
	Role        string             `json:"role"`
	Permissions models.Permissions `json:"permissions"`
	jwt.RegisteredClaims
}

// TokenPair is an access/refresh token set.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// LoginResponse is the login answer for the admin panel.
type LoginResponse struct {
	TokenPair
	User *models.Admin `json:"user"`
}

// AuthService authenticates staff accounts and signs admin tokens.
// Access and refresh tokens are HS256 with independent secrets, so a
// leaked refresh secret cannot mint access tokens.
type AuthService struct {
	store  AdminStore
	cfg    config.AuthConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(store AdminStore, cfg config.AuthConfig) *AuthService {
	return &AuthService{
		store:  store,
		cfg:    cfg,
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// Register creates a staff account with the role's default permissions.
func (s *AuthService) Register(ctx context.Context, email, password, name, role string) (*models.Admin, error) {
	if email == "" || password == "" || name == "" {
		return nil, util.Validation("email, password and name are required")
	}
	if len(password) < 8 {
		return nil, util.Validation("password must be at least 8 characters")
	}
	if role != models.RoleAdmin && role != models.RoleManager && role != models.RoleStaff {
		return nil, util.Validation("unknown role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, util.Internal("failed to hash password", err)
	}

	admin := &models.Admin{
		ID:          uuid.New().String(),
		Email:       email,
		Password:    string(hash),
		Name:        name,
		Role:        role,
		Permissions: models.DefaultPermissions(role),
		Active:      true,
	}
	if err := s.store.CreateAdmin(ctx, admin); err != nil {
		return nil, err
	}

	s.logger.Info("Admin account created",
		zap.String("admin_id", admin.ID), zap.String("role", role))
	return admin, nil
}

// Login verifies credentials and returns a token pair. Wrong email and
// wrong password produce the same error, so logins cannot be used to
// enumerate accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	admin, err := s.store.GetAdminByEmail(ctx, email)
	if err != nil {
		if util.AsAppError(err).Kind == util.KindNotFound {
			return nil, util.AuthError("invalid credentials")
		}
		return nil, util.Internal("failed to look up account", err)
	}
	if !admin.IsActive() {
		return nil, util.AuthError("account is disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)); err != nil {
		s.logger.Warn("Failed login attempt", zap.String("email", email))
		return nil, util.AuthError("invalid credentials")
	}

	pair, err := s.generateTokenPair(admin)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{TokenPair: *pair, User: admin}, nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The account is
// reloaded so revoked or demoted staff lose access at rotation time.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Refresh")
	defer span.End()

	claims, err := s.parseToken(refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return nil, err
	}

	admin, err := s.store.GetAdminByID(ctx, claims.UserID)
	if err != nil {
		return nil, util.AuthError("account no longer exists")
	}
	if !admin.IsActive() {
		return nil, util.AuthError("account is disabled")
	}

	return s.generateTokenPair(admin)
}

// ValidateAccessToken parses and verifies an access token.
func (s *AuthService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.parseToken(tokenString, s.cfg.AccessSecret)
}

func (s *AuthService) generateTokenPair(admin *models.Admin) (*TokenPair, error) {
	now := s.now()

	access, err := s.signToken(admin, s.cfg.AccessSecret, now, s.cfg.AccessTTL)
	if err != nil {
		return nil, util.Internal("failed to sign access token", err)
	}
	refresh, err := s.signToken(admin, s.cfg.RefreshSecret, now, s.cfg.RefreshTTL)
	if err != nil {
		return nil, util.Internal("failed to sign refresh token", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.AccessTTL.Seconds()),
	}, nil
}

func (s *AuthService) signToken(admin *models.Admin, secret string, now time.Time, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID:      admin.ID,
		Email:       admin.Email,
		Role:        admin.Role,
		Permissions: admin.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (s *AuthService) parseToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, util.AuthError("token expired")
		}
		return nil, util.AuthError("invalid token")
	}
	if !token.Valid {
		return nil, util.AuthError("invalid token")
	}
	return claims, nil
}
