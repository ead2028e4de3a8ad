package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/retailpulse/internal/models"
	"github.com/example/retailpulse/internal/repository"
	"github.com/example/retailpulse/internal/utils"
)

const minPasswordLength = 6

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// AuthService handles registration, login and credentials.
type AuthService struct {
	store     repository.Store
	otp       *OtpService
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthService(store repository.Store, otp *OtpService, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{store: store, otp: otp, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// RegisterInput is the data required to open an account.
type RegisterInput struct {
	Email       string
	PhoneNumber string
	FirstName   string
	LastName    string
	Password    string
}

// LoginResult carries the issued access token.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (in *RegisterInput) validate() error {
	in.Email = normalizeEmail(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	switch {
	case in.Email == "" || !strings.Contains(in.Email, "@"):
		return newError(KindInvalidInput, "a valid email is required")
	case !phonePattern.MatchString(in.PhoneNumber):
		return newError(KindInvalidInput, "phone number must be 10 to 15 digits")
	case len(in.Password) < minPasswordLength:
		return newError(KindInvalidInput, "password must be at least %d characters", minPasswordLength)
	}
	return nil
}

// Register creates an unverified USER account and sends both confirmation codes.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	passwordHash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        in.Email,
		PhoneNumber:  in.PhoneNumber,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
	}

	var otp *models.Otp
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.store.UserExists(ctx, user.Email, user.PhoneNumber)
		if err != nil {
			return err
		}
		if exists {
			return newError(KindDuplicateUser, "a user with this email or phone number already exists")
		}
		if err := s.store.CreateUser(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return newError(KindDuplicateUser, "a user with this email or phone number already exists")
			}
			return err
		}
		otp, err = s.otp.Issue(ctx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Auth] registered user %s", user.ID)
	s.otp.Dispatch(ctx, otp)
	return user, nil
}

// Login checks credentials and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(KindInvalidCredentials, "invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, newError(KindInvalidCredentials, "invalid email or password")
	}
	if !user.OtpVerified {
		return nil, newError(KindUnverifiedOtp, "confirm your email or phone number before logging in")
	}

	token, claims, err := utils.GenerateToken(s.jwtSecret, user.ID, string(user.Role), s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &LoginResult{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

// Logout revokes the token id until the token would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *utils.Claims) error {
	if claims == nil || claims.ID == "" {
		return newError(KindInvalidInput, "token has no id")
	}
	userID, err := claims.ParsedUserID()
	if err != nil {
		return newError(KindInvalidInput, "token has an invalid subject")
	}

	expiresAt := time.Now().Add(s.tokenTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return s.store.RevokeToken(ctx, &models.RevokedToken{
		TokenID:   claims.ID,
		UserID:    userID,
		ExpiresAt: expiresAt,
	})
}

// IsTokenRevoked reports whether the token id was logged out.
func (s *AuthService) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	return s.store.IsTokenRevoked(ctx, tokenID)
}

// ChangePassword replaces the password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return notFoundOr(err, "user not found")
	}
	if !utils.CheckPassword(user.PasswordHash, current) {
		return newError(KindInvalidCredentials, "current password is incorrect")
	}
	if len(next) < minPasswordLength {
		return newError(KindInvalidInput, "password must be at least %d characters", minPasswordLength)
	}

	hash, err := utils.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	return s.store.UpdateUser(ctx, user)
}

// Profile returns the user behind userID.
func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user not found")
	}
	return user, nil
}

// EnsureAdmin creates or promotes a verified ADMIN account for email.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, phone, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	existing, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == models.RoleAdmin && existing.OtpVerified {
			return nil
		}
		existing.Role = models.RoleAdmin
		existing.OtpVerified = true
		log.Printf("[Auth] promoted %s to admin", email)
		return s.store.UpdateUser(ctx, existing)
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}

	admin := &models.User{
		Email:        email,
		PhoneNumber:  strings.TrimSpace(phone),
		FirstName:    "Admin",
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		OtpVerified:  true,
	}
	if err := s.store.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Printf("[Auth] created admin account %s", email)
	return nil
}
