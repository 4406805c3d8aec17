package account

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"dishdash-be/internal/apperr"
	"dishdash-be/internal/auth"
	"dishdash-be/internal/logger"

	"go.uber.org/zap"
)

const minPasswordLength = 6

// TokenIssuer is satisfied by *auth.Tokens.
type TokenIssuer interface {
	Generate(accountID, email, role string) (string, error)
	Parse(token string) (*auth.Claims, error)
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type ProfileInput struct {
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	Address      string  `json:"address"`
	ProfilePhoto *string `json:"profilePhoto"`
}

type Session struct {
	Token   string   `json:"token"`
	Account *Account `json:"user"`
}

type Service interface {
	Register(ctx context.Context, input RegisterInput) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Authenticate(ctx context.Context, token string) (Principal, error)
	Authorize(p Principal, roles ...Role) error
	Me(ctx context.Context, p Principal) (*Account, error)
	UpdateProfile(ctx context.Context, p Principal, input ProfileInput) (*Account, error)
	UpdateTheme(ctx context.Context, p Principal, theme Theme) (*Account, error)
	ChangePassword(ctx context.Context, p Principal, current, next string) error
	ListUsers(ctx context.Context, p Principal, filter Filter) ([]Account, error)
	UpdateRole(ctx context.Context, p Principal, id string, role Role) (*Account, error)
}

type service struct {
	repo   Repository
	tokens TokenIssuer
}

func NewService(repo Repository, tokens TokenIssuer) Service {
	return &service{repo: repo, tokens: tokens}
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Register"),
	)

	email := NormalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperr.Invalid("name is required")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperr.Invalid("password must be at least %d characters", minPasswordLength)
	}

	existing, err := s.repo.FindAccountByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("email already registered")
	}

	hashed, err := auth.HashPassword(input.Password)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	acct, err := s.repo.CreateAccount(ctx, Account{
		Email:           email,
		Name:            name,
		PasswordHash:    hashed,
		Role:            RoleCustomer,
		Phone:           strings.TrimSpace(input.Phone),
		Address:         strings.TrimSpace(input.Address),
		ThemePreference: ThemeLight,
	})
	if err != nil {
		log.Error("failed to create account", zap.String("email", email), zap.Error(err))
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, err
	}

	token, err := s.tokens.Generate(acct.ID, acct.Email, string(acct.Role))
	if err != nil {
		log.Error("failed to generate jwt", zap.String("account_id", acct.ID), zap.Error(err))
		return nil, err
	}

	log.Info("account registered", zap.String("account_id", acct.ID))
	return &Session{Token: token, Account: acct}, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*Session, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Login"),
	)

	acct, err := s.repo.FindAccountByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if acct == nil || !auth.CheckPasswordHash(password, acct.PasswordHash) {
		log.Info("login rejected")
		return nil, apperr.Unauthenticated("invalid credentials")
	}

	token, err := s.tokens.Generate(acct.ID, acct.Email, string(acct.Role))
	if err != nil {
		log.Error("failed to generate jwt", zap.String("account_id", acct.ID), zap.Error(err))
		return nil, err
	}

	return &Session{Token: token, Account: acct}, nil
}

// Authenticate resolves a bearer token to a Principal. The role is read from
// the store, so role changes apply to tokens issued earlier.
func (s *service) Authenticate(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, apperr.Unauthenticated("missing token")
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Principal{}, apperr.Unauthenticated("invalid token")
	}

	acct, err := s.repo.FindAccountByID(ctx, claims.AccountID)
	if err != nil {
		return Principal{}, err
	}
	if acct == nil {
		return Principal{}, apperr.Unauthenticated("account no longer exists")
	}

	return Principal{AccountID: acct.ID, Email: acct.Email, Role: acct.Role}, nil
}

func (s *service) Authorize(p Principal, roles ...Role) error {
	if p.AccountID == "" {
		return apperr.Unauthenticated("authentication required")
	}
	if len(roles) > 0 && !p.HasRole(roles...) {
		return apperr.Forbidden("insufficient permissions")
	}
	return nil
}

func (s *service) Me(ctx context.Context, p Principal) (*Account, error) {
	return s.load(ctx, p.AccountID)
}

func (s *service) UpdateProfile(ctx context.Context, p Principal, input ProfileInput) (*Account, error) {
	acct, err := s.load(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		acct.Name = name
	}
	if input.Email != "" {
		email := NormalizeEmail(input.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		if email != acct.Email {
			other, err := s.repo.FindAccountByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if other != nil {
				return nil, apperr.Conflict("email already registered")
			}
		}
		acct.Email = email
	}
	acct.Phone = strings.TrimSpace(input.Phone)
	acct.Address = strings.TrimSpace(input.Address)
	if input.ProfilePhoto != nil {
		acct.ProfilePhoto = *input.ProfilePhoto
	}

	logger.FromCtx(ctx).Info("profile updated",
		zap.String("layer", "service"),
		zap.Int("photo_chars", len(acct.ProfilePhoto)),
	)
	return s.repo.UpdateAccount(ctx, *acct)
}

func (s *service) UpdateTheme(ctx context.Context, p Principal, theme Theme) (*Account, error) {
	if !theme.Valid() {
		return nil, apperr.Invalid("invalid theme preference")
	}

	acct, err := s.load(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}
	acct.ThemePreference = theme
	return s.repo.UpdateAccount(ctx, *acct)
}

func (s *service) ChangePassword(ctx context.Context, p Principal, current, next string) error {
	acct, err := s.load(ctx, p.AccountID)
	if err != nil {
		return err
	}
	if !auth.CheckPasswordHash(current, acct.PasswordHash) {
		return apperr.Unauthenticated("current password is incorrect")
	}
	if len(next) < minPasswordLength {
		return apperr.Invalid("password must be at least %d characters", minPasswordLength)
	}

	hashed, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	acct.PasswordHash = hashed

	_, err = s.repo.UpdateAccount(ctx, *acct)
	return err
}

func (s *service) ListUsers(ctx context.Context, p Principal, filter Filter) ([]Account, error) {
	if err := s.Authorize(p, RoleAdmin); err != nil {
		return nil, err
	}
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, apperr.Invalid("invalid role")
	}
	return s.repo.ListAccounts(ctx, filter)
}

func (s *service) UpdateRole(ctx context.Context, p Principal, id string, role Role) (*Account, error) {
	if err := s.Authorize(p, RoleAdmin); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperr.Invalid("invalid role")
	}
	if id == p.AccountID && role != RoleAdmin {
		return nil, apperr.Invalid("cannot change your own admin role")
	}

	acct, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	acct.Role = role

	logger.FromCtx(ctx).Info("role updated",
		zap.String("layer", "service"),
		zap.String("target_account_id", id),
		zap.String("role", string(role)),
	)
	return s.repo.UpdateAccount(ctx, *acct)
}

func (s *service) load(ctx context.Context, id string) (*Account, error) {
	acct, err := s.repo.FindAccountByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, apperr.NotFound("user not found")
	}
	return acct, nil
}

func validateEmail(email string) error {
	if email == "" {
		return apperr.Invalid("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperr.Invalid("email is not valid")
	}
	return nil
}
