// Package usecases - auth.go handles login, session tokens and role guards.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
	"github.com/0xcro3dile/chemstock/internal/domain/ports"
)

const minPasswordLength = 8

// AuthUseCase authenticates users and resolves their role profiles.
type AuthUseCase struct {
	users    ports.UserRepository
	profiles map[entities.Role]ports.ProfileLookup
	tokens   ports.TokenService
	hasher   ports.PasswordHasher
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthUseCase creates an AuthUseCase. profiles maps each role to the
// lookup that owns its profile records.
func NewAuthUseCase(
	users ports.UserRepository,
	profiles map[entities.Role]ports.ProfileLookup,
	tokens ports.TokenService,
	hasher ports.PasswordHasher,
	logger *zap.Logger,
) *AuthUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthUseCase{
		users:    users,
		profiles: profiles,
		tokens:   tokens,
		hasher:   hasher,
		logger:   logger,
		now:      time.Now,
	}
}

// Register creates an account and its role profile.
func (uc *AuthUseCase) Register(ctx context.Context, in entities.NewUser) (*entities.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email %q", entities.ErrValidation, in.Email)
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", entities.ErrValidation)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must have at least %d characters", entities.ErrValidation, minPasswordLength)
	}
	lookup, err := uc.lookupFor(in.Role)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ProfileNumber) == "" {
		return nil, fmt.Errorf("%w: profile number is required", entities.ErrValidation)
	}

	hash, err := uc.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &entities.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		Role:         in.Role,
		PasswordHash: hash,
		CreatedAt:    uc.now(),
	}
	if err := uc.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	if err := lookup.CreateProfile(ctx, user.ID, strings.TrimSpace(in.ProfileNumber)); err != nil {
		// an account without a profile can never log in
		if delErr := uc.users.DeleteUser(ctx, user.ID); delErr != nil {
			uc.logger.Error("removing user without profile failed", zap.String("user_id", user.ID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("creating %s profile: %w", in.Role, err)
	}

	uc.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Login checks credentials and issues a session token. Unknown email and
// wrong password fail the same way.
func (uc *AuthUseCase) Login(ctx context.Context, email, password string) (*entities.Session, error) {
	user, err := uc.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			return nil, entities.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := uc.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, entities.ErrInvalidCredentials
	}

	profile, err := uc.ResolveProfile(ctx, user)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := uc.tokens.Issue(entities.Claims{
		UserID:    user.ID,
		Role:      user.Role,
		ProfileID: profile.ProfileID,
		Name:      user.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	uc.logger.Debug("user logged in", zap.String("user_id", user.ID))
	return &entities.Session{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      *user,
		Profile:   *profile,
	}, nil
}

// ResolveProfile finds the role-specific profile of user.
func (uc *AuthUseCase) ResolveProfile(ctx context.Context, user *entities.User) (*entities.Profile, error) {
	lookup, err := uc.lookupFor(user.Role)
	if err != nil {
		return nil, err
	}
	id, err := lookup.FindProfileID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("resolving %s profile: %w", user.Role, err)
	}
	return &entities.Profile{Role: user.Role, ProfileID: id, Name: user.Name}, nil
}

func (uc *AuthUseCase) lookupFor(role entities.Role) (ports.ProfileLookup, error) {
	lookup, ok := uc.profiles[role]
	if !ok || !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", entities.ErrValidation, role)
	}
	return lookup, nil
}

// Authenticate verifies a session token.
func (uc *AuthUseCase) Authenticate(ctx context.Context, token string) (*entities.Claims, error) {
	if token == "" {
		return nil, entities.ErrUnauthorized
	}
	claims, err := uc.tokens.Verify(token)
	if err != nil {
		uc.logger.Debug("token rejected", zap.Error(err))
		return nil, entities.ErrUnauthorized
	}
	return claims, nil
}

// Me returns the account behind claims.
func (uc *AuthUseCase) Me(ctx context.Context, claims *entities.Claims) (*entities.User, error) {
	return uc.users.GetUser(ctx, claims.UserID)
}

// ListUsers returns every account.
func (uc *AuthUseCase) ListUsers(ctx context.Context) ([]entities.User, error) {
	return uc.users.ListUsers(ctx)
}

// Authorize passes when claims carry one of the allowed roles. No roles
// means any authenticated user.
func Authorize(claims *entities.Claims, allowed ...entities.Role) error {
	if claims == nil {
		return entities.ErrUnauthorized
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, r := range allowed {
		if claims.Role == r {
			return nil
		}
	}
	return entities.ErrForbidden
}
