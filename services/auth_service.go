package services

import (
	"context"
	"dm-lab/auth"
	"dm-lab/domain"
	"dm-lab/errors"
	"dm-lab/repositories"
	"fmt"

	"github.com/samber/lo"
)

type IAuthService interface {
	Login(ctx context.Context, username, password string) (Session, error)
	Register(ctx context.Context, username, password string) (Session, error)
	ListOthers(ctx context.Context, callerID domain.UserID) ([]Account, error)
}

// Session is what a client needs to call the authenticated endpoints.
type Session struct {
	Token  string        `json:"token"`
	UserID domain.UserID `json:"userId"`
}

// Account is the public view of a registered user.
type Account struct {
	ID       domain.UserID `json:"id"`
	Username string        `json:"username"`
}

type AuthService struct {
	userRepository repositories.IUserRepository
	tokens         *auth.TokenIssuer
}

func NewAuthService(repo repositories.IUserRepository, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{userRepository: repo, tokens: tokens}
}

func (s *AuthService) Register(ctx context.Context, username, password string) (Session, error) {
	// 1. Business rules first, before any expensive cryptographic operation
	if err := auth.ValidateRegister(auth.RegisterRequest{Username: username, Password: password}); err != nil {
		return Session{}, err
	}

	// 2. Hash in the service layer so the repository never sees plain passwords
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Persist, propagates ErrUserAlreadyExists
	userID, err := s.userRepository.CreateUser(ctx, username, hashedPassword)
	if err != nil {
		return Session{}, err
	}

	return s.session(userID)
}

func (s *AuthService) Login(ctx context.Context, username, password string) (Session, error) {
	user, err := s.userRepository.GetUserByUsername(ctx, username)
	if err != nil {
		// Generic error to prevent user enumeration
		return Session{}, errors.ErrInvalidCredentials
	}
	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return Session{}, errors.ErrInvalidCredentials
	}
	return s.session(user.ID)
}

// ListOthers returns every account except the caller, ordered by id.
func (s *AuthService) ListOthers(ctx context.Context, callerID domain.UserID) ([]Account, error) {
	users, err := s.userRepository.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStore, err)
	}
	return lo.FilterMap(users, func(u repositories.User, _ int) (Account, bool) {
		return Account{ID: u.ID, Username: u.Username}, u.ID != callerID
	}), nil
}

func (s *AuthService) session(userID domain.UserID) (Session, error) {
	token, err := s.tokens.Generate(userID)
	if err != nil {
		return Session{}, errors.ErrTokenGeneration
	}
	return Session{Token: token, UserID: userID}, nil
}
