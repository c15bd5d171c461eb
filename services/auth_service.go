package services

import (
	"chatcode/auth"
	"chatcode/errors"
	"chatcode/infrastructure/storage"
	"fmt"
	"log/slog"
)

type IAuthService interface {
	Login(email, password string) (Token, error)
	Register(email, password string) (Token, error)
	Authenticate(token string) (auth.State, error)
}

type Token string

func (t Token) String() string {
	return string(t)
}

type AuthService struct {
	log            *slog.Logger
	userRepository storage.IUserRepository
	issuer         *auth.TokenIssuer
}

func NewAuthService(log *slog.Logger, repo storage.IUserRepository, issuer *auth.TokenIssuer) *AuthService {
	return &AuthService{log: log, userRepository: repo, issuer: issuer}
}

// Register validates the credentials before any hashing, stores the user and
// returns a first token.
func (s *AuthService) Register(email, password string) (Token, error) {
	if err := auth.ValidateRegister(auth.RegisterRequest{Email: email, Password: password}); err != nil {
		return "", err
	}
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}
	userID, err := s.userRepository.CreateUser(email, hashedPassword)
	if err != nil {
		return "", err
	}
	s.log.Info("User registered", "user_id", userID)

	token, err := s.issuer.Generate(userID, []string{"user"})
	if err != nil {
		return "", err
	}
	return Token(token), nil
}

// Login answers ErrInvalidCredentials for an unknown email as for a wrong
// password, so accounts cannot be enumerated.
func (s *AuthService) Login(email, password string) (Token, error) {
	user, err := s.userRepository.GetUserByEmail(email)
	if err != nil {
		return "", errors.ErrInvalidCredentials
	}
	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}
	token, err := s.issuer.Generate(user.ID, user.Roles)
	if err != nil {
		return "", err
	}
	return Token(token), nil
}

func (s *AuthService) Authenticate(token string) (auth.State, error) {
	claims, err := s.issuer.Validate(token)
	if err != nil {
		return auth.State{}, err
	}
	return auth.State{UserID: claims.UserID, Roles: claims.Roles}, nil
}
