// Package auth handles account registration, credential checks and the
// signed session tokens the HTTP layer stores in a cookie.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"caixa/internal/amqp"
	"caixa/internal/core"
	"caixa/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password must have at least 8 characters")
	ErrMissingField       = errors.New("name and email are required")
	ErrInvalidToken       = errors.New("invalid session token")
)

// SignupPublisher announces new accounts to the provisioning worker.
type SignupPublisher interface {
	PublishUserSignup(ctx context.Context, msg *amqp.UserSignupMessage) error
}

type Service struct {
	accounts  store.AccountStore
	users     store.UserStore
	publisher SignupPublisher
	secret    []byte
	tokenTTL  time.Duration
}

// NewService builds the auth service. publisher may be nil; without a
// broker new users are provisioned synchronously on signup.
func NewService(accounts store.AccountStore, users store.UserStore, publisher SignupPublisher, secret string, tokenTTL time.Duration) *Service {
	return &Service{
		accounts:  accounts,
		users:     users,
		publisher: publisher,
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
	}
}

// SignUp registers a new account and hands the user row off for
// provisioning. When the broker is down the row is written directly so
// registration never depends on it.
func (s *Service) SignUp(ctx context.Context, name, email, password string) (core.User, error) {
	if name == "" || email == "" {
		return core.User{}, ErrMissingField
	}
	if len(password) < 8 {
		return core.User{}, ErrWeakPassword
	}

	_, err := s.accounts.GetAccountByEmail(ctx, email)
	if err == nil {
		return core.User{}, ErrEmailTaken
	}
	if !errors.Is(err, store.ErrNotFound) {
		return core.User{}, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	account := store.Account{
		ID:           newID(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		return core.User{}, fmt.Errorf("create account: %w", err)
	}

	user := core.User{ID: account.ID, Name: name, Email: email, Role: core.RoleNormal}
	s.provision(ctx, user)

	slog.InfoContext(ctx, "Account registered", "user_id", account.ID, "email", email)
	return user, nil
}

func (s *Service) provision(ctx context.Context, user core.User) {
	if s.publisher != nil {
		msg := amqp.NewUserSignupMessage(user.ID, user.Name, user.Email)
		if err := s.publisher.PublishUserSignup(ctx, msg); err == nil {
			return
		} else {
			slog.WarnContext(ctx, "Signup event not published, provisioning directly",
				"user_id", user.ID, "error", err)
		}
	}
	if err := s.users.PutUser(ctx, user); err != nil {
		// SignIn provisions lazily, so a failure here only delays the row.
		slog.ErrorContext(ctx, "Direct user provisioning failed", "user_id", user.ID, "error", err)
	}
}

// SignIn checks the credentials and returns a signed session token.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, core.User, error) {
	account, err := s.accounts.GetAccountByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", core.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", core.User{}, fmt.Errorf("load account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)); err != nil {
		return "", core.User{}, ErrInvalidCredentials
	}

	user, err := s.users.GetUser(ctx, account.ID)
	if errors.Is(err, store.ErrNotFound) {
		// Provisioning event still in flight. Write the row now.
		user = core.User{ID: account.ID, Name: account.Name, Email: account.Email, Role: core.RoleNormal}
		if err := s.users.PutUser(ctx, user); err != nil {
			return "", core.User{}, fmt.Errorf("provision user on sign in: %w", err)
		}
	} else if err != nil {
		return "", core.User{}, fmt.Errorf("load user: %w", err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", core.User{}, err
	}

	slog.InfoContext(ctx, "User signed in", "user_id", user.ID)
	return token, user, nil
}

func (s *Service) issueToken(user core.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID,
		"name": user.Name,
		"role": string(user.Role),
		"exp":  time.Now().Add(s.tokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a session token and returns the user id inside.
func (s *Service) ParseToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// CurrentUser resolves a session token to the user it belongs to.
func (s *Service) CurrentUser(ctx context.Context, tokenString string) (core.User, error) {
	id, err := s.ParseToken(tokenString)
	if err != nil {
		return core.User{}, err
	}
	user, err := s.users.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return core.User{}, ErrInvalidToken
	}
	if err != nil {
		return core.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// TokenTTL is how long issued session tokens stay valid.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}

func newID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	return hex.EncodeToString(b)
}
