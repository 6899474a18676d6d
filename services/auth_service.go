package services

import (
	"chat-rooms/auth"
	"chat-rooms/contract"
	"chat-rooms/domain"
	"chat-rooms/errors"
	"chat-rooms/protocol"
	"chat-rooms/runtime"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type IAuthService interface {
	Register(ctx context.Context, username, password string) (domain.UserID, error)
	Authenticate(ctx context.Context, login protocol.Login, conn contract.Conn) (*runtime.Session, string, error)
}

type AuthService struct {
	store    contract.IStore
	hasher   auth.PasswordHasher
	tokens   *auth.TokenIssuer
	sessions *runtime.SessionRegistry
	log      *slog.Logger
}

func NewAuthService(store contract.IStore, hasher auth.PasswordHasher, tokens *auth.TokenIssuer,
	sessions *runtime.SessionRegistry, log *slog.Logger) *AuthService {
	return &AuthService{store: store, hasher: hasher, tokens: tokens, sessions: sessions, log: log}
}

// Register creates the account. It never opens a session.
func (s *AuthService) Register(ctx context.Context, username, password string) (domain.UserID, error) {
	if err := auth.ValidateCredentials(username, password); err != nil {
		return 0, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return 0, fmt.Errorf("hashing failed: %w", err)
	}
	id, err := s.store.AddUser(ctx, strings.TrimSpace(username), hash)
	if err != nil {
		return 0, err
	}
	s.log.Info("User registered", "user_id", id)
	return id, nil
}

// Authenticate verifies a login, by token when one is given and by password
// otherwise, then opens the connection's session.
func (s *AuthService) Authenticate(ctx context.Context, login protocol.Login, conn contract.Conn) (*runtime.Session, string, error) {
	var user domain.User
	var err error
	if login.Token != "" {
		user, err = s.Resume(ctx, login.Token)
	} else {
		user, err = s.Login(ctx, login.Username, login.Password)
	}
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, "", fmt.Errorf("token generation failed: %w", err)
	}
	session := runtime.NewSession(user, conn)
	if err = s.sessions.Add(session); err != nil {
		return nil, "", err
	}
	if err = s.store.UpdateUserActiveTime(ctx, user.ID, time.Now()); err != nil {
		s.log.Error("Unable to refresh activity", "user_id", user.ID, "error", err)
	}
	s.log.Info("Session opened", "user_id", user.ID, "session_id", session.ID, "remote", conn.RemoteAddr())
	return session, token, nil
}

// Login checks a username and password against the stored hash.
// Unknown users and wrong passwords are both errors.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.User{}, errors.ErrEmptyCredentials
	}
	user, err := s.store.GetUser(ctx, username)
	if stderrors.Is(err, errors.ErrUserNotFound) {
		return domain.User{}, errors.ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, err
	}
	match, err := s.hasher.Compare(password, user.PasswordHash)
	if err != nil || !match {
		return domain.User{}, errors.ErrInvalidCredentials
	}
	return user, nil
}

// Resume trusts a session token issued earlier, as long as its user still exists.
func (s *AuthService) Resume(ctx context.Context, token string) (domain.User, error) {
	id, username, err := s.tokens.Validate(token)
	if err != nil {
		return domain.User{}, err
	}
	stored, err := s.store.GetUsernameByID(ctx, id)
	if stderrors.Is(err, errors.ErrUserNotFound) || (err == nil && stored != username) {
		return domain.User{}, errors.ErrInvalidToken
	}
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{ID: id, Username: username}, nil
}
