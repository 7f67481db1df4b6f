package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	usermodel "CollabProject/module/user/model"
	userstore "CollabProject/module/user/store"
	"CollabProject/tools/errs"
	security "CollabProject/tools/security"
)

type Service struct {
	store *userstore.Store
	jwt   security.Options
}

func New(store *userstore.Store, jwt security.Options) *Service {
	return &Service{store: store, jwt: jwt}
}

// Register creates an account; email and username must both be free.
func (s *Service) Register(ctx context.Context, email, username, password string) (*usermodel.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)
	if email == "" || username == "" || password == "" {
		return nil, errs.ErrBadRequest.WithDetail("email, username and password are required")
	}

	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return nil, errs.ErrDuplicateEmail
	} else if !errs.ErrNotFound.Is(err) {
		return nil, err
	}

	hashed, err := security.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return s.store.Create(ctx, email, username, hashed)
}

// Login accepts an email or a username plus the password and issues a JWT
// whose subject is the user ID.
func (s *Service) Login(ctx context.Context, identifier, password string) (token string, expireAt time.Time, user *usermodel.User, err error) {
	identifier = strings.TrimSpace(identifier)

	if strings.Contains(identifier, "@") {
		user, err = s.store.GetByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = s.store.GetByUsername(ctx, identifier)
	}
	if err != nil || !security.CheckPassword(password, user.HashedPassword) {
		return "", time.Time{}, nil, errs.ErrBadCredentials
	}

	token, expireAt, err = security.Generate(s.jwt, strconv.FormatInt(user.ID, 10), nil)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	return token, expireAt, user, nil
}

func (s *Service) Get(ctx context.Context, userID int64) (*usermodel.User, error) {
	return s.store.GetByID(ctx, userID)
}

// Usernames enriches ID lists for the online-members endpoint.
func (s *Service) Usernames(ctx context.Context, ids []int64) (map[int64]string, error) {
	return s.store.Usernames(ctx, ids)
}
