package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	usermodel "CollabProject/module/user/model"
	"CollabProject/tools/errs"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func (s *Store) Create(ctx context.Context, email, username, hashedPassword string) (*usermodel.User, error) {
	u := &usermodel.User{Email: email, Username: username, HashedPassword: hashedPassword}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (email, username, hashed_password)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		email, username, hashedPassword,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "user create")
	}
	return u, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*usermodel.User, error) {
	return s.getWhere(ctx, "email = $1", email)
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*usermodel.User, error) {
	return s.getWhere(ctx, "username = $1", username)
}

func (s *Store) GetByID(ctx context.Context, id int64) (*usermodel.User, error) {
	return s.getWhere(ctx, "id = $1", id)
}

func (s *Store) getWhere(ctx context.Context, cond string, arg any) (*usermodel.User, error) {
	u := &usermodel.User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, username, hashed_password, profile_photo, created_at
		 FROM users WHERE `+cond, arg,
	).Scan(&u.ID, &u.Email, &u.Username, &u.HashedPassword, &u.ProfilePhoto, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "user get")
	}
	return u, nil
}

// Usernames resolves a batch of IDs, used to enrich online-member lists.
func (s *Store) Usernames(ctx context.Context, ids []int64) (map[int64]string, error) {
	if len(ids) == 0 {
		return map[int64]string{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, username FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "usernames")
	}
	defer rows.Close()

	out := make(map[int64]string, len(ids))
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, errors.Wrap(err, "usernames scan")
		}
		out[id] = name
	}
	return out, rows.Err()
}
