package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	chatmodel "CollabProject/module/chat/model"
	"CollabProject/tools/errs"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// CreateGroup inserts the group and its creator as first member in one
// transaction; a group without members is never observable.
func (s *Store) CreateGroup(ctx context.Context, name string, isPrivate bool, joinCode string, createdBy int64) (*chatmodel.ChatGroup, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "group create begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	g := &chatmodel.ChatGroup{
		Name:        name,
		IsPrivate:   isPrivate,
		JoinCode:    joinCode,
		CreatedBy:   createdBy,
		MemberCount: 1,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO chat_groups (name, is_private, join_code, created_by)
		 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		name, isPrivate, joinCode, createdBy,
	).Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "group create")
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO chat_group_members (group_id, user_id) VALUES ($1, $2)`,
		g.ID, createdBy); err != nil {
		return nil, errors.Wrap(err, "group creator member")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "group create commit")
	}
	return g, nil
}

// ListUserGroups returns the groups the user belongs to, with member counts.
func (s *Store) ListUserGroups(ctx context.Context, userID int64) ([]*chatmodel.ChatGroup, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT g.id, g.name, g.is_private, g.join_code, g.created_by, g.created_at,
		        (SELECT count(*) FROM chat_group_members m2 WHERE m2.group_id = g.id)
		 FROM chat_groups g
		 JOIN chat_group_members m ON m.group_id = g.id
		 WHERE m.user_id = $1
		 ORDER BY g.id`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "group list")
	}
	defer rows.Close()

	out := []*chatmodel.ChatGroup{}
	for rows.Next() {
		g := &chatmodel.ChatGroup{}
		if err := rows.Scan(&g.ID, &g.Name, &g.IsPrivate, &g.JoinCode,
			&g.CreatedBy, &g.CreatedAt, &g.MemberCount); err != nil {
			return nil, errors.Wrap(err, "group scan")
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GroupByJoinCode resolves a join code, errs.ErrBadJoinCode if unknown.
func (s *Store) GroupByJoinCode(ctx context.Context, joinCode string) (*chatmodel.ChatGroup, error) {
	g := &chatmodel.ChatGroup{}
	err := s.pool.QueryRow(ctx,
		`SELECT g.id, g.name, g.is_private, g.join_code, g.created_by, g.created_at,
		        (SELECT count(*) FROM chat_group_members m WHERE m.group_id = g.id)
		 FROM chat_groups g WHERE g.join_code = $1`, joinCode,
	).Scan(&g.ID, &g.Name, &g.IsPrivate, &g.JoinCode, &g.CreatedBy, &g.CreatedAt, &g.MemberCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrBadJoinCode
	}
	if err != nil {
		return nil, errors.Wrap(err, "group by code")
	}
	return g, nil
}

// AddMember is idempotent; joining twice is not an error.
func (s *Store) AddMember(ctx context.Context, groupID, userID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_group_members (group_id, user_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`, groupID, userID)
	return errors.Wrap(err, "group add member")
}

func (s *Store) IsMember(ctx context.Context, userID, groupID int64) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM chat_group_members WHERE group_id = $1 AND user_id = $2`,
		groupID, userID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "group membership")
	}
	return true, nil
}

// SaveMessage persists one message and returns it with the sender's
// username filled in for the broadcast payload.
func (s *Store) SaveMessage(ctx context.Context, groupID, senderID int64, content, messageType string) (*chatmodel.ChatMessage, error) {
	m := &chatmodel.ChatMessage{
		GroupID:     groupID,
		SenderID:    senderID,
		Content:     content,
		MessageType: messageType,
	}
	err := s.pool.QueryRow(ctx,
		`WITH ins AS (
		    INSERT INTO chat_messages (group_id, sender_id, content, message_type)
		    VALUES ($1, $2, $3, $4)
		    RETURNING id, sender_id, created_at
		 )
		 SELECT ins.id, ins.created_at, u.username
		 FROM ins JOIN users u ON u.id = ins.sender_id`,
		groupID, senderID, content, messageType,
	).Scan(&m.ID, &m.Timestamp, &m.SenderUsername)
	if err != nil {
		return nil, errors.Wrap(err, "message save")
	}
	return m, nil
}

// ListMessages returns the group history oldest first.
func (s *Store) ListMessages(ctx context.Context, groupID int64, limit int) ([]*chatmodel.ChatMessage, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.pool.Query(ctx,
		`SELECT m.id, m.group_id, m.sender_id, u.username, m.content, m.message_type, m.created_at
		 FROM chat_messages m JOIN users u ON u.id = m.sender_id
		 WHERE m.group_id = $1
		 ORDER BY m.created_at, m.id
		 LIMIT $2`, groupID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "message list")
	}
	defer rows.Close()

	out := []*chatmodel.ChatMessage{}
	for rows.Next() {
		m := &chatmodel.ChatMessage{}
		if err := rows.Scan(&m.ID, &m.GroupID, &m.SenderID, &m.SenderUsername,
			&m.Content, &m.MessageType, &m.Timestamp); err != nil {
			return nil, errors.Wrap(err, "message scan")
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
