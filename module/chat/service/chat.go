package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	chatmodel "CollabProject/module/chat/model"
	chatstore "CollabProject/module/chat/store"
	rtchat "CollabProject/service/chat"
	"CollabProject/tools/errs"
)

type Service struct {
	store *chatstore.Store
}

func New(store *chatstore.Store) *Service { return &Service{store: store} }

func (s *Service) CreateGroup(ctx context.Context, name string, isPrivate bool, createdBy int64) (*chatmodel.ChatGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.ErrBadRequest.WithDetail("group name is required")
	}
	// Join codes are shared out of band; a UUID is unguessable enough.
	joinCode := uuid.NewString()
	return s.store.CreateGroup(ctx, name, isPrivate, joinCode, createdBy)
}

func (s *Service) ListGroups(ctx context.Context, userID int64) ([]*chatmodel.ChatGroup, error) {
	return s.store.ListUserGroups(ctx, userID)
}

func (s *Service) JoinByCode(ctx context.Context, userID int64, joinCode string) (*chatmodel.ChatGroup, error) {
	g, err := s.store.GroupByJoinCode(ctx, strings.TrimSpace(joinCode))
	if err != nil {
		return nil, err
	}
	if err := s.store.AddMember(ctx, g.ID, userID); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Service) ListMessages(ctx context.Context, userID, groupID int64, limit int) ([]*chatmodel.ChatMessage, error) {
	member, err := s.store.IsMember(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, errs.ErrNotMember
	}
	return s.store.ListMessages(ctx, groupID, limit)
}

// IsMember and SaveMessage implement the realtime layer's chat persistence
// collaborator (chat.ChatBackend).

func (s *Service) IsMember(ctx context.Context, userID, groupID int64) (bool, error) {
	return s.store.IsMember(ctx, userID, groupID)
}

func (s *Service) SaveMessage(ctx context.Context, groupID, senderID int64, content, messageType string) (rtchat.SavedMessage, error) {
	m, err := s.store.SaveMessage(ctx, groupID, senderID, content, messageType)
	if err != nil {
		return rtchat.SavedMessage{}, err
	}
	return rtchat.SavedMessage{
		ID:             m.ID,
		Timestamp:      m.Timestamp,
		SenderUsername: m.SenderUsername,
	}, nil
}
