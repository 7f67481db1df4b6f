package service

import (
	"context"
	"strings"

	projmodel "CollabProject/module/project/model"
	projstore "CollabProject/module/project/store"
	"CollabProject/tools/errs"
)

type Service struct {
	store *projstore.Store
}

func New(store *projstore.Store) *Service { return &Service{store: store} }

func (s *Service) CreateProject(ctx context.Context, name string, ownerID int64) (*projmodel.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.ErrBadRequest.WithDetail("project name is required")
	}
	return s.store.CreateProject(ctx, name, ownerID)
}

func (s *Service) ListProjects(ctx context.Context, ownerID int64) ([]*projmodel.Project, error) {
	return s.store.ListProjects(ctx, ownerID)
}

// CreateFile requires the caller to own the project.
func (s *Service) CreateFile(ctx context.Context, userID, projectID int64, name, content string) (*projmodel.File, error) {
	ownerID, err := s.store.ProjectOwner(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if ownerID != userID {
		// Same response as absent so project IDs can't be probed.
		return nil, errs.ErrNotFound
	}
	if strings.TrimSpace(name) == "" {
		return nil, errs.ErrBadRequest.WithDetail("file name is required")
	}
	return s.store.CreateFile(ctx, name, content, projectID)
}

func (s *Service) GetFile(ctx context.Context, userID, fileID int64) (*projmodel.File, error) {
	f, ownerID, err := s.store.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if ownerID != userID {
		return nil, errs.ErrNotFound
	}
	return f, nil
}

// FileForUser and UpdateContent implement the realtime layer's file
// persistence collaborator (chat.FileBackend).

func (s *Service) FileForUser(ctx context.Context, userID, fileID int64) (string, error) {
	f, err := s.GetFile(ctx, userID, fileID)
	if err != nil {
		return "", err
	}
	return f.Content, nil
}

func (s *Service) UpdateContent(ctx context.Context, fileID int64, content string) error {
	return s.store.UpdateFileContent(ctx, fileID, content)
}
