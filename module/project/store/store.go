package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	projmodel "CollabProject/module/project/model"
	"CollabProject/tools/errs"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func (s *Store) CreateProject(ctx context.Context, name string, ownerID int64) (*projmodel.Project, error) {
	p := &projmodel.Project{Name: name, OwnerID: ownerID}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO projects (name, owner_id) VALUES ($1, $2) RETURNING id, created_at`,
		name, ownerID,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "project create")
	}
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context, ownerID int64) ([]*projmodel.Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, owner_id, created_at FROM projects
		 WHERE owner_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "project list")
	}
	defer rows.Close()

	out := []*projmodel.Project{}
	for rows.Next() {
		p := &projmodel.Project{}
		if err := rows.Scan(&p.ID, &p.Name, &p.OwnerID, &p.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "project scan")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ProjectOwner returns who owns the project, errs.ErrNotFound if absent.
func (s *Store) ProjectOwner(ctx context.Context, projectID int64) (int64, error) {
	var ownerID int64
	err := s.pool.QueryRow(ctx,
		`SELECT owner_id FROM projects WHERE id = $1`, projectID).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, errs.ErrNotFound
	}
	if err != nil {
		return 0, errors.Wrap(err, "project owner")
	}
	return ownerID, nil
}

func (s *Store) CreateFile(ctx context.Context, name, content string, projectID int64) (*projmodel.File, error) {
	f := &projmodel.File{Name: name, Content: content, ProjectID: projectID}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO files (name, content, project_id)
		 VALUES ($1, $2, $3) RETURNING id, updated_at`,
		name, content, projectID,
	).Scan(&f.ID, &f.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "file create")
	}
	return f, nil
}

// GetFile returns the file together with the owning project's owner, so
// the service can do the access check with one query.
func (s *Store) GetFile(ctx context.Context, fileID int64) (*projmodel.File, int64, error) {
	f := &projmodel.File{}
	var ownerID int64
	err := s.pool.QueryRow(ctx,
		`SELECT f.id, f.name, f.content, f.project_id, f.updated_at, p.owner_id
		 FROM files f JOIN projects p ON p.id = f.project_id
		 WHERE f.id = $1`, fileID,
	).Scan(&f.ID, &f.Name, &f.Content, &f.ProjectID, &f.UpdatedAt, &ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, errs.ErrNotFound
	}
	if err != nil {
		return nil, 0, errors.Wrap(err, "file get")
	}
	return f, ownerID, nil
}

func (s *Store) UpdateFileContent(ctx context.Context, fileID int64, content string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE files SET content = $2, updated_at = now() WHERE id = $1`,
		fileID, content)
	if err != nil {
		return errors.Wrap(err, "file update")
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
