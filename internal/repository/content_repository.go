package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exammode/internal/model"
)

// ContentRepository resolves exam modules to their entry learning object.
type ContentRepository struct {
	pool    *pgxpool.Pool
	baseURL string
}

// NewContentRepository creates a new ContentRepository. baseURL has no trailing slash.
func NewContentRepository(pool *pgxpool.Pool, baseURL string) *ContentRepository {
	return &ContentRepository{pool: pool, baseURL: baseURL}
}

// FirstLearningObject returns the first learning object of a module, or nil
// if the module has no content yet.
func (r *ContentRepository) FirstLearningObject(ctx context.Context, moduleID int) (*model.ContentRef, error) {
	ref := &model.ContentRef{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, module_id, order_num, slug
		 FROM learning_objects
		 WHERE module_id = $1
		 ORDER BY order_num, id
		 LIMIT 1`, moduleID,
	).Scan(&ref.ID, &ref.ModuleID, &ref.OrderNum, &ref.Slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ref, nil
}

// URLFor builds the exam-mode URL of a learning object.
func (r *ContentRepository) URLFor(ref model.ContentRef) string {
	return ExamContentURL(r.baseURL, ref)
}

// ExamContentURL joins the content base URL with the exam path of ref.
func ExamContentURL(baseURL string, ref model.ContentRef) string {
	return fmt.Sprintf("%s/modules/%d/exam/%s/", baseURL, ref.ModuleID, url.PathEscape(ref.Slug))
}
