package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exammode/internal/model"
)

// UserProfileRepository handles user profile data access.
type UserProfileRepository struct {
	pool *pgxpool.Pool
}

// NewUserProfileRepository creates a new UserProfileRepository.
func NewUserProfileRepository(pool *pgxpool.Pool) *UserProfileRepository {
	return &UserProfileRepository{pool: pool}
}

// GetByID retrieves a profile by ID.
func (r *UserProfileRepository) GetByID(ctx context.Context, id int) (*model.UserProfile, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

// GetByEmail retrieves a profile by its unique email.
func (r *UserProfileRepository) GetByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	return r.getOne(ctx, `WHERE email = $1`, email)
}

// Create inserts a new profile. PasswordHash must already be hashed.
func (r *UserProfileRepository) Create(ctx context.Context, p *model.UserProfile) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO user_profiles (email, name, password_hash, role, is_external)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		p.Email, p.Name, p.PasswordHash, p.Role, p.IsExternal,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *UserProfileRepository) getOne(ctx context.Context, where string, arg any) (*model.UserProfile, error) {
	p := &model.UserProfile{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, role, is_external, created_at
		 FROM user_profiles `+where, arg,
	).Scan(&p.ID, &p.Email, &p.Name, &p.PasswordHash, &p.Role, &p.IsExternal, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}
