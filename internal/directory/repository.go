package directory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ListFilter pages and narrows a directory listing.
type ListFilter struct {
	Kind   string
	Search string
	Page   int
	Limit  int
}

// Repository reads the mirrored user directory.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	List(ctx context.Context, f ListFilter) ([]User, int64, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed directory repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create mirrors an externally created account into the directory.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	id, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, email, kind, created_at)
        VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
		id, user.Email, user.Kind, user.CreatedAt.UTC())
	return err
}

// FindByID fetches a single directory record.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, email, kind, created_at FROM users WHERE id = $1`, userID)
	var u User
	var uid uuid.UUID
	var createdAt time.Time
	if err := row.Scan(&uid, &u.Email, &u.Kind, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.ID = uid.String()
	u.CreatedAt = createdAt.UTC()
	return u, nil
}

// List returns a page of accounts plus the total match count. Search does a
// case-insensitive substring match on email.
func (r *PostgresRepository) List(ctx context.Context, f ListFilter) ([]User, int64, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	pattern := "%" + f.Search + "%"

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE kind = $1 AND email ILIKE $2`,
		f.Kind, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `SELECT id, email, kind, created_at FROM users
        WHERE kind = $1 AND email ILIKE $2
        ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		f.Kind, pattern, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		var uid uuid.UUID
		var createdAt time.Time
		if err := rows.Scan(&uid, &u.Email, &u.Kind, &createdAt); err != nil {
			return nil, 0, err
		}
		u.ID = uid.String()
		u.CreatedAt = createdAt.UTC()
		out = append(out, u)
	}
	return out, total, rows.Err()
}
