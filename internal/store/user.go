// Package store provides database access methods for all nextgen
// entities. Each store struct wraps a *sql.DB and exposes typed query
// methods; PostgreSQL errors are translated into the sentinels in models.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavuchara/nextgen/internal/models"
)

// UserStore handles users and their profiles.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore with the given database connection.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `u.id, u.username, u.email, u.first_name, u.last_name,
	u.password_hash, u.is_staff, u.created_at, u.updated_at`

func scanUser(scanner interface{ Scan(...any) error }, extra ...any) (*models.User, error) {
	var u models.User
	dest := []any{
		&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.IsStaff, &u.CreatedAt, &u.UpdatedAt,
	}
	if err := scanner.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user with a bcrypt-hashed password together with its
// profile. A taken username fails with models.ErrDuplicate, a taken
// profile slug with ErrDuplicateSlug.
func (s *UserStore) Create(ctx context.Context, u *models.User, password, profileSlug string) (*models.User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	var created *models.User
	err = withTx(ctx, s.db, "create user", func(tx *sql.Tx) error {
		created, err = insertUser(ctx, tx, u, hash, profileSlug)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// insertUser writes the user row and its profile inside tx.
func insertUser(ctx context.Context, tx *sql.Tx, u *models.User, hash, profileSlug string) (*models.User, error) {
	row := tx.QueryRowContext(ctx, `
		INSERT INTO users AS u (username, email, first_name, last_name, password_hash, is_staff)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		u.Username, u.Email, u.FirstName, u.LastName, hash, u.IsStaff,
	)
	created, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (user_id, slug, avatar) VALUES ($1, $2, $3)
	`, created.ID, profileSlug, models.DefaultAvatar)
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return created, nil
}

// FindByID retrieves a user by their UUID.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", notFound(err, "user"))
	}
	return u, nil
}

const profileQuery = `SELECT ` + userColumns + `, pr.slug, pr.avatar, pr.bio
	FROM profiles pr JOIN users u ON u.id = pr.user_id`

func scanProfile(row *sql.Row) (*models.Profile, error) {
	var p models.Profile
	u, err := scanUser(row, &p.Slug, &p.Avatar, &p.Bio)
	if err != nil {
		return nil, err
	}
	p.UserID = u.ID
	p.User = u
	return &p, nil
}

// FindProfileBySlug retrieves a profile, with its user, by profile slug.
func (s *UserStore) FindProfileBySlug(ctx context.Context, slug string) (*models.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx, profileQuery+` WHERE pr.slug = $1`, slug))
	if err != nil {
		return nil, fmt.Errorf("find profile by slug: %w", notFound(err, "profile"))
	}
	return p, nil
}

// FindProfile retrieves the profile of a user.
func (s *UserStore) FindProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx, profileQuery+` WHERE pr.user_id = $1`, userID))
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", notFound(err, "profile"))
	}
	return p, nil
}

// UpdateProfile saves the user's names and email together with the
// profile's avatar and bio in one transaction. The profile slug is never
// rewritten. It returns the avatar the profile had before the update.
func (s *UserStore) UpdateProfile(ctx context.Context, u *models.User, p *models.Profile) (string, error) {
	var previous string
	err := withTx(ctx, s.db, "update profile", func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT avatar FROM profiles WHERE user_id = $1 FOR UPDATE`, u.ID,
		).Scan(&previous)
		if err != nil {
			return notFound(err, "profile")
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET email = $1, first_name = $2, last_name = $3, updated_at = NOW()
			WHERE id = $4
		`, u.Email, u.FirstName, u.LastName, u.ID); err != nil {
			return fmt.Errorf("update user: %w", err)
		}

		avatar := p.Avatar
		if avatar == "" {
			avatar = models.DefaultAvatar
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE profiles SET avatar = $1, bio = $2 WHERE user_id = $3
		`, avatar, p.Bio, u.ID); err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("update profile: %w", err)
	}
	return previous, nil
}

// Delete removes a user by ID. Users who still author posts cannot be
// removed (models.ErrReferenced).
func (s *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", mapError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete user %s: %w", id, models.ErrNotFound)
	}
	return nil
}
