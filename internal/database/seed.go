package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Seed username and password for development databases.
const (
	seedUsername = "admin"
	seedPassword = "admin"
)

// Seed populates the database with initial development data.
// It creates a staff user with a profile if no users exist yet.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRow(`
		INSERT INTO users (username, email, first_name, password_hash, is_staff)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id
	`, seedUsername, "admin@nextgen.local", "Admin", string(hash)).Scan(&id)
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO profiles (user_id, slug) VALUES ($1, $2)`, id, seedUsername); err != nil {
		return fmt.Errorf("seed insert profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with default staff user",
		"username", seedUsername,
		"password", seedPassword,
	)

	return nil
}
