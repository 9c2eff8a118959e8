// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/pavuchara/nextgen/internal/database"
	"github.com/pavuchara/nextgen/internal/models"
	"github.com/pavuchara/nextgen/internal/slug"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "nextgen")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "nextgen")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := testDSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	// Run migrations to ensure the schema is current.
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Downgrade goose global state.
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// unique returns s with a random suffix so concurrent test runs against
// the same database do not collide on unique columns.
func unique(s string) string {
	return s + "-" + slug.Suffix()
}

// newUser creates a throwaway user and removes it when the test ends.
// Register it before anything the user authors so cleanup runs in the
// right order.
func newUser(t *testing.T, db *sql.DB) *models.User {
	t.Helper()
	s := NewUserStore(db)
	name := unique("store-test")
	u, err := s.Create(context.Background(), &models.User{Username: name, Email: name + "@store-test.local"}, "pass", name)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() { s.Delete(context.Background(), u.ID) })
	return u
}

// newCategory creates a category and removes its subtree when the test
// ends.
func newCategory(t *testing.T, db *sql.DB, title string, parent *models.Category) *models.Category {
	t.Helper()
	s := NewCategoryStore(db)
	c := &models.Category{Title: title, Slug: unique(slug.Generate(title))}
	if parent != nil {
		c.ParentID = &parent.ID
	}
	created, err := s.Create(context.Background(), c)
	if err != nil {
		t.Fatalf("create category %q: %v", title, err)
	}
	t.Cleanup(func() { s.Delete(context.Background(), created.ID, true) })
	return created
}

// newPost creates a post and removes it when the test ends.
func newPost(t *testing.T, db *sql.DB, author *models.User, category *models.Category, status models.PostStatus, tags ...string) *models.Post {
	t.Helper()
	s := NewPostStore(db)
	p, err := s.Create(context.Background(), &models.Post{
		Title:      "Store test post",
		Slug:       unique("store-test-post"),
		Body:       "body",
		CategoryID: category.ID,
		Status:     status,
		AuthorID:   author.ID,
		Tags:       tags,
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	t.Cleanup(func() { s.Delete(context.Background(), p.ID) })
	return p
}
