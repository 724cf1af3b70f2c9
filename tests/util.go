package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/pagebuilder/core/layout"
	"github.com/trezcool/pagebuilder/core/page"
	"github.com/trezcool/pagebuilder/storage/database"
)

// PrepareDB opens a migrated in-memory sqlite database, closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenSQLite(database.MemoryPath)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, database.EngineSQLite); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// CreatePage stores a page with the default sections plus one component per given type in the body.
func CreatePage(t *testing.T, repo page.Repository, name, title string, componentTypes ...string) page.Page {
	t.Helper()
	lyt := layout.EnsureSections(layout.Layout{})
	for _, typ := range componentTypes {
		lyt, _ = layout.AddComponent(lyt, layout.SectionBody, typ)
	}
	tstamp := time.Now().UTC().Truncate(time.Second)
	p, err := repo.CreatePage(context.Background(), page.Page{
		ID:        uuid.New().String(),
		Name:      name,
		Title:     title,
		Layout:    lyt,
		Version:   1,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreatePage() failed: %v", err)
	}
	return p
}
