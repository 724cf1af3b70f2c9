package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pagebuilder/core"
	"github.com/trezcool/pagebuilder/core/layout"
	"github.com/trezcool/pagebuilder/core/page"
)

func createPage(t *testing.T, repo page.Repository, name, title string, createdAt time.Time) page.Page {
	p, err := repo.CreatePage(context.Background(), page.Page{
		ID:        name + "-id",
		Name:      name,
		Title:     title,
		Layout:    layout.EnsureSections(layout.Layout{}),
		Version:   1,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	})
	require.NoError(t, err)
	return p
}

func TestPageRepository_CreatePage(t *testing.T) {
	ctx := context.Background()
	repo := NewPageRepository(Open())
	createPage(t, repo, "home", "Home", time.Now())

	_, err := repo.CreatePage(ctx, page.Page{Name: "home"})
	assert.Equal(t, page.ErrNameExists, err)
	assert.Equal(t, page.ErrNameExists, repo.CheckNameUniqueness(ctx, "home"))
	assert.NoError(t, repo.CheckNameUniqueness(ctx, "about"))
}

func TestPageRepository_GetPage(t *testing.T) {
	ctx := context.Background()
	repo := NewPageRepository(Open())
	created := createPage(t, repo, "home", "Home", time.Now())

	got, err := repo.GetPage(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, created, got)

	// mutating the returned copy must not leak into the table
	got.Layout.Sections[0].Type = "mutated"
	again, _ := repo.GetPage(ctx, "home")
	assert.Equal(t, layout.SectionHeader, again.Layout.Sections[0].Type)

	_, err = repo.GetPage(ctx, "nope")
	assert.Equal(t, page.ErrNotFound, err)
}

func TestPageRepository_UpdatePage(t *testing.T) {
	ctx := context.Background()
	repo := NewPageRepository(Open())
	p := createPage(t, repo, "home", "Home", time.Now())

	p.Title = "Accueil"
	saved, err := repo.UpdatePage(ctx, p, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Version)
	assert.Equal(t, "Accueil", saved.Title)
	assert.Equal(t, p.CreatedAt, saved.CreatedAt)

	// stale version
	p.Title = "Stale"
	_, err = repo.UpdatePage(ctx, p, 1)
	assert.Equal(t, page.ErrConflict, err)
	got, _ := repo.GetPage(ctx, "home")
	assert.Equal(t, "Accueil", got.Title)

	_, err = repo.UpdatePage(ctx, page.Page{Name: "nope"}, 1)
	assert.Equal(t, page.ErrNotFound, err)
}

func TestPageRepository_QueryPages(t *testing.T) {
	ctx := context.Background()
	repo := NewPageRepository(Open())
	now := time.Now().UTC()
	home := createPage(t, repo, "home", "Accueil", now.Add(-2*time.Hour))
	about := createPage(t, repo, "about", "A propos", now.Add(-time.Hour))
	courses := createPage(t, repo, "courses", "Nos cours", now)

	courses.PublishedAt = &now
	courses, err := repo.UpdatePage(ctx, courses, courses.Version)
	require.NoError(t, err)

	yes, no := true, false
	tests := []struct {
		name     string
		filter   *page.QueryFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "all, default ordering", want: []string{about.Name, courses.Name, home.Name}},
		{name: "search name", filter: &page.QueryFilter{Search: "HOM"}, want: []string{home.Name}},
		{name: "search title", filter: &page.QueryFilter{Search: "cours"}, want: []string{courses.Name}},
		{name: "published", filter: &page.QueryFilter{Published: &yes}, want: []string{courses.Name}},
		{name: "unpublished", filter: &page.QueryFilter{Published: &no}, want: []string{about.Name, home.Name}},
		{
			name:     "created_at desc",
			ordering: []core.DBOrdering{{Field: "created_at"}},
			want:     []string{courses.Name, about.Name, home.Name},
		},
		{
			name:     "version desc, then name",
			ordering: []core.DBOrdering{{Field: "version"}, {Field: "name", Ascending: true}},
			want:     []string{courses.Name, about.Name, home.Name},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, err := repo.QueryPages(ctx, tt.filter, tt.ordering)
			require.NoError(t, err)
			names := make([]string, 0, len(pages))
			for _, p := range pages {
				names = append(names, p.Name)
			}
			if !assert.Equal(t, tt.want, names) {
				t.Errorf("QueryPages() = %v; want %v", names, tt.want)
			}
		})
	}
}

func TestPageRepository_DeletePagesByName(t *testing.T) {
	ctx := context.Background()
	repo := NewPageRepository(Open())
	createPage(t, repo, "home", "Home", time.Now())
	createPage(t, repo, "about", "About", time.Now())

	n, err := repo.DeletePagesByName(ctx, []string{"home", "nope"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = repo.GetPage(ctx, "home")
	assert.Equal(t, page.ErrNotFound, err)
	_, err = repo.GetPage(ctx, "about")
	assert.NoError(t, err)
}
