package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/pagebuilder/core"
	"github.com/trezcool/pagebuilder/core/page"
)

type pageRepository struct {
	db *pageTable
}

var _ page.Repository = (*pageRepository)(nil) // interface compliance check

func NewPageRepository(db *DB) *pageRepository {
	return &pageRepository{db: db.page}
}

// copyPage detaches a page from the table so callers never alias stored state.
func copyPage(p page.Page) page.Page {
	p.Layout = p.Layout.Clone()
	if p.PublishedLayout != nil {
		pl := p.PublishedLayout.Clone()
		p.PublishedLayout = &pl
	}
	if p.PublishedAt != nil {
		at := *p.PublishedAt
		p.PublishedAt = &at
	}
	return p
}

func (repo *pageRepository) CheckNameUniqueness(_ context.Context, name string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if _, ok := repo.db.table[name]; ok {
		return page.ErrNameExists
	}
	return nil
}

func (repo *pageRepository) CreatePage(_ context.Context, p page.Page) (page.Page, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[p.Name]; ok {
		return page.Page{}, page.ErrNameExists
	}
	if p.Version == 0 {
		p.Version = 1
	}
	stored := copyPage(p)
	repo.db.table[p.Name] = &stored
	return copyPage(stored), nil
}

func (repo *pageRepository) GetPage(_ context.Context, name string) (page.Page, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[name]; ok {
		return copyPage(*p), nil
	}
	return page.Page{}, page.ErrNotFound
}

func (repo *pageRepository) QueryPages(_ context.Context, filter *page.QueryFilter, ordering []core.DBOrdering) ([]page.Page, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	pages := make([]page.Page, 0, len(repo.db.table))
	for _, p := range repo.db.table {
		if filter != nil {
			// pages with Name or Title matching the search keyword
			if filter.Search != "" {
				search := strings.ToLower(filter.Search)
				if !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(strings.ToLower(p.Title), search) {
					continue
				}
			}
			if filter.Published != nil && p.IsPublished() != *filter.Published {
				continue
			}
		}
		pages = append(pages, copyPage(*p))
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	sort.SliceStable(pages, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareField(pages[i], pages[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
	return pages, nil
}

func (repo *pageRepository) UpdatePage(_ context.Context, p page.Page, expectedVersion int) (page.Page, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[p.Name]
	if !ok {
		return page.Page{}, page.ErrNotFound
	}
	if orig.Version != expectedVersion {
		return page.Page{}, page.ErrConflict
	}

	p.ID = orig.ID
	p.CreatedAt = orig.CreatedAt
	p.Version = orig.Version + 1
	stored := copyPage(p)
	repo.db.table[p.Name] = &stored
	return copyPage(stored), nil
}

func (repo *pageRepository) DeletePagesByName(_ context.Context, names []string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, name := range names {
		if _, ok := repo.db.table[name]; ok {
			delete(repo.db.table, name)
			cnt++
		}
	}
	return cnt, nil
}

func compareField(a, b page.Page, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "version":
		return a.Version - b.Version
	case "created_at":
		return compareTime(a.CreatedAt, b.CreatedAt)
	case "updated_at":
		return compareTime(a.UpdatedAt, b.UpdatedAt)
	case "published_at":
		var at, bt time.Time
		if a.PublishedAt != nil {
			at = *a.PublishedAt
		}
		if b.PublishedAt != nil {
			bt = *b.PublishedAt
		}
		return compareTime(at, bt)
	}
	return 0
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
