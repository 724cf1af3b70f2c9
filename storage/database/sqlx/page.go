package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/pagebuilder/core"
	"github.com/trezcool/pagebuilder/core/layout"
	"github.com/trezcool/pagebuilder/core/page"
)

const pageColumns = "id, name, title, layout, version, published_layout, created_at, updated_at, published_at"

// pageRow is a row of the page table. Layouts are stored as JSON text.
type pageRow struct {
	ID              string      `db:"id"`
	Name            string      `db:"name"`
	Title           string      `db:"title"`
	Layout          string      `db:"layout"`
	Version         int         `db:"version"`
	PublishedLayout null.String `db:"published_layout"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
	PublishedAt     null.Time   `db:"published_at"`
}

type pageRepository struct {
	exec core.DBExecutor
}

var _ page.Repository = (*pageRepository)(nil) // interface compliance check

func NewPageRepository(exec core.DBExecutor) *pageRepository {
	return &pageRepository{exec: exec}
}

func (repo pageRepository) toRow(p page.Page) (pageRow, error) {
	lyt, err := json.Marshal(layout.Normalize(p.Layout))
	if err != nil {
		return pageRow{}, errors.Wrap(err, "encoding layout")
	}
	row := pageRow{
		ID:          p.ID,
		Name:        p.Name,
		Title:       p.Title,
		Layout:      string(lyt),
		Version:     p.Version,
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
		PublishedAt: null.TimeFromPtr(p.PublishedAt),
	}
	if row.PublishedAt.Valid {
		row.PublishedAt.Time = row.PublishedAt.Time.UTC()
	}
	if p.PublishedLayout != nil {
		pub, err := json.Marshal(layout.Normalize(*p.PublishedLayout))
		if err != nil {
			return pageRow{}, errors.Wrap(err, "encoding published layout")
		}
		row.PublishedLayout = null.StringFrom(string(pub))
	}
	return row, nil
}

func (repo pageRepository) fromRow(row pageRow) (page.Page, error) {
	p := page.Page{
		ID:        row.ID,
		Name:      row.Name,
		Title:     row.Title,
		Version:   row.Version,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(row.Layout), &p.Layout); err != nil {
		return page.Page{}, errors.Wrapf(err, "decoding layout of page %q", row.Name)
	}
	p.Layout = layout.Normalize(p.Layout)
	if row.PublishedLayout.Valid {
		var pub layout.Layout
		if err := json.Unmarshal([]byte(row.PublishedLayout.String), &pub); err != nil {
			return page.Page{}, errors.Wrapf(err, "decoding published layout of page %q", row.Name)
		}
		pub = layout.Normalize(pub)
		p.PublishedLayout = &pub
	}
	if row.PublishedAt.Valid {
		at := row.PublishedAt.Time.UTC()
		p.PublishedAt = &at
	}
	return p, nil
}

// trapNoRowsErr maps the "no rows" err to page.ErrNotFound
func (repo pageRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return page.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo pageRepository) CheckNameUniqueness(ctx context.Context, name string) error {
	var cnt int
	q := repo.exec.Rebind("SELECT COUNT(*) FROM page WHERE name = ?")
	if err := sqlx.GetContext(ctx, repo.exec, &cnt, q, name); err != nil {
		return errors.Wrap(err, "checking page uniqueness")
	}
	if cnt > 0 {
		return page.ErrNameExists
	}
	return nil
}

func (repo pageRepository) CreatePage(ctx context.Context, p page.Page) (page.Page, error) {
	if err := repo.CheckNameUniqueness(ctx, p.Name); err != nil {
		return page.Page{}, err
	}
	if p.Version == 0 {
		p.Version = 1
	}
	row, err := repo.toRow(p)
	if err != nil {
		return page.Page{}, err
	}

	q := repo.exec.Rebind(`INSERT INTO page (` + pageColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = repo.exec.ExecContext(ctx, q,
		row.ID, row.Name, row.Title, row.Layout, row.Version,
		row.PublishedLayout, row.CreatedAt, row.UpdatedAt, row.PublishedAt)
	if err != nil {
		return page.Page{}, errors.Wrap(err, "inserting page")
	}
	return repo.GetPage(ctx, p.Name)
}

func (repo pageRepository) GetPage(ctx context.Context, name string) (page.Page, error) {
	var row pageRow
	q := repo.exec.Rebind("SELECT " + pageColumns + " FROM page WHERE name = ?")
	if err := sqlx.GetContext(ctx, repo.exec, &row, q, name); err != nil {
		return page.Page{}, repo.trapNoRowsErr(err, "finding page by name")
	}
	return repo.fromRow(row)
}

func (repo pageRepository) QueryPages(ctx context.Context, filter *page.QueryFilter, ordering []core.DBOrdering) ([]page.Page, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		// pages with Name or Title matching the search keyword
		if filter.Search != "" {
			val := "%" + strings.ToLower(filter.Search) + "%"
			where = append(where, "(LOWER(name) LIKE ? OR LOWER(title) LIKE ?)")
			args = append(args, val, val)
		}
		if filter.Published != nil {
			if *filter.Published {
				where = append(where, "published_at IS NOT NULL")
			} else {
				where = append(where, "published_at IS NULL")
			}
		}
	}

	q := "SELECT " + pageColumns + " FROM page"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}

	ordering = core.AllowedOrderings(ordering, page.OrderingFields...)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	q += " ORDER BY " + strings.Join(orderList, ", ")

	var rows []pageRow
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, repo.exec.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying pages")
	}
	pages := make([]page.Page, 0, len(rows))
	for _, row := range rows {
		p, err := repo.fromRow(row)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, nil
}

func (repo pageRepository) UpdatePage(ctx context.Context, p page.Page, expectedVersion int) (page.Page, error) {
	row, err := repo.toRow(p)
	if err != nil {
		return page.Page{}, err
	}

	q := repo.exec.Rebind(`UPDATE page
		SET title = ?, layout = ?, version = version + 1, published_layout = ?, updated_at = ?, published_at = ?
		WHERE name = ? AND version = ?`)
	res, err := repo.exec.ExecContext(ctx, q,
		row.Title, row.Layout, row.PublishedLayout, row.UpdatedAt, row.PublishedAt,
		row.Name, expectedVersion)
	if err != nil {
		return page.Page{}, errors.Wrap(err, "updating page")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return page.Page{}, errors.Wrap(err, "updating page")
	}
	if n == 0 {
		// either the page is gone or someone saved it first
		if _, err = repo.GetPage(ctx, p.Name); err != nil {
			return page.Page{}, err
		}
		return page.Page{}, page.ErrConflict
	}
	return repo.GetPage(ctx, p.Name)
}

func (repo pageRepository) DeletePagesByName(ctx context.Context, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In("DELETE FROM page WHERE name IN (?)", names)
	if err != nil {
		return 0, errors.Wrap(err, "deleting pages")
	}
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind(q), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting pages")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting pages")
	}
	return int(n), nil
}
