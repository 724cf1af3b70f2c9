package page

import (
	"context"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/pagebuilder/core"
	"github.com/trezcool/pagebuilder/core/layout"
)

type Page struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Title           string         `json:"title"`
	Layout          layout.Layout  `json:"layout"`
	Version         int            `json:"version"`
	PublishedLayout *layout.Layout `json:"published_layout,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`             // UTC
	UpdatedAt       time.Time      `json:"updated_at"`             // UTC
	PublishedAt     *time.Time     `json:"published_at,omitempty"` // UTC
}

// ETag is the opaque version token handed to HTTP clients.
func (p Page) ETag() string {
	return `"` + strconv.Itoa(p.Version) + `"`
}

func (p Page) IsPublished() bool {
	return p.PublishedAt != nil
}

// ParseETag reads a version back from an ETag or If-Match header value.
func ParseETag(tag string) (int, error) {
	tag = core.CleanString(tag)
	if len(tag) > 2 && tag[0] == '"' && tag[len(tag)-1] == '"' {
		tag = tag[1 : len(tag)-1]
	}
	v, err := strconv.Atoi(tag)
	if err != nil || v < 1 {
		return 0, errors.Errorf("invalid version tag %q", tag)
	}
	return v, nil
}

// NewPage contains information needed to create a new Page.
type NewPage struct {
	Name  string `json:"name" validate:"required,max=100,slug"`
	Title string `json:"title" validate:"max=255"`
}

func (np *NewPage) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	np.Name = core.CleanString(np.Name, true /* lower */)
	np.Title = core.CleanString(np.Title)

	if err := validate.Struct(np); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, np.Name)
}

// SaveLayout replaces the whole layout of a page.
// Version must match the stored one: saves based on a stale copy are rejected.
type SaveLayout struct {
	Title   *string       `json:"title" validate:"omitempty,max=255"`
	Layout  layout.Layout `json:"layout"`
	Version int           `json:"version" validate:"required,min=1"`
}

func (sl *SaveLayout) Validate(validate *validator.Validate) error {
	if sl.Title != nil {
		title := core.CleanString(*sl.Title)
		sl.Title = &title
	}
	if err := validate.Struct(sl); err != nil {
		return err
	}
	return layout.Validate(sl.Layout)
}

type QueryFilter struct {
	Search    string `query:"search"`
	Published *bool  `query:"-"` // nil: any
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Published == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// OrderingFields are the fields pages may be ordered by.
var OrderingFields = []string{"name", "title", "version", "created_at", "updated_at", "published_at"}
