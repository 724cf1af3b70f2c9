package page

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/pagebuilder/core"
	"github.com/trezcool/pagebuilder/core/layout"
)

var (
	NowFunc = time.Now // mockable

	// number of times an unpinned action is re-applied on fresh state after a conflicting save
	maxApplyAttempts = 3

	// errors
	ErrNotFound   = errors.New("page not found")
	ErrNameExists = errors.New("a page with this name already exists")
	ErrConflict   = errors.New("page has been modified since it was loaded")
)

type (
	Repository interface {
		CheckNameUniqueness(ctx context.Context, name string) error
		CreatePage(ctx context.Context, p Page) (Page, error)
		GetPage(ctx context.Context, name string) (Page, error)
		QueryPages(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Page, error)
		// UpdatePage saves p only if the stored version still is expectedVersion, and bumps it.
		// It returns ErrConflict otherwise.
		UpdatePage(ctx context.Context, p Page, expectedVersion int) (Page, error)
		DeletePagesByName(ctx context.Context, names []string) (int, error)
	}

	// Invalidator is implemented by repositories serving reads from a cache.
	Invalidator interface {
		InvalidatePage(ctx context.Context, name string)
	}

	Service interface {
		CheckUniqueness(ctx context.Context, name string) error
		Create(ctx context.Context, np NewPage) (Page, error)
		Get(ctx context.Context, name string) (Page, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Page, error)
		SaveLayout(ctx context.Context, name string, sl SaveLayout) (Page, error)
		// Apply loads the page, reduces the action over its layout and saves the result when it changed.
		// version pins the page version the action was computed against; 0 applies it on the latest one.
		Apply(ctx context.Context, name string, action layout.Action, version int) (Page, layout.Result, error)
		Publish(ctx context.Context, name string) (Page, error)
		Delete(ctx context.Context, names ...string) (int, error)
	}

	service struct {
		repo    Repository
		logger  core.Logger
		metrics *Metrics
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, logger core.Logger, metrics *Metrics) Service {
	return &service{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
	}
}

func (svc *service) CheckUniqueness(ctx context.Context, name string) error {
	if err := svc.repo.CheckNameUniqueness(ctx, name); err != nil {
		if errors.Cause(err) == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return errors.Wrap(err, "checking page name uniqueness")
	}
	return nil
}

func (svc *service) Create(ctx context.Context, np NewPage) (Page, error) {
	now := NowFunc().UTC()
	title := np.Title
	if title == "" {
		title = np.Name
	}
	p := Page{
		ID:        uuid.New().String(),
		Name:      np.Name,
		Title:     title,
		Layout:    layout.EnsureSections(layout.Layout{}),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p, err := svc.repo.CreatePage(ctx, p)
	if err != nil {
		return Page{}, errors.Wrap(err, "creating page")
	}
	return p, nil
}

func (svc *service) Get(ctx context.Context, name string) (Page, error) {
	p, err := svc.repo.GetPage(ctx, core.CleanString(name, true /* lower */))
	if err != nil {
		return Page{}, errors.Wrap(err, "loading page")
	}
	return p, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Page, error) {
	pages, err := svc.repo.QueryPages(ctx, filter, core.AllowedOrderings(ordering, OrderingFields...))
	if err != nil {
		return nil, errors.Wrap(err, "querying pages")
	}
	return pages, nil
}

func (svc *service) SaveLayout(ctx context.Context, name string, sl SaveLayout) (Page, error) {
	p, err := svc.getVersion(ctx, name, sl.Version)
	if err != nil {
		return Page{}, err
	}

	p.Layout = layout.Normalize(sl.Layout)
	if sl.Title != nil && *sl.Title != "" {
		p.Title = *sl.Title
	}
	p.UpdatedAt = NowFunc().UTC()

	p, err = svc.update(ctx, p, sl.Version)
	if err != nil {
		return Page{}, errors.Wrap(err, "saving layout")
	}
	return p, nil
}

func (svc *service) Apply(ctx context.Context, name string, action layout.Action, version int) (Page, layout.Result, error) {
	for attempt := 1; ; attempt++ {
		var p Page
		var err error
		if version > 0 {
			p, err = svc.getVersion(ctx, name, version)
		} else {
			p, err = svc.Get(ctx, name)
		}
		if err != nil {
			return Page{}, layout.Result{}, err
		}

		res := layout.Reduce(p.Layout, action)
		svc.metrics.observeAction(action, res.Outcome)
		if res.Outcome.IsNoOp() {
			return p, res, nil
		}

		p.Layout = res.Layout
		p.UpdatedAt = NowFunc().UTC()
		saved, err := svc.update(ctx, p, p.Version)
		if err != nil {
			if errors.Cause(err) == ErrConflict && version == 0 && attempt < maxApplyAttempts {
				svc.logger.Warn(fmt.Sprintf("page %q changed while applying %s, retrying (%d)", name, action.Name(), attempt))
				continue
			}
			return Page{}, layout.Result{}, errors.Wrapf(err, "applying %s", action.Name())
		}
		res.Layout = saved.Layout
		return saved, res, nil
	}
}

func (svc *service) Publish(ctx context.Context, name string) (Page, error) {
	p, err := svc.Get(ctx, name)
	if err != nil {
		return Page{}, err
	}

	now := NowFunc().UTC()
	published := p.Layout.Clone()
	p.PublishedLayout = &published
	p.PublishedAt = &now
	p.UpdatedAt = now

	p, err = svc.update(ctx, p, p.Version)
	if err != nil {
		return Page{}, errors.Wrap(err, "publishing page")
	}
	svc.logger.Info(fmt.Sprintf("page %q published at version %d", p.Name, p.Version))
	return p, nil
}

func (svc *service) Delete(ctx context.Context, names ...string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		cleaned = append(cleaned, core.CleanString(name, true /* lower */))
	}
	n, err := svc.repo.DeletePagesByName(ctx, cleaned)
	if err != nil {
		return 0, errors.Wrap(err, "deleting pages")
	}
	return n, nil
}

// getVersion loads the page and checks that it still is at version.
// A loaded version older than the caller's one can only come from a stale cache:
// the cached copy is dropped and the page loaded again.
func (svc *service) getVersion(ctx context.Context, name string, version int) (Page, error) {
	p, err := svc.Get(ctx, name)
	if err != nil {
		return Page{}, err
	}
	if inv, ok := svc.repo.(Invalidator); ok && p.Version < version {
		svc.logger.Warn(fmt.Sprintf("page %q: loaded version %d is older than %d, reloading", p.Name, p.Version, version))
		inv.InvalidatePage(ctx, p.Name)
		if p, err = svc.Get(ctx, name); err != nil {
			return Page{}, err
		}
	}
	if p.Version != version {
		svc.metrics.observeSave(saveConflict)
		return Page{}, ErrConflict
	}
	return p, nil
}

func (svc *service) update(ctx context.Context, p Page, expectedVersion int) (Page, error) {
	saved, err := svc.repo.UpdatePage(ctx, p, expectedVersion)
	switch {
	case err == nil:
		svc.metrics.observeSave(saveOK)
	case errors.Cause(err) == ErrConflict:
		svc.metrics.observeSave(saveConflict)
	default:
		svc.metrics.observeSave(saveError)
	}
	return saved, err
}
