package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pagebuilder/core"
	"github.com/trezcool/pagebuilder/core/layout"
	"github.com/trezcool/pagebuilder/core/page"
)

var errPageNotFoundInCtx = errors.New("page object not found in echo.Context")

type pageApi struct {
	svc      page.Service
	validate *validator.Validate
}

func registerPageAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	throttle echo.MiddlewareFunc,
	svc page.Service,
	validate *validator.Validate,
) {
	api := pageApi{
		svc:      svc,
		validate: validate,
	}

	pg := g.Group("/pages", jwt)
	pg.GET("", api.query)
	pg.POST("", api.create, editorMiddleware(), throttle)
	pg.DELETE("", api.destroyMultiple, adminMiddleware())

	// detail endpoints
	dg := pg.Group("/:name")
	dg.GET("", api.retrieve, pageMiddleware(svc))
	dg.PUT("", api.update, editorMiddleware(), throttle)
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.POST("/publish", api.publish, editorMiddleware(), throttle)

	// layout edition
	cg := dg.Group("/components", editorMiddleware(), throttle)
	cg.POST("", api.addComponent)
	cg.PATCH("/:id", api.patchComponent)
	cg.POST("/:id/move", api.moveComponent)
	cg.DELETE("/:id", api.removeComponent)
}

func registerPublishedAPI(g *echo.Group, svc page.Service) {
	api := pageApi{svc: svc}
	g.GET("/:name", api.retrievePublished)
}

// Handlers

func (api *pageApi) create(ctx echo.Context) error {
	var data page.NewPage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPage")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	p, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating page")
	}

	ctx.Response().Header().Set(headerETag, p.ETag())
	return ctx.JSON(http.StatusCreated, p)
}

func (api *pageApi) query(ctx echo.Context) error {
	filter, err := bindQueryFilter(ctx)
	if err != nil {
		return ctx.JSON(http.StatusOK, []page.Page{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	pages, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying pages")
	}
	if pages == nil {
		pages = []page.Page{}
	}
	return ctx.JSON(http.StatusOK, pages)
}

func (api *pageApi) retrieve(ctx echo.Context) error {
	p, ok := ctx.Get(contextPageKey).(page.Page)
	if !ok {
		return errors.Wrap(errPageNotFoundInCtx, "retrieving object from context")
	}
	ctx.Response().Header().Set(headerETag, p.ETag())
	return ctx.JSON(http.StatusOK, p)
}

func (api *pageApi) update(ctx echo.Context) error {
	var data page.SaveLayout
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveLayout")
	}
	version, err := bindVersion(ctx, data.Version)
	if err != nil {
		return err
	}
	data.Version = version
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.SaveLayout(ctx.Request().Context(), ctx.Param("name"), data)
	if err != nil {
		return errors.Wrap(err, "saving layout")
	}

	ctx.Response().Header().Set(headerETag, p.ETag())
	return ctx.JSON(http.StatusOK, p)
}

func (api *pageApi) publish(ctx echo.Context) error {
	p, err := api.svc.Publish(ctx.Request().Context(), ctx.Param("name"))
	if err != nil {
		return errors.Wrap(err, "publishing page")
	}
	ctx.Response().Header().Set(headerETag, p.ETag())
	return ctx.JSON(http.StatusOK, p)
}

func (api *pageApi) destroy(ctx echo.Context) error {
	n, err := api.svc.Delete(ctx.Request().Context(), ctx.Param("name"))
	if err != nil {
		return errors.Wrap(err, "deleting page")
	}
	if n == 0 {
		return errHttpNotFound
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *pageApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if _, err := api.svc.Delete(ctx.Request().Context(), query.Names...); err != nil {
		return errors.Wrap(err, "deleting pages")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *pageApi) retrievePublished(ctx echo.Context) error {
	p, err := api.svc.Get(ctx.Request().Context(), ctx.Param("name"))
	if err != nil {
		if errors.Cause(err) == page.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "loading page")
	}
	if !p.IsPublished() {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, PublishedPage{
		Name:        p.Name,
		Title:       p.Title,
		Layout:      *p.PublishedLayout,
		PublishedAt: *p.PublishedAt,
	})
}

func (api *pageApi) addComponent(ctx echo.Context) error {
	var data AddComponentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AddComponentRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	return api.apply(ctx, layout.AddComponentAction{Section: data.Section, Type: data.Type}, data.Version)
}

func (api *pageApi) patchComponent(ctx echo.Context) error {
	var data PatchComponentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PatchComponentRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	action := layout.PatchComponentDataAction{Section: data.Section, ID: ctx.Param("id"), Data: data.Data}
	return api.apply(ctx, action, data.Version)
}

func (api *pageApi) moveComponent(ctx echo.Context) error {
	var data MoveComponentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MoveComponentRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	action := layout.MoveComponentAction{Section: data.Section, ID: ctx.Param("id"), Direction: data.Direction}
	return api.apply(ctx, action, data.Version)
}

func (api *pageApi) removeComponent(ctx echo.Context) error {
	query := RemoveComponentRequest{Section: ctx.QueryParam("section")}
	if v := ctx.QueryParam("version"); v != "" {
		version, err := strconv.Atoi(v)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "version", Error: "version must be an integer"})
		}
		query.Version = version
	}
	if err := query.Validate(api.validate); err != nil {
		return err
	}
	return api.apply(ctx, layout.RemoveComponentAction{Section: query.Section, ID: ctx.Param("id")}, query.Version)
}

// apply runs a layout action on the page named in the path and reports its outcome.
// No-ops are answered with 200 and the unchanged page.
func (api *pageApi) apply(ctx echo.Context, action layout.Action, bodyVersion int) error {
	version, err := bindVersion(ctx, bodyVersion)
	if err != nil {
		return err
	}

	p, res, err := api.svc.Apply(ctx.Request().Context(), ctx.Param("name"), action, version)
	if err != nil {
		return errors.Wrapf(err, "applying %s", action.Name())
	}

	code := http.StatusOK
	if _, added := action.(layout.AddComponentAction); added && res.Outcome == layout.Applied {
		code = http.StatusCreated
	}
	ctx.Response().Header().Set(headerETag, p.ETag())
	return ctx.JSON(code, MutationResponse{Page: p, Outcome: res.Outcome, Component: res.Component})
}

type (
	AddComponentRequest struct {
		Section string `json:"section" validate:"required,max=50"`
		Type    string `json:"type" validate:"required,max=50,component_type"`
		Version int    `json:"version" validate:"min=0"`
	}

	PatchComponentRequest struct {
		Section string      `json:"section" validate:"required"`
		Data    layout.Data `json:"data" validate:"required"`
		Version int         `json:"version" validate:"min=0"`
	}

	MoveComponentRequest struct {
		Section   string           `json:"section" validate:"required"`
		Direction layout.Direction `json:"direction" validate:"required,direction"`
		Version   int              `json:"version" validate:"min=0"`
	}

	RemoveComponentRequest struct {
		Section string `json:"section" validate:"required"`
		Version int    `json:"version" validate:"min=0"`
	}

	DestroyMultipleRequest struct {
		Names []string `query:"name"`
	}

	MutationResponse struct {
		Page      page.Page         `json:"page"`
		Outcome   layout.Outcome    `json:"outcome"`
		Component *layout.Component `json:"component,omitempty"`
	}

	// PublishedPage is what renderers get: the published snapshot only, never the draft.
	PublishedPage struct {
		Name        string        `json:"name"`
		Title       string        `json:"title"`
		Layout      layout.Layout `json:"layout"`
		PublishedAt time.Time     `json:"published_at"`
	}
)

func (r *AddComponentRequest) Validate(validate *validator.Validate) error {
	r.Section = core.CleanString(r.Section)
	r.Type = core.CleanString(r.Type, true /* lower */)
	return validate.Struct(r)
}

func (r *PatchComponentRequest) Validate(validate *validator.Validate) error {
	r.Section = core.CleanString(r.Section)
	return validate.Struct(r)
}

func (r *MoveComponentRequest) Validate(validate *validator.Validate) error {
	r.Section = core.CleanString(r.Section)
	r.Direction = layout.Direction(core.CleanString(string(r.Direction), true /* lower */))
	return validate.Struct(r)
}

func (r *RemoveComponentRequest) Validate(validate *validator.Validate) error {
	r.Section = core.CleanString(r.Section)
	return validate.Struct(r)
}
