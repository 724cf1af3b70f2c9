package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/pagebuilder/core/layout"
)

type ComponentTypeResponse struct {
	layout.ComponentType
	Defaults layout.Data    `json:"defaults"`
	Fields   []layout.Field `json:"fields"`
}

func newComponentTypeResponse(ct layout.ComponentType) ComponentTypeResponse {
	return ComponentTypeResponse{
		ComponentType: ct,
		Defaults:      ct.Defaults(),
		Fields:        ct.Fields(),
	}
}

type componentApi struct{}

func registerComponentAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	api := componentApi{}

	cg := g.Group("/components", jwt)
	cg.GET("", api.catalog)
	cg.GET("/:type", api.retrieve)
}

func (api *componentApi) catalog(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, layout.Catalog())
}

func (api *componentApi) retrieve(ctx echo.Context) error {
	ct, ok := layout.Lookup(ctx.Param("type"))
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, newComponentTypeResponse(ct))
}
