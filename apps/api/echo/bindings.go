package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/pagebuilder/core"
	"github.com/trezcool/pagebuilder/core/page"
)

const (
	orderingParam  = "ordering"
	publishedParam = "published"

	headerETag    = "ETag"
	headerIfMatch = "If-Match"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindQueryFilter reads the page list filters. An unparsable `published` is ignored.
func bindQueryFilter(ctx echo.Context) (*page.QueryFilter, error) {
	filter := new(page.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return nil, err
	}
	if val := ctx.QueryParam(publishedParam); val != "" {
		if published, err := strconv.ParseBool(val); err == nil {
			filter.Published = &published
		}
	}
	filter.Clean()
	return filter, nil
}

// bindVersion returns the page version a mutation is based on: the If-Match header
// when present, bodyVersion otherwise. 0 means "latest".
func bindVersion(ctx echo.Context, bodyVersion int) (int, error) {
	if tag := ctx.Request().Header.Get(headerIfMatch); tag != "" && tag != "*" {
		v, err := page.ParseETag(tag)
		if err != nil {
			return 0, errInvalidVersionTag
		}
		return v, nil
	}
	if bodyVersion < 0 {
		return 0, errInvalidVersionTag
	}
	return bodyVersion, nil
}
