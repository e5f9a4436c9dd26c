package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/curriculum"
	"github.com/trezcool/pondok/core/report"
)

const (
	orderingParam = "ordering"
	categoryParam = "category"
	formatParam   = "format"
)

func bindOrdering(ctx echo.Context, allowed map[string]string) []core.DBOrdering {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return nil
	}
	return core.ParseOrdering(val, allowed)
}

func bindPage(ctx echo.Context) (core.Page, error) {
	var page core.Page
	if err := ctx.Bind(&page); err != nil {
		return page, err
	}
	page.Clean()
	return page, nil
}

func bindCategory(ctx echo.Context) (curriculum.Category, error) {
	return curriculum.ParseCategory(ctx.QueryParam(categoryParam))
}

// intParam reads an integer path or query param, zero when absent.
func intParam(ctx echo.Context, name string) (int, error) {
	val := ctx.Param(name)
	if val == "" {
		val = ctx.QueryParam(name)
	}
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a number")
	}
	return n, nil
}

func bindRenderer(ctx echo.Context, renderers report.Renderers) (report.Renderer, error) {
	return renderers.Get(ctx.QueryParam(formatParam))
}

// attachment sends a rendered report as a file download.
func attachment(ctx echo.Context, r report.Renderer, filename string, buf *bytes.Buffer) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, r.ContentType(), buf.Bytes())
}
