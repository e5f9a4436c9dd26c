package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core/address"
)

const importFileField = "file"

type addressAPI struct {
	deps ServerDeps
}

func registerAddressAPI(v1 *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := addressAPI{deps: deps}

	v1.GET("/provinces", api.provinces, jwt)
	v1.GET("/districts", api.districts, jwt)
	v1.GET("/subdistricts", api.subdistricts, jwt)
	v1.GET("/zipcode", api.zipcode, jwt)

	g := v1.Group("/addresses", jwt, teacherOnly)
	g.POST("", api.save)
	g.POST("/import", api.importDivisions)
	g.GET("/:id", api.retrieve)
}

func (api addressAPI) provinces(ctx echo.Context) error {
	provinces, err := api.deps.Addresses.Provinces(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing provinces")
	}
	if provinces == nil {
		provinces = []address.Province{}
	}
	return ctx.JSON(http.StatusOK, provinces)
}

func (api addressAPI) districts(ctx echo.Context) error {
	provinceID, err := intParam(ctx, "province_id")
	if err != nil {
		return err
	}
	districts, err := api.deps.Addresses.Districts(ctx.Request().Context(), provinceID)
	if err != nil {
		return errors.Wrap(err, "listing districts")
	}
	if districts == nil {
		districts = []address.District{}
	}
	return ctx.JSON(http.StatusOK, districts)
}

func (api addressAPI) subdistricts(ctx echo.Context) error {
	districtID, err := intParam(ctx, "district_id")
	if err != nil {
		return err
	}
	subdistricts, err := api.deps.Addresses.Subdistricts(ctx.Request().Context(), districtID)
	if err != nil {
		return errors.Wrap(err, "listing subdistricts")
	}
	if subdistricts == nil {
		subdistricts = []address.Subdistrict{}
	}
	return ctx.JSON(http.StatusOK, subdistricts)
}

func (api addressAPI) zipcode(ctx echo.Context) error {
	subdistrictID, err := intParam(ctx, "subdistrict_id")
	if err != nil {
		return err
	}
	zipcode, err := api.deps.Addresses.Zipcode(ctx.Request().Context(), subdistrictID)
	if err != nil {
		return errors.Wrap(err, "getting zipcode")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"zipcode": zipcode})
}

func (api addressAPI) save(ctx echo.Context) error {
	var na address.NewAddress
	if err := ctx.Bind(&na); err != nil {
		return err
	}
	if err := na.Validate(api.deps.Validate); err != nil {
		return err
	}

	a, err := api.deps.Addresses.Save(ctx.Request().Context(), na)
	if err != nil {
		return errors.Wrap(err, "saving address")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api addressAPI) retrieve(ctx echo.Context) error {
	a, err := api.deps.Addresses.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting address")
	}
	return ctx.JSON(http.StatusOK, a)
}

// importDivisions loads provinces, districts and subdistricts from an uploaded workbook.
func (api addressAPI) importDivisions(ctx echo.Context) error {
	fh, err := ctx.FormFile(importFileField)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "an Excel file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer func() { _ = f.Close() }()

	res, err := api.deps.Addresses.Import(ctx.Request().Context(), f)
	if err != nil {
		return errors.Wrap(err, "importing divisions")
	}
	return ctx.JSON(http.StatusOK, res)
}
