// Package address holds the Thai administrative divisions and the postal addresses built on them.
package address

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/pondok/core"
)

var (
	ErrNotFound            = errors.New("address not found")
	ErrProvinceNotFound    = errors.New("province not found")
	ErrDistrictNotFound    = errors.New("district not found")
	ErrSubdistrictNotFound = errors.New("subdistrict not found")
)

var nowFunc = func() time.Time { return time.Now().UTC() }

type Province struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// District is an amphoe.
type District struct {
	ID         int    `json:"id" db:"id"`
	Name       string `json:"name" db:"name"`
	ProvinceID int    `json:"province_id" db:"province_id"`
}

// Subdistrict is a tambon.
type Subdistrict struct {
	ID         int    `json:"id" db:"id"`
	Name       string `json:"name" db:"name"`
	DistrictID int    `json:"district_id" db:"district_id"`
	Zipcode    string `json:"zipcode" db:"zipcode"`
}

type Address struct {
	ID            string    `json:"id" db:"id"`
	HouseNumber   string    `json:"house_number" db:"house_number"`
	Street        string    `json:"street" db:"street"`
	Moo           string    `json:"moo" db:"moo"`
	SubdistrictID null.Int  `json:"subdistrict_id" db:"subdistrict_id"`
	DistrictID    null.Int  `json:"district_id" db:"district_id"`
	ProvinceID    null.Int  `json:"province_id" db:"province_id"`
	Zipcode       string    `json:"zipcode" db:"zipcode"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// NewAddress is saved over the address with the same house number, street and moo.
type NewAddress struct {
	HouseNumber   string `json:"house_number" validate:"required,max=20"`
	Street        string `json:"street" validate:"max=255"`
	Moo           string `json:"moo" validate:"max=10"`
	SubdistrictID int    `json:"subdistrict_id"`
	DistrictID    int    `json:"district_id"`
	ProvinceID    int    `json:"province_id"`
	Zipcode       string `json:"zipcode" validate:"omitempty,numeric,len=5"`
}

func (na *NewAddress) Validate(validate *validator.Validate) error {
	na.HouseNumber = core.CleanString(na.HouseNumber)
	na.Street = core.CleanString(na.Street)
	na.Moo = core.CleanString(na.Moo)
	na.Zipcode = core.CleanString(na.Zipcode)
	return validate.Struct(na)
}

type (
	Repository interface {
		ListProvinces(ctx context.Context) ([]Province, error)
		ListDistricts(ctx context.Context, provinceID int) ([]District, error)
		ListSubdistricts(ctx context.Context, districtID int) ([]Subdistrict, error)
		GetSubdistrict(ctx context.Context, id int) (Subdistrict, error)
		// The GetOrCreate methods report whether the division was created.
		GetOrCreateProvince(ctx context.Context, name string) (Province, bool, error)
		GetOrCreateDistrict(ctx context.Context, name string, provinceID int) (District, bool, error)
		GetOrCreateSubdistrict(ctx context.Context, name string, districtID int, zipcode string) (Subdistrict, bool, error)

		GetAddress(ctx context.Context, id string) (Address, error)
		FindAddress(ctx context.Context, houseNumber, street, moo string) (Address, error)
		// SaveAddress creates or replaces the address with the same ID.
		SaveAddress(ctx context.Context, a Address) (Address, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Provinces(ctx context.Context) ([]Province, error) {
	return svc.repo.ListProvinces(ctx)
}

func (svc *Service) Districts(ctx context.Context, provinceID int) ([]District, error) {
	return svc.repo.ListDistricts(ctx, provinceID)
}

func (svc *Service) Subdistricts(ctx context.Context, districtID int) ([]Subdistrict, error) {
	return svc.repo.ListSubdistricts(ctx, districtID)
}

// Zipcode returns the postal code of a subdistrict.
func (svc *Service) Zipcode(ctx context.Context, subdistrictID int) (string, error) {
	sd, err := svc.repo.GetSubdistrict(ctx, subdistrictID)
	if err != nil {
		return "", err
	}
	return sd.Zipcode, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Address, error) {
	return svc.repo.GetAddress(ctx, id)
}

// Save creates the address, or updates the one with the same house number, street and moo.
func (svc *Service) Save(ctx context.Context, na NewAddress) (Address, error) {
	a, err := svc.repo.FindAddress(ctx, na.HouseNumber, na.Street, na.Moo)
	switch {
	case errors.Cause(err) == ErrNotFound:
		a = Address{ID: uuid.New().String(), HouseNumber: na.HouseNumber, Street: na.Street, Moo: na.Moo}
	case err != nil:
		return Address{}, errors.Wrap(err, "finding address")
	}

	a.SubdistrictID = null.NewInt(na.SubdistrictID, na.SubdistrictID != 0)
	a.DistrictID = null.NewInt(na.DistrictID, na.DistrictID != 0)
	a.ProvinceID = null.NewInt(na.ProvinceID, na.ProvinceID != 0)
	a.Zipcode = na.Zipcode
	if a.Zipcode == "" && na.SubdistrictID != 0 {
		if a.Zipcode, err = svc.Zipcode(ctx, na.SubdistrictID); err != nil {
			if errors.Cause(err) == ErrSubdistrictNotFound {
				return Address{}, core.NewFieldError("subdistrict_id", err)
			}
			return Address{}, err
		}
	}
	a.UpdatedAt = nowFunc()
	return svc.repo.SaveAddress(ctx, a)
}
