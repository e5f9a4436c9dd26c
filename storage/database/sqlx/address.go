package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core/address"
)

type addressRepository struct {
	db *DB
}

var _ address.Repository = (*addressRepository)(nil) // interface compliance check

func NewAddressRepository(db *DB) *addressRepository {
	return &addressRepository{db: db}
}

func (repo *addressRepository) ListProvinces(ctx context.Context) ([]address.Province, error) {
	out := make([]address.Province, 0)
	err := repo.db.selectAll(ctx, &out, `SELECT id, name FROM provinces ORDER BY name`)
	return out, errors.Wrap(err, "selecting provinces")
}

func (repo *addressRepository) ListDistricts(ctx context.Context, provinceID int) ([]address.District, error) {
	out := make([]address.District, 0)
	err := repo.db.selectAll(ctx, &out, `SELECT id, name, province_id FROM districts WHERE province_id = $1 ORDER BY name`, provinceID)
	return out, errors.Wrap(err, "selecting districts")
}

func (repo *addressRepository) ListSubdistricts(ctx context.Context, districtID int) ([]address.Subdistrict, error) {
	out := make([]address.Subdistrict, 0)
	q := `SELECT id, name, district_id, zipcode FROM subdistricts WHERE district_id = $1 ORDER BY name`
	err := repo.db.selectAll(ctx, &out, q, districtID)
	return out, errors.Wrap(err, "selecting subdistricts")
}

func (repo *addressRepository) GetSubdistrict(ctx context.Context, id int) (address.Subdistrict, error) {
	var sd address.Subdistrict
	err := repo.db.get(ctx, &sd, `SELECT id, name, district_id, zipcode FROM subdistricts WHERE id = $1`, id)
	return sd, notFound(err, address.ErrSubdistrictNotFound)
}

// upserted is the result of an INSERT ... ON CONFLICT DO UPDATE, xmax is 0 for inserted rows.
type upserted struct {
	ID      int  `db:"id"`
	Created bool `db:"created"`
}

func (repo *addressRepository) GetOrCreateProvince(ctx context.Context, name string) (address.Province, bool, error) {
	var res upserted
	q := `INSERT INTO provinces (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, (xmax = 0) AS created`
	if err := repo.db.get(ctx, &res, q, name); err != nil {
		return address.Province{}, false, errors.Wrap(err, "upserting province")
	}
	return address.Province{ID: res.ID, Name: name}, res.Created, nil
}

func (repo *addressRepository) GetOrCreateDistrict(ctx context.Context, name string, provinceID int) (address.District, bool, error) {
	var res upserted
	q := `INSERT INTO districts (name, province_id) VALUES ($1, $2)
		ON CONFLICT (name, province_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, (xmax = 0) AS created`
	if err := repo.db.get(ctx, &res, q, name, provinceID); err != nil {
		if violated(err, foreignKeyViolation) {
			return address.District{}, false, address.ErrProvinceNotFound
		}
		return address.District{}, false, errors.Wrap(err, "upserting district")
	}
	return address.District{ID: res.ID, Name: name, ProvinceID: provinceID}, res.Created, nil
}

// GetOrCreateSubdistrict keeps the zipcode of existing subdistricts.
func (repo *addressRepository) GetOrCreateSubdistrict(ctx context.Context, name string, districtID int, zipcode string) (address.Subdistrict, bool, error) {
	var res struct {
		upserted
		Zipcode string `db:"zipcode"`
	}
	q := `INSERT INTO subdistricts (name, district_id, zipcode) VALUES ($1, $2, $3)
		ON CONFLICT (name, district_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, zipcode, (xmax = 0) AS created`
	if err := repo.db.get(ctx, &res, q, name, districtID, zipcode); err != nil {
		if violated(err, foreignKeyViolation) {
			return address.Subdistrict{}, false, address.ErrDistrictNotFound
		}
		return address.Subdistrict{}, false, errors.Wrap(err, "upserting subdistrict")
	}
	return address.Subdistrict{ID: res.ID, Name: name, DistrictID: districtID, Zipcode: res.Zipcode}, res.Created, nil
}

const addressColumns = `id, house_number, street, moo, subdistrict_id, district_id, province_id, zipcode, updated_at`

func (repo *addressRepository) GetAddress(ctx context.Context, id string) (address.Address, error) {
	var a address.Address
	err := repo.db.get(ctx, &a, `SELECT `+addressColumns+` FROM addresses WHERE id::text = $1`, id)
	return a, notFound(err, address.ErrNotFound)
}

func (repo *addressRepository) FindAddress(ctx context.Context, houseNumber, street, moo string) (address.Address, error) {
	var a address.Address
	q := `SELECT ` + addressColumns + ` FROM addresses WHERE house_number = $1 AND street = $2 AND moo = $3`
	err := repo.db.get(ctx, &a, q, houseNumber, street, moo)
	return a, notFound(err, address.ErrNotFound)
}

func (repo *addressRepository) SaveAddress(ctx context.Context, a address.Address) (address.Address, error) {
	q := `INSERT INTO addresses (` + addressColumns + `) VALUES (
			:id, :house_number, :street, :moo, :subdistrict_id, :district_id, :province_id, :zipcode, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			house_number = EXCLUDED.house_number, street = EXCLUDED.street, moo = EXCLUDED.moo,
			subdistrict_id = EXCLUDED.subdistrict_id, district_id = EXCLUDED.district_id,
			province_id = EXCLUDED.province_id, zipcode = EXCLUDED.zipcode, updated_at = EXCLUDED.updated_at`
	_, err := repo.db.namedExec(ctx, q, a)
	return a, errors.Wrap(err, "saving address")
}
