package inmemdb

import (
	"context"
	"sort"

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
	defer repo.db.rlock(ctx)()
	out := make([]address.Province, 0, len(repo.db.t.provinces))
	for _, p := range repo.db.t.provinces {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (repo *addressRepository) ListDistricts(ctx context.Context, provinceID int) ([]address.District, error) {
	defer repo.db.rlock(ctx)()
	out := make([]address.District, 0)
	for _, d := range repo.db.t.districts {
		if d.ProvinceID == provinceID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (repo *addressRepository) ListSubdistricts(ctx context.Context, districtID int) ([]address.Subdistrict, error) {
	defer repo.db.rlock(ctx)()
	out := make([]address.Subdistrict, 0)
	for _, sd := range repo.db.t.subdistricts {
		if sd.DistrictID == districtID {
			out = append(out, sd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (repo *addressRepository) GetSubdistrict(ctx context.Context, id int) (address.Subdistrict, error) {
	defer repo.db.rlock(ctx)()
	if sd, ok := repo.db.t.subdistricts[id]; ok {
		return sd, nil
	}
	return address.Subdistrict{}, address.ErrSubdistrictNotFound
}

func (repo *addressRepository) GetOrCreateProvince(ctx context.Context, name string) (address.Province, bool, error) {
	defer repo.db.lock(ctx)()
	for _, p := range repo.db.t.provinces {
		if p.Name == name {
			return p, false, nil
		}
	}
	p := address.Province{ID: repo.db.t.nextPK(), Name: name}
	repo.db.t.provinces[p.ID] = p
	return p, true, nil
}

func (repo *addressRepository) GetOrCreateDistrict(ctx context.Context, name string, provinceID int) (address.District, bool, error) {
	defer repo.db.lock(ctx)()
	if _, ok := repo.db.t.provinces[provinceID]; !ok {
		return address.District{}, false, address.ErrProvinceNotFound
	}
	for _, d := range repo.db.t.districts {
		if d.Name == name && d.ProvinceID == provinceID {
			return d, false, nil
		}
	}
	d := address.District{ID: repo.db.t.nextPK(), Name: name, ProvinceID: provinceID}
	repo.db.t.districts[d.ID] = d
	return d, true, nil
}

func (repo *addressRepository) GetOrCreateSubdistrict(ctx context.Context, name string, districtID int, zipcode string) (address.Subdistrict, bool, error) {
	defer repo.db.lock(ctx)()
	if _, ok := repo.db.t.districts[districtID]; !ok {
		return address.Subdistrict{}, false, address.ErrDistrictNotFound
	}
	for _, sd := range repo.db.t.subdistricts {
		if sd.Name == name && sd.DistrictID == districtID {
			return sd, false, nil
		}
	}
	sd := address.Subdistrict{ID: repo.db.t.nextPK(), Name: name, DistrictID: districtID, Zipcode: zipcode}
	repo.db.t.subdistricts[sd.ID] = sd
	return sd, true, nil
}

func (repo *addressRepository) GetAddress(ctx context.Context, id string) (address.Address, error) {
	defer repo.db.rlock(ctx)()
	if a, ok := repo.db.t.addresses[id]; ok {
		return a, nil
	}
	return address.Address{}, address.ErrNotFound
}

func (repo *addressRepository) FindAddress(ctx context.Context, houseNumber, street, moo string) (address.Address, error) {
	defer repo.db.rlock(ctx)()
	for _, a := range repo.db.t.addresses {
		if a.HouseNumber == houseNumber && a.Street == street && a.Moo == moo {
			return a, nil
		}
	}
	return address.Address{}, address.ErrNotFound
}

func (repo *addressRepository) SaveAddress(ctx context.Context, a address.Address) (address.Address, error) {
	defer repo.db.lock(ctx)()
	repo.db.t.addresses[a.ID] = a
	return a, nil
}
