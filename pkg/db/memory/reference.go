package memory

import (
	"context"
	"slices"

	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/fileformat"
)

type fileformats struct{ d *DB }

func (f *fileformats) Create(_ context.Context, ff fileformat.FileFormat) (fileformat.FileFormat, error) {
	err := f.d.do(func(st *state) error {
		for _, other := range st.fileformats {
			if other.Name == ff.Name {
				return xe.Conflict("fileformat", ff.Name)
			}
		}
		ff.ID = st.next()
		st.fileformats[ff.ID] = ff
		return nil
	})
	return ff, err
}

func (f *fileformats) Get(_ context.Context, id int64) (fileformat.FileFormat, error) {
	var ff fileformat.FileFormat
	err := f.d.do(func(st *state) error {
		found, ok := st.fileformats[id]
		if !ok {
			return xe.NotFound("fileformat", id)
		}
		ff = found
		return nil
	})
	return ff, err
}

func (f *fileformats) GetByName(_ context.Context, name string) (fileformat.FileFormat, error) {
	var ff fileformat.FileFormat
	err := f.d.do(func(st *state) error {
		for _, found := range st.fileformats {
			if found.Name == name {
				ff = found
				return nil
			}
		}
		return xe.NotFound("fileformat", name)
	})
	return ff, err
}

func (f *fileformats) List(context.Context) ([]fileformat.FileFormat, error) {
	var ret []fileformat.FileFormat
	err := f.d.do(func(st *state) error {
		ret = sorted(st.fileformats, nil)
		return nil
	})
	return ret, err
}

type references struct{ d *DB }

func (r *references) PutChrMap(_ context.Context, chrmap domain.ChrMap) error {
	return r.d.do(func(st *state) error {
		st.chrmap = make(domain.ChrMap, len(chrmap))
		for i, c := range chrmap {
			c.ID = int64(i + 1)
			st.chrmap[i] = c
		}
		return nil
	})
}

func (r *references) ChrMap(context.Context) (domain.ChrMap, error) {
	var ret domain.ChrMap
	err := r.d.do(func(st *state) error {
		ret = slices.Clone(st.chrmap)
		return nil
	})
	return ret, err
}

func (r *references) CreateDataSource(_ context.Context, ds domain.DataSource) (domain.DataSource, error) {
	err := r.d.do(func(st *state) error {
		if _, ok := st.fileformats[ds.FileFormatID]; !ok {
			return xe.NotFound("fileformat", ds.FileFormatID)
		}
		for _, other := range st.datasources {
			if other.Name == ds.Name {
				return xe.Conflict("datasource", ds.Name)
			}
			if other.Lab == ds.Lab && other.Assay == ds.Assay && other.Workflow == ds.Workflow {
				return xe.Conflict("datasource", ds.Lab+"/"+ds.Assay+"/"+ds.Workflow)
			}
		}
		ds.ID = st.next()
		st.datasources[ds.ID] = ds
		return nil
	})
	return ds, err
}

func (r *references) GetDataSource(_ context.Context, id int64) (domain.DataSource, error) {
	var ds domain.DataSource
	err := r.d.do(func(st *state) error {
		found, ok := st.datasources[id]
		if !ok {
			return xe.NotFound("datasource", id)
		}
		ds = found
		return nil
	})
	return ds, err
}

func (r *references) GetDataSourceByName(_ context.Context, name string) (domain.DataSource, error) {
	var ds domain.DataSource
	err := r.d.do(func(st *state) error {
		for _, found := range st.datasources {
			if found.Name == name {
				ds = found
				return nil
			}
		}
		return xe.NotFound("datasource", name)
	})
	return ds, err
}

func (r *references) CreateGenomicFeature(_ context.Context, gf domain.GenomicFeature) (domain.GenomicFeature, error) {
	err := r.d.do(func(st *state) error {
		for _, other := range st.features {
			if other.LocusTag == gf.LocusTag {
				return xe.Conflict("genomicfeature", gf.LocusTag)
			}
		}
		gf.ID = st.next()
		st.features[gf.ID] = gf
		return nil
	})
	return gf, err
}

func (r *references) GetGenomicFeatures(_ context.Context, ids []int64) (map[int64]domain.GenomicFeature, error) {
	ret := map[int64]domain.GenomicFeature{}
	err := r.d.do(func(st *state) error {
		for _, id := range ids {
			if gf, ok := st.features[id]; ok {
				ret[id] = gf
			}
		}
		return nil
	})
	return ret, err
}

func (r *references) FindGenomicFeature(_ context.Context, locusTag string, symbol string) (domain.GenomicFeature, error) {
	var gf domain.GenomicFeature
	err := r.d.do(func(st *state) error {
		for _, found := range sorted(st.features, nil) {
			if (locusTag != "" && found.LocusTag == locusTag) ||
				(locusTag == "" && symbol != "" && found.Symbol == symbol) {
				gf = found
				return nil
			}
		}
		if locusTag != "" {
			return xe.NotFound("genomicfeature", locusTag)
		}
		return xe.NotFound("genomicfeature", symbol)
	})
	return gf, err
}

func (r *references) GetRegulator(_ context.Context, id int64) (domain.Regulator, error) {
	var reg domain.Regulator
	err := r.d.do(func(st *state) error {
		found, ok := st.regulators[id]
		if !ok {
			return xe.NotFound("regulator", id)
		}
		reg = found
		return nil
	})
	return reg, err
}

func (r *references) GetOrCreateRegulator(_ context.Context, featureID int64, stamp domain.Stamp) (domain.Regulator, error) {
	var reg domain.Regulator
	err := r.d.do(func(st *state) error {
		if _, ok := st.features[featureID]; !ok {
			return xe.NotFound("genomicfeature", featureID)
		}
		for _, found := range st.regulators {
			if found.GenomicFeatureID == featureID {
				reg = found
				return nil
			}
		}
		reg = domain.Regulator{ID: st.next(), GenomicFeatureID: featureID, Stamp: stamp}
		st.regulators[reg.ID] = reg
		return nil
	})
	return reg, err
}
