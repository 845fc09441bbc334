package transformers

import (
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"rossmann/pkg/errors"
)

// Store holds every transformer fitted during training. It is loaded once at
// startup and never mutated afterwards, so it is safe for concurrent readers.
type Store struct {
	version      string
	imputers     map[string]Imputer
	scalers      map[string]Scaler
	binEdges     map[string]BinEdges
	categoryMaps map[string]CategoryMap
	relabels     map[string]Relabel
	storeMAE     map[int]float64
}

// artefact is the on-disk YAML layout written by the training notebook export.
type artefact struct {
	Version      string                 `yaml:"version"`
	Imputers     map[string]Imputer     `yaml:"imputers"`
	Scalers      map[string]Scaler      `yaml:"scalers"`
	BinEdges     map[string]BinEdges    `yaml:"bin_edges"`
	CategoryMaps map[string]CategoryMap `yaml:"category_maps"`
	Relabels     map[string]Relabel     `yaml:"relabels"`
	StoreMAE     map[int]float64        `yaml:"store_mae"`
}

// Training-time constants. The notebook hard-coded these rather than pickling
// them, so artefacts produced before they were exported omit them.
func defaultBinEdges() map[string]BinEdges {
	return map[string]BinEdges{
		"competition_open_since_year": {1989, 1990, 1995, 2000, 2005, 2008, 2010, 2012, 2014, 2016},
		"competition_distance":        {0, 50, 100, 500, 1000, 5000, 15000, 100000},
	}
}

func defaultCategoryMaps() map[string]CategoryMap {
	return map[string]CategoryMap{
		"store_type": {"a": 0, "d": 1, "c": 2, "b": 3},
		"assortment": {"basic": 0, "extended": 1, "extra": 2},
	}
}

func defaultRelabels() map[string]Relabel {
	return map[string]Relabel{
		"assortment": {"a": "basic", "b": "extra", "c": "extended"},
	}
}

// Load reads and validates a transformer artefact file.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read transformer artefact %s", path)
	}
	store, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid transformer artefact %s", path)
	}
	return store, nil
}

// Parse decodes and validates a YAML transformer artefact.
func Parse(data []byte) (*Store, error) {
	var a artefact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, errors.Wrap(err, "failed to decode artefact")
	}

	s := &Store{
		version:      a.Version,
		imputers:     make(map[string]Imputer, len(a.Imputers)),
		scalers:      make(map[string]Scaler, len(a.Scalers)),
		binEdges:     defaultBinEdges(),
		categoryMaps: defaultCategoryMaps(),
		relabels:     defaultRelabels(),
		storeMAE:     make(map[int]float64, len(a.StoreMAE)),
	}

	for column, imp := range a.Imputers {
		if err := imp.validate(column); err != nil {
			return nil, err
		}
		s.imputers[column] = imp
	}
	for column, sc := range a.Scalers {
		if err := sc.compile(column); err != nil {
			return nil, err
		}
		s.scalers[column] = sc
	}
	for column, edges := range a.BinEdges {
		s.binEdges[column] = slices.Clone(edges)
	}
	for column, cm := range a.CategoryMaps {
		s.categoryMaps[column] = maps.Clone(cm)
	}
	for column, rl := range a.Relabels {
		s.relabels[column] = maps.Clone(rl)
	}
	maps.Copy(s.storeMAE, a.StoreMAE)

	for column, edges := range s.binEdges {
		if err := edges.validate(column); err != nil {
			return nil, err
		}
	}
	for column, cm := range s.categoryMaps {
		if err := cm.validate(column); err != nil {
			return nil, err
		}
	}
	for column, rl := range s.relabels {
		target, ok := s.categoryMaps[column]
		if !ok {
			return nil, errors.Wrapf(errors.ErrTransformerMismatch, "relabel %s has no category map", column)
		}
		if err := rl.validate(column, target); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Version returns the artefact version tag.
func (s *Store) Version() string { return s.version }

// Imputer returns the fitted imputer for column.
func (s *Store) Imputer(column string) (Imputer, bool) {
	imp, ok := s.imputers[column]
	return imp, ok
}

// Scaler returns the fitted scaler for column.
func (s *Store) Scaler(column string) (Scaler, bool) {
	sc, ok := s.scalers[column]
	return sc, ok
}

// BinEdges returns a copy of the bin edges for column.
func (s *Store) BinEdges(column string) (BinEdges, bool) {
	edges, ok := s.binEdges[column]
	return slices.Clone(edges), ok
}

// CategoryMap returns a copy of the category map for column.
func (s *Store) CategoryMap(column string) (CategoryMap, bool) {
	cm, ok := s.categoryMaps[column]
	return maps.Clone(cm), ok
}

// Relabel returns a copy of the relabel table for column, if any.
func (s *Store) Relabel(column string) (Relabel, bool) {
	rl, ok := s.relabels[column]
	return maps.Clone(rl), ok
}

// StoreMAE returns the validation mean absolute error recorded for store.
func (s *Store) StoreMAE(store int) (float64, bool) {
	mae, ok := s.storeMAE[store]
	return mae, ok
}
