package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"medisearch/internal/domain"
)

// file is the on-disk dataset shape:
// {"diseases": [{"name": ..., "symptoms": [...], "medicines": [...], "precautions": [...]}]}
type file struct {
	Diseases []entry `json:"diseases"`
}

type entry struct {
	Name        string   `json:"name"`
	Symptoms    []string `json:"symptoms"`
	Medicines   []string `json:"medicines"`
	Precautions []string `json:"precautions"`
}

// Store holds the loaded disease records, ordered as they appear in the
// dataset file. Read-only after Load.
type Store struct {
	records []domain.DiseaseRecord
}

// Load reads and validates the dataset. Entries with a blank name or no
// symptom text are skipped; precaution and medicine lists are normalized to
// empty slices so callers never see nil.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset %s: %w", path, err)
	}
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing dataset %s: %w", path, err)
	}

	records := make([]domain.DiseaseRecord, 0, len(f.Diseases))
	for _, e := range f.Diseases {
		name := strings.TrimSpace(e.Name)
		symptoms := strings.TrimSpace(strings.Join(e.Symptoms, ", "))
		if name == "" || symptoms == "" {
			continue
		}
		records = append(records, domain.DiseaseRecord{
			Name:        name,
			Symptoms:    symptoms,
			Precautions: normalize(e.Precautions),
			Medicines:   normalize(e.Medicines),
		})
	}
	return &Store{records: records}, nil
}

// NewStore wraps an already-built record slice, preserving order.
// Useful for tests and embedded datasets.
func NewStore(records []domain.DiseaseRecord) *Store {
	out := make([]domain.DiseaseRecord, len(records))
	copy(out, records)
	for i := range out {
		out[i].Precautions = normalize(out[i].Precautions)
		out[i].Medicines = normalize(out[i].Medicines)
	}
	return &Store{records: out}
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// Records returns all records in dataset order.
func (s *Store) Records() []domain.DiseaseRecord { return s.records }

// ByOrdinal resolves a record by its dataset position.
func (s *Store) ByOrdinal(i int) (domain.DiseaseRecord, bool) {
	if i < 0 || i >= len(s.records) {
		return domain.DiseaseRecord{}, false
	}
	return s.records[i], true
}

func normalize(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
