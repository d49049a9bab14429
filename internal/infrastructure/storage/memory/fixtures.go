package memory

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"reportengine/internal/domain/reports"
)

// Fixtures is the file layout accepted by LoadFixtures:
//
//	invoices:
//	  org-1:
//	    - {id: inv-1, status: paid, amount: 100, issued_at: 2024-01-05}
type Fixtures map[string]map[string][]map[string]any

// LoadFixtures reads YAML (or JSON) fixtures into a new store.
func LoadFixtures(r io.Reader) (*Store, error) {
	var fx Fixtures
	if err := yaml.NewDecoder(r).Decode(&fx); err != nil {
		if err == io.EOF {
			return New(), nil
		}
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}

	s := New()
	for entity, byScope := range fx {
		for scope, rows := range byScope {
			converted := make([]reports.Row, len(rows))
			for i, r := range rows {
				converted[i] = reports.Row(r)
			}
			s.Add(entity, scope, converted...)
		}
	}
	return s, nil
}

// LoadFixturesFile opens path and calls LoadFixtures.
func LoadFixturesFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadFixtures(f)
}
