package persistence

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/asset-desk/internal/domain"
)

type supplierCatalog struct {
	Suppliers []supplierEntry `yaml:"suppliers"`
}

type supplierEntry struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	SLAHours int    `yaml:"sla_hours"`
	Active   *bool  `yaml:"active"`
}

// LoadSupplierCatalog reads a YAML supplier catalog. Entries default to
// active and category "other"; validation is left to the supplier service.
func LoadSupplierCatalog(path string) ([]domain.Supplier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read supplier catalog: %w", err)
	}
	return ParseSupplierCatalog(raw)
}

// ParseSupplierCatalog decodes catalog bytes.
func ParseSupplierCatalog(raw []byte) ([]domain.Supplier, error) {
	var catalog supplierCatalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("decode supplier catalog: %w", err)
	}
	suppliers := make([]domain.Supplier, 0, len(catalog.Suppliers))
	seen := make(map[string]struct{}, len(catalog.Suppliers))
	for _, entry := range catalog.Suppliers {
		if _, dup := seen[entry.ID]; dup && entry.ID != "" {
			return nil, fmt.Errorf("supplier catalog: duplicate id %q", entry.ID)
		}
		seen[entry.ID] = struct{}{}

		category := domain.SupplierCategory(entry.Category)
		if category == "" {
			category = domain.SupplierCategoryOther
		}
		active := true
		if entry.Active != nil {
			active = *entry.Active
		}
		suppliers = append(suppliers, domain.Supplier{
			ID:       entry.ID,
			Name:     entry.Name,
			Category: category,
			SLAHours: entry.SLAHours,
			Active:   active,
		})
	}
	return suppliers, nil
}
