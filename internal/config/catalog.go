package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
)

type catalogFile struct {
	Criteria []struct {
		ID           string `yaml:"id"`
		Name         string `yaml:"name"`
		DocumentType string `yaml:"document_type"`
		Subcriteria  []struct {
			ID               string `yaml:"id"`
			Name             string `yaml:"name"`
			EmployeeRequired bool   `yaml:"employee_required"`
			MultipleRequired bool   `yaml:"multiple_required"`
		} `yaml:"subcriteria"`
	} `yaml:"criteria"`
	Pairings []struct {
		ID           string `yaml:"id"`
		ProjectID    string `yaml:"project_id"`
		ContractorID string `yaml:"contractor_id"`
	} `yaml:"pairings"`
}

// LoadCatalog reads reference data to seed at startup. Subcriteria are
// nested under their criterion in the file.
func LoadCatalog(path string) (domain.Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return parseCatalog(raw)
}

func parseCatalog(raw []byte) (domain.Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return domain.Catalog{}, domain.WrapError(domain.ErrInvalidInput, "parse catalog", err)
	}

	var catalog domain.Catalog
	for _, cr := range file.Criteria {
		catalog.Criteria = append(catalog.Criteria, domain.Criterion{
			ID:           cr.ID,
			Name:         cr.Name,
			DocumentType: domain.DocumentType(cr.DocumentType),
		})
		for _, sub := range cr.Subcriteria {
			catalog.Subcriteria = append(catalog.Subcriteria, domain.Subcriterion{
				ID:               sub.ID,
				CriterionID:      cr.ID,
				Name:             sub.Name,
				Slot:             domain.SlotRuleFor(sub.EmployeeRequired),
				MultipleRequired: sub.MultipleRequired,
			})
		}
	}
	for _, p := range file.Pairings {
		catalog.Pairings = append(catalog.Pairings, domain.Pairing{
			ID:           p.ID,
			ProjectID:    p.ProjectID,
			ContractorID: p.ContractorID,
		})
	}
	if err := catalog.Validate(); err != nil {
		return domain.Catalog{}, err
	}
	return catalog, nil
}
