package domain

import "strings"

// Catalog is the reference data the service reads but does not own: criteria,
// their subcriteria and the contractor-on-project pairings.
type Catalog struct {
	Criteria    []Criterion
	Subcriteria []Subcriterion
	Pairings    []Pairing
}

func (c Catalog) Empty() bool {
	return len(c.Criteria) == 0 && len(c.Subcriteria) == 0 && len(c.Pairings) == 0
}

func (c Catalog) Validate() error {
	criteria := make(map[string]struct{}, len(c.Criteria))
	for _, cr := range c.Criteria {
		if strings.TrimSpace(cr.ID) == "" || strings.TrimSpace(cr.Name) == "" {
			return invalidInput("validate catalog", "criterion id and name are required")
		}
		if strings.TrimSpace(string(cr.DocumentType)) == "" {
			return invalidInput("validate catalog", "criterion %s: document_type is required", cr.ID)
		}
		criteria[cr.ID] = struct{}{}
	}
	for _, sub := range c.Subcriteria {
		if strings.TrimSpace(sub.ID) == "" || strings.TrimSpace(sub.Name) == "" {
			return invalidInput("validate catalog", "subcriterion id and name are required")
		}
		if _, ok := criteria[sub.CriterionID]; !ok {
			return invalidInput("validate catalog", "subcriterion %s references unknown criterion %q", sub.ID, sub.CriterionID)
		}
	}
	for _, p := range c.Pairings {
		if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.ProjectID) == "" || strings.TrimSpace(p.ContractorID) == "" {
			return invalidInput("validate catalog", "pairing id, project_id and contractor_id are required")
		}
	}
	return nil
}
