package domain

// DocumentType classifies criteria; completion is scoped to one type.
type DocumentType string

const DocumentTypeIntake DocumentType = "intake"

type Criterion struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	DocumentType DocumentType `json:"document_type"`
}

// SlotRule decides how many documents a subcriterion expects from a pairing.
// The only implementations are PerPairingSlot and PerEmployeeSlot.
type SlotRule interface {
	// Slots returns the number of expected documents for a roster of the given size.
	Slots(employeeCount int) int
	// CheckEmployee rejects documents whose employee slot contradicts the rule.
	CheckEmployee(employeeID string) error
	String() string

	slotRule()
}

// PerPairingSlot expects exactly one document for the whole pairing.
type PerPairingSlot struct{}

func (PerPairingSlot) Slots(int) int { return 1 }

func (PerPairingSlot) CheckEmployee(employeeID string) error {
	if employeeID != "" {
		return invalidInput("check slot", "subcriterion expects a pairing-wide document, got employee %s", employeeID)
	}
	return nil
}

func (PerPairingSlot) String() string { return "per_pairing" }
func (PerPairingSlot) slotRule()      {}

// PerEmployeeSlot expects one document per employee on the roster. An empty
// roster means no slots at all.
type PerEmployeeSlot struct{}

func (PerEmployeeSlot) Slots(employeeCount int) int {
	if employeeCount < 0 {
		return 0
	}
	return employeeCount
}

func (PerEmployeeSlot) CheckEmployee(employeeID string) error {
	if employeeID == "" {
		return invalidInput("check slot", "subcriterion expects one document per employee, employee_id is required")
	}
	return nil
}

func (PerEmployeeSlot) String() string { return "per_employee" }
func (PerEmployeeSlot) slotRule()      {}

// SlotRuleFor maps the persisted employee_required flag to its rule.
func SlotRuleFor(employeeRequired bool) SlotRule {
	if employeeRequired {
		return PerEmployeeSlot{}
	}
	return PerPairingSlot{}
}

// EmployeeRequired is the inverse of SlotRuleFor.
func EmployeeRequired(rule SlotRule) bool {
	_, ok := rule.(PerEmployeeSlot)
	return ok
}

type Subcriterion struct {
	ID               string   `json:"id"`
	CriterionID      string   `json:"criterion_id"`
	Name             string   `json:"name"`
	Slot             SlotRule `json:"-"`
	MultipleRequired bool     `json:"multiple_required"`
}

func (s Subcriterion) rule() SlotRule {
	if s.Slot == nil {
		return PerPairingSlot{}
	}
	return s.Slot
}

func (s Subcriterion) ExpectedSlots(employeeCount int) int {
	return s.rule().Slots(employeeCount)
}

func (s Subcriterion) CheckEmployee(employeeID string) error {
	return s.rule().CheckEmployee(employeeID)
}

// TotalSlots sums the expected documents of every subcriterion for a roster size.
func TotalSlots(subcriteria []Subcriterion, employeeCount int) int {
	total := 0
	for _, sub := range subcriteria {
		total += sub.ExpectedSlots(employeeCount)
	}
	return total
}

func SubcriterionIDs(subcriteria []Subcriterion) []string {
	ids := make([]string, 0, len(subcriteria))
	for _, sub := range subcriteria {
		ids = append(ids, sub.ID)
	}
	return ids
}

// CriterionIDs returns the distinct parent criteria in first-seen order.
func CriterionIDs(subcriteria []Subcriterion) []string {
	seen := make(map[string]struct{}, len(subcriteria))
	ids := make([]string, 0, len(subcriteria))
	for _, sub := range subcriteria {
		if _, ok := seen[sub.CriterionID]; ok {
			continue
		}
		seen[sub.CriterionID] = struct{}{}
		ids = append(ids, sub.CriterionID)
	}
	return ids
}
