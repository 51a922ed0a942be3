package record

// Component is one named entry of a composition list, e.g. ("DMC", 50).
// Value is a percentage for solvents and a molality for salts.
type Component struct {
	Name  string
	Value float64
}

// Experiment is a validated record ready for the upsert engine.
//
// Components is keyed by component category name ("Solvents", "Salts").
// A category with no entries may be absent or hold an empty slice; both
// write zero component rows.
type Experiment struct {
	ID         string
	Fields     Fields
	Components map[string][]Component
}

// Identify derives the content ID from the experiment's fields and stores it
// on the experiment. Any previously set ID is overwritten.
func (e *Experiment) Identify() (string, error) {
	id, err := DeriveID(e.Fields)
	if err != nil {
		return "", err
	}
	e.ID = id
	return id, nil
}
