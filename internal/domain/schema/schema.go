package schema

import (
	"fmt"
	"slices"
)

// StepKind classifies how a wizard step collects its value.
type StepKind int

const (
	// KindChoice restricts the answer to one of the step's Options, verbatim.
	KindChoice StepKind = iota
	// KindText accepts free text; media payloads are rejected.
	KindText
	// KindPhoto requires a photo attachment; only a reference is stored until
	// commit time.
	KindPhoto
)

// Step is one question inside an item type's wizard flow.
type Step struct {
	Key      string
	Prompt   string
	Kind     StepKind
	Options  []string
	Required bool
	// Numeric marks a text step whose answer must be an unsigned integer.
	Numeric bool
}

// ItemTypeSchema is the immutable, process-wide description of one trackable
// item type: its worksheet, the ordered wizard steps, and the fields that
// together identify a record.
type ItemTypeSchema struct {
	Name      string
	SheetName string
	Steps     []Step

	// NaturalKey lists the fields whose combination must be unique within the
	// sheet. SymmetricPair optionally names two of them that match as an
	// unordered pair (e.g. the two connector ends of a cable).
	NaturalKey    []string
	SymmetricPair [2]string

	// QuantityField names the mutable numeric column, empty for unit-tracked
	// types where every physical item is its own row.
	QuantityField string

	DisplayGroupBy []string
	// SortBy, when set, triggers a stable sort plus full renumber after every
	// insert so the sheet stays grouped.
	SortBy string
	// PhotoFolderField names the collected field whose value selects the
	// Drive folder for the photo upload.
	PhotoFolderField string
}

// HasQuantity reports whether the schema tracks a mutable stock count.
func (s ItemTypeSchema) HasQuantity() bool { return s.QuantityField != "" }

// HasSymmetricPair reports whether two key fields match order-insensitively.
func (s ItemTypeSchema) HasSymmetricPair() bool {
	return s.SymmetricPair[0] != "" && s.SymmetricPair[1] != ""
}

// PhotoStep returns the photo step's key, or "" when the schema has none.
func (s ItemTypeSchema) PhotoStep() string {
	for _, step := range s.Steps {
		if step.Kind == KindPhoto {
			return step.Key
		}
	}
	return ""
}

// NaturalKeyFrom extracts the natural key fields from a collected value map.
func (s ItemTypeSchema) NaturalKeyFrom(values map[string]string) map[string]string {
	key := make(map[string]string, len(s.NaturalKey))
	for _, field := range s.NaturalKey {
		key[field] = values[field]
	}
	return key
}

// KeyMatches reports whether the stored fields carry the given natural key.
// The symmetric pair, if declared, matches in either order: (A,B) equals a
// stored (B,A).
func (s ItemTypeSchema) KeyMatches(fields, key map[string]string) bool {
	for _, field := range s.NaturalKey {
		if s.HasSymmetricPair() && (field == s.SymmetricPair[0] || field == s.SymmetricPair[1]) {
			continue
		}
		if fields[field] != key[field] {
			return false
		}
	}
	if !s.HasSymmetricPair() {
		return true
	}
	a1, a2 := fields[s.SymmetricPair[0]], fields[s.SymmetricPair[1]]
	b1, b2 := key[s.SymmetricPair[0]], key[s.SymmetricPair[1]]
	return (a1 == b1 && a2 == b2) || (a1 == b2 && a2 == b1)
}

// Columns returns the sheet columns the schema requires, sequence column
// first, in step order.
func (s ItemTypeSchema) Columns() []string {
	cols := make([]string, 0, len(s.Steps)+1)
	cols = append(cols, SequenceColumn)
	for _, step := range s.Steps {
		cols = append(cols, step.Key)
	}
	return cols
}

// SequenceColumn is the display-only dense row number column present in
// every item sheet.
const SequenceColumn = "No"

// Registry is a pure lookup over the configured item type schemas. It is
// built once at startup; an invalid schema set is a fatal configuration
// error, never a per-request failure.
type Registry struct {
	schemas map[string]ItemTypeSchema
	order   []string
}

// NewRegistry validates the provided schemas and indexes them by name.
func NewRegistry(schemas ...ItemTypeSchema) (*Registry, error) {
	r := &Registry{schemas: make(map[string]ItemTypeSchema, len(schemas))}
	for _, s := range schemas {
		if err := validateSchema(s); err != nil {
			return nil, fmt.Errorf("schema %q: %w", s.Name, err)
		}
		if _, exists := r.schemas[s.Name]; exists {
			return nil, fmt.Errorf("schema %q declared twice", s.Name)
		}
		r.schemas[s.Name] = s
		r.order = append(r.order, s.Name)
	}
	if len(r.order) == 0 {
		return nil, fmt.Errorf("no item type schemas configured")
	}
	return r, nil
}

// SchemaFor looks up the schema for an item type.
func (r *Registry) SchemaFor(itemType string) (ItemTypeSchema, error) {
	s, ok := r.schemas[itemType]
	if !ok {
		return ItemTypeSchema{}, fmt.Errorf("unknown item type %q", itemType)
	}
	return s, nil
}

// StepAt returns the i-th wizard step of an item type.
func (r *Registry) StepAt(itemType string, index int) (Step, error) {
	s, err := r.SchemaFor(itemType)
	if err != nil {
		return Step{}, err
	}
	if index < 0 || index >= len(s.Steps) {
		return Step{}, fmt.Errorf("item type %q has no step %d", itemType, index)
	}
	return s.Steps[index], nil
}

// Types returns the configured item type names in declaration order.
func (r *Registry) Types() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func validateSchema(s ItemTypeSchema) error {
	if s.Name == "" {
		return fmt.Errorf("name is empty")
	}
	if s.SheetName == "" {
		return fmt.Errorf("sheet name is empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("no steps declared")
	}

	keys := make(map[string]bool, len(s.Steps))
	for i, step := range s.Steps {
		if step.Key == "" {
			return fmt.Errorf("step %d has no key", i)
		}
		if keys[step.Key] {
			return fmt.Errorf("step key %q declared twice", step.Key)
		}
		keys[step.Key] = true
		if step.Kind == KindChoice && len(step.Options) == 0 {
			return fmt.Errorf("choice step %q has no options", step.Key)
		}
	}

	if len(s.NaturalKey) == 0 {
		return fmt.Errorf("no natural key fields declared")
	}
	for _, field := range s.NaturalKey {
		if !keys[field] {
			return fmt.Errorf("natural key field %q is not a step", field)
		}
	}
	if s.HasSymmetricPair() {
		if !slices.Contains(s.NaturalKey, s.SymmetricPair[0]) || !slices.Contains(s.NaturalKey, s.SymmetricPair[1]) {
			return fmt.Errorf("symmetric pair fields must be part of the natural key")
		}
	}
	if s.QuantityField != "" && !keys[s.QuantityField] {
		return fmt.Errorf("quantity field %q is not a step", s.QuantityField)
	}
	if s.PhotoFolderField != "" && !keys[s.PhotoFolderField] {
		return fmt.Errorf("photo folder field %q is not a step", s.PhotoFolderField)
	}
	return nil
}
