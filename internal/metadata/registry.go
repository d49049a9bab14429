// Package metadata holds the field registry: which entities can be reported on,
// which fields they expose, and what each field may be used for.
package metadata

import (
	"fmt"
	"sort"
)

// FieldType defines the data type of a field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeDate    FieldType = "date"
	TypeBoolean FieldType = "boolean"
	TypeEnum    FieldType = "enum"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeDate, TypeBoolean, TypeEnum:
		return true
	}
	return false
}

// EntityDef describes a reportable entity.
type EntityDef struct {
	Name  string `json:"name"`
	Label string `json:"label,omitempty"`

	// TableName is the storage table the retrieval adapter reads.
	TableName string `json:"-"`

	// ScopeColumn holds the organization id used for scoping.
	ScopeColumn string `json:"-"`

	// KeyField names the field that identifies a row uniquely. Retrieval
	// orders by it last so limited reads are repeatable. Defaults to "id".
	KeyField string `json:"-"`

	Fields []FieldDef `json:"fields"`
}

// Key returns the unique key field, if the entity has one.
func (e EntityDef) Key() (FieldDef, bool) {
	name := e.KeyField
	if name == "" {
		name = "id"
	}
	return e.Field(name)
}

// FieldDef describes one queryable attribute and its capabilities.
type FieldDef struct {
	Name  string    `json:"name"`
	Label string    `json:"label,omitempty"`
	Type  FieldType `json:"type"`

	// Column is the storage column name (defaults to Name).
	Column string `json:"-"`

	Filterable   bool `json:"filterable"`
	Groupable    bool `json:"groupable"`
	Sortable     bool `json:"sortable"`
	Aggregatable bool `json:"aggregatable"`

	// Options is the enumerated domain of an enum field.
	Options []string `json:"options,omitempty"`
}

// Field returns the named field of the entity.
func (e EntityDef) Field(name string) (FieldDef, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// FieldNames returns field names in declaration order.
func (e EntityDef) FieldNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Name
	}
	return names
}

// HasOption reports whether v belongs to the enum domain.
// Fields without a domain accept any value.
func (f FieldDef) HasOption(v string) bool {
	if len(f.Options) == 0 {
		return true
	}
	for _, o := range f.Options {
		if o == v {
			return true
		}
	}
	return false
}

// Registry stores entity definitions.
// It is populated once at startup and only read afterwards, so concurrent
// report executions can share it without locking.
type Registry struct {
	entities map[string]EntityDef
}

func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]EntityDef),
	}
}

// Register adds an entity definition. Names must be unique.
func (r *Registry) Register(def EntityDef) error {
	if def.Name == "" {
		return fmt.Errorf("entity name is required")
	}
	if _, exists := r.entities[def.Name]; exists {
		return fmt.Errorf("entity %q already registered", def.Name)
	}

	seen := make(map[string]struct{}, len(def.Fields))
	for i, f := range def.Fields {
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("entity %q: duplicate field %q", def.Name, f.Name)
		}
		seen[f.Name] = struct{}{}
		if !f.Type.Valid() {
			return fmt.Errorf("entity %q: field %q has unknown type %q", def.Name, f.Name, f.Type)
		}
		if f.Column == "" {
			def.Fields[i].Column = f.Name
		}
	}

	if def.KeyField != "" {
		if _, ok := def.Field(def.KeyField); !ok {
			return fmt.Errorf("entity %q: key field %q is not a field", def.Name, def.KeyField)
		}
	}

	r.entities[def.Name] = def
	return nil
}

// MustRegister is Register for static setup code.
func (r *Registry) MustRegister(def EntityDef) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

func (r *Registry) Get(name string) (EntityDef, bool) {
	d, ok := r.entities[name]
	return d, ok
}

// Field looks up a single field of an entity.
func (r *Registry) Field(entity, field string) (FieldDef, bool) {
	d, ok := r.entities[entity]
	if !ok {
		return FieldDef{}, false
	}
	return d.Field(field)
}

// List returns all entities ordered by name.
func (r *Registry) List() []EntityDef {
	list := make([]EntityDef, 0, len(r.entities))
	for _, def := range r.entities {
		list = append(list, def)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
