package layout

import (
	"github.com/pkg/errors"
)

// Outcome tells what a mutation did to the layout.
type Outcome int

const (
	Applied Outcome = iota
	NoOpNotFound
	NoOpAtBoundary
	NoOpEmpty // nothing to change, eg. an empty patch
)

var outcomeNames = map[Outcome]string{
	Applied:        "applied",
	NoOpNotFound:   "noop:not-found",
	NoOpAtBoundary: "noop:at-boundary",
	NoOpEmpty:      "noop:empty",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// IsNoOp reports whether the layout was returned unchanged.
func (o Outcome) IsNoOp() bool { return o != Applied }

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	for out, name := range outcomeNames {
		if name == string(text) {
			*o = out
			return nil
		}
	}
	return errors.Errorf("unknown outcome %q", text)
}

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// EnsureSections seeds an empty layout with the conventional header, body and footer sections.
func EnsureSections(l Layout) Layout {
	if len(l.Sections) > 0 {
		return l
	}
	sections := make([]Section, 0, len(DefaultSections))
	for _, typ := range DefaultSections {
		sections = append(sections, newSection(typ))
	}
	return Layout{Sections: sections}
}

func newSection(sectionType string) Section {
	return Section{Type: sectionType, Components: []Component{}, Styles: Styles{}}
}

// NewComponent builds a component of the given type seeded with the registry defaults.
func NewComponent(componentType string) Component {
	return Component{
		ID:     idFunc(),
		Type:   componentType,
		Data:   Default(componentType),
		Styles: Styles{},
	}
}

// AddComponent appends a new component of type componentType to the section sectionType,
// creating the section at the end of the layout if it does not exist yet.
func AddComponent(l Layout, sectionType, componentType string) (Layout, Component) {
	comp := NewComponent(componentType)

	i := l.sectionIndex(sectionType)
	if i < 0 {
		sec := newSection(sectionType)
		sec.Components = append(sec.Components, comp)

		sections := make([]Section, len(l.Sections), len(l.Sections)+1)
		copy(sections, l.Sections)
		return Layout{Sections: append(sections, sec)}, comp
	}

	sec := l.Sections[i]
	comps := make([]Component, len(sec.Components), len(sec.Components)+1)
	copy(comps, sec.Components)
	sec.Components = append(comps, comp)
	return l.withSection(i, sec), comp
}

// RemoveComponent drops the component with the given id from the section.
func RemoveComponent(l Layout, sectionType, id string) (Layout, Outcome) {
	i := l.sectionIndex(sectionType)
	if i < 0 {
		return l, NoOpNotFound
	}
	sec := l.Sections[i]
	if sec.componentIndex(id) < 0 {
		return l, NoOpNotFound
	}

	comps := make([]Component, 0, len(sec.Components)-1)
	for _, comp := range sec.Components {
		if comp.ID != id {
			comps = append(comps, comp)
		}
	}
	sec.Components = comps
	return l.withSection(i, sec), Applied
}

// PatchComponentData shallow-merges patch into the component's data:
// keys in patch overwrite, the others are preserved.
func PatchComponentData(l Layout, sectionType, id string, patch Data) (Layout, Outcome) {
	i := l.sectionIndex(sectionType)
	if i < 0 {
		return l, NoOpNotFound
	}
	sec := l.Sections[i]
	j := sec.componentIndex(id)
	if j < 0 {
		return l, NoOpNotFound
	}
	if len(patch) == 0 {
		return l, NoOpEmpty
	}

	comp := sec.Components[j]
	data := make(Data, len(comp.Data)+len(patch))
	for k, v := range comp.Data {
		data[k] = v
	}
	for k, v := range patch {
		data[k] = copyValue(v)
	}
	comp.Data = data

	comps := make([]Component, len(sec.Components))
	copy(comps, sec.Components)
	comps[j] = comp
	sec.Components = comps
	return l.withSection(i, sec), Applied
}

// MoveComponent swaps the component with its predecessor (Up) or successor (Down).
// The first component cannot move up and the last one cannot move down.
func MoveComponent(l Layout, sectionType, id string, dir Direction) (Layout, Outcome) {
	i := l.sectionIndex(sectionType)
	if i < 0 {
		return l, NoOpNotFound
	}
	sec := l.Sections[i]
	j := sec.componentIndex(id)
	if j < 0 {
		return l, NoOpNotFound
	}

	var k int
	switch dir {
	case Up:
		if j == 0 {
			return l, NoOpAtBoundary
		}
		k = j - 1
	case Down:
		if j == len(sec.Components)-1 {
			return l, NoOpAtBoundary
		}
		k = j + 1
	default:
		return l, NoOpNotFound
	}

	comps := make([]Component, len(sec.Components))
	copy(comps, sec.Components)
	comps[j], comps[k] = comps[k], comps[j]
	sec.Components = comps
	return l.withSection(i, sec), Applied
}
