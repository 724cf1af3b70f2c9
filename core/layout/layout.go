// Package layout holds the page composition model edited by the page builder:
// a Layout is an ordered list of named sections, each holding an ordered list
// of typed components. Every operation is pure: it returns a new Layout and
// leaves its input untouched.
package layout

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conventional section types.
const (
	SectionHeader = "header"
	SectionBody   = "body"
	SectionFooter = "footer"
)

var (
	DefaultSections = []string{SectionHeader, SectionBody, SectionFooter}

	nowFunc = time.Now // mockable
	idFunc  = newComponentID
)

type (
	// Data is the per-type payload of a Component. Its shape is only known to the editor forms.
	Data map[string]interface{}

	// Styles holds visual overrides. It is never interpreted here.
	Styles map[string]interface{}

	Component struct {
		ID     string `json:"id" yaml:"id"`
		Type   string `json:"type" yaml:"type"`
		Data   Data   `json:"data" yaml:"data"`
		Styles Styles `json:"styles" yaml:"styles"`
	}

	Section struct {
		Type       string      `json:"type" yaml:"type"`
		Components []Component `json:"components" yaml:"components"`
		Styles     Styles      `json:"styles" yaml:"styles"`
	}

	Layout struct {
		Sections []Section `json:"sections" yaml:"sections"`
	}
)

// newComponentID combines a millisecond timestamp with a random suffix.
func newComponentID() string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:9]
	return "comp-" + strconv.FormatInt(nowFunc().UnixNano()/int64(time.Millisecond), 10) + "-" + suffix
}

// Section returns the section of the given type.
func (l Layout) Section(sectionType string) (Section, bool) {
	if i := l.sectionIndex(sectionType); i >= 0 {
		return l.Sections[i], true
	}
	return Section{}, false
}

// Component returns the component with the given id in the given section.
func (l Layout) Component(sectionType, id string) (Component, bool) {
	sec, ok := l.Section(sectionType)
	if !ok {
		return Component{}, false
	}
	if i := sec.componentIndex(id); i >= 0 {
		return sec.Components[i], true
	}
	return Component{}, false
}

// Clone returns a deep copy of the layout.
func (l Layout) Clone() Layout {
	if l.Sections == nil {
		return Layout{}
	}
	sections := make([]Section, len(l.Sections))
	for i, sec := range l.Sections {
		sections[i] = sec.clone()
	}
	return Layout{Sections: sections}
}

func (l Layout) sectionIndex(sectionType string) int {
	for i, sec := range l.Sections {
		if sec.Type == sectionType {
			return i
		}
	}
	return -1
}

// withSection returns a copy of l whose i-th section is replaced by sec.
// Other sections are shared with l.
func (l Layout) withSection(i int, sec Section) Layout {
	sections := make([]Section, len(l.Sections))
	copy(sections, l.Sections)
	sections[i] = sec
	return Layout{Sections: sections}
}

func (sec Section) componentIndex(id string) int {
	for i, comp := range sec.Components {
		if comp.ID == id {
			return i
		}
	}
	return -1
}

func (sec Section) clone() Section {
	c := Section{Type: sec.Type, Styles: Styles(copyMap(sec.Styles))}
	if sec.Components != nil {
		c.Components = make([]Component, len(sec.Components))
		for i, comp := range sec.Components {
			c.Components[i] = comp.clone()
		}
	}
	return c
}

func (comp Component) clone() Component {
	return Component{
		ID:     comp.ID,
		Type:   comp.Type,
		Data:   Data(copyMap(comp.Data)),
		Styles: Styles(copyMap(comp.Styles)),
	}
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	c := make(map[string]interface{}, len(m))
	for k, v := range m {
		c[k] = copyValue(v)
	}
	return c
}

func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return copyMap(val)
	case Data:
		return Data(copyMap(val))
	case []interface{}:
		s := make([]interface{}, len(val))
		for i, item := range val {
			s[i] = copyValue(item)
		}
		return s
	case []map[string]interface{}:
		s := make([]map[string]interface{}, len(val))
		for i, item := range val {
			s[i] = copyMap(item)
		}
		return s
	case []string:
		return append([]string(nil), val...)
	default:
		return val
	}
}
