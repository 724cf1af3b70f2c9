package layout

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/pagebuilder/core"
)

var ErrInvalidLayout = errors.New("invalid layout")

// Validate checks the structural invariants of a whole layout submitted at once:
// section types are set and unique, component ids are set and unique across the layout,
// and component types are set.
func Validate(l Layout) error {
	var flds []core.FieldError
	sections := make(map[string]int, len(l.Sections))
	ids := make(map[string]string)

	for i, sec := range l.Sections {
		secPath := fmt.Sprintf("sections[%d]", i)
		switch {
		case strings.TrimSpace(sec.Type) == "":
			flds = append(flds, core.FieldError{Field: secPath + ".type", Error: "section type is required"})
		default:
			if prev, dup := sections[sec.Type]; dup {
				flds = append(flds, core.FieldError{
					Field: secPath + ".type",
					Error: fmt.Sprintf("section type %q already used by sections[%d]", sec.Type, prev),
				})
			} else {
				sections[sec.Type] = i
			}
		}

		for j, comp := range sec.Components {
			compPath := fmt.Sprintf("%s.components[%d]", secPath, j)
			if strings.TrimSpace(comp.Type) == "" {
				flds = append(flds, core.FieldError{Field: compPath + ".type", Error: "component type is required"})
			}
			if strings.TrimSpace(comp.ID) == "" {
				flds = append(flds, core.FieldError{Field: compPath + ".id", Error: "component id is required"})
				continue
			}
			if prev, dup := ids[comp.ID]; dup {
				flds = append(flds, core.FieldError{
					Field: compPath + ".id",
					Error: fmt.Sprintf("component id %q already used by %s", comp.ID, prev),
				})
				continue
			}
			ids[comp.ID] = compPath
		}
	}

	if len(flds) > 0 {
		return core.NewValidationError(ErrInvalidLayout, flds...)
	}
	return nil
}

// Normalize fills in the optional collections of a decoded layout
// so that it serializes with every field present.
func Normalize(l Layout) Layout {
	nl := l.Clone()
	if nl.Sections == nil {
		nl.Sections = []Section{}
	}
	for i := range nl.Sections {
		sec := &nl.Sections[i]
		if sec.Components == nil {
			sec.Components = []Component{}
		}
		if sec.Styles == nil {
			sec.Styles = Styles{}
		}
		for j := range sec.Components {
			comp := &sec.Components[j]
			if comp.Data == nil {
				comp.Data = Data{}
			}
			if comp.Styles == nil {
				comp.Styles = Styles{}
			}
		}
	}
	return nl
}
