package layout

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pagebuilder/core"
)

func TestValidate(t *testing.T) {
	comp := func(id, typ string) Component { return Component{ID: id, Type: typ} }

	tests := []struct {
		name       string
		layout     Layout
		wantFields []string
	}{
		{name: "empty", layout: Layout{}},
		{name: "defaults", layout: EnsureSections(Layout{})},
		{
			name: "valid",
			layout: Layout{Sections: []Section{
				{Type: "header", Components: []Component{comp("a", "navigation")}},
				{Type: "body", Components: []Component{comp("b", "hero"), comp("c", "unknown-type")}},
			}},
		},
		{
			name:       "blank section type",
			layout:     Layout{Sections: []Section{{Type: " "}}},
			wantFields: []string{"sections[0].type"},
		},
		{
			name:       "duplicate section type",
			layout:     Layout{Sections: []Section{{Type: "body"}, {Type: "footer"}, {Type: "body"}}},
			wantFields: []string{"sections[2].type"},
		},
		{
			name: "duplicate component id across sections",
			layout: Layout{Sections: []Section{
				{Type: "header", Components: []Component{comp("a", "navigation")}},
				{Type: "body", Components: []Component{comp("a", "hero")}},
			}},
			wantFields: []string{"sections[1].components[0].id"},
		},
		{
			name: "blank component fields",
			layout: Layout{Sections: []Section{
				{Type: "body", Components: []Component{comp("", "")}},
			}},
			wantFields: []string{"sections[0].components[0].type", "sections[0].components[0].id"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.layout)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, ErrInvalidLayout, errors.Cause(err).(*core.ValidationError).Err)

			var got []string
			for _, f := range err.(*core.ValidationError).Fields {
				got = append(got, f.Field)
			}
			assert.Equal(t, tt.wantFields, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	l := Normalize(Layout{Sections: []Section{{Type: "body", Components: []Component{{ID: "a", Type: "text"}}}}})
	sec := l.Sections[0]
	assert.NotNil(t, sec.Styles)
	assert.NotNil(t, sec.Components[0].Data)
	assert.NotNil(t, sec.Components[0].Styles)

	assert.Equal(t, []Section{}, Normalize(Layout{}).Sections)
}
