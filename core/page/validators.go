package page

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/pagebuilder/core"
	"github.com/trezcool/pagebuilder/core/layout"
)

var (
	directionTag  = "direction"
	directionText = "direction must be one of: up, down"

	componentTypeTag   = "component_type"
	componentTypeText  = "component type must be a lowercase tag (eg. course-card)"
	componentTypeRegex = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
)

// InitValidators registers the page builder validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(directionTag, directionValidation)
	core.RegisterCustomTranslation(validate, translator, directionTag, directionText)

	_ = validate.RegisterValidation(componentTypeTag, componentTypeValidation)
	core.RegisterCustomTranslation(validate, translator, componentTypeTag, componentTypeText)
}

// Custom Validators

func directionValidation(fl validator.FieldLevel) bool {
	switch layout.Direction(fl.Field().String()) {
	case layout.Up, layout.Down:
		return true
	}
	return false
}

// componentTypeValidation accepts unregistered types too: the set of component types is open.
func componentTypeValidation(fl validator.FieldLevel) bool {
	return componentTypeRegex.MatchString(fl.Field().String())
}
