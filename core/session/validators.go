package session

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/umahiri/core"
)

var (
	validate *validator.Validate

	// custom validation tags & texts
	statusTag  = "session_status"
	statusText = "must be one of NOT_TAUGHT, TAUGHT_REPEAT or MASTERED"
)

// InitValidators registers this package's custom validators.
func InitValidators(v *validator.Validate, translator ut.Translator) {
	validate = v
	_ = v.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(v, translator, statusTag, statusText)
}

func statusValidation(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).Valid()
}

// Validate checks an update payload's shape; a nil validator (validators
// not initialized) skips the check.
func (us *UpdateSession) Validate() error {
	if validate == nil {
		return nil
	}
	return validate.Struct(us)
}
