package models

import (
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

// MaxPasswordBytes is the longest password bcrypt can hash.
const MaxPasswordBytes = 72

// NewValidator returns a validator reporting fields by their JSON names and
// knowing the "passwordbytes" tag, which limits a string to MaxPasswordBytes
// bytes (not runes).
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for an empty tag or a nil func.
	_ = validate.RegisterValidation("passwordbytes", func(fieldLevel validator.FieldLevel) bool {
		return len(fieldLevel.Field().String()) <= MaxPasswordBytes
	})

	return validate
}
