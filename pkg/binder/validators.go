package binder

import (
	"github.com/bibstack/bibstack/pkg/bibcodes"
	"github.com/go-playground/validator/v10"
)

// bibcodeValidator validates that the field is a structurally valid bibcode.
func bibcodeValidator(fl validator.FieldLevel) bool {
	return bibcodes.Valid(bibcodes.Normalize(fl.Field().String()))
}
