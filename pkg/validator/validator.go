// Package validator wraps go-playground/validator with portal-specific rules.
package validator

import (
	"fmt"
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := &Validator{
		validate: validator.New(),
	}
	v.registerCustomValidations()
	return v
}

// Validate checks struct tags and returns a flat error message on failure.
func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var msgs []string
			for _, e := range validationErrors {
				msgs = append(msgs, fmt.Sprintf("Field '%s' failed validation '%s'", e.Field(), e.Tag()))
			}
			return fmt.Errorf("validation failed: %v", msgs)
		}
		return err
	}
	return nil
}

// entityCodeRe matches SAP-compatible business partner codes: uppercase
// alphanumerics, dash and underscore, up to 15 characters.
var entityCodeRe = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]{0,14}$`)

func (v *Validator) registerCustomValidations() {
	// decimal.Decimal validates as float64 for gt/gte checks
	v.validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if val, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := val.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = v.validate.RegisterValidation("entity_code", func(fl validator.FieldLevel) bool {
		return entityCodeRe.MatchString(fl.Field().String())
	})
}
