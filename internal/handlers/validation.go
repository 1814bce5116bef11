package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON names so messages match the request body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// formatValidationError maps each failing field to a readable message.
func formatValidationError(err error) map[string]string {
	messages := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		messages["body"] = err.Error()
		return messages
	}

	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			messages[field] = fmt.Sprintf("%s is required", field)
		case "min":
			messages[field] = fmt.Sprintf("%s must be at least %s characters", field, e.Param())
		case "max":
			messages[field] = fmt.Sprintf("%s must be at most %s characters", field, e.Param())
		case "gte":
			messages[field] = fmt.Sprintf("%s must be greater than or equal to %s", field, e.Param())
		default:
			messages[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return messages
}
