package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// fieldMessages maps a validation tag to a message template taking the
// lowercased field name and, where meaningful, the tag parameter.
var fieldMessages = map[string]string{
	"required": "%s is required",
	"min":      "%s must be at least %s characters",
	"max":      "%s must be at most %s characters",
	"email":    "%s must be a valid email",
	"gte":      "%s must be at least %s",
	"lte":      "%s must be at most %s",
	"gt":       "%s must be greater than %s",
	"oneof":    "%s must be one of: %s",
}

// ValidateStruct runs the struct's validate tags and flattens any
// violations into one readable error, fields joined with "; ".
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var violations validator.ValidationErrors
	if !errors.As(err, &violations) {
		return err
	}

	msgs := make([]string, len(violations))
	for i, v := range violations {
		msgs[i] = fieldMessage(v)
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(v validator.FieldError) string {
	field := strings.ToLower(v.Field())

	template, ok := fieldMessages[v.Tag()]
	if !ok {
		return field + " is invalid"
	}
	if strings.Count(template, "%s") == 2 {
		return fmt.Sprintf(template, field, v.Param())
	}
	return fmt.Sprintf(template, field)
}
