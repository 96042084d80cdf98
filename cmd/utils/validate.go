package utils

import (
	"errors"
	"fmt"
	"html"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	validate     *validator.Validate
	strictPolicy = bluemonday.StrictPolicy()
)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// Validate checks struct tags and reports the first failure as a 400.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return BadRequest("Invalid request")
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return BadRequest(fmt.Sprintf("%s is required", fe.Field()))
	case "max":
		return BadRequest(fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
	case "min":
		return BadRequest(fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
	case "email":
		return BadRequest("Invalid email address")
	case "oneof":
		return BadRequest(fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
	case "len":
		return BadRequest(fmt.Sprintf("%s must be %s characters", fe.Field(), fe.Param()))
	default:
		return BadRequest(fmt.Sprintf("%s is invalid", fe.Field()))
	}
}

// SanitizeText strips all markup from user supplied text.
func SanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}
