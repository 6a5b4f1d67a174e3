// Package service contains the business rules of the blog.
//
//	Handler (HTTP) → Service (validation, authorization) → Repository (store)
//
// Services take repository interfaces, not *sqlstore.DB, so tests can run
// them against in-memory fakes. Every failure a caller is expected to handle
// comes back as an *apperror.AppError; anything else is an internal error.
package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/blog/internal/apperror"
)

// validate is safe for concurrent use and caches struct metadata, so one
// instance serves every request.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their form name so handlers can match errors to inputs.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// fieldLabels are the names users see on the forms.
var fieldLabels = map[string]string{
	"name":     "Username",
	"email":    "Email",
	"password": "Password",
	"title":    "Title",
	"subtitle": "Subtitle",
	"img_url":  "Blog Image URL",
	"body":     "Blog Content",
	"text":     "Comment",
}

// validateInput runs the struct's validate tags and turns the first failure
// into an apperror.ErrValidation naming the offending form field.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("service: validating input: %w", err)
	}

	fe := verrs[0]
	return apperror.ValidationFailed(fe.Field(), validationMessage(fe))
}

func validationMessage(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}

	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "email":
		return "Invalid email address."
	case "url":
		return "Invalid URL."
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	}
	return fmt.Sprintf("%s is invalid.", label)
}
