// Package validation enforces the structural schemas of incoming payloads.
// Every check collects all violated constraints instead of stopping at the first.
package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report wire names rather than Go field names.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	v.RegisterStructValidation(requireAnyEditField, EditMessageRequest{})
	return v
}

// requireAnyEditField rejects an edit that would change nothing.
func requireAnyEditField(sl validator.StructLevel) {
	req := sl.Current().Interface().(EditMessageRequest)
	if req.To == nil && req.Text == nil && req.Kind == nil {
		sl.ReportError("", "patch", "patch", "required_one_of", "to text type")
	}
}

type JoinRequest struct {
	Name string `json:"name" validate:"required"`
}

type SendMessageRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
	Text string `json:"text" validate:"required"`
	Kind string `json:"type" validate:"required,oneof=message private_message"`
	Time string `json:"time" validate:"required"`
}

// EditMessageRequest is a partial update: nil fields are left untouched,
// present fields follow the SendMessageRequest rules.
type EditMessageRequest struct {
	To   *string `json:"to" validate:"omitnil,min=1"`
	Text *string `json:"text" validate:"omitnil,min=1"`
	Kind *string `json:"type" validate:"omitnil,oneof=message private_message"`
}

type LimitRequest struct {
	Limit int `json:"limit" validate:"min=1"`
}

// Violation is one failed constraint on one field.
type Violation struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// Violations lists every constraint a payload failed.
type Violations []Violation

func (v Violations) Error() string {
	parts := lo.Map(v, func(item Violation, _ int) string {
		if item.Param != "" {
			return fmt.Sprintf("%s: %s=%s", item.Field, item.Rule, item.Param)
		}
		return fmt.Sprintf("%s: %s", item.Field, item.Rule)
	})
	return strings.Join(parts, "; ")
}

func ValidateJoin(req JoinRequest) error {
	return check(req)
}

func ValidateSendMessage(req SendMessageRequest) error {
	return check(req)
}

func ValidateEditMessage(req EditMessageRequest) error {
	return check(req)
}

// ValidateLimit parses an optional raw limit. An empty raw value means no limit
// and yields nil.
func ValidateLimit(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, Violations{{Field: "limit", Rule: "integer"}}
	}
	if err = check(LimitRequest{Limit: limit}); err != nil {
		return nil, err
	}
	return &limit, nil
}

func check(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !stderrors.As(err, &fieldErrors) {
		return err
	}
	return Violations(lo.Map(fieldErrors, func(fe validator.FieldError, _ int) Violation {
		return Violation{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()}
	}))
}
