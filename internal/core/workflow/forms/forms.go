// Package forms validates workflow input and reports typed per-field errors.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	imeiPattern    = regexp.MustCompile(`^\d{15}$`)
	dzPhonePattern = regexp.MustCompile(`^(\+213|0)(5|6|7)\d{8}$`)
	emailPattern   = regexp.MustCompile(`\S+@\S+\.\S+`)
)

const passwordSymbols = "!@#$%^&*"

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields under their form names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	mustRegister("imei", func(fl validator.FieldLevel) bool { return IsIMEI(fl.Field().String()) })
	mustRegister("dzphone", func(fl validator.FieldLevel) bool { return IsDZPhone(fl.Field().String()) })
	mustRegister("looseemail", func(fl validator.FieldLevel) bool { return IsEmail(fl.Field().String()) })
	mustRegister("agentpassword", func(fl validator.FieldLevel) bool { return IsAgentPassword(fl.Field().String()) })
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("forms: register %s: %v", tag, err))
	}
}

// IsIMEI reports whether s is exactly 15 ASCII digits.
func IsIMEI(s string) bool { return imeiPattern.MatchString(s) }

// IsDZPhone reports whether s is an Algerian mobile number.
func IsDZPhone(s string) bool { return dzPhonePattern.MatchString(s) }

// IsEmail applies the permissive something@something.something check.
func IsEmail(s string) bool { return emailPattern.MatchString(s) }

// IsAgentPassword requires at least 8 characters drawn from letters, digits
// and !@#$%^&*, with at least one letter and one of those symbols.
func IsAgentPassword(s string) bool {
	if len(s) < 8 {
		return false
	}
	var letter, symbol bool
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			letter = true
		case r >= '0' && r <= '9':
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		default:
			return false
		}
	}
	return letter && symbol
}

// FieldError is a validation failure attached to one form field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects the failed fields of a form, in declaration order.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Message returns the error reported for field, or "".
func (e *ValidationError) Message(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

// Has reports whether field failed.
func (e *ValidationError) Has(field string) bool {
	return e.Message(field) != ""
}

// add keeps the first message per field.
func (e *ValidationError) add(field, msg string) {
	if e.Has(field) {
		return
	}
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// Fail returns a ValidationError for a single field.
func Fail(field, msg string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: msg}}}
}

// AsValidation unwraps err into a *ValidationError.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// Merge joins the fields of every *ValidationError in errs.
// Any other non-nil error is returned as is. It returns nil when nothing failed.
func Merge(errs ...error) error {
	out := &ValidationError{}
	for _, err := range errs {
		if err == nil {
			continue
		}
		ve, ok := AsValidation(err)
		if !ok {
			return err
		}
		for _, f := range ve.Fields {
			out.add(f.Field, f.Message)
		}
	}
	if len(out.Fields) == 0 {
		return nil
	}
	return out
}

// Validate runs the `validate` tags of the struct s.
//
// Messages come from the field's `msg_<tag>` tag, then its `msg` tag,
// then a generic sentence.
func Validate(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate form: %w", err)
	}

	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		out.add(fe.Field(), messageFor(t, fe))
	}
	return out
}

func messageFor(t reflect.Type, fe validator.FieldError) string {
	if sf, ok := t.FieldByName(fe.StructField()); ok {
		if m := sf.Tag.Get("msg_" + fe.Tag()); m != "" {
			return m
		}
		if m := sf.Tag.Get("msg"); m != "" {
			return m
		}
	}

	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_if", "required_unless":
		return fmt.Sprintf("%s is required", field)
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters long", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s must match %s", field, fe.Param())
	case "imei":
		return "Please enter a valid 15-digit IMEI number"
	case "dzphone":
		return "Please enter a valid Algerian phone number"
	case "looseemail":
		return "Please enter a valid email address"
	case "agentpassword":
		return "Password must be at least 8 characters with one letter and one symbol"
	default:
		return fmt.Sprintf("%s failed validation for '%s'", field, fe.Tag())
	}
}
