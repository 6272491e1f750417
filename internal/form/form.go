// Package form implements the shared field-state machinery behind every
// create/edit dialog: values, per-field errors, touched tracking and a
// validate-then-submit flow.
package form

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validator checks one field value and returns an error message, or empty
// when the value is acceptable.
type Validator func(value interface{}) string

// Form owns the state of one dialog instance.
type Form struct {
	mu           sync.Mutex
	initial      map[string]interface{}
	values       map[string]interface{}
	errors       map[string]string
	touched      map[string]bool
	validators   map[string]Validator
	isSubmitting bool
}

// New builds a form with initial values and a field validator map.
func New(initial map[string]interface{}, validators map[string]Validator) *Form {
	f := &Form{
		initial:    make(map[string]interface{}, len(initial)),
		values:     make(map[string]interface{}, len(initial)),
		errors:     make(map[string]string),
		touched:    make(map[string]bool),
		validators: validators,
	}
	for k, v := range initial {
		f.initial[k] = v
		f.values[k] = v
	}
	return f
}

// SetValue updates a field and clears its existing error. Editing clears
// optimistically; re-validation only happens on submit or explicit request.
func (f *Form) SetValue(name string, value interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[name] = value
	f.touched[name] = true
	delete(f.errors, name)
}

// ValidateField runs the field's validator, recording any error message.
func (f *Form) ValidateField(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateFieldLocked(name)
}

func (f *Form) validateFieldLocked(name string) bool {
	check, ok := f.validators[name]
	if !ok {
		return true
	}
	if msg := check(f.values[name]); msg != "" {
		f.errors[name] = msg
		return false
	}
	delete(f.errors, name)
	return true
}

// ValidateForm runs every validator, accumulating all errors at once.
func (f *Form) ValidateForm() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	valid := true
	for name := range f.validators {
		if !f.validateFieldLocked(name) {
			valid = false
		}
	}
	return valid
}

// HandleSubmit validates the whole form and only invokes onSubmit when
// validation passed. isSubmitting is restored on every path.
func (f *Form) HandleSubmit(ctx context.Context, onSubmit func(ctx context.Context, values map[string]interface{}) error) error {
	f.mu.Lock()
	if f.isSubmitting {
		f.mu.Unlock()
		return nil
	}
	f.isSubmitting = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.isSubmitting = false
		f.mu.Unlock()
	}()

	if !f.ValidateForm() {
		return nil
	}
	return onSubmit(ctx, f.Values())
}

// Reset restores initial values and clears errors, touched and submitting.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = make(map[string]interface{}, len(f.initial))
	for k, v := range f.initial {
		f.values[k] = v
	}
	f.errors = make(map[string]string)
	f.touched = make(map[string]bool)
	f.isSubmitting = false
}

// Values returns a copy of the current values.
func (f *Form) Values() map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]interface{}, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Errors returns a copy of the current per-field errors.
func (f *Form) Errors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// Touched reports whether the field was edited.
func (f *Form) Touched(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.touched[name]
}

// IsSubmitting reports whether a submit is underway.
func (f *Form) IsSubmitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isSubmitting
}

// Common validators, bridged onto go-playground rules where one exists.

var fieldValidate = validator.New()

// Required rejects nil, empty and whitespace-only values.
func Required(label string) Validator {
	return func(value interface{}) string {
		if value == nil {
			return fmt.Sprintf("%s es obligatorio", label)
		}
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			return fmt.Sprintf("%s es obligatorio", label)
		}
		return ""
	}
}

// Email validates an email-shaped string.
func Email(label string) Validator {
	return func(value interface{}) string {
		s, _ := value.(string)
		if s == "" {
			return ""
		}
		if err := fieldValidate.Var(s, "email"); err != nil {
			return fmt.Sprintf("%s no es un correo válido", label)
		}
		return ""
	}
}

// MinLength enforces a minimum string length.
func MinLength(label string, min int) Validator {
	return func(value interface{}) string {
		s, _ := value.(string)
		if s == "" {
			return ""
		}
		if len(s) < min {
			return fmt.Sprintf("%s debe tener al menos %d caracteres", label, min)
		}
		return ""
	}
}

// Numeric requires a numeric string when present.
func Numeric(label string) Validator {
	return func(value interface{}) string {
		s, ok := value.(string)
		if !ok || s == "" {
			return ""
		}
		if err := fieldValidate.Var(s, "numeric"); err != nil {
			return fmt.Sprintf("%s debe ser numérico", label)
		}
		return ""
	}
}
