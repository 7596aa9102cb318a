package validation

import (
	"fmt"
	"strings"

	"github.com/kbukum/phrame/errors"
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Checker collects failures of rules that struct tags cannot express, such
// as limits that depend on another field.
type Checker struct {
	failed []FieldError
}

// New creates an empty Checker.
func New() *Checker { return &Checker{} }

// Add records a failure of field.
func (c *Checker) Add(field, message string) {
	c.failed = append(c.failed, FieldError{Field: field, Message: message})
}

// Check records message for field unless ok.
func (c *Checker) Check(ok bool, field, message string) *Checker {
	if !ok {
		c.Add(field, message)
	}
	return c
}

// MultipleOf requires value to be divisible by step.
func (c *Checker) MultipleOf(field string, value, step int) *Checker {
	return c.Check(step == 0 || value%step == 0, field, fmt.Sprintf("must be a multiple of %d", step))
}

// Errors returns the failures in the order they were recorded.
func (c *Checker) Errors() []FieldError { return c.failed }

// Err joins every failure into one validation AppError whose details list
// the fields. It is nil when nothing failed.
func (c *Checker) Err() error {
	if len(c.failed) == 0 {
		return nil
	}
	parts := make([]string, len(c.failed))
	for i, f := range c.failed {
		parts[i] = f.Field + ": " + f.Message
	}
	return errors.Validation(strings.Join(parts, "; ")).WithDetail("fields", c.failed)
}
