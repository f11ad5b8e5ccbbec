// Package validate exposes a single shared go-playground validator.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// v is shared across the process; validator instances cache struct metadata,
// so one instance is both the cheap and the intended usage. Register any
// custom rules in an init() before the first Struct call.
var v = validator.New()

// Struct runs the value's validate tags and flattens every violation into one
// readable error, one clause per failing field.
func Struct(s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, fmt.Sprintf("field %q violates rule %q", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(parts, "; "))
}
