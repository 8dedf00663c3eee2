package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// A delimiter is one byte, with "tab" accepted as a name.
	_ = v.RegisterValidation("delimiter", func(fl validator.FieldLevel) bool {
		_, err := parseDelimiter(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	return validate.Struct(cfg)
}

func parseDelimiter(s string) (byte, error) {
	switch s {
	case "tab", `\t`, "\t":
		return '\t', nil
	}
	if len(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single byte, got %q", s)
	}
	if s[0] == '"' || s[0] == '\\' || s[0] == '\n' || s[0] == '\r' {
		return 0, fmt.Errorf("delimiter %q conflicts with quoting or line endings", s)
	}
	return s[0], nil
}
