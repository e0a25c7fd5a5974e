package config

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate validates the configuration using struct tags and custom rules.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	aliases := make(map[string]bool)
	for i, l := range cfg.Layers {
		if aliases[l.Alias] {
			return fmt.Errorf("layers[%d]: duplicate alias %q", i, l.Alias)
		}
		aliases[l.Alias] = true
	}

	for i, r := range cfg.Filters {
		expr := r.Pattern
		if len(expr) > 0 && expr[0] == '!' {
			expr = expr[1:]
		}
		if _, err := regexp.Compile(expr); err != nil {
			return fmt.Errorf("filters[%d]: invalid pattern %q: %w", i, r.Pattern, err)
		}
	}
	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
