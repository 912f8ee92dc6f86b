package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidateConfig performs validation on the GlobalConfig structure.
func ValidateConfig(cfg *GlobalConfig) error {
	validate := newValidator()

	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("configuration validation error: %w", err)
	}

	var validationErrorMessages []string
	for _, e := range errs {
		msg := fmt.Sprintf("Validation failed for '%s': rule '%s'", e.Namespace(), e.Tag())
		if e.Param() != "" {
			msg += fmt.Sprintf(" (expected: %s)", e.Param())
		}
		if e.Value() != nil && e.Value() != "" {
			msg += fmt.Sprintf(", actual: '%v'", e.Value())
		}
		validationErrorMessages = append(validationErrorMessages, msg)
	}
	return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(validationErrorMessages, "\n  "))
}

func newValidator() *validator.Validate {
	validate := validator.New()

	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "trace", "debug", "info", "warn", "error", "fatal", "panic":
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("logformat", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "console", "text", "json":
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := ParseClock(fl.Field().String())
		return err == nil
	})

	_ = validate.RegisterValidation("timezone", func(fl validator.FieldLevel) bool {
		_, err := time.LoadLocation(fl.Field().String())
		return err == nil
	})

	_ = validate.RegisterValidation("dpitiers", func(fl validator.FieldLevel) bool {
		tiers, ok := fl.Field().Interface().([]DPITier)
		if !ok {
			return false
		}
		return ValidateDPITiers(tiers) == nil
	})

	return validate
}

// ParseClock parses "HH:MM" into minutes after midnight.
func ParseClock(value string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", value, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ValidateDPITiers checks that the step table is ordered by density, ends with an unbounded tier,
// and never raises DPI as density grows.
func ValidateDPITiers(tiers []DPITier) error {
	if len(tiers) == 0 {
		return errors.New("dpi tiers are empty")
	}

	for i, tier := range tiers {
		last := i == len(tiers)-1
		if tier.DPI <= 0 {
			return fmt.Errorf("tier %d has non-positive dpi %d", i, tier.DPI)
		}
		if last {
			if tier.MaxKBPerPage != 0 {
				return fmt.Errorf("last tier must be unbounded (max_kb_per_page 0), got %v", tier.MaxKBPerPage)
			}
		} else if tier.MaxKBPerPage <= 0 {
			return fmt.Errorf("tier %d must have a positive bound", i)
		}
		if i == 0 {
			continue
		}
		prev := tiers[i-1]
		if !last && tier.MaxKBPerPage <= prev.MaxKBPerPage {
			return fmt.Errorf("tier %d bound %v is not above previous bound %v", i, tier.MaxKBPerPage, prev.MaxKBPerPage)
		}
		if tier.DPI > prev.DPI {
			return fmt.Errorf("tier %d dpi %d is above previous dpi %d", i, tier.DPI, prev.DPI)
		}
	}
	return nil
}
