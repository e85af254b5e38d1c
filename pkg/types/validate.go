// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the accepted format for date bounds.
const DateLayout = "2006-01-02"

// categoryPattern matches arXiv category codes: "cs.RO", "eess.SY",
// "q-bio.NC", "astro-ph", "hep-th".
var categoryPattern = regexp.MustCompile(`^[a-z][a-z-]*(\.[A-Za-z][A-Za-z-]*)?$`)

// ValidationError reports a SearchConfig that must not start a run.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		_ = validate.RegisterValidation("arxivcat", func(fl validator.FieldLevel) bool {
			cat := strings.TrimSpace(fl.Field().String())
			return cat == "" || categoryPattern.MatchString(cat)
		})
	})
	return validate
}

// Validate runs the pre-flight checks: at least one search criterion,
// well-formed dates, start not after end, bounded max results, a known task
// and well-formed category codes. The first failure is returned as a
// *ValidationError.
func (c SearchConfig) Validate() error {
	if c.CleanKeyword() == "" && len(c.CleanCategories()) == 0 {
		return &ValidationError{Field: "categories", Message: "select at least one category or enter a search term"}
	}

	if err := structValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return &ValidationError{Field: "config", Message: err.Error()}
	}

	from, to, err := c.DateRange()
	if err != nil {
		return err
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return &ValidationError{Field: "date_from", Message: fmt.Sprintf("start date %s is after end date %s", c.DateFrom, c.DateTo)}
	}
	return nil
}

// DateRange parses the configured bounds. A zero time means unbounded.
func (c SearchConfig) DateRange() (from, to time.Time, err error) {
	if s := strings.TrimSpace(c.DateFrom); s != "" {
		from, err = time.Parse(DateLayout, s)
		if err != nil {
			return time.Time{}, time.Time{}, &ValidationError{Field: "date_from", Message: fmt.Sprintf("invalid date %q, use YYYY-MM-DD", c.DateFrom)}
		}
	}
	if s := strings.TrimSpace(c.DateTo); s != "" {
		to, err = time.Parse(DateLayout, s)
		if err != nil {
			return time.Time{}, time.Time{}, &ValidationError{Field: "date_to", Message: fmt.Sprintf("invalid date %q, use YYYY-MM-DD", c.DateTo)}
		}
	}
	return from, to, nil
}

// CleanKeyword returns the keyword as it enters a query: quotes stripped,
// since they would end the phrase early, and whitespace collapsed. An empty
// result means no keyword.
func (c SearchConfig) CleanKeyword() string {
	kw := strings.ReplaceAll(c.Keyword, `"`, "")
	return strings.Join(strings.Fields(kw), " ")
}

// CleanCategories returns the non-blank, trimmed category codes.
func (c SearchConfig) CleanCategories() []string {
	var out []string
	for _, cat := range c.Categories {
		if cat = strings.TrimSpace(cat); cat != "" {
			out = append(out, cat)
		}
	}
	return out
}

func fieldError(fe validator.FieldError) *ValidationError {
	field := fe.Field()
	switch fe.Tag() {
	case "datetime":
		return &ValidationError{Field: field, Message: fmt.Sprintf("invalid date %q, use YYYY-MM-DD", fe.Value())}
	case "gte", "lte":
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be between 1 and %d, got %v", MaxResultsUpperBound, fe.Value())}
	case "oneof":
		return &ValidationError{Field: field, Message: fmt.Sprintf("unknown task %q", fe.Value())}
	case "arxivcat":
		return &ValidationError{Field: "categories", Message: fmt.Sprintf("malformed category code %q", fe.Value())}
	default:
		return &ValidationError{Field: field, Message: fmt.Sprintf("failed %q check", fe.Tag())}
	}
}
