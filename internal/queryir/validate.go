package queryir

import (
	"fmt"
	"regexp"

	"github.com/roach88/cae/internal/ir"
)

// ValidationResult contains the portability analysis of a filter.
type ValidationResult struct {
	// IsPortable is true when both the live matcher and the SQL archive
	// evaluate the filter identically.
	IsPortable bool

	// Warnings lists every non-portable construct. Empty when IsPortable.
	Warnings []string
}

var fieldPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidField reports whether name may be used as an Equals field.
func ValidField(name string) bool {
	return fieldPattern.MatchString(name)
}

// Validate checks a filter against the portable fragment.
// Validate is a pure function.
func Validate(f Filter) ValidationResult {
	v := &validator{warnings: []string{}}
	v.validate(f)
	return ValidationResult{
		IsPortable: len(v.warnings) == 0,
		Warnings:   v.warnings,
	}
}

type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validate(f Filter) {
	switch node := f.(type) {
	case nil:
		// nil filters select everything
	case KindIs:
		v.validateKinds(node)
	case *KindIs:
		v.validateKinds(*node)
	case Equals:
		v.validateEquals(node)
	case *Equals:
		v.validateEquals(*node)
	case And:
		for _, sub := range node.Filters {
			v.validate(sub)
		}
	case *And:
		for _, sub := range node.Filters {
			v.validate(sub)
		}
	case Or:
		v.validateOr(node)
	case *Or:
		v.validateOr(*node)
	default:
		v.addWarning("unknown filter type: %T", f)
	}
}

func (v *validator) validateKinds(k KindIs) {
	if len(k.Kinds) == 0 {
		v.addWarning("kind filter lists no kinds and matches nothing")
	}
}

func (v *validator) validateEquals(eq Equals) {
	if !ValidField(eq.Field) {
		v.addWarning("field %q is not a valid field name", eq.Field)
	}
	switch eq.Value.(type) {
	case nil:
		v.addWarning("field %q compared to null", eq.Field)
	case ir.IRObject:
		v.addWarning("field %q compared to an object, which the archive cannot evaluate", eq.Field)
	case ir.IRString:
	default:
		if eq.Field == FieldKind {
			v.addWarning("field %q must be compared to a string", eq.Field)
		}
	}
}

func (v *validator) validateOr(or Or) {
	if len(or.Filters) == 0 {
		v.addWarning("empty or-filter matches nothing")
	}
	for _, sub := range or.Filters {
		v.validate(sub)
	}
}
