package queryir

import (
	"fmt"
	"slices"

	"github.com/roach88/cae/internal/cae"
	"github.com/roach88/cae/internal/ir"
)

// Describer is a label that exposes its kind name and fields, which is
// what filters are evaluated against.
type Describer interface {
	cae.Label
	KindName() string
	Fields() ir.IRObject
}

// Matcher compiles f into a predicate over links of L. A nil filter
// matches every link. Field names are checked here so a typo fails at
// registration rather than silently matching nothing.
func Matcher[L Describer](f Filter) (cae.Predicate[L], error) {
	m, err := compile[L](f)
	if err != nil {
		return nil, err
	}
	return func(l cae.Link[L]) bool { return m(l.Label) }, nil
}

// MustMatcher is like Matcher but panics on error.
func MustMatcher[L Describer](f Filter) cae.Predicate[L] {
	p, err := Matcher[L](f)
	if err != nil {
		panic(err)
	}
	return p
}

type labelMatch[L Describer] func(L) bool

func compile[L Describer](f Filter) (labelMatch[L], error) {
	switch node := f.(type) {
	case nil:
		return func(L) bool { return true }, nil
	case KindIs:
		return compileKinds[L](node), nil
	case *KindIs:
		return compileKinds[L](*node), nil
	case Equals:
		return compileEquals[L](node)
	case *Equals:
		return compileEquals[L](*node)
	case And:
		return compileAnd[L](node.Filters)
	case *And:
		return compileAnd[L](node.Filters)
	case Or:
		return compileOr[L](node.Filters)
	case *Or:
		return compileOr[L](node.Filters)
	default:
		return nil, fmt.Errorf("unsupported filter type: %T", f)
	}
}

func compileKinds[L Describer](k KindIs) labelMatch[L] {
	kinds := slices.Clone(k.Kinds)
	return func(l L) bool { return slices.Contains(kinds, l.KindName()) }
}

func compileEquals[L Describer](eq Equals) (labelMatch[L], error) {
	if !ValidField(eq.Field) {
		return nil, fmt.Errorf("invalid field name %q", eq.Field)
	}
	if eq.Value == nil {
		return nil, fmt.Errorf("field %q: nil value", eq.Field)
	}
	if eq.Field == FieldKind {
		want, ok := eq.Value.(ir.IRString)
		if !ok {
			return nil, fmt.Errorf("field %q: expected string, got %T", eq.Field, eq.Value)
		}
		return func(l L) bool { return l.KindName() == string(want) }, nil
	}
	return func(l L) bool {
		got, ok := l.Fields()[eq.Field]
		return ok && ir.Equal(got, eq.Value)
	}, nil
}

func compileAnd[L Describer](fs []Filter) (labelMatch[L], error) {
	parts, err := compileAll[L](fs)
	if err != nil {
		return nil, err
	}
	return func(l L) bool {
		for _, p := range parts {
			if !p(l) {
				return false
			}
		}
		return true
	}, nil
}

func compileOr[L Describer](fs []Filter) (labelMatch[L], error) {
	parts, err := compileAll[L](fs)
	if err != nil {
		return nil, err
	}
	return func(l L) bool {
		for _, p := range parts {
			if p(l) {
				return true
			}
		}
		return false
	}, nil
}

func compileAll[L Describer](fs []Filter) ([]labelMatch[L], error) {
	out := make([]labelMatch[L], 0, len(fs))
	for i, f := range fs {
		m, err := compile[L](f)
		if err != nil {
			return nil, fmt.Errorf("filter[%d]: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}
