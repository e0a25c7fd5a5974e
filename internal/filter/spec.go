package filter

import (
	"fmt"
	"strings"

	"github.com/CageChen/layerhub/internal/entry"
	mfs "github.com/CageChen/layerhub/internal/fs"
)

// Spec describes how to obtain a Filter at a call boundary. It is
// implemented by *Filter (already built), Patterns and Configure.
type Spec interface {
	build(fsys mfs.FileSystem) (*Filter, error)
}

// Resolve turns spec into a concrete Filter. A nil spec yields an empty filter.
func Resolve(spec Spec, fsys mfs.FileSystem) (*Filter, error) {
	if spec == nil {
		return New(fsys), nil
	}
	return spec.build(fsys)
}

func (f *Filter) build(fsys mfs.FileSystem) (*Filter, error) {
	if f == nil {
		return New(fsys), nil
	}
	return f, nil
}

// Pattern is a shorthand rule. A leading "!" in Expr negates the rule.
type Pattern struct {
	Expr string
	Type entry.Type
}

// Patterns builds a fresh filter with one rule per pattern.
type Patterns []Pattern

func (p Patterns) build(fsys mfs.FileSystem) (*Filter, error) {
	f := New(fsys)
	for _, pattern := range p {
		expr, expected := pattern.Expr, true
		if rest, ok := strings.CutPrefix(expr, "!"); ok {
			expr, expected = rest, false
		}
		if err := f.AddRule(expr, expected, pattern.Type); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Configure builds a fresh filter and hands it to the function to populate.
type Configure func(f *Filter) error

func (c Configure) build(fsys mfs.FileSystem) (*Filter, error) {
	f := New(fsys)
	if c == nil {
		return f, nil
	}
	if err := c(f); err != nil {
		return nil, fmt.Errorf("configure filter: %w", err)
	}
	return f, nil
}

// ParsePattern parses the CLI/config shorthand "expr" or "expr@type",
// where type is file or dir. An unrecognised suffix stays part of expr.
func ParsePattern(s string) Pattern {
	if i := strings.LastIndex(s, "@"); i >= 0 {
		if typ, err := entry.ParseType(s[i+1:]); err == nil && s[i+1:] != "" {
			return Pattern{Expr: s[:i], Type: typ}
		}
	}
	return Pattern{Expr: s}
}

// Combine returns a spec whose filter holds the rules of every spec, in order.
// Nil specs contribute nothing.
func Combine(specs ...Spec) Spec {
	return Configure(func(f *Filter) error {
		for _, s := range specs {
			built, err := Resolve(s, f.fs)
			if err != nil {
				return err
			}
			f.rules = append(f.rules, built.rules...)
		}
		return nil
	})
}
