// Package filter evaluates filesystem entry paths against ordered
// include/exclude regular-expression rules.
package filter

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/CageChen/layerhub/internal/entry"
	mfs "github.com/CageChen/layerhub/internal/fs"
)

// hiddenPattern matches a leading dot in the last path segment.
const hiddenPattern = `(^|/)\.[^/]*$`

// Rule is one compiled filter rule. An entry the rule applies to passes it
// when the pattern's match result equals Expected.
type Rule struct {
	Pattern  *regexp.Regexp
	Expected bool
	Type     entry.Type
}

// Filter is an ordered set of rules. An entry survives Apply only if it
// passes every rule whose Type applies to it.
//
// A Filter memoizes entry types for the duration of one Apply call and is
// not safe for concurrent use.
type Filter struct {
	fs        mfs.FileSystem
	rules     []Rule
	typeCache map[string]entry.Type
}

// New creates an empty filter. A nil fsys uses the local filesystem.
func New(fsys mfs.FileSystem) *Filter {
	return &Filter{fs: mfs.OrDefault(fsys)}
}

// AddRule compiles pattern and appends it as a rule.
func (f *Filter) AddRule(pattern string, expected bool, typ entry.Type) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid filter pattern %q: %w", pattern, err)
	}
	f.rules = append(f.rules, Rule{Pattern: re, Expected: expected, Type: typ})
	return nil
}

// MustAddRule is like AddRule but panics if pattern does not compile.
func (f *Filter) MustAddRule(pattern string, expected bool, typ entry.Type) {
	f.rules = append(f.rules, Rule{Pattern: regexp.MustCompile(pattern), Expected: expected, Type: typ})
}

// HasExtension requires files to end in .ext.
func (f *Filter) HasExtension(ext string) {
	f.MustAddRule(extensionPattern(ext), true, entry.TypeFile)
}

// BlockExtension rejects files ending in .ext.
func (f *Filter) BlockExtension(ext string) {
	f.MustAddRule(extensionPattern(ext), false, entry.TypeFile)
}

// BlockHidden rejects entries of typ whose name starts with a dot.
func (f *Filter) BlockHidden(typ entry.Type) {
	f.MustAddRule(hiddenPattern, false, typ)
}

// OnlyHidden keeps only entries of typ whose name starts with a dot.
func (f *Filter) OnlyHidden(typ entry.Type) {
	f.MustAddRule(hiddenPattern, true, typ)
}

func extensionPattern(ext string) string {
	return `\.` + regexp.QuoteMeta(strings.TrimPrefix(ext, ".")) + `$`
}

// Rules returns a copy of the rule list.
func (f *Filter) Rules() []Rule {
	rules := make([]Rule, len(f.rules))
	copy(rules, f.rules)
	return rules
}

// Apply returns the entries that pass every applicable rule, in input order.
// Entry types are looked up at most once per path per call.
func (f *Filter) Apply(entries []string) ([]string, error) {
	f.typeCache = make(map[string]entry.Type)

	filtered := make([]string, 0, len(entries))
	for _, item := range entries {
		passed, err := f.passes(item)
		if err != nil {
			return nil, err
		}
		if passed {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

func (f *Filter) passes(item string) (bool, error) {
	for _, rule := range f.rules {
		applies, err := f.IsType(rule.Type, item)
		if err != nil {
			return false, err
		}
		if applies && rule.Pattern.MatchString(item) != rule.Expected {
			return false, nil
		}
	}
	return true, nil
}

// IsType reports whether path is of the given type. TypeAny always matches.
// A path that no longer resolves (e.g. a dangling symlink) is neither a file
// nor a directory.
func (f *Filter) IsType(typ entry.Type, path string) (bool, error) {
	if typ == entry.TypeAny {
		return true, nil
	}
	if f.typeCache == nil {
		f.typeCache = make(map[string]entry.Type)
	}

	actual, ok := f.typeCache[path]
	if !ok {
		info, err := f.fs.Stat(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			actual = entry.TypeAny
		case err != nil:
			return false, mfs.WrapIO("stat", path, err)
		case info.IsDir:
			actual = entry.TypeDir
		default:
			actual = entry.TypeFile
		}
		f.typeCache[path] = actual
	}
	return actual == typ, nil
}
