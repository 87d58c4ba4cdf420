// Package matcher compiles the name filters used to select databases,
// schemas and datasets. Filters are case-insensitive and accept plain names,
// shell-style globs (*, ?, [...]) or regular expressions prefixed with "re:".
package matcher

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind is the comparison a Filter performs.
type Kind int

const (
	// Exact matches the whole name.
	Exact Kind = iota
	// Substring matches names containing the pattern.
	Substring
	// Glob matches shell-style patterns against the whole name.
	Glob
	// Regex matches a regular expression anywhere in the name.
	Regex
)

// RegexPrefix marks a pattern as a regular expression.
const RegexPrefix = "re:"

// String returns a string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Substring:
		return "substring"
	case Glob:
		return "glob"
	case Regex:
		return "regex"
	default:
		return "unknown"
	}
}

// Filter is a compiled name filter. A nil *Filter matches everything.
type Filter struct {
	pattern string
	kind    Kind
	literal string
	re      *regexp.Regexp
}

// Compile detects the kind of pattern and compiles it. Plain names use
// fallback, which must be Exact or Substring. An empty pattern returns a
// nil filter.
func Compile(pattern string, fallback Kind) (*Filter, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, nil
	}

	f := &Filter{pattern: pattern}
	switch {
	case strings.HasPrefix(pattern, RegexPrefix):
		re, err := regexp.Compile("(?i)" + strings.TrimPrefix(pattern, RegexPrefix))
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
		f.kind, f.re = Regex, re
	case IsGlobPattern(pattern):
		expr, err := GlobToRegex(pattern)
		if err != nil {
			return nil, err
		}
		f.kind, f.re = Glob, regexp.MustCompile("(?i)"+expr)
	case fallback == Exact || fallback == Substring:
		f.kind, f.literal = fallback, strings.ToLower(pattern)
	default:
		return nil, fmt.Errorf("unsupported fallback kind: %v", fallback)
	}
	return f, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(pattern string, fallback Kind) *Filter {
	f, err := Compile(pattern, fallback)
	if err != nil {
		panic(err)
	}
	return f
}

// Match reports whether name passes the filter.
func (f *Filter) Match(name string) bool {
	if f == nil {
		return true
	}
	switch f.kind {
	case Exact:
		return strings.ToLower(name) == f.literal
	case Substring:
		return strings.Contains(strings.ToLower(name), f.literal)
	default:
		return f.re.MatchString(name)
	}
}

// MatchAny reports whether any of names passes the filter.
func (f *Filter) MatchAny(names ...string) bool {
	if f == nil {
		return true
	}
	for _, name := range names {
		if f.Match(name) {
			return true
		}
	}
	return false
}

// Pattern returns the original pattern string.
func (f *Filter) Pattern() string {
	if f == nil {
		return ""
	}
	return f.pattern
}

// Kind returns the comparison the filter performs.
func (f *Filter) Kind() Kind {
	if f == nil {
		return Substring
	}
	return f.kind
}

// IsLiteral reports whether the filter compares plain names, which
// platform APIs can usually evaluate server-side.
func (f *Filter) IsLiteral() bool {
	return f != nil && (f.kind == Exact || f.kind == Substring)
}

// String returns the pattern with its kind.
func (f *Filter) String() string {
	if f == nil {
		return "*"
	}
	return fmt.Sprintf("%s(%s)", f.kind, f.pattern)
}

// IsGlobPattern checks if a string contains glob metacharacters.
func IsGlobPattern(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// GlobToRegex converts a glob pattern to an anchored regular expression.
func GlobToRegex(glob string) (string, error) {
	var b strings.Builder
	b.WriteString("^")

	for i := 0; i < len(glob); i++ {
		switch c := glob[i]; c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '[':
			end := strings.IndexByte(glob[i+1:], ']')
			if end < 0 {
				return "", fmt.Errorf("invalid glob pattern %q: unclosed character class", glob)
			}
			class := glob[i+1 : i+1+end]
			b.WriteString("[")
			if strings.HasPrefix(class, "!") || strings.HasPrefix(class, "^") {
				b.WriteString("^")
				class = class[1:]
			}
			b.WriteString(strings.ReplaceAll(class, `\`, `\\`))
			b.WriteString("]")
			i += end + 1
		case '\\':
			if i+1 < len(glob) {
				i++
				b.WriteString(regexp.QuoteMeta(string(glob[i])))
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	b.WriteString("$")
	return b.String(), nil
}
