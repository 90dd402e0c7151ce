package clone

import (
	"fmt"
	"regexp"
	"strings"
)

// canonical order of pattern flags
const patternFlagOrder = "gimsuy"

// Pattern is a regular expression with a flag set and a match cursor.
//
// Flags:
//
//	g  global: Exec continues from LastIndex and advances it
//	i  case-insensitive
//	m  multi-line: ^ and $ match at line breaks
//	s  dot matches newline
//	u  unicode (always on for Go regexps, kept for round-tripping)
//	y  sticky: a match must start exactly at LastIndex
type Pattern struct {
	re     *regexp.Regexp
	source string
	flags  string

	// LastIndex is the byte offset where the next global or sticky Exec starts.
	LastIndex int
}

// NewPattern compiles source with the given flags.
func NewPattern(source, flags string) (*Pattern, error) {
	var set [len(patternFlagOrder)]bool
	for _, f := range flags {
		i := strings.IndexRune(patternFlagOrder, f)
		if i < 0 {
			return nil, fmt.Errorf("invalid pattern flag %q", f)
		}
		if set[i] {
			return nil, fmt.Errorf("duplicate pattern flag %q", f)
		}
		set[i] = true
	}

	var canonical, inline strings.Builder
	for i, on := range set {
		if !on {
			continue
		}
		f := patternFlagOrder[i]
		canonical.WriteByte(f)
		if f == 'i' || f == 'm' || f == 's' {
			inline.WriteByte(f)
		}
	}

	expr := source
	if inline.Len() > 0 {
		expr = "(?" + inline.String() + ")" + source
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &Pattern{re: re, source: source, flags: canonical.String()}, nil
}

// MustPattern is like NewPattern but panics on error.
func MustPattern(source, flags string) *Pattern {
	p, err := NewPattern(source, flags)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Pattern) Source() string { return p.source }
func (p *Pattern) Flags() string  { return p.flags }
func (p *Pattern) String() string { return "/" + p.source + "/" + p.flags }

func (p *Pattern) Global() bool     { return strings.IndexByte(p.flags, 'g') >= 0 }
func (p *Pattern) IgnoreCase() bool { return strings.IndexByte(p.flags, 'i') >= 0 }
func (p *Pattern) Multiline() bool  { return strings.IndexByte(p.flags, 'm') >= 0 }
func (p *Pattern) Sticky() bool     { return strings.IndexByte(p.flags, 'y') >= 0 }

// MatchString reports whether s contains a match. It ignores LastIndex.
func (p *Pattern) MatchString(s string) bool { return p.re.MatchString(s) }

// Exec returns the next match and its submatches, or nil.
//
// Global and sticky patterns search from LastIndex, advance it past the
// match, and reset it to 0 when nothing matches.
func (p *Pattern) Exec(s string) []string {
	if !p.Global() && !p.Sticky() {
		return p.re.FindStringSubmatch(s)
	}

	if p.LastIndex < 0 || p.LastIndex > len(s) {
		p.LastIndex = 0
		return nil
	}
	loc := p.re.FindStringSubmatchIndex(s[p.LastIndex:])
	if loc == nil || (p.Sticky() && loc[0] != 0) {
		p.LastIndex = 0
		return nil
	}

	start := p.LastIndex
	out := make([]string, len(loc)/2)
	for i := range out {
		if loc[2*i] >= 0 {
			out[i] = s[start+loc[2*i] : start+loc[2*i+1]]
		}
	}
	end := start + loc[1]
	if loc[1] == loc[0] {
		// empty match, step over it so a loop over Exec terminates
		end++
	}
	p.LastIndex = end
	return out
}

func (p *Pattern) copyPattern() *Pattern {
	cp := &Pattern{
		re:        regexp.MustCompile(p.re.String()),
		source:    p.source,
		flags:     p.flags,
		LastIndex: p.LastIndex,
	}
	return cp
}

// PatternFlags returns the active flags of a *Pattern or *regexp.Regexp in
// canonical order. Flags of a *regexp.Regexp are read from a leading
// (?flags) group. Any other value yields "".
func PatternFlags(v any) string {
	switch p := v.(type) {
	case *Pattern:
		if p == nil {
			return ""
		}
		return p.flags
	case *regexp.Regexp:
		if p == nil {
			return ""
		}
		return inlineFlags(p.String())
	}
	return ""
}

func inlineFlags(expr string) string {
	if !strings.HasPrefix(expr, "(?") {
		return ""
	}
	end := strings.IndexAny(expr[2:], ":)")
	if end < 0 || expr[2+end] != ')' {
		return ""
	}
	group := expr[2 : 2+end]
	if strings.IndexByte(group, '-') >= 0 {
		group = group[:strings.IndexByte(group, '-')]
	}
	var out strings.Builder
	for _, f := range patternFlagOrder {
		if strings.ContainsRune(group, f) {
			out.WriteRune(f)
		}
	}
	return out.String()
}
