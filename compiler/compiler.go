// Copyright 2026 The Strada Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package compiler

import (
	"fmt"
	"regexp"
	"strings"
)

// Param describes one capture group of a compiled pattern.
//
// Position is the 1-based index of the parameter's capture group in the
// matcher, in left-to-right declaration order. Anonymous parameters come from
// capture groups inside raw regex blocks that were not given a name; they
// still occupy a capture-group slot and must be counted so later named
// parameters map to the correct submatch index.
type Param struct {
	Name       string // empty for anonymous parameters
	Position   int    // 1-based capture group index
	Constraint string // regex fragment the value must satisfy
	Anonymous  bool
}

// Pattern is the output of compiling a path template.
//
// Invariants:
//   - Matcher == nil iff len(Params) == 0 (a pattern is static iff it has no
//     parameters and no raw regex blocks; the static fast path relies on it).
//   - When Matcher is non-nil, Matcher.NumSubexp() == len(Params).
type Pattern struct {
	Template string
	Matcher  *regexp.Regexp
	Params   []Param
}

// IsStatic reports whether the pattern is matched by exact string comparison.
func (p *Pattern) IsStatic() bool {
	return p.Matcher == nil
}

// extensionAnchorRe recognizes a trailing $ that belongs to a file-extension
// pattern such as `\.json)$` or `\.css$`. Stripping that $ would corrupt the
// fragment, so it is kept. The two-to-four letter window is a deliberately
// narrow heuristic, documented behavior rather than a rule to generalize.
var extensionAnchorRe = regexp.MustCompile(`\\\.[a-zA-Z0-9]{2,4}\)?\$$`)

// Compile parses a path template into an anchored matcher plus parameter
// descriptors. Compilation is pure and deterministic.
//
// The template grammar is consumed in a single left-to-right pass:
//
//  1. Templates containing neither ':' nor '{' are static and exit
//     immediately with a nil matcher. This is the dominant case in real
//     applications and is checked before any regex work.
//  2. Brace-delimited spans whose content contains '^' or '(' are raw regex
//     fragments: the leading '^' is stripped, a trailing '$' is stripped
//     unless it anchors a file-extension pattern, each capture group becomes
//     an anonymous parameter, and the fragment is substituted in place.
//     Spans without '^' or '(' stay as literal text, braces included.
//  3. ':name' and ':name<constraint>' become named parameters. The
//     constraint token is resolved through the shortcut table (default
//     `[^/]+`), screened by the safety validator, and substituted as a
//     capture group. Validator rejection aborts compilation with an error
//     naming the parameter.
//  4. Literal dots outside capture groups are escaped, so a segment like
//     "archive.json" does not match "archive_json".
//  5. The assembled body is normalized (repeated '/' collapsed, one trailing
//     '/' stripped) and anchored as ^body/?$ so request paths with and
//     without a trailing slash match identically.
//
// A template that is exactly "/" takes the static exit and is matched only
// by exact comparison, never through an anchored empty pattern.
func Compile(template string) (*Pattern, error) {
	// Fast exit: no parameter or regex-block syntax means static.
	if !strings.ContainsAny(template, ":{") {
		return &Pattern{Template: template}, nil
	}

	var body strings.Builder
	body.Grow(len(template) + 16)
	var params []Param
	position := 0

	for i := 0; i < len(template); {
		c := template[i]
		switch {
		case c == '{':
			end, ok := matchingBrace(template, i)
			if !ok {
				// Unterminated brace: literal character.
				body.WriteByte(c)
				i++
				continue
			}
			content := template[i+1 : end]
			if !strings.ContainsAny(content, "^(") {
				// Literal span, braces included.
				writeLiteral(&body, template[i:end+1])
				i = end + 1
				continue
			}
			fragment := strings.TrimPrefix(content, "^")
			if strings.HasSuffix(fragment, "$") && !extensionAnchorRe.MatchString(fragment) {
				fragment = strings.TrimSuffix(fragment, "$")
			}
			if err := Validate(content, fragment); err != nil {
				return nil, err
			}
			for range countCaptureGroups(fragment) {
				position++
				params = append(params, Param{
					Position:   position,
					Constraint: fragment,
					Anonymous:  true,
				})
			}
			body.WriteString(fragment)
			i = end + 1

		case c == ':' && i+1 < len(template) && isNameStart(template[i+1]):
			j := i + 1
			for j < len(template) && isNameChar(template[j]) {
				j++
			}
			name := template[i+1 : j]
			constraint := DefaultConstraint
			if j < len(template) && template[j] == '<' {
				if k := strings.IndexByte(template[j:], '>'); k > 0 {
					constraint = Resolve(template[j+1 : j+k])
					j += k + 1
				}
			}
			if err := Validate(name, constraint); err != nil {
				return nil, err
			}
			position++
			params = append(params, Param{
				Name:       name,
				Position:   position,
				Constraint: constraint,
			})
			body.WriteByte('(')
			body.WriteString(nonCapturing(constraint))
			body.WriteByte(')')
			i = j

		default:
			writeLiteral(&body, template[i:i+1])
			i++
		}
	}

	pattern := body.String()
	for strings.Contains(pattern, "//") {
		pattern = strings.ReplaceAll(pattern, "//", "/")
	}
	pattern = strings.TrimSuffix(pattern, "/")

	matcher, err := regexp.Compile("^" + pattern + "/?$")
	if err != nil {
		return nil, fmt.Errorf("compile route pattern %q: %w", template, err)
	}
	if matcher.NumSubexp() != len(params) {
		return nil, fmt.Errorf("compile route pattern %q: %d capture groups for %d parameters",
			template, matcher.NumSubexp(), len(params))
	}

	return &Pattern{Template: template, Matcher: matcher, Params: params}, nil
}

// MustCompile is like Compile but panics on error. Intended for route tables
// declared at program startup, mirroring regexp.MustCompile.
func MustCompile(template string) *Pattern {
	p, err := Compile(template)
	if err != nil {
		panic(fmt.Sprintf("compiler.MustCompile(%q): %v", template, err))
	}
	return p
}

// matchingBrace returns the index of the '}' closing the brace at start.
// Nested braces inside the span are tolerated, which supports constructs
// like file-extension alternations with repetition counts.
func matchingBrace(s string, start int) (int, bool) {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// writeLiteral appends literal template text, escaping dots so they match
// only a real '.' in the request path.
func writeLiteral(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			b.WriteString(`\.`)
			continue
		}
		b.WriteByte(s[i])
	}
}

// countCaptureGroups counts unescaped capture groups in a regex fragment,
// skipping non-capturing groups and character classes.
func countCaptureGroups(fragment string) int {
	n := 0
	inClass := false
	for i := 0; i < len(fragment); i++ {
		switch fragment[i] {
		case '\\':
			i++
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '(':
			if inClass {
				continue
			}
			if i+1 < len(fragment) && fragment[i+1] == '?' {
				continue
			}
			n++
		}
	}
	return n
}

// nonCapturing rewrites the capture groups of a constraint fragment as
// non-capturing groups. Constraints are wrapped in exactly one capture group
// by the compiler; a constraint that captured on its own would shift the
// positions of every later parameter.
func nonCapturing(fragment string) string {
	if countCaptureGroups(fragment) == 0 {
		return fragment
	}
	var b strings.Builder
	b.Grow(len(fragment) + 8)
	inClass := false
	for i := 0; i < len(fragment); i++ {
		c := fragment[i]
		switch c {
		case '\\':
			b.WriteByte(c)
			if i+1 < len(fragment) {
				i++
				b.WriteByte(fragment[i])
			}
			continue
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '(':
			if !inClass && (i+1 >= len(fragment) || fragment[i+1] != '?') {
				b.WriteString("(?:")
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}
