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
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnsafePattern indicates that a constraint fragment was rejected by the
// pattern safety validator.
var ErrUnsafePattern = errors.New("unsafe regex pattern")

const (
	// maxFragmentLength caps constraint fragment length. Long constraints
	// are disproportionately likely to encode nested quantifiers, and a
	// route constraint has no legitimate reason to approach this size.
	maxFragmentLength = 200

	// maxAlternations caps the total number of | operators in a fragment.
	maxAlternations = 10

	// maxAlternationsWithQuantifiedGroup is the tighter cap that applies
	// when the fragment also contains an alternation inside a quantified
	// group, the combination behind exponential alternation blow-up.
	maxAlternationsWithQuantifiedGroup = 5
)

// denylist holds known-dangerous sub-patterns rejected by literal substring
// match. These are the canonical catastrophic-backtracking shapes that show
// up in ReDoS advisories; matching them literally catches copy-pasted
// exploits and common mistakes cheaply.
var denylist = []string{
	`(\w+)*\w*`,
	`(.+)+`,
	`(.*)*`,
	`(a*)*`,
	`(a|a)*`,
	`(a+)+b`,
	`(a+)+`,
	`(\d+)*`,
	`([a-zA-Z]+)*`,
}

// nestedQuantifierRe detects a group whose body ends in a quantifier and
// which is itself quantified: the canonical (x+)+ nested-repetition shape.
// The group body is restricted to non-paren characters, which is enough for
// the flat fragments that appear in route constraints.
var nestedQuantifierRe = regexp.MustCompile(`\((?:\?:)?[^()]*[*+]\)\s*[*+]`)

// quantifiedAlternationRe detects an alternation inside a quantified group,
// e.g. (a|b)+, which is dangerous only alongside many other alternations.
var quantifiedAlternationRe = regexp.MustCompile(`\((?:\?:)?[^()]*\|[^()]*\)[*+{]`)

// IsSafe reports whether a regex fragment passes the static ReDoS screen.
// See Validate for the individual rules.
func IsSafe(fragment string) bool {
	return validateFragment(fragment) == nil
}

// Validate checks a constraint fragment for shapes likely to cause
// catastrophic backtracking and returns a descriptive error naming the
// offending parameter when the fragment is rejected.
//
// This is a conservative static screen, not a proof of safety: it trades a
// few false positives (safe-but-unusual patterns) for the guarantee that no
// known catastrophic-backtracking shape reaches a live matcher. Rejection
// happens at route registration, never at dispatch.
func Validate(param, fragment string) error {
	if err := validateFragment(fragment); err != nil {
		return fmt.Errorf("parameter %q: constraint %q: %w", param, fragment, err)
	}
	return nil
}

func validateFragment(fragment string) error {
	if len(fragment) > maxFragmentLength {
		return fmt.Errorf("%w: fragment exceeds %d characters", ErrUnsafePattern, maxFragmentLength)
	}

	for _, bad := range denylist {
		if strings.Contains(fragment, bad) {
			return fmt.Errorf("%w: contains denylisted sub-pattern %q", ErrUnsafePattern, bad)
		}
	}

	if nestedQuantifierRe.MatchString(fragment) {
		return fmt.Errorf("%w: nested repetition (quantified group under a quantifier)", ErrUnsafePattern)
	}

	alternations := strings.Count(fragment, "|")
	if alternations > maxAlternations {
		return fmt.Errorf("%w: %d alternation operators exceeds limit of %d",
			ErrUnsafePattern, alternations, maxAlternations)
	}
	if alternations > maxAlternationsWithQuantifiedGroup && quantifiedAlternationRe.MatchString(fragment) {
		return fmt.Errorf("%w: alternation inside quantified group combined with %d alternations",
			ErrUnsafePattern, alternations)
	}

	if _, err := regexp.Compile(fragment); err != nil {
		return fmt.Errorf("%w: does not compile: %w", ErrUnsafePattern, err)
	}

	return nil
}
