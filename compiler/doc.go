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

// Package compiler turns declarative path templates into anchored regular
// expression matchers with an ordered parameter descriptor list.
//
// A path template mixes three kinds of syntax in one string:
//
//   - literal segments:        /users/profile
//   - named parameters:        /users/:id or /users/:id<int>
//   - raw regex blocks:        /{^(images|videos)$}/:id<int>
//
// Named parameters accept an optional constraint in angle brackets. The
// constraint is either a shortcut token (int, slug, alpha, alnum, uuid, date,
// year, month, day) resolved through the constraint table, or a raw regex
// fragment supplied by the caller. Every fragment passes through the safety
// validator before it is compiled, so patterns with known catastrophic
// backtracking shapes are rejected at registration time rather than being
// evaluated against untrusted request paths.
//
// Compilation is pure and deterministic: the same template always produces a
// structurally identical Pattern, which makes the output safe to memoize and
// safe to race on write.
//
// Static templates (no parameters, no regex blocks) short-circuit: they
// compile to a Pattern with a nil Matcher and an empty parameter list, and
// are matched upstream by exact string comparison. This invariant (nil
// matcher iff zero parameters) is what allows the dispatcher's static fast
// path to skip regex evaluation entirely.
//
// Example:
//
//	p, err := compiler.Compile("/users/:id<int>/:slug<slug>")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	m := p.Matcher.FindStringSubmatch("/users/42/hello-world")
//	// m[1] == "42", m[2] == "hello-world"
package compiler
