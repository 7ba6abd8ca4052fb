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

import "maps"

// DefaultConstraint is the fragment used for a named parameter declared
// without a constraint. It matches everything up to the next path separator.
const DefaultConstraint = `[^/]+`

// shortcuts maps constraint tokens to canonical regex fragments.
// Fragments deliberately avoid capture groups; capture-group numbering is
// owned by the compiler, and a constraint that introduced its own groups
// would shift every later parameter's position.
var shortcuts = map[string]string{
	"int":   `\d+`,
	"slug":  `[a-z0-9]+(?:-[a-z0-9]+)*`,
	"alpha": `[a-zA-Z]+`,
	"alnum": `[a-zA-Z0-9]+`,
	"uuid":  `[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}`,
	"date":  `\d{4}-\d{2}-\d{2}`,
	"year":  `\d{4}`,
	"month": `0[1-9]|1[0-2]`,
	"day":   `0[1-9]|[12]\d|3[01]`,
}

// Resolve maps a constraint token to its canonical regex fragment.
// Unknown tokens are returned unchanged and treated as caller-supplied raw
// regex fragments. Resolve is a pure lookup with no failure mode; safety
// screening of the resulting fragment is the validator's job.
func Resolve(token string) string {
	if fragment, ok := shortcuts[token]; ok {
		return fragment
	}
	return token
}

// Shortcuts returns a copy of the constraint shortcut table for
// introspection. Mutating the returned map has no effect on resolution.
func Shortcuts() map[string]string {
	out := make(map[string]string, len(shortcuts))
	maps.Copy(out, shortcuts)
	return out
}
