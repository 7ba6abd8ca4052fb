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

package route

import (
	"github.com/strada-dev/strada/compiler"
)

// KeySeparator joins method and path into a route key.
const KeySeparator = "::"

// Key builds the canonical route key for a method and path template.
func Key(method, path string) string {
	return method + KeySeparator + path
}

// Route is a registered route record. Once registered it is treated as
// immutable: re-registration of the same method and path overwrites the
// record with an equal value, never mutates it in place.
type Route struct {
	Method      string
	Path        string
	Pattern     *compiler.Pattern
	Handler     any            // opaque callable, invoked by the pipeline collaborator
	Middleware  []any          // ordered chain, group middleware first
	Metadata    map[string]any // JSON-safe document (sanitized on input)
	GroupPrefix string         // longest group prefix this route was registered under
}

// Key returns the method::path cache key for this route.
func (r *Route) Key() string {
	return Key(r.Method, r.Path)
}

// IsStatic reports whether the route is matched by exact string comparison.
// A route is static iff its compiled pattern has no matcher, which by the
// compiler's invariant also means it has zero parameters.
func (r *Route) IsStatic() bool {
	return r.Pattern == nil || r.Pattern.IsStatic()
}

// ParamNames returns the named parameter names in declaration order,
// skipping anonymous capture groups.
func (r *Route) ParamNames() []string {
	if r.Pattern == nil || len(r.Pattern.Params) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.Pattern.Params))
	for _, p := range r.Pattern.Params {
		if !p.Anonymous {
			names = append(names, p.Name)
		}
	}
	return names
}
