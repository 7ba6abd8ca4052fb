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

import "strings"

// Group is a registration scope contributing a path prefix and shared
// middleware to every route registered within it. Group middleware always
// runs before route-specific middleware; nested groups concatenate their
// middleware outer-to-inner.
type Group struct {
	Prefix     string // normalized path prefix
	Middleware []any
}

// NormalizePrefix canonicalizes a group prefix: repeated '/' collapse to
// one, a single leading '/' is ensured, and the trailing '/' is stripped
// except for the root group "/".
func NormalizePrefix(prefix string) string {
	if prefix == "" {
		return "/"
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	for strings.Contains(prefix, "//") {
		prefix = strings.ReplaceAll(prefix, "//", "/")
	}
	if len(prefix) > 1 {
		prefix = strings.TrimSuffix(prefix, "/")
	}
	return prefix
}

// JoinPrefix composes a parent prefix with a child prefix by concatenation
// followed by normalization. This is how nested groups build their full
// prefix.
func JoinPrefix(parent, child string) string {
	switch {
	case parent == "" || parent == "/":
		return NormalizePrefix(child)
	case child == "" || child == "/":
		return NormalizePrefix(parent)
	default:
		return NormalizePrefix(parent + "/" + child)
	}
}

// JoinPath appends a route path to a group prefix, collapsing the separator.
func JoinPath(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		if path == "" {
			return "/"
		}
		if !strings.HasPrefix(path, "/") {
			return "/" + path
		}
		return path
	}
	if path == "" || path == "/" {
		return prefix
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return prefix + path
}
