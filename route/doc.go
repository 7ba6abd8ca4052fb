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

// Package route holds the route and group value objects shared between the
// registry and its collaborators.
//
// A Route is an immutable record produced at registration time: the compiled
// pattern, the opaque handler, the ordered middleware chain, and a JSON-safe
// metadata document. Handlers and middleware are opaque callables; this
// package orders and attaches them but never invokes them; invocation
// belongs to the middleware pipeline collaborator.
//
// Metadata attached to a route is sanitized on input so that downstream JSON
// serialization (introspection endpoints, OpenAPI exporters) can never fail:
// values that have no JSON representation are replaced with literal markers.
package route
