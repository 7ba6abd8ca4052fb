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

package strada

import "fmt"

// GET registers a route for the GET method.
//
//	r.GET("/users/:id<int>", getUser, authMiddleware)
func (r *Router) GET(path string, handler any, middleware ...any) error {
	return r.Register("GET", path, handler, middleware, nil)
}

// POST registers a route for the POST method.
func (r *Router) POST(path string, handler any, middleware ...any) error {
	return r.Register("POST", path, handler, middleware, nil)
}

// PUT registers a route for the PUT method.
func (r *Router) PUT(path string, handler any, middleware ...any) error {
	return r.Register("PUT", path, handler, middleware, nil)
}

// DELETE registers a route for the DELETE method.
func (r *Router) DELETE(path string, handler any, middleware ...any) error {
	return r.Register("DELETE", path, handler, middleware, nil)
}

// PATCH registers a route for the PATCH method.
func (r *Router) PATCH(path string, handler any, middleware ...any) error {
	return r.Register("PATCH", path, handler, middleware, nil)
}

// OPTIONS registers a route for the OPTIONS method.
func (r *Router) OPTIONS(path string, handler any, middleware ...any) error {
	return r.Register("OPTIONS", path, handler, middleware, nil)
}

// HEAD registers a route for the HEAD method.
func (r *Router) HEAD(path string, handler any, middleware ...any) error {
	return r.Register("HEAD", path, handler, middleware, nil)
}

// Any registers the route for every method in the current verb set,
// including custom methods added via AddMethod.
func (r *Router) Any(path string, handler any, middleware ...any) error {
	for _, method := range r.Methods() {
		if err := r.Register(method, path, handler, middleware, nil); err != nil {
			return fmt.Errorf("any %s: %w", method, err)
		}
	}
	return nil
}

// Match registers the route for an explicit list of methods.
//
//	r.Match([]string{"GET", "HEAD"}, "/reports/:year<year>", report)
func (r *Router) Match(methods []string, path string, handler any, middleware ...any) error {
	if len(methods) == 0 {
		return ErrNoMethods
	}
	for _, method := range methods {
		if err := r.Register(method, path, handler, middleware, nil); err != nil {
			return err
		}
	}
	return nil
}
