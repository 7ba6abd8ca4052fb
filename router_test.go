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

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strada-dev/strada/compiler"
)

func noopHandler() {}

func newTestRouter(t *testing.T, opts ...Option) *Router {
	t.Helper()
	r := MustNew(append([]Option{WithoutMemoryManagement()}, opts...)...)
	t.Cleanup(r.Shutdown)
	return r
}

func TestNewValidatesConfiguration(t *testing.T) {
	t.Parallel()

	_, err := New(WithMemoryThresholds(10, 5, 50))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMemoryThresholdsInvalid)

	_, err = New(WithMemoryThresholds(0, 5, 50))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMemoryThresholdsInvalid)

	_, err = New(WithBloomFilter(0, 3))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBloomFilterSizeZero)

	_, err = New(WithBloomFilter(1024, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBloomHashFunctionsInvalid)

	assert.Panics(t, func() {
		MustNew(WithMemoryThresholds(10, 5, 50))
	})
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	err := r.Register("BREW", "/coffee", noopHandler, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedMethod)

	err = r.Register("GET", "", noopHandler, nil, nil)
	assert.ErrorIs(t, err, ErrEmptyPath)

	err = r.Register("GET", "/x", "not a function", nil, nil)
	assert.ErrorIs(t, err, ErrHandlerNotCallable)

	err = r.Register("GET", "/x", nil, nil, nil)
	assert.ErrorIs(t, err, ErrHandlerNotCallable)

	err = r.Register("GET", "/x", noopHandler, []any{noopHandler, 42}, nil)
	assert.ErrorIs(t, err, ErrMiddlewareNotCallable)
}

func TestRegisterRejectsUnsafeConstraint(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	err := r.GET("/items/:x<(a+)+b>", noopHandler)
	require.Error(t, err)
	assert.ErrorIs(t, err, compiler.ErrUnsafePattern)
	assert.Contains(t, err.Error(), `"x"`)

	assert.NoError(t, r.GET(`/items/:x<\d+>`, noopHandler))
}

func TestRegisterMethodCaseInsensitive(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	require.NoError(t, r.Register("get", "/users", noopHandler, nil, nil))

	_, ok := r.Resolve("GET", "/users")
	assert.True(t, ok)
}

func TestAddMethod(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	err := r.Register("PURGE", "/cache", noopHandler, nil, nil)
	assert.ErrorIs(t, err, ErrUnsupportedMethod)

	require.NoError(t, r.AddMethod("PURGE"))
	require.NoError(t, r.Register("PURGE", "/cache", noopHandler, nil, nil))

	m, ok := r.Resolve("PURGE", "/cache")
	require.True(t, ok)
	assert.Equal(t, "PURGE", m.Route.Method)

	assert.ErrorIs(t, r.AddMethod(""), ErrInvalidMethod)
	assert.ErrorIs(t, r.AddMethod("P U"), ErrInvalidMethod)
}

func TestVerbHelpers(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	require.NoError(t, r.GET("/a", noopHandler))
	require.NoError(t, r.POST("/a", noopHandler))
	require.NoError(t, r.PUT("/a", noopHandler))
	require.NoError(t, r.DELETE("/a", noopHandler))
	require.NoError(t, r.PATCH("/a", noopHandler))
	require.NoError(t, r.OPTIONS("/a", noopHandler))
	require.NoError(t, r.HEAD("/a", noopHandler))

	for _, method := range []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS", "HEAD"} {
		m, ok := r.Resolve(method, "/a")
		require.True(t, ok, method)
		assert.Equal(t, method, m.Route.Method)
	}
}

func TestAnyAndMatch(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	require.NoError(t, r.Any("/ping", noopHandler))
	for _, method := range r.Methods() {
		_, ok := r.Resolve(method, "/ping")
		assert.True(t, ok, method)
	}

	require.NoError(t, r.Match([]string{"GET", "HEAD"}, "/reports", noopHandler))
	_, ok := r.Resolve("GET", "/reports")
	assert.True(t, ok)
	_, ok = r.Resolve("HEAD", "/reports")
	assert.True(t, ok)
	_, ok = r.Resolve("POST", "/reports")
	assert.False(t, ok)

	assert.ErrorIs(t, r.Match(nil, "/x", noopHandler), ErrNoMethods)
}

func TestGroupPrefixComposition(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	mwA := func() {}
	mwB := func() {}
	own := func() {}

	err := r.Group("/v1", func(v1 *Router) {
		innerErr := v1.Group("/api", func(api *Router) {
			require.NoError(t, api.GET("/users/:id<int>", noopHandler, own))
		}, mwA)
		require.NoError(t, innerErr)
	}, mwB)
	require.NoError(t, err)

	m, ok := r.Resolve("GET", "/v1/api/users/7")
	require.True(t, ok)
	assert.Equal(t, "/v1/api/users/:id<int>", m.Route.Path)
	assert.Equal(t, map[string]string{"id": "7"}, m.Params)
	assert.Equal(t, "/v1/api", m.Route.GroupPrefix)

	// Middleware order: outer group, inner group, then the route's own.
	require.Len(t, m.Route.Middleware, 3)
	want := []any{mwB, mwA, own}
	for i, mw := range m.Route.Middleware {
		assert.Equal(t,
			reflect.ValueOf(want[i]).Pointer(),
			reflect.ValueOf(mw).Pointer(),
			"middleware %d", i)
	}
}

func TestGroupValidation(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	assert.ErrorIs(t, r.Group("/api", nil), ErrNilGroupBody)
	assert.ErrorIs(t, r.Group("", func(*Router) {}), ErrInvalidGroupPrefix)
	assert.ErrorIs(t, r.Group("/a b", func(*Router) {}), ErrInvalidGroupPrefix)
	assert.ErrorIs(t, r.Group("/api", func(*Router) {}, "not callable"), ErrMiddlewareNotCallable)
}

func TestGroupPrefixRestoredOnPanic(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	assert.Panics(t, func() {
		_ = r.Group("/broken", func(g *Router) {
			require.NoError(t, g.GET("/inside", noopHandler))
			panic("registration body failed")
		})
	})

	// A route registered after the panic must carry no stray prefix.
	require.NoError(t, r.GET("/after", noopHandler))
	m, ok := r.Resolve("GET", "/after")
	require.True(t, ok)
	assert.Equal(t, "/after", m.Route.Path)
	assert.Empty(t, m.Route.GroupPrefix)

	// Routes registered before the panic are still reachable.
	_, ok = r.Resolve("GET", "/broken/inside")
	assert.True(t, ok)
}

func TestRoutesSnapshot(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	require.NoError(t, r.GET("/a", noopHandler))
	require.NoError(t, r.POST("/b", noopHandler))

	routes := r.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, "GET", routes[0].Method)
	assert.Equal(t, "/a", routes[0].Path)
	assert.Equal(t, "POST", routes[1].Method)
}

func TestMetadataSanitizedOnRegistration(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	require.NoError(t, r.Register("GET", "/users", noopHandler, nil, map[string]any{
		"name": "users.index",
		"fn":   func() {},
	}))

	m, ok := r.Resolve("GET", "/users")
	require.True(t, ok)
	assert.Equal(t, "users.index", m.Route.Metadata["name"])
	assert.Equal(t, "[object]", m.Route.Metadata["fn"])
}

func TestAvailableShortcuts(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	shortcuts := r.AvailableShortcuts()
	assert.Equal(t, `\d+`, shortcuts["int"])
	assert.Contains(t, shortcuts, "slug")
	assert.Contains(t, shortcuts, "uuid")
}

func TestClearResetsEverything(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	require.NoError(t, r.GET("/users/:id<int>", noopHandler))
	_, ok := r.Resolve("GET", "/users/1")
	require.True(t, ok)

	r.Clear()

	_, ok = r.Resolve("GET", "/users/1")
	assert.False(t, ok)
	assert.Empty(t, r.Routes())

	stats := r.Stats()
	assert.Zero(t, stats.GroupHits)
	assert.Zero(t, stats.OptimizedHits)
	// The post-clear miss above is the only recorded dispatch.
	assert.Equal(t, uint64(1), stats.Misses)

	cs := r.Cache().Stats()
	assert.Zero(t, cs.CachedPatterns)

	// The router remains usable after Clear.
	require.NoError(t, r.GET("/fresh", noopHandler))
	_, ok = r.Resolve("GET", "/fresh")
	assert.True(t, ok)
}

func TestDiagnosticsEmitted(t *testing.T) {
	t.Parallel()

	var events []DiagnosticEvent
	handler := DiagnosticHandlerFunc(func(e DiagnosticEvent) {
		events = append(events, e)
	})
	r := newTestRouter(t, WithDiagnostics(handler))

	require.NoError(t, r.GET("/users", noopHandler))
	require.Error(t, r.GET("/bad/:x<(a+)+b>", noopHandler))

	var kinds []DiagnosticKind
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, DiagRouteRegistered)
	assert.Contains(t, kinds, DiagUnsafePattern)
}
