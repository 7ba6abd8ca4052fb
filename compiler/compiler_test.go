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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileStatic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
	}{
		{"root", "/"},
		{"single segment", "/users"},
		{"multi segment", "/api/v1/users"},
		{"with extension", "/assets/app.css"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := Compile(tt.template)
			require.NoError(t, err)
			assert.True(t, p.IsStatic())
			assert.Nil(t, p.Matcher)
			assert.Empty(t, p.Params)
			assert.Equal(t, tt.template, p.Template)
		})
	}
}

func TestCompileNamedParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		template  string
		path      string
		wantMatch bool
		want      map[string]string
	}{
		{
			name:      "default constraint",
			template:  "/users/:id",
			path:      "/users/42",
			wantMatch: true,
			want:      map[string]string{"id": "42"},
		},
		{
			name:      "int constraint accepts digits",
			template:  "/users/:id<int>",
			path:      "/users/42",
			wantMatch: true,
			want:      map[string]string{"id": "42"},
		},
		{
			name:      "int constraint rejects letters",
			template:  "/users/:id<int>",
			path:      "/users/abc",
			wantMatch: false,
		},
		{
			name:      "two params",
			template:  "/users/:id<int>/:slug<slug>",
			path:      "/users/42/hello-world",
			wantMatch: true,
			want:      map[string]string{"id": "42", "slug": "hello-world"},
		},
		{
			name:      "slug rejects uppercase",
			template:  "/posts/:slug<slug>",
			path:      "/posts/Hello-World",
			wantMatch: false,
		},
		{
			name:      "uuid",
			template:  "/jobs/:id<uuid>",
			path:      "/jobs/0f8fad5b-d9cb-4694-bd93-3c8f72e0a9b1",
			wantMatch: true,
			want:      map[string]string{"id": "0f8fad5b-d9cb-4694-bd93-3c8f72e0a9b1"},
		},
		{
			name:      "date",
			template:  "/reports/:day<date>",
			path:      "/reports/2026-08-31",
			wantMatch: true,
			want:      map[string]string{"day": "2026-08-31"},
		},
		{
			name:      "raw inline constraint",
			template:  "/codes/:c<[A-Z]{3}>",
			path:      "/codes/USD",
			wantMatch: true,
			want:      map[string]string{"c": "USD"},
		},
		{
			name:      "default constraint stops at slash",
			template:  "/files/:name",
			path:      "/files/a/b",
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := Compile(tt.template)
			require.NoError(t, err)
			require.False(t, p.IsStatic())

			m := p.Matcher.FindStringSubmatch(tt.path)
			if !tt.wantMatch {
				assert.Nil(t, m)
				return
			}
			require.NotNil(t, m)

			got := make(map[string]string, len(p.Params))
			for _, param := range p.Params {
				if !param.Anonymous {
					got[param.Name] = m[param.Position]
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileRawRegexBlocks(t *testing.T) {
	t.Parallel()

	t.Run("anchors stripped and capture becomes anonymous", func(t *testing.T) {
		t.Parallel()

		p, err := Compile(`/{^v(\d+)$}/status`)
		require.NoError(t, err)
		require.Len(t, p.Params, 1)
		assert.True(t, p.Params[0].Anonymous)
		assert.Equal(t, 1, p.Params[0].Position)

		m := p.Matcher.FindStringSubmatch("/v2/status")
		require.NotNil(t, m)
		assert.Equal(t, "2", m[1])

		assert.Nil(t, p.Matcher.FindStringSubmatch("/vx/status"))
	})

	t.Run("anonymous before named keeps positions straight", func(t *testing.T) {
		t.Parallel()

		p, err := Compile(`/{^(images|videos)$}/:id<int>`)
		require.NoError(t, err)
		require.Len(t, p.Params, 2)
		assert.True(t, p.Params[0].Anonymous)
		assert.Equal(t, 1, p.Params[0].Position)
		assert.Equal(t, "id", p.Params[1].Name)
		assert.Equal(t, 2, p.Params[1].Position)

		m := p.Matcher.FindStringSubmatch("/images/7")
		require.NotNil(t, m)
		assert.Equal(t, "images", m[1])
		assert.Equal(t, "7", m[2])
	})

	t.Run("file extension dollar is kept", func(t *testing.T) {
		t.Parallel()

		p, err := Compile(`/downloads/{^(archive\.json)$}`)
		require.NoError(t, err)
		require.Len(t, p.Params, 1)

		require.NotNil(t, p.Matcher.FindStringSubmatch("/downloads/archive.json"))
		assert.Nil(t, p.Matcher.FindStringSubmatch("/downloads/archiveXjson"))
	})

	t.Run("span without regex markers stays literal", func(t *testing.T) {
		t.Parallel()

		p, err := Compile("/docs/{page}/:id")
		require.NoError(t, err)
		require.Len(t, p.Params, 1)
		assert.Equal(t, "id", p.Params[0].Name)

		// The braces themselves are literal path text.
		require.NotNil(t, p.Matcher.FindStringSubmatch("/docs/{page}/9"))
	})

	t.Run("multiple captures in one block", func(t *testing.T) {
		t.Parallel()

		p, err := Compile(`/{^(\d{4})-(\d{2})$}/summary`)
		require.NoError(t, err)
		require.Len(t, p.Params, 2)
		assert.True(t, p.Params[0].Anonymous)
		assert.True(t, p.Params[1].Anonymous)

		m := p.Matcher.FindStringSubmatch("/2026-08/summary")
		require.NotNil(t, m)
		assert.Equal(t, "2026", m[1])
		assert.Equal(t, "08", m[2])
	})
}

func TestCompileInvariants(t *testing.T) {
	t.Parallel()

	templates := []string{
		"/",
		"/users",
		"/users/:id",
		"/users/:id<int>/:slug<slug>",
		`/{^v(\d+)$}/status`,
		`/{^(images|videos)$}/:id<int>`,
		"/a/b/c/d/e",
		"/files/:name<alnum>.json",
	}

	for _, template := range templates {
		p, err := Compile(template)
		require.NoError(t, err, template)

		// Static iff no parameters.
		assert.Equal(t, p.Matcher == nil, len(p.Params) == 0, template)

		if p.Matcher != nil {
			assert.Equal(t, len(p.Params), p.Matcher.NumSubexp(), template)
			for i, param := range p.Params {
				assert.Equal(t, i+1, param.Position, template)
			}
		}

		// Deterministic: a second compile is structurally equal.
		q, err := Compile(template)
		require.NoError(t, err, template)
		assert.Equal(t, p.Params, q.Params, template)
		if p.Matcher == nil {
			assert.Nil(t, q.Matcher, template)
		} else {
			require.NotNil(t, q.Matcher, template)
			assert.Equal(t, p.Matcher.String(), q.Matcher.String(), template)
		}
	}
}

func TestCompileTrailingSlash(t *testing.T) {
	t.Parallel()

	p, err := Compile("/users/:id<int>")
	require.NoError(t, err)

	assert.NotNil(t, p.Matcher.FindStringSubmatch("/users/42"))
	assert.NotNil(t, p.Matcher.FindStringSubmatch("/users/42/"))
	assert.Nil(t, p.Matcher.FindStringSubmatch("/users/42//"))
}

func TestCompileDotEscaping(t *testing.T) {
	t.Parallel()

	p, err := Compile("/archive.json/:id<int>")
	require.NoError(t, err)

	assert.NotNil(t, p.Matcher.FindStringSubmatch("/archive.json/1"))
	assert.Nil(t, p.Matcher.FindStringSubmatch("/archiveXjson/1"))
}

func TestCompileNormalization(t *testing.T) {
	t.Parallel()

	p, err := Compile("//users//:id<int>/")
	require.NoError(t, err)

	assert.NotNil(t, p.Matcher.FindStringSubmatch("/users/42"))
	assert.NotNil(t, p.Matcher.FindStringSubmatch("/users/42/"))
}

func TestCompileRejectsUnsafeConstraint(t *testing.T) {
	t.Parallel()

	_, err := Compile("/items/:x<(a+)+b>")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsafePattern)
	assert.Contains(t, err.Error(), `"x"`)
	assert.Contains(t, err.Error(), "(a+)+b")
}

func TestCompileConstraintWithInnerGroup(t *testing.T) {
	t.Parallel()

	// The slug shortcut contains a non-capturing group; an inline raw
	// constraint may carry a bare group. Neither may shift positions.
	p, err := Compile("/a/:x<(foo|bar)>/:y<int>")
	require.NoError(t, err)
	require.Len(t, p.Params, 2)
	assert.Equal(t, 2, p.Matcher.NumSubexp())

	m := p.Matcher.FindStringSubmatch("/a/bar/9")
	require.NotNil(t, m)
	assert.Equal(t, "bar", m[1])
	assert.Equal(t, "9", m[2])
}

func TestMustCompile(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		MustCompile("/users/:id<int>")
	})
	assert.Panics(t, func() {
		MustCompile("/items/:x<(a+)+b>")
	})
}

func TestCountCaptureGroups(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fragment string
		want     int
	}{
		{`(\d+)`, 1},
		{`(a)(b)`, 2},
		{`(?:a)`, 0},
		{`\(a\)`, 0},
		{`[(]a[)]`, 0},
		{`v(\d+)`, 1},
		{`(images|videos)`, 1},
		{`plain`, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, countCaptureGroups(tt.fragment), tt.fragment)
	}
}

func TestNonCapturing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{`\d+`, `\d+`},
		{`(foo|bar)`, `(?:foo|bar)`},
		{`(?:foo)`, `(?:foo)`},
		{`\(x\)`, `\(x\)`},
		{`(a)(?:b)(c)`, `(?:a)(?:b)(?:c)`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, nonCapturing(tt.in), tt.in)
	}
}

func FuzzCompile(f *testing.F) {
	seeds := []string{
		"/",
		"/users/:id<int>",
		`/{^v(\d+)$}/status`,
		"/a//b/",
		"/:x<(a+)+b>",
		"/docs/{page}",
		"/{unclosed",
		":name<",
		"/users/:id<slug>/posts/:post<uuid>",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, template string) {
		p, err := Compile(template)
		if err != nil {
			return
		}
		// The static invariant and the capture-count invariant must hold
		// for every accepted template.
		if (p.Matcher == nil) != (len(p.Params) == 0) {
			t.Fatalf("static invariant violated for %q", template)
		}
		if p.Matcher != nil && p.Matcher.NumSubexp() != len(p.Params) {
			t.Fatalf("capture count mismatch for %q", template)
		}
	})
}
