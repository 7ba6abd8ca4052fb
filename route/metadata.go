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
	"io"
	"reflect"
	"time"

	"github.com/spf13/cast"
)

// Markers substituted for metadata values that have no JSON representation.
const (
	ObjectMarker   = "[object]"
	ResourceMarker = "[resource]"
)

// SanitizeMetadata deep-copies a metadata document, reducing it to
// JSON-safe values: scalars, string-keyed maps, and slices. Values without
// a JSON representation (closures, channels, readers, arbitrary structs)
// are replaced with literal markers so downstream serialization, such as
// route introspection or OpenAPI export, can never fail.
//
// The input is never mutated. A nil input yields a non-nil empty document,
// so callers can attach to the result unconditionally.
func SanitizeMetadata(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case bool, string:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	case time.Duration:
		return val.String()
	case map[string]any:
		return SanitizeMetadata(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return cast.ToInt64(v)
	case reflect.Float32, reflect.Float64:
		return cast.ToFloat64(v)
	case reflect.String:
		return cast.ToString(v)
	case reflect.Bool:
		return cast.ToBool(v)
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key, err := cast.ToStringE(iter.Key().Interface())
			if err != nil {
				continue // unrepresentable key, drop the entry
			}
			out[key] = sanitizeValue(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			out[i] = sanitizeValue(rv.Index(i).Interface())
		}
		return out
	case reflect.Chan, reflect.UnsafePointer:
		return ResourceMarker
	case reflect.Func:
		return ObjectMarker
	case reflect.Ptr, reflect.Interface, reflect.Struct:
		if isResource(v) {
			return ResourceMarker
		}
		return ObjectMarker
	default:
		return ObjectMarker
	}
}

// isResource classifies values backed by external state (streams, files,
// connections) so they get the resource marker rather than the generic
// object marker.
func isResource(v any) bool {
	switch v.(type) {
	case io.Reader, io.Writer, io.Closer:
		return true
	}
	return false
}
