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

import "errors"

var (
	// ErrUnsupportedMethod indicates that the HTTP method is not in the
	// router's verb set. Extend the set with AddMethod.
	ErrUnsupportedMethod = errors.New("unsupported HTTP method")

	// ErrInvalidMethod indicates a malformed verb passed to AddMethod.
	ErrInvalidMethod = errors.New("invalid HTTP method")

	// ErrHandlerNotCallable indicates that the registered handler is not a
	// callable value.
	ErrHandlerNotCallable = errors.New("handler is not callable")

	// ErrMiddlewareNotCallable indicates that a middleware entry is not a
	// callable value.
	ErrMiddlewareNotCallable = errors.New("middleware is not callable")

	// ErrNilGroupBody indicates that Group was called without a body
	// function.
	ErrNilGroupBody = errors.New("group body function is nil")

	// ErrInvalidGroupPrefix indicates a malformed group prefix, such as an
	// empty string or one containing whitespace.
	ErrInvalidGroupPrefix = errors.New("invalid group prefix")

	// ErrEmptyPath indicates that a route was registered with an empty
	// path template.
	ErrEmptyPath = errors.New("route path is empty")

	// ErrNoMethods indicates that Match was called with an empty method
	// list.
	ErrNoMethods = errors.New("no methods given")

	// ErrMemoryThresholdsInvalid indicates that memory thresholds are not
	// strictly increasing positive values.
	ErrMemoryThresholdsInvalid = errors.New("memory thresholds must be positive and increasing")

	// ErrBloomFilterSizeZero indicates that the bloom filter size must be
	// non-zero.
	ErrBloomFilterSizeZero = errors.New("bloom filter size must be non-zero")

	// ErrBloomHashFunctionsInvalid indicates that the number of bloom hash
	// functions must be positive.
	ErrBloomHashFunctionsInvalid = errors.New("bloom hash functions must be positive")
)
