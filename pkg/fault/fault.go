// Copyright 2025 walteh LLC
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

// Package fault defines the error kinds shared by every copytree package.
//
// Kinds are base errors; concrete failures wrap them so callers can branch
// with errors.Is:
//
//	if errors.Is(err, fault.ErrRejected) { ... }
package fault

import (
	"context"

	"gitlab.com/tozd/go/errors"
)

var (
	// ErrInvalidArgument marks bad paths and missing collaborators. Never retried.
	ErrInvalidArgument = errors.Base("invalid argument")
	// ErrIOFailure marks OS level read, write and permission errors.
	ErrIOFailure = errors.Base("i/o failure")
	// ErrRejected is returned when a dispatcher is saturated or shut down.
	ErrRejected = errors.Base("rejected")
	// ErrCorruptArchive is returned by the extractors for unreadable archives.
	ErrCorruptArchive = errors.Base("corrupt archive")
	// ErrTemplate is returned when a template cannot be parsed or executed.
	ErrTemplate = errors.Base("template error")
	// ErrCancelled resolves handles that were cancelled before they could finish.
	ErrCancelled = errors.Base("cancelled")
)

// 🚫 Invalid builds an ErrInvalidArgument with a formatted reason
func Invalid(format string, args ...any) error {
	return errors.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...)
}

// ⛔ Rejected builds an ErrRejected with a formatted reason
func Rejected(format string, args ...any) error {
	return errors.Errorf("%w: "+format, append([]any{ErrRejected}, args...)...)
}

// 💾 IO wraps an OS error as ErrIOFailure, keeping the cause reachable with errors.Is
func IO(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errors.Errorf("%w: "+format+": %w", append(append([]any{ErrIOFailure}, args...), err)...)
}

// IsCancellation reports whether err is the result of a cancellation request
// rather than a genuine failure.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// 📦 Corrupt wraps a decoding error as ErrCorruptArchive
func Corrupt(err error, format string, args ...any) error {
	if err == nil {
		return errors.Errorf("%w: "+format, append([]any{ErrCorruptArchive}, args...)...)
	}
	return errors.Errorf("%w: "+format+": %w", append(append([]any{ErrCorruptArchive}, args...), err)...)
}
