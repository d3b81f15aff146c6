// Copyright 2025 The fixturefill Authors
// This file is part of the fixturefill library.
//
// The fixturefill library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The fixturefill library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the fixturefill library. If not, see <http://www.gnu.org/licenses/>.

package t8n

import (
	"fmt"
	"strings"
)

// InvocationError covers a missing executable, a failed spawn, or a
// non-zero exit. The instance that hit it is errored; the run continues.
type InvocationError struct {
	Binary string
	Stderr string
	Err    error
}

func (e *InvocationError) Error() string {
	msg := fmt.Sprintf("transition tool %s failed: %v", e.Binary, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *InvocationError) Unwrap() error { return e.Err }

// ProtocolError means the tool produced output that does not parse against
// the response schema. Any session it came from must be torn down.
type ProtocolError struct {
	Detail string
	Err    error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("transition tool protocol violation: %s: %v", e.Detail, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// TimeoutError means the tool did not answer within the per-instance
// budget. The spawned process is cleaned up before it is returned.
type TimeoutError struct {
	Binary  string
	Timeout string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transition tool %s timed out after %s", e.Binary, e.Timeout)
}

// UnsupportedForkError is returned before spawning anything when the
// configured tool advertises no support for the requested fork.
type UnsupportedForkError struct {
	Binary string
	Fork   string
}

func (e *UnsupportedForkError) Error() string {
	return fmt.Sprintf("transition tool %s does not support fork %s", e.Binary, e.Fork)
}
