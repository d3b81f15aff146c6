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

package filler

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ConfigurationError aborts a run before any execution starts: an unknown
// fork in a filter, an unexpandable test case, a bad output location.
type ConfigurationError struct {
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("configuration error: %s", e.Msg)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ChainConsistencyError means consecutive blocks of an assembled fixture
// reference inconsistent state roots: either the multi-block test case is
// malformed or the transition tool misbehaved. Fatal to the instance.
type ChainConsistencyError struct {
	FixtureID string
	Block     int
	Want      common.Hash
	Got       common.Hash
}

func (e *ChainConsistencyError) Error() string {
	return fmt.Sprintf("fixture %s: block %d parent state root %s does not match previous state root %s",
		e.FixtureID, e.Block, e.Got, e.Want)
}
