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

// Package filler is the engine core: it expands authored test cases into
// concrete instances, runs each instance through the external transition
// tool, validates the outcome and assembles the persisted fixture.
package filler

import (
	"fmt"

	"fixturefill/fixture"
	"fixturefill/forks"
	"fixturefill/testcase"
)

// Instance is one concrete (test case, fork, parameter binding) triple. The
// binding is complete: every declared parameter has exactly one value.
type Instance struct {
	Test      *testcase.Model
	Fork      forks.Fork
	Params    map[string]string
	FixtureID string
}

// ForkFilter narrows a run to a sub-range of the catalogue. Empty bounds
// leave the corresponding side open.
type ForkFilter struct {
	From  string
	Until string
}

// bounds resolves the filter endpoints to ordinals. Open sides resolve to
// the extremes of the catalogue.
func (f *ForkFilter) bounds() (int, int, error) {
	lo, hi := 0, forks.Latest().Ordinal
	if f == nil {
		return lo, hi, nil
	}
	if f.From != "" {
		fk, err := forks.Resolve(f.From)
		if err != nil {
			return 0, 0, &ConfigurationError{Msg: "invalid fork filter", Err: err}
		}
		lo = fk.Ordinal
	}
	if f.Until != "" {
		fk, err := forks.Resolve(f.Until)
		if err != nil {
			return 0, 0, &ConfigurationError{Msg: "invalid fork filter", Err: err}
		}
		hi = fk.Ordinal
	}
	if lo > hi {
		return 0, 0, &ConfigurationError{
			Msg: fmt.Sprintf("fork filter lower bound %s activates after upper bound %s", f.From, f.Until),
		}
	}
	return lo, hi, nil
}

// Expand enumerates the instances of one test case: forks in activation
// order, and within each fork the cartesian product of the parameter
// domains, walked with names sorted and the last name varying fastest. The
// order is a pure function of the test case, independent of any runtime
// concern.
func Expand(tc *testcase.Model, filter *ForkFilter) ([]*Instance, error) {
	span, err := forks.Range(tc.Forks.From, tc.Forks.Until)
	if err != nil {
		return nil, &ConfigurationError{Msg: fmt.Sprintf("test case %s", tc.ID), Err: err}
	}
	lo, hi, err := filter.bounds()
	if err != nil {
		return nil, err
	}

	names := tc.ParamNames()
	var instances []*Instance
	for _, fk := range span {
		if fk.Ordinal < lo || fk.Ordinal > hi {
			continue
		}
		for _, binding := range bindings(tc, names) {
			instances = append(instances, &Instance{
				Test:      tc,
				Fork:      fk,
				Params:    binding,
				FixtureID: fixture.MakeID(tc.ID, fk.Name, binding),
			})
		}
	}
	return instances, nil
}

// bindings builds the cartesian product of the parameter domains. A test
// case without parameters yields the single empty binding.
func bindings(tc *testcase.Model, names []string) []map[string]string {
	out := []map[string]string{{}}
	for _, name := range names {
		values := tc.Params[name]
		next := make([]map[string]string, 0, len(out)*len(values))
		for _, partial := range out {
			for _, value := range values {
				binding := make(map[string]string, len(names))
				for k, v := range partial {
					binding[k] = v
				}
				binding[name] = value
				next = append(next, binding)
			}
		}
		out = next
	}
	return out
}
