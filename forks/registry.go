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

package forks

import "fmt"

// UnknownForkError is returned when a name resolves to no catalogue entry.
type UnknownForkError struct {
	Name string
}

func (e *UnknownForkError) Error() string {
	return fmt.Sprintf("unknown fork %q", e.Name)
}

// InvalidRangeError is returned when a fork range has an unknown endpoint
// or its lower bound activates after its upper bound.
type InvalidRangeError struct {
	From   string
	Until  string
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid fork range [%s, %s]: %s", e.From, e.Until, e.Reason)
}

// byName is built once at init from the canonical table. The map is never
// written afterwards, so concurrent reads need no locking.
var byName = func() map[string]Fork {
	m := make(map[string]Fork, len(canonical)+len(aliases))
	for _, f := range canonical {
		m[f.Name] = f
	}
	for alias, name := range aliases {
		m[alias] = m[name]
	}
	return m
}()

// Resolve maps a fork name (or a known alias) onto its catalogue entry.
func Resolve(name string) (Fork, error) {
	f, ok := byName[name]
	if !ok {
		return Fork{}, &UnknownForkError{Name: name}
	}
	return f, nil
}

// MustResolve is Resolve for names known at compile time.
func MustResolve(name string) Fork {
	f, err := Resolve(name)
	if err != nil {
		panic(err)
	}
	return f
}

// Range returns every fork from `from` up to and including `until`, in
// activation order. An empty `until` leaves the range open at the newest
// known fork.
func Range(from, until string) ([]Fork, error) {
	lo, err := Resolve(from)
	if err != nil {
		return nil, &InvalidRangeError{From: from, Until: until, Reason: err.Error()}
	}
	hi := canonical[len(canonical)-1]
	if until != "" {
		if hi, err = Resolve(until); err != nil {
			return nil, &InvalidRangeError{From: from, Until: until, Reason: err.Error()}
		}
	}
	if lo.Ordinal > hi.Ordinal {
		return nil, &InvalidRangeError{
			From:   from,
			Until:  until,
			Reason: fmt.Sprintf("%s activates after %s", lo.Name, hi.Name),
		}
	}
	return canonical[lo.Ordinal : hi.Ordinal+1], nil
}

// Canonical returns all known forks in activation order. Callers must not
// modify the returned slice.
func Canonical() []Fork {
	return canonical
}

// Latest returns the newest catalogue entry.
func Latest() Fork {
	return canonical[len(canonical)-1]
}

// Supports reports whether the feature is active at the given fork. Unknown
// features are simply not supported; Supports never fails.
func Supports(f Fork, feature Feature) bool {
	span, ok := features[feature]
	if !ok {
		return false
	}
	if f.Ordinal < span.introducedAt {
		return false
	}
	return span.removedAt < 0 || f.Ordinal < span.removedAt
}
