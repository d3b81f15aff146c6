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

import "sort"

// Status classifies how one instance ended.
type Status int

const (
	// StatusPassed means validation succeeded and the fixture was written.
	StatusPassed Status = iota
	// StatusFailed means the tool answered but a post-condition did not
	// hold. No fixture is written.
	StatusFailed
	// StatusErrored means the instance could not be evaluated at all:
	// tool fault, compilation failure, unparseable field.
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// InstanceResult is the per-instance line of the run summary.
type InstanceResult struct {
	FixtureID string
	TestID    string
	Fork      string
	Status    Status

	// Outcome is set when the instance reached validation.
	Outcome *Outcome
	// Err is set when the instance errored.
	Err error
}

// RunSummary aggregates a whole run. Results are sorted by fixture id, so
// two runs over the same inputs summarize identically regardless of worker
// scheduling.
type RunSummary struct {
	Passed  int
	Failed  int
	Errored int
	Results []InstanceResult
}

func (s *RunSummary) add(r InstanceResult) {
	switch r.Status {
	case StatusPassed:
		s.Passed++
	case StatusFailed:
		s.Failed++
	case StatusErrored:
		s.Errored++
	}
	s.Results = append(s.Results, r)
}

func (s *RunSummary) sort() {
	sort.Slice(s.Results, func(i, j int) bool {
		return s.Results[i].FixtureID < s.Results[j].FixtureID
	})
}

// OK reports whether the run completed without engine faults. Failed
// validations are an answer, not a fault; errored instances are a fault.
func (s *RunSummary) OK() bool {
	return s.Errored == 0
}
