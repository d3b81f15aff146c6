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
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"

	"fixturefill/fixture"
	"fixturefill/t8n"
	"fixturefill/testcase"
)

// DefaultVersion is the provenance string stamped into fixtures when the
// caller does not set one.
const DefaultVersion = "fixturefill-1.0.0"

// ClientFactory spawns one transition tool client. Each worker gets its own
// client, so tool processes are never shared across goroutines.
type ClientFactory func() (t8n.Client, error)

// Options tunes a run.
type Options struct {
	// Workers is the number of concurrent instances. Zero means one; the
	// produced fixtures are identical either way.
	Workers int
	// StopOnFailure cancels the run at the first failed or errored
	// instance. In-flight instances finish, queued ones are dropped.
	StopOnFailure bool
	// ChainID goes into every transition request. Zero means chain id 1.
	ChainID uint64
	// Filter narrows the fork axis of the expansion.
	Filter *ForkFilter
	// Version overrides the provenance string.
	Version string
}

// Orchestrator drives a whole run: expansion, execution, validation,
// assembly and persistence.
type Orchestrator struct {
	newClient ClientFactory
	compiler  CodeCompiler
	sink      fixture.Sink
	opts      Options
	log       log.Logger
}

// New builds an orchestrator. The sink must be empty; fixtures from earlier
// runs are superseded, never merged into.
func New(newClient ClientFactory, comp CodeCompiler, sink fixture.Sink, opts Options) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.ChainID == 0 {
		opts.ChainID = 1
	}
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	return &Orchestrator{
		newClient: newClient,
		compiler:  comp,
		sink:      sink,
		opts:      opts,
		log:       log.Root(),
	}
}

// SetLogger replaces the run logger.
func (o *Orchestrator) SetLogger(l log.Logger) { o.log = l }

// Run expands the test cases and fills every resulting instance. The test
// cases are walked in the given order; instance order within a test case is
// the expansion order. Returns a ConfigurationError before any tool spawn
// when the run cannot be meaningful: bad filter, unexpandable case, or two
// instances mapping onto one fixture id.
func (o *Orchestrator) Run(ctx context.Context, cases []*testcase.Model) (*RunSummary, error) {
	var instances []*Instance
	seen := make(map[string]bool)
	for _, tc := range cases {
		expanded, err := Expand(tc, o.opts.Filter)
		if err != nil {
			return nil, err
		}
		for _, inst := range expanded {
			if seen[inst.FixtureID] {
				return nil, &ConfigurationError{
					Msg: "duplicate fixture id",
					Err: &fixture.DuplicateFixtureError{ID: inst.FixtureID},
				}
			}
			seen[inst.FixtureID] = true
		}
		instances = append(instances, expanded...)
	}
	o.log.Info("Expanded test cases", "cases", len(cases), "instances", len(instances), "workers", o.opts.Workers)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan *Instance)
	results := make(chan InstanceResult, len(instances))
	var wg sync.WaitGroup
	for w := 0; w < o.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.worker(runCtx, cancel, queue, results)
		}()
	}

feed:
	for _, inst := range instances {
		select {
		case queue <- inst:
		case <-runCtx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()
	close(results)

	summary := &RunSummary{}
	for r := range results {
		summary.add(r)
	}
	summary.sort()
	o.log.Info("Run finished", "passed", summary.Passed, "failed", summary.Failed, "errored", summary.Errored)
	return summary, nil
}

// worker owns one tool client for its whole lifetime. A factory failure
// errors every instance the worker would have handled.
func (o *Orchestrator) worker(ctx context.Context, stop context.CancelFunc, queue <-chan *Instance, results chan<- InstanceResult) {
	client, err := o.newClient()
	if err != nil {
		for inst := range queue {
			results <- InstanceResult{
				FixtureID: inst.FixtureID,
				TestID:    inst.Test.ID,
				Fork:      inst.Fork.Name,
				Status:    StatusErrored,
				Err:       fmt.Errorf("failed to start transition tool: %w", err),
			}
		}
		return
	}
	defer client.Close()

	for inst := range queue {
		select {
		case <-ctx.Done():
			return
		default:
		}
		r := o.fillInstance(ctx, client, inst)
		results <- r
		switch r.Status {
		case StatusPassed:
			o.log.Debug("Instance passed", "fixture", r.FixtureID)
		case StatusFailed:
			o.log.Warn("Instance failed validation", "fixture", r.FixtureID, "report", r.Outcome.Report())
		case StatusErrored:
			o.log.Error("Instance errored", "fixture", r.FixtureID, "err", r.Err)
		}
		if o.opts.StopOnFailure && r.Status != StatusPassed {
			// Stops the feed; instances already dequeued elsewhere still
			// finish and get tallied.
			stop()
		}
	}
}

// fillInstance runs the whole pipeline for one instance: pre-state, the
// state root probe, one transition per block, validation, assembly and
// persistence. Any tool or build fault is fatal to the instance and only
// the instance.
func (o *Orchestrator) fillInstance(ctx context.Context, client t8n.Client, inst *Instance) InstanceResult {
	result := InstanceResult{
		FixtureID: inst.FixtureID,
		TestID:    inst.Test.ID,
		Fork:      inst.Fork.Name,
	}
	errored := func(err error) InstanceResult {
		result.Status = StatusErrored
		result.Err = err
		return result
	}

	pre, err := buildPre(ctx, inst, o.compiler)
	if err != nil {
		return errored(err)
	}

	// The probe run has no transactions; its state root is the pre-state
	// root and anchors the header chain.
	genesisEnv, err := buildEnv(inst, 0, nil)
	if err != nil {
		return errored(err)
	}
	genesisRes, err := client.Execute(ctx, &t8n.Request{
		Fork:    inst.Fork.Name,
		ChainID: hexutil.Uint64(o.opts.ChainID),
		Env:     genesisEnv,
		Alloc:   pre,
	})
	if err != nil {
		return errored(err)
	}

	var (
		execs      []blockExecution
		rejected   []int
		alloc      = genesisRes.Alloc
		parentRoot = genesisRes.Result.StateRoot
		txOffset   = 0
	)
	for bi := range inst.Test.Blocks {
		block := &inst.Test.Blocks[bi]
		env, err := buildEnv(inst, uint64(bi+1), block.Env)
		if err != nil {
			return errored(fmt.Errorf("block %d: %w", bi+1, err))
		}
		txs, err := buildTxs(inst, block)
		if err != nil {
			return errored(fmt.Errorf("block %d: %w", bi+1, err))
		}
		res, err := client.Execute(ctx, &t8n.Request{
			Fork:    inst.Fork.Name,
			ChainID: hexutil.Uint64(o.opts.ChainID),
			Env:     env,
			Alloc:   alloc,
			Txs:     txs,
		})
		if err != nil {
			return errored(fmt.Errorf("block %d: %w", bi+1, err))
		}
		for _, r := range res.Result.Rejected {
			if r.Index < 0 || r.Index >= len(txs) {
				return errored(&t8n.ProtocolError{
					Detail: fmt.Sprintf("rejected index %d out of range for %d transactions", r.Index, len(txs)),
				})
			}
			rejected = append(rejected, txOffset+r.Index)
		}
		execs = append(execs, blockExecution{
			Env:             env,
			Txs:             txs,
			ParentStateRoot: parentRoot,
			Result:          res,
		})
		alloc = res.Alloc
		parentRoot = res.Result.StateRoot
		txOffset += len(txs)
	}

	outcome, err := Validate(inst, alloc, rejected)
	if err != nil {
		return errored(err)
	}
	result.Outcome = outcome
	if !outcome.Passed {
		result.Status = StatusFailed
		return result
	}

	f, err := assemble(inst, pre, genesisEnv, genesisRes.Result.StateRoot, execs, o.opts.Version)
	if err != nil {
		return errored(err)
	}
	if err := o.sink.Put(f); err != nil {
		return errored(err)
	}
	result.Status = StatusPassed
	return result
}
