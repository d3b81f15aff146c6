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

// Package compiler invokes the external contract compiler to turn
// high-level source attached to pre-state accounts into bytecode.
package compiler

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"fixturefill/forks"
	"fixturefill/testcase"
)

// CompilationError is fatal to the test case that owns the source; it is
// never retried.
type CompilationError struct {
	Language string
	Output   string
	Err      error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("%s compilation failed: %v (%s)", e.Language, e.Err, strings.TrimSpace(e.Output))
}

func (e *CompilationError) Unwrap() error { return e.Err }

// Compiler wraps the external compiler binary. Compilation results are
// cached per (language, source, evm version), so a test case expanded over
// many forks compiles at most once per distinct evm version.
type Compiler struct {
	bin string

	mu    sync.Mutex
	cache map[cacheKey]hexutil.Bytes
}

type cacheKey struct {
	language   string
	source     string
	evmVersion string
}

// New returns a compiler using the given binary. An empty path defaults to
// the first "solc" entry in PATH.
func New(bin string) *Compiler {
	if bin == "" {
		bin = "solc"
	}
	return &Compiler{bin: bin, cache: make(map[cacheKey]hexutil.Bytes)}
}

// EVMVersion maps a fork onto the compiler's --evm-version argument.
// Difficulty-bomb delays compile like their base fork.
func EVMVersion(f forks.Fork) string {
	switch f {
	case forks.ConstantinopleFix:
		return "petersburg"
	case forks.MuirGlacier:
		return "istanbul"
	case forks.ArrowGlacier, forks.GrayGlacier:
		return "london"
	case forks.Merge:
		return "paris"
	default:
		return strings.ToLower(f.Name)
	}
}

// Compile turns the source into deployed bytecode for the given fork.
func (c *Compiler) Compile(ctx context.Context, src *testcase.Source, fork forks.Fork) (hexutil.Bytes, error) {
	key := cacheKey{language: src.Language, source: src.Code, evmVersion: EVMVersion(fork)}

	c.mu.Lock()
	cached, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	code, err := c.run(ctx, src, key.evmVersion)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = code
	c.mu.Unlock()
	return code, nil
}

func (c *Compiler) run(ctx context.Context, src *testcase.Source, evmVersion string) (hexutil.Bytes, error) {
	args := []string{"--evm-version", evmVersion, "--bin"}
	switch src.Language {
	case "yul", "":
		args = append(args, "--strict-assembly")
	case "solidity":
		// --bin alone.
	default:
		return nil, &CompilationError{
			Language: src.Language,
			Err:      fmt.Errorf("unsupported source language"),
		}
	}
	args = append(args, "-")

	cmd := exec.CommandContext(ctx, c.bin, args...)
	cmd.Stdin = strings.NewReader(src.Code)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &CompilationError{Language: src.Language, Output: stderr.String(), Err: err}
	}

	code, err := extractBinary(stdout.String())
	if err != nil {
		return nil, &CompilationError{Language: src.Language, Output: stdout.String(), Err: err}
	}
	return code, nil
}

// extractBinary pulls the bytecode out of the compiler's human-readable
// output: the first hex line following a "Binary" marker, or the whole
// output if the tool prints bare hex.
func extractBinary(out string) (hexutil.Bytes, error) {
	lines := strings.Split(out, "\n")
	sawMarker := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Binary") {
			sawMarker = true
			continue
		}
		if sawMarker && isHex(line) {
			return hexutil.Decode(withPrefix(line))
		}
	}
	if trimmed := strings.TrimSpace(out); isHex(trimmed) {
		return hexutil.Decode(withPrefix(trimmed))
	}
	return nil, fmt.Errorf("no bytecode in compiler output")
}

func withPrefix(s string) string {
	if strings.HasPrefix(s, "0x") {
		return s
	}
	return "0x" + s
}

func isHex(s string) bool {
	s = strings.TrimPrefix(s, "0x")
	if len(s) == 0 || len(s)%2 != 0 {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') && (r < 'A' || r > 'F') {
			return false
		}
	}
	return true
}
