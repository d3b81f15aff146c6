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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// Client executes transition requests against the external tool. Both
// implementations are safe for use from a single worker; workers do not
// share clients.
type Client interface {
	Execute(ctx context.Context, req *Request) (*Result, error)
	Close() error
}

// Options configure a client.
type Options struct {
	// Timeout bounds one Execute call. Zero means DefaultTimeout.
	Timeout time.Duration
	// Args are the arguments the tool is invoked with. Empty means the
	// default for the client kind.
	Args []string
	// TraceDir, when set, receives a numbered request/response JSON pair
	// per invocation.
	TraceDir string
}

// DefaultTimeout bounds a single transition when the caller sets none.
const DefaultTimeout = 60 * time.Second

// maxResponseSize caps how much tool output is buffered before the
// response is declared malformed.
const maxResponseSize = 1 << 29

// probeForks asks the binary which forks it supports, one name per line.
// Tools without the subcommand get a nil set, which means "assume all".
func probeForks(binary string) map[string]bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, binary, "--list-forks").Output()
	if err != nil {
		return nil
	}
	supported := make(map[string]bool)
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			supported[line] = true
		}
	}
	if len(supported) == 0 {
		return nil
	}
	return supported
}

func checkFork(binary string, supported map[string]bool, fork string) error {
	if supported != nil && !supported[fork] {
		return &UnsupportedForkError{Binary: binary, Fork: fork}
	}
	return nil
}

// traceDump writes the request/response pair of one invocation for
// debugging. Dump failures are ignored; tracing must never fail a fill.
func traceDump(dir string, seq uint64, req, res []byte) {
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return
	}
	prefix := filepath.Join(dir, fmt.Sprintf("%04d", seq))
	_ = os.WriteFile(prefix+"-request.json", req, 0644)
	if res != nil {
		_ = os.WriteFile(prefix+"-response.json", res, 0644)
	}
}

// ExecClient spawns one tool process per Execute call: the request goes to
// stdin, the response comes back on stdout. Simple and stateless, at the
// cost of per-call process startup.
type ExecClient struct {
	binary    string
	args      []string
	timeout   time.Duration
	traceDir  string
	supported map[string]bool
	seq       atomic.Uint64
}

// NewExecClient resolves the binary and probes its fork support once.
func NewExecClient(binary string, opts Options) (*ExecClient, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, &InvocationError{Binary: binary, Err: err}
	}
	c := &ExecClient{
		binary:    path,
		args:      opts.Args,
		timeout:   opts.Timeout,
		traceDir:  opts.TraceDir,
		supported: probeForks(path),
	}
	if len(c.args) == 0 {
		c.args = []string{"t8n"}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	return c, nil
}

// Execute runs one transition. On any failure the spawned process is gone
// and no partial output escapes. Only the per-call timeout bounds the
// process: run cancellation stops further calls from being made, it never
// kills a tool mid-write.
func (c *ExecClient) Execute(ctx context.Context, req *Request) (*Result, error) {
	if err := checkFork(c.binary, c.supported, req.Fork); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &ProtocolError{Detail: "request does not encode", Err: err}
	}

	cctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, c.binary, c.args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	seq := c.seq.Add(1)
	traceDump(c.traceDir, seq, payload, stdout.Bytes())

	if cctx.Err() == context.DeadlineExceeded {
		return nil, &TimeoutError{Binary: c.binary, Timeout: c.timeout.String()}
	}
	if runErr != nil {
		return nil, &InvocationError{Binary: c.binary, Stderr: stderr.String(), Err: runErr}
	}
	if stdout.Len() > maxResponseSize {
		return nil, &ProtocolError{Detail: "response exceeds size limit", Err: fmt.Errorf("%d bytes", stdout.Len())}
	}
	return decodeResult(stdout.Bytes())
}

// Close is a no-op; ExecClient holds no process between calls.
func (c *ExecClient) Close() error { return nil }
