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
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// SessionClient keeps one tool process alive across Execute calls and
// frames each request/response as a little-endian uint32 length followed
// by the JSON body. A single malformed response tears the whole session
// down, so a later request can never read stale bytes; the next call
// respawns the process.
type SessionClient struct {
	binary    string
	args      []string
	timeout   time.Duration
	traceDir  string
	supported map[string]bool
	seq       uint64

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	stderr *bytes.Buffer
}

// NewSessionClient resolves the binary and probes its fork support. The
// process itself is spawned lazily on the first Execute.
func NewSessionClient(binary string, opts Options) (*SessionClient, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, &InvocationError{Binary: binary, Err: err}
	}
	c := &SessionClient{
		binary:    path,
		args:      opts.Args,
		timeout:   opts.Timeout,
		traceDir:  opts.TraceDir,
		supported: probeForks(path),
	}
	if len(c.args) == 0 {
		c.args = []string{"t8n", "--stream"}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	return c, nil
}

func (c *SessionClient) ensureStarted() error {
	if c.cmd != nil {
		return nil
	}
	cmd := exec.Command(c.binary, c.args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &InvocationError{Binary: c.binary, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &InvocationError{Binary: c.binary, Err: err}
	}
	stderr := new(bytes.Buffer)
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return &InvocationError{Binary: c.binary, Err: err}
	}
	c.cmd = cmd
	c.stdin = stdin
	c.stdout = bufio.NewReader(stdout)
	c.stderr = stderr
	return nil
}

// teardown kills the session process and forgets it. Called on every
// fault; the session must never survive a half-read exchange.
func (c *SessionClient) teardown() {
	if c.cmd == nil {
		return
	}
	_ = c.stdin.Close()
	_ = c.cmd.Process.Kill()
	_ = c.cmd.Wait()
	c.cmd = nil
	c.stdin = nil
	c.stdout = nil
	c.stderr = nil
}

// Execute runs one transition over the persistent session.
func (c *SessionClient) Execute(ctx context.Context, req *Request) (*Result, error) {
	if err := checkFork(c.binary, c.supported, req.Fork); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &ProtocolError{Detail: "request does not encode", Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureStarted(); err != nil {
		return nil, err
	}

	// The whole exchange runs in a goroutine so the per-instance timeout
	// covers the request write too: a tool that stops reading stalls the
	// write once the pipe fills. An in-flight exchange is not interrupted
	// by run cancellation, only by its own deadline; the teardown on
	// timeout unblocks the goroutine.
	type frameResult struct {
		body    []byte
		err     error
		writing bool
	}
	done := make(chan frameResult, 1)
	stdin := c.stdin
	stdout := c.stdout
	go func() {
		if err := writeFrame(stdin, payload); err != nil {
			done <- frameResult{err: err, writing: true}
			return
		}
		body, err := readFrame(stdout)
		done <- frameResult{body: body, err: err}
	}()

	var body []byte
	select {
	case fr := <-done:
		if fr.err != nil {
			stderr := c.stderr.String()
			c.teardown()
			if fr.writing || fr.err == io.EOF || fr.err == io.ErrUnexpectedEOF {
				return nil, &InvocationError{Binary: c.binary, Stderr: stderr, Err: fr.err}
			}
			return nil, &ProtocolError{Detail: "response frame unreadable", Err: fr.err}
		}
		body = fr.body
	case <-time.After(c.timeout):
		c.teardown()
		return nil, &TimeoutError{Binary: c.binary, Timeout: c.timeout.String()}
	}

	c.seq++
	traceDump(c.traceDir, c.seq, payload, body)

	res, err := decodeResult(body)
	if err != nil {
		c.teardown()
		return nil, err
	}
	return res, nil
}

// Close shuts the session down by closing the tool's stdin; the tool is
// expected to exit on end of input.
func (c *SessionClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd == nil {
		return nil
	}
	_ = c.stdin.Close()
	err := c.cmd.Wait()
	c.cmd = nil
	c.stdin = nil
	c.stdout = nil
	c.stderr = nil
	return err
}

func writeFrame(w io.Writer, body []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(body))); err != nil {
		return fmt.Errorf("failed to write frame length: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("failed to write frame body: %w", err)
	}
	return nil
}

func readFrame(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}
	if length > maxResponseSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds size limit", length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}
