package t8n

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validResponse = `{
	"alloc": {
		"0x000000000000000000000000000000000000c0de": {"balance": "0xa", "nonce": "0x0"}
	},
	"result": {
		"stateRoot":    "0x1111111111111111111111111111111111111111111111111111111111111111",
		"txRoot":       "0x2222222222222222222222222222222222222222222222222222222222222222",
		"receiptsRoot": "0x3333333333333333333333333333333333333333333333333333333333333333",
		"logsHash":     "0x4444444444444444444444444444444444444444444444444444444444444444",
		"receipts":     [],
		"gasUsed":      "0x5208"
	}
}`

func skipNoShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake tool")
	}
}

func writeTool(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-t8n")
	require.NoError(t, os.WriteFile(path, []byte(body), 0755))
	return path
}

func sampleRequest(fork string) *Request {
	return &Request{Fork: fork, ChainID: 1, Alloc: Alloc{}, Txs: []Transaction{}}
}

func TestDecodeResult(t *testing.T) {
	res, err := decodeResult([]byte(validResponse))
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111"), res.Result.StateRoot)
	assert.Equal(t, uint64(21000), uint64(res.Result.GasUsed))
	require.Len(t, res.Alloc, 1)
	acct := res.Alloc[common.HexToAddress("0x000000000000000000000000000000000000c0de")]
	assert.Equal(t, uint64(10), acct.Balance.Uint64())
}

func TestDecodeResultFaults(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "garbage"},
		{name: "missing result", body: `{"alloc": {}}`},
		{name: "short state root", body: `{"alloc":{},"result":{"stateRoot":"0x11","txRoot":"0x2222222222222222222222222222222222222222222222222222222222222222","receiptsRoot":"0x3333333333333333333333333333333333333333333333333333333333333333","receipts":[],"gasUsed":"0x0"}}`},
		{name: "rejected without reason", body: `{"alloc":{},"result":{"stateRoot":"0x1111111111111111111111111111111111111111111111111111111111111111","txRoot":"0x2222222222222222222222222222222222222222222222222222222222222222","receiptsRoot":"0x3333333333333333333333333333333333333333333333333333333333333333","receipts":[],"gasUsed":"0x0","rejected":[{"index":0}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeResult([]byte(tt.body))
			var perr *ProtocolError
			assert.ErrorAs(t, err, &perr)
		})
	}
}

func TestNewExecClientMissingBinary(t *testing.T) {
	_, err := NewExecClient(filepath.Join(t.TempDir(), "nope"), Options{})
	var ierr *InvocationError
	require.ErrorAs(t, err, &ierr)
}

func TestExecClientRoundTrip(t *testing.T) {
	skipNoShell(t)
	tool := writeTool(t, `#!/bin/sh
if [ "$1" = "--list-forks" ]; then
	echo London
	echo Shanghai
	exit 0
fi
cat > /dev/null
cat <<'EOF'
`+validResponse+`
EOF
`)
	c, err := NewExecClient(tool, Options{Timeout: 5 * time.Second})
	require.NoError(t, err)
	defer c.Close()

	res, err := c.Execute(context.Background(), sampleRequest("London"))
	require.NoError(t, err)
	assert.Equal(t, uint64(21000), uint64(res.Result.GasUsed))
}

func TestExecClientUnsupportedFork(t *testing.T) {
	skipNoShell(t)
	tool := writeTool(t, `#!/bin/sh
if [ "$1" = "--list-forks" ]; then
	echo London
	exit 0
fi
exit 0
`)
	c, err := NewExecClient(tool, Options{})
	require.NoError(t, err)

	_, err = c.Execute(context.Background(), sampleRequest("Cancun"))
	var uerr *UnsupportedForkError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "Cancun", uerr.Fork)
}

func TestExecClientNonZeroExit(t *testing.T) {
	skipNoShell(t)
	tool := writeTool(t, `#!/bin/sh
if [ "$1" = "--list-forks" ]; then exit 1; fi
echo "boom" >&2
exit 3
`)
	c, err := NewExecClient(tool, Options{})
	require.NoError(t, err)

	_, err = c.Execute(context.Background(), sampleRequest("London"))
	var ierr *InvocationError
	require.ErrorAs(t, err, &ierr)
	assert.Contains(t, ierr.Stderr, "boom")
}

func TestExecClientMalformedOutput(t *testing.T) {
	skipNoShell(t)
	tool := writeTool(t, `#!/bin/sh
if [ "$1" = "--list-forks" ]; then exit 1; fi
cat > /dev/null
echo "not json at all"
`)
	c, err := NewExecClient(tool, Options{})
	require.NoError(t, err)

	_, err = c.Execute(context.Background(), sampleRequest("London"))
	var perr *ProtocolError
	assert.ErrorAs(t, err, &perr)
}

func TestExecClientTimeout(t *testing.T) {
	skipNoShell(t)
	tool := writeTool(t, `#!/bin/sh
if [ "$1" = "--list-forks" ]; then exit 1; fi
sleep 30
`)
	c, err := NewExecClient(tool, Options{Timeout: 200 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.Execute(context.Background(), sampleRequest("London"))
	var terr *TimeoutError
	assert.ErrorAs(t, err, &terr)
}

func TestExecClientSurvivesRunCancellation(t *testing.T) {
	skipNoShell(t)
	// A cancelled run context must not kill the in-flight tool process.
	// The marker file proves the tool ran to completion.
	marker := filepath.Join(t.TempDir(), "completed")
	tool := writeTool(t, `#!/bin/sh
if [ "$1" = "--list-forks" ]; then exit 1; fi
cat > /dev/null
touch `+marker+`
cat <<'EOF'
`+validResponse+`
EOF
`)
	c, err := NewExecClient(tool, Options{Timeout: 5 * time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := c.Execute(ctx, sampleRequest("London"))
	require.NoError(t, err)
	assert.Equal(t, uint64(21000), uint64(res.Result.GasUsed))
	_, err = os.Stat(marker)
	assert.NoError(t, err)
}

func TestExecClientTraceDump(t *testing.T) {
	skipNoShell(t)
	tool := writeTool(t, `#!/bin/sh
if [ "$1" = "--list-forks" ]; then exit 1; fi
cat > /dev/null
cat <<'EOF'
`+validResponse+`
EOF
`)
	traceDir := filepath.Join(t.TempDir(), "traces")
	c, err := NewExecClient(tool, Options{TraceDir: traceDir})
	require.NoError(t, err)

	_, err = c.Execute(context.Background(), sampleRequest("London"))
	require.NoError(t, err)

	entries, err := os.ReadDir(traceDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body := []byte(`{"hello":"world"}`)
	require.NoError(t, writeFrame(&buf, body))

	got, err := readFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestReadFrameRejectsOversize(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, []byte("x")))
	// Corrupt the length prefix to an absurd value.
	raw := buf.Bytes()
	raw[0], raw[1], raw[2], raw[3] = 0xff, 0xff, 0xff, 0xff
	_, err := readFrame(bytes.NewReader(raw))
	assert.Error(t, err)
}
