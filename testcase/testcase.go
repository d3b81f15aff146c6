// Package testcase holds the in-memory model of authored conformance test
// cases and the YAML loader that produces it. A loaded model is immutable;
// the filling engine reads it but never writes back.
package testcase

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Model is one authored test case. Numeric and byte fields that may contain
// {{param}} placeholders are kept as strings here and parsed only after
// parameter substitution.
type Model struct {
	// ID is assigned from the document key, not the YAML body.
	ID string `yaml:"-"`

	Description    string                  `yaml:"description"`
	Forks          ForkRange               `yaml:"forks"`
	Params         map[string][]string     `yaml:"params"`
	Env            *Env                    `yaml:"env"`
	Pre            map[string]*Account     `yaml:"pre"`
	Blocks         []Block                 `yaml:"blocks"`
	Post           map[string]*Expectation `yaml:"post"`
	ExpectRejected []int                   `yaml:"expectRejected"`
}

// ForkRange is the inclusive span of forks a test case applies to. An empty
// Until leaves the range open at the newest known fork.
type ForkRange struct {
	From  string `yaml:"from"`
	Until string `yaml:"until"`
}

// Env is the block environment. Fields irrelevant to the target fork are
// dropped when the transition request is built.
type Env struct {
	Coinbase   string `yaml:"coinbase"`
	GasLimit   uint64 `yaml:"gasLimit"`
	Timestamp  uint64 `yaml:"timestamp"`
	Difficulty string `yaml:"difficulty"`
	Random     string `yaml:"random"`
	BaseFee    string `yaml:"baseFee"`
}

// DefaultEnv mirrors the defaults transition tools assume when a test case
// leaves the environment unspecified.
func DefaultEnv() *Env {
	return &Env{
		Coinbase:   "0x2adc25665018aa1fe0e6bc666dac8fc2697ff9ba",
		GasLimit:   100_000_000,
		Timestamp:  1_000,
		Difficulty: "0x20000",
		Random:     "0x0000000000000000000000000000000000000000000000000000000000000000",
		BaseFee:    "7",
	}
}

// Account is a pre-state account. Code may be given directly as hex or as
// high-level source to be compiled by the external compiler.
type Account struct {
	Balance string            `yaml:"balance"`
	Nonce   uint64            `yaml:"nonce"`
	Code    string            `yaml:"code"`
	Source  *Source           `yaml:"source"`
	Storage map[string]string `yaml:"storage"`
}

// Source is high-level contract source attached to a pre-state account.
type Source struct {
	Language string `yaml:"language"`
	Code     string `yaml:"code"`
}

// Block is one block of the test case, an ordered transaction list with an
// optional environment override.
type Block struct {
	Env *Env          `yaml:"env"`
	Txs []Transaction `yaml:"txs"`
}

// Transaction is one authored transaction. The sender is implied by the
// secret key, matching the classic state-test filler convention.
type Transaction struct {
	Type                 string        `yaml:"type"`
	To                   string        `yaml:"to"`
	Nonce                uint64        `yaml:"nonce"`
	Value                string        `yaml:"value"`
	Gas                  uint64        `yaml:"gas"`
	GasPrice             string        `yaml:"gasPrice"`
	MaxFeePerGas         string        `yaml:"maxFeePerGas"`
	MaxPriorityFeePerGas string        `yaml:"maxPriorityFeePerGas"`
	Data                 string        `yaml:"data"`
	SecretKey            string        `yaml:"secretKey"`
	AccessList           []AccessTuple `yaml:"accessList"`
}

// AccessTuple is one EIP-2930 access list entry.
type AccessTuple struct {
	Address     string   `yaml:"address"`
	StorageKeys []string `yaml:"storageKeys"`
}

// Expectation is one post-condition: either the account must be absent, or
// every set field must match the tool's post-state exactly. Nil fields are
// not checked.
type Expectation struct {
	Absent  bool
	Balance *string
	Nonce   *uint64
	Code    *string
	Storage map[string]string
}

// expectationBody mirrors Expectation for the non-absent YAML form.
type expectationBody struct {
	Balance *string           `yaml:"balance"`
	Nonce   *uint64           `yaml:"nonce"`
	Code    *string           `yaml:"code"`
	Storage map[string]string `yaml:"storage"`
}

// UnmarshalYAML accepts either the scalar "absent" or a field mapping.
func (e *Expectation) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		if s != "absent" {
			return fmt.Errorf("post condition scalar must be \"absent\", got %q", s)
		}
		e.Absent = true
		return nil
	}
	var body expectationBody
	if err := node.Decode(&body); err != nil {
		return err
	}
	e.Balance = body.Balance
	e.Nonce = body.Nonce
	e.Code = body.Code
	e.Storage = body.Storage
	return nil
}

// ParamNames returns the declared parameter names sorted lexicographically,
// the order the expander walks them in.
func (m *Model) ParamNames() []string {
	names := make([]string, 0, len(m.Params))
	for name := range m.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
