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
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/holiman/uint256"
	"github.com/nsf/jsondiff"

	"fixturefill/t8n"
	"fixturefill/testcase"
)

// Diff is one concrete post-condition mismatch, named by account and field.
type Diff struct {
	Address string
	Field   string
	Want    string
	Got     string
}

func (d Diff) String() string {
	if d.Address == "" {
		return fmt.Sprintf("%s: want %s, got %s", d.Field, d.Want, d.Got)
	}
	return fmt.Sprintf("%s %s: want %s, got %s", d.Address, d.Field, d.Want, d.Got)
}

// Outcome is the verdict on one executed instance. A failed outcome lists
// every mismatch, never just the first one.
type Outcome struct {
	Passed bool
	Diffs  []Diff

	// accountDiffs holds a rendered side-by-side view per mismatched
	// account, keyed by address.
	accountDiffs map[string]string
}

// Report renders the outcome for logs and summaries.
func (o *Outcome) Report() string {
	if o.Passed {
		return "post-state matches"
	}
	var b strings.Builder
	for _, d := range o.Diffs {
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	addrs := make([]string, 0, len(o.accountDiffs))
	for addr := range o.accountDiffs {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		fmt.Fprintf(&b, "account %s:\n%s\n", addr, o.accountDiffs[addr])
	}
	return strings.TrimRight(b.String(), "\n")
}

// Validate checks the instance's declared post-conditions against the final
// post-state and the collected rejection indices. Only declared fields are
// checked; silence means indifference. An error means the expectation
// itself could not be evaluated, which is fatal to the instance.
func Validate(inst *Instance, post t8n.Alloc, rejected []int) (*Outcome, error) {
	out := &Outcome{accountDiffs: make(map[string]string)}

	addrs := make([]string, 0, len(inst.Test.Post))
	for addr := range inst.Test.Post {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	for _, addrStr := range addrs {
		expect := inst.Test.Post[addrStr]
		addr, err := testcase.ParseAddress(testcase.Substitute(addrStr, inst.Params))
		if err != nil {
			return nil, fmt.Errorf("post condition: %w", err)
		}
		account, present := post[addr]
		if expect.Absent {
			if present {
				out.Diffs = append(out.Diffs, Diff{
					Address: addr.Hex(), Field: "presence", Want: "absent", Got: "present",
				})
			}
			continue
		}
		if !present {
			out.Diffs = append(out.Diffs, Diff{
				Address: addr.Hex(), Field: "presence", Want: "present", Got: "absent",
			})
			continue
		}
		diffs, err := checkAccount(inst, expect, &account)
		if err != nil {
			return nil, fmt.Errorf("post condition for %s: %w", addr, err)
		}
		if len(diffs) > 0 {
			for i := range diffs {
				diffs[i].Address = addr.Hex()
			}
			out.Diffs = append(out.Diffs, diffs...)
			out.accountDiffs[addr.Hex()] = renderAccountDiff(expect, inst.Params, &account)
		}
	}

	if d, ok := checkRejected(inst.Test.ExpectRejected, rejected); !ok {
		out.Diffs = append(out.Diffs, d)
	}
	out.Passed = len(out.Diffs) == 0
	return out, nil
}

func checkAccount(inst *Instance, expect *testcase.Expectation, account *t8n.Account) ([]Diff, error) {
	var diffs []Diff
	if expect.Balance != nil {
		want, err := testcase.ParseWei(testcase.Substitute(*expect.Balance, inst.Params))
		if err != nil {
			return nil, err
		}
		got := account.Balance
		if got == nil {
			got = new(uint256.Int)
		}
		if !want.Eq(got) {
			diffs = append(diffs, Diff{Field: "balance", Want: want.Dec(), Got: got.Dec()})
		}
	}
	if expect.Nonce != nil && uint64(account.Nonce) != *expect.Nonce {
		diffs = append(diffs, Diff{
			Field: "nonce",
			Want:  fmt.Sprintf("%d", *expect.Nonce),
			Got:   fmt.Sprintf("%d", uint64(account.Nonce)),
		})
	}
	if expect.Code != nil {
		want, err := testcase.ParseBytes(testcase.Substitute(*expect.Code, inst.Params))
		if err != nil {
			return nil, err
		}
		if want.String() != account.Code.String() {
			diffs = append(diffs, Diff{Field: "code", Want: want.String(), Got: account.Code.String()})
		}
	}

	keys := make([]string, 0, len(expect.Storage))
	for k := range expect.Storage {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, keyStr := range keys {
		key, err := testcase.ParseHash(testcase.Substitute(keyStr, inst.Params))
		if err != nil {
			return nil, err
		}
		want, err := testcase.ParseHash(testcase.Substitute(expect.Storage[keyStr], inst.Params))
		if err != nil {
			return nil, err
		}
		if got := account.Storage[key]; got != want {
			diffs = append(diffs, Diff{
				Field: "storage[" + key.Hex() + "]",
				Want:  want.Hex(),
				Got:   got.Hex(),
			})
		}
	}
	return diffs, nil
}

// checkRejected compares the declared rejection indices against the ones
// the tool reported, as sets.
func checkRejected(want, got []int) (Diff, bool) {
	w := append([]int(nil), want...)
	g := append([]int(nil), got...)
	sort.Ints(w)
	sort.Ints(g)
	if intsEqual(w, g) {
		return Diff{}, true
	}
	return Diff{Field: "rejected", Want: formatInts(w), Got: formatInts(g)}, false
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func formatInts(v []int) string {
	if len(v) == 0 {
		return "none"
	}
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ",")
}

// renderAccountDiff produces a human-readable side-by-side of the declared
// expectation and the actual account, limited to the declared fields.
func renderAccountDiff(expect *testcase.Expectation, binding map[string]string, account *t8n.Account) string {
	want := make(map[string]any)
	got := make(map[string]any)
	if expect.Balance != nil {
		want["balance"] = testcase.Substitute(*expect.Balance, binding)
		if account.Balance != nil {
			got["balance"] = account.Balance.Dec()
		} else {
			got["balance"] = "0"
		}
	}
	if expect.Nonce != nil {
		want["nonce"] = *expect.Nonce
		got["nonce"] = uint64(account.Nonce)
	}
	if expect.Code != nil {
		want["code"] = testcase.Substitute(*expect.Code, binding)
		got["code"] = account.Code.String()
	}
	if len(expect.Storage) > 0 {
		ws := make(map[string]string, len(expect.Storage))
		for k, v := range expect.Storage {
			ws[testcase.Substitute(k, binding)] = testcase.Substitute(v, binding)
		}
		want["storage"] = ws
		gs := make(map[string]string, len(account.Storage))
		for k, v := range account.Storage {
			gs[k.Hex()] = v.Hex()
		}
		got["storage"] = gs
	}

	wantJSON, err := json.Marshal(want)
	if err != nil {
		return ""
	}
	gotJSON, err := json.Marshal(got)
	if err != nil {
		return ""
	}
	opts := jsondiff.DefaultConsoleOptions()
	opts.Indent = "  "
	_, desc := jsondiff.Compare(wantJSON, gotJSON, &opts)
	return desc
}
