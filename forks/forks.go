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

// Package forks holds the static catalogue of protocol upgrades and the
// feature capabilities each of them activates. The catalogue is fixed at
// compile time; nothing registers forks at runtime.
package forks

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Feature is a named capability a fork may activate. Features are monotonic:
// once introduced they stay active in every later fork unless the table
// explicitly marks them removed.
type Feature string

const (
	// Header field gating.
	FeatureHeaderBaseFee       Feature = "header-base-fee"
	FeatureHeaderPrevRandao    Feature = "header-prev-randao"
	FeatureZeroDifficulty      Feature = "header-zero-difficulty"
	FeatureHeaderWithdrawals   Feature = "header-withdrawals"
	FeatureHeaderExcessBlobGas Feature = "header-excess-blob-gas"
	FeatureHeaderBlobGasUsed   Feature = "header-blob-gas-used"
	FeatureHeaderBeaconRoot    Feature = "header-beacon-root"

	// Transaction capabilities.
	FeatureAccessListTx Feature = "tx-access-list"
	FeatureDynamicFeeTx Feature = "tx-dynamic-fee"
	FeatureBlobTx       Feature = "tx-blob"

	// Consensus. Proof of work is the one capability the chain ever lost.
	FeatureProofOfWork Feature = "proof-of-work"
)

// featureSpan records when a feature appears and, if ever, disappears.
// removedAt < 0 means the feature is still active at the newest fork.
type featureSpan struct {
	introducedAt int
	removedAt    int
}

// Transaction type identifiers as they appear on the wire.
const (
	TxTypeLegacy     = 0
	TxTypeAccessList = 1
	TxTypeDynamicFee = 2
	TxTypeBlob       = 3
)

// Fork is one entry of the catalogue. Ordinals are dense and strictly
// increasing in activation order.
type Fork struct {
	Name    string
	Ordinal int
}

// PreAllocAccount is an account a fork requires to exist in every genesis
// state (for example the EIP-4788 beacon roots contract from Cancun on).
type PreAllocAccount struct {
	Nonce uint64
	Code  hexutil.Bytes
}

var (
	Frontier          = Fork{"Frontier", 0}
	Homestead         = Fork{"Homestead", 1}
	Byzantium         = Fork{"Byzantium", 2}
	Constantinople    = Fork{"Constantinople", 3}
	ConstantinopleFix = Fork{"ConstantinopleFix", 4}
	Istanbul          = Fork{"Istanbul", 5}
	MuirGlacier       = Fork{"MuirGlacier", 6}
	Berlin            = Fork{"Berlin", 7}
	London            = Fork{"London", 8}
	ArrowGlacier      = Fork{"ArrowGlacier", 9}
	GrayGlacier       = Fork{"GrayGlacier", 10}
	Merge             = Fork{"Merge", 11}
	Shanghai          = Fork{"Shanghai", 12}
	Cancun            = Fork{"Cancun", 13}
)

// canonical lists every known fork in activation order. The registry is
// built from this table once, at package init.
var canonical = []Fork{
	Frontier,
	Homestead,
	Byzantium,
	Constantinople,
	ConstantinopleFix,
	Istanbul,
	MuirGlacier,
	Berlin,
	London,
	ArrowGlacier,
	GrayGlacier,
	Merge,
	Shanghai,
	Cancun,
}

// aliases maps alternative fork names onto canonical ones. Paris is the
// consensus-layer name of the Merge, Petersburg the client-side name of
// ConstantinopleFix.
var aliases = map[string]string{
	"Paris":      "Merge",
	"Petersburg": "ConstantinopleFix",
}

// features maps every feature onto its activation span.
var features = map[Feature]featureSpan{
	FeatureHeaderBaseFee:       {introducedAt: London.Ordinal, removedAt: -1},
	FeatureHeaderPrevRandao:    {introducedAt: Merge.Ordinal, removedAt: -1},
	FeatureZeroDifficulty:      {introducedAt: Merge.Ordinal, removedAt: -1},
	FeatureHeaderWithdrawals:   {introducedAt: Shanghai.Ordinal, removedAt: -1},
	FeatureHeaderExcessBlobGas: {introducedAt: Cancun.Ordinal, removedAt: -1},
	FeatureHeaderBlobGasUsed:   {introducedAt: Cancun.Ordinal, removedAt: -1},
	FeatureHeaderBeaconRoot:    {introducedAt: Cancun.Ordinal, removedAt: -1},
	FeatureAccessListTx:        {introducedAt: Berlin.Ordinal, removedAt: -1},
	FeatureDynamicFeeTx:        {introducedAt: London.Ordinal, removedAt: -1},
	FeatureBlobTx:              {introducedAt: Cancun.Ordinal, removedAt: -1},
	FeatureProofOfWork:         {introducedAt: Frontier.Ordinal, removedAt: Merge.Ordinal},
}

var (
	rewardFrontier   = new(big.Int).Mul(big.NewInt(5), big.NewInt(1e18))
	rewardByzantium  = new(big.Int).Mul(big.NewInt(3), big.NewInt(1e18))
	rewardPetersburg = new(big.Int).Mul(big.NewInt(2), big.NewInt(1e18))
)

// beaconRootsCode is the deployed bytecode of the EIP-4788 beacon roots
// contract, pre-allocated at genesis from Cancun on.
var beaconRootsCode = hexutil.MustDecode("0x3373fffffffffffffffffffffffffffffffffffffffe14604d57602036146024575f5ffd5b5f35801560495762001fff810690815414603c575f5ffd5b62001fff01545f5260205ff35b5f5ffd5b62001fff42064281555f359062001fff015500")

// BeaconRootsAddress is where the EIP-4788 contract lives.
var BeaconRootsAddress = common.HexToAddress("0x000F3DF6D732807EF1319FB7B8BB8522D0BEAC02")

// BlockReward returns the miner reward in wei active at the given fork.
// The Merge sets it to zero for good.
func BlockReward(f Fork) *big.Int {
	switch {
	case f.Ordinal >= Merge.Ordinal:
		return new(big.Int)
	case f.Ordinal >= Constantinople.Ordinal:
		return new(big.Int).Set(rewardPetersburg)
	case f.Ordinal >= Byzantium.Ordinal:
		return new(big.Int).Set(rewardByzantium)
	default:
		return new(big.Int).Set(rewardFrontier)
	}
}

// TxTypes returns the transaction type identifiers the fork accepts,
// newest first, matching the order transition tools advertise them.
func TxTypes(f Fork) []int {
	types := []int{}
	if Supports(f, FeatureBlobTx) {
		types = append(types, TxTypeBlob)
	}
	if Supports(f, FeatureDynamicFeeTx) {
		types = append(types, TxTypeDynamicFee)
	}
	if Supports(f, FeatureAccessListTx) {
		types = append(types, TxTypeAccessList)
	}
	return append(types, TxTypeLegacy)
}

// Precompiles returns the addresses of the precompiled contracts active at
// the given fork.
func Precompiles(f Fork) []common.Address {
	var last byte
	switch {
	case f.Ordinal >= Cancun.Ordinal:
		last = 0x0a
	case f.Ordinal >= Istanbul.Ordinal:
		last = 0x09
	case f.Ordinal >= Byzantium.Ordinal:
		last = 0x08
	case f.Ordinal >= Homestead.Ordinal:
		last = 0x04
	default:
		return nil
	}
	addrs := make([]common.Address, 0, last)
	for i := byte(1); i <= last; i++ {
		addrs = append(addrs, common.BytesToAddress([]byte{i}))
	}
	return addrs
}

// PreAlloc returns the accounts the fork requires in every genesis state.
func PreAlloc(f Fork) map[common.Address]PreAllocAccount {
	if f.Ordinal < Cancun.Ordinal {
		return nil
	}
	return map[common.Address]PreAllocAccount{
		BeaconRootsAddress: {Nonce: 1, Code: beaconRootsCode},
	}
}
