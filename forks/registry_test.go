package forks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCanonicalOrdering verifies ordinals are dense and strictly increasing.
func TestCanonicalOrdering(t *testing.T) {
	all := Canonical()
	require.NotEmpty(t, all)
	for i, f := range all {
		assert.Equal(t, i, f.Ordinal, "fork %s has a non-dense ordinal", f.Name)
	}
}

func TestResolve(t *testing.T) {
	f, err := Resolve("London")
	require.NoError(t, err)
	assert.Equal(t, "London", f.Name)

	// Aliases resolve onto their canonical entry.
	paris, err := Resolve("Paris")
	require.NoError(t, err)
	assert.Equal(t, Merge, paris)

	_, err = Resolve("Atlantis")
	require.Error(t, err)
	var unknown *UnknownForkError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "Atlantis", unknown.Name)
}

func TestRange(t *testing.T) {
	tests := []struct {
		name  string
		from  string
		until string
		want  []string
	}{
		{
			name:  "single fork",
			from:  "London",
			until: "London",
			want:  []string{"London"},
		},
		{
			name:  "closed range",
			from:  "Berlin",
			until: "Merge",
			want:  []string{"Berlin", "London", "ArrowGlacier", "GrayGlacier", "Merge"},
		},
		{
			name:  "open upper bound",
			from:  "Shanghai",
			until: "",
			want:  []string{"Shanghai", "Cancun"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Range(tt.from, tt.until)
			require.NoError(t, err)
			names := make([]string, len(got))
			for i, f := range got {
				names[i] = f.Name
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestRangeAscending(t *testing.T) {
	// For any pair a < b, the range is non-empty and ordinal-ascending.
	all := Canonical()
	for i, a := range all {
		for _, b := range all[i:] {
			got, err := Range(a.Name, b.Name)
			require.NoError(t, err)
			require.NotEmpty(t, got)
			for j := 1; j < len(got); j++ {
				assert.Less(t, got[j-1].Ordinal, got[j].Ordinal)
			}
		}
	}
}

func TestRangeErrors(t *testing.T) {
	var invalid *InvalidRangeError

	_, err := Range("London", "Berlin")
	require.ErrorAs(t, err, &invalid)

	_, err = Range("Atlantis", "London")
	require.ErrorAs(t, err, &invalid)

	_, err = Range("London", "Atlantis")
	require.ErrorAs(t, err, &invalid)
}

func TestSupports(t *testing.T) {
	assert.False(t, Supports(Berlin, FeatureHeaderBaseFee))
	assert.True(t, Supports(London, FeatureHeaderBaseFee))
	assert.True(t, Supports(Cancun, FeatureHeaderBaseFee))

	assert.False(t, Supports(London, FeatureHeaderPrevRandao))
	assert.True(t, Supports(Merge, FeatureHeaderPrevRandao))

	assert.False(t, Supports(Merge, FeatureHeaderWithdrawals))
	assert.True(t, Supports(Shanghai, FeatureHeaderWithdrawals))

	// Unknown features are not supported anywhere, no error.
	assert.False(t, Supports(Cancun, Feature("teleportation")))
}

// TestFeatureMonotonicity checks that every feature, once introduced, stays
// active until (at most) its explicit removal fork.
func TestFeatureMonotonicity(t *testing.T) {
	for feature, span := range features {
		active := false
		for _, f := range Canonical() {
			now := Supports(f, feature)
			if active && !now {
				require.GreaterOrEqual(t, f.Ordinal, span.introducedAt,
					"feature %s dropped before introduction", feature)
				require.Equal(t, span.removedAt, f.Ordinal,
					"feature %s dropped without an explicit removal", feature)
			}
			active = now
		}
	}
}

func TestProofOfWorkRemovedAtMerge(t *testing.T) {
	assert.True(t, Supports(GrayGlacier, FeatureProofOfWork))
	assert.False(t, Supports(Merge, FeatureProofOfWork))
	assert.False(t, Supports(Cancun, FeatureProofOfWork))
}

func TestBlockReward(t *testing.T) {
	assert.Equal(t, "5000000000000000000", BlockReward(Frontier).String())
	assert.Equal(t, "3000000000000000000", BlockReward(Byzantium).String())
	assert.Equal(t, "2000000000000000000", BlockReward(Constantinople).String())
	assert.Equal(t, "0", BlockReward(Merge).String())
}

func TestTxTypes(t *testing.T) {
	assert.Equal(t, []int{TxTypeLegacy}, TxTypes(Frontier))
	assert.Equal(t, []int{TxTypeAccessList, TxTypeLegacy}, TxTypes(Berlin))
	assert.Equal(t, []int{TxTypeDynamicFee, TxTypeAccessList, TxTypeLegacy}, TxTypes(London))
	assert.Equal(t, []int{TxTypeBlob, TxTypeDynamicFee, TxTypeAccessList, TxTypeLegacy}, TxTypes(Cancun))
}

func TestPreAlloc(t *testing.T) {
	assert.Nil(t, PreAlloc(Shanghai))
	alloc := PreAlloc(Cancun)
	require.Len(t, alloc, 1)
	acct, ok := alloc[BeaconRootsAddress]
	require.True(t, ok)
	assert.Equal(t, uint64(1), acct.Nonce)
	assert.NotEmpty(t, acct.Code)
}

func TestPrecompiles(t *testing.T) {
	assert.Empty(t, Precompiles(Frontier))
	assert.Len(t, Precompiles(Homestead), 4)
	assert.Len(t, Precompiles(Byzantium), 8)
	assert.Len(t, Precompiles(Istanbul), 9)
	assert.Len(t, Precompiles(Cancun), 10)
}
