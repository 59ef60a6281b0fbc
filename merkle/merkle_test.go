package merkle

import (
	"testing"

	"github.com/mezonai/mnlight/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Entry hashes of the canonical 15-entry masternode list.
var goldenLeaves = []string{
	"373b549f6380d8f7b04d7b04d7c58a749c5cbe3bf41536785ba819879c4870f1",
	"3a1010e28226558560e5296bcee6bf0b9b963b73a1514f5aa2885e270f6b90c1",
	"85d3d93b28689128daf3a41d706ae5002f447b9b6372776f0ca9d53b31146884",
	"8930eee6bd2e7971a7090edfb79f74c00a12280e59adfc2cc99d406a01e368f9",
	"dc2e69caa0ef97e8f5cf40a9530641bd4933dd8c9ad533054537728f7e5f58c2",
	"3e4a0e0a0d2ed397fa27221de3047de21f50d17d0ba43738cbdb9fee96c7cb46",
	"eb18476a1496e1cb912b1d4dd93314b78c6a679d83cae8e144a717b967dc4b8c",
	"6c0d01fa40ac11d7b523facd2bf5632c83f7e4df3f60fd1b364ea90f6c852156",
	"c9e3e69d54e6e95b280ae102593fe114cf4620fa89dd88da1a146ada08815d68",
	"1023f67f735e8e9403d5f083e7a17489619b1790feac4f6b133e9dda15999ae6",
	"5d5fc77944f7c72df236a5baf460c7b9a947144d54d0953521f1494c8a2f7aaa",
	"ac7db66820de3c7506f8c6415fd352e36ac5f27c6adbdfb74de3e109d0d277df",
	"cbc25ca965d0fa69a1fdc1d796b8ee2726a0e2137414e92fb9541630e3189901",
	"ac9934c4049ae952d41fb38e7e9659a558a5ce748bdb7fb613741598d1b16a27",
	"a61177eb14450bb8c56e5f0547035e0f3a70fe46f36901351cc568b2e48e29d0",
}

func leaves(t *testing.T, n int) []common.Hash {
	t.Helper()
	out := make([]common.Hash, n)
	for i := 0; i < n; i++ {
		h, err := common.NewHashFromStr(goldenLeaves[i])
		require.NoError(t, err)
		out[i] = h
	}
	return out
}

func TestComputeRootVectors(t *testing.T) {
	cases := []struct {
		n    int
		root string
	}{
		{1, "373b549f6380d8f7b04d7b04d7c58a749c5cbe3bf41536785ba819879c4870f1"},
		{2, "87c45f022eaf95159bb5132b4021ab8e9d16ca8a19efc98ca82feb2ee525cf08"},
		{3, "22021ffebe6b1f1c8154f9e5cf0ff518234476a6a1ec3ba8e3d8253b9e3b2bdf"},
		{15, "b2303aca677ae2091c882e44b58f57869fa88a6db1f4e1a5d71975e5387fa195"},
	}
	for _, tc := range cases {
		got := ComputeRoot(leaves(t, tc.n))
		assert.Equal(t, tc.root, got.String(), "root of %d leaves", tc.n)
	}
}

func TestComputeRootEmpty(t *testing.T) {
	require.Equal(t, common.ZeroHash, ComputeRoot(nil))
	require.Equal(t, common.ZeroHash, ComputeRoot([]common.Hash{}))
}

func TestComputeRootDuplicatesLastOnOddLevels(t *testing.T) {
	for _, n := range []int{3, 5, 7, 9, 15} {
		in := leaves(t, n)
		padded := append(append([]common.Hash{}, in...), in[n-1])
		assert.Equal(t, ComputeRoot(padded), ComputeRoot(in), "n=%d", n)
	}
}

func TestComputeRootEvenCountsDiffer(t *testing.T) {
	for _, n := range []int{2, 4, 6, 8, 14} {
		in := leaves(t, n)
		assert.NotEqual(t, ComputeRoot(in[:n-1]), ComputeRoot(in), "n=%d", n)
	}
}

func TestComputeRootDoesNotMutateInput(t *testing.T) {
	in := leaves(t, 7)
	snapshot := append([]common.Hash{}, in...)
	ComputeRoot(in)
	require.Equal(t, snapshot, in)
}

func TestBranchVerifies(t *testing.T) {
	for _, n := range []int{1, 2, 3, 8, 15} {
		in := leaves(t, n)
		root := ComputeRoot(in)
		for i := range in {
			branch, err := Branch(in, i)
			require.NoError(t, err)
			assert.True(t, VerifyBranch(in[i], i, branch, root), "n=%d i=%d", n, i)
		}
	}
}

func TestBranchRejectsWrongLeaf(t *testing.T) {
	in := leaves(t, 15)
	root := ComputeRoot(in)
	branch, err := Branch(in, 4)
	require.NoError(t, err)
	require.False(t, VerifyBranch(in[5], 4, branch, root))
	require.False(t, VerifyBranch(in[4], 5, branch, root))

	_, err = Branch(in, 15)
	require.Error(t, err)
}
