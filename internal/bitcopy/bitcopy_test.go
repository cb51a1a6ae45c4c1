package bitcopy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopySameAlignment(t *testing.T) {
	src := []byte{0b10110101, 0b11001100}
	dst := make([]byte, 2)
	Copy(dst, 0, src, 0, 16)
	assert.Equal(t, src, dst)
}

func TestCopyWithinSingleByte(t *testing.T) {
	dst := []byte{0xFF}
	src := []byte{0b01000000}
	Copy(dst, 2, src, 0, 3)
	// bits [2,5) of dst replaced by bits [0,3) of src (010), rest untouched (1s)
	assert.Equal(t, byte(0b11010111), dst[0])
}

func TestCopyDifferentAlignment(t *testing.T) {
	src := []byte{0b11110000, 0b00001111}
	dst := make([]byte, 2)
	Copy(dst, 3, src, 0, 13)
	var check [2]byte
	Copy(check[:], 0, dst, 3, 13)
	var want [2]byte
	Copy(want[:], 0, src, 0, 13)
	assert.Equal(t, want, check)
}

func TestWriteReadUintRoundTrip(t *testing.T) {
	cases := []struct {
		bitOff, nBits int
		v             uint32
	}{
		{0, 10, 511},
		{3, 11, 2047},
		{5, 15, 0x7FFF},
		{1, 1, 1},
		{0, 32, 0xDEADBEEF},
	}
	for _, c := range cases {
		buf := make([]byte, 8)
		WriteUint(buf, c.bitOff, c.nBits, c.v)
		got := ReadUint(buf, c.bitOff, c.nBits)
		require.Equal(t, c.v&mask32(c.nBits), got)
	}
}

func TestWriteUintDoesNotDisturbNeighboringBits(t *testing.T) {
	buf := []byte{0xFF, 0xFF}
	WriteUint(buf, 4, 8, 0)
	assert.Equal(t, byte(0xF0), buf[0])
	assert.Equal(t, byte(0x0F), buf[1])
}
