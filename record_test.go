package sfcb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeHeaderRoundTrip(t *testing.T) {
	h := RecordHeader{Magic: 0xDEADBEEF, ID: 42}
	buf := encodeHeader(h)
	require.Equal(t, h, decodeHeader(buf[:]))
}

func TestEncodeHeaderLittleEndian(t *testing.T) {
	buf := encodeHeader(RecordHeader{Magic: 0x01020304, ID: 0})
	require.Equal(t, [4]byte{0x04, 0x03, 0x02, 0x01}, [4]byte(buf[0:4]))
}

func TestIsErased(t *testing.T) {
	require.True(t, isErased([]byte{0xFF, 0xFF, 0xFF, 0xFF}))
	require.False(t, isErased([]byte{0xFF, 0x00, 0xFF}))
	require.True(t, isErased(nil))
}
