package encoder

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("status request payload")

	_, err := EncodeRequest(&buf, payload)
	require.NoError(t, err)

	decoded, err := DecodeRequest(&buf)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestRequestRoundTrip_EmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	_, err := EncodeRequest(&buf, nil)
	require.NoError(t, err)

	decoded, err := DecodeRequest(&buf)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestResponseChunkRoundTrip_WithContext(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("beacon block ssz bytes")
	ctxFn := func() ([4]byte, bool) { return [4]byte{0xAA, 0xBB, 0xCC, 0xDD}, true }

	_, err := EncodeResponseChunk(&buf, CodeSuccess, ctxFn, payload)
	require.NoError(t, err)

	code, err := DecodeResponseChunkCode(&buf)
	require.NoError(t, err)
	assert.Equal(t, CodeSuccess, code)

	digest, err := DecodeContextBytes(&buf)
	require.NoError(t, err)
	assert.Equal(t, [4]byte{0xAA, 0xBB, 0xCC, 0xDD}, digest)

	decoded, err := DecodeResponsePayload(&buf)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestResponseChunkRoundTrip_WithoutContext(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("metadata response")

	_, err := EncodeResponseChunk(&buf, CodeSuccess, nil, payload)
	require.NoError(t, err)

	code, err := DecodeResponseChunkCode(&buf)
	require.NoError(t, err)
	assert.Equal(t, CodeSuccess, code)

	decoded, err := DecodeResponsePayload(&buf)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestDecodeRequest_ChunkTooLarge(t *testing.T) {
	var lenBuf [10]byte
	n := func() int {
		// Manually write a uvarint declaring a length beyond MaxChunkSize.
		return putUvarintForTest(lenBuf[:], MaxChunkSize+1)
	}()
	buf := bytes.NewBuffer(lenBuf[:n])

	_, err := DecodeRequest(buf)
	assert.ErrorIs(t, err, ErrChunkTooLarge)
}

func putUvarintForTest(buf []byte, v uint64) int {
	i := 0
	for v >= 0x80 {
		buf[i] = byte(v) | 0x80
		v >>= 7
		i++
	}
	buf[i] = byte(v)
	return i + 1
}
