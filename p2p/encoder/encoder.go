// Package encoder implements the request/response chunk framing of §4.6
// (C6): one `response_code` byte, an optional fork-digest context, a
// uvarint prefix giving the uncompressed length, and the snappy payload
// itself.
// Grounded on prysm's p2p/encoder package naming (SSZSnappyEncoding /
// MaxChunkSize) and on the plain wire-framing style of eth2030's
// pkg/p2p/reqresp.go (length-prefixed fields, explicit truncation checks
// at every read), adapted from that codec's custom method/id framing to
// the consensus spec's response-code/context/snappy framing.
package encoder

import (
	"encoding/binary"
	"io"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// ResponseCode is the first byte of every response chunk (§4.6).
type ResponseCode byte

const (
	CodeSuccess             ResponseCode = 0
	CodeInvalidRequest       ResponseCode = 1
	CodeServerError          ResponseCode = 2
	CodeResourceUnavailable ResponseCode = 3
)

// MaxPayloadSize is MAX_PAYLOAD_SIZE from the consensus networking spec:
// the largest single SSZ object (pre-compression) any chunk may carry.
const MaxPayloadSize = 10 * 1 << 20 // 10 MiB

// MaxChunkSize is max(32 + MAX_PAYLOAD_SIZE + MAX_PAYLOAD_SIZE/6, 1 MiB),
// the largest decoded-length value a chunk's length prefix may declare
// before it is rejected outright (§4.6 "Size limits").
const MaxChunkSize = 32 + MaxPayloadSize + MaxPayloadSize/6

var (
	// ErrChunkTooLarge is returned when a chunk's declared length exceeds
	// MaxChunkSize.
	ErrChunkTooLarge = errors.New("encoder: chunk length exceeds MaxChunkSize")
	// ErrInvalidLength is returned when the uvarint length prefix cannot
	// be decoded from the stream.
	ErrInvalidLength = errors.New("encoder: invalid uvarint length prefix")
)

// ContextBytesFunc returns the 4-byte fork-digest context a protocol's
// response chunks carry, or ok=false for protocols whose payload type is
// not fork-versioned (§4.6: "present only for protocols whose payload
// type is fork-versioned").
type ContextBytesFunc func() (digest [4]byte, ok bool)

// EncodeRequest snappy-compresses payload and writes it with its uvarint
// length prefix, the request side of the frame (no response_code, no
// context bytes — those only appear on responses, §4.6).
func EncodeRequest(w io.Writer, payload []byte) (int, error) {
	return writeLengthPrefixed(w, payload)
}

// DecodeRequest reads a single uvarint-length-prefixed, snappy-compressed
// request payload from r.
func DecodeRequest(r io.Reader) ([]byte, error) {
	return readLengthPrefixed(r)
}

// EncodeResponseChunk writes one response chunk: code, optional context
// bytes (only when ctxFn reports ok), then the length-prefixed
// snappy-compressed payload. code values other than CodeSuccess carry a
// UTF-8 error message as payload per the networking spec's error-chunk
// convention.
func EncodeResponseChunk(w io.Writer, code ResponseCode, ctxFn ContextBytesFunc, payload []byte) (int, error) {
	n, err := w.Write([]byte{byte(code)})
	if err != nil {
		return n, err
	}
	if ctxFn != nil {
		if digest, ok := ctxFn(); ok {
			m, err := w.Write(digest[:])
			n += m
			if err != nil {
				return n, err
			}
		}
	}
	m, err := writeLengthPrefixed(w, payload)
	return n + m, err
}

// DecodeResponseChunkCode reads and returns the leading response_code
// byte of a chunk.
func DecodeResponseChunkCode(r io.Reader) (ResponseCode, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return ResponseCode(buf[0]), nil
}

// DecodeContextBytes reads the 4-byte fork-digest context, for protocols
// whose responses carry one.
func DecodeContextBytes(r io.Reader) ([4]byte, error) {
	var digest [4]byte
	_, err := io.ReadFull(r, digest[:])
	return digest, err
}

// DecodeResponsePayload reads the length-prefixed, snappy-compressed
// payload following a chunk's code (and optional context bytes).
func DecodeResponsePayload(r io.Reader) ([]byte, error) {
	return readLengthPrefixed(r)
}

// writeLengthPrefixed writes payload's uncompressed length as a uvarint,
// then payload itself as an independent snappy stream. Framing the
// compressed bytes as their own snappy.Writer stream (rather than a bare
// snappy.Encode block) lets the reader side decode with a streaming
// snappy.Reader without first needing to know the compressed length.
func writeLengthPrefixed(w io.Writer, payload []byte) (int, error) {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(payload)))
	written, err := w.Write(lenBuf[:n])
	if err != nil {
		return written, err
	}
	sw := snappy.NewBufferedWriter(w)
	m, err := sw.Write(payload)
	if err != nil {
		return written + m, err
	}
	if err := sw.Close(); err != nil {
		return written + m, err
	}
	return written + m, nil
}

func readLengthPrefixed(r io.Reader) ([]byte, error) {
	length, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	if length > MaxChunkSize {
		return nil, ErrChunkTooLarge
	}
	sr := snappy.NewReader(r)
	decoded := make([]byte, length)
	if _, err := io.ReadFull(sr, decoded); err != nil {
		return nil, errors.Wrap(err, "could not snappy-decode chunk payload")
	}
	return decoded, nil
}

func readUvarint(r io.Reader) (uint64, error) {
	var buf [1]byte
	var x uint64
	var shift uint
	for i := 0; i < binary.MaxVarintLen64; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		b := buf[0]
		if b < 0x80 {
			if i == binary.MaxVarintLen64-1 && b > 1 {
				return 0, ErrInvalidLength
			}
			return x | uint64(b)<<shift, nil
		}
		x |= uint64(b&0x7f) << shift
		shift += 7
	}
	return 0, ErrInvalidLength
}
