package kv

import (
	"bytes"
	"encoding/gob"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// encode serializes v and snappy-compresses the result, the same
// compression scheme the store uses for cold blob files (§4.1) and the
// wire layer uses for gossip/RPC payloads (p2p/encoder). The inner framing
// here is gob rather than hand-rolled SSZ: individual SSZ container
// definitions are an external concern per spec.md §1 ("specified only by
// the interface the core consumes"), so the database's on-disk framing is
// this module's own business, not a wire-compatibility requirement.
func encode(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, errors.New("cannot encode nil value")
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, errors.Wrap(err, "could not gob-encode value")
	}
	return snappy.Encode(nil, buf.Bytes()), nil
}

// decode snappy-decompresses raw and gob-decodes it into dst, which must
// be a pointer.
func decode(raw []byte, dst interface{}) error {
	decompressed, err := snappy.Decode(nil, raw)
	if err != nil {
		return errors.Wrap(err, "could not snappy-decode value")
	}
	if err := gob.NewDecoder(bytes.NewReader(decompressed)).Decode(dst); err != nil {
		return errors.Wrap(err, "could not gob-decode value")
	}
	return nil
}
