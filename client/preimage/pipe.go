package preimage

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Pipe is a byte-stream, bidirectional, reliable channel between the program
// and the host (spec §4.1). It presents exactly the two primitives the wire
// protocol needs: a blocking exact-length read and a guaranteed-complete
// write. Both the hint pipe and the oracle pipe are instances of this
// interface backed by a pair of os.File descriptors in the FPVM target, and
// by an in-process io.Pipe (or net.Conn) in tests.
type Pipe interface {
	io.ReadWriter
}

// writeAll loops until every byte of buf has been written, satisfying the
// "never partial at the contract level" requirement of §4.1.
func writeAll(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

// readExact reads exactly len(buf) bytes, blocking until they arrive.
func readExact(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	return err
}

// HintWriter issues hints over the hint pipe (spec §4.2, "Hint write").
type HintWriter struct {
	rw Pipe
}

// NewHintWriter wraps a pipe as a HintWriter.
func NewHintWriter(rw Pipe) *HintWriter {
	return &HintWriter{rw: rw}
}

// Hint sends the hint and blocks until the host's one-byte acknowledgement
// is read back. A hint must be fully acknowledged before any preimage
// request that depends on it is issued (§4.2, §5).
func (h *HintWriter) Hint(hint string) error {
	payload := []byte(hint)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if err := writeAll(h.rw, lenBuf[:]); err != nil {
		return fmt.Errorf("failed to write hint length: %w", err)
	}
	if err := writeAll(h.rw, payload); err != nil {
		return fmt.Errorf("failed to write hint payload: %w", err)
	}
	var ack [1]byte
	if err := readExact(h.rw, ack[:]); err != nil {
		return fmt.Errorf("failed to read hint ack: %w", err)
	}
	return nil
}

// OracleClient requests preimages by key over the oracle pipe (spec §4.2,
// "Preimage get").
type OracleClient struct {
	rw Pipe
}

// NewOracleClient wraps a pipe as an OracleClient.
func NewOracleClient(rw Pipe) *OracleClient {
	return &OracleClient{rw: rw}
}

// Get sends the 32-byte key and reads back the length-prefixed preimage.
func (o *OracleClient) Get(key Key) ([]byte, error) {
	if err := writeAll(o.rw, key[:]); err != nil {
		return nil, fmt.Errorf("failed to write preimage key: %w", err)
	}
	var lenBuf [8]byte
	if err := readExact(o.rw, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("failed to read preimage length: %w", err)
	}
	n := binary.BigEndian.Uint64(lenBuf[:])
	data := make([]byte, n)
	if err := readExact(o.rw, data); err != nil {
		return nil, fmt.Errorf("failed to read preimage payload: %w", err)
	}
	return data, nil
}

// GetExact behaves like Get but reads directly into dest and fails if the
// host-reported length does not match len(dest), avoiding an extra
// allocation/copy for preimages of known fixed size.
func (o *OracleClient) GetExact(key Key, dest []byte) error {
	if err := writeAll(o.rw, key[:]); err != nil {
		return fmt.Errorf("failed to write preimage key: %w", err)
	}
	var lenBuf [8]byte
	if err := readExact(o.rw, lenBuf[:]); err != nil {
		return fmt.Errorf("failed to read preimage length: %w", err)
	}
	n := binary.BigEndian.Uint64(lenBuf[:])
	if int(n) != len(dest) {
		return fmt.Errorf("unexpected preimage length: got %d, want %d", n, len(dest))
	}
	return readExact(o.rw, dest)
}
