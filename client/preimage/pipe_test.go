package preimage

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

// loopback wires a HintWriter/OracleClient's pipe to a hand-rolled host
// stub that speaks the exact wire protocol from spec §4.2 and §6.
type loopback struct {
	toHost   *io.PipeWriter
	fromHost *io.PipeReader
	toProg   *io.PipeReader
	fromProg *io.PipeWriter
}

func newLoopback() (*loopback, Pipe) {
	progToHostR, progToHostW := io.Pipe()
	hostToProgR, hostToProgW := io.Pipe()
	return &loopback{
			toHost:   progToHostW,
			fromHost: hostToProgR,
			toProg:   progToHostR,
			fromProg: hostToProgW,
		}, &pipeAdapter{
			r: hostToProgR,
			w: progToHostW,
		}
}

// pipeAdapter glues a pair of unidirectional io.Pipes into Pipe.
type pipeAdapter struct {
	r io.Reader
	w io.Writer
}

func (p *pipeAdapter) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeAdapter) Write(b []byte) (int, error) { return p.w.Write(b) }

func TestHintHandshake(t *testing.T) {
	lb, progSide := newLoopback()
	hw := NewHintWriter(progSide)

	done := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		var lenBuf [4]byte
		if _, err := io.ReadFull(lb.toProg, lenBuf[:]); err != nil {
			errCh <- err
			return
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		payload := make([]byte, n)
		if _, err := io.ReadFull(lb.toProg, payload); err != nil {
			errCh <- err
			return
		}
		done <- string(payload)
		if _, err := lb.fromProg.Write([]byte{0x01}); err != nil {
			errCh <- err
		}
	}()

	hintErr := make(chan error, 1)
	go func() {
		hintErr <- hw.Hint("l2-code 0x1234")
	}()

	select {
	case got := <-done:
		if got != "l2-code 0x1234" {
			t.Fatalf("unexpected hint payload: %q", got)
		}
	case err := <-errCh:
		t.Fatalf("host stub error: %v", err)
	}
	if err := <-hintErr; err != nil {
		t.Fatalf("Hint() returned error: %v", err)
	}
}

func TestOracleGetRoundTrip(t *testing.T) {
	lb, progSide := newLoopback()
	oc := NewOracleClient(progSide)

	value := []byte("hello")
	key := Keccak256Key(crypto.Keccak256Hash(value))

	errCh := make(chan error, 1)
	go func() {
		var gotKey Key
		if _, err := io.ReadFull(lb.toProg, gotKey[:]); err != nil {
			errCh <- err
			return
		}
		if gotKey != key {
			errCh <- io.ErrUnexpectedEOF
			return
		}
		var lenBuf [8]byte
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(value)))
		if _, err := lb.fromProg.Write(lenBuf[:]); err != nil {
			errCh <- err
			return
		}
		if _, err := lb.fromProg.Write(value); err != nil {
			errCh <- err
		}
	}()

	got, err := oc.Get(key)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("unexpected preimage: %q", got)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("host stub error: %v", err)
		}
	default:
	}
}
