// Package preimageserver implements the host side of the preimage wire
// protocol (spec §4.2): it answers a program's hint and oracle pipes from
// a pre-populated table of preimages, the harness used to exercise the
// client packages end to end without a live L1/L2 node behind them.
package preimageserver

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/optimism/op-program/client/preimage"
)

// HintHandler is invoked for every hint the program sends; a caching host
// would use it to prefetch and store the preimages it names (spec §4.2).
type HintHandler func(hint string) error

// Server answers preimage and hint requests from a table of known
// preimages, one entry per key (spec §4.3's backing store, from the host's
// point of view).
type Server struct {
	mu         sync.RWMutex
	preimages  map[preimage.Key][]byte
	hintRouter HintHandler
	log        log.Logger
}

// NewServer constructs an empty Server.
func NewServer(logger log.Logger) *Server {
	if logger == nil {
		logger = log.Root()
	}
	return &Server{
		preimages: make(map[preimage.Key][]byte),
		log:       logger,
	}
}

// SetHintHandler installs the callback invoked for every incoming hint.
func (s *Server) SetHintHandler(h HintHandler) {
	s.hintRouter = h
}

// AddPreimage registers data as the preimage for key.
func (s *Server) AddPreimage(key preimage.Key, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preimages[key] = data
}

// AddLocalData registers data under the local-key convention for index,
// the shape the boot record is read through (spec §4.7).
func (s *Server) AddLocalData(index uint64, data []byte) {
	s.AddPreimage(preimage.LocalIndexKey(index), data)
}

// GetPreimage looks up a previously registered preimage.
func (s *Server) GetPreimage(key preimage.Key) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.preimages[key]
	return data, ok
}

// ServePreimageRequests answers oracle-pipe requests on rw until the
// program closes its end or an unknown key is requested.
func (s *Server) ServePreimageRequests(rw io.ReadWriter) error {
	for {
		var key preimage.Key
		if _, err := io.ReadFull(rw, key[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return fmt.Errorf("read preimage key: %w", err)
		}
		data, ok := s.GetPreimage(key)
		if !ok {
			return fmt.Errorf("no preimage registered for key %x", key)
		}
		var lenBuf [8]byte
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(data)))
		if _, err := rw.Write(lenBuf[:]); err != nil {
			return fmt.Errorf("write preimage length: %w", err)
		}
		if _, err := rw.Write(data); err != nil {
			return fmt.Errorf("write preimage payload: %w", err)
		}
	}
}

// ServeHintRequests answers hint-pipe requests on rw, routing each hint to
// the installed HintHandler (if any) and always acknowledging, since a
// hint failing to resolve is advisory, never fatal (spec §4.2).
func (s *Server) ServeHintRequests(rw io.ReadWriter) error {
	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(rw, lenBuf[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return fmt.Errorf("read hint length: %w", err)
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		payload := make([]byte, n)
		if _, err := io.ReadFull(rw, payload); err != nil {
			return fmt.Errorf("read hint payload: %w", err)
		}
		if s.hintRouter != nil {
			if err := s.hintRouter(string(payload)); err != nil {
				s.log.Warn("hint handler failed", "hint", string(payload), "err", err)
			}
		}
		if _, err := rw.Write([]byte{0x01}); err != nil {
			return fmt.Errorf("write hint ack: %w", err)
		}
	}
}
