package preimageserver

import (
	"fmt"
	"os"
	"sync"
)

// Pipes holds the four file descriptors the FPVM target's hint and oracle
// pipes are wired through (spec §6): the client process inherits these at
// fds 3-6, in HintReader, HintWriter, PreimageReader, PreimageWriter order.
type Pipes struct {
	HintReader     *os.File
	HintWriter     *os.File
	PreimageReader *os.File
	PreimageWriter *os.File
}

// ClientFiles returns the four files the spawned program process should
// inherit, in fd 3/4/5/6 order.
func (p *Pipes) ClientFiles() []*os.File {
	return []*os.File{p.HintReader, p.HintWriter, p.PreimageReader, p.PreimageWriter}
}

// Close closes every file in the set, collecting the first error seen.
func (p *Pipes) Close() error {
	var firstErr error
	for _, f := range []*os.File{p.HintReader, p.HintWriter, p.PreimageReader, p.PreimageWriter} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// duplex glues a read-only file and a write-only file together into a
// single io.ReadWriter, the shape Server's serving loops expect.
type duplex struct {
	r *os.File
	w *os.File
}

func (d *duplex) Read(b []byte) (int, error)  { return d.r.Read(b) }
func (d *duplex) Write(b []byte) (int, error) { return d.w.Write(b) }

// NewPipes creates the two os.Pipe() pairs the protocol needs per channel
// and returns the host's duplex ends (to drive a Process with) and the
// files to hand to the spawned client process.
func NewPipes() (hintHost, preimageHost readWriter, client *Pipes, err error) {
	// Hint channel: client writes hints on one leg, host acks on the other.
	hintDataR, hintDataW, err := os.Pipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create hint data pipe: %w", err)
	}
	hintAckR, hintAckW, err := os.Pipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create hint ack pipe: %w", err)
	}
	// Preimage channel: client writes key requests on one leg, host
	// responds with length-prefixed preimages on the other.
	reqR, reqW, err := os.Pipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create preimage request pipe: %w", err)
	}
	respR, respW, err := os.Pipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create preimage response pipe: %w", err)
	}

	client = &Pipes{
		HintReader:     hintAckR,
		HintWriter:     hintDataW,
		PreimageReader: respR,
		PreimageWriter: reqW,
	}
	hintHost = &duplex{r: hintDataR, w: hintAckW}
	preimageHost = &duplex{r: reqR, w: respW}
	return hintHost, preimageHost, client, nil
}

// readWriter is satisfied by a duplex of os.Files, or by an in-process
// io.Pipe pairing in tests.
type readWriter interface {
	Read([]byte) (int, error)
	Write([]byte) (int, error)
}

// Process runs a Server against one FD-wired client: two goroutines, one
// for the hint channel and one for the preimage channel, running until the client disconnects or both pipes
// are closed.
type Process struct {
	server *Server

	hintRW     readWriter
	preimageRW readWriter

	wg   sync.WaitGroup
	errs chan error
}

// NewProcess wires server to the given hint and preimage duplex channels.
func NewProcess(server *Server, hintRW, preimageRW readWriter) *Process {
	return &Process{
		server:     server,
		hintRW:     hintRW,
		preimageRW: preimageRW,
		errs:       make(chan error, 2),
	}
}

// Start launches the hint and preimage serving loops in the background.
func (p *Process) Start() {
	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		p.errs <- p.server.ServeHintRequests(p.hintRW)
	}()
	go func() {
		defer p.wg.Done()
		p.errs <- p.server.ServePreimageRequests(p.preimageRW)
	}()
}

// Wait blocks until both serving loops exit and returns the first non-nil error.
func (p *Process) Wait() error {
	p.wg.Wait()
	close(p.errs)
	var firstErr error
	for err := range p.errs {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
