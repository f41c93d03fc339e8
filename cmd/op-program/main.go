// Command op-program is the fault-proof program's client entrypoint (spec
// §6): run inside the FPVM target it speaks the hint/oracle protocol over
// fds 3-6, and run standalone against a witness file it reproduces the
// same execution for local testing under the zk target's oracle shape.
// Talking to a live L1/L2 node is an explicit Non-goal; this binary never
// does anything but consume whichever preimage source it is pointed at.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ethereum-optimism/optimism/op-program/client/oracle"
	"github.com/ethereum-optimism/optimism/op-program/client/preimage"
	"github.com/ethereum-optimism/optimism/op-program/client/program"
)

func main() {
	mode := flag.String("mode", "online", "execution mode: online (read fds 3-6) or zk (read a witness file)")
	witnessPath := flag.String("witness", "", "path to a witness file produced by the host, required in zk mode")
	flag.Parse()

	code, err := run(*mode, *witnessPath)
	if err != nil {
		log.Fatalf("op-program: %v", err)
	}
	os.Exit(code)
}

func run(mode, witnessPath string) (int, error) {
	switch mode {
	case "online":
		return runOnline()
	case "zk":
		return runZK(witnessPath)
	default:
		return 0, fmt.Errorf("unknown mode %q, want \"online\" or \"zk\"", mode)
	}
}

func runOnline() (int, error) {
	hintReader := os.NewFile(preimage.FDHintRead, "hint-read")
	hintWriterFile := os.NewFile(preimage.FDHintWrite, "hint-write")
	preimageReader := os.NewFile(preimage.FDPreimageRead, "preimage-read")
	preimageWriterFile := os.NewFile(preimage.FDPreimageWrite, "preimage-write")
	for _, f := range []*os.File{hintReader, hintWriterFile, preimageReader, preimageWriterFile} {
		if _, err := f.Stat(); err != nil {
			return 0, fmt.Errorf("fds 3-6 are not all open; this binary must be launched by a host process")
		}
	}

	hintPipe := &fdPipe{r: hintReader, w: hintWriterFile}
	preimagePipe := &fdPipe{r: preimageReader, w: preimageWriterFile}

	client := preimage.NewOracleClient(preimagePipe)
	hints := preimage.NewHintWriter(hintPipe)
	po := oracle.NewCachingOracle(client, hints)

	return program.Run(po, po, program.NopDeriver{}), nil
}

func runZK(witnessPath string) (int, error) {
	if witnessPath == "" {
		return 0, fmt.Errorf("-witness is required in zk mode")
	}
	f, err := os.Open(witnessPath)
	if err != nil {
		return 0, fmt.Errorf("open witness file: %w", err)
	}
	defer f.Close()

	po, err := oracle.LoadInMemoryOracle(f)
	if err != nil {
		return 0, fmt.Errorf("load witness: %w", err)
	}
	if err := po.Verify(); err != nil {
		return 0, fmt.Errorf("witness failed verification: %w", err)
	}

	return program.Run(po, po, program.NopDeriver{}), nil
}

// fdPipe glues a pair of *os.File descriptors together into the
// bidirectional preimage.Pipe the client packages expect.
type fdPipe struct {
	r *os.File
	w *os.File
}

func (p *fdPipe) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *fdPipe) Write(b []byte) (int, error) { return p.w.Write(b) }
