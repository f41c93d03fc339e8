package preimageserver

import (
	"fmt"
	"net"

	"github.com/ethereum/go-ethereum/log"
)

// TCPServer exposes a Server's preimage protocol over a TCP listener, a
// debugging aid so a preimage table can be inspected with a raw socket
// instead of the FPVM target's pipe fds.
type TCPServer struct {
	server   *Server
	listener net.Listener
	log      log.Logger
}

// NewTCPServer starts listening on addr and wraps server.
func NewTCPServer(server *Server, addr string, logger log.Logger) (*TCPServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	if logger == nil {
		logger = log.Root()
	}
	return &TCPServer{server: server, listener: listener, log: logger}, nil
}

// Addr returns the address the listener is bound to.
func (s *TCPServer) Addr() string {
	return s.listener.Addr().String()
}

// Serve accepts connections until the listener is closed, answering each
// with the preimage-request protocol. Every connection is independent;
// none of them carry the hint channel, which has no TCP equivalent here.
func (s *TCPServer) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go func() {
			defer conn.Close()
			if err := s.server.ServePreimageRequests(conn); err != nil {
				s.log.Warn("tcp preimage connection ended", "err", err)
			}
		}()
	}
}

// Close stops accepting new connections.
func (s *TCPServer) Close() error {
	return s.listener.Close()
}
