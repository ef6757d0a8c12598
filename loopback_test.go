package scpi

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// lineServer is a loopback LF-line server standing in for an instrument or a
// bus gateway. The handler maps each received line to an optional reply.
// Connections are accepted repeatedly, since the transport layer dials once
// per operation.
type lineServer struct {
	listener net.Listener
	handler  func(line string) (reply string, ok bool)

	mu       sync.Mutex
	received []string
}

func startLineServer(t *testing.T, handler func(string) (string, bool)) *lineServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &lineServer{listener: listener, handler: handler}
	go s.serve()
	t.Cleanup(func() { listener.Close() })
	return s
}

func (s *lineServer) serve() {
	// Connections are handled sequentially: the transport layer dials once
	// per operation and operations never overlap, so draining one connection
	// before accepting the next keeps the received-line order deterministic.
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.handle(conn)
	}
}

func (s *lineServer) handle(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")

		s.mu.Lock()
		s.received = append(s.received, line)
		s.mu.Unlock()

		if reply, ok := s.handler(line); ok {
			if _, err := conn.Write([]byte(reply + "\n")); err != nil {
				return
			}
		}
	}
}

// addr returns the server's host:port.
func (s *lineServer) addr() string {
	return s.listener.Addr().String()
}

// lines returns a snapshot of all received lines.
func (s *lineServer) lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.received))
	copy(out, s.received)
	return out
}

// gatewayHandler builds a handler speaking the gateway tunnel protocol:
// write frames are acknowledged with writeReply, read frames answered with
// readReply.
func gatewayHandler(writeReply, readReply string) func(string) (string, bool) {
	return func(line string) (string, bool) {
		switch {
		case strings.HasPrefix(line, GatewayWritePrefix+GatewayDelimiter):
			return writeReply, true
		case strings.HasPrefix(line, GatewayReadPrefix+GatewayDelimiter):
			return readReply, true
		default:
			return "", false
		}
	}
}

// refusedAddr returns an address that refuses connections.
func refusedAddr(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	listener.Close()
	return addr
}
