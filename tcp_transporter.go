package scpi

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"time"
)

// SCPI-over-TCP conventions.
const (
	// DefaultPort is the conventional SCPI raw socket service port.
	DefaultPort = 5025

	// LineTerminator ends every command and response line.
	LineTerminator = '\n'
)

// TCPTransporter handles direct network addressing of an instrument exposing
// an LF-terminated SCPI-like line protocol over TCP.
type TCPTransporter struct {
	address string
	timeout time.Duration
	conn    net.Conn
	reader  *bufio.Reader
	logger  *log.Logger
}

// NewTCPTransporter creates a TCPTransporter for the given network address.
// An address without an explicit port gets the default SCPI port appended.
func NewTCPTransporter(address string, timeout time.Duration, logger io.Writer) *TCPTransporter {
	var tcpLogger *log.Logger
	if logger != nil {
		tcpLogger = log.New(logger, "[TCP] ", log.LstdFlags|log.Lshortfile)
	}

	return &TCPTransporter{
		address: ensurePort(address),
		timeout: timeout,
		logger:  tcpLogger,
	}
}

// ensurePort appends the default SCPI port when the address carries none.
func ensurePort(address string) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	return net.JoinHostPort(strings.TrimSpace(address), strconv.Itoa(DefaultPort))
}

// log writes a log message if logger is configured
func (t *TCPTransporter) log(format string, v ...interface{}) {
	if t.logger != nil {
		t.logger.Printf(format, v...)
	}
}

// setDeadline sets read/write deadline for the connection
func (t *TCPTransporter) setDeadline() error {
	if t.timeout > 0 {
		return t.conn.SetDeadline(time.Now().Add(t.timeout))
	}
	return nil
}

// clearDeadline clears the deadline on the connection
func (t *TCPTransporter) clearDeadline() {
	t.conn.SetDeadline(time.Time{})
}

// Open dials the instrument. Calling Open on an already-open transporter is
// a no-op so the façade can call it unconditionally before every operation.
func (t *TCPTransporter) Open() error {
	if t.conn != nil {
		return nil
	}

	t.log("Dialing %s", t.address)

	conn, err := net.DialTimeout("tcp", t.address, t.timeout)
	if err != nil {
		return fmt.Errorf("dial %s failed: %w", t.address, err)
	}

	t.conn = conn
	t.reader = bufio.NewReader(conn)
	return nil
}

// WriteLine sends one command line, appending the terminator when missing.
func (t *TCPTransporter) WriteLine(line string) error {
	if t.conn == nil {
		return fmt.Errorf("transporter is not open")
	}

	if !strings.HasSuffix(line, string(LineTerminator)) {
		line += string(LineTerminator)
	}

	if err := t.setDeadline(); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	defer t.clearDeadline()

	data := []byte(line)
	written := 0
	for written < len(data) {
		n, err := t.conn.Write(data[written:])
		if err != nil {
			return fmt.Errorf("write failed after %d bytes: %w", written, err)
		}
		written += n
	}

	t.log("Wrote %d bytes", written)
	return nil
}

// ReadLine reads one LF-terminated response line and strips the terminator.
func (t *TCPTransporter) ReadLine() (string, error) {
	if t.conn == nil {
		return "", fmt.Errorf("transporter is not open")
	}

	if err := t.setDeadline(); err != nil {
		return "", fmt.Errorf("failed to set read deadline: %w", err)
	}
	defer t.clearDeadline()

	line, err := t.reader.ReadString(byte(LineTerminator))
	if err != nil {
		return "", fmt.Errorf("read failed: %w", err)
	}

	t.log("Read %d bytes", len(line))
	return strings.TrimRight(line, "\r\n"), nil
}

// Close closes the underlying connection. Idempotent.
func (t *TCPTransporter) Close() error {
	if t.conn == nil {
		return nil
	}

	t.log("Closing TCP transporter")

	err := t.conn.Close()
	t.conn = nil
	t.reader = nil
	return err
}

// RemoteAddr returns the configured instrument address.
func (t *TCPTransporter) RemoteAddr() string {
	return t.address
}
