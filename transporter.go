package scpi

// Transporter defines the common interface for the three instrument
// communication interfaces (bus, network, gateway tunnel).
//
// The handle is acquired per operation: the connection façade calls Open
// before each Write/Read/Query and Close afterwards, so implementations must
// tolerate repeated Open/Close cycles. Close must be safe on a transporter
// that was never opened or whose open previously failed.
type Transporter interface {
	// Open acquires the underlying handle (bus controller session or
	// network socket) using the configured timeout.
	Open() error

	// Close releases the underlying handle. Idempotent.
	Close() error

	// WriteLine sends one LF-terminated command line.
	WriteLine(line string) error

	// ReadLine reads one response line, without the terminator.
	ReadLine() (string, error)
}

// Compile-time interface satisfaction checks.
var (
	_ Transporter = (*BusTransporter)(nil)
	_ Transporter = (*TCPTransporter)(nil)
	_ Transporter = (*GatewayTransporter)(nil)
)
