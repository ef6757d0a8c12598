package scpi

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort stands in for the serial controller port. Reads are served from a
// preloaded buffer holding the instrument's output; writes are captured.
type fakePort struct {
	in     *bytes.Buffer
	out    bytes.Buffer
	closed bool
}

func newFakePort(instrumentOutput string) *fakePort {
	return &fakePort{in: bytes.NewBufferString(instrumentOutput)}
}

func (p *fakePort) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p *fakePort) Write(b []byte) (int, error) { return p.out.Write(b) }
func (p *fakePort) Close() error                { p.closed = true; return nil }

// withFakePort rewires the transporter's port factory to hand out ports from
// the given list, one per open.
func withFakePort(tr *BusTransporter, ports ...*fakePort) {
	i := 0
	tr.openPort = func() (io.ReadWriteCloser, error) {
		port := ports[i]
		i++
		return port, nil
	}
}

func TestBusTransporterWriteSelectsInstrument(t *testing.T) {
	port := newFakePort("")
	tr := NewBusTransporter(BusConfig{Port: "/dev/ttyUSB0"}, 5)
	withFakePort(tr, port)

	require.NoError(t, tr.Open())
	require.NoError(t, tr.WriteLine("VOLT 3V"))
	require.NoError(t, tr.Close())

	assert.Equal(t, "++addr 5\nVOLT 3V\n", port.out.String())
	assert.True(t, port.closed)
}

func TestBusTransporterAddressesOncePerSession(t *testing.T) {
	port := newFakePort("")
	tr := NewBusTransporter(BusConfig{Port: "/dev/ttyUSB0"}, 9)
	withFakePort(tr, port)

	require.NoError(t, tr.Open())
	require.NoError(t, tr.WriteLine("OUTP 1"))
	require.NoError(t, tr.WriteLine("OUTP 0"))
	require.NoError(t, tr.Close())

	assert.Equal(t, "++addr 9\nOUTP 1\nOUTP 0\n", port.out.String())
}

func TestBusTransporterReadLine(t *testing.T) {
	port := newFakePort("19.994\n")
	tr := NewBusTransporter(BusConfig{Port: "/dev/ttyUSB0"}, 5)
	withFakePort(tr, port)

	require.NoError(t, tr.Open())
	line, err := tr.ReadLine()
	require.NoError(t, err)
	require.NoError(t, tr.Close())

	assert.Equal(t, "19.994", line)
	assert.Equal(t, "++addr 5\n++read eoi\n", port.out.String())
}

func TestBusTransporterReaddressesAfterReopen(t *testing.T) {
	first := newFakePort("")
	second := newFakePort("")
	tr := NewBusTransporter(BusConfig{Port: "/dev/ttyUSB0"}, 7)
	withFakePort(tr, first, second)

	require.NoError(t, tr.Open())
	require.NoError(t, tr.WriteLine("*RST"))
	require.NoError(t, tr.Close())

	require.NoError(t, tr.Open())
	require.NoError(t, tr.WriteLine("*CLS"))
	require.NoError(t, tr.Close())

	assert.Equal(t, "++addr 7\n*RST\n", first.out.String())
	assert.Equal(t, "++addr 7\n*CLS\n", second.out.String())
}

func TestBusTransporterNotOpen(t *testing.T) {
	tr := NewBusTransporter(BusConfig{Port: "/dev/ttyUSB0"}, 5)

	assert.Error(t, tr.WriteLine("*RST"))
	_, err := tr.ReadLine()
	assert.Error(t, err)
	assert.NoError(t, tr.Close())
}

func TestBusConfigDefaults(t *testing.T) {
	cfg := BusConfig{Port: "/dev/ttyUSB0"}.withDefaults()

	assert.Equal(t, 115200, cfg.BaudRate)
	assert.Equal(t, 8, cfg.DataBits)
	assert.Equal(t, 1, cfg.StopBits)
	assert.Equal(t, "N", cfg.Parity)
	assert.NotZero(t, cfg.Timeout)
}
