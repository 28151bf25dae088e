package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort is an in-memory serial port. Reads are served from a queue of
// chunks; an empty chunk models a read timeout (zero-byte read).
type fakePort struct {
	written []byte
	chunks  [][]byte
	readErr error
	closed  bool
}

func (f *fakePort) Read(p []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if len(f.chunks) == 0 {
		return 0, nil // timeout
	}
	chunk := f.chunks[0]
	f.chunks = f.chunks[1:]
	n := copy(p, chunk)
	return n, nil
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.written = append(f.written, p...)
	return len(p), nil
}

func (f *fakePort) SetReadTimeout(t time.Duration) error { return nil }

func (f *fakePort) Close() error {
	f.closed = true
	return nil
}

func newTestSerial(fp *fakePort) *Serial {
	return &Serial{
		endpoint: Endpoint{Port: "COM3", BaudRate: DefaultBaudRate, Timeout: 50 * time.Millisecond},
		port:     fp,
	}
}

func TestSend_Framing(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
		want string
	}{
		{"get command", "get_temp", ">get_temp\n"},
		{"set command with args", "set_dac,150", ">set_dac,150\n"},
		{"pid format", "set_pid,1.0000,2.0000,3.0000", ">set_pid,1.0000,2.0000,3.0000\n"},
		{"empty command", "", ">\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := &fakePort{}
			s := newTestSerial(fp)
			require.NoError(t, s.Send(tt.cmd))
			assert.Equal(t, tt.want, string(fp.written))
		})
	}
}

func TestSend_IdempotentFraming(t *testing.T) {
	fp := &fakePort{}
	s := newTestSerial(fp)

	require.NoError(t, s.Send("set_pid,1.0000,2.0000,3.0000"))
	first := string(fp.written)
	fp.written = nil
	require.NoError(t, s.Send("set_pid,1.0000,2.0000,3.0000"))

	assert.Equal(t, first, string(fp.written))
	assert.Equal(t, ">set_pid,1.0000,2.0000,3.0000\n", first)
}

func TestReceive_SingleChunk(t *testing.T) {
	fp := &fakePort{chunks: [][]byte{[]byte("24.8\r\n")}}
	s := newTestSerial(fp)

	got, err := s.Receive(0)
	require.NoError(t, err)
	assert.Equal(t, "24.8", got)
}

func TestReceive_SplitTerminator(t *testing.T) {
	// Terminator arrives across chunk boundaries.
	fp := &fakePort{chunks: [][]byte{
		[]byte("25"),
		[]byte(".0\r"),
		[]byte("\n"),
	}}
	s := newTestSerial(fp)

	got, err := s.Receive(0)
	require.NoError(t, err)
	assert.Equal(t, "25.0", got)
}

func TestReceive_Timeout(t *testing.T) {
	fp := &fakePort{}
	s := newTestSerial(fp)

	_, err := s.Receive(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestReceive_TimeoutDiscardsPartial(t *testing.T) {
	fp := &fakePort{chunks: [][]byte{[]byte("24.")}}
	s := newTestSerial(fp)

	_, err := s.Receive(10 * time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)

	// A later reply must not see the stale partial bytes.
	fp.chunks = [][]byte{[]byte("25.1\r\n")}
	got, err := s.Receive(0)
	require.NoError(t, err)
	assert.Equal(t, "25.1", got)
}

func TestClose_Idempotent(t *testing.T) {
	fp := &fakePort{}
	s := newTestSerial(fp)

	require.NoError(t, s.Close())
	assert.True(t, fp.closed)
	require.NoError(t, s.Close())
}

func TestClosed_Operations(t *testing.T) {
	s := newTestSerial(&fakePort{})
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Send("get_temp"), ErrClosed)
	_, err := s.Receive(0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpen_MissingDevice(t *testing.T) {
	_, err := Open(Endpoint{Port: "/dev/gopid-nonexistent"})
	assert.Error(t, err)
}
