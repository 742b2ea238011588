package examples_test

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamgate-io/streamgate-go/pkg/examples"
	"github.com/streamgate-io/streamgate-go/pkg/session"
)

// frameRecorder captures frames a handler sends.
type frameRecorder struct {
	frames [][]byte
}

func (r *frameRecorder) WriteFrame(data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	r.frames = append(r.frames, buf)
	return nil
}

// newEstablishedSession returns a session over one end of a pipe,
// established with an empty pipeline and a capturing frame writer.
func newEstablishedSession(t *testing.T, id string) (*session.Session, *frameRecorder) {
	t.Helper()

	local, remote := net.Pipe()
	t.Cleanup(func() {
		local.Close()
		remote.Close()
	})

	sess := session.New(local, session.Config{ID: id})
	require.NoError(t, sess.Establish(context.Background()))

	rec := &frameRecorder{}
	sess.AttachWriter(rec)
	return sess, rec
}

func TestEchoReturnsPayload(t *testing.T) {
	echo := examples.NewEcho()
	sess, rec := newEstablishedSession(t, "echo-1")

	require.NoError(t, echo.OnSessionOpen(sess))
	echo.OnSessionMessage(sess, []byte("stream chunk"))
	echo.OnSessionMessage(sess, []byte("another"))

	require.Len(t, rec.frames, 2)
	assert.Equal(t, "stream chunk", string(rec.frames[0]))
	assert.Equal(t, "another", string(rec.frames[1]))
}

func TestEchoTracksSessions(t *testing.T) {
	echo := examples.NewEcho()
	first, _ := newEstablishedSession(t, "echo-a")
	second, _ := newEstablishedSession(t, "echo-b")

	require.NoError(t, echo.OnSessionOpen(first))
	require.NoError(t, echo.OnSessionOpen(second))
	assert.Equal(t, 2, echo.SessionCount())

	echo.OnSessionClose(first, nil)
	assert.Equal(t, 1, echo.SessionCount())

	// Closing an unknown session is harmless.
	echo.OnSessionClose(first, nil)
	assert.Equal(t, 1, echo.SessionCount())
}

func TestSinkCounts(t *testing.T) {
	sink := examples.NewSink()
	sess, rec := newEstablishedSession(t, "sink-1")

	require.NoError(t, sink.OnSessionOpen(sess))
	sink.OnSessionMessage(sess, []byte("12345"))
	sink.OnSessionMessage(sess, []byte("678"))
	sink.OnSessionClose(sess, nil)

	assert.Equal(t, uint64(2), sink.Messages())
	assert.Equal(t, uint64(8), sink.Bytes())
	assert.Empty(t, rec.frames, "sink never writes back")
}
