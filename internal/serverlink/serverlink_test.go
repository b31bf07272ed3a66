package serverlink_test

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/roboime/soccer-agent-runtime/internal/serverlink"
	"github.com/roboime/soccer-agent-runtime/internal/wire"
)

// testOpts shortens every timeout so a hung test fails fast instead of
// burning the default 2s receive timeout per assertion.
func testOpts() serverlink.Options {
	return serverlink.Options{
		RecvTimeout:           200 * time.Millisecond,
		ConnectRetryInterval:  10 * time.Millisecond,
		KeepAlivePollInterval: time.Millisecond,
	}
}

// fakeServer is a bare TCP listener standing in for rcssserver3d: it
// accepts exactly one connection and exposes the raw net.Conn for the
// test to read/write frames on directly, mirroring lobbyserver_test.go's
// real-listener-on-":0" integration style.
func fakeServer(t *testing.T) (addr string, acceptedCh <-chan net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	ch := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			ch <- conn
		}
	}()

	return ln.Addr().String(), ch
}

func writeFrame(t *testing.T, conn net.Conn, payload string) {
	t.Helper()
	hdr := wire.Header{Len: uint32(len(payload))}
	hdrBytes, err := hdr.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}
	if _, err := conn.Write(hdrBytes); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := conn.Write([]byte(payload)); err != nil {
		t.Fatalf("write body: %v", err)
	}
}

func readFrame(t *testing.T, conn net.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))

	var hdrBuf [wire.HeaderSize]byte
	if _, err := io.ReadFull(conn, hdrBuf[:]); err != nil {
		t.Fatalf("read header: %v", err)
	}
	var hdr wire.Header
	if err := hdr.UnmarshalBinary(hdrBuf[:]); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	body := make([]byte, hdr.Len)
	if _, err := io.ReadFull(conn, body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

// TestFrameRoundTrip covers testable property #4: SendImmediate produces
// exactly one frame decodable as the original string.
func TestFrameRoundTrip(t *testing.T) {
	is := is.New(t)

	addr, acceptedCh := fakeServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	link, err := serverlink.New(ctx, addr, testOpts(), nil)
	is.NoErr(err)
	defer link.Close()

	serverConn := <-acceptedCh
	defer serverConn.Close()

	want := "(scene rsg/agent/nao/nao_hetero.rsg 2)"
	is.NoErr(link.SendImmediate(want))

	got := readFrame(t, serverConn)
	is.Equal(got, want)
}

// TestReceiveReturnsLatestFrame covers S3 / property #6: three frames
// queued back-to-back before Receive is called yield the third, not the
// first.
func TestReceiveReturnsLatestFrame(t *testing.T) {
	is := is.New(t)

	addr, acceptedCh := fakeServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	link, err := serverlink.New(ctx, addr, testOpts(), nil)
	is.NoErr(err)
	defer link.Close()

	serverConn := <-acceptedCh
	defer serverConn.Close()

	writeFrame(t, serverConn, "F1")
	writeFrame(t, serverConn, "F2")
	writeFrame(t, serverConn, "F3")

	// give the kernel a moment to have all three frames sitting in the
	// client's receive buffer at once, so the drain loop sees them as a
	// single batch rather than racing the writes.
	time.Sleep(20 * time.Millisecond)

	frame := link.Receive()
	is.Equal(string(frame), "F3")
}

// TestReceiveEmptyOnTimeout covers the transport-transient recv-timeout
// path of spec.md §7: no data ever arrives, so Receive surfaces an empty
// frame rather than blocking forever.
func TestReceiveEmptyOnTimeout(t *testing.T) {
	is := is.New(t)

	addr, acceptedCh := fakeServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	link, err := serverlink.New(ctx, addr, testOpts(), nil)
	is.NoErr(err)
	defer link.Close()

	serverConn := <-acceptedCh
	defer serverConn.Close()

	frame := link.Receive()
	is.True(frame == nil)
}

// TestInitializeAgentHandshake covers S1: the scene/init/sync sequence
// fires in order with the body type derived from unum=5 (index 2).
func TestInitializeAgentHandshake(t *testing.T) {
	is := is.New(t)

	addr, acceptedCh := fakeServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	link, err := serverlink.New(ctx, addr, testOpts(), nil)
	is.NoErr(err)
	defer link.Close()

	serverConn := <-acceptedCh
	defer serverConn.Close()

	done := make(chan error, 1)
	go func() {
		done <- link.InitializeAgent(5, "RoboIME", nil)
	}()

	is.Equal(readFrame(t, serverConn), "(scene rsg/agent/nao/nao_hetero.rsg 2)")
	writeFrame(t, serverConn, "(ack)")

	is.Equal(readFrame(t, serverConn), "(init (unum 5) (teamname RoboIME))")
	writeFrame(t, serverConn, "(ack)")

	for i := 0; i < 3; i++ {
		is.Equal(readFrame(t, serverConn), "(syn)")
		writeFrame(t, serverConn, "(ack)")
	}

	is.NoErr(<-done)
}

// TestSiblingKeptAliveDuringReceiveAsync covers properties #7 and #8: while
// one link blocks in ReceiveAsync waiting on its own frame, a sibling with
// pending inbound data gets drained, and receives at least one "(syn)".
func TestSiblingKeptAliveDuringReceiveAsync(t *testing.T) {
	is := is.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	selfAddr, selfAcceptedCh := fakeServer(t)
	self, err := serverlink.New(ctx, selfAddr, testOpts(), nil)
	is.NoErr(err)
	defer self.Close()
	selfConn := <-selfAcceptedCh
	defer selfConn.Close()

	sibAddr, sibAcceptedCh := fakeServer(t)
	sibling, err := serverlink.New(ctx, sibAddr, testOpts(), nil)
	is.NoErr(err)
	defer sibling.Close()
	sibConn := <-sibAcceptedCh
	defer sibConn.Close()

	// queue data on the sibling's socket before self ever becomes
	// readable: ReceiveAsync must drain it, not let it pile up.
	writeFrame(t, sibConn, "pending-for-sibling")

	resultCh := make(chan wire.Frame, 1)
	go func() {
		resultCh <- self.ReceiveAsync([]*serverlink.Link{sibling})
	}()

	// the sibling server end should observe at least one "(syn)" while
	// self is still blocked.
	is.Equal(readFrame(t, sibConn), "(syn)")

	// now let self's own frame arrive, unblocking ReceiveAsync.
	writeFrame(t, selfConn, "self-frame")

	select {
	case frame := <-resultCh:
		is.Equal(string(frame), "self-frame")
	case <-time.After(2 * time.Second):
		t.Fatal("ReceiveAsync did not return after self became readable")
	}
}

// TestCloseHalfClosesBeforeClosing covers S6: Close sends a FIN (observed
// by the server end as EOF on read), not an abrupt reset.
func TestCloseHalfClosesBeforeClosing(t *testing.T) {
	is := is.New(t)

	addr, acceptedCh := fakeServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	link, err := serverlink.New(ctx, addr, testOpts(), nil)
	is.NoErr(err)

	serverConn := <-acceptedCh
	defer serverConn.Close()

	is.NoErr(link.Close())

	serverConn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 16)
	n, err := serverConn.Read(buf)
	is.Equal(n, 0)
	is.Equal(err, io.EOF)
}

// TestSendSkipsWhenReadable covers spec.md §4.3's
// Send contract: if data is already pending to read, the send is skipped
// this cycle, but the commit queue is still cleared rather than growing
// unbounded.
func TestSendSkipsWhenReadable(t *testing.T) {
	is := is.New(t)

	addr, acceptedCh := fakeServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	link, err := serverlink.New(ctx, addr, testOpts(), nil)
	is.NoErr(err)
	defer link.Close()

	serverConn := <-acceptedCh
	defer serverConn.Close()

	writeFrame(t, serverConn, "unread-frame")
	time.Sleep(20 * time.Millisecond)

	link.Commit("(foo)")
	is.NoErr(link.Send())

	// nothing should have been written to the server: draining the
	// pending frame took priority over sending this cycle.
	serverConn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	buf := make([]byte, 1)
	_, err = serverConn.Read(buf)
	netErr, ok := err.(net.Error)
	is.True(ok)
	is.True(netErr.Timeout())

	// the skipped cycle's "(foo)" was dropped with the queue: once the
	// pending frame is read, the next Send carries only the implicit "(syn)".
	is.Equal(string(link.Receive()), "unread-frame")
	is.NoErr(link.Send())
	is.Equal(readFrame(t, serverConn), "(syn)")
}

// TestSendAppendsImplicitSynWhenIdle covers the common cycle path: with
// nothing pending to read, Send flushes the commit queue with an implicit
// trailing "(syn)".
func TestSendAppendsImplicitSynWhenIdle(t *testing.T) {
	is := is.New(t)

	addr, acceptedCh := fakeServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	link, err := serverlink.New(ctx, addr, testOpts(), nil)
	is.NoErr(err)
	defer link.Close()

	serverConn := <-acceptedCh
	defer serverConn.Close()

	link.Commit("(move 1 2)")
	is.NoErr(link.Send())

	is.Equal(readFrame(t, serverConn), "(move 1 2)(syn)")
}
