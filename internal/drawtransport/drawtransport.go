// Package drawtransport implements DrawTransport (C2): a UDP datagram
// builder and sender for the RoboViz visualizer's hybrid binary + fixed-
// width-ASCII drawing protocol. Grounded on
// original_source/src/Drawer/Drawer.hpp for every wire encoder (byte,
// fixed-6-byte-ASCII float, rgb/rgba clamp-and-scale, C-string) and on the
// teacher's lobbyclient.go DialUDP connection shape for the Go-idiomatic
// socket handling (a singleton mutex-guarded C++ class becomes an
// explicitly constructed, explicitly threaded value per Design Note 1).
package drawtransport

import (
	"fmt"
	"math"
	"net"
	"sync"

	"github.com/roboime/soccer-agent-runtime/internal/asynclog"
)

// MaxDatagramSize is the safe UDP payload ceiling spec.md's DrawBuffer is
// bounded by.
const MaxDatagramSize = 65535

// Transport accumulates drawing commands in a local byte buffer and
// transmits the buffer as a single UDP datagram on Flush. Safe for
// concurrent use.
type Transport struct {
	mu   sync.Mutex
	buf  []byte
	conn *net.UDPConn

	logger *asynclog.Logger

	// inert is set true if socket creation failed; Flush then always
	// returns false and no further socket calls are attempted.
	inert bool
}

// New dials the visualizer's UDP endpoint (host:port, e.g.
// "127.0.0.1:32769"). logger may be nil, in which case construction
// failures are dropped silently rather than logged (matching asynclog's
// own nil-discards convention used throughout this module). Socket
// creation failure does not return an error: per spec.md §4.2's error
// policy, it logs once and leaves the transport inert, so every other
// call site can keep using the returned Transport unconditionally.
func New(addr string, logger *asynclog.Logger) *Transport {
	t := &Transport{
		buf:    make([]byte, 0, MaxDatagramSize),
		logger: logger,
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		t.deadOnArrival("could not resolve udp addr %q: %v", addr, err)
		return t
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		t.deadOnArrival("could not dial udp %q: %v", addr, err)
		return t
	}

	t.conn = conn
	return t
}

func (t *Transport) deadOnArrival(format string, args ...any) {
	t.inert = true
	if t.logger != nil {
		t.logger.Errorf("drawtransport: "+format, args...)
	}
}

// --- internal wire encoders, callers must hold mu ---

func (t *Transport) writeByte(b byte) {
	t.buf = append(t.buf, b)
}

// writeFloat formats value with a standard fixed-precision "%f" conversion
// and appends exactly its first 6 characters — no null terminator, no
// length prefix. This is a fragile, idiosyncratic contract with the
// visualizer (e.g. "100.0000" is truncated to "100.00", losing precision)
// and must be preserved verbatim; see spec.md §9.
func (t *Transport) writeFloat(value float64) {
	s := fmt.Sprintf("%f", value) // always >= 8 bytes: sign?digit.6 decimals
	t.buf = append(t.buf, s[:6]...)
}

// clampChannel clamps v to [0,1] and rounds (not truncates) to the nearest
// octet, per spec.md §4.2. The original C++ truncates via static_cast; Go's
// math.Round here is the deliberately corrected behavior.
func clampChannel(v float64) byte {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return byte(math.Round(v * 255))
}

func (t *Transport) writeColor(r, g, b float64) {
	t.buf = append(t.buf, clampChannel(r), clampChannel(g), clampChannel(b))
}

func (t *Transport) writeColorAlpha(r, g, b, a float64) {
	t.writeColor(r, g, b)
	t.buf = append(t.buf, clampChannel(a))
}

func (t *Transport) writeString(s string) {
	t.buf = append(t.buf, s...)
	t.buf = append(t.buf, 0)
}

// --- public drawing API ---

// SwapBuffers replaces the named layer's contents in the visualizer with
// whatever has been drawn into it since the last swap.
func (t *Transport) SwapBuffers(set string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeByte(0)
	t.writeByte(0)
	t.writeString(set)
}

// DrawLine appends a 3D line segment command.
func (t *Transport) DrawLine(x1, y1, z1, x2, y2, z2, thickness, r, g, b float64, set string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeByte(1)
	t.writeByte(1)
	t.writeFloat(x1)
	t.writeFloat(y1)
	t.writeFloat(z1)
	t.writeFloat(x2)
	t.writeFloat(y2)
	t.writeFloat(z2)
	t.writeFloat(thickness)
	t.writeColor(r, g, b)
	t.writeString(set)
}

// DrawCircle appends a 2D/billboard circle command.
func (t *Transport) DrawCircle(x, y, radius, thickness, r, g, b float64, set string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeByte(1)
	t.writeByte(0)
	t.writeFloat(x)
	t.writeFloat(y)
	t.writeFloat(radius)
	t.writeFloat(thickness)
	t.writeColor(r, g, b)
	t.writeString(set)
}

// DrawPoint appends a point command.
func (t *Transport) DrawPoint(x, y, z, size, r, g, b float64, set string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeByte(1)
	t.writeByte(2)
	t.writeFloat(x)
	t.writeFloat(y)
	t.writeFloat(z)
	t.writeFloat(size)
	t.writeColor(r, g, b)
	t.writeString(set)
}

// DrawSphere appends a sphere command.
func (t *Transport) DrawSphere(x, y, z, radius, r, g, b float64, set string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeByte(1)
	t.writeByte(3)
	t.writeFloat(x)
	t.writeFloat(y)
	t.writeFloat(z)
	t.writeFloat(radius)
	t.writeColor(r, g, b)
	t.writeString(set)
}

// DrawPolygon appends a polygon command. verts holds sequential x,y,z
// triples; only whole triples are counted toward the vertex count, matching
// the original's floor(len(verts)/3).
func (t *Transport) DrawPolygon(verts []float64, r, g, b, a float64, set string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	numVerts := byte(len(verts) / 3)

	t.writeByte(1)
	t.writeByte(4)
	t.writeByte(numVerts)
	t.writeColorAlpha(r, g, b, a)
	for _, v := range verts {
		t.writeFloat(v)
	}
	t.writeString(set)
}

// DrawAnnotation appends a 3D text annotation command.
func (t *Transport) DrawAnnotation(text string, x, y, z, r, g, b float64, set string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeByte(2)
	t.writeByte(0)
	t.writeFloat(x)
	t.writeFloat(y)
	t.writeFloat(z)
	t.writeColor(r, g, b)
	t.writeString(text)
	t.writeString(set)
}

// Flush sends the entire accumulated buffer in one UDP datagram and clears
// it regardless of the send's outcome. It reports whether at least one
// byte was written. If the transport is inert (socket creation failed at
// construction), it always returns false without attempting to send.
func (t *Transport) Flush() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.buf) == 0 {
		return false
	}
	if t.inert {
		t.buf = t.buf[:0]
		return false
	}

	n, err := t.conn.Write(t.buf)
	t.buf = t.buf[:0]
	if err != nil {
		if t.logger != nil {
			t.logger.Warnf("drawtransport: send failed: %v", err)
		}
		return false
	}
	return n > 0
}

// Clear discards the buffer without transmitting it.
func (t *Transport) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = t.buf[:0]
}

// Close releases the underlying UDP socket, if one was successfully
// created.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
