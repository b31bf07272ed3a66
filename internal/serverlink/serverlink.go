// Package serverlink implements ServerLink (C3), the per-agent framed TCP
// client to rcssserver3d: connect-with-retry, length-prefixed framing,
// latest-frame draining, the multi-agent keep-alive invariant, and the
// scene/init/sync handshake. Grounded on
// original_source/src/Communication/ServerComm.hpp for every wire-level
// behavior, and on the teacher's internal/lobbyclient.go for the
// constructor shape (network, address string, logger) and the
// nil-logger-discards-output convention, and on internal/lobbyserver.go's
// go-multierror broadcast-failure aggregation for the sibling keep-alive
// fan-out. Unlike lobbyclient's channel-actor send/recv split, the
// RoboCup wire protocol is a lockstep request/response cycle, so this is a
// synchronous read/write pair guarded by one mutex rather than goroutines
// and channels.
package serverlink

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/roboime/soccer-agent-runtime/internal/asynclog"
	"github.com/roboime/soccer-agent-runtime/internal/debug"
	"github.com/roboime/soccer-agent-runtime/internal/wire"
)

// Options configures a Link's timeouts. Zero values are replaced with
// spec.md §4.3's defaults by New.
type Options struct {
	// RecvTimeout bounds a single frame read; unblocks receive() so it
	// can never stall forever. Default 2s (the original's SO_RCVTIMEO).
	RecvTimeout time.Duration
	// ConnectRetryInterval is the wait between failed dial attempts.
	// Default 500ms.
	ConnectRetryInterval time.Duration
	// KeepAlivePollInterval is the yield between ReceiveAsync
	// iterations. Default 1ms.
	KeepAlivePollInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.RecvTimeout <= 0 {
		o.RecvTimeout = 2 * time.Second
	}
	if o.ConnectRetryInterval <= 0 {
		o.ConnectRetryInterval = 500 * time.Millisecond
	}
	if o.KeepAlivePollInterval <= 0 {
		o.KeepAlivePollInterval = time.Millisecond
	}
	return o
}

// Link is a single agent's framed TCP connection. The zero value is not
// usable; construct with New. Methods are safe to call from the owning
// agent's goroutine and, during a sibling's ReceiveAsync, from exactly one
// other goroutine at a time (spec.md §5); mu serializes both.
type Link struct {
	conn *net.TCPConn
	br   *bufio.Reader

	// frameBuf holds the most recently fully-read payload. It is reused
	// across Receive calls (spec.md's Frame contract: valid only until
	// the next receive), growing if a larger payload is ever seen.
	frameBuf []byte

	commit bytes.Buffer

	logger *asynclog.Logger
	opts   Options

	mu sync.Mutex
}

// New dials addr ("host:port"), retrying every opts.ConnectRetryInterval
// until it succeeds or ctx is canceled. logger may be nil, in which case
// connect-retry warnings are dropped (asynclog's own nil-discards
// convention, used throughout this module). Per spec.md §7's taxonomy,
// only socket-level construction failure (TCP_NODELAY, which in practice
// never fails on a freshly dialed TCP socket) returns an error; connection
// refused is a transient condition the retry loop absorbs.
func New(ctx context.Context, addr string, opts Options, logger *asynclog.Logger) (*Link, error) {
	opts = opts.withDefaults()

	var conn net.Conn
	for {
		var err error
		conn, err = net.Dial("tcp", addr)
		if err == nil {
			break
		}
		if logger != nil {
			logger.Warnf("serverlink: connect to %s failed, retrying in %s: %v", addr, opts.ConnectRetryInterval, err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("serverlink: dial %s canceled: %w", addr, ctx.Err())
		case <-time.After(opts.ConnectRetryInterval):
		}
	}

	tcpConn, ok := conn.(*net.TCPConn)
	debug.Assert(ok)

	if err := tcpConn.SetNoDelay(true); err != nil {
		tcpConn.Close()
		return nil, fmt.Errorf("serverlink: could not set TCP_NODELAY: %w", err)
	}

	return &Link{
		conn:     tcpConn,
		br:       bufio.NewReaderSize(tcpConn, wire.MaxPayloadSize),
		frameBuf: make([]byte, 4096),
		logger:   logger,
		opts:     opts,
	}, nil
}

// bodyType maps a uniform number to the NAO body-variant index the scene
// handshake line names, per spec.md §4.3.
func bodyType(unum uint8) int {
	switch {
	case unum <= 1:
		return 0
	case unum <= 4:
		return 1
	case unum == 5:
		return 2
	case unum <= 8:
		return 3
	default:
		return 4
	}
}

// BeamFragment builds the "(beam X Y θ)" effector fragment named in
// spec.md §6 but never given a call site there (the tactical formation
// table that would compute X/Y/θ is an external collaborator per §1). It
// is a plain string, suitable for Commit.
func BeamFragment(x, y, theta float64) string {
	return fmt.Sprintf("(beam %.2f %.2f %.2f)", x, y, theta)
}

// InitializeAgent runs the scene/init/sync handshake from spec.md §4.3: a
// scene line with the body type derived from unum, an init line naming
// unum and teamName, then three sync rounds. siblings are kept alive via
// ReceiveAsync/syn the same way as every later cycle.
func (l *Link) InitializeAgent(unum uint8, teamName string, siblings []*Link) error {
	scene := fmt.Sprintf("(scene rsg/agent/nao/nao_hetero.rsg %d)", bodyType(unum))
	if err := l.SendImmediate(scene); err != nil {
		return fmt.Errorf("serverlink: scene handshake: %w", err)
	}
	l.ReceiveAsync(siblings)

	init := fmt.Sprintf("(init (unum %d) (teamname %s))", unum, teamName)
	if err := l.SendImmediate(init); err != nil {
		return fmt.Errorf("serverlink: init handshake: %w", err)
	}
	l.ReceiveAsync(siblings)

	for i := 0; i < 3; i++ {
		if err := l.SendImmediate("(syn)"); err != nil {
			return fmt.Errorf("serverlink: sync round %d: %w", i, err)
		}

		var errs error
		for _, sib := range siblings {
			if err := sib.SendImmediate("(syn)"); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
		for _, sib := range siblings {
			if sib.IsReadable() {
				sib.Receive()
			}
		}
		if errs != nil && l.logger != nil {
			l.logger.Warnf("serverlink: sync round %d sibling syn failed: %v", i, errs)
		}

		if l.IsReadable() {
			l.Receive()
		}
	}
	return nil
}

// ReceiveAsync blocks until this link reports readable and a Receive has
// completed, returning that frame. While waiting, it keeps every sibling
// alive: each iteration sends "(syn)" to every sibling and drains any
// sibling that has data pending, so no sibling's kernel receive buffer
// fills while this agent is blocked on its own I/O (spec.md §4.3's
// multi-agent keep-alive invariant). With no siblings it degrades to a
// plain Receive.
func (l *Link) ReceiveAsync(siblings []*Link) wire.Frame {
	if len(siblings) == 0 {
		return l.Receive()
	}

	for {
		if l.IsReadable() {
			return l.Receive()
		}

		var errs error
		for _, sib := range siblings {
			if err := sib.SendImmediate("(syn)"); err != nil {
				errs = multierror.Append(errs, err)
			}
			if sib.IsReadable() {
				sib.Receive()
			}
		}
		if errs != nil && l.logger != nil {
			l.logger.Warnf("serverlink: sibling keep-alive send failed: %v", errs)
		}

		time.Sleep(l.opts.KeepAlivePollInterval)
	}
}

// Receive reads frames in a loop, remembering only the most recently
// completed one, and returns it once nothing more is immediately readable
// (spec.md §4.3's "keep only the latest" drain policy — the server may
// emit several sensor frames between agent cycles). Errors and EOF abort
// the loop and return whatever was last captured, which may be nil.
func (l *Link) Receive() wire.Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.receiveLocked()
}

func (l *Link) receiveLocked() wire.Frame {
	lastLen := -1

	for {
		var hdrBuf [wire.HeaderSize]byte
		if !l.recvAll(hdrBuf[:]) {
			break
		}

		var hdr wire.Header
		if err := hdr.UnmarshalBinary(hdrBuf[:]); err != nil {
			break
		}

		n := int(hdr.Len)
		if n > len(l.frameBuf) {
			l.frameBuf = make([]byte, n)
		}
		if !l.recvAll(l.frameBuf[:n]) {
			break
		}
		lastLen = n

		if !l.peekReadableLocked() {
			break
		}
	}

	if lastLen < 0 {
		return nil
	}
	return wire.Frame(l.frameBuf[:lastLen])
}

// recvAll reads exactly len(buf) bytes within the configured receive
// timeout, reporting success. Any error (timeout, EOF, reset) surfaces as
// false; spec.md §7 treats all of these as "surface an empty frame",
// never as a fatal error out of this call.
func (l *Link) recvAll(buf []byte) bool {
	if err := l.conn.SetReadDeadline(time.Now().Add(l.opts.RecvTimeout)); err != nil {
		return false
	}
	_, err := io.ReadFull(l.br, buf)
	return err == nil
}

// IsReadable polls for pending data without blocking and without
// consuming it, the equivalent of the original's select() with a zero
// timeout.
func (l *Link) IsReadable() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peekReadableLocked()
}

// peekReadableLocked reports readable if bufio.Reader already holds
// buffered bytes; otherwise it probes the raw socket with a one-byte
// MSG_PEEK recv, which returns at once (Go sockets are non-blocking) and
// consumes nothing, matching select()'s zero-timeout semantics. A peer
// close also reports readable, as with select(). The read deadline is
// cleared first, since an expired one makes the raw read fail unprobed.
func (l *Link) peekReadableLocked() bool {
	if l.br.Buffered() > 0 {
		return true
	}
	if err := l.conn.SetReadDeadline(time.Time{}); err != nil {
		return false
	}
	raw, err := l.conn.SyscallConn()
	if err != nil {
		return false
	}
	readable := false
	var one [1]byte
	_ = raw.Read(func(fd uintptr) bool {
		_, _, err := syscall.Recvfrom(int(fd), one[:], syscall.MSG_PEEK)
		readable = err == nil
		return true
	})
	return readable
}

// Commit enqueues fragment for the next Send, unframed.
func (l *Link) Commit(fragment string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.commit.WriteString(fragment)
}

// Send flushes the commit queue. If this link currently has unread data
// pending, reading takes priority this cycle and the send is skipped —
// but the queue is still cleared, so committed fragments never pile up
// across cycles. Otherwise a literal "(syn)" is appended and the whole
// queue goes out as one framed SendImmediate.
func (l *Link) Send() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	defer l.commit.Reset()

	if l.peekReadableLocked() {
		return nil
	}

	l.commit.WriteString("(syn)")
	return l.sendImmediateLocked(l.commit.Bytes())
}

// SendImmediate bypasses the commit queue and sends fragment as one
// framed message right now.
func (l *Link) SendImmediate(fragment string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sendImmediateLocked([]byte(fragment))
}

// sendImmediateLocked builds the 4-byte big-endian length header and
// writes header+body as a single scatter/gather call (net.Buffers maps
// onto writev exactly like the original's iovec pair). Go's netpoller
// already parks and resumes the goroutine across EINTR/EAGAIN-equivalent
// conditions and retries partial writes internally, which is the runtime
// absorbing the original's manual retry loop rather than this code
// re-implementing it.
func (l *Link) sendImmediateLocked(fragment []byte) error {
	if len(fragment) == 0 {
		return nil
	}

	hdr := wire.Header{Len: uint32(len(fragment))}
	hdrBytes, err := hdr.MarshalBinary()
	debug.Assert(err == nil)

	bufs := net.Buffers{hdrBytes, fragment}
	_, err = bufs.WriteTo(l.conn)
	return err
}

// Close performs the three-step graceful teardown from spec.md §4.3: a
// FIN for writing, a non-blocking best-effort drain read (errors
// suppressed), then the final close. This ordering prevents the server
// from logging a spurious RST/"broken pipe" when this agent exits.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs error
	if err := l.conn.CloseWrite(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("close-write: %w", err))
	}

	_ = l.conn.SetReadDeadline(time.Now().Add(time.Millisecond))
	drain := make([]byte, 4096)
	_, _ = l.conn.Read(drain) // best-effort; errors suppressed per spec.md §4.3 step 3

	if err := l.conn.Close(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("close: %w", err))
	}
	return errs
}
