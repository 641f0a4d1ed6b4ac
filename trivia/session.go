package main

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/UriTabic/Trivia-Game/trivia/packet"
)

const defaultReadTimeout = 30 * time.Second

var (
	ErrSessionClosed = errors.New("session closed")
	ErrDialAborted   = errors.New("connection attempt aborted")
)

// RetryFunc is consulted after every failed connection attempt. It receives
// the attempt's error; returning false aborts the dial. The presentation
// layer owns the retry/abort decision, the transport only reports.
type RetryFunc func(err error) bool

// ResponseInfo is the envelope produced once per received frame. It is
// consumed immediately by the caller that issued the matching request and
// never retained across calls.
type ResponseInfo struct {
	Code       Code
	ReceivedAt time.Time
	Data       string
}

// Session owns the one TCP connection to the server. Every exchange is one
// request frame followed by exactly one response frame; the protocol has no
// correlation ids, so correctness depends on at most one exchange being in
// flight. Call holds a mutex across the whole exchange to enforce that.
type Session struct {
	mu          sync.Mutex
	conn        net.Conn
	readTimeout time.Duration
	maxPayload  uint32
	closed      bool
	fatal       error
}

// Dial connects to the trivia server, retrying for as long as the retry
// callback keeps returning true.
func Dial(addr string, retry RetryFunc) (*Session, error) {
	for {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			log.Printf("Connected to %s", addr)
			return NewSession(conn), nil
		}
		log.Printf("Connecting to %s failed: %v", addr, err)
		if retry == nil || !retry(err) {
			return nil, fmt.Errorf("%w: %v", ErrDialAborted, err)
		}
	}
}

func NewSession(conn net.Conn) *Session {
	return &Session{
		conn:        conn,
		readTimeout: defaultReadTimeout,
		maxPayload:  packet.DefaultMaxPayload,
	}
}

func (s *Session) SetReadTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readTimeout = d
}

func (s *Session) SetMaxPayload(n uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxPayload = n
}

// Call performs one synchronous request/response exchange. It is the only
// path that touches the socket. Concurrent callers (pollers, the game loop,
// user-triggered operations) queue on the mutex and never interleave.
//
// Errors from Call are fatal to the connection: the stream can no longer be
// trusted to be frame-aligned, so the session is marked dead and every later
// Call fails fast. That includes read timeouts, since a late response would
// otherwise land in the next caller's response slot.
func (s *Session) Call(code Code, payload []byte) (*ResponseInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.fatal != nil {
		return nil, s.fatal
	}
	if _, err := s.conn.Write(packet.New(byte(code), payload)); err != nil {
		return nil, s.fail(fmt.Errorf("write %v: %w", code, err))
	}
	if s.readTimeout > 0 {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
			return nil, s.fail(fmt.Errorf("set read deadline for %v: %w", code, err))
		}
		defer s.conn.SetReadDeadline(time.Time{})
	}
	frame, err := packet.Read(s.conn, s.maxPayload)
	if err != nil {
		return nil, s.fail(fmt.Errorf("read response to %v: %w", code, err))
	}
	return &ResponseInfo{
		Code:       Code(frame.Code),
		ReceivedAt: time.Now(),
		Data:       string(frame.Payload),
	}, nil
}

func (s *Session) fail(err error) error {
	s.fatal = err
	s.closed = true
	s.conn.Close()
	return err
}

// Close performs the orderly shutdown: half-close the write side so the
// server sees a clean end of stream, then close. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if tcp, ok := s.conn.(*net.TCPConn); ok {
		tcp.CloseWrite()
	}
	return s.conn.Close()
}
