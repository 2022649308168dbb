package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/xaitan80/staticserve/internal/config"
	"github.com/xaitan80/staticserve/internal/request"
	"github.com/xaitan80/staticserve/internal/response"
)

const (
	lingerTimeout  = 500 * time.Millisecond
	maxLingerBytes = 256 << 10
)

// Server accepts one connection at a time and answers it from the serving
// root before accepting the next.
type Server struct {
	ln      net.Listener
	closed  atomic.Bool
	cfg     config.Config
	builder *response.Builder
	log     *logrus.Logger

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// Listen validates cfg and binds the TCP listener on cfg.Addr.
func Listen(cfg config.Config, logger *logrus.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	builder, err := response.NewBuilder(cfg.Root, cfg.ServerName)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", cfg.Addr, err)
	}
	return newServer(ln, cfg, builder, logger), nil
}

func newServer(ln net.Listener, cfg config.Config, builder *response.Builder, logger *logrus.Logger) *Server {
	// Validate has already rejected malformed durations.
	rt, _ := cfg.ReadTimeoutDuration()
	wt, _ := cfg.WriteTimeoutDuration()
	return &Server{
		ln:           ln,
		cfg:          cfg,
		builder:      builder,
		log:          logger,
		readTimeout:  rt,
		writeTimeout: wt,
	}
}

// Addr returns the address the listener is bound to.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Close stops the server and closes the underlying listener.
func (s *Server) Close() error {
	if s == nil {
		return nil
	}
	if s.closed.Swap(true) {
		return nil
	}
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}

// Serve handles connections sequentially until ctx is cancelled or the
// server is closed, in which case it returns nil. A failed accept ends
// Serve with that error. Failures on a single connection end it only in
// strict mode; otherwise they are logged and the next connection is
// accepted.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = s.Close()
	})
	defer stop()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			return &ConnError{Op: OpAccept, Err: err}
		}

		if err := s.handle(conn); err != nil {
			if s.cfg.Strict {
				return err
			}
			s.log.WithError(err).Error("connection failed")
		}
	}
}

// handle runs one request/response exchange and closes conn.
func (s *Server) handle(conn net.Conn) error {
	defer conn.Close()

	id := uuid.NewString()
	log := s.log.WithFields(logrus.Fields{
		"conn":   id,
		"remote": conn.RemoteAddr().String(),
	})
	log.Debug("accepted connection")

	if s.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	}

	req, err := request.RequestFromReader(conn, s.cfg.MaxRequestBytes)
	if err != nil {
		if !isParseError(err) {
			return &ConnError{Op: OpRead, ConnID: id, Err: err}
		}
		if s.cfg.Strict {
			linger(conn)
			return &ConnError{Op: OpParse, ConnID: id, Err: err}
		}
		if errors.Is(err, request.ErrEmptyRequest) {
			log.Debug("client sent nothing")
			return nil
		}
		status := response.StatusFor(err)
		log.WithError(err).WithField("status", int(status)).Warn("rejected request")
		if err := s.write(conn, id, s.builder.Reject(err)); err != nil {
			return err
		}
		linger(conn)
		return nil
	}

	resp := s.builder.Build(req)
	if err := s.write(conn, id, resp); err != nil {
		return err
	}
	linger(conn)
	log.WithFields(logrus.Fields{
		"method": req.Method.String(),
		"path":   req.Path,
		"status": int(response.StatusOK),
		"bytes":  len(resp),
	}).Info("served")
	return nil
}

// linger half-closes conn and discards whatever the client still sends, so
// that closing a connection with unread input does not reset it before the
// client has read the response.
func linger(conn net.Conn) {
	cw, ok := conn.(interface{ CloseWrite() error })
	if !ok {
		return
	}
	if err := cw.CloseWrite(); err != nil {
		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(lingerTimeout))
	_, _ = io.CopyN(io.Discard, conn, maxLingerBytes)
}

func (s *Server) write(conn net.Conn, id string, resp []byte) error {
	if s.writeTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	w := response.NewWriter(conn)
	if _, err := w.Write(resp); err != nil {
		return &ConnError{Op: OpWrite, ConnID: id, Err: err}
	}
	if err := w.Flush(); err != nil {
		return &ConnError{Op: OpFlush, ConnID: id, Err: err}
	}
	return nil
}
