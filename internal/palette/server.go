package palette

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/wonny/fibivi/internal/contracts"
	"github.com/wonny/fibivi/pkg/config"
	"github.com/wonny/fibivi/pkg/logger"
)

// Server hands out random palettes, one request per connection.
// Connections are served concurrently; nothing is shared between them
// except the accept limiter.
// ⭐ SSOT: 팔레트 TCP 서버는 여기서만
type Server struct {
	cfg     config.PaletteConfig
	logger  *logger.Logger
	limiter *rate.Limiter

	newGenerator func() *Generator
	slots        chan struct{} // nil = unbounded

	wg sync.WaitGroup
}

// NewServer creates a palette server
func NewServer(cfg config.PaletteConfig, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}

	limit := rate.Inf
	if cfg.AcceptRate > 0 {
		limit = rate.Limit(cfg.AcceptRate)
	}
	burst := cfg.AcceptBurst
	if burst <= 0 {
		burst = 1
	}

	var slots chan struct{}
	if cfg.MaxConns > 0 {
		slots = make(chan struct{}, cfg.MaxConns)
	}

	return &Server{
		cfg:          cfg,
		logger:       log,
		limiter:      rate.NewLimiter(limit, burst),
		newGenerator: NewGenerator,
		slots:        slots,
	}
}

// ListenAndServe binds cfg.Addr() and serves until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then closes ln and
// waits for in-flight connections. A failing connection never stops the loop.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.WithField("addr", ln.Addr().String()).Info("Palette server listening")

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer s.wg.Wait()

	var backoff time.Duration
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil // ctx cancelled
		}

		// 동시 연결 상한: 슬롯이 빌 때까지 accept 보류
		if s.slots != nil {
			select {
			case s.slots <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			s.release()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.logger.Info("Palette server stopped")
				return nil
			}

			// EMFILE, ECONNABORTED, timeouts: back off and keep serving
			backoff = nextBackoff(backoff)
			s.logger.WithError(err).Warnf("Accept failed, retrying in %s", backoff)
			select {
			case <-time.After(backoff):
				continue
			case <-ctx.Done():
				return nil
			}
		}
		backoff = 0

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.release()
			s.handle(conn)
		}()
	}
}

func (s *Server) release() {
	if s.slots != nil {
		<-s.slots
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}

// handle runs ACCEPTED → AWAITING_COUNT → GENERATING → REPLIED → CLOSED
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	log := s.logger.WithFields(map[string]interface{}{
		"conn_id": uuid.NewString(),
		"remote":  conn.RemoteAddr().String(),
	})
	log.Debug("Connection accepted")

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Connection handler panicked")
		}
	}()

	if s.cfg.IdleTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.cfg.IdleTimeout))
	}

	raw, err := readRequest(conn)
	if err != nil {
		log.WithError(err).Warn("Failed to read count request")
		return
	}

	count, err := ParseCountRequest(raw, s.cfg.MaxCount)
	if err != nil {
		// 잘못된 요청: 이 연결만 응답 없이 종료
		log.WithError(err).Warn("Rejected count request")
		return
	}

	colors := s.newGenerator().Palette(count)

	data, err := EncodeReply(colors)
	if err != nil {
		log.WithError(err).Error("Failed to encode palette")
		return
	}

	if _, err := conn.Write(data); err != nil {
		log.WithError(err).Warn("Failed to write palette")
		return
	}

	log.WithField("count", count).Debug("Palette sent")
}

// readRequest returns the first chunk the client sends, cut after '\n'.
// A bare digit string is complete as read; no terminator or half-close is
// needed. EOF before any byte yields an empty request.
func readRequest(conn net.Conn) ([]byte, error) {
	buf := make([]byte, maxRequestBytes+1)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			line := buf[:n]
			if i := bytes.IndexByte(line, '\n'); i >= 0 {
				return line[:i+1], nil
			}
			if n > maxRequestBytes {
				return nil, fmt.Errorf("%w: request longer than %d bytes", contracts.ErrInvalidCountRequest, maxRequestBytes)
			}
			return line, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, err
		}
	}
}
