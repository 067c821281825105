package palette

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/wonny/fibivi/internal/contracts"
	"github.com/wonny/fibivi/pkg/config"
)

// Client requests palettes from a palette server. Each call opens its own
// connection, so a Client is safe for concurrent use.
type Client struct {
	addr        string
	dialTimeout time.Duration
	readTimeout time.Duration
	bufferSize  int
	dialer      net.Dialer
}

// NewClient creates a client from palette config
func NewClient(cfg config.PaletteConfig) *Client {
	size := cfg.ReadBufferSize
	if size <= 0 {
		size = 64 * 1024
	}
	return &Client{
		addr:        cfg.Addr(),
		dialTimeout: cfg.DialTimeout,
		readTimeout: cfg.ReadTimeout,
		bufferSize:  size,
		dialer:      net.Dialer{Timeout: cfg.DialTimeout},
	}
}

// Addr returns the server address this client dials
func (c *Client) Addr() string {
	return c.addr
}

// RequestPalette asks the server for count colors
func (c *Client) RequestPalette(ctx context.Context, count int) (contracts.Palette, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: count %d is negative", contracts.ErrInvalidCountRequest, count)
	}

	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: dial %s: %v", contracts.ErrServiceTimeout, c.addr, err)
		}
		return nil, fmt.Errorf("%w: dial %s: %v", contracts.ErrServiceUnavailable, c.addr, err)
	}
	defer conn.Close()

	deadline := time.Time{}
	if c.readTimeout > 0 {
		deadline = time.Now().Add(c.readTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if !deadline.IsZero() {
		_ = conn.SetDeadline(deadline)
	}

	// ctx 취소 시 즉시 블로킹 해제
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if _, err := conn.Write(EncodeRequest(count)); err != nil {
		return nil, c.ioError("write", err)
	}
	if tc, ok := conn.(interface{ CloseWrite() error }); ok {
		_ = tc.CloseWrite()
	}

	data, err := io.ReadAll(io.LimitReader(conn, int64(c.bufferSize)))
	if err != nil {
		return nil, c.ioError("read", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: server closed without reply (count %d rejected?)", contracts.ErrMalformedPaletteReply, count)
	}

	return DecodeReply(data, count)
}

func (c *Client) ioError(op string, err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: %s %s: %v", contracts.ErrServiceTimeout, op, c.addr, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %s %s: %v", contracts.ErrServiceTimeout, op, c.addr, err)
	}
	return fmt.Errorf("%w: %s %s: %v", contracts.ErrServiceUnavailable, op, c.addr, err)
}
