package sink

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/bootsweep/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// SocketIOConfig configures a SocketIO sink.
type SocketIOConfig struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// SocketIO forwards every record to a Socket.IO collection server. The event
// name is the record kind and the argument is the decoded JSON object.
type SocketIO struct {
	io *socket.Socket
}

// NewSocketIO connects to the collection server and waits for the
// connection to be acknowledged.
func NewSocketIO(ctx context.Context, cfg SocketIOConfig) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx).With("sink", "socketio", "url", cfg.URL)

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("socket.io URL %q must include scheme and host", cfg.URL)
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "/"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 15 * time.Second
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	// Both events may fire; the buffer keeps the handlers from blocking.
	connectChan := make(chan error, 2)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to collection server", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})

	logger.Debug("Initiating connection...")
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &SocketIO{io: io}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(cfg.ConnectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", cfg.ConnectTimeout)
	}
}

func (s *SocketIO) Write(_ context.Context, rec Record) error {
	if !s.io.Connected() {
		return fmt.Errorf("socket.io client disconnected, dropping %s record %s", rec.Kind, rec.Key)
	}
	var data map[string]any
	if err := json.Unmarshal(rec.Payload, &data); err != nil {
		return fmt.Errorf("decoding %s record %s: %w", rec.Kind, rec.Key, err)
	}
	s.io.Emit(string(rec.Kind), data)
	return nil
}

func (s *SocketIO) Close() error {
	s.io.Disconnect()
	return nil
}
