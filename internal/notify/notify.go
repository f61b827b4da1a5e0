// Package notify forwards builder events to a Socket.IO server, where
// dashboards or live-reload clients can pick them up.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/events"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
	"go.uber.org/multierr"

	"github.com/specialistvlad/treeforge/internal/builder"
	"github.com/specialistvlad/treeforge/internal/builderror"
	"github.com/specialistvlad/treeforge/internal/ctxlog"
	"github.com/specialistvlad/treeforge/internal/nodewrapper"
)

// DefaultConnectTimeout bounds Dial when Options.ConnectTimeout is zero.
const DefaultConnectTimeout = 10 * time.Second

// Options configures the connection to the Socket.IO server.
type Options struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Emitter is the part of a builder the forwarder listens to.
type Emitter interface {
	On(evt events.EventName, listeners ...events.Listener) error
}

// conn is the part of a Socket.IO client the forwarder needs.
type conn interface {
	Emit(ev string, args ...any) error
	Close() error
}

// BuildPayload is sent for beginBuild and endBuild.
type BuildPayload struct {
	ID         string  `json:"id"`
	Started    string  `json:"started"`
	DurationMs float64 `json:"durationMs,omitempty"`
	Error      string  `json:"error,omitempty"`
	Canceled   bool    `json:"canceled,omitempty"`
}

// NodePayload is sent for endNode.
type NodePayload struct {
	NodeID     int                     `json:"nodeId"`
	Label      string                  `json:"label"`
	BuildState *nodewrapper.BuildState `json:"buildState,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

// Forwarder relays builder events over a Socket.IO connection. Emission
// never blocks a build: the client buffers while it reconnects.
type Forwarder struct {
	ctx  context.Context
	conn conn
}

// Dial connects to the server described by opts and waits for the
// namespace to be joined.
func Dial(ctx context.Context, opts Options) (*Forwarder, error) {
	logger := ctxlog.FromContext(ctx).With("url", opts.URL, "namespace", opts.Namespace)

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notify URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("notify URL %q must be absolute", opts.URL)
	}

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	sockOpts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		sockOpts.SetPath(parsedURL.Path)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sockOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, sockOpts)
	io := manager.Socket(opts.Namespace, sockOpts)

	connected := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		select {
		case connected <- nil:
		default:
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connected <- err:
		default:
		}
	})

	io.Connect()

	select {
	case <-dialCtx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("timed out connecting to %s: %w", opts.URL, dialCtx.Err())
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("failed to connect to %s: %w", opts.URL, err)
		}
	}

	logger.Info("Connected to notification server.", "sid", io.Id())
	return newForwarder(ctx, &socketConn{io: io}), nil
}

func newForwarder(ctx context.Context, c conn) *Forwarder {
	return &Forwarder{ctx: ctx, conn: c}
}

// Observe subscribes the forwarder to the events of a builder.
func (f *Forwarder) Observe(e Emitter) error {
	return multierr.Combine(
		e.On(builder.EventBeginBuild, f.onBuild(string(builder.EventBeginBuild))),
		e.On(builder.EventEndBuild, f.onBuild(string(builder.EventEndBuild))),
		e.On(builder.EventEndNode, f.onEndNode),
	)
}

// Close disconnects from the server.
func (f *Forwarder) Close() error {
	return f.conn.Close()
}

func (f *Forwarder) onBuild(name string) events.Listener {
	return func(args ...any) {
		if len(args) == 0 {
			return
		}
		ev, ok := args[0].(*builder.BuildEvent)
		if !ok {
			return
		}
		p := BuildPayload{ID: ev.ID, Started: ev.Started.UTC().Format(time.RFC3339Nano)}
		if name == string(builder.EventEndBuild) {
			p.DurationMs = float64(ev.Duration.Microseconds()) / 1000
			if ev.Err != nil {
				p.Error = ev.Err.Error()
				p.Canceled = builderror.IsSilent(ev.Err)
			}
		}
		f.emit(name, p)
	}
}

func (f *Forwarder) onEndNode(args ...any) {
	if len(args) == 0 {
		return
	}
	w, ok := args[0].(*nodewrapper.Wrapper)
	if !ok {
		return
	}
	p := NodePayload{NodeID: w.ID, Label: w.Label(), BuildState: w.BuildState()}
	if len(args) > 1 {
		if err, ok := args[1].(error); ok && err != nil {
			p.Error = err.Error()
		}
	}
	f.emit(string(builder.EventEndNode), p)
}

func (f *Forwarder) emit(name string, payload any) {
	if err := f.conn.Emit(name, payload); err != nil {
		ctxlog.FromContext(f.ctx).Warn("Failed to forward event.", "event", name, "error", err)
	}
}

// socketConn adapts *socket.Socket to conn.
type socketConn struct {
	io *socket.Socket
}

func (s *socketConn) Emit(ev string, args ...any) error {
	return s.io.Emit(ev, args...)
}

func (s *socketConn) Close() error {
	s.io.Disconnect()
	return nil
}
