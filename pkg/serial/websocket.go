package serial

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/nodeterm/pkg/framework"
)

// Link is a connected serial link.
type Link interface {
	io.ReadWriteCloser
	Name() string
}

type wsLink struct {
	*websocket.Conn
	done     chan struct{}
	doneOnce sync.Once
}

func (l *wsLink) Name() string {
	return "ws:" + l.Request().RemoteAddr
}

func (l *wsLink) Close() error {
	l.doneOnce.Do(func() { close(l.done) })
	return l.Conn.Close()
}

// WebsocketListener accepts remote terminals over websocket, one session at
// a time. Binary and text frames are both consumed as a byte stream.
type WebsocketListener struct {
	Addr string
	Path string

	linkCh chan *wsLink
	ln     net.Listener
	lock   sync.Mutex
}

// NewWebsocketListener creates a listener on addr serving path.
func NewWebsocketListener(addr, path string) *WebsocketListener {
	if path == "" {
		path = "/"
	}
	return &WebsocketListener{Addr: addr, Path: path, linkCh: make(chan *wsLink)}
}

// ListenAddr returns the bound address once Run started listening.
func (l *WebsocketListener) ListenAddr() net.Addr {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Listen binds the address. Run calls it when not yet bound.
func (l *WebsocketListener) Listen() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", l.Addr)
	if err != nil {
		return err
	}
	l.ln = ln
	return nil
}

// Run implements Runnable.
func (l *WebsocketListener) Run(ctx context.Context) error {
	if err := l.Listen(); err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle(l.Path, websocket.Handler(l.serve))
	server := &http.Server{Handler: mux}
	glog.Infof("serial: websocket link on %s%s", l.ListenAddr(), l.Path)
	err := framework.RunWithContextCloser(ctx, server, func() error {
		return server.Serve(l.ln)
	})
	if err == http.ErrServerClosed {
		err = nil
	}
	return err
}

func (l *WebsocketListener) serve(conn *websocket.Conn) {
	conn.PayloadType = websocket.BinaryFrame
	link := &wsLink{Conn: conn, done: make(chan struct{})}
	select {
	case l.linkCh <- link:
	default:
		glog.Warningf("serial: %s rejected, session busy", link.Name())
		conn.Write([]byte("busy\r\n"))
		return
	}
	glog.Infof("serial: %s connected", link.Name())
	<-link.done
	glog.Infof("serial: %s disconnected", link.Name())
}

// Accept waits for the next remote terminal. A terminal connecting while
// no Accept is pending is rejected as busy.
func (l *WebsocketListener) Accept(ctx context.Context) (Link, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case link := <-l.linkCh:
		return link, nil
	}
}
