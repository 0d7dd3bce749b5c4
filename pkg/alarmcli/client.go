// Package alarmcli is a typed client for the warpalarm daemon's JSON-RPC
// surface.
package alarmcli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/warpdl/warpalarm/common"
)

// ErrNoSecret is returned when a client is created without a token. The
// daemon rejects every unauthenticated request.
var ErrNoSecret = errors.New("alarmcli: no RPC secret configured")

// Client calls the daemon over HTTP or over a websocket.
type Client struct {
	rpc    *jrpc2.Client
	cancel context.CancelFunc
}

// bearerClient adds the Authorization header to every request.
type bearerClient struct {
	hc    *http.Client
	token string
}

func (b bearerClient) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.hc.Do(req)
}

// baseURL turns a listen address into a URL with the given scheme. An
// address that already carries a scheme is kept as is, except that ws and
// http are swapped to match.
func baseURL(addr, scheme string) string {
	if rest, ok := strings.CutPrefix(addr, "http://"); ok {
		addr = rest
	} else if rest, ok := strings.CutPrefix(addr, "https://"); ok {
		addr = rest
		scheme += "s"
	}
	return scheme + "://" + strings.TrimSuffix(addr, "/")
}

// NewClient returns a client that POSTs each call to the daemon at addr.
// hc may be nil to use http.DefaultClient.
func NewClient(addr, secret string, hc *http.Client) (*Client, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	ch := jhttp.NewChannel(baseURL(addr, "http")+common.RPCPath, &jhttp.ChannelOptions{
		Client: bearerClient{hc: hc, token: secret},
	})
	return &Client{rpc: jrpc2.NewClient(ch, nil)}, nil
}

// FiredFunc receives alarm.fired notifications.
type FiredFunc func(*common.AlarmFiredNotification)

// DialWebSocket connects to the daemon's websocket endpoint. Calls go over
// the socket and onFired, if not nil, runs for every alarm.fired push until
// the client is closed or ctx ends.
func DialWebSocket(ctx context.Context, addr, secret string, onFired FiredFunc) (*Client, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	url := baseURL(addr, "ws") + common.RPCWebSocketPath
	conn, _, err := cws.Dial(ctx, url, &cws.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + secret}},
	})
	if err != nil {
		return nil, fmt.Errorf("alarmcli: dial %s: %w", url, err)
	}
	connCtx, cancel := context.WithCancel(ctx)
	opts := &jrpc2.ClientOptions{
		OnNotify: func(req *jrpc2.Request) {
			if onFired == nil || req.Method() != common.AlarmFiredMethod {
				return
			}
			var n common.AlarmFiredNotification
			if err := req.UnmarshalParams(&n); err != nil {
				return
			}
			onFired(&n)
		},
	}
	rpc := jrpc2.NewClient(&wsChannel{conn: conn, ctx: connCtx}, opts)
	return &Client{rpc: rpc, cancel: cancel}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	err := c.rpc.Close()
	if c.cancel != nil {
		c.cancel()
	}
	return err
}

// wsChannel carries JSON-RPC messages over a websocket connection.
type wsChannel struct {
	conn *cws.Conn
	ctx  context.Context
}

func (c *wsChannel) Send(data []byte) error {
	return c.conn.Write(c.ctx, cws.MessageText, data)
}

func (c *wsChannel) Recv() ([]byte, error) {
	_, data, err := c.conn.Read(c.ctx)
	return data, err
}

func (c *wsChannel) Close() error {
	return c.conn.Close(cws.StatusNormalClosure, "")
}
