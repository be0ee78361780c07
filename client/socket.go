package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brettbedarf/resultfs"
	"github.com/brettbedarf/resultfs/internal/util"
	"github.com/brettbedarf/resultfs/requests"
)

// ErrNotConnected is returned when a request is submitted while the result
// channel is down
var ErrNotConnected = errors.New("result channel not connected")

// ResultHandler receives every result decoded from the channel
type ResultHandler func(res *resultfs.Result)

// SocketClient keeps a websocket connection to the front end open. It sends
// query and table requests and hands the results it receives to a handler.
type SocketClient struct {
	url      string
	dialer   *websocket.Dialer
	handler  ResultHandler
	interval time.Duration

	mu   sync.Mutex // Guards conn and serializes writes
	conn *websocket.Conn
}

// NewSocketClient creates a client for url. Dropped connections are retried
// every interval.
func NewSocketClient(url string, interval time.Duration, handler ResultHandler) *SocketClient {
	return &SocketClient{
		url:      url,
		dialer:   websocket.DefaultDialer,
		handler:  handler,
		interval: interval,
	}
}

// Connected reports whether a connection is currently open
func (c *SocketClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Run connects and reads results until ctx is done, reconnecting on a fixed
// interval whenever the connection cannot be opened or drops.
func (c *SocketClient) Run(ctx context.Context) error {
	logger := util.GetLogger("SocketClient.Run")

	for {
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn().Err(err).Str("url", c.url).Dur("retry", c.interval).Msg("Could not connect to result channel")
		} else {
			logger.Info().Str("url", c.url).Msg("Result channel connected")
			c.serve(ctx, conn)
			if ctx.Err() != nil {
				return nil
			}
			logger.Info().Dur("retry", c.interval).Msg("Closed socket")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.interval):
		}
	}
}

// serve owns conn until it fails or ctx is done
func (c *SocketClient) serve(ctx context.Context, conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c.readLoop(conn)

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	_ = conn.Close()
}

func (c *SocketClient) readLoop(conn *websocket.Conn) {
	logger := util.GetLogger("SocketClient.readLoop")

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug().Err(err).Msg("Read failed")
			}
			return
		}
		if msgType != websocket.TextMessage {
			logger.Trace().Int("type", msgType).Msg("Ignoring non text message")
			continue
		}

		res, err := requests.UnmarshalResult(data)
		if err != nil {
			logger.Error().Err(err).Msg("Could not decode result")
			continue
		}
		if res.Error != "" {
			logger.Error().Str("error", res.Error).Msg("The submitted query failed")
		}
		if c.handler != nil {
			c.handler(res)
		}
	}
}

func (c *SocketClient) send(ctx context.Context, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
		defer c.conn.SetWriteDeadline(time.Time{}) // nolint:errcheck
	}
	if err := c.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	return nil
}

// SubmitQuery asks the front end to execute query
func (c *SocketClient) SubmitQuery(ctx context.Context, query string) error {
	return c.send(ctx, requests.NewQueryRequest(query))
}

// SubmitTable asks the front end for the content of tableID
func (c *SocketClient) SubmitTable(ctx context.Context, tableID string) error {
	return c.send(ctx, requests.NewTableRequest(tableID))
}

var _ resultfs.QuerySubmitter = (*SocketClient)(nil)
