package ipc

import (
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

const dialTimeout = 2 * time.Second

// Client is a JSON-RPC client for the daemon's control socket.
type Client struct {
	conn *rpc.Client
}

// Dial connects to the daemon socket at the given path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon socket %s: %w", path, err)
	}
	return &Client{conn: rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Status reports daemon state, source availability, and counters.
func (c *Client) Status() (*StatusResponse, error) {
	resp := &StatusResponse{}
	if err := c.conn.Call("Newswatch.Status", StatusRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Collect triggers a manual collection pass and returns the run record.
func (c *Client) Collect() (*CollectResponse, error) {
	resp := &CollectResponse{}
	if err := c.conn.Call("Newswatch.Collect", CollectRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// SourceRecheck forces a fresh availability probe.
func (c *Client) SourceRecheck() (*SourceRecheckResponse, error) {
	resp := &SourceRecheckResponse{}
	if err := c.conn.Call("Newswatch.SourceRecheck", SourceRecheckRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Runs lists recent collection runs, newest first.
func (c *Client) Runs(limit int) (*RunsResponse, error) {
	resp := &RunsResponse{}
	if err := c.conn.Call("Newswatch.Runs", RunsRequest{Limit: limit}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// RunStats aggregates run counters over the given window.
func (c *Client) RunStats(sinceHours int) (*RunStatsResponse, error) {
	resp := &RunStatsResponse{}
	if err := c.conn.Call("Newswatch.RunStats", RunStatsRequest{SinceHours: sinceHours}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Articles lists the most recently published stored articles.
func (c *Client) Articles(limit int) (*ArticlesResponse, error) {
	resp := &ArticlesResponse{}
	if err := c.conn.Call("Newswatch.Articles", ArticlesRequest{Limit: limit}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// TestNotification asks the daemon to send a test push notification.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	resp := &TestNotificationResponse{}
	if err := c.conn.Call("Newswatch.TestNotification", TestNotificationRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
