package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"
)

// Client talks the cache daemon protocol over a Unix socket, scoped to one
// namespace. Unlike the in-process Tiered cache its operations can fail on
// transport errors, so every method returns an error.
type Client struct {
	socketPath string
	namespace  string
}

// ErrDaemon marks a request the daemon rejected.
var ErrDaemon = errors.New("cache: daemon error")

// NewClient returns a client for the daemon at socketPath, addressing the
// given cache namespace.
func NewClient(socketPath, namespace string) *Client {
	return &Client{socketPath: socketPath, namespace: namespace}
}

func (c *Client) roundTrip(req Request) (Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, 500*time.Millisecond)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()
	req.Namespace = c.namespace
	if err := json.NewEncoder(conn).Encode(&req); err != nil {
		return Response{}, err
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, err
	}
	if !resp.OK {
		return Response{}, fmt.Errorf("%w: %s", ErrDaemon, resp.Error)
	}
	return resp, nil
}

// Get returns the cached value for key, or found=false on a miss.
func (c *Client) Get(key string) (json.RawMessage, bool, error) {
	resp, err := c.roundTrip(Request{Op: "get", Key: key})
	if err != nil {
		return nil, false, err
	}
	if !resp.Found {
		return nil, false, nil
	}
	return append(json.RawMessage(nil), resp.Value...), true, nil
}

// Set stores value under key.
func (c *Client) Set(key string, value json.RawMessage) error {
	_, err := c.roundTrip(Request{Op: "set", Key: key, Value: value})
	return err
}

// Has reports whether key is present and live.
func (c *Client) Has(key string) (bool, error) {
	resp, err := c.roundTrip(Request{Op: "has", Key: key})
	if err != nil {
		return false, err
	}
	return resp.Found, nil
}

// Delete removes key.
func (c *Client) Delete(key string) error {
	_, err := c.roundTrip(Request{Op: "delete", Key: key})
	return err
}

// Clear empties the namespace.
func (c *Client) Clear() error {
	_, err := c.roundTrip(Request{Op: "clear", Key: ""})
	return err
}

// Len returns the memory-tier entry count for the namespace.
func (c *Client) Len() (int, error) {
	resp, err := c.roundTrip(Request{Op: "len"})
	if err != nil {
		return 0, err
	}
	return resp.Len, nil
}
