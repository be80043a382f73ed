package cache

import "encoding/json"

// Simple JSON protocol for the cache daemon over a Unix domain socket.
// Requests and responses stream over one json.Encoder/Decoder pair per
// connection. Each request names the cache namespace it targets.

type Request struct {
	Op        string          `json:"op"` // "get" | "set" | "has" | "delete" | "clear" | "len"
	Namespace string          `json:"namespace"`
	Key       string          `json:"key,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
}

type Response struct {
	OK    bool            `json:"ok"`
	Found bool            `json:"found,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
	Len   int             `json:"len,omitempty"`
	Error string          `json:"error,omitempty"`
}
