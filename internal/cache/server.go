package cache

import (
	"encoding/json"
	"errors"
	"net"
	"sync"

	"github.com/shopdesk/datacache/internal/logger"
)

// Server serves KV caches over a listener, one Tiered cache per namespace.
// Namespaces are materialized on first use via the open callback.
type Server struct {
	open func(namespace string) KV

	mu     sync.Mutex
	caches map[string]KV
}

// NewServer returns a Server that builds namespace caches with open.
func NewServer(open func(namespace string) KV) *Server {
	return &Server{open: open, caches: make(map[string]KV)}
}

// Serve accepts connections until the listener is closed.
func (s *Server) Serve(l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Warn("accept failed", "err", err)
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *Server) cache(namespace string) KV {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.caches[namespace]; ok {
		return c
	}
	c := s.open(namespace)
	s.caches[namespace] = c
	return c
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		if req.Namespace == "" {
			_ = enc.Encode(Response{OK: false, Error: "missing namespace"})
			continue
		}
		kv := s.cache(req.Namespace)
		switch req.Op {
		case "get":
			v, found := kv.Get(req.Key)
			_ = enc.Encode(Response{OK: true, Found: found, Value: v})
		case "set":
			kv.Set(req.Key, req.Value)
			_ = enc.Encode(Response{OK: true})
		case "has":
			_ = enc.Encode(Response{OK: true, Found: kv.Has(req.Key)})
		case "delete":
			kv.Delete(req.Key)
			_ = enc.Encode(Response{OK: true})
		case "clear":
			kv.Clear()
			_ = enc.Encode(Response{OK: true})
		case "len":
			_ = enc.Encode(Response{OK: true, Len: kv.Len()})
		default:
			_ = enc.Encode(Response{OK: false, Error: "unknown op"})
		}
	}
}
