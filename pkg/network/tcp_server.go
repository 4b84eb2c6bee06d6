package network

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"dbc/pkg/core"
	"dbc/pkg/protocol"
)

// TCPServer speaks the binary frame protocol against a persistent map.
type TCPServer struct {
	store *core.SyncMap[string, string]
	log   *slog.Logger

	mu       sync.Mutex
	listener net.Listener
}

func NewTCPServer(store *core.SyncMap[string, string], log *slog.Logger) *TCPServer {
	if log == nil {
		log = slog.Default()
	}
	return &TCPServer{store: store, log: log.With("component", "tcp")}
}

func (s *TCPServer) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Serve accepts connections on l until Close is called.
func (s *TCPServer) Serve(l net.Listener) error {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
	s.log.Info("listening", "addr", l.Addr().String(), "table", s.store.Table())

	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Warn("accept failed", "err", err)
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *TCPServer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *TCPServer) handleConn(conn net.Conn) {
	defer conn.Close()

	for {
		req, err := protocol.Decode(conn)
		if err != nil {
			if err != io.EOF {
				s.log.Debug("decode failed", "remote", conn.RemoteAddr().String(), "err", err)
			}
			return
		}
		if err := s.dispatch(conn, req); err != nil {
			s.log.Debug("write failed", "remote", conn.RemoteAddr().String(), "err", err)
			return
		}
	}
}

func (s *TCPServer) dispatch(w io.Writer, req *protocol.Packet) error {
	fail := func(err error) error {
		return protocol.Encode(w, protocol.RespErr, nil, []byte(err.Error()))
	}

	switch req.Op {
	case protocol.OpPut:
		if _, _, err := s.store.Put(string(req.Key), string(req.Value)); err != nil {
			return fail(err)
		}
		return protocol.Encode(w, protocol.RespOK, nil, nil)

	case protocol.OpGet:
		val, found, err := s.store.Get(string(req.Key))
		if err != nil {
			return fail(err)
		}
		if !found {
			return protocol.Encode(w, protocol.RespNotFound, nil, nil)
		}
		return protocol.Encode(w, protocol.RespVal, nil, []byte(val))

	case protocol.OpDel:
		if _, _, err := s.store.Remove(string(req.Key)); err != nil {
			return fail(err)
		}
		return protocol.Encode(w, protocol.RespOK, nil, nil)

	case protocol.OpSize:
		n, err := s.store.Size()
		if err != nil {
			return fail(err)
		}
		return protocol.Encode(w, protocol.RespVal, nil, protocol.EncodeCount(n))

	case protocol.OpKeys:
		keys, err := s.store.Keys()
		if err != nil {
			return fail(err)
		}
		return protocol.Encode(w, protocol.RespVal, nil, protocol.EncodeStrings(keys))

	case protocol.OpClear:
		if err := s.store.Clear(); err != nil {
			return fail(err)
		}
		return protocol.Encode(w, protocol.RespOK, nil, nil)

	default:
		return protocol.Encode(w, protocol.RespErr, nil, []byte("unknown op"))
	}
}
