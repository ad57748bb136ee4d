package socket

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/corey/eiji/internal/domain/query"
	"github.com/corey/eiji/internal/logging"
	"github.com/corey/eiji/internal/ports"
)

// Backend is what the daemon serves. Implementations must be safe for
// concurrent use.
type Backend interface {
	Search(ctx context.Context, q string) ([]query.GroupResult, error)
	Rebuild(ctx context.Context, name string) (*ports.Manifest, error)
	Status() []DictionaryStatus
}

// Server is the daemon that listens on a Unix socket and serves search
// and rebuild requests.
type Server struct {
	backend  Backend
	dataDir  string
	logger   *slog.Logger
	listener net.Listener
	sockPath string
	started  time.Time

	ctx    context.Context
	cancel context.CancelFunc

	done         chan struct{}
	shutdownCh   chan struct{} // closed when a remote shutdown request is received
	shutdownOnce sync.Once
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewServer creates a daemon server over backend.
func NewServer(backend Backend, dataDir, sockPath string, logger *slog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		backend:    backend,
		dataDir:    dataDir,
		logger:     logging.Default(logger).With("component", "socket"),
		sockPath:   sockPath,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
}

// Start begins listening on the Unix socket. It handles stale sockets by
// attempting a connection first. If the connection fails, the stale socket
// is removed before binding.
func (s *Server) Start() error {
	if _, err := os.Stat(s.sockPath); err == nil {
		conn, err := net.DialTimeout("unix", s.sockPath, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return fmt.Errorf("daemon already running at %s", s.sockPath)
		}
		os.Remove(s.sockPath)
	}

	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.started = time.Now()

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("daemon listening", "socket", s.sockPath)
	return nil
}

// Stop closes the listener, cancels in-flight requests, waits for open
// connections and removes the socket file. Idempotent.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		s.cancel()
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.sockPath)
	})
	return nil
}

// ShutdownCh returns a channel that is closed when a remote shutdown request
// is received. The daemon's main goroutine should select on this alongside
// OS signals so the process actually exits after a remote stop.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// Addr returns the socket path the server is listening on.
func (s *Server) Addr() string {
	return s.sockPath
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024) // 1MB max request

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(conn, Response{Error: "invalid request JSON"})
			continue
		}

		resp := s.handleRequest(req)
		s.writeResponse(conn, resp)

		if req.Method == MethodShutdown {
			s.shutdownOnce.Do(func() { close(s.shutdownCh) })
			return
		}
	}
}

func (s *Server) handleRequest(req Request) Response {
	switch req.Method {
	case MethodSearch:
		return s.handleSearch(req)
	case MethodHealth:
		return s.handleHealth(req)
	case MethodRebuild:
		return s.handleRebuild(req)
	case MethodShutdown:
		return Response{ID: req.ID, Result: struct{}{}}
	default:
		return Response{ID: req.ID, Error: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

// decodeParams re-marshals the untyped params into out.
func decodeParams(req Request, out any) error {
	paramsJSON, err := json.Marshal(req.Params)
	if err != nil {
		return err
	}
	return json.Unmarshal(paramsJSON, out)
}

func (s *Server) handleSearch(req Request) Response {
	var params SearchParams
	if err := decodeParams(req, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid search params"}
	}

	start := time.Now()
	results, err := s.backend.Search(s.ctx, params.Query)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error(), Code: errorCode(err)}
	}
	return Response{
		ID: req.ID,
		Result: SearchResult{
			Groups:  Summarize(results),
			Elapsed: time.Since(start).String(),
		},
	}
}

func (s *Server) handleRebuild(req Request) Response {
	var params RebuildParams
	if err := decodeParams(req, &params); err != nil || params.Name == "" {
		return Response{ID: req.ID, Error: "invalid rebuild params"}
	}
	m, err := s.backend.Rebuild(s.ctx, params.Name)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error(), Code: errorCode(err)}
	}
	return Response{ID: req.ID, Result: RebuildResult{Manifest: *m}}
}

func (s *Server) handleHealth(req Request) Response {
	return Response{
		ID: req.ID,
		Result: HealthResult{
			Status:       "ok",
			Uptime:       time.Since(s.started).Truncate(time.Second).String(),
			DataDir:      s.dataDir,
			Dictionaries: s.backend.Status(),
		},
	}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn("marshal response", "error", err)
		return
	}
	data = append(data, '\n')
	conn.Write(data)
}
