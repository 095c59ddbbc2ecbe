// Package grpcserver exposes the retrieval engine's Search, MultiQuerySearch,
// SessionSearch, and HealthCheck operations over gRPC, for deployments that
// run the engine as a standalone process rather than embedding it as a Go
// package.
package grpcserver

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"

	"github.com/convomem/retrieval-engine/internal/multiquery"
	"github.com/convomem/retrieval-engine/internal/pkg/logger"
	"github.com/convomem/retrieval-engine/internal/qdrant"
	"github.com/convomem/retrieval-engine/internal/retrievalpb"
	"github.com/convomem/retrieval-engine/internal/search"
	"github.com/convomem/retrieval-engine/internal/session"
)

// Config holds the gRPC server configuration.
type Config struct {
	// TCPAddr is the TCP address to listen on (e.g., ":50051").
	TCPAddr string

	// UnixSocketPath is the Unix socket path for local connections. Empty
	// disables Unix socket listening.
	UnixSocketPath string

	// Version is reported by HealthCheck.
	Version string

	MaxRecvMsgSize int
	MaxSendMsgSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TCPAddr:        ":50051",
		Version:        "dev",
		MaxRecvMsgSize: 16 * 1024 * 1024,
		MaxSendMsgSize: 16 * 1024 * 1024,
	}
}

// Server is the gRPC server implementing RetrievalService.
type Server struct {
	retrievalpb.UnimplementedRetrievalServiceServer

	cfg        Config
	log        *logger.Logger
	grpcServer *grpc.Server

	qdrant     *qdrant.Client
	search     *search.Service
	multiQuery *multiquery.Service
	session    *session.Service

	tcpListener  net.Listener
	unixListener net.Listener
}

// New creates a new gRPC server delegating to the given component graph.
func New(cfg Config, log *logger.Logger, qc *qdrant.Client, searchSvc *search.Service, multiQuerySvc *multiquery.Service, sessionSvc *session.Service) *Server {
	if cfg.TCPAddr == "" {
		cfg = DefaultConfig()
	}

	return &Server{
		cfg:        cfg,
		log:        log,
		qdrant:     qc,
		search:     searchSvc,
		multiQuery: multiQuerySvc,
		session:    sessionSvc,
	}
}

// Start starts the gRPC server on both TCP and Unix socket (if configured).
func (s *Server) Start() error {
	opts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(s.cfg.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(s.cfg.MaxSendMsgSize),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     5 * time.Minute,
			MaxConnectionAge:      30 * time.Minute,
			MaxConnectionAgeGrace: 5 * time.Second,
			Time:                  10 * time.Second,
			Timeout:               3 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	}

	s.grpcServer = grpc.NewServer(opts...)
	retrievalpb.RegisterRetrievalServiceServer(s.grpcServer, s)

	tcpLis, err := net.Listen("tcp", s.cfg.TCPAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on TCP %s: %w", s.cfg.TCPAddr, err)
	}
	s.tcpListener = tcpLis
	s.log.Info("gRPC server listening on TCP", "addr", s.cfg.TCPAddr)

	go func() {
		if err := s.grpcServer.Serve(tcpLis); err != nil {
			s.log.Error("TCP server error", "error", err)
		}
	}()

	if s.cfg.UnixSocketPath != "" && runtime.GOOS != "windows" {
		_ = os.Remove(s.cfg.UnixSocketPath)

		unixLis, err := net.Listen("unix", s.cfg.UnixSocketPath)
		if err != nil {
			s.log.Warn("failed to listen on Unix socket", "path", s.cfg.UnixSocketPath, "error", err)
		} else {
			s.unixListener = unixLis
			_ = os.Chmod(s.cfg.UnixSocketPath, 0666)
			s.log.Info("gRPC server listening on Unix socket", "path", s.cfg.UnixSocketPath)

			go func() {
				if err := s.grpcServer.Serve(unixLis); err != nil {
					s.log.Error("Unix socket server error", "error", err)
				}
			}()
		}
	}

	return nil
}

// Stop gracefully stops the gRPC server.
func (s *Server) Stop() {
	if s.grpcServer != nil {
		s.log.Info("stopping gRPC server")
		s.grpcServer.GracefulStop()
	}

	if s.cfg.UnixSocketPath != "" {
		_ = os.Remove(s.cfg.UnixSocketPath)
	}
}

// Search performs a hybrid search with optional reranking.
func (s *Server) Search(ctx context.Context, req *retrievalpb.SearchRequest) (*retrievalpb.SearchResponse, error) {
	if req.Query == "" {
		return nil, status.Error(codes.InvalidArgument, "query is required")
	}
	if req.TenantId == "" {
		return nil, status.Error(codes.InvalidArgument, "tenant_id is required")
	}

	resp, err := s.search.Search(ctx, searchRequestFromProto(req))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "search failed: %v", err)
	}
	return searchResponseToProto(resp), nil
}

// MultiQuerySearch performs the LLM-expanded, RRF-fused search variant.
func (s *Server) MultiQuerySearch(ctx context.Context, req *retrievalpb.SearchRequest) (*retrievalpb.SearchResponse, error) {
	if req.Query == "" {
		return nil, status.Error(codes.InvalidArgument, "query is required")
	}
	if req.TenantId == "" {
		return nil, status.Error(codes.InvalidArgument, "tenant_id is required")
	}

	resp, err := s.multiQuery.Search(ctx, searchRequestFromProto(req))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "multi-query search failed: %v", err)
	}
	return searchResponseToProto(resp), nil
}

// SessionSearch performs the two-stage, session-aware retrieval.
func (s *Server) SessionSearch(ctx context.Context, req *retrievalpb.SessionSearchRequest) (*retrievalpb.SessionSearchResponse, error) {
	if req.Query == "" {
		return nil, status.Error(codes.InvalidArgument, "query is required")
	}
	if req.TenantId == "" {
		return nil, status.Error(codes.InvalidArgument, "tenant_id is required")
	}

	results := s.session.Retrieve(ctx, req.Query, req.TenantId)
	out := make([]*retrievalpb.SessionSearchResult, len(results))
	for i, r := range results {
		out[i] = sessionResultToProto(r)
	}
	return &retrievalpb.SessionSearchResponse{Results: out}, nil
}

// HealthCheck reports whether the vector store backing every retriever is
// reachable.
func (s *Server) HealthCheck(ctx context.Context, _ *retrievalpb.HealthCheckRequest) (*retrievalpb.HealthCheckResponse, error) {
	if err := s.qdrant.HealthCheck(ctx); err != nil {
		return &retrievalpb.HealthCheckResponse{Healthy: false, Message: err.Error()}, nil
	}
	return &retrievalpb.HealthCheckResponse{Healthy: true, Message: "ok"}, nil
}
