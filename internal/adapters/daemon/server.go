package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"go.trai.ch/tend/internal/adapters/exposition"
	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Server answers health queries about a running daemon on two unix sockets
// under the vault's .tend directory: the gRPC health service on daemon.sock
// and the HTTP exposition surface on http.sock.
type Server struct {
	healthpb.UnimplementedHealthServer

	root       string
	source     ports.StatusSource
	httpRoutes http.Handler
	grpcServer *grpc.Server
}

// NewServer creates a server reporting on source. routes is served on the HTTP socket.
func NewServer(root string, source ports.StatusSource, routes http.Handler) *Server {
	s := &Server{
		root:       root,
		source:     source,
		httpRoutes: routes,
		grpcServer: grpc.NewServer(),
	}
	healthpb.RegisterHealthServer(s.grpcServer, s)
	return s
}

// Serve listens on both sockets and blocks until ctx is done or a listener fails.
// Both socket files are removed on return.
func (s *Server) Serve(ctx context.Context) error {
	grpcPath := domain.SocketPath(s.root)
	httpPath := domain.HTTPSocketPath(s.root)

	grpcLis, err := listenUnix(ctx, grpcPath)
	if err != nil {
		return err
	}
	httpLis, err := listenUnix(ctx, httpPath)
	if err != nil {
		_ = grpcLis.Close()
		_ = os.Remove(grpcPath)
		return err
	}
	defer func() {
		_ = os.Remove(grpcPath)
		_ = os.Remove(httpPath)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.grpcServer.Serve(grpcLis); err != nil {
			return zerr.With(zerr.Wrap(err, "health service failed"), "socket", grpcPath)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.grpcServer.GracefulStop()
		return nil
	})
	g.Go(func() error {
		return exposition.Serve(gctx, httpLis, s.httpRoutes)
	})
	return g.Wait()
}

func listenUnix(ctx context.Context, path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return nil, zerr.Wrap(err, "failed to create daemon directory")
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, zerr.With(zerr.Wrap(err, "failed to remove stale socket"), "socket", path)
	}

	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "unix", path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to listen on UDS"), "socket", path)
	}
	if err := os.Chmod(path, domain.SocketPerm); err != nil {
		_ = lis.Close()
		return nil, zerr.With(zerr.Wrap(err, "failed to set socket permissions"), "socket", path)
	}
	return lis, nil
}

// Check implements the gRPC health service. The empty service name is the
// daemon itself; any other name is looked up among the registered handlers.
func (s *Server) Check(_ context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	snap := s.source.Health()

	name := req.GetService()
	if name == "" {
		return &healthpb.HealthCheckResponse{Status: servingStatus(snap.IsHealthy)}, nil
	}
	h, ok := snap.Handlers[name]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "unknown handler %q", name)
	}
	return &healthpb.HealthCheckResponse{Status: servingStatus(h.IsHealthy)}, nil
}

// List implements the gRPC health service.
func (s *Server) List(_ context.Context, _ *healthpb.HealthListRequest) (*healthpb.HealthListResponse, error) {
	snap := s.source.Health()

	statuses := make(map[string]*healthpb.HealthCheckResponse, len(snap.Handlers)+1)
	statuses[""] = &healthpb.HealthCheckResponse{Status: servingStatus(snap.IsHealthy)}
	for name, h := range snap.Handlers {
		statuses[name] = &healthpb.HealthCheckResponse{Status: servingStatus(h.IsHealthy)}
	}
	return &healthpb.HealthListResponse{Statuses: statuses}, nil
}

func servingStatus(healthy bool) healthpb.HealthCheckResponse_ServingStatus {
	if healthy {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
