// Package daemon implements the process side of the automation daemon: the
// liveness marker, the health sockets and the CLI's client and connector.
package daemon

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"

	"go.trai.ch/tend/internal/adapters/exposition"
	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/zerr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// httpHost is a placeholder host; requests are always dialed to the HTTP socket.
const httpHost = "http://tend"

var _ ports.DaemonClient = (*Client)(nil)

// Client implements ports.DaemonClient over the daemon's unix sockets.
type Client struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
	http   *http.Client
}

// Dial prepares a client for the daemon serving root.
// Note: grpc.NewClient returns immediately; actual connection happens lazily on first RPC.
func Dial(root string) (*Client, error) {
	conn, err := grpc.NewClient("unix://"+domain.SocketPath(root),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, zerr.Wrap(err, "daemon client creation failed")
	}

	httpSocket := domain.HTTPSocketPath(root)
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", httpSocket)
		},
	}

	return &Client{
		conn:   conn,
		health: healthpb.NewHealthClient(conn),
		http:   &http.Client{Transport: transport},
	}, nil
}

// Check implements ports.DaemonClient.
func (c *Client) Check(ctx context.Context, service string) (bool, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, zerr.With(zerr.Wrap(domain.ErrUnknownHandler, "health check failed"), "handler", service)
		}
		return false, zerr.Wrap(err, "health check failed")
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

// Health implements ports.DaemonClient.
func (c *Client) Health(ctx context.Context) (*domain.HealthSnapshot, error) {
	var snap domain.HealthSnapshot
	if err := c.getJSON(ctx, exposition.HealthPath, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Metrics implements ports.DaemonClient.
func (c *Client) Metrics(ctx context.Context) (*domain.MetricsReport, error) {
	var rep domain.MetricsReport
	if err := c.getJSON(ctx, exposition.MetricsJSONPath, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// MetricsText implements ports.DaemonClient.
func (c *Client) MetricsText(ctx context.Context) (string, error) {
	resp, err := c.get(ctx, exposition.MetricsPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", zerr.With(zerr.New("unexpected metrics response"), "status", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", zerr.Wrap(err, "failed to read metrics")
	}
	return string(data), nil
}

// Close implements ports.DaemonClient.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return c.conn.Close()
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpHost+path, http.NoBody)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to build request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "daemon request failed"), "path", path)
	}
	return resp, nil
}

// getJSON decodes the body of path into v. The health endpoint answers 503 with
// a valid body, so any status carrying JSON is accepted.
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to decode daemon response"), "path", path)
	}
	return nil
}
