package natsclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestClient is a connected Client backed by a throwaway NATS container
type TestClient struct {
	Client *Client
	URL    string

	container testcontainers.Container
}

type testConfig struct {
	jetstream   bool
	kvBuckets   []string
	natsVersion string
	timeout     time.Duration
}

// TestOption configures NewTestClient
type TestOption func(*testConfig)

// WithJetStream starts the server with JetStream enabled
func WithJetStream() TestOption {
	return func(cfg *testConfig) {
		cfg.jetstream = true
	}
}

// WithKVBuckets enables JetStream and pre-creates the named buckets
func WithKVBuckets(buckets ...string) TestOption {
	return func(cfg *testConfig) {
		cfg.jetstream = true
		cfg.kvBuckets = append(cfg.kvBuckets, buckets...)
	}
}

// WithNATSVersion selects the nats image tag
func WithNATSVersion(version string) TestOption {
	return func(cfg *testConfig) {
		cfg.natsVersion = version
	}
}

// NewTestClient starts a NATS container and returns a connected client.
// The container is terminated through t.Cleanup.
func NewTestClient(t testing.TB, opts ...TestOption) *TestClient {
	t.Helper()

	cfg := &testConfig{natsVersion: "2.11.7-alpine", timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}

	tc, err := startTestClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to start NATS test client: %v", err)
	}
	t.Cleanup(tc.Terminate)
	return tc
}

func startTestClient(ctx context.Context, cfg *testConfig) (*TestClient, error) {
	args := []string{"--port", "4222", "--http_port", "8222"}
	if cfg.jetstream {
		args = append(args, "--js")
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:" + cfg.natsVersion,
			ExposedPorts: []string{"4222/tcp", "8222/tcp"},
			Cmd:          args,
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("4222/tcp"),
				wait.ForHTTP("/").WithPort("8222/tcp").WithStartupTimeout(30*time.Second),
			),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start NATS container: %w", err)
	}

	tc := &TestClient{container: container}
	if err := tc.connect(ctx, cfg); err != nil {
		tc.Terminate()
		return nil, err
	}
	return tc, nil
}

func (tc *TestClient) connect(ctx context.Context, cfg *testConfig) error {
	host, err := tc.container.Host(ctx)
	if err != nil {
		return fmt.Errorf("container host: %w", err)
	}
	port, err := tc.container.MappedPort(ctx, "4222")
	if err != nil {
		return fmt.Errorf("mapped port: %w", err)
	}
	tc.URL = fmt.Sprintf("nats://%s:%s", host, port.Port())

	client, err := NewClient(tc.URL, WithTimeout(cfg.timeout), WithMaxReconnects(0))
	if err != nil {
		return err
	}
	connectCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	tc.Client = client

	for _, bucket := range cfg.kvBuckets {
		if _, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: bucket}); err != nil {
			return fmt.Errorf("create KV bucket %s: %w", bucket, err)
		}
	}
	return nil
}

// Terminate closes the client and removes the container
func (tc *TestClient) Terminate() {
	if tc.Client != nil {
		_ = tc.Client.Close(context.Background())
	}
	if tc.container != nil {
		_ = tc.container.Terminate(context.Background())
		tc.container = nil
	}
}
