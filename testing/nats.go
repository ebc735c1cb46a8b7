package testing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/lastvalue/internal/logger"
	"github.com/arloliu/lastvalue/types"
)

// StartEmbeddedNATS starts an embedded NATS server with JetStream enabled.
//
// The server listens on a random local port and stores JetStream data under
// tb.TempDir(). The server and the returned connection are shut down by
// tb.Cleanup, so parallel tests each get an isolated server.
//
// Parameters:
//   - tb: Test or benchmark handle for failures and cleanup
//
// Returns:
//   - *server.Server: The embedded server
//   - *nats.Conn: Connected client
//
// Example:
//
//	func TestSubscribe(t *testing.T) {
//	    _, nc := lvtest.StartEmbeddedNATS(t)
//	    // use nc
//	}
func StartEmbeddedNATS(tb testing.TB) (*server.Server, *nats.Conn) {
	tb.Helper()

	ns, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  tb.TempDir(),
		NoLog:     true,
		NoSigs:    true,
	})
	if err != nil {
		tb.Fatalf("failed to create embedded NATS server: %v", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		tb.Fatal("embedded NATS server not ready within timeout")
	}

	nc, err := nats.Connect(ns.ClientURL(),
		nats.Name(tb.Name()),
		nats.Timeout(2*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(3),
	)
	if err != nil {
		ns.Shutdown()
		tb.Fatalf("failed to connect to embedded NATS server: %v", err)
	}

	// Cleanups run in reverse order: connection first, then server.
	tb.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	return ns, nc
}

// NewJetStream returns a JetStream context for nc, failing the test on error.
func NewJetStream(tb testing.TB, nc *nats.Conn) jetstream.JetStream {
	tb.Helper()

	js, err := jetstream.New(nc)
	if err != nil {
		tb.Fatalf("failed to create JetStream context: %v", err)
	}

	return js
}

// CreateTimeContextKV creates an in-memory KV bucket suitable for a shared time
// context, keeping only the latest revision of each key.
//
// Parameters:
//   - tb: Test handle
//   - nc: Connection from StartEmbeddedNATS
//   - bucket: Bucket name
//
// Returns:
//   - jetstream.KeyValue: The created bucket
func CreateTimeContextKV(tb testing.TB, nc *nats.Conn, bucket string) jetstream.KeyValue {
	tb.Helper()

	js := NewJetStream(tb, nc)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: fmt.Sprintf("test time context: %s", bucket),
		History:     1,
		Storage:     jetstream.MemoryStorage,
		Replicas:    1,
	})
	if err != nil {
		tb.Fatalf("failed to create KV bucket %s: %v", bucket, err)
	}

	return kv
}

// NewTestLogger returns a logger writing through tb.Log.
func NewTestLogger(tb testing.TB) types.Logger {
	return logger.NewTest(tb)
}
