package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/lastvalue/internal/kvutil"
	"github.com/arloliu/lastvalue/internal/natsutil"
	"github.com/arloliu/lastvalue/types"
)

// Storage types accepted by NATSConfig.Storage.
const (
	StorageFile   = "file"
	StorageMemory = "memory"
)

// NATSConfig configures the NATS telemetry source.
type NATSConfig struct {
	// URL is the NATS server URL used by programs that dial their own connection.
	// NewNATS itself takes an established connection.
	URL string `yaml:"url"`

	// SubjectPrefix is prepended to entity tokens: <prefix>.<entity>.
	SubjectPrefix string `yaml:"subjectPrefix"`

	// StreamName is the JetStream stream capturing <prefix>.>.
	StreamName string `yaml:"streamName"`

	// MaxScan bounds how many stream messages a historical lookup inspects when the
	// latest datum lies outside the requested bounds. The scan walks stream
	// sequences, so messages of every other entity published in between count
	// against it. On a stream shared by many entities size it to cover their
	// interleaved traffic.
	MaxScan int `yaml:"maxScan"`

	// MaxMsgsPerSubject bounds the history retained per entity.
	MaxMsgsPerSubject int64 `yaml:"maxMsgsPerSubject"`

	// Storage is "file" or "memory".
	Storage string `yaml:"storage"`
}

// DefaultNATSConfig returns the default NATS source configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:               nats.DefaultURL,
		SubjectPrefix:     "telemetry",
		StreamName:        "TELEMETRY",
		MaxScan:           64,
		MaxMsgsPerSubject: 1000,
		Storage:           StorageFile,
	}
}

// ApplyDefaults fills zero fields from DefaultNATSConfig.
func (c *NATSConfig) ApplyDefaults() {
	d := DefaultNATSConfig()
	if c.URL == "" {
		c.URL = d.URL
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = d.SubjectPrefix
	}
	if c.StreamName == "" {
		c.StreamName = d.StreamName
	}
	if c.MaxScan <= 0 {
		c.MaxScan = d.MaxScan
	}
	if c.MaxMsgsPerSubject == 0 {
		c.MaxMsgsPerSubject = d.MaxMsgsPerSubject
	}
	if c.Storage == "" {
		c.Storage = d.Storage
	}
}

// Validate checks the configuration after defaults are applied.
func (c *NATSConfig) Validate() error {
	if strings.ContainsAny(c.SubjectPrefix, "*> \t") || strings.HasPrefix(c.SubjectPrefix, ".") ||
		strings.HasSuffix(c.SubjectPrefix, ".") {
		return fmt.Errorf("invalid subject prefix %q", c.SubjectPrefix)
	}
	if strings.ContainsAny(c.StreamName, ".*> \t") {
		return fmt.Errorf("invalid stream name %q", c.StreamName)
	}
	if c.Storage != StorageFile && c.Storage != StorageMemory {
		return fmt.Errorf("storage must be %q or %q, got %q", StorageFile, StorageMemory, c.Storage)
	}

	return nil
}

func (c *NATSConfig) storageType() jetstream.StorageType {
	if c.Storage == StorageMemory {
		return jetstream.MemoryStorage
	}

	return jetstream.FileStorage
}

// NATS is a telemetry source backed by NATS.
//
// Each entity maps to the subject <SubjectPrefix>.<token>, see natsutil.SubjectToken.
// Live datums are received through a core NATS subscription, which delivers
// messages sequentially in arrival order. Historical lookups read the stream's
// last message for the subject and, when that datum lies outside the requested
// bounds, scan backwards for the newest one inside them. Payloads are JSON objects.
type NATS struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	stream   jetstream.Stream
	cfg      NATSConfig
	resolver types.FormatResolver
	opts     sourceOptions
}

// Compile-time assertion that NATS implements TelemetrySource.
var _ types.TelemetrySource = (*NATS)(nil)

// NewNATS creates the source and ensures its stream exists.
//
// Parameters:
//   - ctx: Bounds stream creation
//   - nc: Established NATS connection (not owned)
//   - cfg: Source configuration (defaults applied)
//   - resolver: Used to judge datums against request bounds, may be nil
//   - opts: Optional logger and metrics
//
// Returns:
//   - *NATS: Ready-to-use source
//   - error: Invalid configuration or stream failure
func NewNATS(ctx context.Context, nc *nats.Conn, cfg NATSConfig, resolver types.FormatResolver, opts ...Option) (*NATS, error) {
	if nc == nil {
		return nil, errors.New("NATS connection is required")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidConfig, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	stream, err := kvutil.EnsureStreamWithRetry(ctx, js, jetstream.StreamConfig{
		Name:              cfg.StreamName,
		Subjects:          []string{cfg.SubjectPrefix + ".>"},
		Storage:           cfg.storageType(),
		MaxMsgsPerSubject: cfg.MaxMsgsPerSubject,
		AllowDirect:       true,
	}, 3)
	if err != nil {
		return nil, err
	}

	return &NATS{
		nc:       nc,
		js:       js,
		stream:   stream,
		cfg:      cfg,
		resolver: resolver,
		opts:     applyOptions(opts),
	}, nil
}

// Subject returns the subject carrying entity's datums.
func (n *NATS) Subject(entity string) string {
	return natsutil.Subject(n.cfg.SubjectPrefix, entity)
}

// Publish stores d in the stream, which also delivers it to live subscribers.
func (n *NATS) Publish(ctx context.Context, entity string, d types.Datum) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode datum: %w", err)
	}

	if _, err := n.js.Publish(ctx, n.Subject(entity), data); err != nil {
		return wrapNATSError("publish", err)
	}

	return nil
}

// Subscribe opens a core NATS subscription for entity.
//
// Messages that are not JSON objects are counted and dropped.
func (n *NATS) Subscribe(entity string, onDatum func(types.Datum)) (func(), error) {
	subject := n.Subject(entity)

	sub, err := n.nc.Subscribe(subject, func(msg *nats.Msg) {
		d, err := decode(msg.Data)
		if err != nil {
			n.opts.metrics.RecordSourceDecodeError()
			n.opts.logger.Warn("dropping undecodable datum", "subject", msg.Subject, "error", err)

			return
		}
		n.opts.metrics.RecordSourceDelivery()
		onDatum(d)
	})
	if err != nil {
		return nil, wrapNATSError("subscribe", err)
	}

	n.opts.logger.Debug("subscribed", "entity", entity, "subject", subject)

	return func() {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrBadSubscription) {
			n.opts.logger.Warn("failed to unsubscribe", "subject", subject, "error", err)
		}
	}, nil
}

// Request returns the newest stored datum for entity within opts.Bounds.
//
// Returns:
//   - []types.Datum: Zero or one datum
//   - error: Stream failure; an entity with no stored datums is not an error
func (n *NATS) Request(ctx context.Context, entity string, opts types.RequestOptions) ([]types.Datum, error) {
	subject := n.Subject(entity)

	last, err := n.stream.GetLastMsgForSubject(ctx, subject)
	if err != nil {
		if natsutil.IsNotFound(err) {
			return nil, nil
		}

		return nil, wrapNATSError("get last message", err)
	}

	d, err := decode(last.Data)
	if err == nil && inWindow(n.resolver, opts, d) {
		n.opts.metrics.RecordSourceScan(1)
		return []types.Datum{d}, nil
	}
	if err != nil {
		n.opts.metrics.RecordSourceDecodeError()
	}

	return n.scan(ctx, subject, last.Sequence, opts)
}

// scan walks the stream backwards from before seq looking for the newest datum on
// subject inside the window. At most MaxScan messages are inspected, including
// those on other subjects.
func (n *NATS) scan(ctx context.Context, subject string, seq uint64, opts types.RequestOptions) ([]types.Datum, error) {
	info, err := n.stream.Info(ctx)
	if err != nil {
		return nil, wrapNATSError("stream info", err)
	}
	first := info.State.FirstSeq

	inspected := 1
	defer func() { n.opts.metrics.RecordSourceScan(inspected) }()

	for seq > first && inspected < n.cfg.MaxScan {
		seq--
		inspected++

		msg, err := n.stream.GetMsg(ctx, seq)
		if err != nil {
			if natsutil.IsNotFound(err) {
				continue
			}

			return nil, wrapNATSError("get message", err)
		}
		if msg.Subject != subject {
			continue
		}

		d, err := decode(msg.Data)
		if err != nil {
			n.opts.metrics.RecordSourceDecodeError()
			continue
		}
		if inWindow(n.resolver, opts, d) {
			return []types.Datum{d}, nil
		}
	}

	n.opts.logger.Debug("no datum within bounds", "subject", subject, "bounds", opts.Bounds, "inspected", inspected)

	return nil, nil
}

func decode(data []byte) (types.Datum, error) {
	var d types.Datum
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrDecodeFailed, err)
	}
	if d == nil {
		return nil, fmt.Errorf("%w: not a JSON object", types.ErrDecodeFailed)
	}

	return d, nil
}

func wrapNATSError(op string, err error) error {
	if natsutil.IsConnectivityError(err) {
		return fmt.Errorf("%s: %w: %w", op, types.ErrConnectivity, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
