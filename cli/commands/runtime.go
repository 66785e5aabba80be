package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AshkanYarmoradi/go-stoat"
	"github.com/AshkanYarmoradi/go-stoat/adapters/memory"
	"github.com/AshkanYarmoradi/go-stoat/adapters/postgres"
	"github.com/AshkanYarmoradi/go-stoat/adapters/redis"
	"github.com/AshkanYarmoradi/go-stoat/cli/config"
	"github.com/AshkanYarmoradi/go-stoat/examples/bankaccount"
	"github.com/AshkanYarmoradi/go-stoat/middleware/metrics"
	"github.com/AshkanYarmoradi/go-stoat/middleware/tracing"
	"github.com/AshkanYarmoradi/go-stoat/serializer"
	"github.com/AshkanYarmoradi/go-stoat/serializer/msgpack"
)

// storeOpener opens the event stream a config selects. The returned close
// function releases the backend.
type storeOpener func(ctx context.Context, cfg *config.Config) (stoat.EventStream, func() error, error)

// openStore is replaced in tests to share one stream across invocations.
var openStore storeOpener = openConfiguredStore

// loadConfig resolves the configuration from --config, a stoat.yaml found
// upwards from the working directory, or the defaults.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	var cfg *config.Config
	if opts.configPath != "" {
		loaded, err := config.LoadFile(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", opts.configPath, err)
		}
		cfg = loaded
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		_, found, err := config.FindConfig(cwd)
		switch {
		case err == nil:
			cfg = found
		case errors.Is(err, os.ErrNotExist):
			cfg = config.DefaultConfig()
		default:
			return nil, err
		}
	}

	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// newLogger builds the slog logger the library logs through.
func newLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// newSerializer returns the payload codec for the configured format with
// the bank account events registered.
func newSerializer(cfg *config.Config) (serializer.Serializer, error) {
	reg := serializer.NewRegistry()
	if err := bankaccount.RegisterEvents(reg); err != nil {
		return nil, err
	}

	switch cfg.Serializer {
	case config.SerializerMsgpack:
		return msgpack.NewSerializer(reg), nil
	case config.SerializerJSON, "":
		return serializer.NewJSON(reg), nil
	default:
		return nil, fmt.Errorf("unknown serializer %q", cfg.Serializer)
	}
}

func openConfiguredStore(ctx context.Context, cfg *config.Config) (stoat.EventStream, func() error, error) {
	ser, err := newSerializer(cfg)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Store.Driver {
	case config.DriverMemory:
		s := memory.NewStream()
		return s, s.Close, nil

	case config.DriverPostgres:
		s, err := postgres.NewStream(cfg.DatabaseURL(),
			postgres.WithSchema(cfg.Store.Schema),
			postgres.WithSerializer(ser),
		)
		if err != nil {
			return nil, nil, err
		}
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return s, s.Close, nil

	case config.DriverRedis:
		s := redis.NewStreamWithAddr(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithKeyPrefix(cfg.Redis.KeyPrefix),
			redis.WithSerializer(ser),
		)
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return s, s.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// accountRuntime wires the bank account repository to the configured stream
// through the metrics and tracing middleware.
type accountRuntime struct {
	cfg      *config.Config
	repo     *stoat.AggregateRepository[*bankaccount.Account]
	registry *prometheus.Registry
	close    func() error
}

func newAccountRuntime(ctx context.Context, opts *globalOptions, logOut io.Writer) (*accountRuntime, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	stream, closeStream, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	m := metrics.New(metrics.WithMetricsServiceName(cfg.Observability.ServiceName))
	registry := prometheus.NewRegistry()
	if err := m.Register(registry); err != nil {
		_ = closeStream()
		return nil, err
	}

	tracer := tracing.NewTracer(tracing.WithServiceName(cfg.Observability.ServiceName))
	wrapped := tracing.WrapEventStream(m.WrapEventStream(stream), tracer)

	factory := bankaccount.New
	if cfg.Aggregate.Strict {
		factory = func(id string) *bankaccount.Account {
			return bankaccount.NewWithOptions(id, stoat.WithStrictEventRegistration())
		}
	}

	logger := stoat.NewSlogLogger(newLogger(logOut, cfg.Logging))
	return &accountRuntime{
		cfg:      cfg,
		repo:     stoat.NewAggregateRepository(wrapped, factory, stoat.WithLogger(logger)),
		registry: registry,
		close:    closeStream,
	}, nil
}

// counters returns the non-zero counter samples gathered so far, keyed by
// metric name plus labels.
func (r *accountRuntime) counters() (map[string]float64, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			c := m.GetCounter()
			if c == nil || c.GetValue() == 0 {
				continue
			}
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				if l.GetName() == metrics.LabelService {
					continue
				}
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			key := mf.GetName()
			if len(labels) > 0 {
				key += "{" + strings.Join(labels, ",") + "}"
			}
			out[key] = c.GetValue()
		}
	}
	return out, nil
}
