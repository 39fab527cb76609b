package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// TelemetryConfig controls how metrics are exported.
type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	OtlpEndpoint string
	OtlpInsecure bool
}

// Setup configures OpenTelemetry metrics with a Prometheus exporter and an
// optional OTLP push exporter. It returns a Recorder, the Prometheus scrape
// handler, and a shutdown function. With telemetry disabled the Recorder is
// a no-op and the handler is nil.
func Setup(ctx context.Context, cfg TelemetryConfig) (*Recorder, http.Handler, func(context.Context) error, error) {
	if !cfg.Enabled {
		return nil, nil, func(context.Context) error { return nil }, nil
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = "cricfever-backend"
	}

	reg := prometheus.NewRegistry()
	promExp, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return nil, nil, nil, err
	}
	promHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	opts := []sdkmetric.Option{sdkmetric.WithReader(promExp)}

	if cfg.OtlpEndpoint != "" {
		otlpOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.OtlpEndpoint)}
		if cfg.OtlpInsecure {
			otlpOpts = append(otlpOpts, otlpmetrichttp.WithInsecure())
		}
		otlpExp, err := otlpmetrichttp.New(ctx, otlpOpts...)
		if err != nil {
			return nil, nil, nil, err
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(otlpExp, sdkmetric.WithInterval(15*time.Second))))
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, nil, nil, err
	}
	opts = append(opts, sdkmetric.WithResource(res))

	provider := sdkmetric.NewMeterProvider(opts...)

	rec, err := newRecorder(provider)
	if err != nil {
		return nil, nil, nil, err
	}

	shutdown := func(c context.Context) error {
		return provider.Shutdown(c)
	}
	return rec, promHandler, shutdown, nil
}

// Recorder exposes the game-facing instruments. A nil Recorder is valid and
// records nothing, so callers never need to guard.
type Recorder struct {
	ctx context.Context

	roomsCreated  metric.Int64Counter
	roomsClosed   metric.Int64Counter
	matchesDone   metric.Int64Counter
	ballsBowled   metric.Int64Counter
	wickets       metric.Int64Counter
	connections   metric.Int64UpDownCounter
	disconnects   metric.Int64Counter
	ballResolveMs metric.Float64Histogram
}

func newRecorder(provider metric.MeterProvider) (*Recorder, error) {
	meter := provider.Meter("cricfever-backend")

	roomsCreated, err := meter.Int64Counter("rooms_created_total")
	if err != nil {
		return nil, err
	}
	roomsClosed, err := meter.Int64Counter("rooms_closed_total")
	if err != nil {
		return nil, err
	}
	matchesDone, err := meter.Int64Counter("matches_completed_total")
	if err != nil {
		return nil, err
	}
	ballsBowled, err := meter.Int64Counter("balls_bowled_total")
	if err != nil {
		return nil, err
	}
	wickets, err := meter.Int64Counter("wickets_total")
	if err != nil {
		return nil, err
	}
	connections, err := meter.Int64UpDownCounter("ws_connections")
	if err != nil {
		return nil, err
	}
	disconnects, err := meter.Int64Counter("ws_disconnects_total")
	if err != nil {
		return nil, err
	}
	ballResolve, err := meter.Float64Histogram("ball_resolve_duration_ms")
	if err != nil {
		return nil, err
	}

	return &Recorder{
		ctx:           context.Background(),
		roomsCreated:  roomsCreated,
		roomsClosed:   roomsClosed,
		matchesDone:   matchesDone,
		ballsBowled:   ballsBowled,
		wickets:       wickets,
		connections:   connections,
		disconnects:   disconnects,
		ballResolveMs: ballResolve,
	}, nil
}

func (r *Recorder) RoomCreated() {
	if r == nil {
		return
	}
	r.roomsCreated.Add(r.ctx, 1)
}

func (r *Recorder) RoomClosed() {
	if r == nil {
		return
	}
	r.roomsClosed.Add(r.ctx, 1)
}

func (r *Recorder) MatchCompleted() {
	if r == nil {
		return
	}
	r.matchesDone.Add(r.ctx, 1)
}

func (r *Recorder) BallBowled() {
	if r == nil {
		return
	}
	r.ballsBowled.Add(r.ctx, 1)
}

func (r *Recorder) WicketFallen(wicketType string) {
	if r == nil {
		return
	}
	r.wickets.Add(r.ctx, 1, metric.WithAttributes(attribute.String("type", wicketType)))
}

func (r *Recorder) ClientConnected() {
	if r == nil {
		return
	}
	r.connections.Add(r.ctx, 1)
}

func (r *Recorder) ClientDisconnected() {
	if r == nil {
		return
	}
	r.connections.Add(r.ctx, -1)
	r.disconnects.Add(r.ctx, 1)
}

func (r *Recorder) BallResolved(d time.Duration) {
	if r == nil {
		return
	}
	r.ballResolveMs.Record(r.ctx, float64(d.Milliseconds()))
}
