// Package telemetry traces operator actions that command hardware. Spans
// are exported over OTLP/HTTP only when an endpoint is configured.
package telemetry

import (
	"context"
	"os"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// EndpointEnv enables export when set.
const EndpointEnv = "OTEL_EXPORTER_OTLP_ENDPOINT"

const instrumentation = "opmenu/operator-menu"

// Config selects the exporter. Empty fields fall back to the standard OTEL
// environment variables.
type Config struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// Provider hands out spans for operator actions.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   oteltrace.Tracer
	enabled  bool
}

// New creates a provider exporting to the configured endpoint. Without an
// endpoint the provider is disabled and spans are no-ops.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = os.Getenv(EndpointEnv)
	}
	if endpoint == "" {
		return Disabled(), nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(trimScheme(endpoint))}
	if cfg.Insecure || strings.HasPrefix(endpoint, "http://") {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = os.Getenv("OTEL_SERVICE_NAME")
	}
	if serviceName == "" {
		serviceName = "opmenu"
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return NewWithProvider(tp), nil
}

// NewWithProvider wraps an existing SDK provider.
func NewWithProvider(tp *sdktrace.TracerProvider) *Provider {
	return &Provider{provider: tp, tracer: tp.Tracer(instrumentation), enabled: true}
}

// Disabled returns a provider whose spans go nowhere.
func Disabled() *Provider {
	return &Provider{tracer: noop.NewTracerProvider().Tracer(instrumentation)}
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool { return p != nil && p.enabled }

func trimScheme(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "http://")
	return strings.TrimPrefix(endpoint, "https://")
}

// attrKey maps short attribute names into the opmenu.* namespace.
func attrKey(k string) string {
	switch k {
	case "reel":
		return "opmenu.reel.id"
	case "step":
		return "opmenu.reel.step"
	case "door":
		return "opmenu.door.id"
	case "algorithm":
		return "opmenu.hash.algorithm"
	case "page":
		return "opmenu.ui.page"
	case "outcome":
		return "opmenu.outcome"
	default:
		return "opmenu." + k
	}
}

// Action starts a span named name for an operator action. attrs are short
// key/value pairs. The returned function ends the span, recording err.
func (p *Provider) Action(ctx context.Context, name string, attrs map[string]string) (context.Context, func(err error)) {
	if p == nil {
		p = Disabled()
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for _, k := range keys {
		kvs = append(kvs, attribute.String(attrKey(k), attrs[k]))
	}
	ctx, span := p.tracer.Start(ctx, name, oteltrace.WithAttributes(kvs...))
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.String(attrKey("outcome"), outcome))
		span.End()
	}
}

// Shutdown flushes and closes the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.provider == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}
