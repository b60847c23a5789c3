package tracing

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName identifies this service in traces.
const ServiceName = "referral-portal"

// Config holds tracing configuration.
type Config struct {
	Enabled     bool
	Endpoint    string // Jaeger collector endpoint, e.g. http://localhost:14268/api/traces
	Environment string
	Version     string
}

// Init installs the global tracer provider. When tracing is disabled the
// default no-op provider stays in place and the returned shutdown does nothing.
func Init(cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.Endpoint)))
	if err != nil {
		return nil, fmt.Errorf("create jaeger exporter: %w", err)
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(ServiceName),
			semconv.ServiceVersionKey.String(version),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// Tracer returns the named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(ServiceName + "/" + name)
}

// headerCarrier adapts fiber request and response headers to propagation.TextMapCarrier.
type headerCarrier struct {
	get  func(string) string
	set  func(string, string)
	keys func() []string
}

func (h headerCarrier) Get(key string) string        { return h.get(key) }
func (h headerCarrier) Set(key string, value string) { h.set(key, value) }
func (h headerCarrier) Keys() []string               { return h.keys() }

// Middleware starts a server span per request and stores the span context in
// c.UserContext() so services can create child spans.
func Middleware() fiber.Handler {
	tracer := Tracer("http")

	return func(c *fiber.Ctx) error {
		reqHeaders := c.GetReqHeaders()
		carrier := headerCarrier{
			get: func(k string) string { return c.Get(k) },
			set: func(k, v string) { c.Set(k, v) },
			keys: func() []string {
				keys := make([]string, 0, len(reqHeaders))
				for k := range reqHeaders {
					keys = append(keys, k)
				}
				return keys
			},
		}

		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), carrier)
		ctx, span := tracer.Start(ctx, c.Method()+" "+c.Path(), trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", c.Method()),
			attribute.String("http.target", c.OriginalURL()),
			attribute.String("http.user_agent", c.Get(fiber.HeaderUserAgent)),
			attribute.String("net.peer.ip", c.IP()),
		)

		otel.GetTextMapPropagator().Inject(ctx, carrier)
		c.SetUserContext(ctx)

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
			span.RecordError(err)
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, fmt.Sprintf("status %d", status))
		}
		if route := c.Route(); route != nil {
			span.SetName(c.Method() + " " + route.Path)
		}
		return err
	}
}
