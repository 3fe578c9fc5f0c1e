package cmd

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// ProvideLogger builds the process-wide structured logger. A bare
// otel/sdk/log LoggerProvider with no registered processor drops every
// record it receives, so until a real collector exporter is configured
// this writes straight to stdout via a plain slog.JSONHandler — every
// logger.Error/Info call in the tree (persist failures, heartbeat
// failures, server start/stop, AMQP router errors) stays observable
// (spec.md §7 "a persist failure is logged"). Swap this for the
// otelslog bridge once an exporter is wired.
func ProvideLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// ProvideTracerProvider installs a plain otel/sdk/trace TracerProvider
// as the global provider so internal/service can create spans via
// otel.Tracer(...) (see DeliveryService.SendDirect/SendGroup) without a
// concrete exporter wired in — spans are still built and recorded, just
// not shipped anywhere until a real exporter is registered.
func ProvideTracerProvider(lc fx.Lifecycle) *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})

	return tp
}
