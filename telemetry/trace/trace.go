//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

// Package trace provides tracing for the pipeline engine. It integrates
// with OpenTelemetry; by default the global tracer is a noop and Start
// installs an OTLP gRPC exporter.
package trace

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const defaultServiceName = "reelforge"

// TracerProvider is the global tracer provider for telemetry.
var TracerProvider trace.TracerProvider = noop.NewTracerProvider()

// Tracer is the global tracer instance for telemetry.
var Tracer trace.Tracer = TracerProvider.Tracer("")

type options struct {
	endpoint    string
	serviceName string
}

// Option configures trace collection.
type Option func(*options)

// WithEndpoint sets the OTLP gRPC collector endpoint.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithServiceName sets the reported service name.
func WithServiceName(name string) Option {
	return func(o *options) {
		o.serviceName = name
	}
}

// Start installs a trace exporter and replaces the global tracer. The
// returned clean function flushes and shuts the provider down.
func Start(ctx context.Context, opts ...Option) (func() error, error) {
	o := options{serviceName: defaultServiceName}
	for _, opt := range opts {
		opt(&o)
	}

	exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithInsecure()}
	if o.endpoint != "" {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithEndpoint(o.endpoint))
	}
	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := sdkresource.New(ctx,
		sdkresource.WithAttributes(semconv.ServiceName(o.serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	TracerProvider = provider
	Tracer = provider.Tracer("")
	otel.SetTracerProvider(provider)

	return func() error {
		return provider.Shutdown(context.Background())
	}, nil
}
