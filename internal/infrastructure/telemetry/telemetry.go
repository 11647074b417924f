package telemetry

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Settings is everything Setup needs
type Settings struct {
	Config
	Logs      bool
	Profiling ProfilerConfig
}

// Telemetry holds the started providers
type Telemetry struct {
	Tracer   *TracerProvider
	Logs     *LoggerProvider
	Profiler *Profiler
}

// Setup starts tracing, log export and profiling as configured. The
// profiler starts before span profiles are attached to the tracer.
func Setup(ctx context.Context, s Settings, logger *zap.Logger) (*Telemetry, error) {
	t := &Telemetry{}
	var err error
	if t.Tracer, err = NewTracerProvider(ctx, s.Config, logger); err != nil {
		return nil, err
	}

	logsCfg := s.Config
	logsCfg.Enabled = s.Enabled && s.Logs
	if t.Logs, err = NewLoggerProvider(ctx, logsCfg, logger); err != nil {
		_ = t.Shutdown(ctx)
		return nil, err
	}

	if t.Profiler, err = NewProfiler(s.Profiling, logger); err != nil {
		_ = t.Shutdown(ctx)
		return nil, err
	}
	if t.Profiler.IsEnabled() {
		t.Tracer.EnableSpanProfiles()
	}
	return t, nil
}

// Shutdown flushes and stops whatever Setup started
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.Profiler != nil {
		errs = append(errs, t.Profiler.Stop())
	}
	if t.Logs != nil {
		errs = append(errs, t.Logs.Shutdown(ctx))
	}
	if t.Tracer != nil {
		errs = append(errs, t.Tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
