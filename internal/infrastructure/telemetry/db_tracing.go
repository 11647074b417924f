package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// DBTracingConfig controls spans for document and blob queries
type DBTracingConfig struct {
	Enabled    bool
	LogFullSQL bool   // keep query variables in db.statement
	DBSystem   string // sqlite or postgres
}

// DBTracingPlugin returns the otelgorm plugin for cfg, or nil when database
// tracing is off. tp may be nil to use the global provider.
func DBTracingPlugin(cfg DBTracingConfig, tp trace.TracerProvider) gorm.Plugin {
	if !cfg.Enabled {
		return nil
	}
	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if tp != nil {
		opts = append(opts, otelgorm.WithTracerProvider(tp))
	}
	return otelgorm.NewPlugin(opts...)
}
