package telemetry

import (
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanKey         = "otel:span"
	maxStatementLen = 500
)

// GORMTracingPlugin returns a gorm plugin that opens one span per statement
func GORMTracingPlugin() gorm.Plugin {
	return &tracingPlugin{tracer: otel.Tracer("gorm")}
}

type tracingPlugin struct {
	tracer trace.Tracer
}

func (p *tracingPlugin) Name() string {
	return "telemetry:tracing"
}

func (p *tracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Query().Before("gorm:query").Register("telemetry:before_query", p.before("SELECT")); err != nil {
		return fmt.Errorf("register before_query: %w", err)
	}
	if err := cb.Create().Before("gorm:create").Register("telemetry:before_create", p.before("INSERT")); err != nil {
		return fmt.Errorf("register before_create: %w", err)
	}
	if err := cb.Update().Before("gorm:update").Register("telemetry:before_update", p.before("UPDATE")); err != nil {
		return fmt.Errorf("register before_update: %w", err)
	}
	if err := cb.Delete().Before("gorm:delete").Register("telemetry:before_delete", p.before("DELETE")); err != nil {
		return fmt.Errorf("register before_delete: %w", err)
	}
	if err := cb.Raw().Before("gorm:raw").Register("telemetry:before_raw", p.before("RAW")); err != nil {
		return fmt.Errorf("register before_raw: %w", err)
	}

	if err := cb.Query().After("gorm:query").Register("telemetry:after_query", p.after); err != nil {
		return fmt.Errorf("register after_query: %w", err)
	}
	if err := cb.Create().After("gorm:create").Register("telemetry:after_create", p.after); err != nil {
		return fmt.Errorf("register after_create: %w", err)
	}
	if err := cb.Update().After("gorm:update").Register("telemetry:after_update", p.after); err != nil {
		return fmt.Errorf("register after_update: %w", err)
	}
	if err := cb.Delete().After("gorm:delete").Register("telemetry:after_delete", p.after); err != nil {
		return fmt.Errorf("register after_delete: %w", err)
	}
	if err := cb.Raw().After("gorm:raw").Register("telemetry:after_raw", p.after); err != nil {
		return fmt.Errorf("register after_raw: %w", err)
	}
	return nil
}

func (p *tracingPlugin) before(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		_, span := p.tracer.Start(ctx, "db."+strings.ToLower(operation),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("db.system", db.Dialector.Name()),
				attribute.String("db.table", table),
				attribute.String("db.operation", operation),
			),
		)
		db.InstanceSet(spanKey, span)
	}
}

func (p *tracingPlugin) after(db *gorm.DB) {
	raw, ok := db.InstanceGet(spanKey)
	if !ok {
		return
	}
	span, ok := raw.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if sql := db.Statement.SQL.String(); sql != "" {
		if len(sql) > maxStatementLen {
			sql = sql[:maxStatementLen] + "..."
		}
		span.SetAttributes(attribute.String("db.statement", sql))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
}
