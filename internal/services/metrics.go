package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "linvo.services"

// metrics uses the global meter provider, a no-op until the host
// application installs one.
type metrics struct {
	imports         metric.Int64Counter
	videosImported  metric.Int64Counter
	videosSkipped   metric.Int64Counter
	playbacks       metric.Int64Counter
	persistFailures metric.Int64Counter
}

func newMetrics() *metrics {
	m := otel.GetMeterProvider().Meter(meterName)
	imports, _ := m.Int64Counter("linvo_channel_imports_total")
	videosImported, _ := m.Int64Counter("linvo_videos_imported_total")
	videosSkipped, _ := m.Int64Counter("linvo_videos_skipped_total")
	playbacks, _ := m.Int64Counter("linvo_playbacks_total")
	persistFailures, _ := m.Int64Counter("linvo_persist_failures_total")
	return &metrics{
		imports:         imports,
		videosImported:  videosImported,
		videosSkipped:   videosSkipped,
		playbacks:       playbacks,
		persistFailures: persistFailures,
	}
}

func (m *metrics) recordImport(ctx context.Context, result string) {
	if m == nil || m.imports == nil {
		return
	}
	m.imports.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *metrics) recordVideos(ctx context.Context, imported, skipped int) {
	if m == nil || m.videosImported == nil {
		return
	}
	m.videosImported.Add(ctx, int64(imported))
	m.videosSkipped.Add(ctx, int64(skipped))
}

func (m *metrics) recordPlayback(ctx context.Context, result string) {
	if m == nil || m.playbacks == nil {
		return
	}
	m.playbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *metrics) recordPersistFailure(ctx context.Context) {
	if m == nil || m.persistFailures == nil {
		return
	}
	m.persistFailures.Add(ctx, 1)
}
