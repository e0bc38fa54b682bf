package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"rgbmonitor/internal/config"
	"rgbmonitor/internal/dto"
	"rgbmonitor/internal/logger"
	"rgbmonitor/internal/metrics"
	"rgbmonitor/internal/sampler"
	"rgbmonitor/internal/series"
	"rgbmonitor/internal/service"
	"rgbmonitor/internal/service/chart"
	"rgbmonitor/internal/service/export"
)

// SeriesHandler returns the current rolling series as JSON.
func SeriesHandler(manager *service.Manager, buffer *series.Buffer, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, dto.SeriesMessage{
			Type:      dto.TypeSeries,
			SessionID: manager.Status().ID,
			Window:    cfg.WindowSeconds,
			Samples:   dto.FromSamples(buffer.Snapshot()),
		}, logger)
	}
}

// ChartHandler renders the series as a PNG. It answers 204 while there is no data yet.
func ChartHandler(buffer *series.Buffer, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	opts := chart.Options{
		Width:         cfg.ChartWidth,
		Height:        cfg.ChartHeight,
		WindowSeconds: cfg.WindowSeconds,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := chart.Render(&buf, buffer.Snapshot(), opts); err != nil {
			if errors.Is(err, chart.ErrNoSamples) {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			logger.Error("Chart rendering failed: %v", err)
			respondError(w, http.StatusInternalServerError, "failed to render chart", logger)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(buf.Bytes())
	}
}

// ExportXLSXHandler downloads the series as rgb_values.xlsx.
func ExportXLSXHandler(buffer *series.Buffer, logger *logger.Logger) http.HandlerFunc {
	return exportHandler(buffer, logger, "xlsx", export.XLSXFilename, export.XLSXContentType, export.WriteXLSX)
}

// ExportCSVHandler downloads the series as rgb_values.csv.
func ExportCSVHandler(buffer *series.Buffer, logger *logger.Logger) http.HandlerFunc {
	return exportHandler(buffer, logger, "csv", export.CSVFilename, export.CSVContentType, export.WriteCSV)
}

func exportHandler(buffer *series.Buffer, logger *logger.Logger, format, filename, contentType string,
	write func(w io.Writer, samples []sampler.Sample) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		samples := buffer.Snapshot()

		var buf bytes.Buffer
		if err := write(&buf, samples); err != nil {
			logger.Error("Export to %s failed: %v", format, err)
			respondError(w, http.StatusInternalServerError, "export failed", logger)
			return
		}

		metrics.Exports.WithLabelValues(format).Inc()
		logger.Info("📊 Exported %d samples as %s", len(samples), format)

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
		w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
		w.Write(buf.Bytes())
	}
}
