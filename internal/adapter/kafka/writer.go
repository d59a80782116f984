package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/couchcryptid/snow-phenology/internal/config"
	"github.com/couchcryptid/snow-phenology/internal/domain"
)

// ContentType is the header value of every published trend message.
const ContentType = "application/x-msgpack"

// Writer produces run results to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes the masked trend of a run and writes it as one message
// keyed by run id.
func (w *Writer) Publish(ctx context.Context, result domain.Result) error {
	msg, err := serializeToMessage(result)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write trend message: %w", err)
	}
	w.logger.Info("trend published",
		"run_id", result.RunID,
		"topic", w.writer.Topic,
		"bytes", len(msg.Value),
	)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// TrendMessage is the msgpack value of a published run. Cell arrays are in
// row-major grid order; masked cells have Valid false and zero values.
type TrendMessage struct {
	RunID       string                  `msgpack:"run_id"`
	StartYear   int                     `msgpack:"start_year"`
	EndYear     int                     `msgpack:"end_year"`
	Years       []int                   `msgpack:"years"`
	Grid        domain.Grid             `msgpack:"grid"`
	Slope       []float64               `msgpack:"slope"`
	Intercept   []float64               `msgpack:"intercept"`
	Valid       []bool                  `msgpack:"valid"`
	Median      []float64               `msgpack:"median_snow_free_days"`
	Degenerate  int                     `msgpack:"degenerate_cells"`
	Skipped     []domain.YearDiagnostic `msgpack:"skipped"`
	ProcessedAt time.Time               `msgpack:"processed_at"`
}

// NewTrendMessage flattens a run result.
func NewTrendMessage(result domain.Result) (TrendMessage, error) {
	slope, ok := result.Derived.Trend.Select(domain.BandSlope)
	if !ok {
		return TrendMessage{}, fmt.Errorf("result %s has no %s band", result.RunID, domain.BandSlope)
	}
	intercept, ok := result.Derived.Trend.Select(domain.BandIntercept)
	if !ok {
		return TrendMessage{}, fmt.Errorf("result %s has no %s band", result.RunID, domain.BandIntercept)
	}

	return TrendMessage{
		RunID:       result.RunID,
		StartYear:   result.StartYear,
		EndYear:     result.EndYear,
		Years:       result.Years,
		Grid:        result.Grid,
		Slope:       maskedValues(slope),
		Intercept:   maskedValues(intercept),
		Valid:       slope.Valid(),
		Median:      maskedValues(result.Derived.Median),
		Degenerate:  result.Derived.Degenerate,
		Skipped:     result.Skipped(),
		ProcessedAt: result.ProcessedAt,
	}, nil
}

// maskedValues zeroes masked cells so NaN fits never reach the wire.
func maskedValues(r domain.Raster) []float64 {
	values := r.Values()
	for i, ok := range r.Valid() {
		if !ok {
			values[i] = 0
		}
	}
	return values
}

// serializeToMessage marshals a run result into a Kafka message.
func serializeToMessage(result domain.Result) (kafkago.Message, error) {
	tm, err := NewTrendMessage(result)
	if err != nil {
		return kafkago.Message{}, err
	}
	data, err := msgpack.Marshal(tm)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize trend: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(result.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "content_type", Value: []byte(ContentType)},
			{Key: "processed_at", Value: []byte(result.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
