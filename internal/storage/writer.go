package storage

import (
	"fmt"
	"log/slog"

	"github.com/IshaanNene/dhscrape/internal/article"
	"github.com/IshaanNene/dhscrape/internal/config"
	"github.com/IshaanNene/dhscrape/internal/observability"
)

// DefaultBufferSize is the number of records buffered before a flush.
const DefaultBufferSize = 100

// Writer buffers serialized articles and hands them to a backend in
// fixed-size batches. A crash loses the unflushed batch only.
type Writer struct {
	store   Storage
	size    int
	opts    article.EncodeOptions
	buffer  []Record
	written int
	metrics *observability.Metrics
	logger  *slog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithBufferSize sets the batch size.
func WithBufferSize(n int) WriterOption {
	return func(w *Writer) { w.size = n }
}

// WithEncodeOptions sets the JSON options of every record.
func WithEncodeOptions(opts article.EncodeOptions) WriterOption {
	return func(w *Writer) { w.opts = opts }
}

// WithMetrics counts the written records.
func WithMetrics(m *observability.Metrics) WriterOption {
	return func(w *Writer) { w.metrics = m }
}

// NewWriter creates a buffered writer over store.
func NewWriter(store Storage, logger *slog.Logger, opts ...WriterOption) *Writer {
	w := &Writer{
		store:  store,
		size:   DefaultBufferSize,
		logger: logger.With("component", "writer"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.size < 1 {
		w.size = 1
	}
	w.buffer = make([]Record, 0, w.size)
	return w
}

// Write serializes a and flushes when the buffer is full.
func (w *Writer) Write(a *article.Article) error {
	data, err := a.Encode(w.opts)
	if err != nil {
		return err
	}
	w.buffer = append(w.buffer, Record{ID: a.Identity(), Data: data})
	if len(w.buffer) >= w.size {
		return w.Flush()
	}
	return nil
}

// Flush hands the buffered records to the backend.
func (w *Writer) Flush() error {
	if len(w.buffer) == 0 {
		return nil
	}
	if err := w.store.Store(w.buffer); err != nil {
		w.metrics.IncStoreErrors(w.store.Name())
		return fmt.Errorf("flush %d records: %w", len(w.buffer), err)
	}
	w.written += len(w.buffer)
	w.metrics.AddRecordsWritten(w.store.Name(), len(w.buffer))
	w.buffer = w.buffer[:0]
	return nil
}

// Written returns the number of records flushed so far.
func (w *Writer) Written() int { return w.written }

// Close flushes the last partial batch and closes the backend.
func (w *Writer) Close() error {
	flushErr := w.Flush()
	closeErr := w.store.Close()
	w.logger.Info("writer closed", "backend", w.store.Name(), "records", w.written)
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// WriteAll streams articles to w and closes it.
func WriteAll(w *Writer, articles []*article.Article) error {
	for _, a := range articles {
		if err := w.Write(a); err != nil {
			_ = w.store.Close()
			return err
		}
	}
	return w.Close()
}

// New builds the backend selected by cfg.Type.
func New(cfg *config.StorageConfig, logger *slog.Logger) (Storage, error) {
	switch cfg.Type {
	case "", "jsonl":
		return NewJSONLStorage(cfg.OutputPath, logger), nil
	case "mongodb":
		return NewMongoStorage(cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection, cfg.Mongo.Timeout, logger)
	case "multi":
		mongo, err := NewMongoStorage(cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection, cfg.Mongo.Timeout, logger)
		if err != nil {
			return nil, err
		}
		return NewMultiStorage([]Storage{NewJSONLStorage(cfg.OutputPath, logger), mongo}, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
