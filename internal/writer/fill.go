package writer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/market-sim/internal/model"
	"github.com/rickgao/market-sim/internal/sink"
)

// FillWriter consumes fills from the sink buffer and writes to the fills table.
type FillWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	// Input from the simulation sink
	input *sink.Buffer[model.Fill]

	// Database
	db *pgxpool.Pool

	// Batching
	batch       []fillRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics WriterMetrics
}

// NewFillWriter creates a new FillWriter.
func NewFillWriter(
	cfg WriterConfig,
	input *sink.Buffer[model.Fill],
	db *pgxpool.Pool,
	logger *slog.Logger,
) *FillWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FillWriter{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]fillRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming fills and writing to the database.
func (w *FillWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	// Consumer goroutine
	w.wg.Add(1)
	go w.consumeLoop()

	// Flush ticker goroutine
	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("fill writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer.
func (w *FillWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping fill writer")

	if w.cancel != nil {
		w.cancel()
	}

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	// Wait for goroutines
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("fill writer stopped")
	case <-ctx.Done():
		w.logger.Warn("fill writer stop timed out")
	}

	// Final flush
	w.flush()

	return nil
}

// Stats returns current metrics.
func (w *FillWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop reads from the input buffer and accumulates batches.
func (w *FillWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			// Use TryReceive with context check for responsiveness
			f, ok := w.input.TryReceive()
			if !ok {
				// Buffer empty, wait a bit before trying again
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}

			w.handleFill(f)
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *FillWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush()
		}
	}
}

// handleFill transforms and adds a fill to the batch.
func (w *FillWriter) handleFill(f model.Fill) {
	row := w.transform(f)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// transform converts a Fill to a fillRow.
func (w *FillWriter) transform(f model.Fill) fillRow {
	return fillRow{
		Timestamp: f.Timestamp,
		FillID:    f.FillID.String(),
		OrderID:   int64(f.OrderID),
		Symbol:    f.Symbol,
		Side:      f.Side.String(),
		Price:     f.Price,
		Quantity:  f.Quantity,
	}
}

// flush writes the current batch to the database.
func (w *FillWriter) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]fillRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed fills",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *FillWriter) batchInsert(rows []fillRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO fills (timestamp, fill_id, order_id, symbol, side, price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (fill_id) DO NOTHING
		`, r.Timestamp, r.FillID, r.OrderID, r.Symbol, r.Side, r.Price, r.Quantity)
	}

	results := w.db.SendBatch(w.ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
