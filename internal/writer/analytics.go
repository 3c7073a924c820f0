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

// AnalyticsWriter consumes per-tick analytics rows and writes to the
// analytics table.
type AnalyticsWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	input *sink.Buffer[model.AnalyticsRow]
	db    *pgxpool.Pool

	batch       []analyticsRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

// NewAnalyticsWriter creates a new AnalyticsWriter.
func NewAnalyticsWriter(
	cfg WriterConfig,
	input *sink.Buffer[model.AnalyticsRow],
	db *pgxpool.Pool,
	logger *slog.Logger,
) *AnalyticsWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyticsWriter{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]analyticsRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming rows and writing to the database.
func (w *AnalyticsWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("analytics writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer.
func (w *AnalyticsWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping analytics writer")

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("analytics writer stopped")
	case <-ctx.Done():
		w.logger.Warn("analytics writer stop timed out")
	}

	w.flush()
	return nil
}

// Stats returns current metrics.
func (w *AnalyticsWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *AnalyticsWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			row, ok := w.input.TryReceive()
			if !ok {
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}

			w.handleRow(row)
		}
	}
}

func (w *AnalyticsWriter) flushLoop() {
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

func (w *AnalyticsWriter) handleRow(row model.AnalyticsRow) {
	r := w.transform(row)

	w.batchMu.Lock()
	w.batch = append(w.batch, r)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// transform converts a model.AnalyticsRow to an analyticsRow.
func (w *AnalyticsWriter) transform(row model.AnalyticsRow) analyticsRow {
	return analyticsRow{
		Timestamp:          row.Timestamp,
		Symbol:             row.Symbol,
		BidAskSpread:       row.BidAskSpread,
		MidPrice:           row.MidPrice,
		Imbalance:          row.Imbalance,
		BidDepth:           row.BidDepth,
		AskDepth:           row.AskDepth,
		EffectiveSpread:    row.EffectiveSpread,
		PriceImpact:        row.PriceImpact,
		RealizedVolatility: row.RealizedVol,
	}
}

func (w *AnalyticsWriter) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	batch := w.batch
	w.batch = make([]analyticsRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	if err := w.batchInsert(batch); err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch))
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed analytics rows",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

func (w *AnalyticsWriter) batchInsert(rows []analyticsRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO analytics (timestamp, symbol, bid_ask_spread, mid_price, imbalance, bid_depth, ask_depth, effective_spread, price_impact, realized_volatility)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, r.Timestamp, r.Symbol, r.BidAskSpread, r.MidPrice, r.Imbalance, r.BidDepth, r.AskDepth, r.EffectiveSpread, r.PriceImpact, r.RealizedVolatility)
	}

	results := w.db.SendBatch(w.ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return nil
}
