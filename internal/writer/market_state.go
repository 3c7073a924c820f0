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

// StateWriter consumes per-tick market states and writes to the
// market_state table.
type StateWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	input *sink.Buffer[model.MarketState]
	db    *pgxpool.Pool

	batch       []marketStateRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

// NewStateWriter creates a new StateWriter.
func NewStateWriter(
	cfg WriterConfig,
	input *sink.Buffer[model.MarketState],
	db *pgxpool.Pool,
	logger *slog.Logger,
) *StateWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateWriter{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]marketStateRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming states and writing to the database.
func (w *StateWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("market state writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer.
func (w *StateWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping market state writer")

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
		w.logger.Info("market state writer stopped")
	case <-ctx.Done():
		w.logger.Warn("market state writer stop timed out")
	}

	w.flush()
	return nil
}

// Stats returns current metrics.
func (w *StateWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *StateWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			st, ok := w.input.TryReceive()
			if !ok {
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}

			w.handleState(st)
		}
	}
}

func (w *StateWriter) flushLoop() {
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

func (w *StateWriter) handleState(st model.MarketState) {
	row := w.transform(st)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// transform converts a MarketState to a marketStateRow.
func (w *StateWriter) transform(st model.MarketState) marketStateRow {
	return marketStateRow{
		Timestamp:  st.Timestamp,
		Symbol:     st.Symbol,
		LastPrice:  st.LastPrice,
		Volume:     st.Volume,
		Liquidity:  st.Liquidity,
		Volatility: st.RealizedVol,
		Momentum:   st.Momentum,
		Spread:     st.Spread,
	}
}

func (w *StateWriter) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	batch := w.batch
	w.batch = make([]marketStateRow, 0, w.cfg.BatchSize)
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

	w.logger.Debug("flushed market states",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

func (w *StateWriter) batchInsert(rows []marketStateRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO market_state (timestamp, symbol, last_price, volume, liquidity, volatility, momentum, spread)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, r.Timestamp, r.Symbol, r.LastPrice, r.Volume, r.Liquidity, r.Volatility, r.Momentum, r.Spread)
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
