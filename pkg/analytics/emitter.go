package analytics

import (
	"context"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/fractal-terminal/terminalx/pkg/audit"
	"go.uber.org/zap"
)

// Emitter persists snapshots off the request path. Emit never blocks: when the queue is
// full the row is dropped and counted.
type Emitter struct {
	sink    Sink
	pool    pond.Pool
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

type EmitterConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

func DefaultEmitterConfig() EmitterConfig {
	return EmitterConfig{Workers: 4, QueueSize: 256, Timeout: 5 * time.Second}
}

var _ audit.Emitter = (*Emitter)(nil)

func NewEmitter(sink Sink, cfg EmitterConfig, logger *zap.Logger) *Emitter {
	def := DefaultEmitterConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Emitter{
		sink:    sink,
		pool:    pond.NewPool(cfg.Workers, pond.WithQueueSize(cfg.QueueSize), pond.WithNonBlocking(true)),
		timeout: cfg.Timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Emit flattens the snapshot synchronously and schedules the write.
func (e *Emitter) Emit(snapshot *audit.WalletSnapshot, req audit.AuditRequest) {
	if snapshot == nil {
		return
	}
	row := RowFromSnapshot(snapshot, req, e.now())

	err := e.pool.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()

		if err := e.sink.Record(ctx, row); err != nil {
			e.logger.Warn("analytics write failed",
				zap.String("sink", e.sink.Name()),
				zap.String("address", row.Address),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		emitDroppedTotal.Inc()
		e.logger.Debug("analytics row dropped", zap.String("address", row.Address), zap.Error(err))
	}
}

// Close waits for queued writes to finish.
func (e *Emitter) Close() {
	e.pool.StopAndWait()
}
