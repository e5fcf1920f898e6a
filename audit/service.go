// Package audit records mutating API calls asynchronously. Losing an audit
// record never fails the request that produced it.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/questboard/questboard/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	queueSize     = 1024
	batchSize     = 100
	flushInterval = 2 * time.Second
	writeTimeout  = 5 * time.Second
)

// Writer persists a batch of audit records.
type Writer interface {
	WriteAudit(ctx context.Context, batch []*model.AuditLog) error
}

// Entry holds one audit event to be logged.
type Entry struct {
	TraceID    string
	Actor      string
	QuestID    *int64
	Action     string
	Request    interface{}
	Response   interface{}
	Error      string
	IP         string
	DurationMs int
}

// Service logs audit entries asynchronously in batches.
type Service struct {
	w      Writer
	ch     chan *model.AuditLog
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New creates a new audit Service and starts its background worker.
func New(w Writer, logger *zap.Logger) *Service {
	svc := &Service{
		w:      w,
		ch:     make(chan *model.AuditLog, queueSize),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Log enqueues an audit entry for async write. It never blocks.
func (svc *Service) Log(entry Entry) {
	record := &model.AuditLog{
		TraceID:    entry.TraceID,
		Actor:      entry.Actor,
		QuestID:    entry.QuestID,
		Action:     entry.Action,
		Request:    toJSON(entry.Request),
		Response:   toJSON(entry.Response),
		Error:      entry.Error,
		IP:         entry.IP,
		DurationMs: entry.DurationMs,
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("audit channel full, dropping entry",
			zap.String("action", entry.Action))
	}
}

func toJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop(_ context.Context) {
	svc.once.Do(func() { close(svc.stopCh) })
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]*model.AuditLog, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := svc.w.WriteAudit(ctx, batch); err != nil {
			svc.logger.Error("audit batch write failed", zap.Int("dropped", len(batch)), zap.Error(err))
		}
		batch = make([]*model.AuditLog, 0, batchSize)
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			// Drain remaining entries.
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
					if len(batch) >= batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}
