package controller

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"sidekick/internal/chaterr"
)

// span times one operation and logs its outcome. End is idempotent so
// the done path and the catch path can both call it without double
// emission.
type span struct {
	logger *zap.Logger
	op     string
	id     string
	start  time.Time
	once   sync.Once
}

func newSpan(logger *zap.Logger, op, id string) *span {
	return &span{logger: logger, op: op, id: id, start: time.Now()}
}

func (s *span) End(err error) {
	s.once.Do(func() {
		fields := []zap.Field{
			zap.String("op", s.op),
			zap.String("request", s.id),
			zap.Duration("elapsed", time.Since(s.start)),
		}
		switch {
		case err == nil:
			s.logger.Debug("operation complete", fields...)
		case chaterr.IsCancellation(err):
			s.logger.Debug("operation cancelled", fields...)
		default:
			s.logger.Warn("operation failed", append(fields, zap.Error(err))...)
		}
	})
}
