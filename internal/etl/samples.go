package etl

import (
	"go.uber.org/zap"
)

// samples counts errors and keeps the first limit of them for logging.
type samples struct {
	limit int
	count int
	first []error
}

func newSamples(limit int) *samples {
	return &samples{limit: limit}
}

func (s *samples) add(err error) {
	if s.count < s.limit {
		s.first = append(s.first, err)
	}
	s.count++
}

// log writes one summary line plus one line per kept sample.
func (s *samples) log(l *zap.Logger, msg string) {
	if s.count == 0 {
		return
	}
	l.Warn(msg, zap.Int("count", s.count), zap.Int("shown", len(s.first)))
	for i, err := range s.first {
		l.Warn(msg, zap.Int("sample", i+1), zap.Error(err))
	}
}
