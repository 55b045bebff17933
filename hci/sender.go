package hci

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/bthost/bleadv"
)

// ReadyPolicy bounds the transport readiness poll that runs before
// every send: at most Attempts polls with Interval sleeps between them.
type ReadyPolicy struct {
	Attempts int
	Interval time.Duration
}

// DefaultReadyPolicy returns the stock poll policy.
func DefaultReadyPolicy() ReadyPolicy {
	return ReadyPolicy{Attempts: 3, Interval: 10 * time.Millisecond}
}

// minReadySleep keeps a zero interval from turning into a busy loop.
const minReadySleep = time.Millisecond

// sender pushes frames at a transport, polling readiness first. An
// exhausted poll budget degrades to best effort instead of failing the
// send; the caller hears about it through the error handler.
type sender struct {
	mu sync.Mutex

	tr     bleadv.Transport
	policy ReadyPolicy
	sleep  func(time.Duration)

	logger       bleadv.Logger
	errorHandler func(error)

	degraded int
}

func newSender(l bleadv.Logger) *sender {
	return &sender{
		policy: DefaultReadyPolicy(),
		sleep:  time.Sleep,
		logger: l,
	}
}

func (s *sender) bind(tr bleadv.Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tr = tr
}

func (s *sender) send(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tr == nil {
		return errors.New("no transport bound")
	}

	interval := s.policy.Interval
	if interval < minReadySleep {
		interval = minReadySleep
	}

	ready := s.tr.Ready()
	for attempt := 1; !ready && attempt < s.policy.Attempts; attempt++ {
		s.sleep(interval)
		ready = s.tr.Ready()
	}
	if !ready {
		s.degraded++
		s.logger.Warnf("transport not ready after %d polls, sending anyway", s.policy.Attempts)
		if s.errorHandler != nil {
			s.errorHandler(bleadv.ErrTransportDegraded)
		}
	}

	s.logger.Debugf("tx [% X]", b)
	return errors.Wrap(s.tr.Send(b), "send frame")
}

func (s *sender) degradedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}
