package battery

import (
	"math"
	"sync"

	"github.com/distatus/battery"
	"github.com/sirupsen/logrus"
)

var _ LocalAccessor = &Host{}

// Host reads the local state of charge from the batteries of the machine
// running the daemon. Multiple batteries are combined by capacity.
type Host struct {
	mu     *sync.Mutex
	last   int
	getAll func() ([]*battery.Battery, error)
	logger logrus.FieldLogger
}

// NewHost returns a Host backed by the operating system's battery API.
func NewHost(logger logrus.FieldLogger) *Host {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Host{
		mu:     &sync.Mutex{},
		getAll: battery.GetAll,
		logger: logger,
	}
}

// StateOfCharge returns the current charge in percent. When the batteries
// cannot be read, the last good value is returned (0 before any success).
func (h *Host) StateOfCharge() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	batteries, err := h.getAll()

	var current, full float64
	for _, b := range batteries {
		if b == nil || b.Full <= 0 {
			continue
		}
		current += b.Current
		full += b.Full
	}

	if full <= 0 {
		if err != nil {
			h.logger.Warnf("failed to read host batteries, using last level %d%%: %v", h.last, err)
		} else {
			h.logger.Warnf("no host batteries found, using last level %d%%", h.last)
		}
		return h.last
	}

	h.last = Clamp(int(math.Round(current / full * 100)))
	h.logger.WithFields(logrus.Fields{
		"current": current,
		"full":    full,
	}).Debugf("host battery charge %d%%", h.last)

	return h.last
}

var _ LocalAccessor = &Static{}

// Static is a local accessor returning a configured level.
type Static struct {
	mu    sync.RWMutex
	level int
}

// NewStatic returns a Static reporting level, clamped to [0, 100].
func NewStatic(level int) *Static {
	return &Static{level: Clamp(level)}
}

func (s *Static) StateOfCharge() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.level
}

// Set changes the reported level.
func (s *Static) Set(level int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.level = Clamp(level)
}
