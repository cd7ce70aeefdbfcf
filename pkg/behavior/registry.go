package behavior

import (
	"sort"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/splitkb/battext/pkg/battery"
	"github.com/splitkb/battext/pkg/config"
	"github.com/splitkb/battext/pkg/queue"
)

// Registry maps binding names to behavior instances.
type Registry struct {
	mu        sync.RWMutex
	behaviors map[string]Behavior
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{behaviors: map[string]Behavior{}}
}

// Register adds b under name. Names must be unique.
func (r *Registry) Register(name string, b Behavior) error {
	if name == "" {
		return pkgerrors.New("binding name must not be empty")
	}
	if b == nil {
		return pkgerrors.Errorf("binding %q has no behavior", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.behaviors[name]; ok {
		return pkgerrors.Errorf("binding %q is already registered", name)
	}
	r.behaviors[name] = b

	return nil
}

// Get returns the behavior registered under name.
func (r *Registry) Get(name string) (Behavior, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.behaviors[name]
	return b, ok
}

// Names returns the registered binding names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.behaviors))
	for n := range r.behaviors {
		names = append(names, n)
	}
	sort.Strings(names)

	return names
}

// NewRegistryFromConfig builds one battery text behavior per configured
// binding, all sharing acq and sink.
func NewRegistryFromConfig(
	conf config.Config,
	acq *battery.Acquirer,
	sink queue.Sink,
	logger logrus.FieldLogger,
	onTriggered func(Triggered),
) (*Registry, error) {
	r := NewRegistry()

	for _, bc := range conf.Bindings() {
		b, err := NewBatteryText(BatteryTextOptions{
			Name:     bc.Name,
			Acquirer: acq,
			Sink:     sink,
			Timing: Timing{
				Tap:  time.Duration(bc.TapMs) * time.Millisecond,
				Wait: time.Duration(bc.WaitMs) * time.Millisecond,
			},
			Atomic:      conf.AtomicFlush(),
			Logger:      logger,
			OnTriggered: onTriggered,
		})
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to create binding %q", bc.Name)
		}
		if err := r.Register(bc.Name, b); err != nil {
			return nil, err
		}
	}

	return r, nil
}
