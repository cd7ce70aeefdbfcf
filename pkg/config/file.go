package config

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/splitkb/battext/pkg/battery"
	"github.com/splitkb/battext/pkg/queue"
	"github.com/splitkb/battext/pkg/utils/ptr"
)

// DefaultBindingName is the binding created when the config declares none.
const DefaultBindingName = "battery_text"

var (
	defaultFileConfig = &RawFileConfig{
		TapMs:              ptr.To(10),
		WaitMs:             ptr.To(10),
		PeripheralFetching: ptr.To(string(battery.FetchEnabled)),
		PeripheralCount:    ptr.To(1),
		QueueSize:          ptr.To(queue.DefaultSize),
		AtomicFlush:        ptr.To(true),
		LocalSource:        ptr.To(LocalSourceHost),
		StaticLocalLevel:   ptr.To(100),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	TapMs              *int         `json:"tapMs,omitempty" yaml:"tapMs,omitempty"`
	WaitMs             *int         `json:"waitMs,omitempty" yaml:"waitMs,omitempty"`
	PeripheralFetching *string      `json:"peripheralFetching,omitempty" yaml:"peripheralFetching,omitempty"`
	PeripheralCount    *int         `json:"peripheralCount,omitempty" yaml:"peripheralCount,omitempty"`
	QueueSize          *int         `json:"queueSize,omitempty" yaml:"queueSize,omitempty"`
	AtomicFlush        *bool        `json:"atomicFlush,omitempty" yaml:"atomicFlush,omitempty"`
	LocalSource        *string      `json:"localSource,omitempty" yaml:"localSource,omitempty"`
	StaticLocalLevel   *int         `json:"staticLocalLevel,omitempty" yaml:"staticLocalLevel,omitempty"`
	Bindings           []RawBinding `json:"bindings,omitempty" yaml:"bindings,omitempty"`
}

// RawBinding is a binding entry as written in the file. Unset timings fall
// back to the top-level ones.
type RawBinding struct {
	Name   string `json:"name" yaml:"name"`
	TapMs  *int   `json:"tapMs,omitempty" yaml:"tapMs,omitempty"`
	WaitMs *int   `json:"waitMs,omitempty" yaml:"waitMs,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	rawConfig := &RawFileConfig{
		TapMs:              ptr.To(c.TapMs()),
		WaitMs:             ptr.To(c.WaitMs()),
		PeripheralFetching: ptr.To(string(c.PeripheralFetching())),
		PeripheralCount:    ptr.To(c.PeripheralCount()),
		QueueSize:          ptr.To(c.QueueSize()),
		AtomicFlush:        ptr.To(c.AtomicFlush()),
		LocalSource:        ptr.To(c.LocalSource()),
		StaticLocalLevel:   ptr.To(c.StaticLocalLevel()),
	}
	for _, b := range c.Bindings() {
		rawConfig.Bindings = append(rawConfig.Bindings, RawBinding{
			Name:   b.Name,
			TapMs:  ptr.To(b.TapMs),
			WaitMs: ptr.To(b.WaitMs),
		})
	}

	return rawConfig, nil
}

// Path returns the file the config is loaded from and saved to.
func (f *File) Path() string {
	return f.filepath
}

func (f *File) raw() *RawFileConfig {
	if f.c == nil {
		panic("config is nil")
	}
	return f.c
}

func (f *File) TapMs() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.raw().TapMs, *defaultFileConfig.TapMs)
}

func (f *File) WaitMs() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.raw().WaitMs, *defaultFileConfig.WaitMs)
}

func (f *File) PeripheralFetching() battery.FetchMode {
	f.mu.RLock()
	defer f.mu.RUnlock()

	mode, err := battery.ParseFetchMode(ptr.Deref(f.raw().PeripheralFetching, *defaultFileConfig.PeripheralFetching))
	if err != nil {
		// Load rejects invalid modes, so this only happens for configs
		// built in code.
		return battery.FetchEnabled
	}

	return mode
}

func (f *File) PeripheralCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.raw().PeripheralCount, *defaultFileConfig.PeripheralCount)
}

func (f *File) QueueSize() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.raw().QueueSize, *defaultFileConfig.QueueSize)
}

func (f *File) AtomicFlush() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.raw().AtomicFlush, *defaultFileConfig.AtomicFlush)
}

func (f *File) LocalSource() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.raw().LocalSource, *defaultFileConfig.LocalSource)
}

func (f *File) StaticLocalLevel() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.raw().StaticLocalLevel, *defaultFileConfig.StaticLocalLevel)
}

func (f *File) Bindings() []Binding {
	tap, wait := f.TapMs(), f.WaitMs()

	f.mu.RLock()
	defer f.mu.RUnlock()

	raw := f.raw().Bindings
	if len(raw) == 0 {
		return []Binding{{Name: DefaultBindingName, TapMs: tap, WaitMs: wait}}
	}

	bindings := make([]Binding, 0, len(raw))
	for _, b := range raw {
		bindings = append(bindings, Binding{
			Name:   b.Name,
			TapMs:  ptr.Deref(b.TapMs, tap),
			WaitMs: ptr.Deref(b.WaitMs, wait),
		})
	}

	return bindings
}

func (f *File) SetTapMs(i int) {
	if i < 0 {
		panic("tap time must not be negative")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw().TapMs = &i
}

func (f *File) SetWaitMs(i int) {
	if i < 0 {
		panic("wait time must not be negative")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw().WaitMs = &i
}

func (f *File) SetPeripheralFetching(m battery.FetchMode) {
	if _, err := battery.ParseFetchMode(string(m)); err != nil {
		panic(err.Error())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	s := string(m)
	f.raw().PeripheralFetching = &s
}

func (f *File) SetAtomicFlush(b bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw().AtomicFlush = &b
}

func (f *File) SetStaticLocalLevel(i int) {
	if i < 0 || i > 100 {
		panic("static local level must be between 0 and 100")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw().StaticLocalLevel = &i
}

func (f *File) isYAML() bool {
	switch strings.ToLower(filepath.Ext(f.filepath)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using a streaming decoder
	// will not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if len(bytes.TrimSpace(b)) == 0 {
		// If the file is empty, return the empty config.
		// Do not make f.c a nil.
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	if f.isYAML() {
		err = yaml.Unmarshal(b, &conf)
	} else {
		err = json.Unmarshal(b, &conf)
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}

	if err := conf.validate(); err != nil {
		return pkgerrors.Wrapf(err, "invalid config in file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	if f.isYAML() {
		enc := yaml.NewEncoder(fp)
		enc.SetIndent(2)
		err = enc.Encode(f.c)
		if err == nil {
			err = enc.Close()
		}
	} else {
		enc := json.NewEncoder(fp)
		enc.SetIndent("", "  ")
		err = enc.Encode(f.c)
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (c *RawFileConfig) validate() error {
	nonNegative := map[string]*int{
		"tapMs":           c.TapMs,
		"waitMs":          c.WaitMs,
		"peripheralCount": c.PeripheralCount,
	}
	for name, v := range nonNegative {
		if v != nil && *v < 0 {
			return pkgerrors.Errorf("%s must not be negative, got %d", name, *v)
		}
	}

	if c.QueueSize != nil && *c.QueueSize <= 0 {
		return pkgerrors.Errorf("queueSize must be positive, got %d", *c.QueueSize)
	}
	if c.StaticLocalLevel != nil && (*c.StaticLocalLevel < 0 || *c.StaticLocalLevel > 100) {
		return pkgerrors.Errorf("staticLocalLevel must be between 0 and 100, got %d", *c.StaticLocalLevel)
	}
	if c.PeripheralFetching != nil {
		if _, err := battery.ParseFetchMode(*c.PeripheralFetching); err != nil {
			return err
		}
	}
	if c.LocalSource != nil && *c.LocalSource != LocalSourceHost && *c.LocalSource != LocalSourceStatic {
		return pkgerrors.Errorf("localSource must be %q or %q, got %q", LocalSourceHost, LocalSourceStatic, *c.LocalSource)
	}

	seen := map[string]bool{}
	for i, b := range c.Bindings {
		if strings.TrimSpace(b.Name) == "" {
			return pkgerrors.Errorf("binding %d has no name", i)
		}
		if seen[b.Name] {
			return pkgerrors.Errorf("duplicate binding %q", b.Name)
		}
		seen[b.Name] = true
		if (b.TapMs != nil && *b.TapMs < 0) || (b.WaitMs != nil && *b.WaitMs < 0) {
			return pkgerrors.Errorf("binding %q has a negative timing", b.Name)
		}
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	names := []string{}
	for _, b := range f.Bindings() {
		names = append(names, b.Name)
	}

	return logrus.Fields{
		"tapMs":              f.TapMs(),
		"waitMs":             f.WaitMs(),
		"peripheralFetching": f.PeripheralFetching(),
		"peripheralCount":    f.PeripheralCount(),
		"queueSize":          f.QueueSize(),
		"atomicFlush":        f.AtomicFlush(),
		"localSource":        f.LocalSource(),
		"bindings":           names,
	}
}
