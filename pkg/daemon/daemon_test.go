package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"

	"github.com/splitkb/battext/pkg/config"
	"github.com/splitkb/battext/pkg/utils/ptr"
)

func newTestDaemon(t *testing.T, raw *config.RawFileConfig) (*Daemon, *gin.Engine) {
	t.Helper()
	if raw.LocalSource == nil {
		raw.LocalSource = ptr.To(config.LocalSourceStatic)
	}
	if raw.TapMs == nil {
		raw.TapMs = ptr.To(0)
	}
	if raw.WaitMs == nil {
		raw.WaitMs = ptr.To(0)
	}

	d, err := New(config.NewFileFromConfig(raw, filepath.Join(t.TempDir(), "battext.json")), nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	d.Start(ctx)

	return d, d.setupRoutes()
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func waitForLine(t *testing.T, d *Daemon, traceID, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, l := range d.output.Lines() {
			if l.TraceID == traceID && l.Text == want {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("line %q for trace %s never appeared, have %+v", want, traceID, d.output.Lines())
}

func press(t *testing.T, r http.Handler, name string) TriggerResponse {
	t.Helper()
	w := do(t, r, http.MethodPost, "/bindings/"+name+"/press?position=4", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("press returned %d: %s", w.Code, w.Body.String())
	}
	var resp TriggerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode press response: %v", err)
	}
	if resp.Result != "opaque" || resp.TraceID == "" {
		t.Fatalf("unexpected press response %+v", resp)
	}
	return resp
}

func TestPressTypesStatusLine(t *testing.T) {
	d, r := newTestDaemon(t, &config.RawFileConfig{StaticLocalLevel: ptr.To(87)})

	resp := press(t, r, config.DefaultBindingName)
	waitForLine(t, d, resp.TraceID, "L:87% R:0%")

	if w := do(t, r, http.MethodPut, "/peripherals/0/battery", "5"); w.Code != http.StatusCreated {
		t.Fatalf("setting peripheral level returned %d: %s", w.Code, w.Body.String())
	}
	resp = press(t, r, config.DefaultBindingName)
	waitForLine(t, d, resp.TraceID, "L:87% R:5%")

	if w := do(t, r, http.MethodDelete, "/peripherals/0/battery", ""); w.Code != http.StatusOK {
		t.Fatalf("disconnecting peripheral returned %d", w.Code)
	}
	resp = press(t, r, config.DefaultBindingName)
	waitForLine(t, d, resp.TraceID, "L:87% R:0%")
}

func TestPressWithFetchingDisabled(t *testing.T) {
	d, r := newTestDaemon(t, &config.RawFileConfig{
		StaticLocalLevel:   ptr.To(42),
		PeripheralFetching: ptr.To("disabled"),
	})

	if w := do(t, r, http.MethodPut, "/peripherals/0/battery", "77"); w.Code != http.StatusCreated {
		t.Fatalf("setting peripheral level returned %d", w.Code)
	}
	resp := press(t, r, config.DefaultBindingName)
	waitForLine(t, d, resp.TraceID, "L:42% R:0%")
}

func TestReleaseQueuesNothing(t *testing.T) {
	d, r := newTestDaemon(t, &config.RawFileConfig{})

	w := do(t, r, http.MethodPost, "/bindings/"+config.DefaultBindingName+"/release", "")
	if w.Code != http.StatusOK {
		t.Fatalf("release returned %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "opaque") {
		t.Errorf("release response %s", w.Body.String())
	}
	if d.queue.Len() != 0 {
		t.Errorf("release queued %d items", d.queue.Len())
	}
}

func TestPressQueueFull(t *testing.T) {
	_, r := newTestDaemon(t, &config.RawFileConfig{QueueSize: ptr.To(4)})

	w := do(t, r, http.MethodPost, "/bindings/"+config.DefaultBindingName+"/press", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("press returned %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestHandlerErrors(t *testing.T) {
	_, r := newTestDaemon(t, &config.RawFileConfig{})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "unknown binding", method: http.MethodPost, path: "/bindings/nope/press", want: http.StatusNotFound},
		{name: "bad position", method: http.MethodPost, path: "/bindings/battery_text/press?position=x", want: http.StatusBadRequest},
		{name: "bad peripheral index", method: http.MethodPut, path: "/peripherals/x/battery", body: "1", want: http.StatusBadRequest},
		{name: "missing peripheral", method: http.MethodPut, path: "/peripherals/3/battery", body: "1", want: http.StatusNotFound},
		{name: "level out of range", method: http.MethodPut, path: "/peripherals/0/battery", body: "101", want: http.StatusBadRequest},
		{name: "level not a number", method: http.MethodPut, path: "/peripherals/0/battery", body: `"full"`, want: http.StatusBadRequest},
		{name: "local level out of range", method: http.MethodPut, path: "/local-battery", body: "-1", want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, r, tt.method, tt.path, tt.body); w.Code != tt.want {
				t.Errorf("%s %s returned %d, want %d", tt.method, tt.path, w.Code, tt.want)
			}
		})
	}
}

func TestLocalBattery(t *testing.T) {
	_, r := newTestDaemon(t, &config.RawFileConfig{StaticLocalLevel: ptr.To(30)})

	if w := do(t, r, http.MethodGet, "/local-battery", ""); strings.TrimSpace(w.Body.String()) != "30" {
		t.Fatalf("local battery = %s", w.Body.String())
	}
	if w := do(t, r, http.MethodPut, "/local-battery", "55"); w.Code != http.StatusCreated {
		t.Fatalf("set local battery returned %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/local-battery", ""); strings.TrimSpace(w.Body.String()) != "55" {
		t.Fatalf("local battery = %s", w.Body.String())
	}
}

func TestGetPeripheralsAndBindings(t *testing.T) {
	_, r := newTestDaemon(t, &config.RawFileConfig{
		PeripheralCount: ptr.To(2),
		Bindings:        []config.RawBinding{{Name: "b"}, {Name: "a"}},
	})

	do(t, r, http.MethodPut, "/peripherals/1/battery", "12")

	var peripherals []PeripheralStatus
	if err := json.Unmarshal(do(t, r, http.MethodGet, "/peripherals", "").Body.Bytes(), &peripherals); err != nil {
		t.Fatalf("failed to decode peripherals: %v", err)
	}
	if len(peripherals) != 2 || peripherals[0].Connected || !peripherals[1].Connected || *peripherals[1].Level != 12 {
		t.Errorf("unexpected peripherals %+v", peripherals)
	}

	var names []string
	if err := json.Unmarshal(do(t, r, http.MethodGet, "/bindings", "").Body.Bytes(), &names); err != nil {
		t.Fatalf("failed to decode bindings: %v", err)
	}
	if strings.Join(names, ",") != "a,b" {
		t.Errorf("bindings = %v", names)
	}
}

func hasEntry(hook *logrustest.Hook, level logrus.Level, substr string) bool {
	for _, e := range hook.AllEntries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestReloadReportsStartupOnlyChanges(t *testing.T) {
	tests := []struct {
		name      string
		source    string
		change    func(raw *config.RawFileConfig)
		level     logrus.Level
		message   string
		wantLocal int
		// repeated reports whether every later reload logs it again.
		repeated bool
	}{
		{
			name:      "local source",
			source:    config.LocalSourceStatic,
			change:    func(raw *config.RawFileConfig) { raw.LocalSource = ptr.To(config.LocalSourceHost) },
			level:     logrus.WarnLevel,
			message:   "local source changed",
			wantLocal: 50,
			repeated:  true,
		},
		{
			name:      "static level with the static source",
			source:    config.LocalSourceStatic,
			change:    func(raw *config.RawFileConfig) { raw.StaticLocalLevel = ptr.To(20) },
			level:     logrus.InfoLevel,
			message:   "static local level changed to 20%",
			wantLocal: 20,
		},
		{
			name:    "static level with the host source",
			source:  config.LocalSourceHost,
			change:  func(raw *config.RawFileConfig) { raw.StaticLocalLevel = ptr.To(20) },
			level:   logrus.WarnLevel,
			message: "only applies to",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := logrustest.NewNullLogger()
			raw := &config.RawFileConfig{LocalSource: ptr.To(tt.source), StaticLocalLevel: ptr.To(50)}

			d, err := New(config.NewFileFromConfig(raw, ""), logger)
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			hook.Reset()

			tt.change(raw)
			if err := d.Reload(); err != nil {
				t.Fatalf("Reload returned error: %v", err)
			}
			if !hasEntry(hook, tt.level, tt.message) {
				t.Errorf("no %s entry containing %q, got %d entries", tt.level, tt.message, len(hook.AllEntries()))
			}
			if tt.source == config.LocalSourceStatic {
				if got := d.local.StateOfCharge(); got != tt.wantLocal {
					t.Errorf("local level after reload = %d, want %d", got, tt.wantLocal)
				}
			}

			hook.Reset()
			if err := d.Reload(); err != nil {
				t.Fatalf("Reload returned error: %v", err)
			}
			if got := hasEntry(hook, tt.level, tt.message); got != tt.repeated {
				t.Errorf("second reload logged %q: %t, want %t", tt.message, got, tt.repeated)
			}
		})
	}
}
