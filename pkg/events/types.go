package events

import "encoding/json"

// Event name constants
const (
	// BindingTriggered is published after a battery text press queued its line.
	BindingTriggered = "binding.triggered"
	// BindingFailed is published when a press could not queue its line.
	BindingFailed = "binding.failed"
	// KeyOutput is published for every character typed by the output dispatcher.
	KeyOutput = "key.output"
	// LineCompleted is published once every item queued by a press was output.
	LineCompleted = "line.completed"
	// PeripheralChanged is published when a peripheral reports or disconnects.
	PeripheralChanged = "peripheral.changed"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// BindingTriggeredEvent is the typed payload for binding.triggered.
type BindingTriggeredEvent struct {
	Binding    string `json:"binding"`
	TraceID    string `json:"traceId"`
	Text       string `json:"text"`
	Local      int    `json:"local"`
	Peripheral int    `json:"peripheral"`
	Degraded   bool   `json:"degraded"`
	Items      int    `json:"items"`
	Ts         int64  `json:"ts"`
}

// BindingFailedEvent is the typed payload for binding.failed.
type BindingFailedEvent struct {
	Binding string `json:"binding"`
	TraceID string `json:"traceId"`
	Error   string `json:"error"`
	Ts      int64  `json:"ts"`
}

// KeyOutputEvent is the typed payload for key.output.
type KeyOutputEvent struct {
	TraceID string `json:"traceId,omitempty"`
	Keycode uint32 `json:"keycode"`
	Char    string `json:"char"`
	Ts      int64  `json:"ts"`
}

// LineCompletedEvent is the typed payload for line.completed.
type LineCompletedEvent struct {
	TraceID string `json:"traceId"`
	Text    string `json:"text"`
	Items   int    `json:"items"`
	Ts      int64  `json:"ts"`
}

// PeripheralChangedEvent is the typed payload for peripheral.changed. Level
// is nil when the peripheral disconnected.
type PeripheralChangedEvent struct {
	Index int   `json:"index"`
	Level *int  `json:"level"`
	Ts    int64 `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.BindingTriggeredEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.Binding, payload.Text)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
