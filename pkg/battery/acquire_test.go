package battery

import (
	"context"
	"errors"
	"strings"
	"testing"

	pkgerrors "github.com/pkg/errors"
)

type fakePeripheral struct {
	level   int
	err     error
	calls   int
	indexes []int
}

func (f *fakePeripheral) PeripheralBatteryLevel(_ context.Context, index int) (int, error) {
	f.calls++
	f.indexes = append(f.indexes, index)
	return f.level, f.err
}

func TestAcquire(t *testing.T) {
	tests := []struct {
		name           string
		local          int
		peripheral     *fakePeripheral
		mode           FetchMode
		wantLocal      int
		wantPeripheral int
		wantDegraded   bool
		wantCalls      int
	}{
		{
			name:           "fetch succeeds",
			local:          87,
			peripheral:     &fakePeripheral{level: 5},
			mode:           FetchEnabled,
			wantLocal:      87,
			wantPeripheral: 5,
			wantCalls:      1,
		},
		{
			name:           "fetch fails",
			local:          3,
			peripheral:     &fakePeripheral{level: 55, err: errors.New("not connected")},
			mode:           FetchEnabled,
			wantLocal:      3,
			wantPeripheral: 0,
			wantDegraded:   true,
			wantCalls:      1,
		},
		{
			name:           "fetch disabled",
			local:          42,
			peripheral:     &fakePeripheral{level: 77},
			mode:           FetchDisabled,
			wantLocal:      42,
			wantPeripheral: 0,
			wantDegraded:   true,
			wantCalls:      0,
		},
		{
			name:           "out of range values are clamped",
			local:          130,
			peripheral:     &fakePeripheral{level: -4},
			mode:           FetchEnabled,
			wantLocal:      100,
			wantPeripheral: 0,
			wantCalls:      1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Acquirer{
				Local:      staticUnclamped(tt.local),
				Peripheral: tt.peripheral,
				Mode:       tt.mode,
			}
			local, peripheral := a.Acquire(context.Background())
			if local.Source != Local || peripheral.Source != Peripheral {
				t.Fatalf("unexpected sources %v/%v", local.Source, peripheral.Source)
			}
			if local.Percentage != tt.wantLocal {
				t.Errorf("local = %d, want %d", local.Percentage, tt.wantLocal)
			}
			if peripheral.Percentage != tt.wantPeripheral {
				t.Errorf("peripheral = %d, want %d", peripheral.Percentage, tt.wantPeripheral)
			}
			if peripheral.Degraded != tt.wantDegraded {
				t.Errorf("degraded = %t, want %t", peripheral.Degraded, tt.wantDegraded)
			}
			if tt.peripheral.calls != tt.wantCalls {
				t.Errorf("fetch calls = %d, want %d", tt.peripheral.calls, tt.wantCalls)
			}
			for _, idx := range tt.peripheral.indexes {
				if idx != PeripheralIndex {
					t.Errorf("fetched peripheral %d, want %d", idx, PeripheralIndex)
				}
			}
		})
	}
}

// staticUnclamped lets tests feed out-of-range local levels.
type staticUnclamped int

func (s staticUnclamped) StateOfCharge() int { return int(s) }

func TestParseFetchMode(t *testing.T) {
	tests := []struct {
		in      string
		want    FetchMode
		wantErr bool
	}{
		{in: "", want: FetchEnabled},
		{in: "enabled", want: FetchEnabled},
		{in: " Disabled ", want: FetchDisabled},
		{in: "sometimes", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFetchMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFetchMode(%q) error = %v, wantErr %t", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFetchMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseFetchModeErrorHasStack(t *testing.T) {
	_, err := ParseFetchMode("sometimes")
	if err == nil {
		t.Fatalf("expected an error")
	}
	if _, ok := err.(interface{ StackTrace() pkgerrors.StackTrace }); !ok {
		t.Errorf("error %v carries no stack trace", err)
	}
	if !strings.Contains(err.Error(), `"sometimes"`) {
		t.Errorf("error %q does not name the mode", err)
	}
}
