package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/splitkb/battext/pkg/battery"
	"github.com/splitkb/battext/pkg/behavior"
	"github.com/splitkb/battext/pkg/queue"
)

type failingPeripheral struct{}

func (failingPeripheral) PeripheralBatteryLevel(_ context.Context, _ int) (int, error) {
	return 0, battery.ErrNotConnected
}

func NewRenderCommand() *cobra.Command {
	var (
		local      int
		peripheral int
		fetching   string
		fail       bool
		showItems  bool
		timing     = behavior.DefaultTiming()
	)

	cmd := &cobra.Command{
		Use:     "render",
		Short:   "Run a battery text press locally and print what it types",
		GroupID: gAdvanced,
		Long: `Run a battery text press locally and print what it types.

No daemon is needed. The press goes through the same encoder and behavior
queue the daemon uses, with fixed battery levels.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := battery.ParseFetchMode(fetching)
			if err != nil {
				return err
			}

			cache := battery.NewPeripheralCache(1)
			if err := cache.Report(battery.PeripheralIndex, peripheral); err != nil {
				return err
			}
			acq := &battery.Acquirer{Local: battery.NewStatic(local), Peripheral: cache, Mode: mode}
			if fail {
				acq.Peripheral = failingPeripheral{}
			}

			q := queue.New(queue.DefaultSize, nil)
			rec := queue.NewRecorder()

			b, err := behavior.NewBatteryText(behavior.BatteryTextOptions{
				Name:     "render",
				Acquirer: acq,
				Sink:     q,
				Timing:   timing,
				Atomic:   true,
			})
			if err != nil {
				return err
			}

			if _, err := b.Pressed(cmd.Context(), queue.Event{Timestamp: time.Now()}); err != nil {
				return err
			}
			q.Close()
			q.Run(cmd.Context(), rec)

			if showItems {
				for _, it := range rec.Items() {
					state := "release"
					if it.Pressed {
						state = "press"
					}
					cmd.Printf("  %-7s %-8s wait %v\n", state, it.Binding.Param1.String(), it.Wait)
				}
			}
			cmd.Println(bold("%s", rec.Text()))

			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&local, "local", 100, "local battery level")
	f.IntVar(&peripheral, "peripheral", 100, "peripheral battery level")
	f.StringVar(&fetching, "fetching", string(battery.FetchEnabled), "peripheral fetching (enabled, disabled)")
	f.BoolVar(&fail, "peripheral-unavailable", false, "make the peripheral fetch fail")
	f.BoolVar(&showItems, "items", false, "print every queued press and release")
	f.DurationVar(&timing.Tap, "tap", behavior.DefaultTap, "hold time of each tap")
	f.DurationVar(&timing.Wait, "wait", behavior.DefaultWait, "gap after each release")

	cmd.PreRunE = func(_ *cobra.Command, _ []string) error {
		if local < 0 || local > 100 || peripheral < 0 || peripheral > 100 {
			return errors.New("battery levels must be between 0 and 100")
		}
		return nil
	}

	return cmd
}
