package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/splitkb/battext/pkg/battery"
	"github.com/splitkb/battext/pkg/config"
	"github.com/splitkb/battext/pkg/daemon"
)

type statusData struct {
	version     string
	local       int
	peripherals []daemon.PeripheralStatus
	output      []daemon.OutputLine
	config      *config.RawFileConfig
}

// fetchStatusData gathers all data required for the status command from the daemon.
func fetchStatusData() (*statusData, error) {
	v, err := apiClient.GetVersion()
	if err != nil {
		return nil, fmt.Errorf("failed to get daemon version: %w", err)
	}

	local, err := apiClient.GetLocalBattery()
	if err != nil {
		return nil, fmt.Errorf("failed to get local battery level: %w", err)
	}

	peripherals, err := apiClient.GetPeripherals()
	if err != nil {
		return nil, fmt.Errorf("failed to get peripherals: %w", err)
	}

	output, err := apiClient.GetOutput()
	if err != nil {
		return nil, fmt.Errorf("failed to get output: %w", err)
	}

	conf, err := apiClient.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	return &statusData{
		version:     v,
		local:       local,
		peripherals: peripherals,
		output:      output,
		config:      conf,
	}, nil
}

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current status of battext",
		Long:    `Get battery levels, recent output, and configuration from the daemon.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := fetchStatusData()
			if err != nil {
				return err
			}

			conf := config.NewFileFromConfig(data.config, "")

			cmd.Println(bold("Battery levels:"))
			cmd.Printf("  Local (%s): %s\n", conf.LocalSource(), levelText(data.local))
			for _, p := range data.peripherals {
				switch {
				case conf.PeripheralFetching() == battery.FetchDisabled:
					cmd.Printf("  Peripheral %d: %s\n", p.Index, bold("not fetched (typed as 0%%)"))
				case p.Connected && p.Level != nil:
					cmd.Printf("  Peripheral %d: %s\n", p.Index, levelText(*p.Level))
				default:
					cmd.Printf("  Peripheral %d: %s\n", p.Index, bold("not connected (typed as 0%%)"))
				}
			}

			cmd.Println()

			cmd.Println(bold("Recent output:"))
			if len(data.output) == 0 {
				cmd.Println("  (nothing typed yet)")
			}
			for _, l := range data.output {
				cmd.Printf("  %s  %s\n", l.Started.Format("15:04:05"), bold("%s", l.Text))
			}

			cmd.Println()

			cmd.Println(bold("Configuration:"))
			cmd.Printf("  Daemon version: %s\n", bold("%s", data.version))
			cmd.Printf("  Peripheral fetching: %s\n", bool2Text(conf.PeripheralFetching() == battery.FetchEnabled))
			cmd.Printf("  Atomic flush: %s\n", bool2Text(conf.AtomicFlush()))
			cmd.Printf("  Queue size: %s\n", bold("%d", conf.QueueSize()))
			for _, b := range conf.Bindings() {
				cmd.Printf("  Binding %s: tap %s, wait %s\n", bold("%s", b.Name), bold("%dms", b.TapMs), bold("%dms", b.WaitMs))
			}

			return nil
		},
	}
}
