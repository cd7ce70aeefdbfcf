package main

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/splitkb/battext/pkg/battery"
)

// configSetter builds a subcommand that sends its single argument to the
// daemon, which saves the config and applies it to the bindings.
func configSetter(use, short string, set func(arg string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ret, err := set(args[0])
			if err != nil {
				return err
			}
			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}
			return nil
		},
	}
}

func parseMillis(s string) (int, error) {
	ms, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid milliseconds: %v", err)
	}
	if ms < 0 {
		return 0, fmt.Errorf("milliseconds must not be negative, got %d", ms)
	}
	return ms, nil
}

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Change the daemon configuration",
		GroupID: gConfig,
		Long: `Change the daemon configuration.

Each change is saved to the daemon's config file and applied to the bindings
right away. Per-binding timings in the file take precedence over tap-ms and
wait-ms.`,
	}

	cmd.AddCommand(
		configSetter("tap-ms [milliseconds]", "Set how long each key is held", func(arg string) (string, error) {
			ms, err := parseMillis(arg)
			if err != nil {
				return "", err
			}
			return apiClient.SetTapMs(ms)
		}),
		configSetter("wait-ms [milliseconds]", "Set the gap after each key release", func(arg string) (string, error) {
			ms, err := parseMillis(arg)
			if err != nil {
				return "", err
			}
			return apiClient.SetWaitMs(ms)
		}),
		configSetter("peripheral-fetching [enabled|disabled]", "Set whether the peripheral level is fetched", func(arg string) (string, error) {
			mode, err := battery.ParseFetchMode(arg)
			if err != nil {
				return "", err
			}
			return apiClient.SetPeripheralFetching(string(mode))
		}),
		configSetter("atomic-flush [true|false]", "Set whether a status line is queued all at once", func(arg string) (string, error) {
			b, err := strconv.ParseBool(arg)
			if err != nil {
				return "", fmt.Errorf("invalid boolean: %v", err)
			}
			return apiClient.SetAtomicFlush(b)
		}),
		configSetter("static-local-level [percentage]", "Set the level of the static local source", func(arg string) (string, error) {
			level, err := parsePercentage(arg, "percentage")
			if err != nil {
				return "", err
			}
			return apiClient.SetStaticLocalLevel(level)
		}),
	)

	return cmd
}
