package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/splitkb/battext/pkg/client"
	"github.com/splitkb/battext/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewPressCommand() *cobra.Command {
	var (
		opts client.TriggerOptions
		wait bool
	)

	cmd := &cobra.Command{
		Use:     "press [binding]",
		Short:   "Press a battery text binding",
		GroupID: gBasic,
		Long: `Press a battery text binding.

The daemon reads both battery levels and queues "L:XX% R:YY%" as key taps.
If the daemon hosts a single binding, the name can be omitted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := bindingArg(args)
			if err != nil {
				return err
			}

			resp, err := apiClient.Press(name, opts)
			if err != nil {
				return fmt.Errorf("failed to press %s: %w", name, err)
			}
			logrus.WithField("traceId", resp.TraceID).Infof("pressed %s, result: %s", resp.Binding, resp.Result)

			if !wait {
				return nil
			}

			text, err := waitForOutput(resp.TraceID, 5*time.Second)
			if err != nil {
				return err
			}
			cmd.Println(bold("%s", text))

			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.Position, "position", 0, "key position reported with the press")
	f.IntVar(&opts.Layer, "layer", 0, "keymap layer reported with the press")
	f.BoolVarP(&wait, "wait", "w", false, "wait until the status line has been typed and print it")

	return cmd
}

func NewReleaseCommand() *cobra.Command {
	var opts client.TriggerOptions

	cmd := &cobra.Command{
		Use:     "release [binding]",
		Short:   "Release a battery text binding",
		GroupID: gBasic,
		Long: `Release a battery text binding.

Releasing does nothing besides reporting that the event was handled.`,
		RunE: func(_ *cobra.Command, args []string) error {
			name, err := bindingArg(args)
			if err != nil {
				return err
			}

			resp, err := apiClient.Release(name, opts)
			if err != nil {
				return fmt.Errorf("failed to release %s: %w", name, err)
			}
			logrus.Infof("released %s, result: %s", resp.Binding, resp.Result)

			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.Position, "position", 0, "key position reported with the release")
	f.IntVar(&opts.Layer, "layer", 0, "keymap layer reported with the release")

	return cmd
}

// waitForOutput polls the daemon until every item queued for traceID has
// been output.
func waitForOutput(traceID string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		lines, err := apiClient.GetOutput()
		if err != nil {
			return "", err
		}
		for _, l := range lines {
			if l.TraceID == traceID && l.Complete {
				return l.Text, nil
			}
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("timed out waiting for output of %s", traceID)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func NewLocalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "local [percentage]",
		Short:   "Get or set the local battery level",
		GroupID: gAdvanced,
		Long: `Get or set the local battery level.

Without an argument, prints the level the daemon reads for the local half.
Setting the level only works when the daemon uses the "static" local source.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				level, err := apiClient.GetLocalBattery()
				if err != nil {
					return err
				}
				cmd.Printf("Local battery: %s\n", levelText(level))
				return nil
			}

			level, err := parseIntArg(args, "percentage")
			if err != nil {
				return err
			}
			ret, err := apiClient.SetLocalBattery(level)
			if err != nil {
				return fmt.Errorf("failed to set local battery level: %v", err)
			}
			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}

			return nil
		},
	}

	return cmd
}
