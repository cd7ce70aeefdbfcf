package main

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func NewPeripheralCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "peripheral",
		Short:   "Manage the peripheral battery levels known to the daemon",
		GroupID: gPeripheral,
		Long: `Manage the peripheral battery levels known to the daemon.

The daemon keeps the last level each peripheral reported, the way a split
central does. A peripheral that has not reported is typed as 0%.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List peripherals and their battery levels",
			RunE: func(cmd *cobra.Command, _ []string) error {
				ps, err := apiClient.GetPeripherals()
				if err != nil {
					return err
				}
				for _, p := range ps {
					if p.Connected && p.Level != nil {
						cmd.Printf("  Peripheral %d: %s\n", p.Index, levelText(*p.Level))
					} else {
						cmd.Printf("  Peripheral %d: %s\n", p.Index, bold("not connected"))
					}
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "set [index] [percentage]",
			Short: "Report a peripheral battery level",
			Args:  cobra.ExactArgs(2),
			RunE: func(_ *cobra.Command, args []string) error {
				index, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid index: %v", err)
				}
				level, err := parsePercentage(args[1], "percentage")
				if err != nil {
					return err
				}

				ret, err := apiClient.SetPeripheralBattery(index, level)
				if err != nil {
					return fmt.Errorf("failed to set peripheral %d battery level: %w", index, err)
				}
				if ret != "" {
					logrus.Infof("daemon responded: %s", ret)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "disconnect [index]",
			Short: "Forget a peripheral battery level",
			RunE: func(_ *cobra.Command, args []string) error {
				index, err := parseIntArg(args, "index")
				if err != nil {
					return err
				}

				ret, err := apiClient.DisconnectPeripheral(index)
				if err != nil {
					return fmt.Errorf("failed to disconnect peripheral %d: %w", index, err)
				}
				if ret != "" {
					logrus.Infof("daemon responded: %s", ret)
				}
				return nil
			},
		},
	)

	return cmd
}
