package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	daemonutils "github.com/splitkb/battext/pkg/utils/daemon"
)

// NewInstallCommand .
func NewInstallCommand() *cobra.Command {
	allowNonRoot := false

	cmd := &cobra.Command{
		Use:     "install",
		Short:   "Install battext daemon as a systemd user service",
		GroupID: gAdvanced,
		Long: `Install battext daemon as a systemd user service.

This makes the daemon run in the background and start on login. The current
--config and --daemon-socket values are written into the service.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			err := daemonutils.Install(daemonutils.InstallOptions{
				ConfigPath:         configPath,
				SocketPath:         unixSocketPath,
				AllowNonRootAccess: allowNonRoot,
			})
			if err != nil {
				return fmt.Errorf("failed to install daemon: %v", err)
			}

			logrus.Infof("installation succeeded")

			return nil
		},
	}

	cmd.Flags().BoolVar(&allowNonRoot, "allow-non-root-access", false,
		"Allow non-root users to access the daemon socket.")

	return cmd
}

// NewUninstallCommand .
func NewUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall",
		Short:   "Uninstall battext daemon service",
		GroupID: gAdvanced,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := daemonutils.Uninstall(); err != nil {
				return fmt.Errorf("failed to uninstall daemon: %v", err)
			}

			logrus.Infof("successfully uninstalled battext")

			return nil
		},
	}
}
