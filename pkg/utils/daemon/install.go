package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const unitName = "battext.service"

const unitTemplate = `[Unit]
Description=battext daemon, types split keyboard battery levels
After=default.target

[Service]
ExecStart={{exec}} daemon --config {{config}} --daemon-socket {{socket}}{{extra}}
Restart=on-failure
ExecReload=/bin/kill -HUP $MAINPID

[Install]
WantedBy=default.target
`

// InstallOptions are baked into the unit's command line.
type InstallOptions struct {
	ConfigPath         string
	SocketPath         string
	AllowNonRootAccess bool
}

// unitDir is where systemd looks for user units.
func unitDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "systemd", "user"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, ".config", "systemd", "user"), nil
}

// renderUnit fills the unit template for the executable at exePath.
func renderUnit(exePath string, opts InstallOptions) string {
	extra := ""
	if opts.AllowNonRootAccess {
		extra = " --allow-non-root-access"
	}
	return strings.NewReplacer(
		"{{exec}}", exePath,
		"{{config}}", opts.ConfigPath,
		"{{socket}}", opts.SocketPath,
		"{{extra}}", extra,
	).Replace(unitTemplate)
}

// writeUnit writes the unit file into dir and returns its path.
func writeUnit(dir, exePath string, opts InstallOptions) (string, error) {
	// mkdir -p
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	unitPath := filepath.Join(dir, unitName)

	// warn if the file already exists
	if _, err := os.Stat(unitPath); err == nil {
		logrus.Warnf("%s already exists, overwriting", unitPath)
	}

	if err := os.WriteFile(unitPath, []byte(renderUnit(exePath, opts)), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", unitPath, err)
	}

	return unitPath, nil
}

func systemctl(args ...string) error {
	out, err := exec.Command("systemctl", append([]string{"--user"}, args...)...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl --user %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Install registers the battext daemon as a systemd user service and starts it.
func Install(opts InstallOptions) error {
	// Get the path to the current executable
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	dir, err := unitDir()
	if err != nil {
		return err
	}

	unitPath, err := writeUnit(dir, exePath, opts)
	if err != nil {
		return err
	}
	logrus.Infof("wrote %s", unitPath)

	logrus.Infof("starting battext")

	if err := systemctl("daemon-reload"); err != nil {
		return err
	}
	return systemctl("enable", "--now", unitName)
}
