package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
)

func parseIntArg(args []string, valueName string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("invalid number of arguments")
	}

	value, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", valueName, err)
	}

	return value, nil
}

func parsePercentage(s string, valueName string) (int, error) {
	value, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", valueName, err)
	}
	if value < 0 || value > 100 {
		return 0, fmt.Errorf("%s must be between 0 and 100, got %d", valueName, value)
	}
	return value, nil
}

// bindingArg returns the binding named in args, or the only/default binding.
func bindingArg(args []string) (string, error) {
	if len(args) > 1 {
		return "", fmt.Errorf("invalid number of arguments")
	}
	if len(args) == 1 {
		return args[0], nil
	}

	names, err := apiClient.GetBindings()
	if err != nil {
		return "", err
	}
	if len(names) != 1 {
		return "", fmt.Errorf("daemon has %d bindings %v, name the one to trigger", len(names), names)
	}
	return names[0], nil
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}

func levelText(level int) string {
	switch {
	case level >= 60:
		return color.New(color.Bold, color.FgGreen).Sprintf("%d%%", level)
	case level >= 20:
		return color.New(color.Bold, color.FgYellow).Sprintf("%d%%", level)
	default:
		return color.New(color.Bold, color.FgRed).Sprintf("%d%%", level)
	}
}
