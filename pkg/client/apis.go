package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	pkgerrors "github.com/pkg/errors"

	"github.com/splitkb/battext/pkg/config"
	"github.com/splitkb/battext/pkg/daemon"
)

// TriggerOptions carries the optional key position and layer of a trigger.
type TriggerOptions struct {
	Position int
	Layer    int
}

func (o TriggerOptions) query() string {
	v := url.Values{}
	if o.Position > 0 {
		v.Set("position", strconv.Itoa(o.Position))
	}
	if o.Layer > 0 {
		v.Set("layer", strconv.Itoa(o.Layer))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (c *Client) trigger(name, action string, opts TriggerOptions) (*daemon.TriggerResponse, error) {
	ret, err := c.Post("/bindings/"+url.PathEscape(name)+"/"+action+opts.query(), "")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to %s binding %s", action, name)
	}

	var resp daemon.TriggerResponse
	if err := json.Unmarshal([]byte(ret), &resp); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal %s response", action)
	}
	return &resp, nil
}

// Press triggers a press of the named binding.
func (c *Client) Press(name string, opts TriggerOptions) (*daemon.TriggerResponse, error) {
	return c.trigger(name, "press", opts)
}

// Release triggers a release of the named binding.
func (c *Client) Release(name string, opts TriggerOptions) (*daemon.TriggerResponse, error) {
	return c.trigger(name, "release", opts)
}

func (c *Client) GetBindings() ([]string, error) {
	ret, err := c.Get("/bindings")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get bindings")
	}

	var names []string
	if err := json.Unmarshal([]byte(ret), &names); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal bindings")
	}
	return names, nil
}

func (c *Client) GetLocalBattery() (int, error) {
	ret, err := c.Get("/local-battery")
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to get local battery level")
	}
	level, err := strconv.Atoi(ret)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to unmarshal local battery level")
	}
	return level, nil
}

func (c *Client) SetLocalBattery(level int) (string, error) {
	return c.Put("/local-battery", strconv.Itoa(level))
}

func (c *Client) GetPeripherals() ([]daemon.PeripheralStatus, error) {
	ret, err := c.Get("/peripherals")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get peripherals")
	}

	var ps []daemon.PeripheralStatus
	if err := json.Unmarshal([]byte(ret), &ps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal peripherals: %w", err)
	}
	return ps, nil
}

func (c *Client) SetPeripheralBattery(index, level int) (string, error) {
	return c.Put(fmt.Sprintf("/peripherals/%d/battery", index), strconv.Itoa(level))
}

func (c *Client) DisconnectPeripheral(index int) (string, error) {
	return c.Delete(fmt.Sprintf("/peripherals/%d/battery", index))
}

func (c *Client) GetOutput() ([]daemon.OutputLine, error) {
	ret, err := c.Get("/output")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get output")
	}

	var lines []daemon.OutputLine
	if err := json.Unmarshal([]byte(ret), &lines); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal output")
	}
	return lines, nil
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}

	var conf config.RawFileConfig
	if err := json.Unmarshal([]byte(ret), &conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}

	return &conf, nil
}

func (c *Client) SetTapMs(ms int) (string, error) {
	return c.Put("/tap-ms", strconv.Itoa(ms))
}

func (c *Client) SetWaitMs(ms int) (string, error) {
	return c.Put("/wait-ms", strconv.Itoa(ms))
}

func (c *Client) SetPeripheralFetching(mode string) (string, error) {
	return c.Put("/peripheral-fetching", strconv.Quote(mode))
}

func (c *Client) SetAtomicFlush(atomic bool) (string, error) {
	return c.Put("/atomic-flush", strconv.FormatBool(atomic))
}

func (c *Client) SetStaticLocalLevel(level int) (string, error) {
	return c.Put("/static-local-level", strconv.Itoa(level))
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}

	var v string
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal version")
	}
	return v, nil
}
