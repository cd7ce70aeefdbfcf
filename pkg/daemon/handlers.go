package daemon

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/splitkb/battext/pkg/battery"
	"github.com/splitkb/battext/pkg/behavior"
	"github.com/splitkb/battext/pkg/config"
	"github.com/splitkb/battext/pkg/events"
	"github.com/splitkb/battext/pkg/queue"
	"github.com/splitkb/battext/pkg/version"
)

// TriggerResponse is returned by the press and release endpoints.
type TriggerResponse struct {
	Binding string `json:"binding"`
	Result  string `json:"result"`
	TraceID string `json:"traceId"`
}

// PeripheralStatus is one entry of the peripherals endpoint.
type PeripheralStatus struct {
	Index     int  `json:"index"`
	Connected bool `json:"connected"`
	Level     *int `json:"level"`
}

func abortWithError(c *gin.Context, code int, err error) {
	c.IndentedJSON(code, err.Error())
	_ = c.AbortWithError(code, err)
}

func (d *Daemon) getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(d.conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func (d *Daemon) getBindings(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, d.bindings().Names())
}

// triggerEvent builds the key event for a request. The key position and
// layer can be passed as query parameters.
func triggerEvent(c *gin.Context) (queue.Event, error) {
	ev := queue.Event{
		Timestamp: time.Now(),
		TraceID:   uuid.NewString(),
	}

	for name, dst := range map[string]*int{"position": &ev.Position, "layer": &ev.Layer} {
		v := c.Query(name)
		if v == "" {
			continue
		}
		i, err := strconv.Atoi(v)
		if err != nil || i < 0 {
			return ev, fmt.Errorf("invalid %s %q", name, v)
		}
		*dst = i
	}

	return ev, nil
}

func (d *Daemon) lookupBinding(c *gin.Context) (behavior.Behavior, bool) {
	name := c.Param("name")
	b, ok := d.bindings().Get(name)
	if !ok {
		abortWithError(c, http.StatusNotFound, fmt.Errorf("binding %q not found", name))
		return nil, false
	}
	return b, true
}

func (d *Daemon) pressBinding(c *gin.Context) {
	b, ok := d.lookupBinding(c)
	if !ok {
		return
	}
	ev, err := triggerEvent(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	name := c.Param("name")
	res, err := b.Pressed(c.Request.Context(), ev)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"binding": name,
			"traceId": ev.TraceID,
		}).Errorf("press failed: %v", err)
		d.hub.Publish(events.BindingFailed, events.BindingFailedEvent{
			Binding: name,
			TraceID: ev.TraceID,
			Error:   err.Error(),
			Ts:      time.Now().UnixMilli(),
		})

		code := http.StatusInternalServerError
		if errors.Is(err, queue.ErrQueueFull) || errors.Is(err, queue.ErrClosed) {
			code = http.StatusServiceUnavailable
		}
		abortWithError(c, code, err)
		return
	}

	c.IndentedJSON(http.StatusCreated, TriggerResponse{Binding: name, Result: res.String(), TraceID: ev.TraceID})
}

func (d *Daemon) releaseBinding(c *gin.Context) {
	b, ok := d.lookupBinding(c)
	if !ok {
		return
	}
	ev, err := triggerEvent(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	res, err := b.Released(c.Request.Context(), ev)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	c.IndentedJSON(http.StatusOK, TriggerResponse{Binding: c.Param("name"), Result: res.String(), TraceID: ev.TraceID})
}

func (d *Daemon) getLocalBattery(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, d.local.StateOfCharge())
}

func (d *Daemon) setLocalBattery(c *gin.Context) {
	s, ok := d.local.(*battery.Static)
	if !ok {
		abortWithError(c, http.StatusConflict, fmt.Errorf("local battery source is %q, only %q can be set", d.conf.LocalSource(), config.LocalSourceStatic))
		return
	}

	var l int
	if err := c.BindJSON(&l); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}
	if l < 0 || l > 100 {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("level must be between 0 and 100, got %d", l))
		return
	}

	s.Set(l)
	logrus.Infof("set local battery level to %d%%", l)

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set local battery level to %d%%", l))
}

func (d *Daemon) getPeripherals(c *gin.Context) {
	levels := d.peripherals.Levels()
	ret := make([]PeripheralStatus, 0, len(levels))
	for i, l := range levels {
		ret = append(ret, PeripheralStatus{Index: i, Connected: l != nil, Level: l})
	}
	c.IndentedJSON(http.StatusOK, ret)
}

func peripheralIndex(c *gin.Context) (int, bool) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("invalid peripheral index %q", c.Param("index")))
		return 0, false
	}
	return i, true
}

func (d *Daemon) setPeripheralBattery(c *gin.Context) {
	i, ok := peripheralIndex(c)
	if !ok {
		return
	}

	var l int
	if err := c.BindJSON(&l); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}
	if l < 0 || l > 100 {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("level must be between 0 and 100, got %d", l))
		return
	}

	if err := d.peripherals.Report(i, l); err != nil {
		abortWithError(c, http.StatusNotFound, err)
		return
	}
	logrus.Infof("peripheral %d reported battery level %d%%", i, l)

	d.hub.PublishState(events.PeripheralChanged, strconv.Itoa(i), events.PeripheralChangedEvent{Index: i, Level: &l, Ts: time.Now().UnixMilli()})

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("peripheral %d battery level set to %d%%", i, l))
}

func (d *Daemon) disconnectPeripheral(c *gin.Context) {
	i, ok := peripheralIndex(c)
	if !ok {
		return
	}

	if err := d.peripherals.Disconnect(i); err != nil {
		abortWithError(c, http.StatusNotFound, err)
		return
	}
	logrus.Infof("peripheral %d disconnected", i)

	d.hub.PublishState(events.PeripheralChanged, strconv.Itoa(i), events.PeripheralChangedEvent{Index: i, Ts: time.Now().UnixMilli()})

	c.IndentedJSON(http.StatusOK, fmt.Sprintf("peripheral %d disconnected", i))
}

func (d *Daemon) getOutput(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, d.output.Lines())
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}
