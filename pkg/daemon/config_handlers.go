package daemon

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/splitkb/battext/pkg/battery"
)

// saveAndReload persists the config and applies it to the bindings. It
// answers the request itself on failure and reports whether it succeeded.
func (d *Daemon) saveAndReload(c *gin.Context) bool {
	if err := d.conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return false
	}

	if err := d.Reload(); err != nil {
		logrus.Errorf("reload failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return false
	}

	return true
}

func bindMillis(c *gin.Context) (int, bool) {
	var ms int
	if err := c.BindJSON(&ms); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return 0, false
	}
	if ms < 0 {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("duration must not be negative, got %dms", ms))
		return 0, false
	}
	return ms, true
}

func (d *Daemon) setTapMs(c *gin.Context) {
	ms, ok := bindMillis(c)
	if !ok {
		return
	}

	d.conf.SetTapMs(ms)
	if !d.saveAndReload(c) {
		return
	}

	logrus.Infof("set tap time to %dms", ms)

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set tap time to %dms", ms))
}

func (d *Daemon) setWaitMs(c *gin.Context) {
	ms, ok := bindMillis(c)
	if !ok {
		return
	}

	d.conf.SetWaitMs(ms)
	if !d.saveAndReload(c) {
		return
	}

	logrus.Infof("set wait time to %dms", ms)

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set wait time to %dms", ms))
}

func (d *Daemon) setPeripheralFetching(c *gin.Context) {
	var s string
	if err := c.BindJSON(&s); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}
	mode, err := battery.ParseFetchMode(s)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	d.conf.SetPeripheralFetching(mode)
	if !d.saveAndReload(c) {
		return
	}

	logrus.Infof("set peripheral fetching to %s", mode)

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set peripheral fetching to %s", mode))
}

func (d *Daemon) setAtomicFlush(c *gin.Context) {
	var b bool
	if err := c.BindJSON(&b); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	d.conf.SetAtomicFlush(b)
	if !d.saveAndReload(c) {
		return
	}

	logrus.Infof("set atomic flush to %t", b)

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set atomic flush to %t", b))
}

func (d *Daemon) setStaticLocalLevel(c *gin.Context) {
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

	d.conf.SetStaticLocalLevel(l)
	if !d.saveAndReload(c) {
		return
	}

	logrus.Infof("set static local level to %d%%", l)

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set static local level to %d%%", l))
}
