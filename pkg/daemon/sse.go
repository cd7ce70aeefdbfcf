package daemon

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/splitkb/battext/pkg/events"
)

// streamEvents forwards hub events to the client as server-sent events until
// the client goes away. With ?state=true the stream starts with the current
// peripheral levels and the last trigger of each binding.
func (d *Daemon) streamEvents(c *gin.Context) {
	var ch chan events.Event
	if c.Query("state") == "true" {
		ch = d.hub.SubscribeWithState()
	} else {
		ch = d.hub.Subscribe()
	}
	defer d.hub.Unsubscribe(ch)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		}
	})
}
