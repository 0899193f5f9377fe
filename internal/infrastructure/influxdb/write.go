package influxdb

import (
	"context"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/doorman/internal/access"
)

// MeasurementAccess holds one point per protocol event.
const MeasurementAccess = "access_events"

var _ access.Recorder = (*Client)(nil)

// Record implements access.Recorder by writing an access_events point.
// Dropped silently when the client is closed.
func (c *Client) Record(_ context.Context, ev access.Event) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(accessPoint(c.site, ev))
}

// WriteScannerStats records the state of the BLE scan helper.
func (c *Client) WriteScannerStats(status string, restarts int) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(write.NewPoint("scanner",
		map[string]string{"site": c.site},
		map[string]any{"status": status, "restarts": restarts},
		time.Now(),
	))
}

// accessPoint tags by kind and stage, which stay low-cardinality; the
// device goes in a field.
func accessPoint(site string, ev access.Event) *write.Point {
	tags := map[string]string{
		"site": site,
		"kind": string(ev.Kind),
	}
	if ev.Stage != "" {
		tags["stage"] = ev.Stage
	}

	fields := map[string]any{"count": 1}
	if ev.Device != "" {
		fields["device"] = ev.Device
	}
	if ev.Err != nil {
		fields["error"] = ev.Err.Error()
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	return write.NewPoint(MeasurementAccess, tags, fields, at)
}
