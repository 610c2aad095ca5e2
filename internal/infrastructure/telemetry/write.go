package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/hearthwire/hearth-core/internal/audit"
	"github.com/hearthwire/hearth-core/internal/hub"
)

// WriteDispatchMetric records the outcome of one command dispatch.
//
// The write is non-blocking; data is batched and sent asynchronously.
// An empty reason is recorded as "ok" so every dispatch lands under a
// queryable tag value.
func (c *Client) WriteDispatchMetric(m hub.Metric) {
	if !c.IsConnected() {
		return
	}

	reason := string(m.Reason)
	if reason == "" {
		reason = "ok"
	}

	point := write.NewPoint(
		"dispatch",
		map[string]string{
			"command": m.Command,
			"reason":  reason,
		},
		map[string]interface{}{
			"responders":  m.Responders,
			"duration_ms": float64(m.Duration) / float64(time.Millisecond),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteActionEntry mirrors one audit log entry into the time-series
// store, keyed by action and device so usage can be charted per device.
func (c *Client) WriteActionEntry(entry audit.Entry) {
	if !c.IsConnected() {
		return
	}

	ts := entry.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	point := write.NewPoint(
		"actions",
		map[string]string{
			"action": entry.Action,
			"device": entry.DeviceID,
		},
		map[string]interface{}{
			"user_id":   entry.UserID,
			"user_name": entry.UserName,
		},
		ts,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// Attach subscribes the client to the internal bus so dispatch metrics
// and audit entries flow into InfluxDB without the publishers knowing
// telemetry exists. Payloads of unexpected types are ignored.
func (c *Client) Attach(bus *hub.Bus) {
	bus.Subscribe(hub.EventDispatchDone, func(_ string, payload any) {
		if m, ok := payload.(hub.Metric); ok {
			c.WriteDispatchMetric(m)
		}
	})
	bus.Subscribe(audit.EventActionLogged, func(_ string, payload any) {
		if entry, ok := payload.(audit.Entry); ok {
			c.WriteActionEntry(entry)
		}
	})
}
