package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/hearthwire/hearth-core/internal/audit"
	"github.com/hearthwire/hearth-core/internal/hub"
)

// fakeWriteAPI captures points instead of sending them to a server.
type fakeWriteAPI struct {
	mu     sync.Mutex
	points []*write.Point
}

func (f *fakeWriteAPI) WriteRecord(_ string) {}

func (f *fakeWriteAPI) WritePoint(p *write.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
}

func (f *fakeWriteAPI) Flush() {}

func (f *fakeWriteAPI) Errors() <-chan error { return nil }

func (f *fakeWriteAPI) SetWriteFailedCallback(_ api.WriteFailedCallback) {}

func (f *fakeWriteAPI) captured() []*write.Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*write.Point(nil), f.points...)
}

func newTestClient() (*Client, *fakeWriteAPI) {
	fake := &fakeWriteAPI{}
	return &Client{writeAPI: fake, connected: true}, fake
}

func tagValue(t *testing.T, p *write.Point, key string) string {
	t.Helper()
	for _, tag := range p.TagList() {
		if tag.Key == key {
			return tag.Value
		}
	}
	t.Fatalf("point has no tag %q", key)
	return ""
}

func fieldValue(t *testing.T, p *write.Point, key string) interface{} {
	t.Helper()
	for _, field := range p.FieldList() {
		if field.Key == key {
			return field.Value
		}
	}
	t.Fatalf("point has no field %q", key)
	return nil
}

func TestWriteDispatchMetric(t *testing.T) {
	client, fake := newTestClient()

	client.WriteDispatchMetric(hub.Metric{
		Command:    "getDevices",
		Responders: 2,
		Duration:   250 * time.Millisecond,
	})

	points := fake.captured()
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	p := points[0]
	if p.Name() != "dispatch" {
		t.Errorf("measurement = %q, want dispatch", p.Name())
	}
	if got := tagValue(t, p, "command"); got != "getDevices" {
		t.Errorf("command tag = %q", got)
	}
	if got := tagValue(t, p, "reason"); got != "ok" {
		t.Errorf("empty reason should map to ok, got %q", got)
	}
	if got := fieldValue(t, p, "duration_ms"); got != float64(250) {
		t.Errorf("duration_ms = %v, want 250", got)
	}
}

func TestWriteDispatchMetricKeepsFailureReason(t *testing.T) {
	client, fake := newTestClient()

	client.WriteDispatchMetric(hub.Metric{Command: "lightOn", Reason: hub.ReasonTimeout})

	points := fake.captured()
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	if got := tagValue(t, points[0], "reason"); got != "timeout" {
		t.Errorf("reason tag = %q, want timeout", got)
	}
}

func TestWriteActionEntryUsesEntryTimestamp(t *testing.T) {
	client, fake := newTestClient()
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	client.WriteActionEntry(audit.Entry{
		UserName:  "ada",
		UserID:    "usr-1",
		DeviceID:  "light-7",
		Action:    "lightOn",
		CreatedAt: ts,
	})

	points := fake.captured()
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	p := points[0]
	if p.Name() != "actions" {
		t.Errorf("measurement = %q, want actions", p.Name())
	}
	if !p.Time().Equal(ts) {
		t.Errorf("point time = %v, want %v", p.Time(), ts)
	}
	if got := tagValue(t, p, "device"); got != "light-7" {
		t.Errorf("device tag = %q", got)
	}
	if got := fieldValue(t, p, "user_name"); got != "ada" {
		t.Errorf("user_name field = %v", got)
	}
}

func TestWritesDroppedWhenDisconnected(t *testing.T) {
	client, fake := newTestClient()
	client.connected = false

	client.WriteDispatchMetric(hub.Metric{Command: "lightOn"})
	client.WriteActionEntry(audit.Entry{Action: "lightOn"})
	client.WritePoint("custom", nil, map[string]interface{}{"v": 1})

	if got := len(fake.captured()); got != 0 {
		t.Errorf("expected no points while disconnected, got %d", got)
	}
}

func TestAttachRoutesBusEvents(t *testing.T) {
	client, fake := newTestClient()
	bus := hub.NewBus()
	client.Attach(bus)

	bus.Publish(hub.EventDispatchDone, hub.Metric{Command: "getDevices", Responders: 1})
	bus.Publish(audit.EventActionLogged, audit.Entry{Action: "lightOn", DeviceID: "light-7"})
	bus.Publish(hub.EventDispatchDone, "not a metric")

	points := fake.captured()
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Name() != "dispatch" || points[1].Name() != "actions" {
		t.Errorf("unexpected measurements %q, %q", points[0].Name(), points[1].Name())
	}
}
