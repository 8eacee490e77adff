package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteVideoMetric writes a transmitter video telemetry sample.
//
// This is the primary method for recording per-transmitter video stats
// gathered by the telemetry sampler. The write is non-blocking; data is
// batched and sent asynchronously.
//
// Parameters:
//   - txIndex: Transmitter device index (1-based)
//   - groupID: Stable controller group ID for the transmitter
//   - width: Active video width in pixels (0 when no signal)
//   - height: Active video height in pixels (0 when no signal)
//   - fps: Frame rate reported by the transmitter
//   - signalPresent: Whether the transmitter sees an active source
//
// Example:
//
//	client.WriteVideoMetric(3, 1284561, 3840, 2160, 60.0, true)
func (c *Client) WriteVideoMetric(txIndex, groupID, width, height int, fps float64, signalPresent bool) {
	if !c.IsConnected() {
		return
	}

	signal := 0
	if signalPresent {
		signal = 1
	}

	point := write.NewPoint(
		"video",
		map[string]string{
			"tx":    strconv.Itoa(txIndex),
			"group": strconv.Itoa(groupID),
		},
		map[string]interface{}{
			"video_width":    width,
			"video_height":   height,
			"video_fps":      fps,
			"signal_present": signal,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRoutingEvent records a routing change for historical queries.
//
// Parameters:
//   - txIndex: Source transmitter index (0 when a receiver was unassigned)
//   - rxIndex: Destination receiver index
//   - source: What triggered the change (e.g., "api", "mqtt", "restore")
func (c *Client) WriteRoutingEvent(txIndex, rxIndex int, source string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"routing",
		map[string]string{
			"rx":     strconv.Itoa(rxIndex),
			"source": source,
		},
		map[string]interface{}{
			"tx": txIndex,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "moip-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
