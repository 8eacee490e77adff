// Package telemetry samples per-transmitter video stats on an interval and
// writes them to InfluxDB.
//
// Each pass lists the known transmitters from the inventory, fans the video
// queries out across a bounded worker pool, and records width, height, frame
// rate, and signal presence per device. Individual fetch failures are logged
// at debug level and skipped; the collector never aborts a pass because one
// transmitter is unreachable.
package telemetry
