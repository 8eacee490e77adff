// Package api implements the HTTP REST API and WebSocket server for the
// MoIP manager.
//
// This package provides:
//   - REST endpoints for devices, routing, video stats, snapshots, and sync
//   - WebSocket hub for real-time event broadcasts
//   - Optional bearer-JWT authentication for the single operator account
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The API server sits between user interfaces and the matrix controller's
// two protocol surfaces. Simple imperative operations (routing, names, CEC)
// go over the line protocol; structured reads and writes (video resources,
// group settings, system info) go over the controller's session API. Writes
// that change observable state publish events through the bus, which fans
// them out to MQTT and connected WebSocket clients.
//
// # Graceful Degradation
//
// The server operates without MQTT and InfluxDB; events then reach only
// WebSocket clients and telemetry is simply not recorded. Controller
// unreachability surfaces as 502 responses on the affected endpoints while
// inventory reads keep working from the local database.
package api
