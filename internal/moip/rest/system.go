package rest

import (
	"context"
	"encoding/json"
)

// Controller information reads. These documents vary across firmware
// versions, so they pass through as raw JSON for presentation rather
// than being decoded into structs the firmware might outgrow.

// BaseInfo returns the controller's base device document.
func (c *Client) BaseInfo(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, "/base")
}

// BaseStats returns the controller's resource usage statistics.
func (c *Client) BaseStats(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, "/base/stats")
}

// LANInfo returns the controller's network configuration.
func (c *Client) LANInfo(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, "/base/lan")
}

// TimeInfo returns the controller's clock configuration.
func (c *Client) TimeInfo(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, "/base/time")
}

// FirmwareInfo returns the controller's firmware document.
func (c *Client) FirmwareInfo(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, "/base/firmware")
}

// SystemInfo returns the MoIP system document.
func (c *Client) SystemInfo(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, "/moip/system")
}

// SystemStatus returns the MoIP system status document.
func (c *Client) SystemStatus(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, "/moip/system/status")
}

// getRaw performs an authenticated GET and returns the body as raw JSON.
func (c *Client) getRaw(ctx context.Context, path string) (json.RawMessage, error) {
	body, err := c.getBytes(ctx, path)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}
