package rest

import (
	"context"
	"errors"
	"fmt"

	"github.com/bbellwfu/moip-manager/internal/moip"
)

// TransmitterVideo resolves a transmitter index and fetches its video
// resource: the live input signal stats.
func (c *Client) TransmitterVideo(ctx context.Context, index int) (*VideoTx, error) {
	id, err := c.ResolveVideoResourceID(ctx, moip.KindTransmitter, index)
	if err != nil {
		return nil, err
	}

	var video VideoTx
	if err := c.get(ctx, fmt.Sprintf("/moip/video_tx/%d", id), &video); err != nil {
		return nil, err
	}
	return &video, nil
}

// ReceiverVideo resolves a receiver index and fetches its video resource:
// the output configuration with supported values, plus live state.
func (c *Client) ReceiverVideo(ctx context.Context, index int) (*VideoRx, error) {
	id, err := c.ResolveVideoResourceID(ctx, moip.KindReceiver, index)
	if err != nil {
		return nil, err
	}

	var video VideoRx
	if err := c.get(ctx, fmt.Sprintf("/moip/video_rx/%d", id), &video); err != nil {
		return nil, err
	}
	return &video, nil
}

// SetReceiverResolution sets the output resolution of a receiver,
// resolved by its protocol-visible index.
func (c *Client) SetReceiverResolution(ctx context.Context, index int, resolution string) error {
	return c.setReceiverVideoSetting(ctx, index, "resolution", resolution)
}

// SetReceiverHDCP sets the HDCP mode of a receiver, resolved by its
// protocol-visible index.
func (c *Client) SetReceiverHDCP(ctx context.Context, index int, hdcp string) error {
	return c.setReceiverVideoSetting(ctx, index, "hdcp", hdcp)
}

func (c *Client) setReceiverVideoSetting(ctx context.Context, index int, field, value string) error {
	id, err := c.ResolveVideoResourceID(ctx, moip.KindReceiver, index)
	if err != nil {
		return err
	}

	body := settingsUpdate{Settings: map[string]any{field: value}}
	return c.put(ctx, fmt.Sprintf("/moip/video_rx/%d", id), body)
}

// PreviewImage resolves a transmitter index and downloads the JPEG
// preview thumbnail of its current input.
func (c *Client) PreviewImage(ctx context.Context, index int) ([]byte, error) {
	id, err := c.ResolveVideoResourceID(ctx, moip.KindTransmitter, index)
	if err != nil {
		return nil, err
	}

	body, err := c.getBytes(ctx, fmt.Sprintf("/moip/video_tx/%d/preview", id))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, errors.New("rest: preview image response is empty")
	}
	return body, nil
}
