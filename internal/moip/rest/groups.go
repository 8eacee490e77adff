package rest

import (
	"context"
	"fmt"

	"github.com/bbellwfu/moip-manager/internal/moip"
)

// groupPath maps a device kind to its collection endpoint.
func groupPath(kind moip.Kind) (string, error) {
	switch kind {
	case moip.KindTransmitter:
		return "/moip/group_tx", nil
	case moip.KindReceiver:
		return "/moip/group_rx", nil
	default:
		return "", fmt.Errorf("rest: invalid device kind %q", kind)
	}
}

// ListGroupIDs returns the IDs of every group of the given kind.
func (c *Client) ListGroupIDs(ctx context.Context, kind moip.Kind) ([]int, error) {
	path, err := groupPath(kind)
	if err != nil {
		return nil, err
	}

	var list listEnvelope
	if err := c.get(ctx, path, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// GetGroup fetches one group's detail record.
func (c *Client) GetGroup(ctx context.Context, kind moip.Kind, id int) (*Group, error) {
	path, err := groupPath(kind)
	if err != nil {
		return nil, err
	}

	var group Group
	if err := c.get(ctx, fmt.Sprintf("%s/%d", path, id), &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// SetGroupName updates a group's display name. Names set here are what
// the line protocol's ?Name listing reports.
func (c *Client) SetGroupName(ctx context.Context, kind moip.Kind, id int, name string) error {
	path, err := groupPath(kind)
	if err != nil {
		return err
	}

	body := settingsUpdate{Settings: map[string]any{"name": name}}
	return c.put(ctx, fmt.Sprintf("%s/%d", path, id), body)
}

// AllGroupsDetailed lists and then fetches every group of the given kind.
// An individual fetch failure drops that group from the result and bumps
// the skipped count; only a list failure is an error.
func (c *Client) AllGroupsDetailed(ctx context.Context, kind moip.Kind) ([]Group, int, error) {
	ids, err := c.ListGroupIDs(ctx, kind)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s groups: %w", kind, err)
	}

	groups := make([]Group, 0, len(ids))
	skipped := 0
	for _, id := range ids {
		group, err := c.GetGroup(ctx, kind, id)
		if err != nil {
			skipped++
			continue
		}
		groups = append(groups, *group)
	}
	return groups, skipped, nil
}

// ResolveVideoResourceID translates a protocol-visible device index into
// the opaque video resource ID behind it. It scans the detailed group
// records of the kind for a matching settings index and returns the
// associated video resource; ErrResourceNotFound when no group matches or
// the matching group has no video association.
//
// This is the single bridge between the line protocol's small-integer
// addressing and the structured API's ID space.
func (c *Client) ResolveVideoResourceID(ctx context.Context, kind moip.Kind, index int) (int, error) {
	groups, _, err := c.AllGroupsDetailed(ctx, kind)
	if err != nil {
		return 0, err
	}

	for _, group := range groups {
		if group.Settings.Index == nil || *group.Settings.Index != index {
			continue
		}

		var videoID *int
		switch kind {
		case moip.KindTransmitter:
			videoID = group.Associations.VideoTx
		case moip.KindReceiver:
			videoID = group.Associations.VideoRx
		}
		if videoID == nil {
			return 0, fmt.Errorf("%w: %s %d has no video resource", ErrResourceNotFound, kind, index)
		}
		return *videoID, nil
	}

	return 0, fmt.Errorf("%w: no %s group with index %d", ErrResourceNotFound, kind, index)
}
