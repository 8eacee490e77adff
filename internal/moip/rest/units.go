package rest

import (
	"context"
	"fmt"
)

// ListUnitIDs returns the IDs of every unit the controller knows.
func (c *Client) ListUnitIDs(ctx context.Context) ([]int, error) {
	var list listEnvelope
	if err := c.get(ctx, "/moip/unit", &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// GetUnit fetches one unit's detail record.
func (c *Client) GetUnit(ctx context.Context, id int) (*Unit, error) {
	var unit Unit
	if err := c.get(ctx, fmt.Sprintf("/moip/unit/%d", id), &unit); err != nil {
		return nil, err
	}
	return &unit, nil
}

// SetUnitName updates a unit's display name.
func (c *Client) SetUnitName(ctx context.Context, id int, name string) error {
	body := settingsUpdate{Settings: map[string]any{"name": name}}
	return c.put(ctx, fmt.Sprintf("/moip/unit/%d", id), body)
}

// AllUnitsDetailed lists and then fetches every unit. An individual fetch
// failure drops that unit from the result and bumps the skipped count;
// only a list failure is an error.
func (c *Client) AllUnitsDetailed(ctx context.Context) ([]Unit, int, error) {
	ids, err := c.ListUnitIDs(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list units: %w", err)
	}

	units := make([]Unit, 0, len(ids))
	skipped := 0
	for _, id := range ids {
		unit, err := c.GetUnit(ctx, id)
		if err != nil {
			skipped++
			continue
		}
		units = append(units, *unit)
	}
	return units, skipped, nil
}
