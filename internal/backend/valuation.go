package backend

import (
	"context"
	"net/http"
	"net/url"

	"wealthlings/internal/game"
)

// ValuationClient asks the backend what a released creature is worth.
type ValuationClient struct {
	*Client
}

func NewValuationClient(c *Client) *ValuationClient {
	return &ValuationClient{Client: c}
}

func (c *ValuationClient) Value(ctx context.Context, creatureID string) (game.Valuation, error) {
	var out game.Valuation
	if err := c.do(ctx, http.MethodPost, "/api/creature/"+url.PathEscape(creatureID)+"/sell", "application/json", nil, &out); err != nil {
		return game.Valuation{}, err
	}
	return out, nil
}

// FixedValuer prices creatures locally when no valuation backend is set:
// PerLevel coins of value for every level.
type FixedValuer struct {
	Store    *game.Store
	PerLevel float64
}

func (v FixedValuer) Value(_ context.Context, creatureID string) (game.Valuation, error) {
	c, ok := v.Store.Creature(creatureID)
	if !ok {
		return game.Valuation{Success: false}, nil
	}
	per := v.PerLevel
	if per <= 0 {
		per = 10
	}
	return game.Valuation{Success: true, Value: float64(c.Level) * per}, nil
}
