package procurement

import (
	"context"

	"github.com/throughline-systems/supplychain/core"
)

// Alert is the external correlation object a SupplyOrder may be
// derived from. Only its payload dictionary is consumed here; alert
// correlation itself is out of scope.
type Alert struct {
	ID   string
	Data core.Dict
}

// AlertProvider looks up an Alert by id.
type AlertProvider interface {
	Get(ctx context.Context, alertID string) (*Alert, error)
}
