package evse

import "charging_station/types"

// Connector tracks the substates a physical socket can be in. The
// OCPP-visible availability state is derived, not stored.
type Connector struct {
	id        int
	operative bool
	faulted   bool
	plugged   bool
	reserved  bool

	// lastReported is the status last delivered to the status callback;
	// an unchanged status is not reported again.
	lastReported types.ConnectorStatus
}

func newConnector(id int) *Connector {
	return &Connector{id: id, operative: true}
}

func (c *Connector) ID() int { return c.id }

// Status derives the effective availability state. Precedence follows the
// OCPP state graph: inoperative wins over fault, fault over occupancy.
func (c *Connector) Status(evseOperative bool) types.ConnectorStatus {
	switch {
	case !c.operative || !evseOperative:
		return types.ConnectorStatusUnavailable
	case c.faulted:
		return types.ConnectorStatusFaulted
	case c.plugged:
		return types.ConnectorStatusOccupied
	case c.reserved:
		return types.ConnectorStatusReserved
	default:
		return types.ConnectorStatusAvailable
	}
}

func (c *Connector) hasTransactionInProgress(e *Evse) bool {
	return e.tx != nil && e.tx.ConnectorID == c.id
}
