package evse

import (
	"time"

	"charging_station/types"
)

// Transaction is one plug-in-to-plug-out charging session. It is created
// and destroyed exclusively by its Evse.
type Transaction struct {
	ID            string
	EvseID        int
	ConnectorID   int
	StartedAt     time.Time
	IdToken       *types.IdToken
	RemoteStartID *int
	ReservationID *int
	ChargingState types.ChargingState
	IdTokenSent   bool

	seqNo       int
	sampleCount int
}

// NextSeqNo hands out the next event sequence number, starting at 0.
func (t *Transaction) NextSeqNo() int {
	n := t.seqNo
	t.seqNo++
	return n
}

// SeqNo reports the next number without consuming it.
func (t *Transaction) SeqNo() int { return t.seqNo }

func (t *Transaction) hasEnded() bool {
	return t.ChargingState == types.ChargingStateIdle
}
