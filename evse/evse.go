package evse

import (
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"charging_station/messages"
	"charging_station/types"
)

// idleMeterValueWindow bounds the rolling window of samples kept while no
// transaction is open.
const idleMeterValueWindow = 12

// Evse is one charging point: an ordered set of connectors, at most one
// open transaction, and the meter value buffers.
type Evse struct {
	id         int
	m          *Manager
	operative  bool
	connectors map[int]*Connector
	tx         *Transaction

	pendingToken         *types.IdToken
	pendingRemoteStartID *int
	pendingReservationID *int

	idleMeterValues []types.MeterValue
}

func newEvse(id, connectorCount int, m *Manager) *Evse {
	e := &Evse{id: id, m: m, operative: true, connectors: make(map[int]*Connector, connectorCount)}
	for c := 1; c <= connectorCount; c++ {
		e.connectors[c] = newConnector(c)
	}
	return e
}

func (e *Evse) ID() int { return e.id }

// Connector returns the connector with the given 1-based id.
func (e *Evse) Connector(id int) (*Connector, bool) {
	c, ok := e.connectors[id]
	return c, ok
}

func (e *Evse) ConnectorCount() int { return len(e.connectors) }

// Transaction returns the open transaction, nil while idle.
func (e *Evse) Transaction() *Transaction { return e.tx }

// HasActiveTransaction reports whether a session is open.
func (e *Evse) HasActiveTransaction() bool { return e.tx != nil }

// IdleMeterValues returns the rolling window collected outside
// transactions.
func (e *Evse) IdleMeterValues() []types.MeterValue {
	return append([]types.MeterValue(nil), e.idleMeterValues...)
}

// ---- events (all called with the manager lock held) ----

func (e *Evse) plugIn(connectorID int) {
	c, ok := e.connectors[connectorID]
	if !ok {
		return
	}
	c.plugged = true
	e.reportStatus(c)
	if e.tx == nil && e.pendingToken != nil {
		trigger := types.TriggerReasonCablePluggedIn
		if e.pendingRemoteStartID != nil {
			trigger = types.TriggerReasonRemoteStart
		}
		e.openTransaction(connectorID, trigger)
	}
}

func (e *Evse) plugOut(connectorID int) {
	c, ok := e.connectors[connectorID]
	if !ok {
		return
	}
	if e.tx != nil && e.tx.ConnectorID == connectorID {
		e.stopTransaction(types.StopReasonEVDisconnected, types.TriggerReasonEVDeparted)
	}
	c.plugged = false
	e.pendingToken = nil
	e.pendingRemoteStartID = nil
	e.reportStatus(c)
}

func (e *Evse) authorized(token types.IdToken, remoteStartID *int) {
	if e.tx != nil {
		// Token arriving for a running session updates it.
		e.tx.IdToken = &token
		e.tx.IdTokenSent = true
		e.emitTxEvent(types.TransactionEventUpdated, types.TriggerReasonAuthorized, &token, nil)
		return
	}
	e.pendingToken = &token
	e.pendingRemoteStartID = remoteStartID
	if e.pluggedConnector() != nil {
		trigger := types.TriggerReasonAuthorized
		if remoteStartID != nil {
			trigger = types.TriggerReasonRemoteStart
		}
		e.openTransaction(e.pluggedConnector().id, trigger)
	}
}

func (e *Evse) pluggedConnector() *Connector {
	for _, c := range e.connectors {
		if c.plugged {
			return c
		}
	}
	return nil
}

func (e *Evse) openTransaction(connectorID int, trigger types.TriggerReason) {
	tx := &Transaction{
		ID:            uuid.NewString(),
		EvseID:        e.id,
		ConnectorID:   connectorID,
		StartedAt:     e.m.now(),
		IdToken:       e.pendingToken,
		RemoteStartID: e.pendingRemoteStartID,
		ReservationID: e.pendingReservationID,
		ChargingState: types.ChargingStateEVConnected,
	}
	e.tx = tx
	e.pendingToken = nil
	e.pendingRemoteStartID = nil
	e.pendingReservationID = nil

	log.WithFields(log.Fields{"evse": e.id, "connector": connectorID, "transaction": tx.ID}).
		Info("transaction started")

	var token *types.IdToken
	if tx.IdToken != nil {
		token = tx.IdToken
		tx.IdTokenSent = true
	}
	e.emitTxEvent(types.TransactionEventStarted, trigger, token, nil)
}

func (e *Evse) setChargingState(state types.ChargingState) {
	if e.tx == nil || e.tx.ChargingState == state {
		return
	}
	e.tx.ChargingState = state
	e.emitTxEvent(types.TransactionEventUpdated, types.TriggerReasonChargingStateChanged, nil, nil)
}

func (e *Evse) stopTransaction(reason types.StopReason, trigger types.TriggerReason) {
	if e.tx == nil {
		return
	}
	tx := e.tx
	tx.ChargingState = types.ChargingStateIdle

	ended := e.endedMeterValues(tx.ID)
	e.emitTxEvent(types.TransactionEventEnded, trigger, nil, &endedInfo{reason: reason, meterValues: ended})

	if e.m.store != nil {
		if err := e.m.store.DeleteTransactionMeterValues(tx.ID); err != nil {
			log.WithFields(log.Fields{"transaction": tx.ID, "error": err}).
				Warn("dropping transaction meter values failed")
		}
	}
	log.WithFields(log.Fields{"evse": e.id, "transaction": tx.ID, "reason": reason}).
		Info("transaction ended")
	e.tx = nil
	if e.m.txFinished != nil {
		e.m.txFinished(tx.ID)
	}
}

// endedMeterValues loads the persisted per-transaction history and filters
// it down to the measurand set configured for Ended events.
func (e *Evse) endedMeterValues(transactionID string) []types.MeterValue {
	if e.m.store == nil {
		return nil
	}
	history, err := e.m.store.TransactionMeterValues(transactionID)
	if err != nil {
		log.WithFields(log.Fields{"transaction": transactionID, "error": err}).
			Warn("loading transaction meter values failed")
		return nil
	}
	measurands := e.m.endedMeasurands()
	if len(measurands) == 0 {
		return history
	}
	allowed := make(map[types.Measurand]bool, len(measurands))
	for _, m := range measurands {
		allowed[types.Measurand(m)] = true
	}
	var out []types.MeterValue
	for _, mv := range history {
		var samples []types.SampledValue
		for _, sv := range mv.SampledValue {
			if sv.Measurand == "" || allowed[sv.Measurand] {
				sv.Context = types.ReadingContextTransactionEnd
				samples = append(samples, sv)
			}
		}
		if len(samples) > 0 {
			out = append(out, types.MeterValue{Timestamp: mv.Timestamp, SampledValue: samples})
		}
	}
	return out
}

func (e *Evse) meterValue(mv types.MeterValue) {
	if e.tx != nil {
		if e.m.store != nil {
			if err := e.m.store.SaveTransactionMeterValue(e.tx.ID, e.tx.sampleCount, mv); err != nil {
				log.WithFields(log.Fields{"transaction": e.tx.ID, "error": err}).
					Warn("persisting transaction meter value failed")
			}
		}
		e.tx.sampleCount++
		return
	}
	e.idleMeterValues = append(e.idleMeterValues, mv)
	if len(e.idleMeterValues) > idleMeterValueWindow {
		e.idleMeterValues = e.idleMeterValues[len(e.idleMeterValues)-idleMeterValueWindow:]
	}
}

func (e *Evse) fault(connectorID int) {
	if c, ok := e.connectors[connectorID]; ok {
		c.faulted = true
		e.reportStatus(c)
	}
}

func (e *Evse) faultCleared(connectorID int) {
	if c, ok := e.connectors[connectorID]; ok {
		c.faulted = false
		e.reportStatus(c)
	}
}

func (e *Evse) reserve(connectorID int, reservationID int) {
	if c, ok := e.connectors[connectorID]; ok {
		c.reserved = true
		e.pendingReservationID = &reservationID
		e.reportStatus(c)
	}
}

func (e *Evse) reservationCleared(connectorID int) {
	if c, ok := e.connectors[connectorID]; ok {
		c.reserved = false
		e.pendingReservationID = nil
		e.reportStatus(c)
	}
}

// setOperative flips the EVSE-level operational flag (connectorID 0) or a
// single connector.
func (e *Evse) setOperative(connectorID int, operative bool) {
	if connectorID == 0 {
		e.operative = operative
		for _, c := range e.connectors {
			e.reportStatus(c)
		}
		return
	}
	if c, ok := e.connectors[connectorID]; ok {
		c.operative = operative
		e.reportStatus(c)
	}
}

func (e *Evse) reportStatus(c *Connector) {
	status := c.Status(e.operative && e.m.stationOperative)
	if status == c.lastReported {
		return
	}
	c.lastReported = status
	if e.m.status != nil {
		e.m.status(e.id, c.id, status)
	}
}

type endedInfo struct {
	reason      types.StopReason
	meterValues []types.MeterValue
}

func (e *Evse) emitTxEvent(eventType types.TransactionEventType, trigger types.TriggerReason, token *types.IdToken, ended *endedInfo) {
	tx := e.tx
	if tx == nil {
		return
	}
	req := messages.TransactionEventRequest{
		EventType:     eventType,
		Timestamp:     e.m.now(),
		TriggerReason: trigger,
		SeqNo:         tx.NextSeqNo(),
		Offline:       e.m.offline,
		TransactionInfo: messages.TransactionInfo{
			TransactionID: tx.ID,
			ChargingState: tx.ChargingState,
			RemoteStartID: tx.RemoteStartID,
		},
		IdToken: token,
		Evse:    &types.EVSE{ID: e.id, ConnectorID: &tx.ConnectorID},
	}
	if tx.ReservationID != nil {
		req.ReservationID = tx.ReservationID
	}
	if ended != nil {
		req.TransactionInfo.StoppedReason = ended.reason
		req.MeterValue = ended.meterValues
	}
	if e.m.txEvent != nil {
		e.m.txEvent(req)
	}
}
