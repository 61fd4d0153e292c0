package evse

import (
	"sync"
	"time"

	"charging_station/messages"
	"charging_station/store"
	"charging_station/types"
)

// StatusCallback receives derived connector status changes.
type StatusCallback func(evseID, connectorID int, status types.ConnectorStatus)

// TxEventCallback receives every TransactionEvent the EVSEs generate, in
// per-transaction sequence order.
type TxEventCallback func(req messages.TransactionEventRequest)

// Manager owns one Evse per physical socket group and serializes every
// event through its lock.
type Manager struct {
	mu    sync.Mutex
	evses map[int]*Evse
	store *store.Store
	now   func() time.Time

	status     StatusCallback
	txEvent    TxEventCallback
	txFinished func(transactionID string)

	endedMeasurands func() []string

	stationOperative bool
	offline          bool

	// saved operative flags during a firmware-update sweep
	firmwareSweep map[int]bool
}

// NewManager builds EVSEs 1..len(connectorCounts), each with the given
// connector count.
func NewManager(connectorCounts []int, st *store.Store, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	m := &Manager{
		evses:            make(map[int]*Evse, len(connectorCounts)),
		store:            st,
		now:              now,
		stationOperative: true,
		endedMeasurands:  func() []string { return nil },
	}
	for i, count := range connectorCounts {
		id := i + 1
		m.evses[id] = newEvse(id, count, m)
	}
	return m
}

func (m *Manager) OnStatusChange(fn StatusCallback)     { m.status = fn }
func (m *Manager) OnTransactionEvent(fn TxEventCallback) { m.txEvent = fn }

// OnTransactionFinished fires after the Ended event has been emitted; the
// smart charging engine uses it to drop TxProfiles.
func (m *Manager) OnTransactionFinished(fn func(transactionID string)) { m.txFinished = fn }

// SetEndedMeasurands installs the provider for the Ended measurand filter,
// typically backed by SampledDataCtrlr.TxEndedMeasurands.
func (m *Manager) SetEndedMeasurands(fn func() []string) {
	if fn != nil {
		m.endedMeasurands = fn
	}
}

// SetOffline marks subsequently generated transaction events as generated
// while disconnected.
func (m *Manager) SetOffline(offline bool) {
	m.mu.Lock()
	m.offline = offline
	m.mu.Unlock()
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.evses)
}

func (m *Manager) Has(evseID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.evses[evseID]
	return ok
}

// HasConnector reports whether the EVSE exists and owns the connector.
func (m *Manager) HasConnector(evseID, connectorID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.evses[evseID]
	if !ok {
		return false
	}
	_, ok = e.connectors[connectorID]
	return ok
}

// ActiveTransaction returns the open transaction of an EVSE.
func (m *Manager) ActiveTransaction(evseID int) (Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.evses[evseID]
	if !ok || e.tx == nil {
		return Transaction{}, false
	}
	return *e.tx, true
}

// FindTransaction locates an open transaction by id.
func (m *Manager) FindTransaction(transactionID string) (Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.evses {
		if e.tx != nil && e.tx.ID == transactionID {
			return *e.tx, true
		}
	}
	return Transaction{}, false
}

// TransactionOnEvse reports whether the given transaction is open on the
// given EVSE.
func (m *Manager) TransactionOnEvse(transactionID string, evseID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.evses[evseID]
	return ok && e.tx != nil && e.tx.ID == transactionID
}

// EachConnector walks every connector with its current derived status.
func (m *Manager) EachConnector(fn func(evseID, connectorID int, status types.ConnectorStatus)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for evseID := 1; evseID <= len(m.evses); evseID++ {
		e := m.evses[evseID]
		for connectorID := 1; connectorID <= len(e.connectors); connectorID++ {
			c := e.connectors[connectorID]
			fn(evseID, connectorID, c.Status(e.operative && m.stationOperative))
		}
	}
}

// IdleMeterValues exposes the idle sample window of one EVSE.
func (m *Manager) IdleMeterValues(evseID int) []types.MeterValue {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.evses[evseID]; ok {
		return e.IdleMeterValues()
	}
	return nil
}

// ---- external events ----

func (m *Manager) PlugIn(evseID, connectorID int) {
	m.withEvse(evseID, func(e *Evse) { e.plugIn(connectorID) })
}

func (m *Manager) PlugOut(evseID, connectorID int) {
	m.withEvse(evseID, func(e *Evse) { e.plugOut(connectorID) })
}

func (m *Manager) Authorized(evseID int, token types.IdToken, remoteStartID *int) {
	m.withEvse(evseID, func(e *Evse) { e.authorized(token, remoteStartID) })
}

func (m *Manager) StartCharging(evseID int) {
	m.withEvse(evseID, func(e *Evse) { e.setChargingState(types.ChargingStateCharging) })
}

func (m *Manager) SuspendEV(evseID int) {
	m.withEvse(evseID, func(e *Evse) { e.setChargingState(types.ChargingStateSuspendedEV) })
}

func (m *Manager) SuspendEVSE(evseID int) {
	m.withEvse(evseID, func(e *Evse) { e.setChargingState(types.ChargingStateSuspendedEVSE) })
}

func (m *Manager) ResumeCharging(evseID int) {
	m.withEvse(evseID, func(e *Evse) { e.setChargingState(types.ChargingStateCharging) })
}

func (m *Manager) StopTransaction(evseID int, reason types.StopReason, trigger types.TriggerReason) {
	m.withEvse(evseID, func(e *Evse) { e.stopTransaction(reason, trigger) })
}

func (m *Manager) MeterValue(evseID int, mv types.MeterValue) {
	m.withEvse(evseID, func(e *Evse) { e.meterValue(mv) })
}

func (m *Manager) Fault(evseID, connectorID int) {
	m.withEvse(evseID, func(e *Evse) { e.fault(connectorID) })
}

func (m *Manager) FaultCleared(evseID, connectorID int) {
	m.withEvse(evseID, func(e *Evse) { e.faultCleared(connectorID) })
}

func (m *Manager) Reserve(evseID, connectorID, reservationID int) {
	m.withEvse(evseID, func(e *Evse) { e.reserve(connectorID, reservationID) })
}

func (m *Manager) ReservationCleared(evseID, connectorID int) {
	m.withEvse(evseID, func(e *Evse) { e.reservationCleared(connectorID) })
}

// SetOperative changes availability of the station (evseID 0), one EVSE
// (connectorID 0) or one connector.
func (m *Manager) SetOperative(evseID, connectorID int, operative bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if evseID == 0 {
		m.stationOperative = operative
		for _, e := range m.evses {
			for _, c := range e.connectors {
				e.reportStatus(c)
			}
		}
		return
	}
	if e, ok := m.evses[evseID]; ok {
		e.setOperative(connectorID, operative)
	}
}

// HasAnyActiveTransaction reports whether any EVSE has an open session.
func (m *Manager) HasAnyActiveTransaction() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.evses {
		if e.tx != nil {
			return true
		}
	}
	return false
}

// AllUnavailableForFirmware marks every EVSE inoperative before a firmware
// install, remembering the previous flags.
func (m *Manager) AllUnavailableForFirmware() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.firmwareSweep != nil {
		return
	}
	m.firmwareSweep = make(map[int]bool, len(m.evses))
	for id, e := range m.evses {
		m.firmwareSweep[id] = e.operative
		e.setOperative(0, false)
	}
}

// RestoreAfterFirmware restores the flags saved by
// AllUnavailableForFirmware.
func (m *Manager) RestoreAfterFirmware() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.firmwareSweep == nil {
		return
	}
	for id, operative := range m.firmwareSweep {
		if e, ok := m.evses[id]; ok {
			e.setOperative(0, operative)
		}
	}
	m.firmwareSweep = nil
}

func (m *Manager) withEvse(evseID int, fn func(*Evse)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.evses[evseID]; ok {
		fn(e)
	}
}
