// Package monitoring samples device model variables, detects threshold,
// delta and periodic conditions and batches the resulting events into
// NotifyEvent requests.
package monitoring

import (
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"charging_station/devicemodel"
	"charging_station/messages"
	"charging_station/scheduler"
	"charging_station/store"
	"charging_station/types"
)

// Sender delivers a batch to the CSMS; it fails while dispatch is not
// possible.
type Sender func(req messages.NotifyEventRequest) error

type monitor struct {
	id        int
	component string
	variable  string
	kind      types.MonitorKind
	value     float64
	severity  int

	timer    scheduler.TimerID
	hasTimer bool

	lastNumeric float64
	hasNumeric  bool
	alerting    bool
}

type Engine struct {
	mu    sync.Mutex
	dm    *devicemodel.DeviceModel
	store *store.Store
	sched *scheduler.Scheduler
	send  Sender
	now   func() time.Time

	offlineThreshold func() time.Duration

	monitors map[int]*monitor
	nextID   int

	online       bool
	offlineSince time.Time
	pending      []types.EventData
	seqNo        int
	nextEventID  int
}

func New(dm *devicemodel.DeviceModel, st *store.Store, sched *scheduler.Scheduler, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	e := &Engine{
		dm:               dm,
		store:            st,
		sched:            sched,
		now:              now,
		monitors:         make(map[int]*monitor),
		nextID:           1,
		offlineThreshold: func() time.Duration { return time.Minute },
	}
	if dm != nil {
		dm.ObserveAll(e.variableChanged)
	}
	return e
}

// SetSender installs the dispatch path.
func (e *Engine) SetSender(fn Sender) { e.send = fn }

// SetOfflineThreshold installs the provider for the coalescing cutoff.
func (e *Engine) SetOfflineThreshold(fn func() time.Duration) {
	if fn != nil {
		e.offlineThreshold = fn
	}
}

// Restore loads persisted monitors after a restart.
func (e *Engine) Restore() error {
	if e.store == nil {
		return nil
	}
	rows, err := e.store.Monitors()
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range rows {
		m := &monitor{
			id:        r.ID,
			component: r.Component,
			variable:  r.Variable,
			kind:      types.MonitorKind(r.Kind),
			value:     r.Value,
			severity:  r.Severity,
		}
		e.monitors[m.id] = m
		if m.id >= e.nextID {
			e.nextID = m.id + 1
		}
		e.armPeriodicLocked(m)
	}
	return nil
}

// SetMonitor installs one monitor from a SetVariableMonitoring entry.
func (e *Engine) SetMonitor(d types.SetMonitoringData) types.SetMonitoringResult {
	result := types.SetMonitoringResult{
		ID:        d.ID,
		Type:      d.Type,
		Severity:  d.Severity,
		Component: d.Component,
		Variable:  d.Variable,
	}
	if e.dm == nil || !e.dm.Exists(d.Component.Name, d.Variable.Name) {
		result.Status = types.SetMonitoringStatusUnknownVariable
		return result
	}
	switch d.Type {
	case types.MonitorUpperThreshold, types.MonitorLowerThreshold, types.MonitorDelta,
		types.MonitorPeriodic, types.MonitorPeriodicClockAligned:
	default:
		result.Status = types.SetMonitoringStatusUnsupportedMonitorType
		return result
	}

	e.mu.Lock()
	id := 0
	if d.ID != nil {
		id = *d.ID
		if existing, ok := e.monitors[id]; ok && existing.hasTimer {
			e.sched.Cancel(existing.timer)
		}
	} else {
		id = e.nextID
		e.nextID++
	}
	m := &monitor{
		id:        id,
		component: d.Component.Name,
		variable:  d.Variable.Name,
		kind:      d.Type,
		value:     d.Value,
		severity:  d.Severity,
	}
	e.monitors[id] = m
	e.armPeriodicLocked(m)
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.SaveMonitor(store.MonitorRow{
			ID: id, Component: m.component, Variable: m.variable,
			Kind: string(m.kind), Value: m.value, Severity: m.severity,
		}); err != nil {
			log.WithFields(log.Fields{"monitor": id, "error": err}).Error("persisting monitor failed")
		}
	}

	result.ID = &id
	result.Status = types.SetMonitoringStatusAccepted
	return result
}

// ClearMonitor removes a monitor by id.
func (e *Engine) ClearMonitor(id int) types.ClearMonitoringStatus {
	e.mu.Lock()
	m, ok := e.monitors[id]
	if ok {
		if m.hasTimer {
			e.sched.Cancel(m.timer)
		}
		delete(e.monitors, id)
	}
	e.mu.Unlock()
	if !ok {
		return types.ClearMonitoringStatusNotFound
	}
	if e.store != nil {
		if _, err := e.store.DeleteMonitor(id); err != nil {
			log.WithFields(log.Fields{"monitor": id, "error": err}).Warn("deleting monitor failed")
		}
	}
	return types.ClearMonitoringStatusAccepted
}

// Monitors lists the installed monitors for GetMonitoringReport.
func (e *Engine) Monitors() []types.SetMonitoringData {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.SetMonitoringData, 0, len(e.monitors))
	for _, m := range e.monitors {
		id := m.id
		out = append(out, types.SetMonitoringData{
			ID:        &id,
			Value:     m.value,
			Type:      m.kind,
			Severity:  m.severity,
			Component: types.Component{Name: m.component},
			Variable:  types.Variable{Name: m.variable},
		})
	}
	return out
}

// SetOnline switches connectivity; returning online flushes queued events
// in generation order.
func (e *Engine) SetOnline(online bool) {
	e.mu.Lock()
	wasOnline := e.online
	e.online = online
	if !online && wasOnline {
		e.offlineSince = e.now()
	}
	e.mu.Unlock()
	if online {
		e.flush()
	}
}

func (e *Engine) armPeriodicLocked(m *monitor) {
	if m.kind != types.MonitorPeriodic && m.kind != types.MonitorPeriodicClockAligned {
		return
	}
	interval := time.Duration(m.value) * time.Second
	if interval <= 0 {
		return
	}
	fire := func() { e.periodicSample(m.id) }
	if m.kind == types.MonitorPeriodicClockAligned {
		m.timer = e.sched.EveryAligned(interval, fire)
	} else {
		m.timer = e.sched.Every(interval, fire)
	}
	m.hasTimer = true
}

func (e *Engine) periodicSample(monitorID int) {
	e.mu.Lock()
	m, ok := e.monitors[monitorID]
	e.mu.Unlock()
	if !ok || e.dm == nil {
		return
	}
	value, err := e.dm.Get(m.component, m.variable, types.AttributeActual)
	if err != nil {
		return
	}
	e.queueEvent(m, types.EventTriggerPeriodic, value, nil)
}

// variableChanged evaluates threshold and delta monitors on every
// committed device model write.
func (e *Engine) variableChanged(component, variable string, _ types.AttributeType, oldValue, newValue string) {
	e.mu.Lock()
	var affected []*monitor
	for _, m := range e.monitors {
		if m.component == component && m.variable == variable {
			affected = append(affected, m)
		}
	}
	e.mu.Unlock()
	if len(affected) == 0 {
		return
	}

	newNum, newErr := strconv.ParseFloat(newValue, 64)
	oldNum, oldErr := strconv.ParseFloat(oldValue, 64)

	for _, m := range affected {
		switch m.kind {
		case types.MonitorUpperThreshold:
			if newErr != nil {
				continue
			}
			crossed := newNum > m.value && (oldErr != nil || oldNum <= m.value)
			cleared := newNum <= m.value && m.alerting
			if crossed {
				m.alerting = true
				e.queueEvent(m, types.EventTriggerAlerting, newValue, nil)
			} else if cleared {
				m.alerting = false
				clearedFlag := true
				e.queueEvent(m, types.EventTriggerAlerting, newValue, &clearedFlag)
			}
		case types.MonitorLowerThreshold:
			if newErr != nil {
				continue
			}
			crossed := newNum < m.value && (oldErr != nil || oldNum >= m.value)
			cleared := newNum >= m.value && m.alerting
			if crossed {
				m.alerting = true
				e.queueEvent(m, types.EventTriggerAlerting, newValue, nil)
			} else if cleared {
				m.alerting = false
				clearedFlag := true
				e.queueEvent(m, types.EventTriggerAlerting, newValue, &clearedFlag)
			}
		case types.MonitorDelta:
			if newErr != nil {
				// Non-numeric variables report every change.
				e.queueEvent(m, types.EventTriggerDelta, newValue, nil)
				continue
			}
			if !m.hasNumeric {
				m.lastNumeric = newNum
				m.hasNumeric = true
				continue
			}
			if diff := newNum - m.lastNumeric; diff >= m.value || diff <= -m.value {
				m.lastNumeric = newNum
				e.queueEvent(m, types.EventTriggerDelta, newValue, nil)
			}
		}
	}
}

func (e *Engine) queueEvent(m *monitor, trigger types.EventTrigger, actualValue string, cleared *bool) {
	e.mu.Lock()
	monitorID := m.id
	ev := types.EventData{
		EventID:               e.nextEventID,
		Timestamp:             e.now(),
		Trigger:               trigger,
		ActualValue:           actualValue,
		Cleared:               cleared,
		VariableMonitoringID:  &monitorID,
		EventNotificationType: types.EventNotificationCustomMonitor,
		Component:             types.Component{Name: m.component},
		Variable:              types.Variable{Name: m.variable},
	}
	e.nextEventID++
	e.pending = append(e.pending, ev)
	e.coalesceLocked()
	online := e.online
	e.mu.Unlock()

	if online {
		e.flush()
	}
}

// coalesceLocked keeps only the newest event per monitor once the station
// has been offline longer than the threshold.
func (e *Engine) coalesceLocked() {
	if e.online || e.offlineSince.IsZero() {
		return
	}
	if e.now().Sub(e.offlineSince) < e.offlineThreshold() {
		return
	}
	latest := make(map[int]types.EventData)
	var ids []int
	for _, ev := range e.pending {
		id := -1
		if ev.VariableMonitoringID != nil {
			id = *ev.VariableMonitoringID
		}
		if _, seen := latest[id]; !seen {
			ids = append(ids, id)
		}
		latest[id] = ev
	}
	if len(latest) == len(e.pending) {
		return
	}
	out := make([]types.EventData, 0, len(latest))
	for _, id := range ids {
		out = append(out, latest[id])
	}
	e.pending = out
}

// flush sends the queued events as one NotifyEvent batch.
func (e *Engine) flush() {
	e.mu.Lock()
	if len(e.pending) == 0 || e.send == nil {
		e.mu.Unlock()
		return
	}
	batch := e.pending
	e.pending = nil
	req := messages.NotifyEventRequest{
		GeneratedAt: e.now(),
		SeqNo:       e.seqNo,
		EventData:   batch,
	}
	e.seqNo++
	send := e.send
	e.mu.Unlock()

	if err := send(req); err != nil {
		log.WithField("error", err).Warn("notify event dispatch failed, requeueing")
		e.mu.Lock()
		e.pending = append(batch, e.pending...)
		e.seqNo--
		e.mu.Unlock()
	}
}
