package monitoring

import (
	"testing"
	"time"

	"charging_station/devicemodel"
	"charging_station/messages"
	"charging_station/scheduler"
	"charging_station/store"
	"charging_station/types"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func newEngine(t *testing.T) (*Engine, *devicemodel.DeviceModel, *clock, *[]messages.NotifyEventRequest) {
	t.Helper()
	dm, err := devicemodel.New(nil)
	if err != nil {
		t.Fatalf("device model: %v", err)
	}
	dm.Register("EVSE", "Temperature", devicemodel.Meta{
		Mutability:      types.MutabilityReadWrite,
		Characteristics: &types.VariableCharacteristics{DataType: "decimal", SupportsMonitoring: true},
	}, "20")

	cq := scheduler.NewCallbackQueue()
	t.Cleanup(cq.Close)
	sched := scheduler.New(cq)
	t.Cleanup(sched.Stop)

	clk := &clock{t: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	e := New(dm, nil, sched, clk.now)

	var sent []messages.NotifyEventRequest
	e.SetSender(func(req messages.NotifyEventRequest) error {
		sent = append(sent, req)
		return nil
	})
	e.SetOnline(true)
	return e, dm, clk, &sent
}

func upperMonitor(e *Engine, t *testing.T, threshold float64) int {
	t.Helper()
	res := e.SetMonitor(types.SetMonitoringData{
		Value:     threshold,
		Type:      types.MonitorUpperThreshold,
		Severity:  5,
		Component: types.Component{Name: "EVSE"},
		Variable:  types.Variable{Name: "Temperature"},
	})
	if res.Status != types.SetMonitoringStatusAccepted {
		t.Fatalf("set monitor: %s", res.Status)
	}
	return *res.ID
}

func TestUpperThresholdCrossingEmitsOnce(t *testing.T) {
	e, dm, _, sent := newEngine(t)
	upperMonitor(e, t, 50)

	dm.Set("EVSE", "Temperature", types.AttributeActual, "45", devicemodel.SourceInternal)
	if len(*sent) != 0 {
		t.Fatalf("event below threshold: %+v", *sent)
	}

	dm.Set("EVSE", "Temperature", types.AttributeActual, "55", devicemodel.SourceInternal)
	if len(*sent) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(*sent))
	}
	ev := (*sent)[0].EventData[0]
	if ev.Trigger != types.EventTriggerAlerting || ev.ActualValue != "55" {
		t.Fatalf("unexpected event %+v", ev)
	}

	// Staying above the threshold does not re-fire.
	dm.Set("EVSE", "Temperature", types.AttributeActual, "60", devicemodel.SourceInternal)
	if len(*sent) != 1 {
		t.Fatalf("re-fired while above threshold: %d batches", len(*sent))
	}

	// Falling back emits the cleared event.
	dm.Set("EVSE", "Temperature", types.AttributeActual, "40", devicemodel.SourceInternal)
	if len(*sent) != 2 {
		t.Fatalf("expected cleared batch, got %d", len(*sent))
	}
	cleared := (*sent)[1].EventData[0]
	if cleared.Cleared == nil || !*cleared.Cleared {
		t.Fatalf("cleared flag missing: %+v", cleared)
	}
}

func TestDeltaMonitor(t *testing.T) {
	e, dm, _, sent := newEngine(t)
	res := e.SetMonitor(types.SetMonitoringData{
		Value:     10,
		Type:      types.MonitorDelta,
		Severity:  7,
		Component: types.Component{Name: "EVSE"},
		Variable:  types.Variable{Name: "Temperature"},
	})
	if res.Status != types.SetMonitoringStatusAccepted {
		t.Fatalf("set monitor: %s", res.Status)
	}

	dm.Set("EVSE", "Temperature", types.AttributeActual, "25", devicemodel.SourceInternal) // baseline
	dm.Set("EVSE", "Temperature", types.AttributeActual, "30", devicemodel.SourceInternal) // +5, below delta
	if len(*sent) != 0 {
		t.Fatalf("delta fired too early: %+v", *sent)
	}
	dm.Set("EVSE", "Temperature", types.AttributeActual, "36", devicemodel.SourceInternal) // +11 from baseline
	if len(*sent) != 1 {
		t.Fatalf("expected delta event, got %d", len(*sent))
	}
	if (*sent)[0].EventData[0].Trigger != types.EventTriggerDelta {
		t.Fatalf("unexpected trigger %+v", (*sent)[0].EventData[0])
	}
}

func TestUnknownVariableRefused(t *testing.T) {
	e, _, _, _ := newEngine(t)
	res := e.SetMonitor(types.SetMonitoringData{
		Value:     1,
		Type:      types.MonitorUpperThreshold,
		Component: types.Component{Name: "EVSE"},
		Variable:  types.Variable{Name: "NoSuchVariable"},
	})
	if res.Status != types.SetMonitoringStatusUnknownVariable {
		t.Fatalf("expected UnknownVariable, got %s", res.Status)
	}
}

func TestClearMonitor(t *testing.T) {
	e, dm, _, sent := newEngine(t)
	id := upperMonitor(e, t, 50)

	if status := e.ClearMonitor(id); status != types.ClearMonitoringStatusAccepted {
		t.Fatalf("clear: %s", status)
	}
	if status := e.ClearMonitor(id); status != types.ClearMonitoringStatusNotFound {
		t.Fatalf("second clear: %s", status)
	}
	dm.Set("EVSE", "Temperature", types.AttributeActual, "99", devicemodel.SourceInternal)
	if len(*sent) != 0 {
		t.Fatalf("cleared monitor still fired")
	}
}

func TestOfflineEventsFlushInOrderOnReconnect(t *testing.T) {
	e, dm, _, sent := newEngine(t)
	upperMonitor(e, t, 50)
	res := e.SetMonitor(types.SetMonitoringData{
		Value:     5,
		Type:      types.MonitorDelta,
		Severity:  5,
		Component: types.Component{Name: "EVSE"},
		Variable:  types.Variable{Name: "Temperature"},
	})
	if res.Status != types.SetMonitoringStatusAccepted {
		t.Fatalf("delta monitor: %s", res.Status)
	}

	dm.Set("EVSE", "Temperature", types.AttributeActual, "30", devicemodel.SourceInternal) // delta baseline
	e.SetOnline(false)
	dm.Set("EVSE", "Temperature", types.AttributeActual, "60", devicemodel.SourceInternal) // upper + delta
	if len(*sent) != 0 {
		t.Fatalf("events sent while offline")
	}
	e.SetOnline(true)
	if len(*sent) != 1 {
		t.Fatalf("expected 1 flush batch, got %d", len(*sent))
	}
	batch := (*sent)[0].EventData
	if len(batch) != 2 {
		t.Fatalf("expected 2 queued events, got %d", len(batch))
	}
	if batch[0].EventID > batch[1].EventID {
		t.Fatalf("generation order broken: %+v", batch)
	}
}

func TestLongOfflineCoalescesPerMonitor(t *testing.T) {
	e, dm, clk, sent := newEngine(t)
	e.SetOfflineThreshold(func() time.Duration { return time.Minute })
	upperMonitor(e, t, 50)

	e.SetOnline(false)
	clk.t = clk.t.Add(5 * time.Minute) // past the offline threshold

	dm.Set("EVSE", "Temperature", types.AttributeActual, "60", devicemodel.SourceInternal) // alert
	dm.Set("EVSE", "Temperature", types.AttributeActual, "40", devicemodel.SourceInternal) // cleared
	dm.Set("EVSE", "Temperature", types.AttributeActual, "70", devicemodel.SourceInternal) // alert again

	e.SetOnline(true)
	if len(*sent) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(*sent))
	}
	batch := (*sent)[0].EventData
	if len(batch) != 1 {
		t.Fatalf("coalescing kept %d events", len(batch))
	}
	if batch[0].ActualValue != "70" {
		t.Fatalf("kept event is not the newest: %+v", batch[0])
	}
}

func TestMonitorsSurviveRestore(t *testing.T) {
	st, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	dm, _ := devicemodel.New(nil)
	dm.Register("EVSE", "Temperature", devicemodel.Meta{
		Mutability:      types.MutabilityReadWrite,
		Characteristics: &types.VariableCharacteristics{DataType: "decimal"},
	}, "20")

	cq := scheduler.NewCallbackQueue()
	t.Cleanup(cq.Close)
	sched := scheduler.New(cq)
	t.Cleanup(sched.Stop)

	e := New(dm, st, sched, nil)
	res := e.SetMonitor(types.SetMonitoringData{
		Value:     50,
		Type:      types.MonitorUpperThreshold,
		Severity:  5,
		Component: types.Component{Name: "EVSE"},
		Variable:  types.Variable{Name: "Temperature"},
	})
	if res.Status != types.SetMonitoringStatusAccepted {
		t.Fatalf("set monitor: %s", res.Status)
	}

	restored := New(dm, st, sched, nil)
	if err := restored.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	monitors := restored.Monitors()
	if len(monitors) != 1 || monitors[0].Value != 50 {
		t.Fatalf("restored monitors: %+v", monitors)
	}
}
