package devicemodel

import (
	"testing"
	"time"

	"charging_station/types"
)

func newModel(t *testing.T) *DeviceModel {
	t.Helper()
	d, err := New(nil)
	if err != nil {
		t.Fatalf("new device model: %v", err)
	}
	return d
}

func TestDefaultsAreSeeded(t *testing.T) {
	d := newModel(t)
	if got := d.Int(ComponentOCPPCommCtrlr, VarMessageAttempts, 0); got != 5 {
		t.Fatalf("MessageAttempts default = %d", got)
	}
	if got := d.Seconds(ComponentOCPPCommCtrlr, VarHeartbeatInterval, 0); got != 1800*time.Second {
		t.Fatalf("HeartbeatInterval default = %v", got)
	}
}

func TestGetUnknownVariableIsNotFound(t *testing.T) {
	d := newModel(t)
	if _, err := d.Get("NoSuchCtrlr", "NoSuchVar", types.AttributeActual); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReadOnlyRejectsExternalWrite(t *testing.T) {
	d := newModel(t)
	err := d.Set(ComponentSecurityCtrlr, VarSecurityProfile, types.AttributeActual, "2", SourceCSMS)
	if err != ErrReadOnly {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
	// Internal bypasses mutability.
	if err := d.Set(ComponentSecurityCtrlr, VarSecurityProfile, types.AttributeActual, "2", SourceInternal); err != nil {
		t.Fatalf("internal write: %v", err)
	}
	if got := d.Int(ComponentSecurityCtrlr, VarSecurityProfile, 0); got != 2 {
		t.Fatalf("SecurityProfile = %d", got)
	}
}

func TestWriteOnlyIsNotReadable(t *testing.T) {
	d := newModel(t)
	if err := d.Set(ComponentSecurityCtrlr, VarBasicAuthPassword, types.AttributeActual, "secret", SourceCSMS); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := d.Get(ComponentSecurityCtrlr, VarBasicAuthPassword, types.AttributeActual); err != ErrWriteOnly {
		t.Fatalf("expected ErrWriteOnly, got %v", err)
	}
}

func TestIntegerCharacteristicsRejectGarbage(t *testing.T) {
	d := newModel(t)
	err := d.Set(ComponentOCPPCommCtrlr, VarHeartbeatInterval, types.AttributeActual, "soon", SourceCSMS)
	if err != ErrTypeMismatch {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestNumericRangeEnforced(t *testing.T) {
	d := newModel(t)
	min, max := 1.0, 10.0
	d.Register("TestCtrlr", "Bounded", Meta{
		Mutability:      types.MutabilityReadWrite,
		Characteristics: &types.VariableCharacteristics{DataType: "integer", MinLimit: &min, MaxLimit: &max},
	}, "5")
	if err := d.Set("TestCtrlr", "Bounded", types.AttributeActual, "11", SourceCSMS); err != ErrInvalidValue {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if err := d.Set("TestCtrlr", "Bounded", types.AttributeActual, "10", SourceCSMS); err != nil {
		t.Fatalf("in-range write: %v", err)
	}
}

func TestOptionListEnforced(t *testing.T) {
	d := newModel(t)
	d.Register("TestCtrlr", "Mode", Meta{
		Mutability:      types.MutabilityReadWrite,
		Characteristics: &types.VariableCharacteristics{DataType: "OptionList", ValuesList: "Eco,Fast,Off"},
	}, "Off")
	if err := d.Set("TestCtrlr", "Mode", types.AttributeActual, "Turbo", SourceCSMS); err != ErrInvalidValue {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if err := d.Set("TestCtrlr", "Mode", types.AttributeActual, "Fast", SourceCSMS); err != nil {
		t.Fatalf("valid option: %v", err)
	}
}

func TestObserverFiresOncePerChangeAndNotOnNoop(t *testing.T) {
	d := newModel(t)
	var calls int
	d.Observe(ComponentOCPPCommCtrlr, VarHeartbeatInterval, func(_, _ string, _ types.AttributeType, oldV, newV string) {
		calls++
		if oldV != "1800" || newV != "300" {
			t.Fatalf("observer saw %q -> %q", oldV, newV)
		}
	})

	if err := d.Set(ComponentOCPPCommCtrlr, VarHeartbeatInterval, types.AttributeActual, "300", SourceCSMS); err != nil {
		t.Fatalf("set: %v", err)
	}
	// Unchanged value must not notify.
	if err := d.Set(ComponentOCPPCommCtrlr, VarHeartbeatInterval, types.AttributeActual, "300", SourceCSMS); err != nil {
		t.Fatalf("noop set: %v", err)
	}
	if calls != 1 {
		t.Fatalf("observer fired %d times", calls)
	}
}

func TestListGetter(t *testing.T) {
	d := newModel(t)
	if err := d.Set(ComponentOCPPCommCtrlr, VarMessageTypesDiscardForQueueing, types.AttributeActual, "Heartbeat, StatusNotification", SourceInternal); err != nil {
		t.Fatalf("set: %v", err)
	}
	got := d.List(ComponentOCPPCommCtrlr, VarMessageTypesDiscardForQueueing)
	if len(got) != 2 || got[0] != "Heartbeat" || got[1] != "StatusNotification" {
		t.Fatalf("List = %v", got)
	}
}
