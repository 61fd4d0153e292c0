package station

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"charging_station/config"
	"charging_station/connectivity"
	"charging_station/devicemodel"
	"charging_station/evse"
	"charging_station/messages"
	"charging_station/rpc"
	"charging_station/store"
	"charging_station/transport"
	"charging_station/types"
)

// fakeTransport records outbound frames and lets tests inject inbound ones
// through the station's frame handler.
type fakeTransport struct {
	frames    chan rpc.Message
	connected bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{frames: make(chan rpc.Message, 128), connected: true}
}

func (f *fakeTransport) Start()                              {}
func (f *fakeTransport) Stop()                               {}
func (f *fakeTransport) Reconnect(time.Duration)             {}
func (f *fakeTransport) Disconnect(int, string)              {}
func (f *fakeTransport) IsConnected() bool                   { return f.connected }
func (f *fakeTransport) SetOptions(transport.Options)        {}
func (f *fakeTransport) Send(data []byte) bool {
	if !f.connected {
		return false
	}
	msg, err := rpc.Decode(data)
	if err != nil {
		return false
	}
	f.frames <- msg
	return true
}

type testRig struct {
	station *Station
	tr      *fakeTransport
	store   *store.Store
}

func newRig(t *testing.T) *testRig {
	t.Helper()
	st, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	dm, err := devicemodel.New(st)
	if err != nil {
		t.Fatalf("device model: %v", err)
	}
	// Fast knobs for tests.
	dm.Set(devicemodel.ComponentOCPPCommCtrlr, devicemodel.VarMessageTimeout, types.AttributeActual, "1", devicemodel.SourceInternal)
	dm.Set(devicemodel.ComponentOCPPCommCtrlr, devicemodel.VarMessageAttemptInterval, types.AttributeActual, "1", devicemodel.SourceInternal)

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	evses := evse.NewManager([]int{1}, st, nil)
	network := connectivity.NewManager([]connectivity.Profile{{
		ConfigurationSlot: 1, Priority: 0, SecurityProfile: 1, URI: "ws://csms.test/ocpp",
	}})

	s := New(Deps{
		Config:      config.Config{StationID: "CS001", StationModel: "SingleSocketCharger", StationVendor: "VendorX"},
		Log:         log,
		Store:       st,
		DeviceModel: dm,
		Evses:       evses,
		Network:     network,
	})
	tr := newFakeTransport()
	s.transport = tr

	if err := s.Start(types.BootReasonPowerUp); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(s.Stop)
	return &testRig{station: s, tr: tr, store: st}
}

func (r *testRig) await(t *testing.T, action string) rpc.Message {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case msg := <-r.tr.frames:
			if msg.Type == rpc.MessageTypeCall && msg.Action == action {
				return msg
			}
		case <-deadline:
			t.Fatalf("no %s call observed", action)
		}
	}
}

func (r *testRig) awaitAnyCall(t *testing.T) rpc.Message {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case msg := <-r.tr.frames:
			if msg.Type == rpc.MessageTypeCall {
				return msg
			}
		case <-deadline:
			t.Fatal("no call observed")
		}
	}
}

func (r *testRig) reply(t *testing.T, call rpc.Message, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal reply: %v", err)
	}
	frame := fmt.Sprintf(`[3,%q,%s]`, call.UniqueID, raw)
	r.station.handleFrame([]byte(frame))
}

// awaitResponse waits for the CallResult/CallError answering an inbound
// request the test injected.
func (r *testRig) awaitResponse(t *testing.T, uniqueID string) rpc.Message {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case msg := <-r.tr.frames:
			if msg.Type != rpc.MessageTypeCall && msg.UniqueID == uniqueID {
				return msg
			}
		case <-deadline:
			t.Fatalf("no response for %s", uniqueID)
		}
	}
}

func (r *testRig) inject(t *testing.T, uniqueID, action string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	frame := fmt.Sprintf(`[2,%q,%q,%s]`, uniqueID, action, raw)
	r.station.handleFrame([]byte(frame))
}

func (r *testRig) bootAccept(t *testing.T, interval int) {
	t.Helper()
	r.station.onConnected()
	boot := r.await(t, messages.ActionBootNotification)
	r.reply(t, boot, messages.BootNotificationResponse{
		CurrentTime: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Interval:    interval,
		Status:      types.RegistrationStatusAccepted,
	})
	// The accepted boot is followed by one status notification per
	// connector; answer it so the in-flight slot frees up.
	status := r.await(t, messages.ActionStatusNotification)
	r.reply(t, status, messages.StatusNotificationResponse{})
}

func TestScenarioBootAccept(t *testing.T) {
	r := newRig(t)
	r.station.onConnected()

	boot := r.await(t, messages.ActionBootNotification)
	var req messages.BootNotificationRequest
	if err := json.Unmarshal(boot.Payload, &req); err != nil {
		t.Fatalf("boot payload: %v", err)
	}
	if req.Reason != types.BootReasonPowerUp {
		t.Fatalf("boot reason %s", req.Reason)
	}

	r.reply(t, boot, messages.BootNotificationResponse{
		CurrentTime: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Interval:    1,
		Status:      types.RegistrationStatusAccepted,
	})

	if got := r.station.RegistrationStatus(); got != types.RegistrationStatusAccepted {
		t.Fatalf("registration = %s", got)
	}

	// One status notification per connector.
	status := r.await(t, messages.ActionStatusNotification)
	var sn messages.StatusNotificationRequest
	if err := json.Unmarshal(status.Payload, &sn); err != nil {
		t.Fatalf("status payload: %v", err)
	}
	if sn.EvseID != 1 || sn.ConnectorID != 1 || sn.ConnectorStatus != types.ConnectorStatusAvailable {
		t.Fatalf("unexpected status notification %+v", sn)
	}
	r.reply(t, status, messages.StatusNotificationResponse{})

	// The heartbeat timer runs at the accepted interval.
	hb := r.await(t, messages.ActionHeartbeat)
	r.reply(t, hb, messages.HeartbeatResponse{CurrentTime: time.Now().UTC()})
}

func TestScenarioPendingStateGating(t *testing.T) {
	r := newRig(t)
	r.station.onConnected()

	boot := r.await(t, messages.ActionBootNotification)
	r.reply(t, boot, messages.BootNotificationResponse{
		CurrentTime: time.Now().UTC(),
		Interval:    600,
		Status:      types.RegistrationStatusPending,
	})
	if got := r.station.RegistrationStatus(); got != types.RegistrationStatusPending {
		t.Fatalf("registration = %s", got)
	}

	// RequestStartTransaction answers a Rejected CallResult (B02.FR.05).
	r.inject(t, "req-1", messages.ActionRequestStartTransaction, messages.RequestStartTransactionRequest{
		RemoteStartID: 7,
		IdToken:       types.IdToken{IdToken: "TAG1", Type: types.IdTokenTypeISO14443},
	})
	resp := r.awaitResponse(t, "req-1")
	if resp.Type != rpc.MessageTypeCallResult {
		t.Fatalf("expected CallResult, got %+v", resp)
	}
	var start messages.RequestStartTransactionResponse
	if err := json.Unmarshal(resp.Payload, &start); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if start.Status != types.RequestStartStopStatusRejected {
		t.Fatalf("expected Rejected, got %s", start.Status)
	}

	// Reset answers CallError SecurityError (B02.FR.09).
	r.inject(t, "req-2", messages.ActionReset, messages.ResetRequest{Type: types.ResetTypeImmediate})
	resp = r.awaitResponse(t, "req-2")
	if resp.Type != rpc.MessageTypeCallError || resp.ErrorCode != rpc.ErrSecurityError {
		t.Fatalf("expected SecurityError, got %+v", resp)
	}

	// GetVariables is whitelisted while pending.
	r.inject(t, "req-3", messages.ActionGetVariables, messages.GetVariablesRequest{
		GetVariableData: []messages.GetVariableData{{
			Component: types.Component{Name: devicemodel.ComponentOCPPCommCtrlr},
			Variable:  types.Variable{Name: devicemodel.VarHeartbeatInterval},
		}},
	})
	resp = r.awaitResponse(t, "req-3")
	if resp.Type != rpc.MessageTypeCallResult {
		t.Fatalf("whitelisted call refused: %+v", resp)
	}
}

func TestScenarioRejectedStateOnlyTriggeredBoot(t *testing.T) {
	r := newRig(t)
	// Default registration status is Rejected; no boot has happened.
	r.station.queue.SetOnline(true)

	r.inject(t, "req-1", messages.ActionGetVariables, messages.GetVariablesRequest{
		GetVariableData: []messages.GetVariableData{{
			Component: types.Component{Name: devicemodel.ComponentOCPPCommCtrlr},
			Variable:  types.Variable{Name: devicemodel.VarHeartbeatInterval},
		}},
	})
	resp := r.awaitResponse(t, "req-1")
	if resp.Type != rpc.MessageTypeCallError || resp.ErrorCode != rpc.ErrSecurityError {
		t.Fatalf("expected SecurityError while rejected, got %+v", resp)
	}

	r.inject(t, "req-2", messages.ActionTriggerMessage, messages.TriggerMessageRequest{
		RequestedMessage: types.MessageTriggerBootNotification,
	})
	resp = r.awaitResponse(t, "req-2")
	if resp.Type != rpc.MessageTypeCallResult {
		t.Fatalf("triggered boot refused: %+v", resp)
	}
	r.await(t, messages.ActionBootNotification)
}

func TestScenarioOfflineTransactionReplay(t *testing.T) {
	r := newRig(t)
	// Station is offline: events accumulate in the transactional lane.
	r.station.evses.PlugIn(1, 1)
	r.station.evses.Authorized(1, types.IdToken{IdToken: "TAG1", Type: types.IdTokenTypeISO14443}, nil)
	r.station.evses.StartCharging(1)
	r.station.evses.SuspendEV(1)
	r.station.evses.StopTransaction(1, types.StopReasonLocal, types.TriggerReasonStopAuthorized)

	// Boot is accepted after reconnecting; the four transaction events
	// arrive in order before anything else.
	r.bootAccept(t, 600)

	var seq []int
	for len(seq) < 4 {
		call := r.awaitAnyCall(t)
		switch call.Action {
		case messages.ActionTransactionEvent:
			var ev messages.TransactionEventRequest
			if err := json.Unmarshal(call.Payload, &ev); err != nil {
				t.Fatalf("event payload: %v", err)
			}
			seq = append(seq, ev.SeqNo)
			r.reply(t, call, messages.TransactionEventResponse{})
		case messages.ActionStatusNotification:
			// Status notifications ride the same lane; they may not
			// overtake the events (checked via seq order below).
			r.reply(t, call, messages.StatusNotificationResponse{})
		case messages.ActionHeartbeat:
			t.Fatal("heartbeat overtook queued transaction events")
		default:
			r.reply(t, call, map[string]string{})
		}
	}
	for i, got := range seq {
		if got != i {
			t.Fatalf("event order broken: %v", seq)
		}
	}
}

func TestDuplicateInboundUniqueID(t *testing.T) {
	r := newRig(t)
	r.bootAccept(t, 600)

	payload := messages.GetLocalListVersionRequest{}
	r.inject(t, "dup-1", messages.ActionGetLocalListVersion, payload)
	resp := r.awaitResponse(t, "dup-1")
	if resp.Type != rpc.MessageTypeCallResult {
		t.Fatalf("first call failed: %+v", resp)
	}

	r.inject(t, "dup-1", messages.ActionGetLocalListVersion, payload)
	resp = r.awaitResponse(t, "dup-1")
	if resp.Type != rpc.MessageTypeCallError || resp.ErrorCode != rpc.ErrFormationViolation {
		t.Fatalf("duplicate id not refused: %+v", resp)
	}
}

func TestMalformedFrameAnswersRpcFrameworkError(t *testing.T) {
	r := newRig(t)
	r.bootAccept(t, 600)

	r.station.handleFrame([]byte(`{"not":"an array"}`))
	resp := r.awaitResponse(t, "-1")
	if resp.Type != rpc.MessageTypeCallError || resp.ErrorCode != rpc.ErrRpcFrameworkError {
		t.Fatalf("expected RpcFrameworkError, got %+v", resp)
	}
	// The parse failure also raises an InvalidMessages security event.
	sec := r.await(t, messages.ActionSecurityEventNotification)
	var ev messages.SecurityEventNotificationRequest
	if err := json.Unmarshal(sec.Payload, &ev); err != nil {
		t.Fatalf("security payload: %v", err)
	}
	if ev.Type != types.SecurityEventInvalidMessages {
		t.Fatalf("security event %s", ev.Type)
	}
}

func TestTriggerMessageHeartbeat(t *testing.T) {
	r := newRig(t)
	r.bootAccept(t, 600)

	r.inject(t, "trig-1", messages.ActionTriggerMessage, messages.TriggerMessageRequest{
		RequestedMessage: types.MessageTriggerHeartbeat,
	})
	resp := r.awaitResponse(t, "trig-1")
	var tm messages.TriggerMessageResponse
	if err := json.Unmarshal(resp.Payload, &tm); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if tm.Status != types.TriggerMessageStatusAccepted {
		t.Fatalf("trigger status %s", tm.Status)
	}
	hb := r.await(t, messages.ActionHeartbeat)
	r.reply(t, hb, messages.HeartbeatResponse{CurrentTime: time.Now().UTC()})
}

func TestSetChargingProfileRejectionCarriesReason(t *testing.T) {
	r := newRig(t)
	r.bootAccept(t, 600)

	// TxProfile without an active transaction (spec scenario 3).
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	profile := types.ChargingProfile{
		ID:         1,
		StackLevel: 1,
		Purpose:    types.PurposeTx,
		Kind:       types.ProfileKindAbsolute,
		TransactionID: "T1",
		Schedules: []types.ChargingSchedule{{
			ChargingRateUnit: types.ChargingRateUnitA,
			StartSchedule:    &start,
			Periods:          []types.ChargingSchedulePeriod{{StartPeriod: 0, Limit: 16}},
		}},
	}
	r.inject(t, "scp-1", messages.ActionSetChargingProfile, messages.SetChargingProfileRequest{
		EvseID:          1,
		ChargingProfile: profile,
	})
	resp := r.awaitResponse(t, "scp-1")
	var scp messages.SetChargingProfileResponse
	if err := json.Unmarshal(resp.Payload, &scp); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if scp.Status != types.ChargingProfileStatusRejected {
		t.Fatalf("expected Rejected, got %s", scp.Status)
	}
	if scp.StatusInfo == nil || scp.StatusInfo.ReasonCode != "TxProfileEvseHasNoActiveTransaction" {
		t.Fatalf("reason code missing: %+v", scp.StatusInfo)
	}
}

func TestChangeAvailabilityScheduledDuringTransaction(t *testing.T) {
	r := newRig(t)
	r.bootAccept(t, 600)

	r.station.evses.PlugIn(1, 1)
	r.station.evses.Authorized(1, types.IdToken{IdToken: "TAG1", Type: types.IdTokenTypeISO14443}, nil)

	evseID := 1
	r.inject(t, "ca-1", messages.ActionChangeAvailability, messages.ChangeAvailabilityRequest{
		OperationalStatus: types.OperationalStatusInoperative,
		Evse:              &types.EVSE{ID: evseID},
	})
	resp := r.awaitResponse(t, "ca-1")
	var ca messages.ChangeAvailabilityResponse
	if err := json.Unmarshal(resp.Payload, &ca); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if ca.Status != types.ChangeAvailabilityStatusScheduled {
		t.Fatalf("expected Scheduled, got %s", ca.Status)
	}
}

func TestGetCompositeScheduleOverWire(t *testing.T) {
	r := newRig(t)
	r.bootAccept(t, 600)

	r.inject(t, "gcs-1", messages.ActionGetCompositeSchedule, messages.GetCompositeScheduleRequest{
		Duration: 600,
		EvseID:   1,
	})
	resp := r.awaitResponse(t, "gcs-1")
	var gcs messages.GetCompositeScheduleResponse
	if err := json.Unmarshal(resp.Payload, &gcs); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if gcs.Status != types.GenericStatusAccepted || gcs.Schedule == nil {
		t.Fatalf("unexpected response %+v", gcs)
	}
	if gcs.Schedule.EvseID != 1 || gcs.Schedule.Duration != 600 {
		t.Fatalf("unexpected schedule %+v", gcs.Schedule)
	}
}
