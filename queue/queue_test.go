package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"charging_station/messages"
	"charging_station/rpc"
	"charging_station/scheduler"
	"charging_station/store"
	"charging_station/types"
)

type harness struct {
	q     *MessageQueue
	d     *Dispatcher
	st    *store.Store
	sent  chan rpc.Message
	cq    *scheduler.CallbackQueue
	sched *scheduler.Scheduler

	mu      sync.Mutex
	sendOK  bool
	samples []rpc.Message
}

func defaultConfig() Config {
	return Config{
		MaxAttempts:        3,
		AttemptInterval:    20 * time.Millisecond,
		MessageTimeout:     150 * time.Millisecond,
		QueueSizeThreshold: 100,
		DiscardForQueueing: map[string]bool{},
	}
}

func newHarness(t *testing.T, cfg func() Config) *harness {
	t.Helper()
	st, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	h := &harness{st: st, sent: make(chan rpc.Message, 64), sendOK: true}
	h.cq = scheduler.NewCallbackQueue()
	t.Cleanup(h.cq.Close)
	h.sched = scheduler.New(h.cq)
	t.Cleanup(h.sched.Stop)

	if cfg == nil {
		cfg = defaultConfig
	}
	send := func(data []byte) bool {
		h.mu.Lock()
		ok := h.sendOK
		h.mu.Unlock()
		if !ok {
			return false
		}
		msg, err := rpc.Decode(data)
		if err != nil {
			t.Errorf("queue sent undecodable frame: %v", err)
			return false
		}
		h.mu.Lock()
		h.samples = append(h.samples, msg)
		h.mu.Unlock()
		h.sent <- msg
		return true
	}
	h.q = New(st, h.sched, send, cfg)
	h.d = NewDispatcher(h.q)
	if err := h.q.Start(); err != nil {
		t.Fatalf("start queue: %v", err)
	}
	t.Cleanup(h.q.Stop)
	h.q.SetOnline(true)
	h.d.SetRegistrationStatus(types.RegistrationStatusAccepted)
	return h
}

func (h *harness) awaitSend(t *testing.T) rpc.Message {
	t.Helper()
	select {
	case msg := <-h.sent:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no frame sent")
		return rpc.Message{}
	}
}

func (h *harness) respond(t *testing.T, call rpc.Message) {
	t.Helper()
	result, err := rpc.NewCallResult(call.UniqueID, map[string]string{})
	if err != nil {
		t.Fatalf("build result: %v", err)
	}
	if !h.q.HandleIncoming(result) {
		t.Fatalf("response for %s not correlated", call.UniqueID)
	}
}

func TestSingleCallInFlight(t *testing.T) {
	h := newHarness(t, nil)

	for i := 0; i < 3; i++ {
		if _, err := h.d.DispatchCall(messages.ActionHeartbeat, messages.HeartbeatRequest{}, nil); err != nil {
			t.Fatalf("dispatch: %v", err)
		}
	}

	first := h.awaitSend(t)
	// While the first Call is unanswered, nothing else may be sent.
	select {
	case msg := <-h.sent:
		t.Fatalf("second call %s sent while %s in flight", msg.UniqueID, first.UniqueID)
	case <-time.After(80 * time.Millisecond):
	}
	h.respond(t, first)
	second := h.awaitSend(t)
	if second.UniqueID == first.UniqueID {
		t.Fatal("same call sent twice")
	}
	h.respond(t, second)
	h.respond(t, h.awaitSend(t))
}

func TestTransactionalFIFOAndPersistenceLifecycle(t *testing.T) {
	h := newHarness(t, nil)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := h.d.DispatchCall(messages.ActionTransactionEvent,
			messages.TransactionEventRequest{SeqNo: i}, nil)
		if err != nil {
			t.Fatalf("dispatch: %v", err)
		}
		ids = append(ids, id)
	}

	if n, _ := h.st.QueuedMessageCount(); n != 3 {
		t.Fatalf("expected 3 persisted, got %d", n)
	}

	for i := 0; i < 3; i++ {
		call := h.awaitSend(t)
		if call.UniqueID != ids[i] {
			t.Fatalf("order broken: position %d sent %s, expected %s", i, call.UniqueID, ids[i])
		}
		var payload struct {
			SeqNo int `json:"seqNo"`
		}
		if err := json.Unmarshal(call.Payload, &payload); err != nil || payload.SeqNo != i {
			t.Fatalf("payload mangled: %v %+v", err, payload)
		}
		h.respond(t, call)
	}

	deadline := time.Now().Add(time.Second)
	for {
		n, _ := h.st.QueuedMessageCount()
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("persisted messages not released, %d left", n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestReplayedMessagesDrainBeforeNewOnes(t *testing.T) {
	st, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	// A crashed run left two transactional messages behind.
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old-1", "old-2"} {
		err := st.SaveQueuedMessage(store.PersistedMessage{
			UniqueID: id, Action: messages.ActionTransactionEvent,
			PayloadJSON: fmt.Sprintf(`{"seqNo":%d}`, i),
			Lane:        string(LaneTransactional), EnqueueTime: base,
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	sent := make(chan rpc.Message, 16)
	cq := scheduler.NewCallbackQueue()
	t.Cleanup(cq.Close)
	sched := scheduler.New(cq)
	t.Cleanup(sched.Stop)

	q := New(st, sched, func(data []byte) bool {
		msg, _ := rpc.Decode(data)
		sent <- msg
		return true
	}, defaultConfig)
	d := NewDispatcher(q)
	if err := q.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(q.Stop)

	// New heartbeat enqueued before going online.
	d.SetRegistrationStatus(types.RegistrationStatusAccepted)
	if _, err := d.DispatchCall(messages.ActionHeartbeat, messages.HeartbeatRequest{}, nil); err != nil {
		t.Fatalf("dispatch heartbeat: %v", err)
	}
	q.SetOnline(true)

	respond := func(call rpc.Message) {
		result, _ := rpc.NewCallResult(call.UniqueID, map[string]string{})
		q.HandleIncoming(result)
	}

	want := []string{"old-1", "old-2"}
	for i := 0; i < 2; i++ {
		select {
		case call := <-sent:
			if call.UniqueID != want[i] {
				t.Fatalf("replay order: got %s, expected %s", call.UniqueID, want[i])
			}
			respond(call)
		case <-time.After(2 * time.Second):
			t.Fatal("replayed message never sent")
		}
	}
	select {
	case call := <-sent:
		if call.Action != messages.ActionHeartbeat {
			t.Fatalf("expected heartbeat after replay, got %s", call.Action)
		}
		respond(call)
	case <-time.After(2 * time.Second):
		t.Fatal("heartbeat never sent")
	}
}

func TestTimeoutRetriesThenGivesUp(t *testing.T) {
	cfg := func() Config {
		c := defaultConfig()
		c.MaxAttempts = 2
		c.MessageTimeout = 40 * time.Millisecond
		c.AttemptInterval = 10 * time.Millisecond
		return c
	}
	h := newHarness(t, cfg)

	gaveUp := make(chan string, 1)
	h.q.OnGivingUp(func(action, uniqueID string) { gaveUp <- action })

	errs := make(chan error, 1)
	_, err := h.d.DispatchCall(messages.ActionTransactionEvent,
		messages.TransactionEventRequest{SeqNo: 0},
		func(_ rpc.Message, err error) { errs <- err })
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	first := h.awaitSend(t)
	second := h.awaitSend(t) // retry after timeout
	if first.UniqueID != second.UniqueID {
		t.Fatalf("retry used a different unique id")
	}

	select {
	case action := <-gaveUp:
		if action != messages.ActionTransactionEvent {
			t.Fatalf("giving-up observer got %s", action)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("giving-up observer never fired")
	}
	select {
	case err := <-errs:
		if err != ErrGivenUp {
			t.Fatalf("handler error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never notified")
	}

	// Exhausted messages leave durable storage.
	deadline := time.Now().Add(time.Second)
	for {
		n, _ := h.st.QueuedMessageCount()
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("exhausted message still persisted")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRegistrationGateOnlyBootPasses(t *testing.T) {
	h := newHarness(t, nil)
	h.d.SetRegistrationStatus(types.RegistrationStatusRejected)

	if _, err := h.d.DispatchCall(messages.ActionHeartbeat, messages.HeartbeatRequest{}, nil); err != ErrNotRegistered {
		t.Fatalf("heartbeat while rejected: %v", err)
	}
	// Transactional messages enqueue but do not drain.
	if _, err := h.d.DispatchCall(messages.ActionTransactionEvent, messages.TransactionEventRequest{}, nil); err != nil {
		t.Fatalf("transactional enqueue: %v", err)
	}
	select {
	case msg := <-h.sent:
		t.Fatalf("%s drained while rejected", msg.Action)
	case <-time.After(80 * time.Millisecond):
	}

	// BootNotification passes the gate.
	if _, err := h.d.DispatchCall(messages.ActionBootNotification, messages.BootNotificationRequest{
		Reason:          types.BootReasonPowerUp,
		ChargingStation: messages.ChargingStationInfo{Model: "M", VendorName: "V"},
	}, nil); err != nil {
		t.Fatalf("boot: %v", err)
	}
	call := h.awaitSend(t)
	if call.Action != messages.ActionBootNotification {
		t.Fatalf("expected boot, got %s", call.Action)
	}
	h.respond(t, call)

	// Accepting registration releases the held transactional message.
	h.d.SetRegistrationStatus(types.RegistrationStatusAccepted)
	call = h.awaitSend(t)
	if call.Action != messages.ActionTransactionEvent {
		t.Fatalf("expected held transaction event, got %s", call.Action)
	}
	h.respond(t, call)
}

func TestTriggerLaneOvertakesNormal(t *testing.T) {
	h := newHarness(t, nil)
	h.q.SetOnline(false) // hold dispatch while the lanes fill

	normalID, err := h.d.DispatchCall(messages.ActionHeartbeat, messages.HeartbeatRequest{}, nil)
	if err != nil {
		t.Fatalf("dispatch normal: %v", err)
	}
	trigID, err := h.d.DispatchTriggered(messages.ActionHeartbeat, messages.HeartbeatRequest{}, nil)
	if err != nil {
		t.Fatalf("dispatch triggered: %v", err)
	}
	h.q.SetOnline(true)

	first := h.awaitSend(t)
	h.respond(t, first)
	second := h.awaitSend(t)
	h.respond(t, second)

	h.mu.Lock()
	defer h.mu.Unlock()
	// Both are heartbeats; the triggered one was enqueued second yet must
	// be sent first, so the two unique ids arrive in reverse enqueue order.
	if len(h.samples) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(h.samples))
	}
	if h.samples[0].UniqueID != trigID || h.samples[1].UniqueID != normalID {
		t.Fatalf("send order %s, %s; expected triggered %s before normal %s",
			h.samples[0].UniqueID, h.samples[1].UniqueID, trigID, normalID)
	}
}

func TestTransactionalOvertakesTriggerAndNormal(t *testing.T) {
	h := newHarness(t, nil)
	h.q.SetOnline(false)

	h.d.DispatchCall(messages.ActionHeartbeat, messages.HeartbeatRequest{}, nil)
	h.d.DispatchTriggered(messages.ActionStatusNotification, messages.StatusNotificationRequest{}, nil)
	h.d.DispatchCall(messages.ActionTransactionEvent, messages.TransactionEventRequest{}, nil)
	h.q.SetOnline(true)

	order := []string{
		h.awaitSendAndRespond(t),
		h.awaitSendAndRespond(t),
		h.awaitSendAndRespond(t),
	}
	want := []string{messages.ActionTransactionEvent, messages.ActionStatusNotification, messages.ActionHeartbeat}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("lane priority broken: got %v, want %v", order, want)
		}
	}
}

func (h *harness) awaitSendAndRespond(t *testing.T) string {
	t.Helper()
	call := h.awaitSend(t)
	h.respond(t, call)
	return call.Action
}

func TestDiscardSetDropsWhileOffline(t *testing.T) {
	cfg := func() Config {
		c := defaultConfig()
		c.DiscardForQueueing = map[string]bool{messages.ActionHeartbeat: true}
		return c
	}
	h := newHarness(t, cfg)
	h.q.SetOnline(false)

	if _, err := h.d.DispatchCall(messages.ActionHeartbeat, messages.HeartbeatRequest{}, nil); err != ErrDiscarded {
		t.Fatalf("expected ErrDiscarded, got %v", err)
	}
	// Transactional messages are exempt from the discard set.
	if _, err := h.d.DispatchCall(messages.ActionStatusNotification, messages.StatusNotificationRequest{}, nil); err != nil {
		t.Fatalf("transactional dropped: %v", err)
	}
}

func TestQueueSizeThresholdShedsOldestNormal(t *testing.T) {
	cfg := func() Config {
		c := defaultConfig()
		c.QueueSizeThreshold = 2
		return c
	}
	h := newHarness(t, cfg)
	h.q.SetOnline(false)

	h.d.DispatchCall(messages.ActionHeartbeat, messages.HeartbeatRequest{}, nil)
	h.d.DispatchCall(messages.ActionTransactionEvent, messages.TransactionEventRequest{SeqNo: 0}, nil)
	h.d.DispatchCall(messages.ActionTransactionEvent, messages.TransactionEventRequest{SeqNo: 1}, nil)

	if n := h.q.QueuedCount(); n != 2 {
		t.Fatalf("expected shed to 2, got %d", n)
	}
	if !h.q.TransactionalQueued() {
		t.Fatal("transactional messages were shed")
	}
}

func TestResponseWithoutMatchIsNotConsumed(t *testing.T) {
	h := newHarness(t, nil)
	result, _ := rpc.NewCallResult("nobody", map[string]string{})
	if h.q.HandleIncoming(result) {
		t.Fatal("orphan response claimed as correlated")
	}
	call := rpc.Message{Type: rpc.MessageTypeCall, UniqueID: "x", Action: "Reset", Payload: json.RawMessage(`{}`)}
	if h.q.HandleIncoming(call) {
		t.Fatal("inbound call claimed as correlated")
	}
}
