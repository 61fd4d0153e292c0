// Package queue is the reliable outbound path to the CSMS: three lanes
// merged at dispatch time, at most one Call in flight, persistence for
// transaction-related messages, retries with attempt budgets, and
// request/response correlation by unique id.
package queue

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"charging_station/messages"
	"charging_station/rpc"
	"charging_station/scheduler"
	"charging_station/store"
)

type Lane string

const (
	LaneTransactional Lane = "Transactional"
	LaneNormal        Lane = "Normal"
	LaneTrigger       Lane = "Trigger"
)

var (
	// ErrTimeout is handed to the response handler when no response
	// arrived within the message timeout budget.
	ErrTimeout = errors.New("queue: message timed out")
	// ErrGivenUp is handed to the response handler after the attempt
	// budget is exhausted.
	ErrGivenUp = errors.New("queue: giving up after max attempts")
	// ErrDiscarded reports a message dropped by the offline discard set
	// or the size threshold.
	ErrDiscarded = errors.New("queue: message discarded")
	// ErrStopped reports an enqueue on a stopped queue.
	ErrStopped = errors.New("queue: stopped")
)

// ResponseHandler receives the correlated CallResult/CallError, or an
// error when the call failed internally.
type ResponseHandler func(msg rpc.Message, err error)

// Config is the live snapshot of the queue knobs; it is re-read from the
// device model on every use.
type Config struct {
	MaxAttempts        int
	AttemptInterval    time.Duration
	MessageTimeout     time.Duration
	QueueSizeThreshold int
	DiscardForQueueing map[string]bool
}

type ConfigProvider func() Config

// SendFunc hands one encoded frame to the transport.
type SendFunc func(data []byte) bool

type item struct {
	uniqueID    string
	action      string
	payload     json.RawMessage
	lane        Lane
	enqueueTime time.Time
	attempts    int
	persisted   bool
	triggered   bool
	handler     ResponseHandler
	timeout     scheduler.TimerID
	hasTimeout  bool
}

// MessageQueue owns the send worker.
type MessageQueue struct {
	mu   sync.Mutex
	cond *sync.Cond

	transactional []*item
	trigger       []*item
	normal        []*item
	inFlight      *item

	online  bool
	ready   bool // registration accepted; while false only BootNotification drains
	paused  bool
	running bool
	done    chan struct{}

	store  *store.Store
	sched  *scheduler.Scheduler
	send   SendFunc
	config ConfigProvider
	now    func() time.Time

	givingUp func(action, uniqueID string)
}

func New(st *store.Store, sched *scheduler.Scheduler, send SendFunc, cfg ConfigProvider) *MessageQueue {
	q := &MessageQueue{
		store:  st,
		sched:  sched,
		send:   send,
		config: cfg,
		now:    time.Now,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// OnGivingUp installs the observer invoked when a transactional message
// exhausts its attempts.
func (q *MessageQueue) OnGivingUp(fn func(action, uniqueID string)) { q.givingUp = fn }

// Start replays the persisted lane and launches the send worker. Persisted
// messages keep their original order and drain before anything enqueued
// later.
func (q *MessageQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return nil
	}
	if q.store != nil {
		persisted, err := q.store.LoadQueuedMessages()
		if err != nil {
			return err
		}
		replay := make([]*item, 0, len(persisted))
		for _, m := range persisted {
			replay = append(replay, &item{
				uniqueID:    m.UniqueID,
				action:      m.Action,
				payload:     json.RawMessage(m.PayloadJSON),
				lane:        Lane(m.Lane),
				enqueueTime: m.EnqueueTime,
				attempts:    m.Attempts,
				persisted:   true,
				handler:     func(rpc.Message, error) {},
			})
		}
		q.transactional = append(replay, q.transactional...)
		if len(replay) > 0 {
			log.WithField("count", len(replay)).Info("replaying persisted messages")
		}
	}
	q.running = true
	q.done = make(chan struct{})
	go q.worker()
	return nil
}

// Stop halts the worker. Persisted messages stay in durable storage for
// the next start.
func (q *MessageQueue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.cond.Broadcast()
	done := q.done
	q.mu.Unlock()
	<-done
}

// SetOnline reflects transport connectivity; the worker suspends while
// offline.
func (q *MessageQueue) SetOnline(online bool) {
	q.mu.Lock()
	q.online = online
	q.cond.Broadcast()
	q.mu.Unlock()
}

// SetReady gates dispatch on registration: while false, only the
// BootNotification Call may go out.
func (q *MessageQueue) SetReady(ready bool) {
	q.mu.Lock()
	q.ready = ready
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Enqueue validates lane policy, persists transactional messages, and
// queues the Call. The returned unique id identifies the message.
func (q *MessageQueue) Enqueue(action string, payload interface{}, lane Lane, handler ResponseHandler) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	if handler == nil {
		handler = func(rpc.Message, error) {}
	}
	cfg := q.config()

	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return "", ErrStopped
	}
	offline := !q.online || !q.ready
	if offline && lane != LaneTransactional && cfg.DiscardForQueueing[action] {
		q.mu.Unlock()
		log.WithField("action", action).Debug("discarding message while offline")
		return "", ErrDiscarded
	}

	it := &item{
		uniqueID:    rpc.NewMessageID(),
		action:      action,
		payload:     raw,
		lane:        lane,
		enqueueTime: q.now(),
		persisted:   lane == LaneTransactional,
		triggered:   lane == LaneTrigger,
		handler:     handler,
	}

	if it.persisted && q.store != nil {
		if err := q.store.SaveQueuedMessage(store.PersistedMessage{
			UniqueID:    it.uniqueID,
			Action:      it.action,
			PayloadJSON: string(raw),
			Lane:        string(it.lane),
			EnqueueTime: it.enqueueTime,
		}); err != nil {
			q.mu.Unlock()
			return "", err
		}
	}

	switch lane {
	case LaneTransactional:
		q.transactional = append(q.transactional, it)
	case LaneTrigger:
		q.trigger = append(q.trigger, it)
	default:
		q.normal = append(q.normal, it)
	}
	q.enforceThresholdLocked(cfg.QueueSizeThreshold)
	q.cond.Broadcast()
	q.mu.Unlock()
	return it.uniqueID, nil
}

// enforceThresholdLocked drops the oldest non-transactional messages once
// the total size exceeds the threshold.
func (q *MessageQueue) enforceThresholdLocked(threshold int) {
	if threshold <= 0 {
		return
	}
	for len(q.transactional)+len(q.trigger)+len(q.normal) > threshold {
		var dropped *item
		switch {
		case len(q.normal) > 0:
			dropped = q.normal[0]
			q.normal = q.normal[1:]
		case len(q.trigger) > 0:
			dropped = q.trigger[0]
			q.trigger = q.trigger[1:]
		default:
			return // transactional messages are never shed
		}
		log.WithFields(log.Fields{"action": dropped.action, "uniqueId": dropped.uniqueID}).
			Warn("queue over threshold, dropping oldest message")
		go dropped.handler(rpc.Message{}, ErrDiscarded)
	}
}

// SendResponse writes a CallResult/CallError immediately; responses are
// not subject to the one-in-flight rule.
func (q *MessageQueue) SendResponse(msg rpc.Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		log.WithField("error", err).Error("encoding response failed")
		return false
	}
	return q.send(data)
}

// HandleIncoming correlates a frame to the in-flight Call. It returns
// false when the frame is not the awaited response, i.e. an inbound Call
// for the orchestrator.
func (q *MessageQueue) HandleIncoming(msg rpc.Message) bool {
	if msg.Type == rpc.MessageTypeCall {
		return false
	}
	q.mu.Lock()
	it := q.inFlight
	if it == nil || it.uniqueID != msg.UniqueID {
		q.mu.Unlock()
		log.WithField("uniqueId", msg.UniqueID).Warn("response without matching call")
		return false
	}
	if it.hasTimeout {
		q.sched.Cancel(it.timeout)
	}
	q.inFlight = nil
	q.cond.Broadcast()
	q.mu.Unlock()

	// The response is handed to its consumer before the persisted copy is
	// released.
	it.handler(msg, nil)
	q.forgetPersisted(it)
	return true
}

// QueuedCount reports how many Calls are waiting or in flight.
func (q *MessageQueue) QueuedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.transactional) + len(q.trigger) + len(q.normal)
	if q.inFlight != nil {
		n++
	}
	return n
}

// TransactionalQueued reports pending transaction-related messages, used
// by GetTransactionStatus.
func (q *MessageQueue) TransactionalQueued() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inFlight != nil && q.inFlight.lane == LaneTransactional {
		return true
	}
	return len(q.transactional) > 0
}

// ---- send worker ----

func (q *MessageQueue) worker() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for q.running && (q.paused || !q.online || q.inFlight != nil || q.nextLocked() == nil) {
			q.cond.Wait()
		}
		if !q.running {
			q.mu.Unlock()
			return
		}
		it := q.popNextLocked()
		q.inFlight = it
		it.attempts++
		cfg := q.config()
		q.mu.Unlock()

		if it.persisted && q.store != nil {
			if err := q.store.UpdateMessageAttempts(it.uniqueID, it.attempts); err != nil {
				log.WithField("error", err).Warn("recording attempt failed")
			}
		}

		frame := rpc.Message{Type: rpc.MessageTypeCall, UniqueID: it.uniqueID, Action: it.action, Payload: it.payload}
		data, err := json.Marshal(frame)
		if err != nil {
			q.mu.Lock()
			q.inFlight = nil
			q.mu.Unlock()
			it.handler(rpc.Message{}, err)
			q.forgetPersisted(it)
			continue
		}

		if !q.send(data) {
			q.retryOrGiveUp(it, cfg)
			continue
		}

		q.mu.Lock()
		if q.inFlight == it { // response may already have raced in
			it.timeout = q.sched.After(cfg.MessageTimeout, func() { q.timeoutExpired(it.uniqueID) })
			it.hasTimeout = true
		}
		q.mu.Unlock()
	}
}

// nextLocked picks the lane head eligible for dispatch. Transactional
// preserves global FIFO; the trigger lane overtakes normal.
func (q *MessageQueue) nextLocked() *item {
	candidates := [][]*item{q.transactional, q.trigger, q.normal}
	for _, lane := range candidates {
		if len(lane) == 0 {
			continue
		}
		head := lane[0]
		if !q.ready && head.action != messages.ActionBootNotification {
			continue
		}
		return head
	}
	return nil
}

func (q *MessageQueue) popNextLocked() *item {
	it := q.nextLocked()
	switch {
	case len(q.transactional) > 0 && q.transactional[0] == it:
		q.transactional = q.transactional[1:]
	case len(q.trigger) > 0 && q.trigger[0] == it:
		q.trigger = q.trigger[1:]
	case len(q.normal) > 0 && q.normal[0] == it:
		q.normal = q.normal[1:]
	}
	return it
}

func (q *MessageQueue) timeoutExpired(uniqueID string) {
	q.mu.Lock()
	it := q.inFlight
	if it == nil || it.uniqueID != uniqueID {
		q.mu.Unlock()
		return
	}
	q.inFlight = nil
	q.mu.Unlock()

	log.WithFields(log.Fields{"action": it.action, "uniqueId": it.uniqueID, "attempts": it.attempts}).
		Warn("message timed out")
	cfg := q.config()
	q.retryOrGiveUp(it, cfg)
}

// retryOrGiveUp requeues the message at the head of its lane, or drops it
// once the attempt budget is spent.
func (q *MessageQueue) retryOrGiveUp(it *item, cfg Config) {
	if cfg.MaxAttempts > 0 && it.attempts >= cfg.MaxAttempts {
		log.WithFields(log.Fields{"action": it.action, "uniqueId": it.uniqueID}).
			Error("giving up on message after max attempts")
		q.forgetPersisted(it)
		it.handler(rpc.Message{}, ErrGivenUp)
		if it.lane == LaneTransactional && q.givingUp != nil {
			q.givingUp(it.action, it.uniqueID)
		}
		q.mu.Lock()
		if q.inFlight == it {
			q.inFlight = nil
		}
		q.cond.Broadcast()
		q.mu.Unlock()
		return
	}

	q.mu.Lock()
	q.inFlight = nil
	switch it.lane {
	case LaneTransactional:
		q.transactional = append([]*item{it}, q.transactional...)
	case LaneTrigger:
		q.trigger = append([]*item{it}, q.trigger...)
	default:
		q.normal = append([]*item{it}, q.normal...)
	}
	q.paused = true
	q.mu.Unlock()

	q.sched.After(cfg.AttemptInterval, func() {
		q.mu.Lock()
		q.paused = false
		q.cond.Broadcast()
		q.mu.Unlock()
	})
}

func (q *MessageQueue) forgetPersisted(it *item) {
	if !it.persisted || q.store == nil {
		return
	}
	if err := q.store.DeleteQueuedMessage(it.uniqueID); err != nil {
		log.WithFields(log.Fields{"uniqueId": it.uniqueID, "error": err}).
			Warn("removing persisted message failed")
	}
}
