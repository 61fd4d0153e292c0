package queue

import (
	"errors"
	"sync/atomic"

	"charging_station/messages"
	"charging_station/rpc"
	"charging_station/types"
)

// ErrNotRegistered reports a Call refused because the station is not
// accepted by the CSMS yet.
var ErrNotRegistered = errors.New("queue: not registered with CSMS")

// Dispatcher fronts the MessageQueue with the registration gate: while the
// station is not Accepted, only BootNotification and transactional
// messages pass.
type Dispatcher struct {
	queue  *MessageQueue
	status atomic.Value // types.RegistrationStatus
}

func NewDispatcher(q *MessageQueue) *Dispatcher {
	d := &Dispatcher{queue: q}
	d.status.Store(types.RegistrationStatusRejected)
	return d
}

// SetRegistrationStatus records the gate state shared with the
// orchestrator.
func (d *Dispatcher) SetRegistrationStatus(s types.RegistrationStatus) {
	d.status.Store(s)
	d.queue.SetReady(s == types.RegistrationStatusAccepted)
}

func (d *Dispatcher) RegistrationStatus() types.RegistrationStatus {
	return d.status.Load().(types.RegistrationStatus)
}

// DispatchCall enqueues an outbound Call on the lane its action demands.
func (d *Dispatcher) DispatchCall(action string, payload interface{}, handler ResponseHandler) (string, error) {
	switch {
	case messages.TransactionRelated(action):
		return d.queue.Enqueue(action, payload, LaneTransactional, handler)
	case action == messages.ActionBootNotification:
		return d.queue.Enqueue(action, payload, LaneNormal, handler)
	default:
		if d.RegistrationStatus() != types.RegistrationStatusAccepted {
			return "", ErrNotRegistered
		}
		return d.queue.Enqueue(action, payload, LaneNormal, handler)
	}
}

// DispatchTriggered enqueues a message synthesized by a TriggerMessage
// request; its lane overtakes normal traffic.
func (d *Dispatcher) DispatchTriggered(action string, payload interface{}, handler ResponseHandler) (string, error) {
	return d.queue.Enqueue(action, payload, LaneTrigger, handler)
}

// DispatchCallResult answers an inbound Call.
func (d *Dispatcher) DispatchCallResult(uniqueID string, payload interface{}) error {
	msg, err := rpc.NewCallResult(uniqueID, payload)
	if err != nil {
		return err
	}
	d.queue.SendResponse(msg)
	return nil
}

// DispatchCallError answers an inbound Call with an error.
func (d *Dispatcher) DispatchCallError(uniqueID string, code rpc.ErrorCode, description string) {
	d.queue.SendResponse(rpc.NewCallError(uniqueID, code, description))
}
