// Package station is the orchestrator of the charging station runtime: it
// owns the registration state machine, the catalog of inbound request
// handlers, the boot/heartbeat/aligned-data timers and the fan-out between
// the sub-engines.
package station

import (
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"charging_station/authorization"
	"charging_station/config"
	"charging_station/connectivity"
	"charging_station/devicemodel"
	"charging_station/evse"
	"charging_station/messages"
	"charging_station/monitoring"
	"charging_station/notifier"
	"charging_station/queue"
	"charging_station/rpc"
	"charging_station/scheduler"
	"charging_station/smartcharging"
	"charging_station/store"
	"charging_station/transport"
	"charging_station/types"
)

// bootRetryFallback is used when a Pending/Rejected BootNotificationResponse
// carries no interval.
const bootRetryFallback = 30 * time.Second

// SecurityProvider is the certificate store and signing engine consumed as
// an external capability.
type SecurityProvider interface {
	UpdateOcspCache() error
	CertificatesExpireWithin(d time.Duration) []string
}

// Transport is the slice of the websocket client the orchestrator uses.
type Transport interface {
	Start()
	Stop()
	Reconnect(delay time.Duration)
	Disconnect(code int, reason string)
	IsConnected() bool
	Send(data []byte) bool
	SetOptions(opts transport.Options)
}

type Station struct {
	cfg config.Config
	log *logrus.Logger

	cq    *scheduler.CallbackQueue
	sched *scheduler.Scheduler

	store         *store.Store
	deviceModel   *devicemodel.DeviceModel
	evses         *evse.Manager
	auth          *authorization.Engine
	smartCharging *smartcharging.Engine
	monitoring    *monitoring.Engine
	network       *connectivity.Manager
	transport     Transport
	queue         *queue.MessageQueue
	dispatcher    *queue.Dispatcher

	security  SecurityProvider
	tlsConfig *tls.Config
	validate  *validator.Validate

	notifications chan notifier.Notification

	mu            sync.Mutex
	started       bool
	bootReason    types.BootReason
	heartbeat     scheduler.TimerID
	hasHeartbeat  bool
	aligned       scheduler.TimerID
	hasAligned    bool
	ocsp          scheduler.TimerID
	hasOcsp       bool
	bootRetry     scheduler.TimerID
	hasBootRetry  bool
	recentInbound map[string]bool
	inboundOrder  []string

	pendingAvailability map[int]types.OperationalStatus // evseID -> requested state

	firmwareRequestID *int
	resetPending      bool

	handlers map[string]func(msg rpc.Message)
}

// recentInboundWindow bounds the duplicate-unique-id detection memory.
const recentInboundWindow = 64

// Deps carries the externally constructed collaborators.
type Deps struct {
	Config      config.Config
	Log         *logrus.Logger
	Store       *store.Store
	DeviceModel *devicemodel.DeviceModel
	Evses       *evse.Manager
	Network     *connectivity.Manager
	Security    SecurityProvider
	TLSConfig   *tls.Config
}

func New(deps Deps) *Station {
	if deps.Log == nil {
		deps.Log = logrus.New()
	}
	s := &Station{
		cfg:                 deps.Config,
		log:                 deps.Log,
		store:               deps.Store,
		deviceModel:         deps.DeviceModel,
		evses:               deps.Evses,
		network:             deps.Network,
		security:            deps.Security,
		tlsConfig:           deps.TLSConfig,
		validate:            validator.New(),
		notifications:       make(chan notifier.Notification, 64),
		recentInbound:       make(map[string]bool, recentInboundWindow),
		pendingAvailability: make(map[int]types.OperationalStatus),
		bootReason:          types.BootReasonPowerUp,
	}

	s.cq = scheduler.NewCallbackQueue()
	s.sched = scheduler.New(s.cq)

	s.auth = authorization.New(deps.Store, deps.DeviceModel, nil)
	s.smartCharging = smartcharging.New(deps.Store, evseAdapter{deps.Evses}, deps.DeviceModel, nil)
	s.monitoring = monitoring.New(deps.DeviceModel, deps.Store, s.sched, nil)

	client := transport.NewClient(transport.Options{}, s.cq, s.log)
	s.transport = client
	s.queue = queue.New(deps.Store, s.sched, func(data []byte) bool { return s.transport.Send(data) }, s.queueConfig)
	s.dispatcher = queue.NewDispatcher(s.queue)

	client.OnConnected(s.onConnected)
	client.OnDisconnected(s.onDisconnected)
	client.OnMessage(s.handleFrame)
	client.OnConnectionFailed(s.onConnectionFailed)
	client.OnStoppedConnecting(s.onStoppedConnecting)

	s.wireSubEngines()
	s.registerHandlers()
	return s
}

// evseAdapter narrows the EVSE manager to the smart charging capability.
type evseAdapter struct{ m *evse.Manager }

func (a evseAdapter) Has(evseID int) bool { return a.m.Has(evseID) }
func (a evseAdapter) ActiveTransactionID(evseID int) (string, bool) {
	tx, ok := a.m.ActiveTransaction(evseID)
	if !ok {
		return "", false
	}
	return tx.ID, true
}

func (s *Station) wireSubEngines() {
	s.evses.OnStatusChange(func(evseID, connectorID int, status types.ConnectorStatus) {
		s.sendStatusNotification(evseID, connectorID, status)
		s.notify("status.notification", map[string]interface{}{
			"evseId": evseID, "connectorId": connectorID, "status": string(status),
		})
	})
	s.evses.OnTransactionEvent(func(req messages.TransactionEventRequest) {
		s.sendTransactionEvent(req)
	})
	s.evses.OnTransactionFinished(func(transactionID string) {
		// Posted to the deferred worker: the EVSE lock is held here and
		// applying availability re-enters the manager.
		s.cq.Post(func() {
			s.smartCharging.TransactionFinished(transactionID)
			s.applyPendingAvailability()
		})
	})
	s.evses.SetEndedMeasurands(func() []string {
		return s.deviceModel.List(devicemodel.ComponentSampledDataCtrlr, devicemodel.VarTxEndedMeasurands)
	})

	s.monitoring.SetSender(func(req messages.NotifyEventRequest) error {
		_, err := s.dispatcher.DispatchCall(messages.ActionNotifyEvent, req, nil)
		return err
	})
	s.monitoring.SetOfflineThreshold(func() time.Duration {
		return s.deviceModel.Seconds(devicemodel.ComponentOCPPCommCtrlr, devicemodel.VarOfflineThreshold, time.Minute)
	})

	s.auth.SetCsmsAuthorizer(s.csmsAuthorize)

	s.queue.OnGivingUp(func(action, uniqueID string) {
		s.notify("message.dropped", map[string]interface{}{"action": action, "uniqueId": uniqueID})
	})
}

// Dispatcher exposes the outbound path to collaborators wired in main.
func (s *Station) Dispatcher() *queue.Dispatcher { return s.dispatcher }

// NotificationChannel feeds the local station bus.
func (s *Station) NotificationChannel() chan notifier.Notification { return s.notifications }

// RegistrationStatus reports the gate state.
func (s *Station) RegistrationStatus() types.RegistrationStatus {
	return s.dispatcher.RegistrationStatus()
}

// Start connects to the CSMS and begins the bootstrap handshake.
func (s *Station) Start(reason types.BootReason) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.bootReason = reason
	s.mu.Unlock()

	if err := s.monitoring.Restore(); err != nil {
		return fmt.Errorf("restore monitors: %w", err)
	}
	if err := s.queue.Start(); err != nil {
		return fmt.Errorf("start queue: %w", err)
	}
	s.evses.SetOffline(true)

	opts, err := s.transportOptions()
	if err != nil {
		return err
	}
	s.transport.SetOptions(opts)
	s.transport.Start()
	s.log.WithField("reason", reason).Info("charging station starting")
	return nil
}

// Stop cancels every timer, closes the transport with GoingAway, stops
// the queue's send worker and drains the deferred callbacks. Persisted
// transactional messages stay in the store.
func (s *Station) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	s.sched.CancelAll()
	s.transport.Stop()
	s.queue.Stop()
	s.sched.Stop()
	s.cq.Close()
	s.log.Info("charging station stopped")
}

func (s *Station) transportOptions() (transport.Options, error) {
	profile, err := s.network.Active()
	if err != nil {
		return transport.Options{}, err
	}
	dm := s.deviceModel
	comm := devicemodel.ComponentOCPPCommCtrlr
	password := profile.BasicAuthPassword
	if password == "" {
		password = s.cfg.BasicAuthPassword
	}
	return transport.Options{
		URL:                profile.URI,
		StationID:          s.cfg.StationID,
		SecurityProfile:    profile.SecurityProfile,
		BasicAuthPassword:  password,
		TLSConfig:          s.tlsConfig,
		PingInterval:       dm.Seconds(comm, devicemodel.VarWebSocketPingInterval, 30*time.Second),
		PongTimeout:        dm.Seconds(comm, devicemodel.VarWebSocketPingInterval, 30*time.Second),
		BackOffWaitMinimum: dm.Seconds(comm, devicemodel.VarRetryBackOffWaitMinimum, 3*time.Second),
		BackOffRepeatTimes: dm.Int(comm, devicemodel.VarRetryBackOffRepeatTimes, 5),
		BackOffRandomRange: dm.Seconds(comm, devicemodel.VarRetryBackOffRandomRange, 10*time.Second),
		ConnectionAttempts: dm.Int(comm, devicemodel.VarNetworkProfileConnectionAttempts, 3),
	}, nil
}

func (s *Station) queueConfig() queue.Config {
	dm := s.deviceModel
	comm := devicemodel.ComponentOCPPCommCtrlr
	discard := make(map[string]bool)
	for _, action := range dm.List(comm, devicemodel.VarMessageTypesDiscardForQueueing) {
		discard[action] = true
	}
	return queue.Config{
		MaxAttempts:        dm.Int(comm, devicemodel.VarMessageAttempts, 5),
		AttemptInterval:    dm.Seconds(comm, devicemodel.VarMessageAttemptInterval, 10*time.Second),
		MessageTimeout:     dm.Seconds(comm, devicemodel.VarMessageTimeout, 30*time.Second),
		QueueSizeThreshold: dm.Int(comm, devicemodel.VarMessageQueueSizeThreshold, 5000),
		DiscardForQueueing: discard,
	}
}

// ---- connectivity callbacks (run on the deferred callback worker) ----

func (s *Station) onConnected() {
	s.queue.SetOnline(true)
	s.evses.SetOffline(false)
	s.monitoring.SetOnline(true)
	s.notify("connectivity.changed", map[string]interface{}{"connected": true})
	if s.RegistrationStatus() != types.RegistrationStatusAccepted {
		s.sendBootNotification(false)
		return
	}
	// Already registered from a previous episode; resume the timers
	// without a fresh handshake.
	s.startRegistrationTimers(0)
}

func (s *Station) onDisconnected() {
	s.queue.SetOnline(false)
	s.evses.SetOffline(true)
	s.monitoring.SetOnline(false)
	s.stopRegistrationTimers()
	s.notify("connectivity.changed", map[string]interface{}{"connected": false})
}

func (s *Station) onConnectionFailed(reason transport.FailureReason) {
	s.log.WithField("reason", reason).Warn("connection failure")
	switch reason {
	case transport.FailureInvalidCsmsCertificate:
		s.sendSecurityEvent(types.SecurityEventInvalidCsmsCertificate, string(reason))
	case transport.FailureFailedToAuthenticate:
		s.sendSecurityEvent(types.SecurityEventFailedToAuthenticate, string(reason))
	}
}

// onStoppedConnecting advances to the next network profile after the
// retry budget of the current one is exhausted.
func (s *Station) onStoppedConnecting() {
	if _, err := s.network.Advance(); err != nil {
		s.log.WithField("error", err).Error("no network profile to advance to")
		return
	}
	opts, err := s.transportOptions()
	if err != nil {
		s.log.WithField("error", err).Error("building transport options failed")
		return
	}
	s.transport.SetOptions(opts)
	s.transport.Start()
}

// ---- registration state machine ----

func (s *Station) sendBootNotification(triggered bool) {
	req := messages.BootNotificationRequest{
		Reason: s.bootReason,
		ChargingStation: messages.ChargingStationInfo{
			Model:      s.cfg.StationModel,
			VendorName: s.cfg.StationVendor,
		},
	}
	dispatch := s.dispatcher.DispatchCall
	if triggered {
		dispatch = s.dispatcher.DispatchTriggered
	}
	if _, err := dispatch(messages.ActionBootNotification, req, s.handleBootResponse); err != nil {
		s.log.WithField("error", err).Warn("boot notification dispatch failed")
	}
}

func (s *Station) handleBootResponse(msg rpc.Message, err error) {
	if err != nil {
		s.log.WithField("error", err).Warn("boot notification failed, retrying")
		s.scheduleBootRetry(bootRetryFallback)
		return
	}
	if msg.Type == rpc.MessageTypeCallError {
		s.log.WithField("code", msg.ErrorCode).Warn("boot notification rejected by CSMS")
		s.scheduleBootRetry(bootRetryFallback)
		return
	}
	var resp messages.BootNotificationResponse
	if err := unmarshalPayload(msg.Payload, &resp, s.validate); err != nil {
		s.log.WithField("error", err).Error("malformed boot notification response")
		s.scheduleBootRetry(bootRetryFallback)
		return
	}

	previous := s.RegistrationStatus()
	s.dispatcher.SetRegistrationStatus(resp.Status)
	s.log.WithFields(logrus.Fields{"status": resp.Status, "interval": resp.Interval}).
		Info("boot notification answered")
	s.notify("boot.notification", map[string]interface{}{
		"status": string(resp.Status), "interval": resp.Interval,
	})

	switch resp.Status {
	case types.RegistrationStatusAccepted:
		s.network.Reset()
		s.startRegistrationTimers(resp.Interval)
		s.sendAllStatusNotifications()
	default:
		if previous == types.RegistrationStatusAccepted {
			s.stopRegistrationTimers()
		}
		interval := time.Duration(resp.Interval) * time.Second
		if interval <= 0 {
			interval = bootRetryFallback
		}
		s.scheduleBootRetry(interval)
	}
}

func (s *Station) scheduleBootRetry(after time.Duration) {
	s.mu.Lock()
	if s.hasBootRetry {
		s.sched.Cancel(s.bootRetry)
	}
	s.bootRetry = s.sched.After(after, func() { s.sendBootNotification(false) })
	s.hasBootRetry = true
	s.mu.Unlock()
}

func (s *Station) startRegistrationTimers(heartbeatIntervalSeconds int) {
	s.stopRegistrationTimers()
	interval := time.Duration(heartbeatIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = s.deviceModel.Seconds(devicemodel.ComponentOCPPCommCtrlr, devicemodel.VarHeartbeatInterval, 1800*time.Second)
	} else {
		s.deviceModel.Set(devicemodel.ComponentOCPPCommCtrlr, devicemodel.VarHeartbeatInterval,
			types.AttributeActual, fmt.Sprintf("%d", heartbeatIntervalSeconds), devicemodel.SourceInternal)
	}

	s.mu.Lock()
	s.heartbeat = s.sched.Every(interval, func() { s.sendHeartbeat(false) })
	s.hasHeartbeat = true

	alignedInterval := s.deviceModel.Seconds(devicemodel.ComponentAlignedDataCtrlr, devicemodel.VarAlignedDataInterval, 900*time.Second)
	if alignedInterval > 0 {
		s.aligned = s.sched.EveryAligned(alignedInterval, s.sendAlignedMeterValues)
		s.hasAligned = true
	}

	if s.security != nil {
		s.ocsp = s.sched.Every(24*time.Hour, s.securityMaintenance)
		s.hasOcsp = true
	}
	if s.hasBootRetry {
		s.sched.Cancel(s.bootRetry)
		s.hasBootRetry = false
	}
	s.mu.Unlock()
}

func (s *Station) stopRegistrationTimers() {
	s.mu.Lock()
	if s.hasHeartbeat {
		s.sched.Cancel(s.heartbeat)
		s.hasHeartbeat = false
	}
	if s.hasAligned {
		s.sched.Cancel(s.aligned)
		s.hasAligned = false
	}
	if s.hasOcsp {
		s.sched.Cancel(s.ocsp)
		s.hasOcsp = false
	}
	s.mu.Unlock()
}

func (s *Station) securityMaintenance() {
	if s.security == nil {
		return
	}
	if err := s.security.UpdateOcspCache(); err != nil {
		s.log.WithField("error", err).Warn("ocsp cache update failed")
	}
	for _, cert := range s.security.CertificatesExpireWithin(30 * 24 * time.Hour) {
		s.sendSecurityEvent(types.SecurityEventReconfigurationOfSecurityParameters,
			fmt.Sprintf("certificate %s expires soon", cert))
	}
}

// ---- outbound builders ----

func (s *Station) sendHeartbeat(triggered bool) {
	dispatch := s.dispatcher.DispatchCall
	if triggered {
		dispatch = s.dispatcher.DispatchTriggered
	}
	if _, err := dispatch(messages.ActionHeartbeat, messages.HeartbeatRequest{}, nil); err != nil {
		s.log.WithField("error", err).Debug("heartbeat dispatch failed")
	}
}

func (s *Station) sendStatusNotification(evseID, connectorID int, status types.ConnectorStatus) {
	req := messages.StatusNotificationRequest{
		Timestamp:       time.Now().UTC(),
		ConnectorStatus: status,
		EvseID:          evseID,
		ConnectorID:     connectorID,
	}
	if _, err := s.dispatcher.DispatchCall(messages.ActionStatusNotification, req, nil); err != nil {
		s.log.WithField("error", err).Debug("status notification dispatch failed")
	}
}

func (s *Station) sendAllStatusNotifications() {
	s.evses.EachConnector(func(evseID, connectorID int, status types.ConnectorStatus) {
		s.sendStatusNotification(evseID, connectorID, status)
	})
}

func (s *Station) sendTransactionEvent(req messages.TransactionEventRequest) {
	_, err := s.dispatcher.DispatchCall(messages.ActionTransactionEvent, req, func(msg rpc.Message, err error) {
		if err != nil || msg.Type != rpc.MessageTypeCallResult {
			return
		}
		var resp messages.TransactionEventResponse
		if uerr := unmarshalPayload(msg.Payload, &resp, nil); uerr != nil {
			return
		}
		if resp.IdTokenInfo != nil && resp.IdTokenInfo.Status != types.AuthorizationStatusAccepted {
			s.log.WithFields(logrus.Fields{
				"transaction": req.TransactionInfo.TransactionID,
				"status":      resp.IdTokenInfo.Status,
			}).Warn("CSMS deauthorized running transaction")
			s.notify("transaction.deauthorized", map[string]interface{}{
				"transactionId": req.TransactionInfo.TransactionID,
			})
		}
	})
	if err != nil {
		s.log.WithField("error", err).Error("transaction event dispatch failed")
	}
	s.notify("transaction.event", map[string]interface{}{
		"type":          string(req.EventType),
		"transactionId": req.TransactionInfo.TransactionID,
		"seqNo":         req.SeqNo,
	})
}

func (s *Station) sendSecurityEvent(eventType, techInfo string) {
	req := messages.SecurityEventNotificationRequest{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TechInfo:  techInfo,
	}
	if _, err := s.dispatcher.DispatchCall(messages.ActionSecurityEventNotification, req, nil); err != nil {
		s.log.WithField("error", err).Debug("security event dispatch failed")
	}
	s.notify("security.event", map[string]interface{}{"type": eventType, "techInfo": techInfo})
}

// sendAlignedMeterValues applies the station-wide idle check first, then
// the per-EVSE filter.
func (s *Station) sendAlignedMeterValues() {
	sendDuringIdle := s.deviceModel.Bool(devicemodel.ComponentAlignedDataCtrlr, devicemodel.VarAlignedDataSendDuringIdle, false)
	if !sendDuringIdle && !s.evses.HasAnyActiveTransaction() {
		return
	}
	measurands := s.deviceModel.List(devicemodel.ComponentAlignedDataCtrlr, devicemodel.VarAlignedDataMeasurands)
	allowed := make(map[types.Measurand]bool, len(measurands))
	for _, m := range measurands {
		allowed[types.Measurand(m)] = true
	}

	for evseID := 1; evseID <= s.evses.Count(); evseID++ {
		if _, active := s.evses.ActiveTransaction(evseID); !active && !sendDuringIdle {
			continue
		}
		window := s.evses.IdleMeterValues(evseID)
		if len(window) == 0 {
			continue
		}
		latest := window[len(window)-1]
		var samples []types.SampledValue
		for _, sv := range latest.SampledValue {
			if len(allowed) == 0 || sv.Measurand == "" || allowed[sv.Measurand] {
				sv.Context = types.ReadingContextSampleClock
				samples = append(samples, sv)
			}
		}
		if len(samples) == 0 {
			continue
		}
		req := messages.MeterValuesRequest{
			EvseID:     evseID,
			MeterValue: []types.MeterValue{{Timestamp: latest.Timestamp, SampledValue: samples}},
		}
		if _, err := s.dispatcher.DispatchCall(messages.ActionMeterValues, req, nil); err != nil {
			s.log.WithField("error", err).Debug("aligned meter values dispatch failed")
		}
	}
}

// csmsAuthorize performs one synchronous Authorize round trip. It must not
// be invoked from the deferred callback worker.
func (s *Station) csmsAuthorize(token types.IdToken) (types.IdTokenInfo, error) {
	if !s.transport.IsConnected() {
		return types.IdTokenInfo{}, fmt.Errorf("offline")
	}
	type outcome struct {
		info types.IdTokenInfo
		err  error
	}
	done := make(chan outcome, 1)
	_, err := s.dispatcher.DispatchCall(messages.ActionAuthorize,
		messages.AuthorizeRequest{IdToken: token},
		func(msg rpc.Message, err error) {
			if err != nil {
				done <- outcome{err: err}
				return
			}
			if msg.Type != rpc.MessageTypeCallResult {
				done <- outcome{err: fmt.Errorf("authorize rejected: %s", msg.ErrorCode)}
				return
			}
			var resp messages.AuthorizeResponse
			if uerr := unmarshalPayload(msg.Payload, &resp, s.validate); uerr != nil {
				done <- outcome{err: uerr}
				return
			}
			done <- outcome{info: resp.IdTokenInfo}
		})
	if err != nil {
		return types.IdTokenInfo{}, err
	}
	timeout := s.deviceModel.Seconds(devicemodel.ComponentOCPPCommCtrlr, devicemodel.VarMessageTimeout, 30*time.Second)
	select {
	case o := <-done:
		return o.info, o.err
	case <-time.After(timeout + 5*time.Second):
		return types.IdTokenInfo{}, fmt.Errorf("authorize timed out")
	}
}

func (s *Station) notify(topic string, data map[string]interface{}) {
	select {
	case s.notifications <- notifier.Notification{Topic: topic, Data: data}:
	default:
		// The local bus is best effort; a full channel never stalls the
		// engine.
	}
}

// ---- local (driver/operator) surface used by the bus actions ----

// PlugIn reports a cable plugged into a connector.
func (s *Station) PlugIn(evseID, connectorID int) { s.evses.PlugIn(evseID, connectorID) }

// PlugOut reports a cable removed.
func (s *Station) PlugOut(evseID, connectorID int) { s.evses.PlugOut(evseID, connectorID) }

// AuthorizeToken validates a token and, when accepted, arms or updates the
// transaction pairing on the EVSE.
func (s *Station) AuthorizeToken(evseID int, token types.IdToken) types.IdTokenInfo {
	info := s.auth.Authorize(token)
	if info.Status == types.AuthorizationStatusAccepted {
		s.evses.Authorized(evseID, token, nil)
	}
	return info
}

func (s *Station) StartCharging(evseID int)  { s.evses.StartCharging(evseID) }
func (s *Station) SuspendEV(evseID int)      { s.evses.SuspendEV(evseID) }
func (s *Station) SuspendEVSE(evseID int)    { s.evses.SuspendEVSE(evseID) }
func (s *Station) ResumeCharging(evseID int) { s.evses.ResumeCharging(evseID) }

// StopCharging ends the running session locally.
func (s *Station) StopCharging(evseID int, reason types.StopReason) {
	s.evses.StopTransaction(evseID, reason, types.TriggerReasonStopAuthorized)
}

func (s *Station) Fault(evseID, connectorID int)        { s.evses.Fault(evseID, connectorID) }
func (s *Station) FaultCleared(evseID, connectorID int) { s.evses.FaultCleared(evseID, connectorID) }

// MeterSample feeds one local meter reading.
func (s *Station) MeterSample(evseID int, mv types.MeterValue) { s.evses.MeterValue(evseID, mv) }

// FirmwareStatus reports progress from the firmware-update executor; the
// install phase sweeps all connectors unavailable.
func (s *Station) FirmwareStatus(status types.FirmwareStatus) {
	s.mu.Lock()
	requestID := s.firmwareRequestID
	s.mu.Unlock()

	switch status {
	case types.FirmwareStatusInstalling:
		s.evses.AllUnavailableForFirmware()
	case types.FirmwareStatusInstalled, types.FirmwareStatusInstallationFailed,
		types.FirmwareStatusDownloadFailed, types.FirmwareStatusInvalidSignature:
		s.evses.RestoreAfterFirmware()
	}

	req := messages.FirmwareStatusNotificationRequest{Status: status, RequestID: requestID}
	if _, err := s.dispatcher.DispatchCall(messages.ActionFirmwareStatusNotification, req, nil); err != nil {
		s.log.WithField("error", err).Debug("firmware status dispatch failed")
	}
}

// applyPendingAvailability applies ChangeAvailability requests that were
// answered Scheduled while a transaction was running.
func (s *Station) applyPendingAvailability() {
	s.mu.Lock()
	pending := s.pendingAvailability
	s.pendingAvailability = make(map[int]types.OperationalStatus)
	reset := s.resetPending && !s.evses.HasAnyActiveTransaction()
	s.resetPending = s.resetPending && !reset
	s.mu.Unlock()
	for evseID, status := range pending {
		s.evses.SetOperative(evseID, 0, status == types.OperationalStatusOperative)
	}
	if reset {
		s.sendSecurityEvent(types.SecurityEventResetOrReboot, string(types.ResetTypeOnIdle))
		s.notify("reset.requested", map[string]interface{}{"type": string(types.ResetTypeOnIdle)})
	}
}
