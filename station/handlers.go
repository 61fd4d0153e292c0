package station

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"charging_station/connectivity"
	"charging_station/devicemodel"
	"charging_station/messages"
	"charging_station/rpc"
	"charging_station/types"
)

func unmarshalPayload(raw json.RawMessage, v interface{}, validate *validator.Validate) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if validate != nil {
		if err := validate.Struct(v); err != nil {
			return fmt.Errorf("validate payload: %w", err)
		}
	}
	return nil
}

// handleFrame is the single entry point for inbound frames; it runs on the
// deferred callback worker.
func (s *Station) handleFrame(data []byte) {
	msg, err := rpc.Decode(data)
	if err != nil {
		fe, ok := err.(*rpc.FrameError)
		if !ok {
			fe = &rpc.FrameError{UniqueID: "-1", Code: rpc.ErrRpcFrameworkError, Reason: err.Error()}
		}
		s.log.WithFields(logrus.Fields{"code": fe.Code, "reason": fe.Reason}).Error("invalid frame received")
		s.dispatcher.DispatchCallError(fe.UniqueID, fe.Code, fe.Reason)
		s.sendSecurityEvent(types.SecurityEventInvalidMessages, truncate(string(data), 255))
		return
	}

	if s.queue.HandleIncoming(msg) {
		return
	}
	if msg.Type != rpc.MessageTypeCall {
		// A response that correlates to nothing; the queue already logged
		// it.
		return
	}
	s.handleCall(msg)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func (s *Station) handleCall(msg rpc.Message) {
	if s.isDuplicateInbound(msg.UniqueID) {
		s.log.WithField("uniqueId", msg.UniqueID).Warn("duplicate unique id on inbound call")
		s.dispatcher.DispatchCallError(msg.UniqueID, rpc.ErrFormationViolation, "duplicate unique id")
		s.sendSecurityEvent(types.SecurityEventInvalidMessages, "duplicate unique id "+msg.UniqueID)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(logrus.Fields{"action": msg.Action, "panic": r}).
				Error("handler crashed")
			s.dispatcher.DispatchCallError(msg.UniqueID, rpc.ErrGenericError, "internal error")
		}
	}()

	switch s.RegistrationStatus() {
	case types.RegistrationStatusAccepted:
		s.dispatchToHandler(msg)
	case types.RegistrationStatusPending:
		s.handleCallWhilePending(msg)
	default:
		s.handleCallWhileRejected(msg)
	}
}

// handleCallWhilePending serves only the provisioning whitelist (B02):
// start/stop requests answer Rejected, everything else SecurityError.
func (s *Station) handleCallWhilePending(msg rpc.Message) {
	switch msg.Action {
	case messages.ActionGetVariables, messages.ActionSetVariables,
		messages.ActionGetBaseReport, messages.ActionGetReport,
		messages.ActionTriggerMessage:
		s.dispatchToHandler(msg)
	case messages.ActionRequestStartTransaction:
		s.respond(msg, messages.RequestStartTransactionResponse{Status: types.RequestStartStopStatusRejected})
	case messages.ActionRequestStopTransaction:
		s.respond(msg, messages.RequestStopTransactionResponse{Status: types.RequestStartStopStatusRejected})
	default:
		s.log.WithField("action", msg.Action).Warn("refusing call while registration pending")
		s.dispatcher.DispatchCallError(msg.UniqueID, rpc.ErrSecurityError,
			fmt.Sprintf("%s not served while registration is pending", msg.Action))
	}
}

// handleCallWhileRejected accepts only TriggerMessage(BootNotification).
func (s *Station) handleCallWhileRejected(msg rpc.Message) {
	if msg.Action == messages.ActionTriggerMessage {
		var req messages.TriggerMessageRequest
		if err := unmarshalPayload(msg.Payload, &req, s.validate); err == nil &&
			req.RequestedMessage == types.MessageTriggerBootNotification {
			s.respond(msg, messages.TriggerMessageResponse{Status: types.TriggerMessageStatusAccepted})
			s.sendBootNotification(true)
			return
		}
	}
	s.log.WithField("action", msg.Action).Warn("refusing call while registration rejected")
	s.dispatcher.DispatchCallError(msg.UniqueID, rpc.ErrSecurityError,
		"not registered with the CSMS")
}

func (s *Station) isDuplicateInbound(uniqueID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recentInbound[uniqueID] {
		return true
	}
	s.recentInbound[uniqueID] = true
	s.inboundOrder = append(s.inboundOrder, uniqueID)
	if len(s.inboundOrder) > recentInboundWindow {
		oldest := s.inboundOrder[0]
		s.inboundOrder = s.inboundOrder[1:]
		delete(s.recentInbound, oldest)
	}
	return false
}

func (s *Station) dispatchToHandler(msg rpc.Message) {
	handler, ok := s.handlers[msg.Action]
	if !ok {
		s.dispatcher.DispatchCallError(msg.UniqueID, rpc.ErrNotImplemented,
			fmt.Sprintf("no handler for %s", msg.Action))
		return
	}
	handler(msg)
}

func (s *Station) respond(msg rpc.Message, payload interface{}) {
	if err := s.dispatcher.DispatchCallResult(msg.UniqueID, payload); err != nil {
		s.log.WithFields(logrus.Fields{"action": msg.Action, "error": err}).
			Error("encoding call result failed")
		s.dispatcher.DispatchCallError(msg.UniqueID, rpc.ErrGenericError, "response encoding failed")
	}
}

func (s *Station) respondFormationViolation(msg rpc.Message, err error) {
	s.log.WithFields(logrus.Fields{"action": msg.Action, "error": err}).Warn("malformed payload")
	s.dispatcher.DispatchCallError(msg.UniqueID, rpc.ErrFormationViolation, err.Error())
	s.sendSecurityEvent(types.SecurityEventInvalidMessages, msg.Action)
}

func (s *Station) registerHandlers() {
	s.handlers = map[string]func(rpc.Message){
		messages.ActionGetVariables:            s.handleGetVariables,
		messages.ActionSetVariables:            s.handleSetVariables,
		messages.ActionGetBaseReport:           s.handleGetBaseReport,
		messages.ActionGetReport:               s.handleGetReport,
		messages.ActionReset:                   s.handleReset,
		messages.ActionChangeAvailability:      s.handleChangeAvailability,
		messages.ActionTriggerMessage:          s.handleTriggerMessage,
		messages.ActionRequestStartTransaction: s.handleRequestStartTransaction,
		messages.ActionRequestStopTransaction:  s.handleRequestStopTransaction,
		messages.ActionSetChargingProfile:      s.handleSetChargingProfile,
		messages.ActionClearChargingProfile:    s.handleClearChargingProfile,
		messages.ActionGetChargingProfiles:     s.handleGetChargingProfiles,
		messages.ActionGetCompositeSchedule:    s.handleGetCompositeSchedule,
		messages.ActionSetVariableMonitoring:   s.handleSetVariableMonitoring,
		messages.ActionClearVariableMonitoring: s.handleClearVariableMonitoring,
		messages.ActionSetNetworkProfile:       s.handleSetNetworkProfile,
		messages.ActionGetTransactionStatus:    s.handleGetTransactionStatus,
		messages.ActionClearCache:              s.handleClearCache,
		messages.ActionSendLocalList:           s.handleSendLocalList,
		messages.ActionGetLocalListVersion:     s.handleGetLocalListVersion,
		messages.ActionUnlockConnector:         s.handleUnlockConnector,
		messages.ActionUpdateFirmware:          s.handleUpdateFirmware,
		messages.ActionGetLog:                  s.handleGetLog,
		messages.ActionDataTransfer:            s.handleDataTransfer,
	}
}

// ---- provisioning ----

func (s *Station) handleGetVariables(msg rpc.Message) {
	var req messages.GetVariablesRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}
	results := make([]messages.GetVariableResult, 0, len(req.GetVariableData))
	for _, d := range req.GetVariableData {
		result := messages.GetVariableResult{
			AttributeType: d.AttributeType,
			Component:     d.Component,
			Variable:      d.Variable,
		}
		value, err := s.deviceModel.Get(d.Component.Name, d.Variable.Name, d.AttributeType)
		switch err {
		case nil:
			result.AttributeStatus = types.GetVariableStatusAccepted
			result.AttributeValue = value
		case devicemodel.ErrWriteOnly:
			result.AttributeStatus = types.GetVariableStatusRejected
		default:
			result.AttributeStatus = types.GetVariableStatusUnknownVariable
		}
		results = append(results, result)
	}
	s.respond(msg, messages.GetVariablesResponse{GetVariableResult: results})
}

func (s *Station) handleSetVariables(msg rpc.Message) {
	var req messages.SetVariablesRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}
	results := make([]messages.SetVariableResult, 0, len(req.SetVariableData))
	for _, d := range req.SetVariableData {
		result := messages.SetVariableResult{
			AttributeType: d.AttributeType,
			Component:     d.Component,
			Variable:      d.Variable,
		}
		err := s.deviceModel.Set(d.Component.Name, d.Variable.Name, d.AttributeType, d.AttributeValue, devicemodel.SourceCSMS)
		switch err {
		case nil:
			result.AttributeStatus = types.SetVariableStatusAccepted
		case devicemodel.ErrNotFound:
			result.AttributeStatus = types.SetVariableStatusUnknownVariable
		case devicemodel.ErrReadOnly:
			result.AttributeStatus = types.SetVariableStatusRejected
		case devicemodel.ErrTypeMismatch, devicemodel.ErrInvalidValue:
			result.AttributeStatus = types.SetVariableStatusRejected
			result.StatusInfo = &types.StatusInfo{ReasonCode: "InvalidValue"}
		default:
			result.AttributeStatus = types.SetVariableStatusRejected
		}
		results = append(results, result)
	}
	s.respond(msg, messages.SetVariablesResponse{SetVariableResult: results})
}

func (s *Station) handleGetBaseReport(msg rpc.Message) {
	var req messages.GetBaseReportRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}
	switch req.ReportBase {
	case types.ReportBaseFullInventory, types.ReportBaseConfigurationInventory, types.ReportBaseSummaryInventory:
		s.respond(msg, messages.GetBaseReportResponse{Status: types.GenericDeviceModelStatusAccepted})
		s.sendNotifyReport(req.RequestID, s.deviceModel.Report())
	default:
		s.respond(msg, messages.GetBaseReportResponse{Status: types.GenericDeviceModelStatusNotSupported})
	}
}

func (s *Station) handleGetReport(msg rpc.Message) {
	var req messages.GetReportRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}
	report := s.deviceModel.Report()
	if len(req.ComponentVariable) > 0 {
		var filtered []types.ReportData
		for _, rd := range report {
			for _, cv := range req.ComponentVariable {
				if cv.Component.Name != rd.Component.Name {
					continue
				}
				if cv.Variable != nil && cv.Variable.Name != rd.Variable.Name {
					continue
				}
				filtered = append(filtered, rd)
				break
			}
		}
		report = filtered
	}
	if len(report) == 0 {
		s.respond(msg, messages.GetReportResponse{Status: types.GenericDeviceModelStatusEmptyResult})
		return
	}
	s.respond(msg, messages.GetReportResponse{Status: types.GenericDeviceModelStatusAccepted})
	s.sendNotifyReport(req.RequestID, report)
}

func (s *Station) sendNotifyReport(requestID int, report []types.ReportData) {
	req := messages.NotifyReportRequest{
		RequestID:   requestID,
		GeneratedAt: time.Now().UTC(),
		SeqNo:       0,
		ReportData:  report,
	}
	if _, err := s.dispatcher.DispatchCall(messages.ActionNotifyReport, req, nil); err != nil {
		s.log.WithField("error", err).Warn("notify report dispatch failed")
	}
}

// ---- reset and availability ----

func (s *Station) handleReset(msg rpc.Message) {
	var req messages.ResetRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}

	busy := s.evses.HasAnyActiveTransaction()
	if req.EvseID != nil {
		_, busyEvse := s.evses.ActiveTransaction(*req.EvseID)
		busy = busyEvse
	}

	if busy && req.Type == types.ResetTypeOnIdle {
		s.mu.Lock()
		s.resetPending = true
		s.mu.Unlock()
		s.respond(msg, messages.ResetResponse{Status: types.ResetStatusScheduled})
		return
	}

	s.respond(msg, messages.ResetResponse{Status: types.ResetStatusAccepted})
	s.sendSecurityEvent(types.SecurityEventResetOrReboot, string(req.Type))
	// The application callback owns the actual restart.
	s.notify("reset.requested", map[string]interface{}{"type": string(req.Type)})
}

func (s *Station) handleChangeAvailability(msg rpc.Message) {
	var req messages.ChangeAvailabilityRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}

	evseID, connectorID := 0, 0
	if req.Evse != nil {
		evseID = req.Evse.ID
		if req.Evse.ConnectorID != nil {
			connectorID = *req.Evse.ConnectorID
		}
		if !s.evses.Has(evseID) || (connectorID > 0 && !s.evses.HasConnector(evseID, connectorID)) {
			s.respond(msg, messages.ChangeAvailabilityResponse{Status: types.ChangeAvailabilityStatusRejected})
			return
		}
	}

	busy := false
	if evseID == 0 {
		busy = s.evses.HasAnyActiveTransaction()
	} else {
		_, busy = s.evses.ActiveTransaction(evseID)
	}
	if busy && req.OperationalStatus == types.OperationalStatusInoperative {
		s.mu.Lock()
		s.pendingAvailability[evseID] = req.OperationalStatus
		s.mu.Unlock()
		s.respond(msg, messages.ChangeAvailabilityResponse{Status: types.ChangeAvailabilityStatusScheduled})
		return
	}

	s.evses.SetOperative(evseID, connectorID, req.OperationalStatus == types.OperationalStatusOperative)
	s.respond(msg, messages.ChangeAvailabilityResponse{Status: types.ChangeAvailabilityStatusAccepted})
}

// ---- trigger messages ----

func (s *Station) handleTriggerMessage(msg rpc.Message) {
	var req messages.TriggerMessageRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}

	switch req.RequestedMessage {
	case types.MessageTriggerBootNotification:
		s.respond(msg, messages.TriggerMessageResponse{Status: types.TriggerMessageStatusAccepted})
		s.sendBootNotification(true)

	case types.MessageTriggerHeartbeat:
		s.respond(msg, messages.TriggerMessageResponse{Status: types.TriggerMessageStatusAccepted})
		s.sendHeartbeat(true)

	case types.MessageTriggerStatusNotification:
		if req.Evse != nil && !s.evses.Has(req.Evse.ID) {
			s.respond(msg, messages.TriggerMessageResponse{Status: types.TriggerMessageStatusRejected})
			return
		}
		s.respond(msg, messages.TriggerMessageResponse{Status: types.TriggerMessageStatusAccepted})
		s.evses.EachConnector(func(evseID, connectorID int, status types.ConnectorStatus) {
			if req.Evse != nil && evseID != req.Evse.ID {
				return
			}
			if req.Evse != nil && req.Evse.ConnectorID != nil && connectorID != *req.Evse.ConnectorID {
				return
			}
			trigger := messages.StatusNotificationRequest{
				Timestamp:       time.Now().UTC(),
				ConnectorStatus: status,
				EvseID:          evseID,
				ConnectorID:     connectorID,
			}
			if _, err := s.dispatcher.DispatchTriggered(messages.ActionStatusNotification, trigger, nil); err != nil {
				s.log.WithField("error", err).Debug("triggered status notification failed")
			}
		})

	case types.MessageTriggerMeterValues:
		s.respond(msg, messages.TriggerMessageResponse{Status: types.TriggerMessageStatusAccepted})
		s.sendTriggeredMeterValues(req.Evse)

	case types.MessageTriggerTransactionEvent:
		if req.Evse == nil {
			s.respond(msg, messages.TriggerMessageResponse{Status: types.TriggerMessageStatusRejected})
			return
		}
		tx, ok := s.evses.ActiveTransaction(req.Evse.ID)
		if !ok {
			s.respond(msg, messages.TriggerMessageResponse{Status: types.TriggerMessageStatusRejected})
			return
		}
		s.respond(msg, messages.TriggerMessageResponse{Status: types.TriggerMessageStatusAccepted})
		s.sendTriggeredTransactionEvent(req.Evse.ID, tx.ID)

	case types.MessageTriggerFirmwareStatusNotification:
		s.respond(msg, messages.TriggerMessageResponse{Status: types.TriggerMessageStatusAccepted})
		status := messages.FirmwareStatusNotificationRequest{Status: types.FirmwareStatusIdle}
		if _, err := s.dispatcher.DispatchTriggered(messages.ActionFirmwareStatusNotification, status, nil); err != nil {
			s.log.WithField("error", err).Debug("triggered firmware status failed")
		}

	case types.MessageTriggerLogStatusNotification:
		s.respond(msg, messages.TriggerMessageResponse{Status: types.TriggerMessageStatusAccepted})
		status := messages.LogStatusNotificationRequest{Status: types.UploadLogStatusIdle}
		if _, err := s.dispatcher.DispatchTriggered(messages.ActionLogStatusNotification, status, nil); err != nil {
			s.log.WithField("error", err).Debug("triggered log status failed")
		}

	default:
		s.respond(msg, messages.TriggerMessageResponse{Status: types.TriggerMessageStatusNotImplemented})
	}
}

func (s *Station) sendTriggeredMeterValues(target *types.EVSE) {
	for evseID := 1; evseID <= s.evses.Count(); evseID++ {
		if target != nil && evseID != target.ID {
			continue
		}
		window := s.evses.IdleMeterValues(evseID)
		if len(window) == 0 {
			continue
		}
		latest := window[len(window)-1]
		for i := range latest.SampledValue {
			latest.SampledValue[i].Context = types.ReadingContextTrigger
		}
		req := messages.MeterValuesRequest{EvseID: evseID, MeterValue: []types.MeterValue{latest}}
		if _, err := s.dispatcher.DispatchTriggered(messages.ActionMeterValues, req, nil); err != nil {
			s.log.WithField("error", err).Debug("triggered meter values failed")
		}
	}
}

func (s *Station) sendTriggeredTransactionEvent(evseID int, transactionID string) {
	tx, ok := s.evses.ActiveTransaction(evseID)
	if !ok || tx.ID != transactionID {
		return
	}
	req := messages.TransactionEventRequest{
		EventType:     types.TransactionEventUpdated,
		Timestamp:     time.Now().UTC(),
		TriggerReason: types.TriggerReasonTrigger,
		SeqNo:         tx.SeqNo(),
		TransactionInfo: messages.TransactionInfo{
			TransactionID: tx.ID,
			ChargingState: tx.ChargingState,
		},
		Evse: &types.EVSE{ID: evseID, ConnectorID: &tx.ConnectorID},
	}
	if _, err := s.dispatcher.DispatchTriggered(messages.ActionTransactionEvent, req, nil); err != nil {
		s.log.WithField("error", err).Debug("triggered transaction event failed")
	}
}

// ---- remote transaction control ----

func (s *Station) handleRequestStartTransaction(msg rpc.Message) {
	var req messages.RequestStartTransactionRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}
	evseID := 1
	if req.EvseID != nil {
		evseID = *req.EvseID
	}
	if !s.evses.Has(evseID) {
		s.respond(msg, messages.RequestStartTransactionResponse{Status: types.RequestStartStopStatusRejected})
		return
	}
	if _, busy := s.evses.ActiveTransaction(evseID); busy {
		s.respond(msg, messages.RequestStartTransactionResponse{Status: types.RequestStartStopStatusRejected})
		return
	}

	remoteStartID := req.RemoteStartID
	s.evses.Authorized(evseID, req.IdToken, &remoteStartID)

	resp := messages.RequestStartTransactionResponse{Status: types.RequestStartStopStatusAccepted}
	if tx, ok := s.evses.ActiveTransaction(evseID); ok {
		resp.TransactionID = tx.ID
		if req.ChargingProfile != nil {
			profile := *req.ChargingProfile
			profile.TransactionID = tx.ID
			if result := s.smartCharging.InstallProfile(evseID, profile); !result.IsValid() {
				s.log.WithField("reason", result).Warn("remote start profile rejected")
			}
		}
	}
	s.respond(msg, resp)
	s.notify("remote.start", map[string]interface{}{"evseId": evseID, "remoteStartId": req.RemoteStartID})
}

func (s *Station) handleRequestStopTransaction(msg rpc.Message) {
	var req messages.RequestStopTransactionRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}
	tx, ok := s.evses.FindTransaction(req.TransactionID)
	if !ok {
		s.respond(msg, messages.RequestStopTransactionResponse{Status: types.RequestStartStopStatusRejected})
		return
	}
	s.respond(msg, messages.RequestStopTransactionResponse{Status: types.RequestStartStopStatusAccepted})
	s.evses.StopTransaction(tx.EvseID, types.StopReasonRemote, types.TriggerReasonRemoteStop)
	s.notify("remote.stop", map[string]interface{}{"transactionId": req.TransactionID})
}

// ---- smart charging ----

func (s *Station) handleSetChargingProfile(msg rpc.Message) {
	var req messages.SetChargingProfileRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}
	if !s.smartCharging.Enabled() {
		s.respond(msg, messages.SetChargingProfileResponse{
			Status:     types.ChargingProfileStatusRejected,
			StatusInfo: &types.StatusInfo{ReasonCode: "SmartChargingDisabled"},
		})
		return
	}
	result := s.smartCharging.InstallProfile(req.EvseID, req.ChargingProfile)
	if !result.IsValid() {
		s.log.WithFields(logrus.Fields{"profile": req.ChargingProfile.ID, "reason": result}).
			Info("charging profile rejected")
		s.respond(msg, messages.SetChargingProfileResponse{
			Status:     types.ChargingProfileStatusRejected,
			StatusInfo: &types.StatusInfo{ReasonCode: string(result)},
		})
		return
	}
	s.respond(msg, messages.SetChargingProfileResponse{Status: types.ChargingProfileStatusAccepted})
	s.notify("charging.profile.installed", map[string]interface{}{
		"profileId": req.ChargingProfile.ID, "evseId": req.EvseID,
	})
}

func (s *Station) handleClearChargingProfile(msg rpc.Message) {
	var req messages.ClearChargingProfileRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}
	removed, err := s.smartCharging.ClearProfiles(req)
	if err != nil {
		s.dispatcher.DispatchCallError(msg.UniqueID, rpc.ErrGenericError, err.Error())
		return
	}
	status := types.ClearChargingProfileStatusAccepted
	if removed == 0 {
		status = types.ClearChargingProfileStatusUnknown
	}
	s.respond(msg, messages.ClearChargingProfileResponse{Status: status})
}

func (s *Station) handleGetChargingProfiles(msg rpc.Message) {
	var req messages.GetChargingProfilesRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}
	profiles, err := s.smartCharging.Profiles(req)
	if err != nil {
		s.dispatcher.DispatchCallError(msg.UniqueID, rpc.ErrGenericError, err.Error())
		return
	}
	if len(profiles) == 0 {
		s.respond(msg, messages.GetChargingProfilesResponse{Status: types.GetChargingProfileStatusNoProfiles})
		return
	}
	s.respond(msg, messages.GetChargingProfilesResponse{Status: types.GetChargingProfileStatusAccepted})

	byEvse := make(map[int][]types.ChargingProfile)
	for _, sp := range profiles {
		byEvse[sp.EvseID] = append(byEvse[sp.EvseID], sp.Profile)
	}
	for evseID, list := range byEvse {
		report := messages.ReportChargingProfilesRequest{
			RequestID:           req.RequestID,
			ChargingLimitSource: types.ChargingLimitSourceCSO,
			EvseID:              evseID,
			ChargingProfile:     list,
		}
		if _, err := s.dispatcher.DispatchCall(messages.ActionReportChargingProfiles, report, nil); err != nil {
			s.log.WithField("error", err).Warn("report charging profiles dispatch failed")
		}
	}
}

func (s *Station) handleGetCompositeSchedule(msg rpc.Message) {
	var req messages.GetCompositeScheduleRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}
	if req.EvseID != 0 && !s.evses.Has(req.EvseID) {
		s.respond(msg, messages.GetCompositeScheduleResponse{
			Status:     types.GenericStatusRejected,
			StatusInfo: &types.StatusInfo{ReasonCode: "EvseDoesNotExist"},
		})
		return
	}
	schedule, err := s.smartCharging.CompositeSchedule(req.EvseID, time.Now().UTC(), req.Duration, req.ChargingRateUnit)
	if err != nil {
		s.dispatcher.DispatchCallError(msg.UniqueID, rpc.ErrGenericError, err.Error())
		return
	}
	s.respond(msg, messages.GetCompositeScheduleResponse{
		Status:   types.GenericStatusAccepted,
		Schedule: &schedule,
	})
}

// ---- monitoring ----

func (s *Station) handleSetVariableMonitoring(msg rpc.Message) {
	var req messages.SetVariableMonitoringRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}
	results := make([]types.SetMonitoringResult, 0, len(req.SetMonitoringData))
	for _, d := range req.SetMonitoringData {
		results = append(results, s.monitoring.SetMonitor(d))
	}
	s.respond(msg, messages.SetVariableMonitoringResponse{SetMonitoringResult: results})
}

func (s *Station) handleClearVariableMonitoring(msg rpc.Message) {
	var req messages.ClearVariableMonitoringRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}
	results := make([]messages.ClearMonitoringResult, 0, len(req.ID))
	for _, id := range req.ID {
		results = append(results, messages.ClearMonitoringResult{
			ID:     id,
			Status: s.monitoring.ClearMonitor(id),
		})
	}
	s.respond(msg, messages.ClearVariableMonitoringResponse{ClearMonitoringResult: results})
}

// ---- network, cache, lists ----

func (s *Station) handleSetNetworkProfile(msg rpc.Message) {
	var req messages.SetNetworkProfileRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}
	if req.ConnectionData.OCPPVersion != "OCPP20" && req.ConnectionData.OCPPVersion != "OCPP201" {
		s.respond(msg, messages.SetNetworkProfileResponse{Status: types.SetNetworkProfileStatusRejected})
		return
	}
	err := s.network.SetProfile(connectivity.Profile{
		ConfigurationSlot: req.ConfigurationSlot,
		Priority:          req.ConfigurationSlot,
		SecurityProfile:   req.ConnectionData.SecurityProfile,
		URI:               req.ConnectionData.OCPPCsmsURL,
	})
	if err != nil {
		s.respond(msg, messages.SetNetworkProfileResponse{
			Status:     types.SetNetworkProfileStatusRejected,
			StatusInfo: &types.StatusInfo{ReasonCode: "SecurityDowngrade"},
		})
		return
	}
	s.respond(msg, messages.SetNetworkProfileResponse{Status: types.SetNetworkProfileStatusAccepted})
}

func (s *Station) handleGetTransactionStatus(msg rpc.Message) {
	var req messages.GetTransactionStatusRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}
	resp := messages.GetTransactionStatusResponse{
		MessagesInQueue: s.queue.TransactionalQueued(),
	}
	if req.TransactionID != "" {
		_, ongoing := s.evses.FindTransaction(req.TransactionID)
		resp.OngoingIndicator = &ongoing
	}
	s.respond(msg, resp)
}

func (s *Station) handleClearCache(msg rpc.Message) {
	if err := s.auth.ClearCache(); err != nil {
		s.log.WithField("error", err).Error("clearing auth cache failed")
		s.respond(msg, messages.ClearCacheResponse{Status: types.GenericStatusRejected})
		return
	}
	s.respond(msg, messages.ClearCacheResponse{Status: types.GenericStatusAccepted})
}

func (s *Station) handleSendLocalList(msg rpc.Message) {
	var req messages.SendLocalListRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}
	status := s.auth.ApplyLocalList(req)
	s.respond(msg, messages.SendLocalListResponse{Status: status})
}

func (s *Station) handleGetLocalListVersion(msg rpc.Message) {
	version, err := s.auth.LocalListVersion()
	if err != nil {
		s.dispatcher.DispatchCallError(msg.UniqueID, rpc.ErrGenericError, err.Error())
		return
	}
	s.respond(msg, messages.GetLocalListVersionResponse{VersionNumber: version})
}

// ---- connectors, firmware, diagnostics ----

func (s *Station) handleUnlockConnector(msg rpc.Message) {
	var req messages.UnlockConnectorRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}
	if !s.evses.HasConnector(req.EvseID, req.ConnectorID) {
		s.respond(msg, messages.UnlockConnectorResponse{Status: types.UnlockStatusUnknownConnector})
		return
	}
	if tx, ok := s.evses.ActiveTransaction(req.EvseID); ok && tx.ConnectorID == req.ConnectorID {
		s.evses.StopTransaction(req.EvseID, types.StopReasonOther, types.TriggerReasonUnlockCommand)
	}
	s.respond(msg, messages.UnlockConnectorResponse{Status: types.UnlockStatusUnlocked})
	s.notify("connector.unlock", map[string]interface{}{"evseId": req.EvseID, "connectorId": req.ConnectorID})
}

func (s *Station) handleUpdateFirmware(msg rpc.Message) {
	var req messages.UpdateFirmwareRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}
	s.mu.Lock()
	requestID := req.RequestID
	s.firmwareRequestID = &requestID
	s.mu.Unlock()

	s.respond(msg, messages.UpdateFirmwareResponse{Status: types.UpdateFirmwareStatusAccepted})
	s.notify("firmware.update", map[string]interface{}{
		"requestId": req.RequestID,
		"location":  req.Firmware.Location,
	})
	s.FirmwareStatus(types.FirmwareStatusDownloadScheduled)
}

func (s *Station) handleGetLog(msg rpc.Message) {
	var req messages.GetLogRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}
	filename := fmt.Sprintf("%s-%s.log", s.cfg.StationID, req.LogType)
	s.respond(msg, messages.GetLogResponse{Status: "Accepted", Filename: filename})
	s.notify("log.upload", map[string]interface{}{
		"requestId": req.RequestID,
		"logType":   req.LogType,
		"location":  req.Log.RemoteLocation,
	})
	status := messages.LogStatusNotificationRequest{Status: types.UploadLogStatusIdle, RequestID: &req.RequestID}
	if _, err := s.dispatcher.DispatchCall(messages.ActionLogStatusNotification, status, nil); err != nil {
		s.log.WithField("error", err).Debug("log status dispatch failed")
	}
}

func (s *Station) handleDataTransfer(msg rpc.Message) {
	var req messages.DataTransferRequest
	if err := unmarshalPayload(msg.Payload, &req, s.validate); err != nil {
		s.respondFormationViolation(msg, err)
		return
	}
	s.respond(msg, messages.DataTransferResponse{Status: types.DataTransferStatusUnknownVendorId})
}
