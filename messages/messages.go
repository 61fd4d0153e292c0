// Package messages holds the wire payload structs for the OCPP 2.0.1
// actions this station initiates or answers. Field shapes and enum
// spellings follow the 2.0.1 schemas; the engine itself only ever moves
// validated JSON between these structs and the queue.
package messages

// Action names as they appear on the wire.
const (
	ActionAuthorize                  = "Authorize"
	ActionBootNotification           = "BootNotification"
	ActionChangeAvailability         = "ChangeAvailability"
	ActionClearCache                 = "ClearCache"
	ActionClearChargingProfile       = "ClearChargingProfile"
	ActionClearVariableMonitoring    = "ClearVariableMonitoring"
	ActionDataTransfer               = "DataTransfer"
	ActionFirmwareStatusNotification = "FirmwareStatusNotification"
	ActionGetBaseReport              = "GetBaseReport"
	ActionGetChargingProfiles        = "GetChargingProfiles"
	ActionGetCompositeSchedule       = "GetCompositeSchedule"
	ActionGetLocalListVersion        = "GetLocalListVersion"
	ActionGetLog                     = "GetLog"
	ActionGetReport                  = "GetReport"
	ActionGetTransactionStatus       = "GetTransactionStatus"
	ActionGetVariables               = "GetVariables"
	ActionHeartbeat                  = "Heartbeat"
	ActionLogStatusNotification      = "LogStatusNotification"
	ActionMeterValues                = "MeterValues"
	ActionNotifyEvent                = "NotifyEvent"
	ActionNotifyReport               = "NotifyReport"
	ActionReportChargingProfiles     = "ReportChargingProfiles"
	ActionRequestStartTransaction    = "RequestStartTransaction"
	ActionRequestStopTransaction     = "RequestStopTransaction"
	ActionReset                      = "Reset"
	ActionSecurityEventNotification  = "SecurityEventNotification"
	ActionSendLocalList              = "SendLocalList"
	ActionSetChargingProfile         = "SetChargingProfile"
	ActionSetNetworkProfile          = "SetNetworkProfile"
	ActionSetVariableMonitoring      = "SetVariableMonitoring"
	ActionSetVariables               = "SetVariables"
	ActionStatusNotification         = "StatusNotification"
	ActionTransactionEvent           = "TransactionEvent"
	ActionTriggerMessage             = "TriggerMessage"
	ActionUnlockConnector            = "UnlockConnector"
	ActionUpdateFirmware             = "UpdateFirmware"
)

// TransactionRelated reports whether an action belongs to the
// transactional queue lane and must survive a restart.
func TransactionRelated(action string) bool {
	switch action {
	case ActionTransactionEvent, ActionMeterValues, ActionSecurityEventNotification,
		ActionStatusNotification, ActionFirmwareStatusNotification:
		return true
	}
	return false
}
