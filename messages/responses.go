package messages

import (
	"time"

	"charging_station/types"
)

type BootNotificationResponse struct {
	CurrentTime time.Time                `json:"currentTime" validate:"required"`
	Interval    int                      `json:"interval"`
	Status      types.RegistrationStatus `json:"status" validate:"required"`
	StatusInfo  *types.StatusInfo        `json:"statusInfo,omitempty"`
}

type HeartbeatResponse struct {
	CurrentTime time.Time `json:"currentTime" validate:"required"`
}

type StatusNotificationResponse struct{}

type TransactionEventResponse struct {
	TotalCost              *float64           `json:"totalCost,omitempty"`
	ChargingPriority       *int               `json:"chargingPriority,omitempty"`
	IdTokenInfo            *types.IdTokenInfo `json:"idTokenInfo,omitempty"`
	UpdatedPersonalMessage *types.MessageContent `json:"updatedPersonalMessage,omitempty"`
}

type MeterValuesResponse struct{}

type AuthorizeResponse struct {
	IdTokenInfo       types.IdTokenInfo `json:"idTokenInfo" validate:"required"`
	CertificateStatus string            `json:"certificateStatus,omitempty"`
}

type SecurityEventNotificationResponse struct{}

type FirmwareStatusNotificationResponse struct{}

type LogStatusNotificationResponse struct{}

type NotifyEventResponse struct{}

type NotifyReportResponse struct{}

// ---- responses the station sends to the CSMS ----

type GetVariableResult struct {
	AttributeStatus types.GetVariableStatus `json:"attributeStatus" validate:"required"`
	AttributeType   types.AttributeType     `json:"attributeType,omitempty"`
	AttributeValue  string                  `json:"attributeValue,omitempty" validate:"omitempty,max=2500"`
	Component       types.Component         `json:"component" validate:"required"`
	Variable        types.Variable          `json:"variable" validate:"required"`
	StatusInfo      *types.StatusInfo       `json:"attributeStatusInfo,omitempty"`
}

type GetVariablesResponse struct {
	GetVariableResult []GetVariableResult `json:"getVariableResult" validate:"required,min=1,dive"`
}

type SetVariableResult struct {
	AttributeType   types.AttributeType     `json:"attributeType,omitempty"`
	AttributeStatus types.SetVariableStatus `json:"attributeStatus" validate:"required"`
	Component       types.Component         `json:"component" validate:"required"`
	Variable        types.Variable          `json:"variable" validate:"required"`
	StatusInfo      *types.StatusInfo       `json:"attributeStatusInfo,omitempty"`
}

type SetVariablesResponse struct {
	SetVariableResult []SetVariableResult `json:"setVariableResult" validate:"required,min=1,dive"`
}

type GetBaseReportResponse struct {
	Status     types.GenericDeviceModelStatus `json:"status" validate:"required"`
	StatusInfo *types.StatusInfo              `json:"statusInfo,omitempty"`
}

type GetReportResponse struct {
	Status     types.GenericDeviceModelStatus `json:"status" validate:"required"`
	StatusInfo *types.StatusInfo              `json:"statusInfo,omitempty"`
}

type ResetResponse struct {
	Status     types.ResetStatus `json:"status" validate:"required"`
	StatusInfo *types.StatusInfo `json:"statusInfo,omitempty"`
}

type ChangeAvailabilityResponse struct {
	Status     types.ChangeAvailabilityStatus `json:"status" validate:"required"`
	StatusInfo *types.StatusInfo              `json:"statusInfo,omitempty"`
}

type TriggerMessageResponse struct {
	Status     types.TriggerMessageStatus `json:"status" validate:"required"`
	StatusInfo *types.StatusInfo          `json:"statusInfo,omitempty"`
}

type RequestStartTransactionResponse struct {
	Status        types.RequestStartStopStatus `json:"status" validate:"required"`
	TransactionID string                       `json:"transactionId,omitempty" validate:"omitempty,max=36"`
	StatusInfo    *types.StatusInfo            `json:"statusInfo,omitempty"`
}

type RequestStopTransactionResponse struct {
	Status     types.RequestStartStopStatus `json:"status" validate:"required"`
	StatusInfo *types.StatusInfo            `json:"statusInfo,omitempty"`
}

type SetChargingProfileResponse struct {
	Status     types.ChargingProfileStatus `json:"status" validate:"required"`
	StatusInfo *types.StatusInfo           `json:"statusInfo,omitempty"`
}

type ClearChargingProfileResponse struct {
	Status     types.ClearChargingProfileStatus `json:"status" validate:"required"`
	StatusInfo *types.StatusInfo                `json:"statusInfo,omitempty"`
}

type GetChargingProfilesResponse struct {
	Status     types.GetChargingProfileStatus `json:"status" validate:"required"`
	StatusInfo *types.StatusInfo              `json:"statusInfo,omitempty"`
}

type GetCompositeScheduleResponse struct {
	Status     types.GenericStatus      `json:"status" validate:"required"`
	Schedule   *types.CompositeSchedule `json:"schedule,omitempty"`
	StatusInfo *types.StatusInfo        `json:"statusInfo,omitempty"`
}

type SetVariableMonitoringResponse struct {
	SetMonitoringResult []types.SetMonitoringResult `json:"setMonitoringResult" validate:"required,min=1,dive"`
}

type ClearMonitoringResult struct {
	Status     types.ClearMonitoringStatus `json:"status" validate:"required"`
	ID         int                         `json:"id"`
	StatusInfo *types.StatusInfo           `json:"statusInfo,omitempty"`
}

type ClearVariableMonitoringResponse struct {
	ClearMonitoringResult []ClearMonitoringResult `json:"clearMonitoringResult" validate:"required,min=1,dive"`
}

type SetNetworkProfileResponse struct {
	Status     types.SetNetworkProfileStatus `json:"status" validate:"required"`
	StatusInfo *types.StatusInfo             `json:"statusInfo,omitempty"`
}

type GetTransactionStatusResponse struct {
	OngoingIndicator *bool `json:"ongoingIndicator,omitempty"`
	MessagesInQueue  bool  `json:"messagesInQueue"`
}

type ClearCacheResponse struct {
	Status     types.GenericStatus `json:"status" validate:"required"`
	StatusInfo *types.StatusInfo   `json:"statusInfo,omitempty"`
}

type SendLocalListResponse struct {
	Status     string            `json:"status" validate:"required,oneof=Accepted Failed VersionMismatch"`
	StatusInfo *types.StatusInfo `json:"statusInfo,omitempty"`
}

type GetLocalListVersionResponse struct {
	VersionNumber int `json:"versionNumber"`
}

type UnlockConnectorResponse struct {
	Status     types.UnlockStatus `json:"status" validate:"required"`
	StatusInfo *types.StatusInfo  `json:"statusInfo,omitempty"`
}

type UpdateFirmwareResponse struct {
	Status     types.UpdateFirmwareStatus `json:"status" validate:"required"`
	StatusInfo *types.StatusInfo          `json:"statusInfo,omitempty"`
}

type GetLogResponse struct {
	Status     string            `json:"status" validate:"required,oneof=Accepted Rejected AcceptedCanceled"`
	Filename   string            `json:"filename,omitempty" validate:"omitempty,max=255"`
	StatusInfo *types.StatusInfo `json:"statusInfo,omitempty"`
}

type DataTransferResponse struct {
	Status     types.DataTransferStatus `json:"status" validate:"required"`
	Data       interface{}              `json:"data,omitempty"`
	StatusInfo *types.StatusInfo        `json:"statusInfo,omitempty"`
}
