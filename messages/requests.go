package messages

import (
	"time"

	"charging_station/types"
)

type ChargingStationInfo struct {
	SerialNumber    string `json:"serialNumber,omitempty" validate:"omitempty,max=25"`
	Model           string `json:"model" validate:"required,max=20"`
	VendorName      string `json:"vendorName" validate:"required,max=50"`
	FirmwareVersion string `json:"firmwareVersion,omitempty" validate:"omitempty,max=50"`
	Modem           *Modem `json:"modem,omitempty"`
}

type Modem struct {
	ICCID string `json:"iccid,omitempty" validate:"omitempty,max=20"`
	IMSI  string `json:"imsi,omitempty" validate:"omitempty,max=20"`
}

type BootNotificationRequest struct {
	Reason          types.BootReason    `json:"reason" validate:"required"`
	ChargingStation ChargingStationInfo `json:"chargingStation" validate:"required"`
}

type HeartbeatRequest struct{}

type StatusNotificationRequest struct {
	Timestamp       time.Time             `json:"timestamp" validate:"required"`
	ConnectorStatus types.ConnectorStatus `json:"connectorStatus" validate:"required"`
	EvseID          int                   `json:"evseId" validate:"gt=0"`
	ConnectorID     int                   `json:"connectorId" validate:"gt=0"`
}

type TransactionInfo struct {
	TransactionID     string               `json:"transactionId" validate:"required,max=36"`
	ChargingState     types.ChargingState  `json:"chargingState,omitempty"`
	TimeSpentCharging *int                 `json:"timeSpentCharging,omitempty"`
	StoppedReason     types.StopReason     `json:"stoppedReason,omitempty"`
	RemoteStartID     *int                 `json:"remoteStartId,omitempty"`
}

type TransactionEventRequest struct {
	EventType          types.TransactionEventType `json:"eventType" validate:"required"`
	Timestamp          time.Time                  `json:"timestamp" validate:"required"`
	TriggerReason      types.TriggerReason        `json:"triggerReason" validate:"required"`
	SeqNo              int                        `json:"seqNo" validate:"gte=0"`
	Offline            bool                       `json:"offline,omitempty"`
	NumberOfPhasesUsed *int                       `json:"numberOfPhasesUsed,omitempty"`
	CableMaxCurrent    *float64                   `json:"cableMaxCurrent,omitempty"`
	ReservationID      *int                       `json:"reservationId,omitempty"`
	TransactionInfo    TransactionInfo            `json:"transactionInfo" validate:"required"`
	IdToken            *types.IdToken             `json:"idToken,omitempty"`
	Evse               *types.EVSE                `json:"evse,omitempty"`
	MeterValue         []types.MeterValue         `json:"meterValue,omitempty" validate:"omitempty,dive"`
}

type MeterValuesRequest struct {
	EvseID     int                `json:"evseId" validate:"gte=0"`
	MeterValue []types.MeterValue `json:"meterValue" validate:"required,min=1,dive"`
}

type AuthorizeRequest struct {
	IdToken                       types.IdToken `json:"idToken" validate:"required"`
	Certificate                   string        `json:"certificate,omitempty" validate:"omitempty,max=5500"`
	ISO15118CertificateHashData   []interface{} `json:"iso15118CertificateHashData,omitempty"`
}

type SecurityEventNotificationRequest struct {
	Type      string    `json:"type" validate:"required,max=50"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
	TechInfo  string    `json:"techInfo,omitempty" validate:"omitempty,max=255"`
}

type FirmwareStatusNotificationRequest struct {
	Status    types.FirmwareStatus `json:"status" validate:"required"`
	RequestID *int                 `json:"requestId,omitempty"`
}

type LogStatusNotificationRequest struct {
	Status    types.UploadLogStatus `json:"status" validate:"required"`
	RequestID *int                  `json:"requestId,omitempty"`
}

type NotifyEventRequest struct {
	GeneratedAt time.Time         `json:"generatedAt" validate:"required"`
	Tbc         bool              `json:"tbc,omitempty"`
	SeqNo       int               `json:"seqNo" validate:"gte=0"`
	EventData   []types.EventData `json:"eventData" validate:"required,min=1,dive"`
}

type NotifyReportRequest struct {
	RequestID   int                `json:"requestId"`
	GeneratedAt time.Time          `json:"generatedAt" validate:"required"`
	Tbc         bool               `json:"tbc,omitempty"`
	SeqNo       int                `json:"seqNo" validate:"gte=0"`
	ReportData  []types.ReportData `json:"reportData,omitempty" validate:"omitempty,dive"`
}

// ---- requests the CSMS sends to the station ----

type GetVariableData struct {
	AttributeType types.AttributeType `json:"attributeType,omitempty"`
	Component     types.Component     `json:"component" validate:"required"`
	Variable      types.Variable      `json:"variable" validate:"required"`
}

type GetVariablesRequest struct {
	GetVariableData []GetVariableData `json:"getVariableData" validate:"required,min=1,dive"`
}

type SetVariableData struct {
	AttributeType  types.AttributeType `json:"attributeType,omitempty"`
	AttributeValue string              `json:"attributeValue" validate:"max=1000"`
	Component      types.Component     `json:"component" validate:"required"`
	Variable       types.Variable      `json:"variable" validate:"required"`
}

type SetVariablesRequest struct {
	SetVariableData []SetVariableData `json:"setVariableData" validate:"required,min=1,dive"`
}

type GetBaseReportRequest struct {
	RequestID  int              `json:"requestId"`
	ReportBase types.ReportBase `json:"reportBase" validate:"required"`
}

type ComponentVariable struct {
	Component types.Component `json:"component" validate:"required"`
	Variable  *types.Variable `json:"variable,omitempty"`
}

type GetReportRequest struct {
	RequestID         int                 `json:"requestId"`
	ComponentCriteria []string            `json:"componentCriteria,omitempty" validate:"omitempty,max=4"`
	ComponentVariable []ComponentVariable `json:"componentVariable,omitempty" validate:"omitempty,dive"`
}

type ResetRequest struct {
	Type   types.ResetType `json:"type" validate:"required"`
	EvseID *int            `json:"evseId,omitempty" validate:"omitempty,gt=0"`
}

type ChangeAvailabilityRequest struct {
	OperationalStatus types.OperationalStatus `json:"operationalStatus" validate:"required"`
	Evse              *types.EVSE             `json:"evse,omitempty"`
}

type TriggerMessageRequest struct {
	RequestedMessage types.MessageTrigger `json:"requestedMessage" validate:"required"`
	Evse             *types.EVSE          `json:"evse,omitempty"`
}

type RequestStartTransactionRequest struct {
	EvseID          *int                   `json:"evseId,omitempty" validate:"omitempty,gt=0"`
	RemoteStartID   int                    `json:"remoteStartId" validate:"required"`
	IdToken         types.IdToken          `json:"idToken" validate:"required"`
	ChargingProfile *types.ChargingProfile `json:"chargingProfile,omitempty"`
	GroupIdToken    *types.IdToken         `json:"groupIdToken,omitempty"`
}

type RequestStopTransactionRequest struct {
	TransactionID string `json:"transactionId" validate:"required,max=36"`
}

type SetChargingProfileRequest struct {
	EvseID          int                   `json:"evseId" validate:"gte=0"`
	ChargingProfile types.ChargingProfile `json:"chargingProfile" validate:"required"`
}

type ClearChargingProfileCriterion struct {
	EvseID     *int                          `json:"evseId,omitempty"`
	Purpose    *types.ChargingProfilePurpose `json:"chargingProfilePurpose,omitempty"`
	StackLevel *int                          `json:"stackLevel,omitempty"`
}

type ClearChargingProfileRequest struct {
	ChargingProfileID *int                           `json:"chargingProfileId,omitempty"`
	Criteria          *ClearChargingProfileCriterion `json:"chargingProfileCriteria,omitempty"`
}

type ChargingProfileCriterion struct {
	Purpose      *types.ChargingProfilePurpose `json:"chargingProfilePurpose,omitempty"`
	StackLevel   *int                          `json:"stackLevel,omitempty"`
	ProfileIDs   []int                         `json:"chargingProfileId,omitempty"`
	LimitSources []types.ChargingLimitSource   `json:"chargingLimitSource,omitempty" validate:"omitempty,max=4"`
}

type GetChargingProfilesRequest struct {
	RequestID       int                      `json:"requestId"`
	EvseID          *int                     `json:"evseId,omitempty"`
	ChargingProfile ChargingProfileCriterion `json:"chargingProfile" validate:"required"`
}

type ReportChargingProfilesRequest struct {
	RequestID           int                       `json:"requestId"`
	ChargingLimitSource types.ChargingLimitSource `json:"chargingLimitSource" validate:"required"`
	Tbc                 bool                      `json:"tbc,omitempty"`
	EvseID              int                       `json:"evseId" validate:"gte=0"`
	ChargingProfile     []types.ChargingProfile   `json:"chargingProfile" validate:"required,min=1,dive"`
}

type GetCompositeScheduleRequest struct {
	Duration         int                    `json:"duration" validate:"gt=0"`
	ChargingRateUnit types.ChargingRateUnit `json:"chargingRateUnit,omitempty"`
	EvseID           int                    `json:"evseId" validate:"gte=0"`
}

type SetVariableMonitoringRequest struct {
	SetMonitoringData []types.SetMonitoringData `json:"setMonitoringData" validate:"required,min=1,dive"`
}

type ClearVariableMonitoringRequest struct {
	ID []int `json:"id" validate:"required,min=1"`
}

type SetNetworkProfileRequest struct {
	ConfigurationSlot int                            `json:"configurationSlot"`
	ConnectionData    types.NetworkConnectionProfile `json:"connectionData" validate:"required"`
}

type GetTransactionStatusRequest struct {
	TransactionID string `json:"transactionId,omitempty" validate:"omitempty,max=36"`
}

type ClearCacheRequest struct{}

type AuthorizationData struct {
	IdToken     types.IdToken      `json:"idToken" validate:"required"`
	IdTokenInfo *types.IdTokenInfo `json:"idTokenInfo,omitempty"`
}

type SendLocalListRequest struct {
	VersionNumber          int                 `json:"versionNumber" validate:"gte=0"`
	UpdateType             string              `json:"updateType" validate:"required,oneof=Differential Full"`
	LocalAuthorizationList []AuthorizationData `json:"localAuthorizationList,omitempty" validate:"omitempty,dive"`
}

type GetLocalListVersionRequest struct{}

type UnlockConnectorRequest struct {
	EvseID      int `json:"evseId" validate:"gt=0"`
	ConnectorID int `json:"connectorId" validate:"gt=0"`
}

type UpdateFirmwareRequest struct {
	Retries       *int           `json:"retries,omitempty" validate:"omitempty,gte=0"`
	RetryInterval *int           `json:"retryInterval,omitempty"`
	RequestID     int            `json:"requestId"`
	Firmware      types.Firmware `json:"firmware" validate:"required"`
}

type GetLogRequest struct {
	LogType       string `json:"logType" validate:"required,oneof=DiagnosticsLog SecurityLog"`
	RequestID     int    `json:"requestId"`
	Retries       *int   `json:"retries,omitempty"`
	RetryInterval *int   `json:"retryInterval,omitempty"`
	Log           struct {
		RemoteLocation  string     `json:"remoteLocation" validate:"required,max=512"`
		OldestTimestamp *time.Time `json:"oldestTimestamp,omitempty"`
		LatestTimestamp *time.Time `json:"latestTimestamp,omitempty"`
	} `json:"log" validate:"required"`
}

type DataTransferRequest struct {
	VendorID  string      `json:"vendorId" validate:"required,max=255"`
	MessageID string      `json:"messageId,omitempty" validate:"omitempty,max=50"`
	Data      interface{} `json:"data,omitempty"`
}
