package types

// SubProtocol201 is the websocket subprotocol for OCPP 2.0.1.
const SubProtocol201 = "ocpp2.0.1"

type RegistrationStatus string

const (
	RegistrationStatusAccepted RegistrationStatus = "Accepted"
	RegistrationStatusPending  RegistrationStatus = "Pending"
	RegistrationStatusRejected RegistrationStatus = "Rejected"
)

type BootReason string

const (
	BootReasonApplicationReset BootReason = "ApplicationReset"
	BootReasonFirmwareUpdate   BootReason = "FirmwareUpdate"
	BootReasonLocalReset       BootReason = "LocalReset"
	BootReasonPowerUp          BootReason = "PowerUp"
	BootReasonRemoteReset      BootReason = "RemoteReset"
	BootReasonScheduledReset   BootReason = "ScheduledReset"
	BootReasonTriggered        BootReason = "Triggered"
	BootReasonUnknown          BootReason = "Unknown"
	BootReasonWatchdog         BootReason = "Watchdog"
)

type ConnectorStatus string

const (
	ConnectorStatusAvailable   ConnectorStatus = "Available"
	ConnectorStatusOccupied    ConnectorStatus = "Occupied"
	ConnectorStatusReserved    ConnectorStatus = "Reserved"
	ConnectorStatusUnavailable ConnectorStatus = "Unavailable"
	ConnectorStatusFaulted     ConnectorStatus = "Faulted"
)

type OperationalStatus string

const (
	OperationalStatusInoperative OperationalStatus = "Inoperative"
	OperationalStatusOperative   OperationalStatus = "Operative"
)

type ChangeAvailabilityStatus string

const (
	ChangeAvailabilityStatusAccepted  ChangeAvailabilityStatus = "Accepted"
	ChangeAvailabilityStatusRejected  ChangeAvailabilityStatus = "Rejected"
	ChangeAvailabilityStatusScheduled ChangeAvailabilityStatus = "Scheduled"
)

type TransactionEventType string

const (
	TransactionEventStarted TransactionEventType = "Started"
	TransactionEventUpdated TransactionEventType = "Updated"
	TransactionEventEnded   TransactionEventType = "Ended"
)

type TriggerReason string

const (
	TriggerReasonAuthorized           TriggerReason = "Authorized"
	TriggerReasonCablePluggedIn       TriggerReason = "CablePluggedIn"
	TriggerReasonChargingRateChanged  TriggerReason = "ChargingRateChanged"
	TriggerReasonChargingStateChanged TriggerReason = "ChargingStateChanged"
	TriggerReasonDeauthorized         TriggerReason = "Deauthorized"
	TriggerReasonEnergyLimitReached   TriggerReason = "EnergyLimitReached"
	TriggerReasonEVCommunicationLost  TriggerReason = "EVCommunicationLost"
	TriggerReasonEVConnectTimeout     TriggerReason = "EVConnectTimeout"
	TriggerReasonEVDeparted           TriggerReason = "EVDeparted"
	TriggerReasonEVDetected           TriggerReason = "EVDetected"
	TriggerReasonMeterValueClock      TriggerReason = "MeterValueClock"
	TriggerReasonMeterValuePeriodic   TriggerReason = "MeterValuePeriodic"
	TriggerReasonRemoteStart          TriggerReason = "RemoteStart"
	TriggerReasonRemoteStop           TriggerReason = "RemoteStop"
	TriggerReasonResetCommand         TriggerReason = "ResetCommand"
	TriggerReasonSignedDataReceived   TriggerReason = "SignedDataReceived"
	TriggerReasonStopAuthorized       TriggerReason = "StopAuthorized"
	TriggerReasonTrigger              TriggerReason = "Trigger"
	TriggerReasonUnlockCommand        TriggerReason = "UnlockCommand"
)

type ChargingState string

const (
	ChargingStateCharging      ChargingState = "Charging"
	ChargingStateEVConnected   ChargingState = "EVConnected"
	ChargingStateSuspendedEV   ChargingState = "SuspendedEV"
	ChargingStateSuspendedEVSE ChargingState = "SuspendedEVSE"
	ChargingStateIdle          ChargingState = "Idle"
)

type StopReason string

const (
	StopReasonDeAuthorized     StopReason = "DeAuthorized"
	StopReasonEmergencyStop    StopReason = "EmergencyStop"
	StopReasonEnergyLimit      StopReason = "EnergyLimitReached"
	StopReasonEVDisconnected   StopReason = "EVDisconnected"
	StopReasonGroundFault      StopReason = "GroundFault"
	StopReasonImmediateReset   StopReason = "ImmediateReset"
	StopReasonLocal            StopReason = "Local"
	StopReasonLocalOutOfCredit StopReason = "LocalOutOfCredit"
	StopReasonMasterPass       StopReason = "MasterPass"
	StopReasonOther            StopReason = "Other"
	StopReasonPowerLoss        StopReason = "PowerLoss"
	StopReasonPowerQuality     StopReason = "PowerQuality"
	StopReasonReboot           StopReason = "Reboot"
	StopReasonRemote           StopReason = "Remote"
	StopReasonSOCLimitReached  StopReason = "SOCLimitReached"
	StopReasonStoppedByEV      StopReason = "StoppedByEV"
	StopReasonTimeLimit        StopReason = "TimeLimitReached"
	StopReasonTimeout          StopReason = "Timeout"
)

type AuthorizationStatus string

const (
	AuthorizationStatusAccepted     AuthorizationStatus = "Accepted"
	AuthorizationStatusBlocked      AuthorizationStatus = "Blocked"
	AuthorizationStatusConcurrentTx AuthorizationStatus = "ConcurrentTx"
	AuthorizationStatusExpired      AuthorizationStatus = "Expired"
	AuthorizationStatusInvalid      AuthorizationStatus = "Invalid"
	AuthorizationStatusNoCredit     AuthorizationStatus = "NoCredit"
	AuthorizationStatusUnknown      AuthorizationStatus = "Unknown"
)

type IdTokenType string

const (
	IdTokenTypeCentral         IdTokenType = "Central"
	IdTokenTypeEMAID           IdTokenType = "eMAID"
	IdTokenTypeISO14443        IdTokenType = "ISO14443"
	IdTokenTypeISO15693        IdTokenType = "ISO15693"
	IdTokenTypeKeyCode         IdTokenType = "KeyCode"
	IdTokenTypeLocal           IdTokenType = "Local"
	IdTokenTypeMacAddress      IdTokenType = "MacAddress"
	IdTokenTypeNoAuthorization IdTokenType = "NoAuthorization"
)

type MessageTrigger string

const (
	MessageTriggerBootNotification               MessageTrigger = "BootNotification"
	MessageTriggerLogStatusNotification          MessageTrigger = "LogStatusNotification"
	MessageTriggerFirmwareStatusNotification     MessageTrigger = "FirmwareStatusNotification"
	MessageTriggerHeartbeat                      MessageTrigger = "Heartbeat"
	MessageTriggerMeterValues                    MessageTrigger = "MeterValues"
	MessageTriggerSignChargingStationCertificate MessageTrigger = "SignChargingStationCertificate"
	MessageTriggerStatusNotification             MessageTrigger = "StatusNotification"
	MessageTriggerTransactionEvent               MessageTrigger = "TransactionEvent"
)

type TriggerMessageStatus string

const (
	TriggerMessageStatusAccepted       TriggerMessageStatus = "Accepted"
	TriggerMessageStatusRejected       TriggerMessageStatus = "Rejected"
	TriggerMessageStatusNotImplemented TriggerMessageStatus = "NotImplemented"
)

type RequestStartStopStatus string

const (
	RequestStartStopStatusAccepted RequestStartStopStatus = "Accepted"
	RequestStartStopStatusRejected RequestStartStopStatus = "Rejected"
)

type ResetType string

const (
	ResetTypeImmediate ResetType = "Immediate"
	ResetTypeOnIdle    ResetType = "OnIdle"
)

type ResetStatus string

const (
	ResetStatusAccepted  ResetStatus = "Accepted"
	ResetStatusRejected  ResetStatus = "Rejected"
	ResetStatusScheduled ResetStatus = "Scheduled"
)

type AttributeType string

const (
	AttributeActual AttributeType = "Actual"
	AttributeTarget AttributeType = "Target"
	AttributeMinSet AttributeType = "MinSet"
	AttributeMaxSet AttributeType = "MaxSet"
)

type Mutability string

const (
	MutabilityReadOnly  Mutability = "ReadOnly"
	MutabilityWriteOnly Mutability = "WriteOnly"
	MutabilityReadWrite Mutability = "ReadWrite"
)

type SetVariableStatus string

const (
	SetVariableStatusAccepted       SetVariableStatus = "Accepted"
	SetVariableStatusRejected       SetVariableStatus = "Rejected"
	SetVariableStatusRebootRequired SetVariableStatus = "RebootRequired"
	SetVariableStatusNotSupported   SetVariableStatus = "NotSupportedAttributeType"
	SetVariableStatusUnknownComponent SetVariableStatus = "UnknownComponent"
	SetVariableStatusUnknownVariable  SetVariableStatus = "UnknownVariable"
)

type GetVariableStatus string

const (
	GetVariableStatusAccepted         GetVariableStatus = "Accepted"
	GetVariableStatusRejected         GetVariableStatus = "Rejected"
	GetVariableStatusNotSupported     GetVariableStatus = "NotSupportedAttributeType"
	GetVariableStatusUnknownComponent GetVariableStatus = "UnknownComponent"
	GetVariableStatusUnknownVariable  GetVariableStatus = "UnknownVariable"
)

type GenericStatus string

const (
	GenericStatusAccepted GenericStatus = "Accepted"
	GenericStatusRejected GenericStatus = "Rejected"
)

type GenericDeviceModelStatus string

const (
	GenericDeviceModelStatusAccepted     GenericDeviceModelStatus = "Accepted"
	GenericDeviceModelStatusRejected     GenericDeviceModelStatus = "Rejected"
	GenericDeviceModelStatusNotSupported GenericDeviceModelStatus = "NotSupported"
	GenericDeviceModelStatusEmptyResult  GenericDeviceModelStatus = "EmptyResultSet"
)

type ReportBase string

const (
	ReportBaseConfigurationInventory ReportBase = "ConfigurationInventory"
	ReportBaseFullInventory          ReportBase = "FullInventory"
	ReportBaseSummaryInventory       ReportBase = "SummaryInventory"
)

type MonitorKind string

const (
	MonitorUpperThreshold       MonitorKind = "UpperThreshold"
	MonitorLowerThreshold       MonitorKind = "LowerThreshold"
	MonitorDelta                MonitorKind = "Delta"
	MonitorPeriodic             MonitorKind = "Periodic"
	MonitorPeriodicClockAligned MonitorKind = "PeriodicClockAligned"
)

type SetMonitoringStatus string

const (
	SetMonitoringStatusAccepted             SetMonitoringStatus = "Accepted"
	SetMonitoringStatusRejected             SetMonitoringStatus = "Rejected"
	SetMonitoringStatusUnknownComponent     SetMonitoringStatus = "UnknownComponent"
	SetMonitoringStatusUnknownVariable      SetMonitoringStatus = "UnknownVariable"
	SetMonitoringStatusUnsupportedMonitorType SetMonitoringStatus = "UnsupportedMonitorType"
	SetMonitoringStatusDuplicate            SetMonitoringStatus = "Duplicate"
)

type ClearMonitoringStatus string

const (
	ClearMonitoringStatusAccepted ClearMonitoringStatus = "Accepted"
	ClearMonitoringStatusRejected ClearMonitoringStatus = "Rejected"
	ClearMonitoringStatusNotFound ClearMonitoringStatus = "NotFound"
)

type EventTrigger string

const (
	EventTriggerAlerting EventTrigger = "Alerting"
	EventTriggerDelta    EventTrigger = "Delta"
	EventTriggerPeriodic EventTrigger = "Periodic"
)

type EventNotificationType string

const (
	EventNotificationHardWiredNotification EventNotificationType = "HardWiredNotification"
	EventNotificationHardWiredMonitor      EventNotificationType = "HardWiredMonitor"
	EventNotificationPreconfiguredMonitor  EventNotificationType = "PreconfiguredMonitor"
	EventNotificationCustomMonitor         EventNotificationType = "CustomMonitor"
)

type ChargingProfilePurpose string

const (
	PurposeChargingStationExternalConstraints ChargingProfilePurpose = "ChargingStationExternalConstraints"
	PurposeChargingStationMax                 ChargingProfilePurpose = "ChargingStationMaxProfile"
	PurposeTxDefault                          ChargingProfilePurpose = "TxDefaultProfile"
	PurposeTx                                 ChargingProfilePurpose = "TxProfile"
)

type ChargingProfileKind string

const (
	ProfileKindAbsolute  ChargingProfileKind = "Absolute"
	ProfileKindRecurring ChargingProfileKind = "Recurring"
	ProfileKindRelative  ChargingProfileKind = "Relative"
)

type RecurrencyKind string

const (
	RecurrencyDaily  RecurrencyKind = "Daily"
	RecurrencyWeekly RecurrencyKind = "Weekly"
)

type ChargingRateUnit string

const (
	ChargingRateUnitA ChargingRateUnit = "A"
	ChargingRateUnitW ChargingRateUnit = "W"
)

type ChargingProfileStatus string

const (
	ChargingProfileStatusAccepted ChargingProfileStatus = "Accepted"
	ChargingProfileStatusRejected ChargingProfileStatus = "Rejected"
)

type ClearChargingProfileStatus string

const (
	ClearChargingProfileStatusAccepted ClearChargingProfileStatus = "Accepted"
	ClearChargingProfileStatusUnknown  ClearChargingProfileStatus = "Unknown"
)

type GetChargingProfileStatus string

const (
	GetChargingProfileStatusAccepted      GetChargingProfileStatus = "Accepted"
	GetChargingProfileStatusNoProfiles    GetChargingProfileStatus = "NoProfiles"
)

type ChargingLimitSource string

const (
	ChargingLimitSourceEMS   ChargingLimitSource = "EMS"
	ChargingLimitSourceOther ChargingLimitSource = "Other"
	ChargingLimitSourceSO    ChargingLimitSource = "SO"
	ChargingLimitSourceCSO   ChargingLimitSource = "CSO"
)

type FirmwareStatus string

const (
	FirmwareStatusDownloaded                FirmwareStatus = "Downloaded"
	FirmwareStatusDownloadFailed            FirmwareStatus = "DownloadFailed"
	FirmwareStatusDownloading               FirmwareStatus = "Downloading"
	FirmwareStatusDownloadScheduled         FirmwareStatus = "DownloadScheduled"
	FirmwareStatusDownloadPaused            FirmwareStatus = "DownloadPaused"
	FirmwareStatusIdle                      FirmwareStatus = "Idle"
	FirmwareStatusInstallationFailed        FirmwareStatus = "InstallationFailed"
	FirmwareStatusInstalling                FirmwareStatus = "Installing"
	FirmwareStatusInstalled                 FirmwareStatus = "Installed"
	FirmwareStatusInstallRebooting          FirmwareStatus = "InstallRebooting"
	FirmwareStatusInstallScheduled          FirmwareStatus = "InstallScheduled"
	FirmwareStatusInstallVerificationFailed FirmwareStatus = "InstallVerificationFailed"
	FirmwareStatusInvalidSignature          FirmwareStatus = "InvalidSignature"
	FirmwareStatusSignatureVerified         FirmwareStatus = "SignatureVerified"
)

type UpdateFirmwareStatus string

const (
	UpdateFirmwareStatusAccepted           UpdateFirmwareStatus = "Accepted"
	UpdateFirmwareStatusRejected           UpdateFirmwareStatus = "Rejected"
	UpdateFirmwareStatusAcceptedCanceled   UpdateFirmwareStatus = "AcceptedCanceled"
	UpdateFirmwareStatusInvalidCertificate UpdateFirmwareStatus = "InvalidCertificate"
	UpdateFirmwareStatusRevokedCertificate UpdateFirmwareStatus = "RevokedCertificate"
)

type UnlockStatus string

const (
	UnlockStatusUnlocked                  UnlockStatus = "Unlocked"
	UnlockStatusUnlockFailed              UnlockStatus = "UnlockFailed"
	UnlockStatusOngoingAuthorizedTransaction UnlockStatus = "OngoingAuthorizedTransaction"
	UnlockStatusUnknownConnector          UnlockStatus = "UnknownConnector"
)

type SetNetworkProfileStatus string

const (
	SetNetworkProfileStatusAccepted SetNetworkProfileStatus = "Accepted"
	SetNetworkProfileStatusRejected SetNetworkProfileStatus = "Rejected"
	SetNetworkProfileStatusFailed   SetNetworkProfileStatus = "Failed"
)

type OCPPTransport string

const (
	OCPPTransportJSON OCPPTransport = "JSON"
)

type OCPPInterface string

const (
	OCPPInterfaceWired0    OCPPInterface = "Wired0"
	OCPPInterfaceWired1    OCPPInterface = "Wired1"
	OCPPInterfaceWireless0 OCPPInterface = "Wireless0"
	OCPPInterfaceWireless1 OCPPInterface = "Wireless1"
)

type DataTransferStatus string

const (
	DataTransferStatusAccepted         DataTransferStatus = "Accepted"
	DataTransferStatusRejected         DataTransferStatus = "Rejected"
	DataTransferStatusUnknownMessageId DataTransferStatus = "UnknownMessageId"
	DataTransferStatusUnknownVendorId  DataTransferStatus = "UnknownVendorId"
)

type ReadingContext string

const (
	ReadingContextInterruptionBegin ReadingContext = "Interruption.Begin"
	ReadingContextInterruptionEnd   ReadingContext = "Interruption.End"
	ReadingContextOther             ReadingContext = "Other"
	ReadingContextSampleClock       ReadingContext = "Sample.Clock"
	ReadingContextSamplePeriodic    ReadingContext = "Sample.Periodic"
	ReadingContextTransactionBegin  ReadingContext = "Transaction.Begin"
	ReadingContextTransactionEnd    ReadingContext = "Transaction.End"
	ReadingContextTrigger           ReadingContext = "Trigger"
)

type Measurand string

const (
	MeasurandCurrentImport              Measurand = "Current.Import"
	MeasurandCurrentOffered             Measurand = "Current.Offered"
	MeasurandEnergyActiveImportRegister Measurand = "Energy.Active.Import.Register"
	MeasurandEnergyActiveImportInterval Measurand = "Energy.Active.Import.Interval"
	MeasurandPowerActiveImport          Measurand = "Power.Active.Import"
	MeasurandPowerOffered               Measurand = "Power.Offered"
	MeasurandSoC                        Measurand = "SoC"
	MeasurandVoltage                    Measurand = "Voltage"
	MeasurandFrequency                  Measurand = "Frequency"
)

type UploadLogStatus string

const (
	UploadLogStatusBadMessage   UploadLogStatus = "BadMessage"
	UploadLogStatusIdle         UploadLogStatus = "Idle"
	UploadLogStatusNotSupported UploadLogStatus = "NotSupportedOperation"
	UploadLogStatusPermissionDenied UploadLogStatus = "PermissionDenied"
	UploadLogStatusUploaded     UploadLogStatus = "Uploaded"
	UploadLogStatusUploadFailure UploadLogStatus = "UploadFailure"
	UploadLogStatusUploading    UploadLogStatus = "Uploading"
	UploadLogStatusAcceptedCanceled UploadLogStatus = "AcceptedCanceled"
)

// Security event type names reported through SecurityEventNotification.
const (
	SecurityEventInvalidMessages         = "InvalidMessages"
	SecurityEventInvalidCsmsCertificate  = "InvalidCsmsCertificate"
	SecurityEventFailedToAuthenticate    = "InvalidChargingStationCertificate"
	SecurityEventStartupOfTheDevice      = "StartupOfTheDevice"
	SecurityEventResetOrReboot           = "ResetOrReboot"
	SecurityEventSettingSystemTime       = "SettingSystemTime"
	SecurityEventReconfigurationOfSecurityParameters = "ReconfigurationOfSecurityParameters"
)
