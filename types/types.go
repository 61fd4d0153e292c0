package types

import "time"

// IdToken identifies the actor a transaction is authorized for.
type IdToken struct {
	IdToken string      `json:"idToken" validate:"required,max=36"`
	Type    IdTokenType `json:"type" validate:"required"`
}

type IdTokenInfo struct {
	Status              AuthorizationStatus `json:"status" validate:"required"`
	CacheExpiryDateTime *time.Time          `json:"cacheExpiryDateTime,omitempty"`
	ChargingPriority    int                 `json:"chargingPriority,omitempty"`
	GroupIdToken        *IdToken            `json:"groupIdToken,omitempty"`
	Language1           string              `json:"language1,omitempty" validate:"omitempty,max=8"`
	PersonalMessage     *MessageContent     `json:"personalMessage,omitempty"`
}

type MessageContent struct {
	Format  string `json:"format" validate:"required"`
	Content string `json:"content" validate:"required,max=512"`
	Language string `json:"language,omitempty" validate:"omitempty,max=8"`
}

type Component struct {
	Name     string `json:"name" validate:"required,max=50"`
	Instance string `json:"instance,omitempty" validate:"omitempty,max=50"`
	EVSE     *EVSE  `json:"evse,omitempty"`
}

type Variable struct {
	Name     string `json:"name" validate:"required,max=50"`
	Instance string `json:"instance,omitempty" validate:"omitempty,max=50"`
}

type EVSE struct {
	ID          int  `json:"id" validate:"gte=0"`
	ConnectorID *int `json:"connectorId,omitempty" validate:"omitempty,gte=0"`
}

type StatusInfo struct {
	ReasonCode     string `json:"reasonCode" validate:"required,max=20"`
	AdditionalInfo string `json:"additionalInfo,omitempty" validate:"omitempty,max=512"`
}

type SampledValue struct {
	Value         float64             `json:"value"`
	Context       ReadingContext      `json:"context,omitempty"`
	Measurand     Measurand           `json:"measurand,omitempty"`
	Phase         string              `json:"phase,omitempty"`
	Location      string              `json:"location,omitempty"`
	UnitOfMeasure *UnitOfMeasure      `json:"unitOfMeasure,omitempty"`
}

type UnitOfMeasure struct {
	Unit       string `json:"unit,omitempty" validate:"omitempty,max=20"`
	Multiplier int    `json:"multiplier,omitempty"`
}

type MeterValue struct {
	Timestamp    time.Time      `json:"timestamp" validate:"required"`
	SampledValue []SampledValue `json:"sampledValue" validate:"required,min=1,dive"`
}

// ChargingProfile is a time-bounded power or current schedule.
type ChargingProfile struct {
	ID             int                    `json:"id" validate:"required"`
	StackLevel     int                    `json:"stackLevel" validate:"gte=0"`
	Purpose        ChargingProfilePurpose `json:"chargingProfilePurpose" validate:"required"`
	Kind           ChargingProfileKind    `json:"chargingProfileKind" validate:"required"`
	RecurrencyKind RecurrencyKind         `json:"recurrencyKind,omitempty"`
	ValidFrom      *time.Time             `json:"validFrom,omitempty"`
	ValidTo        *time.Time             `json:"validTo,omitempty"`
	TransactionID  string                 `json:"transactionId,omitempty" validate:"omitempty,max=36"`
	Schedules      []ChargingSchedule     `json:"chargingSchedule" validate:"required,min=1,max=3,dive"`
}

type ChargingSchedule struct {
	ID               int                      `json:"id"`
	StartSchedule    *time.Time               `json:"startSchedule,omitempty"`
	Duration         *int                     `json:"duration,omitempty"`
	ChargingRateUnit ChargingRateUnit         `json:"chargingRateUnit" validate:"required"`
	MinChargingRate  *float64                 `json:"minChargingRate,omitempty"`
	Periods          []ChargingSchedulePeriod `json:"chargingSchedulePeriod" validate:"required,min=1,dive"`
}

type ChargingSchedulePeriod struct {
	StartPeriod  int      `json:"startPeriod"`
	Limit        float64  `json:"limit"`
	NumberPhases *int     `json:"numberPhases,omitempty" validate:"omitempty,min=1,max=3"`
	PhaseToUse   *int     `json:"phaseToUse,omitempty" validate:"omitempty,min=1,max=3"`
}

// CompositeSchedule is the resolved stack of profiles over a window.
type CompositeSchedule struct {
	EvseID           int                      `json:"evseId"`
	Duration         int                      `json:"duration"`
	ScheduleStart    time.Time                `json:"scheduleStart"`
	ChargingRateUnit ChargingRateUnit         `json:"chargingRateUnit"`
	Periods          []ChargingSchedulePeriod `json:"chargingSchedulePeriod"`
}

type EventData struct {
	EventID               int                   `json:"eventId"`
	Timestamp             time.Time             `json:"timestamp" validate:"required"`
	Trigger               EventTrigger          `json:"trigger" validate:"required"`
	Cause                 *int                  `json:"cause,omitempty"`
	ActualValue           string                `json:"actualValue" validate:"required,max=2500"`
	TechCode              string                `json:"techCode,omitempty" validate:"omitempty,max=50"`
	TechInfo              string                `json:"techInfo,omitempty" validate:"omitempty,max=500"`
	Cleared               *bool                 `json:"cleared,omitempty"`
	TransactionID         string                `json:"transactionId,omitempty" validate:"omitempty,max=36"`
	VariableMonitoringID  *int                  `json:"variableMonitoringId,omitempty"`
	EventNotificationType EventNotificationType `json:"eventNotificationType" validate:"required"`
	Component             Component             `json:"component" validate:"required"`
	Variable              Variable              `json:"variable" validate:"required"`
}

type SetMonitoringData struct {
	ID          *int        `json:"id,omitempty"`
	Transaction bool        `json:"transaction,omitempty"`
	Value       float64     `json:"value"`
	Type        MonitorKind `json:"type" validate:"required"`
	Severity    int         `json:"severity" validate:"gte=0,lte=9"`
	Component   Component   `json:"component" validate:"required"`
	Variable    Variable    `json:"variable" validate:"required"`
}

type SetMonitoringResult struct {
	ID        *int                `json:"id,omitempty"`
	Status    SetMonitoringStatus `json:"status" validate:"required"`
	Type      MonitorKind         `json:"type" validate:"required"`
	Severity  int                 `json:"severity" validate:"gte=0,lte=9"`
	Component Component           `json:"component" validate:"required"`
	Variable  Variable            `json:"variable" validate:"required"`
	StatusInfo *StatusInfo        `json:"statusInfo,omitempty"`
}

// NetworkConnectionProfile describes one way to reach the CSMS.
type NetworkConnectionProfile struct {
	OCPPVersion     string        `json:"ocppVersion" validate:"required"`
	OCPPTransport   OCPPTransport `json:"ocppTransport" validate:"required"`
	OCPPCsmsURL     string        `json:"ocppCsmsUrl" validate:"required,max=512"`
	MessageTimeout  int           `json:"messageTimeout"`
	SecurityProfile int           `json:"securityProfile" validate:"min=1,max=3"`
	OCPPInterface   OCPPInterface `json:"ocppInterface" validate:"required"`
}

type ReportData struct {
	Component               Component                `json:"component" validate:"required"`
	Variable                Variable                 `json:"variable" validate:"required"`
	VariableAttribute       []VariableAttribute      `json:"variableAttribute" validate:"required,min=1,max=4"`
	VariableCharacteristics *VariableCharacteristics `json:"variableCharacteristics,omitempty"`
}

type VariableAttribute struct {
	Type       AttributeType `json:"type,omitempty"`
	Value      string        `json:"value,omitempty" validate:"omitempty,max=2500"`
	Mutability Mutability    `json:"mutability,omitempty"`
	Persistent bool          `json:"persistent,omitempty"`
	Constant   bool          `json:"constant,omitempty"`
}

type VariableCharacteristics struct {
	Unit               string `json:"unit,omitempty" validate:"omitempty,max=16"`
	DataType           string `json:"dataType" validate:"required"`
	MinLimit           *float64 `json:"minLimit,omitempty"`
	MaxLimit           *float64 `json:"maxLimit,omitempty"`
	ValuesList         string `json:"valuesList,omitempty" validate:"omitempty,max=1000"`
	SupportsMonitoring bool   `json:"supportsMonitoring"`
}

type Firmware struct {
	Location           string     `json:"location" validate:"required,max=512"`
	RetrieveDateTime   time.Time  `json:"retrieveDateTime" validate:"required"`
	InstallDateTime    *time.Time `json:"installDateTime,omitempty"`
	SigningCertificate string     `json:"signingCertificate,omitempty" validate:"omitempty,max=5500"`
	Signature          string     `json:"signature,omitempty" validate:"omitempty,max=800"`
}
