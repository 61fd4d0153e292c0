package devicemodel

import "charging_station/types"

// Controller component names.
const (
	ComponentOCPPCommCtrlr     = "OCPPCommCtrlr"
	ComponentAlignedDataCtrlr  = "AlignedDataCtrlr"
	ComponentSampledDataCtrlr  = "SampledDataCtrlr"
	ComponentSmartChargingCtrlr = "SmartChargingCtrlr"
	ComponentSecurityCtrlr     = "SecurityCtrlr"
	ComponentAuthCacheCtrlr    = "AuthCacheCtrlr"
	ComponentAuthCtrlr         = "AuthCtrlr"
	ComponentChargingStation   = "ChargingStation"
	ComponentCustomizationCtrlr = "CustomizationCtrlr"
	ComponentTariffCostCtrlr   = "TariffCostCtrlr"
)

// Variable names of the configuration knobs.
const (
	VarMessageAttempts                = "MessageAttempts"
	VarMessageAttemptInterval         = "MessageAttemptInterval"
	VarMessageTimeout                 = "MessageTimeout"
	VarMessageQueueSizeThreshold      = "MessageQueueSizeThreshold"
	VarMessageTypesDiscardForQueueing = "MessageTypesDiscardForQueueing"
	VarHeartbeatInterval              = "HeartbeatInterval"
	VarOfflineThreshold               = "OfflineThreshold"
	VarWebSocketPingInterval          = "WebSocketPingInterval"
	VarRetryBackOffRandomRange        = "RetryBackOffRandomRange"
	VarRetryBackOffRepeatTimes        = "RetryBackOffRepeatTimes"
	VarRetryBackOffWaitMinimum        = "RetryBackOffWaitMinimum"
	VarNetworkProfileConnectionAttempts = "NetworkProfileConnectionAttempts"
	VarNetworkConfigurationPriority   = "NetworkConfigurationPriority"

	VarAlignedDataInterval       = "Interval"
	VarAlignedDataSendDuringIdle = "SendDuringIdle"
	VarAlignedDataMeasurands     = "Measurands"

	VarTxEndedMeasurands   = "TxEndedMeasurands"
	VarTxUpdatedMeasurands = "TxUpdatedMeasurands"
	VarTxUpdatedInterval   = "TxUpdatedInterval"

	VarSmartChargingEnabled           = "Enabled"
	VarSmartChargingAvailable         = "Available"
	VarChargingScheduleChargingRateUnit = "RateUnit"
	VarACPhaseSwitchingSupported      = "ACPhaseSwitchingSupported"
	VarPeriodsPerSchedule             = "PeriodsPerSchedule"
	VarProfileStackLevel              = "ProfileStackLevel"

	VarSecurityProfile   = "SecurityProfile"
	VarBasicAuthPassword = "BasicAuthPassword"
	VarOrganizationName  = "OrganizationName"

	VarAuthCacheEnabled    = "Enabled"
	VarAuthCacheStorage    = "Storage"
	VarLocalAuthListEnabled = "LocalAuthListEnabled"
	VarAuthorizeRemoteStart = "AuthorizeRemoteStart"

	VarSupplyPhases        = "SupplyPhases"
	VarAvailabilityState   = "AvailabilityState"

	VarMaxCustomerInformationDataLength = "MaxCustomerInformationDataLength"
	VarNumberOfDecimalsForCostValues    = "NumberOfDecimalsForCostValues"
)

func rw(dataType string) Meta {
	return Meta{
		Mutability:      types.MutabilityReadWrite,
		Characteristics: &types.VariableCharacteristics{DataType: dataType},
	}
}

func ro(dataType string) Meta {
	return Meta{
		Mutability:      types.MutabilityReadOnly,
		Characteristics: &types.VariableCharacteristics{DataType: dataType},
	}
}

func wo(dataType string) Meta {
	return Meta{
		Mutability:      types.MutabilityWriteOnly,
		Characteristics: &types.VariableCharacteristics{DataType: dataType},
	}
}

// seedControllerDefaults registers every configuration knob with its
// default, before persisted values overlay them.
func seedControllerDefaults(d *DeviceModel) {
	comm := ComponentOCPPCommCtrlr
	d.Register(comm, VarMessageAttempts, rw("integer"), "5")
	d.Register(comm, VarMessageAttemptInterval, rw("integer"), "10")
	d.Register(comm, VarMessageTimeout, rw("integer"), "30")
	d.Register(comm, VarMessageQueueSizeThreshold, rw("integer"), "5000")
	d.Register(comm, VarMessageTypesDiscardForQueueing, rw("memberList"), "")
	d.Register(comm, VarHeartbeatInterval, rw("integer"), "1800")
	d.Register(comm, VarOfflineThreshold, rw("integer"), "60")
	d.Register(comm, VarWebSocketPingInterval, rw("integer"), "30")
	d.Register(comm, VarRetryBackOffRandomRange, rw("integer"), "10")
	d.Register(comm, VarRetryBackOffRepeatTimes, rw("integer"), "5")
	d.Register(comm, VarRetryBackOffWaitMinimum, rw("integer"), "3")
	d.Register(comm, VarNetworkProfileConnectionAttempts, rw("integer"), "3")
	d.Register(comm, VarNetworkConfigurationPriority, rw("memberList"), "1")

	aligned := ComponentAlignedDataCtrlr
	d.Register(aligned, VarAlignedDataInterval, rw("integer"), "900")
	d.Register(aligned, VarAlignedDataSendDuringIdle, rw("boolean"), "false")
	d.Register(aligned, VarAlignedDataMeasurands, rw("memberList"), "Energy.Active.Import.Register")

	sampled := ComponentSampledDataCtrlr
	d.Register(sampled, VarTxEndedMeasurands, rw("memberList"), "Energy.Active.Import.Register")
	d.Register(sampled, VarTxUpdatedMeasurands, rw("memberList"), "Energy.Active.Import.Register")
	d.Register(sampled, VarTxUpdatedInterval, rw("integer"), "60")

	smart := ComponentSmartChargingCtrlr
	d.Register(smart, VarSmartChargingEnabled, rw("boolean"), "true")
	d.Register(smart, VarSmartChargingAvailable, ro("boolean"), "true")
	d.Register(smart, VarChargingScheduleChargingRateUnit, rw("memberList"), "A,W")
	d.Register(smart, VarACPhaseSwitchingSupported, ro("boolean"), "false")
	d.Register(smart, VarPeriodsPerSchedule, ro("integer"), "24")
	d.Register(smart, VarProfileStackLevel, ro("integer"), "8")

	sec := ComponentSecurityCtrlr
	d.Register(sec, VarSecurityProfile, ro("integer"), "1")
	d.Register(sec, VarBasicAuthPassword, wo("string"), "")
	d.Register(sec, VarOrganizationName, rw("string"), "")

	d.Register(ComponentAuthCacheCtrlr, VarAuthCacheEnabled, rw("boolean"), "true")
	d.Register(ComponentAuthCacheCtrlr, VarAuthCacheStorage, ro("integer"), "1000")
	d.Register(ComponentAuthCtrlr, VarLocalAuthListEnabled, rw("boolean"), "true")
	d.Register(ComponentAuthCtrlr, VarAuthorizeRemoteStart, rw("boolean"), "false")

	station := ComponentChargingStation
	d.Register(station, VarSupplyPhases, ro("integer"), "3")
	d.Register(station, VarAvailabilityState, ro("string"), "Available")

	custom := ComponentCustomizationCtrlr
	d.Register(custom, VarMaxCustomerInformationDataLength, ro("integer"), "51200")
	d.Register(ComponentTariffCostCtrlr, VarNumberOfDecimalsForCostValues, ro("integer"), "2")
}
