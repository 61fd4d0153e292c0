// Package smartcharging stores charging profiles, validates their
// admission and folds the installed stack into composite schedules.
package smartcharging

// ProfileValidationResult names the exact admission failure; Valid admits.
type ProfileValidationResult string

const (
	ResultValid ProfileValidationResult = "Valid"

	ResultEvseDoesNotExist ProfileValidationResult = "EvseDoesNotExist"
	ResultInvalidProfileType ProfileValidationResult = "InvalidProfileType"

	ResultChargingStationMaxProfileCannotBeRelative      ProfileValidationResult = "ChargingStationMaxProfileCannotBeRelative"
	ResultChargingStationMaxProfileEvseIdGreaterThanZero ProfileValidationResult = "ChargingStationMaxProfileEvseIdGreaterThanZero"

	ResultChargingProfileNoChargingSchedulePeriods     ProfileValidationResult = "ChargingProfileNoChargingSchedulePeriods"
	ResultChargingProfileFirstStartScheduleIsNotZero   ProfileValidationResult = "ChargingProfileFirstStartScheduleIsNotZero"
	ResultChargingProfileMissingRequiredStartSchedule  ProfileValidationResult = "ChargingProfileMissingRequiredStartSchedule"
	ResultChargingProfileExtraneousStartSchedule       ProfileValidationResult = "ChargingProfileExtraneousStartSchedule"
	ResultChargingSchedulePeriodsOutOfOrder            ProfileValidationResult = "ChargingSchedulePeriodsOutOfOrder"
	ResultChargingSchedulePeriodInvalidPhaseToUse      ProfileValidationResult = "ChargingSchedulePeriodInvalidPhaseToUse"
	ResultChargingSchedulePeriodUnsupportedNumberPhases ProfileValidationResult = "ChargingSchedulePeriodUnsupportedNumberPhases"
	ResultChargingSchedulePeriodExtraneousPhaseValues  ProfileValidationResult = "ChargingSchedulePeriodExtraneousPhaseValues"
	ResultChargingSchedulePeriodPhaseToUseACPhaseSwitchingUnsupported ProfileValidationResult = "ChargingSchedulePeriodPhaseToUseACPhaseSwitchingUnsupported"
	ResultChargingScheduleChargingRateUnitUnsupported  ProfileValidationResult = "ChargingScheduleChargingRateUnitUnsupported"

	ResultTxProfileMissingTransactionId       ProfileValidationResult = "TxProfileMissingTransactionId"
	ResultTxProfileEvseIdNotGreaterThanZero   ProfileValidationResult = "TxProfileEvseIdNotGreaterThanZero"
	ResultTxProfileTransactionNotOnEvse       ProfileValidationResult = "TxProfileTransactionNotOnEvse"
	ResultTxProfileEvseHasNoActiveTransaction ProfileValidationResult = "TxProfileEvseHasNoActiveTransaction"
	ResultTxProfileConflictingStackLevel      ProfileValidationResult = "TxProfileConflictingStackLevel"

	ResultDuplicateTxDefaultProfileFound  ProfileValidationResult = "DuplicateTxDefaultProfileFound"
	ResultDuplicateProfileValidityPeriod  ProfileValidationResult = "DuplicateProfileValidityPeriod"
)

// IsValid reports admission.
func (r ProfileValidationResult) IsValid() bool { return r == ResultValid }
