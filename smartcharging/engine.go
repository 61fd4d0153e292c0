package smartcharging

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"charging_station/devicemodel"
	"charging_station/messages"
	"charging_station/store"
	"charging_station/types"
)

// EvseProvider is the slice of the EVSE manager the engine needs.
type EvseProvider interface {
	Has(evseID int) bool
	ActiveTransactionID(evseID int) (string, bool)
}

type Engine struct {
	store *store.Store
	evses EvseProvider
	dm    *devicemodel.DeviceModel
	now   func() time.Time
}

func New(st *store.Store, evses EvseProvider, dm *devicemodel.DeviceModel, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{store: st, evses: evses, dm: dm, now: now}
}

// Enabled reflects SmartChargingCtrlr.Enabled.
func (e *Engine) Enabled() bool {
	return e.dm == nil || e.dm.Bool(devicemodel.ComponentSmartChargingCtrlr, devicemodel.VarSmartChargingEnabled, true)
}

// ValidateProfile runs the fixed-order admission checks; the first failure
// wins. It is pure with respect to the store: calling it twice on the same
// profile yields the same result.
func (e *Engine) ValidateProfile(evseID int, p types.ChargingProfile) ProfileValidationResult {
	if r := e.validateEvseExists(evseID); !r.IsValid() {
		return r
	}
	if r := e.validateKind(evseID, p); !r.IsValid() {
		return r
	}
	if r := e.validateSchedules(p); !r.IsValid() {
		return r
	}
	switch p.Purpose {
	case types.PurposeTx:
		if r := e.validateTxProfile(evseID, p); !r.IsValid() {
			return r
		}
	case types.PurposeTxDefault:
		if r := e.validateTxDefaultProfile(evseID, p); !r.IsValid() {
			return r
		}
	}
	return e.validateValidityWindow(p)
}

func (e *Engine) validateEvseExists(evseID int) ProfileValidationResult {
	if evseID == 0 || (e.evses != nil && e.evses.Has(evseID)) {
		return ResultValid
	}
	return ResultEvseDoesNotExist
}

func (e *Engine) validateKind(evseID int, p types.ChargingProfile) ProfileValidationResult {
	switch p.Purpose {
	case types.PurposeChargingStationMax:
		if evseID > 0 {
			return ResultChargingStationMaxProfileEvseIdGreaterThanZero
		}
		if p.Kind == types.ProfileKindRelative {
			return ResultChargingStationMaxProfileCannotBeRelative
		}
	case types.PurposeTx:
		if evseID == 0 {
			return ResultTxProfileEvseIdNotGreaterThanZero
		}
	case types.PurposeTxDefault:
	default:
		// ChargingStationExternalConstraints is not installable via
		// SetChargingProfile.
		return ResultInvalidProfileType
	}
	return ResultValid
}

func (e *Engine) validateSchedules(p types.ChargingProfile) ProfileValidationResult {
	requiresStart := p.Kind == types.ProfileKindAbsolute || p.Kind == types.ProfileKindRecurring
	supported := e.supportedRateUnits()

	for _, schedule := range p.Schedules {
		if requiresStart && schedule.StartSchedule == nil {
			return ResultChargingProfileMissingRequiredStartSchedule
		}
		if p.Kind == types.ProfileKindRelative && schedule.StartSchedule != nil {
			return ResultChargingProfileExtraneousStartSchedule
		}
		if len(schedule.Periods) == 0 {
			return ResultChargingProfileNoChargingSchedulePeriods
		}
		if schedule.Periods[0].StartPeriod != 0 {
			return ResultChargingProfileFirstStartScheduleIsNotZero
		}
		for i := 1; i < len(schedule.Periods); i++ {
			if schedule.Periods[i].StartPeriod <= schedule.Periods[i-1].StartPeriod {
				return ResultChargingSchedulePeriodsOutOfOrder
			}
		}
		if !supported[schedule.ChargingRateUnit] {
			return ResultChargingScheduleChargingRateUnitUnsupported
		}
		if r := e.validatePhases(schedule); !r.IsValid() {
			return r
		}
	}
	return ResultValid
}

func (e *Engine) validatePhases(schedule types.ChargingSchedule) ProfileValidationResult {
	supplyPhases := 3
	acSwitching := false
	if e.dm != nil {
		supplyPhases = e.dm.Int(devicemodel.ComponentChargingStation, devicemodel.VarSupplyPhases, 3)
		acSwitching = e.dm.Bool(devicemodel.ComponentSmartChargingCtrlr, devicemodel.VarACPhaseSwitchingSupported, false)
	}
	dc := supplyPhases == 0

	for _, period := range schedule.Periods {
		if dc {
			if period.NumberPhases != nil || period.PhaseToUse != nil {
				return ResultChargingSchedulePeriodExtraneousPhaseValues
			}
			continue
		}
		if period.PhaseToUse != nil {
			if period.NumberPhases == nil || *period.NumberPhases != 1 {
				return ResultChargingSchedulePeriodInvalidPhaseToUse
			}
			if !acSwitching {
				return ResultChargingSchedulePeriodPhaseToUseACPhaseSwitchingUnsupported
			}
		}
		if period.NumberPhases != nil && *period.NumberPhases > supplyPhases {
			return ResultChargingSchedulePeriodUnsupportedNumberPhases
		}
	}
	return ResultValid
}

func (e *Engine) validateTxProfile(evseID int, p types.ChargingProfile) ProfileValidationResult {
	if p.TransactionID == "" {
		return ResultTxProfileMissingTransactionId
	}
	activeID, ok := e.evses.ActiveTransactionID(evseID)
	if !ok {
		return ResultTxProfileEvseHasNoActiveTransaction
	}
	if activeID != p.TransactionID {
		return ResultTxProfileTransactionNotOnEvse
	}
	stored, err := e.store.ChargingProfiles()
	if err != nil {
		log.WithField("error", err).Error("loading profiles for Tx conflict check failed")
		return ResultValid
	}
	for _, sp := range stored {
		if sp.Profile.ID == p.ID {
			continue
		}
		if sp.Profile.Purpose == types.PurposeTx &&
			sp.Profile.TransactionID == p.TransactionID &&
			sp.Profile.StackLevel == p.StackLevel {
			return ResultTxProfileConflictingStackLevel
		}
	}
	return ResultValid
}

// validateTxDefaultProfile applies K01.FR.52/53: a TxDefault on a specific
// EVSE conflicts with a station-wide TxDefault of the same stack level,
// and vice versa.
func (e *Engine) validateTxDefaultProfile(evseID int, p types.ChargingProfile) ProfileValidationResult {
	stored, err := e.store.ChargingProfiles()
	if err != nil {
		log.WithField("error", err).Error("loading profiles for TxDefault conflict check failed")
		return ResultValid
	}
	for _, sp := range stored {
		if sp.Profile.ID == p.ID || sp.Profile.Purpose != types.PurposeTxDefault {
			continue
		}
		if sp.Profile.StackLevel != p.StackLevel {
			continue
		}
		crossScope := (evseID == 0 && sp.EvseID > 0) || (evseID > 0 && sp.EvseID == 0)
		if crossScope {
			return ResultDuplicateTxDefaultProfileFound
		}
	}
	return ResultValid
}

func (e *Engine) validateValidityWindow(p types.ChargingProfile) ProfileValidationResult {
	stored, err := e.store.ChargingProfiles()
	if err != nil {
		log.WithField("error", err).Error("loading profiles for validity check failed")
		return ResultValid
	}
	for _, sp := range stored {
		if sp.Profile.ID == p.ID {
			continue
		}
		if sp.Profile.Purpose != p.Purpose || sp.Profile.StackLevel != p.StackLevel {
			continue
		}
		if windowsOverlap(p.ValidFrom, p.ValidTo, sp.Profile.ValidFrom, sp.Profile.ValidTo) {
			return ResultDuplicateProfileValidityPeriod
		}
	}
	return ResultValid
}

// windowsOverlap treats a missing bound as open-ended.
func windowsOverlap(aFrom, aTo, bFrom, bTo *time.Time) bool {
	if aTo != nil && bFrom != nil && !aTo.After(*bFrom) {
		return false
	}
	if bTo != nil && aFrom != nil && !bTo.After(*aFrom) {
		return false
	}
	return true
}

func (e *Engine) supportedRateUnits() map[types.ChargingRateUnit]bool {
	units := map[types.ChargingRateUnit]bool{}
	var list []string
	if e.dm != nil {
		list = e.dm.List(devicemodel.ComponentSmartChargingCtrlr, devicemodel.VarChargingScheduleChargingRateUnit)
	}
	if len(list) == 0 {
		list = []string{"A", "W"}
	}
	for _, u := range list {
		units[types.ChargingRateUnit(u)] = true
	}
	return units
}

// ---- installation and queries ----

// InstallProfile validates and, on success, persists a profile.
func (e *Engine) InstallProfile(evseID int, p types.ChargingProfile) ProfileValidationResult {
	result := e.ValidateProfile(evseID, p)
	if !result.IsValid() {
		return result
	}
	if err := e.store.SaveChargingProfile(evseID, p); err != nil {
		log.WithFields(log.Fields{"profile": p.ID, "error": err}).Error("persisting charging profile failed")
	}
	return ResultValid
}

// ClearProfiles removes profiles by id or by criteria, returning how many
// were removed.
func (e *Engine) ClearProfiles(req messages.ClearChargingProfileRequest) (int, error) {
	if req.ChargingProfileID != nil {
		ok, err := e.store.DeleteChargingProfile(*req.ChargingProfileID)
		if err != nil {
			return 0, err
		}
		if ok {
			return 1, nil
		}
		return 0, nil
	}

	stored, err := e.store.ChargingProfiles()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, sp := range stored {
		if req.Criteria != nil {
			c := req.Criteria
			if c.EvseID != nil && sp.EvseID != *c.EvseID {
				continue
			}
			if c.Purpose != nil && sp.Profile.Purpose != *c.Purpose {
				continue
			}
			if c.StackLevel != nil && sp.Profile.StackLevel != *c.StackLevel {
				continue
			}
		}
		// External constraints are never cleared by the CSMS.
		if sp.Profile.Purpose == types.PurposeChargingStationExternalConstraints {
			continue
		}
		ok, err := e.store.DeleteChargingProfile(sp.Profile.ID)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// TransactionFinished drops the TxProfiles of a closed transaction.
func (e *Engine) TransactionFinished(transactionID string) {
	if err := e.store.DeleteChargingProfilesForTransaction(transactionID); err != nil {
		log.WithFields(log.Fields{"transaction": transactionID, "error": err}).
			Warn("dropping transaction profiles failed")
	}
}

// Profiles returns stored profiles matching the report criteria.
func (e *Engine) Profiles(req messages.GetChargingProfilesRequest) ([]store.StoredProfile, error) {
	stored, err := e.store.ChargingProfiles()
	if err != nil {
		return nil, err
	}
	var out []store.StoredProfile
	for _, sp := range stored {
		if req.EvseID != nil && sp.EvseID != *req.EvseID {
			continue
		}
		c := req.ChargingProfile
		if c.Purpose != nil && sp.Profile.Purpose != *c.Purpose {
			continue
		}
		if c.StackLevel != nil && sp.Profile.StackLevel != *c.StackLevel {
			continue
		}
		if len(c.ProfileIDs) > 0 && !containsInt(c.ProfileIDs, sp.Profile.ID) {
			continue
		}
		out = append(out, sp)
	}
	return out, nil
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer for logging of validation results.
func (r ProfileValidationResult) String() string { return string(r) }

var _ fmt.Stringer = ResultValid
