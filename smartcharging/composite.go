package smartcharging

import (
	"math"
	"sort"
	"time"

	"charging_station/devicemodel"
	"charging_station/store"
	"charging_station/types"
)

// Fallback limits for stretches no profile covers.
const (
	defaultLimitAmps  = 48.0
	defaultLimitWatts = 33120.0
	nominalVoltage    = 230.0
)

type resolvedLimit struct {
	limit  float64
	unit   types.ChargingRateUnit
	phases *int
	ok     bool
}

// CompositeSchedule folds the installed profile stack over the window
// [start, start+duration). Output depends only on the stored profiles and
// the requested window.
func (e *Engine) CompositeSchedule(evseID int, start time.Time, durationSeconds int, unit types.ChargingRateUnit) (types.CompositeSchedule, error) {
	if unit == "" {
		unit = types.ChargingRateUnitA
	}
	end := start.Add(time.Duration(durationSeconds) * time.Second)

	stored, err := e.store.ChargingProfiles()
	if err != nil {
		return types.CompositeSchedule{}, err
	}

	var maxProfiles, txProfiles, txDefaultProfiles []store.StoredProfile
	for _, sp := range stored {
		switch sp.Profile.Purpose {
		case types.PurposeChargingStationMax, types.PurposeChargingStationExternalConstraints:
			maxProfiles = append(maxProfiles, sp)
		case types.PurposeTx:
			if sp.EvseID == evseID {
				txProfiles = append(txProfiles, sp)
			}
		case types.PurposeTxDefault:
			if sp.EvseID == evseID || sp.EvseID == 0 {
				txDefaultProfiles = append(txDefaultProfiles, sp)
			}
		}
	}
	byStack(maxProfiles)
	byStack(txProfiles)
	byStack(txDefaultProfiles)

	boundaries := e.collectBoundaries(start, end, maxProfiles, txProfiles, txDefaultProfiles)

	defaultPhases := 3
	if e.dm != nil {
		if p := e.dm.Int(devicemodel.ComponentChargingStation, devicemodel.VarSupplyPhases, 3); p > 0 {
			defaultPhases = p
		}
	}

	var periods []types.ChargingSchedulePeriod
	for i := 0; i < len(boundaries); i++ {
		t := boundaries[i]
		if !t.Before(end) {
			break
		}

		txLimit := e.stackedLimit(txProfiles, t, start)
		if !txLimit.ok {
			txLimit = e.stackedLimit(txDefaultProfiles, t, start)
		}
		capLimit := e.stackedLimit(maxProfiles, t, start)

		limit, phases := combine(txLimit, capLimit, unit, defaultPhases)

		period := types.ChargingSchedulePeriod{
			StartPeriod: int(t.Sub(start) / time.Second),
			Limit:       limit,
		}
		if phases != nil {
			period.NumberPhases = phases
		}
		if n := len(periods); n > 0 && samePeriodValue(periods[n-1], period) {
			continue // coalesce; the previous period extends
		}
		periods = append(periods, period)
	}

	if len(periods) == 0 {
		periods = []types.ChargingSchedulePeriod{{StartPeriod: 0, Limit: noProfileLimit(unit)}}
	}

	return types.CompositeSchedule{
		EvseID:           evseID,
		Duration:         durationSeconds,
		ScheduleStart:    start,
		ChargingRateUnit: unit,
		Periods:          periods,
	}, nil
}

func byStack(profiles []store.StoredProfile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		if profiles[i].Profile.StackLevel != profiles[j].Profile.StackLevel {
			return profiles[i].Profile.StackLevel > profiles[j].Profile.StackLevel
		}
		return profiles[i].Profile.ID < profiles[j].Profile.ID
	})
}

func (e *Engine) collectBoundaries(start, end time.Time, groups ...[]store.StoredProfile) []time.Time {
	set := map[time.Time]bool{start: true}
	add := func(t time.Time) {
		if !t.Before(start) && t.Before(end) {
			set[t] = true
		}
	}
	for _, group := range groups {
		for _, sp := range group {
			if sp.Profile.ValidFrom != nil {
				add(*sp.Profile.ValidFrom)
			}
			if sp.Profile.ValidTo != nil {
				add(*sp.Profile.ValidTo)
			}
			for _, schedule := range sp.Profile.Schedules {
				for _, occStart := range occurrenceStarts(sp.Profile, schedule, start, end) {
					for _, p := range schedule.Periods {
						add(occStart.Add(time.Duration(p.StartPeriod) * time.Second))
					}
					if schedule.Duration != nil {
						add(occStart.Add(time.Duration(*schedule.Duration) * time.Second))
					}
				}
			}
		}
	}
	out := make([]time.Time, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// occurrenceStarts expands a schedule into the occurrence start times that
// can affect the window.
func occurrenceStarts(p types.ChargingProfile, schedule types.ChargingSchedule, windowStart, windowEnd time.Time) []time.Time {
	switch p.Kind {
	case types.ProfileKindRelative:
		// Without a session anchor the schedule is taken relative to the
		// window start.
		return []time.Time{windowStart}
	case types.ProfileKindAbsolute:
		if schedule.StartSchedule == nil {
			return nil
		}
		return []time.Time{*schedule.StartSchedule}
	case types.ProfileKindRecurring:
		if schedule.StartSchedule == nil {
			return nil
		}
		period := 24 * time.Hour
		if p.RecurrencyKind == types.RecurrencyWeekly {
			period = 7 * 24 * time.Hour
		}
		s0 := *schedule.StartSchedule
		var out []time.Time
		if windowStart.After(s0) {
			k := windowStart.Sub(s0) / period
			s0 = s0.Add(k * period)
		}
		for t := s0; t.Before(windowEnd); t = t.Add(period) {
			out = append(out, t)
		}
		return out
	}
	return nil
}

// stackedLimit resolves the highest-stack-level active limit at t within a
// purpose group. Profiles must be sorted by stack level descending.
func (e *Engine) stackedLimit(profiles []store.StoredProfile, t, windowStart time.Time) resolvedLimit {
	for _, sp := range profiles {
		if r := resolveProfile(sp.Profile, t, windowStart); r.ok {
			return r
		}
	}
	return resolvedLimit{}
}

func resolveProfile(p types.ChargingProfile, t, windowStart time.Time) resolvedLimit {
	if p.ValidFrom != nil && t.Before(*p.ValidFrom) {
		return resolvedLimit{}
	}
	if p.ValidTo != nil && !t.Before(*p.ValidTo) {
		return resolvedLimit{}
	}
	for _, schedule := range p.Schedules {
		starts := occurrenceStarts(p, schedule, windowStart, t.Add(time.Second))
		for i := len(starts) - 1; i >= 0; i-- {
			occ := starts[i]
			if t.Before(occ) {
				continue
			}
			offset := int(t.Sub(occ) / time.Second)
			if schedule.Duration != nil && offset >= *schedule.Duration {
				continue
			}
			// Last period whose start has been reached holds the value.
			var active *types.ChargingSchedulePeriod
			for idx := range schedule.Periods {
				if schedule.Periods[idx].StartPeriod <= offset {
					active = &schedule.Periods[idx]
				}
			}
			if active == nil {
				continue
			}
			return resolvedLimit{limit: active.Limit, unit: schedule.ChargingRateUnit, phases: active.NumberPhases, ok: true}
		}
	}
	return resolvedLimit{}
}

// combine picks the minimum of the transaction-side limit and the station
// cap after unit conversion; phases propagate from whichever source set
// the final value.
func combine(tx, ceiling resolvedLimit, unit types.ChargingRateUnit, defaultPhases int) (float64, *int) {
	txVal, capVal := math.Inf(1), math.Inf(1)
	if tx.ok {
		txVal = convertRate(tx.limit, tx.unit, unit, phasesOf(tx, defaultPhases))
	}
	if ceiling.ok {
		capVal = convertRate(ceiling.limit, ceiling.unit, unit, phasesOf(ceiling, defaultPhases))
	}
	switch {
	case !tx.ok && !ceiling.ok:
		return noProfileLimit(unit), nil
	case txVal <= capVal:
		return txVal, tx.phases
	default:
		return capVal, ceiling.phases
	}
}

func phasesOf(r resolvedLimit, fallback int) int {
	if r.phases != nil {
		return *r.phases
	}
	return fallback
}

func convertRate(limit float64, from, to types.ChargingRateUnit, phases int) float64 {
	if from == to || from == "" {
		return limit
	}
	if phases <= 0 {
		phases = 3
	}
	if from == types.ChargingRateUnitA && to == types.ChargingRateUnitW {
		return limit * nominalVoltage * float64(phases)
	}
	return limit / (nominalVoltage * float64(phases))
}

func noProfileLimit(unit types.ChargingRateUnit) float64 {
	if unit == types.ChargingRateUnitW {
		return defaultLimitWatts
	}
	return defaultLimitAmps
}

func samePeriodValue(a, b types.ChargingSchedulePeriod) bool {
	if a.Limit != b.Limit {
		return false
	}
	switch {
	case a.NumberPhases == nil && b.NumberPhases == nil:
		return true
	case a.NumberPhases != nil && b.NumberPhases != nil:
		return *a.NumberPhases == *b.NumberPhases
	}
	return false
}
