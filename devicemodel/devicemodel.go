// Package devicemodel is the typed, component/variable addressed
// configuration store of the station. Writes go through mutability and
// characteristics validation; observers fire after commit.
package devicemodel

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"charging_station/store"
	"charging_station/types"
)

var (
	ErrNotFound     = errors.New("devicemodel: variable not found")
	ErrTypeMismatch = errors.New("devicemodel: value has wrong type")
	ErrReadOnly     = errors.New("devicemodel: variable is read only")
	ErrWriteOnly    = errors.New("devicemodel: variable is write only")
	ErrInvalidValue = errors.New("devicemodel: value rejected by characteristics")
)

// Source tells the model who is writing. Internal writes bypass the
// mutability check.
type Source string

const (
	SourceInternal Source = "Internal"
	SourceCSMS     Source = "CSMS"
)

// Meta describes a registered variable.
type Meta struct {
	Mutability      types.Mutability
	Characteristics *types.VariableCharacteristics
}

// Observer is notified after a committed change.
type Observer func(component, variable string, attribute types.AttributeType, oldValue, newValue string)

type valueKey struct {
	component string
	variable  string
	attribute types.AttributeType
}

type varKey struct {
	component string
	variable  string
}

type DeviceModel struct {
	mu        sync.RWMutex
	store     *store.Store
	values    map[valueKey]string
	meta      map[varKey]Meta
	observers map[varKey][]Observer
	global    []Observer
}

// New loads persisted variables and overlays them on the registered
// defaults.
func New(st *store.Store) (*DeviceModel, error) {
	d := &DeviceModel{
		store:     st,
		values:    make(map[valueKey]string),
		meta:      make(map[varKey]Meta),
		observers: make(map[varKey][]Observer),
	}
	seedControllerDefaults(d)
	if st != nil {
		rows, err := st.Variables()
		if err != nil {
			return nil, fmt.Errorf("load device model: %w", err)
		}
		for _, r := range rows {
			d.values[valueKey{r.Component, r.Variable, types.AttributeType(r.Attribute)}] = r.Value
		}
	}
	return d, nil
}

// Register declares a variable with its metadata and default Actual value.
// A persisted value loaded later wins over the default.
func (d *DeviceModel) Register(component, variable string, meta Meta, defaultValue string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.meta[varKey{component, variable}] = meta
	k := valueKey{component, variable, types.AttributeActual}
	if _, ok := d.values[k]; !ok {
		d.values[k] = defaultValue
	}
}

// Exists reports whether the variable is registered or has a stored value.
func (d *DeviceModel) Exists(component, variable string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, ok := d.meta[varKey{component, variable}]; ok {
		return true
	}
	_, ok := d.values[valueKey{component, variable, types.AttributeActual}]
	return ok
}

// Get reads one attribute value.
func (d *DeviceModel) Get(component, variable string, attribute types.AttributeType) (string, error) {
	if attribute == "" {
		attribute = types.AttributeActual
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	meta, hasMeta := d.meta[varKey{component, variable}]
	if hasMeta && meta.Mutability == types.MutabilityWriteOnly {
		return "", ErrWriteOnly
	}
	v, ok := d.values[valueKey{component, variable, attribute}]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set validates and commits one attribute value. Observers fire after
// commit and only when the value actually changed.
func (d *DeviceModel) Set(component, variable string, attribute types.AttributeType, value string, source Source) error {
	if attribute == "" {
		attribute = types.AttributeActual
	}
	d.mu.Lock()
	k := varKey{component, variable}
	meta, hasMeta := d.meta[k]
	if !hasMeta {
		d.mu.Unlock()
		return ErrNotFound
	}
	if source != SourceInternal && meta.Mutability == types.MutabilityReadOnly {
		d.mu.Unlock()
		return ErrReadOnly
	}
	if err := validateCharacteristics(meta.Characteristics, value); err != nil {
		d.mu.Unlock()
		return err
	}

	vk := valueKey{component, variable, attribute}
	old, had := d.values[vk]
	if had && old == value {
		d.mu.Unlock()
		return nil
	}
	d.values[vk] = value
	observers := append(append([]Observer(nil), d.observers[k]...), d.global...)
	st := d.store
	d.mu.Unlock()

	if st != nil {
		if err := st.SaveVariable(store.VariableRow{
			Component: component, Variable: variable,
			Attribute: string(attribute), Value: value, Source: string(source),
		}); err != nil {
			log.WithFields(log.Fields{"component": component, "variable": variable, "error": err}).
				Error("persisting device model write failed")
		}
	}
	for _, fn := range observers {
		fn(component, variable, attribute, old, value)
	}
	return nil
}

// Observe subscribes to committed changes of one variable.
func (d *DeviceModel) Observe(component, variable string, fn Observer) {
	d.mu.Lock()
	k := varKey{component, variable}
	d.observers[k] = append(d.observers[k], fn)
	d.mu.Unlock()
}

// ObserveAll subscribes to every committed change; used by the monitoring
// engine.
func (d *DeviceModel) ObserveAll(fn Observer) {
	d.mu.Lock()
	d.global = append(d.global, fn)
	d.mu.Unlock()
}

// MetaOf returns the registered metadata of a variable.
func (d *DeviceModel) MetaOf(component, variable string) (Meta, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.meta[varKey{component, variable}]
	return m, ok
}

// Report returns all registered variables with their Actual values, for
// base reports.
func (d *DeviceModel) Report() []types.ReportData {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []types.ReportData
	for k, meta := range d.meta {
		value := d.values[valueKey{k.component, k.variable, types.AttributeActual}]
		if meta.Mutability == types.MutabilityWriteOnly {
			value = ""
		}
		out = append(out, types.ReportData{
			Component: types.Component{Name: k.component},
			Variable:  types.Variable{Name: k.variable},
			VariableAttribute: []types.VariableAttribute{{
				Type: types.AttributeActual, Value: value, Mutability: meta.Mutability,
			}},
			VariableCharacteristics: meta.Characteristics,
		})
	}
	return out
}

func validateCharacteristics(c *types.VariableCharacteristics, value string) error {
	if c == nil {
		return nil
	}
	switch strings.ToLower(c.DataType) {
	case "integer":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return ErrTypeMismatch
		}
		return checkLimits(c, float64(n))
	case "decimal":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return ErrTypeMismatch
		}
		return checkLimits(c, f)
	case "boolean":
		if value != "true" && value != "false" {
			return ErrTypeMismatch
		}
	case "optionlist":
		if c.ValuesList == "" {
			return nil
		}
		for _, option := range strings.Split(c.ValuesList, ",") {
			if strings.TrimSpace(option) == value {
				return nil
			}
		}
		return ErrInvalidValue
	case "memberlist":
		if c.ValuesList == "" {
			return nil
		}
		allowed := make(map[string]bool, 8)
		for _, option := range strings.Split(c.ValuesList, ",") {
			allowed[strings.TrimSpace(option)] = true
		}
		for _, member := range strings.Split(value, ",") {
			if member = strings.TrimSpace(member); member != "" && !allowed[member] {
				return ErrInvalidValue
			}
		}
	}
	return nil
}

func checkLimits(c *types.VariableCharacteristics, v float64) error {
	if c.MinLimit != nil && v < *c.MinLimit {
		return ErrInvalidValue
	}
	if c.MaxLimit != nil && v > *c.MaxLimit {
		return ErrInvalidValue
	}
	return nil
}

// ---- typed getters used across the engine ----

func (d *DeviceModel) Int(component, variable string, fallback int) int {
	v, err := d.Get(component, variable, types.AttributeActual)
	if err != nil {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (d *DeviceModel) Bool(component, variable string, fallback bool) bool {
	v, err := d.Get(component, variable, types.AttributeActual)
	if err != nil {
		return fallback
	}
	return v == "true"
}

func (d *DeviceModel) Float(component, variable string, fallback float64) float64 {
	v, err := d.Get(component, variable, types.AttributeActual)
	if err != nil {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// Seconds reads an integer-seconds variable as a duration.
func (d *DeviceModel) Seconds(component, variable string, fallback time.Duration) time.Duration {
	v, err := d.Get(component, variable, types.AttributeActual)
	if err != nil {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(n) * time.Second
}

// List reads a comma-separated member list.
func (d *DeviceModel) List(component, variable string) []string {
	v, err := d.Get(component, variable, types.AttributeActual)
	if err != nil || v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
