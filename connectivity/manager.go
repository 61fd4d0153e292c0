// Package connectivity keeps the ordered list of network profiles and
// decides which one the transport should dial.
package connectivity

import (
	"errors"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Profile is one way of reaching a CSMS, ordered by priority (lower value
// wins).
type Profile struct {
	ConfigurationSlot int
	Priority          int
	SecurityProfile   int
	URI               string
	BasicAuthPassword string
}

var ErrSecurityDowngrade = errors.New("connectivity: security profile downgrade is forbidden")
var ErrNoProfiles = errors.New("connectivity: no network profiles configured")

// Manager owns the profile list and the active slot cursor.
type Manager struct {
	mu       sync.Mutex
	profiles []Profile // sorted by priority
	active   int       // index into profiles
}

func NewManager(profiles []Profile) *Manager {
	m := &Manager{profiles: append([]Profile(nil), profiles...)}
	sort.SliceStable(m.profiles, func(i, j int) bool {
		return m.profiles[i].Priority < m.profiles[j].Priority
	})
	return m
}

// Active returns the profile the transport should currently use.
func (m *Manager) Active() (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.profiles) == 0 {
		return Profile{}, ErrNoProfiles
	}
	return m.profiles[m.active], nil
}

// Advance moves to the next profile after the current one failed its retry
// budget, wrapping around to the highest priority.
func (m *Manager) Advance() (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.profiles) == 0 {
		return Profile{}, ErrNoProfiles
	}
	m.active = (m.active + 1) % len(m.profiles)
	p := m.profiles[m.active]
	log.WithFields(log.Fields{"slot": p.ConfigurationSlot, "uri": p.URI}).
		Info("advancing to next network profile")
	return p, nil
}

// Reset jumps back to the highest-priority profile, done after a
// successful registration.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.active = 0
	m.mu.Unlock()
}

// SetProfile installs or replaces the profile in a configuration slot. A
// lower security profile than the currently active one is refused.
func (m *Manager) SetProfile(p Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.profiles) > 0 && p.SecurityProfile < m.profiles[m.active].SecurityProfile {
		return ErrSecurityDowngrade
	}
	replaced := false
	for i := range m.profiles {
		if m.profiles[i].ConfigurationSlot == p.ConfigurationSlot {
			m.profiles[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		m.profiles = append(m.profiles, p)
	}
	activeSlot := 0
	if len(m.profiles) > 0 {
		activeSlot = m.profiles[m.active].ConfigurationSlot
	}
	sort.SliceStable(m.profiles, func(i, j int) bool {
		return m.profiles[i].Priority < m.profiles[j].Priority
	})
	for i := range m.profiles {
		if m.profiles[i].ConfigurationSlot == activeSlot {
			m.active = i
			break
		}
	}
	return nil
}

// Profiles returns a copy of the configured list in priority order.
func (m *Manager) Profiles() []Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Profile(nil), m.profiles...)
}
