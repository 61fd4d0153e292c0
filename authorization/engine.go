// Package authorization validates id tokens against the local
// authorization list, the authorization cache and, when online, the CSMS.
package authorization

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"charging_station/devicemodel"
	"charging_station/messages"
	"charging_station/store"
	"charging_station/types"
)

// CsmsAuthorizer performs a synchronous Authorize round trip. It is nil or
// failing while offline.
type CsmsAuthorizer func(token types.IdToken) (types.IdTokenInfo, error)

type Engine struct {
	store *store.Store
	dm    *devicemodel.DeviceModel
	csms  CsmsAuthorizer
	now   func() time.Time
}

func New(st *store.Store, dm *devicemodel.DeviceModel, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{store: st, dm: dm, now: now}
}

// SetCsmsAuthorizer installs the online authorization path.
func (e *Engine) SetCsmsAuthorizer(fn CsmsAuthorizer) { e.csms = fn }

// HashToken derives the cache key for a token.
func HashToken(token types.IdToken) string {
	sum := sha256.Sum256([]byte(string(token.Type) + ":" + token.IdToken))
	return hex.EncodeToString(sum[:])
}

// Authorize resolves a token: local list first, cache second, CSMS last.
func (e *Engine) Authorize(token types.IdToken) types.IdTokenInfo {
	hashed := HashToken(token)
	now := e.now()

	if e.localListEnabled() {
		if info, err := e.store.LocalAuthListEntry(hashed); err == nil {
			if expired(info, now) {
				return types.IdTokenInfo{Status: types.AuthorizationStatusExpired}
			}
			return info
		} else if !errors.Is(err, store.ErrNotFound) {
			log.WithField("error", err).Warn("local auth list lookup failed")
		}
	}

	cacheEnabled := e.cacheEnabled()
	if cacheEnabled {
		if info, err := e.store.CachedAuthorization(hashed, now); err == nil {
			if expired(info, now) {
				return types.IdTokenInfo{Status: types.AuthorizationStatusExpired}
			}
			return info
		} else if !errors.Is(err, store.ErrNotFound) {
			log.WithField("error", err).Warn("auth cache lookup failed")
		}
	}

	if e.csms != nil {
		info, err := e.csms(token)
		if err == nil {
			if cacheEnabled {
				if err := e.store.CacheAuthorization(hashed, info, now); err != nil {
					log.WithField("error", err).Warn("caching authorization failed")
				} else if err := e.store.EvictAuthCacheOverflow(e.cacheCapacity()); err != nil {
					log.WithField("error", err).Warn("auth cache eviction failed")
				}
			}
			return info
		}
		log.WithField("error", err).Warn("online authorization failed")
	}

	return types.IdTokenInfo{Status: types.AuthorizationStatusUnknown}
}

// ClearCache empties the authorization cache.
func (e *Engine) ClearCache() error {
	return e.store.ClearAuthCache()
}

// LocalListVersion reports the installed list version.
func (e *Engine) LocalListVersion() (int, error) {
	return e.store.LocalAuthListVersion()
}

// ApplyLocalList handles a SendLocalList request and returns the OCPP
// update status string.
func (e *Engine) ApplyLocalList(req messages.SendLocalListRequest) string {
	current, err := e.store.LocalAuthListVersion()
	if err != nil {
		log.WithField("error", err).Error("reading local list version failed")
		return "Failed"
	}
	if req.UpdateType == "Differential" && req.VersionNumber <= current {
		return "VersionMismatch"
	}

	switch req.UpdateType {
	case "Full":
		entries := make(map[string]types.IdTokenInfo, len(req.LocalAuthorizationList))
		for _, data := range req.LocalAuthorizationList {
			if data.IdTokenInfo == nil {
				continue
			}
			entries[HashToken(data.IdToken)] = *data.IdTokenInfo
		}
		if err := e.store.ReplaceLocalAuthList(req.VersionNumber, entries); err != nil {
			log.WithField("error", err).Error("replacing local list failed")
			return "Failed"
		}
	case "Differential":
		upserts := make(map[string]types.IdTokenInfo)
		var removals []string
		for _, data := range req.LocalAuthorizationList {
			hashed := HashToken(data.IdToken)
			if data.IdTokenInfo == nil {
				removals = append(removals, hashed)
			} else {
				upserts[hashed] = *data.IdTokenInfo
			}
		}
		if err := e.store.UpdateLocalAuthList(req.VersionNumber, upserts, removals); err != nil {
			log.WithField("error", err).Error("updating local list failed")
			return "Failed"
		}
	default:
		return "Failed"
	}
	return "Accepted"
}

func (e *Engine) localListEnabled() bool {
	return e.dm == nil || e.dm.Bool(devicemodel.ComponentAuthCtrlr, devicemodel.VarLocalAuthListEnabled, true)
}

func (e *Engine) cacheEnabled() bool {
	return e.dm == nil || e.dm.Bool(devicemodel.ComponentAuthCacheCtrlr, devicemodel.VarAuthCacheEnabled, true)
}

func (e *Engine) cacheCapacity() int {
	if e.dm == nil {
		return 1000
	}
	return e.dm.Int(devicemodel.ComponentAuthCacheCtrlr, devicemodel.VarAuthCacheStorage, 1000)
}

func expired(info types.IdTokenInfo, now time.Time) bool {
	return info.CacheExpiryDateTime != nil && info.CacheExpiryDateTime.Before(now)
}
