package authorization

import (
	"errors"
	"testing"
	"time"

	"charging_station/messages"
	"charging_station/store"
	"charging_station/types"
)

func fixedNow() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func newEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	st, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st, nil, fixedNow), st
}

func tok(id string) types.IdToken {
	return types.IdToken{IdToken: id, Type: types.IdTokenTypeISO14443}
}

func TestUnknownTokenWhileOffline(t *testing.T) {
	e, _ := newEngine(t)
	info := e.Authorize(tok("T1"))
	if info.Status != types.AuthorizationStatusUnknown {
		t.Fatalf("expected Unknown, got %s", info.Status)
	}
}

func TestLocalListHitWinsOverCsms(t *testing.T) {
	e, st := newEngine(t)
	err := st.ReplaceLocalAuthList(1, map[string]types.IdTokenInfo{
		HashToken(tok("T1")): {Status: types.AuthorizationStatusBlocked},
	})
	if err != nil {
		t.Fatalf("seed list: %v", err)
	}
	e.SetCsmsAuthorizer(func(types.IdToken) (types.IdTokenInfo, error) {
		t.Fatal("CSMS consulted despite local list hit")
		return types.IdTokenInfo{}, nil
	})
	info := e.Authorize(tok("T1"))
	if info.Status != types.AuthorizationStatusBlocked {
		t.Fatalf("expected Blocked from local list, got %s", info.Status)
	}
}

func TestCsmsResultIsCached(t *testing.T) {
	e, _ := newEngine(t)
	calls := 0
	e.SetCsmsAuthorizer(func(types.IdToken) (types.IdTokenInfo, error) {
		calls++
		return types.IdTokenInfo{Status: types.AuthorizationStatusAccepted}, nil
	})

	if info := e.Authorize(tok("T1")); info.Status != types.AuthorizationStatusAccepted {
		t.Fatalf("first authorize: %s", info.Status)
	}
	if info := e.Authorize(tok("T1")); info.Status != types.AuthorizationStatusAccepted {
		t.Fatalf("second authorize: %s", info.Status)
	}
	if calls != 1 {
		t.Fatalf("CSMS called %d times, cache miss on second lookup", calls)
	}
}

func TestExpiredCacheEntryReportsExpired(t *testing.T) {
	e, st := newEngine(t)
	past := fixedNow().Add(-time.Hour)
	err := st.CacheAuthorization(HashToken(tok("T1")),
		types.IdTokenInfo{Status: types.AuthorizationStatusAccepted, CacheExpiryDateTime: &past},
		past)
	if err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	info := e.Authorize(tok("T1"))
	if info.Status != types.AuthorizationStatusExpired {
		t.Fatalf("expected Expired, got %s", info.Status)
	}
}

func TestCsmsFailureFallsBackToUnknown(t *testing.T) {
	e, _ := newEngine(t)
	e.SetCsmsAuthorizer(func(types.IdToken) (types.IdTokenInfo, error) {
		return types.IdTokenInfo{}, errors.New("offline")
	})
	if info := e.Authorize(tok("T1")); info.Status != types.AuthorizationStatusUnknown {
		t.Fatalf("expected Unknown, got %s", info.Status)
	}
}

func TestClearCache(t *testing.T) {
	e, _ := newEngine(t)
	calls := 0
	e.SetCsmsAuthorizer(func(types.IdToken) (types.IdTokenInfo, error) {
		calls++
		return types.IdTokenInfo{Status: types.AuthorizationStatusAccepted}, nil
	})
	e.Authorize(tok("T1"))
	if err := e.ClearCache(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	e.Authorize(tok("T1"))
	if calls != 2 {
		t.Fatalf("expected CSMS consulted again after ClearCache, calls=%d", calls)
	}
}

func TestApplyLocalListFullAndDifferential(t *testing.T) {
	e, _ := newEngine(t)

	accepted := types.IdTokenInfo{Status: types.AuthorizationStatusAccepted}
	status := e.ApplyLocalList(messages.SendLocalListRequest{
		VersionNumber: 2,
		UpdateType:    "Full",
		LocalAuthorizationList: []messages.AuthorizationData{
			{IdToken: tok("T1"), IdTokenInfo: &accepted},
			{IdToken: tok("T2"), IdTokenInfo: &accepted},
		},
	})
	if status != "Accepted" {
		t.Fatalf("full update: %s", status)
	}
	if v, _ := e.LocalListVersion(); v != 2 {
		t.Fatalf("version = %d", v)
	}

	// Differential with a stale version is refused.
	status = e.ApplyLocalList(messages.SendLocalListRequest{VersionNumber: 2, UpdateType: "Differential"})
	if status != "VersionMismatch" {
		t.Fatalf("stale differential: %s", status)
	}

	// Entry without token info removes the token.
	status = e.ApplyLocalList(messages.SendLocalListRequest{
		VersionNumber: 3,
		UpdateType:    "Differential",
		LocalAuthorizationList: []messages.AuthorizationData{
			{IdToken: tok("T2")},
		},
	})
	if status != "Accepted" {
		t.Fatalf("differential: %s", status)
	}
	if info := e.Authorize(tok("T2")); info.Status != types.AuthorizationStatusUnknown {
		t.Fatalf("expected T2 removed, got %s", info.Status)
	}
	if info := e.Authorize(tok("T1")); info.Status != types.AuthorizationStatusAccepted {
		t.Fatalf("expected T1 kept, got %s", info.Status)
	}
}
