package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrFloat(f float64) *float64    { return &f }

func TestWeekKey(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want string
	}{
		{"mid week", time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC), "2025-W10"},
		{"next monday", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "2025-W11"},
		{"iso year ahead of calendar", time.Date(2024, 12, 30, 8, 0, 0, 0, time.UTC), "2025-W01"},
		{"iso year behind calendar", time.Date(2021, 1, 1, 8, 0, 0, 0, time.UTC), "2020-W53"},
		{"single digit week padded", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "2026-W01"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := WeekKey(tc.at); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestWeekKey_UsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	// понедельник 00:30 по UTC+3 это ещё воскресенье по UTC
	at := time.Date(2025, 3, 10, 0, 30, 0, 0, loc)
	if got := WeekKey(at); got != "2025-W10" {
		t.Fatalf("expected 2025-W10, got %s", got)
	}
}

func TestResolveVisibility(t *testing.T) {
	now := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		user   User
		hidden bool
	}{
		{"visible by default", User{}, false},
		{"legacy flag", User{IsHidden: true}, true},
		{"nested flag", User{Visibility: Visibility{IsHidden: true}}, true},
		{"nested future until", User{Visibility: Visibility{HiddenUntil: ptrTime(now.Add(10 * time.Minute))}}, true},
		{"legacy future until", User{HiddenUntil: ptrTime(now.Add(time.Hour))}, true},
		{"past until", User{Visibility: Visibility{HiddenUntil: ptrTime(now.Add(-time.Minute))}}, false},
		{"status sentinel", User{Status: UserStatusHidden}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := tc.user
			first := ResolveVisibility(&u, now)
			second := ResolveVisibility(&u, now)
			if first.Hidden != tc.hidden {
				t.Fatalf("expected hidden=%v, got %v", tc.hidden, first.Hidden)
			}
			if first.Hidden != second.Hidden {
				t.Fatalf("expected repeated resolve to be stable")
			}
		})
	}
}

func TestHideUnhide_MirrorsLegacyFields(t *testing.T) {
	now := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	u := NewUser("alice", now)

	u.Hide(now, 30*time.Minute, true)
	if !u.IsHidden || !u.Visibility.IsHidden {
		t.Fatalf("expected both flags hidden")
	}
	if u.HiddenUntil == nil || u.Visibility.HiddenUntil == nil || !u.HiddenUntil.Equal(*u.Visibility.HiddenUntil) {
		t.Fatalf("expected hiddenUntil mirrored, got %v / %v", u.HiddenUntil, u.Visibility.HiddenUntil)
	}
	if !u.ResumeOnLogin || !u.Visibility.ResumeOnLogin {
		t.Fatalf("expected resumeOnLogin mirrored")
	}

	u.Unhide()
	if u.IsHidden || u.Visibility.IsHidden || u.HiddenUntil != nil || u.Visibility.HiddenUntil != nil {
		t.Fatalf("expected user fully visible after unhide")
	}
}

func TestNormalize_ExpiresTimedHide(t *testing.T) {
	now := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	u := &User{IsHidden: true, HiddenUntil: ptrTime(now.Add(-time.Minute))}

	if changed := u.Normalize(now); !changed {
		t.Fatalf("expected normalize to report a change")
	}
	if u.IsHidden || u.Visibility.IsHidden || u.HiddenUntil != nil || u.Visibility.HiddenUntil != nil {
		t.Fatalf("expected expired hide to be cleared, got %+v / %+v", u.IsHidden, u.Visibility)
	}
	if ResolveVisibility(u, now).Hidden {
		t.Fatalf("expected user visible after expiry")
	}
}

func TestNormalize_SyncsDerivedFields(t *testing.T) {
	now := time.Now()
	u := &User{
		Orientation: "straight",
		Smoke:       "never",
		Lifestyle:   Lifestyle{Drink: "sometimes"},
		Location:    Location{Latitude: ptrFloat(60.17), Longitude: ptrFloat(24.94)},
		IsPremium:   true,
	}
	u.Normalize(now)

	if len(u.Location.GeoPoint) != 2 || u.Location.GeoPoint[0] != 24.94 || u.Location.GeoPoint[1] != 60.17 {
		t.Fatalf("expected geoPoint [lng, lat], got %v", u.Location.GeoPoint)
	}
	if !u.OrientationList.Contains("straight") {
		t.Fatalf("expected legacy orientation in list, got %v", u.OrientationList)
	}
	if u.Lifestyle.Smoke != "never" || u.Drink != "sometimes" {
		t.Fatalf("expected lifestyle mirrored, got nested=%+v flat=%s/%s", u.Lifestyle, u.Smoke, u.Drink)
	}
	if u.Entitlements.Tier != TierPremium || !u.Premium {
		t.Fatalf("expected legacy premium flag lifted into tier")
	}

	if u.Normalize(now) {
		t.Fatalf("expected second normalize to be a no-op")
	}
}

func TestEntitlements_StartStopRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	policy := DefaultQuotaPolicy()
	u := NewUser("bob", now)
	u.Billing.SubscriptionID = "sub_1"

	policy.StartPremium(u, now)
	if EffectiveTier(u) != TierPremium || !u.IsPremium || !u.Premium {
		t.Fatalf("expected premium after start")
	}
	if !HasFeature(u, FeatureDealbreakers) || !HasFeature(u, FeatureUnlimitedRewinds) {
		t.Fatalf("expected premium features")
	}
	u.Entitlements.Quotas.SuperLikes = QuotaState{Used: 2, WeekKey: "2025-W10"}

	StopPremium(u)
	if u.Entitlements.Features != (Features{}) {
		t.Fatalf("expected all-false features, got %+v", u.Entitlements.Features)
	}
	if u.Entitlements.Quotas.SuperLikes != (QuotaState{Used: 0, WeekKey: ""}) {
		t.Fatalf("expected reset quota, got %+v", u.Entitlements.Quotas.SuperLikes)
	}
	if u.IsPremium || u.Premium || u.Billing.SubscriptionID != "" {
		t.Fatalf("expected legacy flags and subscription cleared")
	}
	if HasFeature(u, FeatureDealbreakers) {
		t.Fatalf("expected dealbreakers locked for free tier")
	}
}

func TestHasFeature_PartialDowngrade(t *testing.T) {
	u := &User{Entitlements: Entitlements{Tier: TierFree, Features: Features{UnlimitedRewinds: true}}}
	if !HasFeature(u, FeatureUnlimitedRewinds) {
		t.Fatalf("expected explicit flag honoured for free tier")
	}
	if HasFeature(u, FeatureDealbreakers) {
		t.Fatalf("expected missing flag to be false")
	}
	if HasFeature(nil, FeatureNoAds) {
		t.Fatalf("expected nil user to have no features")
	}
}

func TestEntitlements_ScanMalformedDegradesToFree(t *testing.T) {
	var e Entitlements
	if err := e.Scan([]byte(`{"tier": 42`)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if e.Tier != TierFree {
		t.Fatalf("expected free tier, got %q", e.Tier)
	}
}

func TestFeatures_LegacyBooleanSuperLikes(t *testing.T) {
	var f Features
	if err := json.Unmarshal([]byte(`{"superLikesPerWeek": true, "noAds": true}`), &f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.SuperLikesPerWeek != DefaultPremiumSuperLikesPerWeek || !f.NoAds {
		t.Fatalf("unexpected features %+v", f)
	}
}

func TestQuota_ExceededAtLimit(t *testing.T) {
	q := QuotaState{Used: 3, WeekKey: "2025-W10"}
	err := q.TryConsume(3, "2025-W10")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected quota exceeded, got %v", err)
	}
	var qe *QuotaExceededError
	if !errors.As(err, &qe) || qe.Limit != 3 || qe.Used != 3 {
		t.Fatalf("unexpected error %v", err)
	}
	if q.Used != 3 {
		t.Fatalf("expected used unchanged, got %d", q.Used)
	}
}

func TestQuota_RolloverResetsBeforeConsume(t *testing.T) {
	q := QuotaState{Used: 3, WeekKey: "2025-W10"}
	if err := q.TryConsume(3, "2025-W11"); err != nil {
		t.Fatalf("expected success after rollover, got %v", err)
	}
	if q.Used != 1 || q.WeekKey != "2025-W11" {
		t.Fatalf("expected {1, 2025-W11}, got %+v", q)
	}
}

func TestQuota_LastOfNAllowed(t *testing.T) {
	q := QuotaState{Used: 2, WeekKey: "2025-W10"}
	if err := q.TryConsume(3, "2025-W10"); err != nil {
		t.Fatalf("expected third of three to pass, got %v", err)
	}
	if q.Used != 3 {
		t.Fatalf("expected used=3, got %d", q.Used)
	}
}

func TestQuota_ZeroLimitDoesNotTouchState(t *testing.T) {
	q := QuotaState{Used: 1, WeekKey: "2025-W09"}
	if err := q.TryConsume(0, "2025-W10"); err == nil {
		t.Fatalf("expected quota exceeded for zero limit")
	}
	if q != (QuotaState{Used: 1, WeekKey: "2025-W09"}) {
		t.Fatalf("expected state untouched, got %+v", q)
	}
}

func TestQuota_Refund(t *testing.T) {
	q := QuotaState{Used: 2, WeekKey: "2025-W10"}
	if q.Refund("2025-W11") {
		t.Fatalf("expected no refund across weeks")
	}
	if !q.Refund("2025-W10") || q.Used != 1 {
		t.Fatalf("expected refund in same week, got %+v", q)
	}
}

func TestRewind_EvictsOldest(t *testing.T) {
	base := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	r := Rewind{Max: 50}
	ids := make([]uuid.UUID, 51)
	for i := range ids {
		ids[i] = uuid.New()
		r.Push(RewindEntry{Type: ActionLike, TargetID: ids[i], CreatedAt: base.Add(time.Duration(i) * time.Second)})
		if len(r.Stack) > r.Max {
			t.Fatalf("stack exceeded max after push %d", i)
		}
	}

	if len(r.Stack) != 50 {
		t.Fatalf("expected 50 entries, got %d", len(r.Stack))
	}
	if r.Stack[0].TargetID != ids[50] {
		t.Fatalf("expected newest first")
	}
	if r.Stack[49].TargetID != ids[1] {
		t.Fatalf("expected oldest entry evicted")
	}
	for _, e := range r.Stack {
		if e.TargetID == ids[0] {
			t.Fatalf("expected first entry evicted")
		}
	}
}

func TestRewind_PopEmpty(t *testing.T) {
	var r Rewind
	if _, ok := r.Pop(); ok {
		t.Fatalf("expected empty pop")
	}
	r.Push(RewindEntry{Type: ActionPass, TargetID: uuid.New()})
	entry, ok := r.Pop()
	if !ok || entry.Type != ActionPass || len(r.Stack) != 0 {
		t.Fatalf("unexpected pop result %+v %v", entry, ok)
	}
}

func TestRewindEntry_AcceptsAliases(t *testing.T) {
	target := uuid.New()
	cases := []string{
		`{"action":"superlike","target":"` + target.String() + `","createdAt":"2025-03-05T12:00:00Z","source":"web"}`,
		`{"type":"superlike","targetUserId":"` + target.String() + `","createdAt":"2025-03-05T12:00:00Z","source":"web"}`,
		`{"action":"superlike","target_id":"` + target.String() + `","createdAt":"2025-03-05T12:00:00Z","source":"web"}`,
	}

	for _, raw := range cases {
		var e RewindEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e.Type != ActionSuperlike || e.TargetID != target {
			t.Fatalf("expected canonical fields, got %+v", e)
		}

		out, err := json.Marshal(e)
		if err != nil {
			t.Fatalf("unexpected marshal error: %v", err)
		}
		var persisted map[string]interface{}
		if err := json.Unmarshal(out, &persisted); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, alias := range []string{"action", "target", "targetUserId", "target_id"} {
			if _, ok := persisted[alias]; ok {
				t.Fatalf("expected alias %s dropped on write", alias)
			}
		}
		if persisted["type"] != "superlike" || persisted["targetId"] != target.String() {
			t.Fatalf("expected canonical names, got %v", persisted)
		}
		if persisted["source"] != "web" {
			t.Fatalf("expected unknown properties preserved, got %v", persisted)
		}
	}
}

func TestDistanceKm_Haversine(t *testing.T) {
	origin := GeoPoint{Lat: 60.0, Lng: 24.0}
	north := func(km float64) GeoPoint {
		return GeoPoint{Lat: origin.Lat + km/EarthRadiusKm*180/math.Pi, Lng: origin.Lng}
	}

	if d := DistanceKm(origin, north(15)); math.Abs(d-15) > 1e-6 {
		t.Fatalf("expected 15km, got %f", d)
	}
	if d := DistanceKm(origin, north(9)); math.Abs(d-9) > 1e-6 {
		t.Fatalf("expected 9km, got %f", d)
	}
	if d := DistanceKm(origin, origin); d != 0 {
		t.Fatalf("expected zero distance, got %f", d)
	}
}

func TestBoundingBoxContainsCircle(t *testing.T) {
	center := GeoPoint{Lat: 60.17, Lng: 24.94}
	box := BoundingBoxAround(center, 10)
	east := GeoPoint{Lat: center.Lat, Lng: center.Lng + 0.17}
	if DistanceKm(center, east) > 10 {
		t.Fatalf("test point should be within radius")
	}
	if east.Lng < box.MinLng || east.Lng > box.MaxLng {
		t.Fatalf("expected bounding box to contain point within radius, box=%+v", box)
	}
}

func TestLifestyleClassifiers(t *testing.T) {
	for _, v := range []string{"no", " Never ", "Non-Smoker", "does not smoke"} {
		if !IsNonSmoker(v) {
			t.Fatalf("expected %q to be non-smoker", v)
		}
	}
	if IsNonSmoker("socially") || IsNonSmoker("") {
		t.Fatalf("expected smoker values rejected")
	}
	if !PetsIntolerant("allergic") || !HasPets("Dogs") || HasPets("allergic") {
		t.Fatalf("unexpected pets classification")
	}
}

func TestRewindEntry_KeepsUndecodableAliases(t *testing.T) {
	raw := `{"action":"like","target":"64f1c2a9e13b2c0012ab34cd","targetId":{"$oid":"64f1c2a9e13b2c0012ab34cd"},"createdAt":"yesterday"}`

	var e RewindEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Type != ActionLike || e.TargetID != uuid.Nil {
		t.Fatalf("expected type decoded and target left empty, got %+v", e)
	}
	for _, key := range []string{"target", "targetId", "createdAt"} {
		if _, ok := e.Extra[key]; !ok {
			t.Fatalf("expected %s kept in extra, got %v", key, e.Extra)
		}
	}

	out, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}
	var persisted map[string]json.RawMessage
	if err := json.Unmarshal(out, &persisted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(persisted["target"]) != `"64f1c2a9e13b2c0012ab34cd"` {
		t.Fatalf("expected legacy target preserved, got %s", persisted["target"])
	}
	if string(persisted["targetId"]) != `{"$oid":"64f1c2a9e13b2c0012ab34cd"}` {
		t.Fatalf("expected nested target preserved, got %s", persisted["targetId"])
	}
	if string(persisted["createdAt"]) != `"yesterday"` {
		t.Fatalf("expected unparsed createdAt preserved, got %s", persisted["createdAt"])
	}
	if string(persisted["type"]) != `"like"` {
		t.Fatalf("expected canonical type, got %s", persisted["type"])
	}
}

func TestHiddenAt(t *testing.T) {
	now := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	past, future := now.Add(-time.Minute), now.Add(time.Minute)

	cases := []struct {
		name   string
		mutate func(u *User)
		want   bool
	}{
		{"visible", func(u *User) {}, false},
		{"legacy flag", func(u *User) { u.IsHidden = true }, true},
		{"nested flag", func(u *User) { u.Visibility.IsHidden = true }, true},
		{"status hidden", func(u *User) { u.Status = UserStatusHidden }, true},
		{"timed hide active", func(u *User) { u.Visibility.HiddenUntil = ptrTime(future) }, true},
		{"timed hide expired", func(u *User) {
			u.Visibility.IsHidden = true
			u.Visibility.HiddenUntil = ptrTime(past)
		}, false},
		{"legacy timed hide expired", func(u *User) {
			u.IsHidden = true
			u.HiddenUntil = ptrTime(past)
		}, false},
		{"nested until wins over legacy", func(u *User) {
			u.IsHidden = true
			u.Visibility.HiddenUntil = ptrTime(past)
			u.HiddenUntil = ptrTime(future)
		}, false},
		{"expired hide keeps status", func(u *User) {
			u.Status = UserStatusHidden
			u.Visibility.HiddenUntil = ptrTime(past)
		}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := NewUser("u", now.Add(-time.Hour))
			tc.mutate(u)
			if got := HiddenAt(u, now); got != tc.want {
				t.Fatalf("expected hidden=%v, got %v", tc.want, got)
			}

			// совпадает с тем, что видит выдача после Normalize
			u.Normalize(now)
			if got := ResolveVisibility(u, now).Hidden; got != tc.want {
				t.Fatalf("expected normalized hidden=%v, got %v", tc.want, got)
			}
		})
	}
}

func TestCompareBySort(t *testing.T) {
	now := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	age := func(v int) *int { return &v }

	young := NewUser("young", now.Add(-time.Hour))
	young.Age = age(20)
	young.LastActiveAt = ptrTime(now.Add(-time.Hour))

	old := NewUser("old", now.Add(-48*time.Hour))
	old.Age = age(50)
	old.LastActiveAt = ptrTime(now)

	unknown := NewUser("unknown", now.Add(-24*time.Hour))

	cases := []struct {
		key SortKey
		a, b *User
		want int
	}{
		{SortAgeAsc, young, old, -1},
		{SortAgeDesc, young, old, 1},
		{SortAgeAsc, unknown, young, 1},
		{SortAgeDesc, unknown, young, 1},
		{SortNewest, young, old, -1},
		{SortRecent, old, young, -1},
		{SortRecent, unknown, young, 1},
		{SortDistance, old, young, -1},
	}

	for _, tc := range cases {
		t.Run(string(tc.key)+" "+tc.a.Username+"-"+tc.b.Username, func(t *testing.T) {
			got := CompareBySort(tc.key, tc.a, tc.b)
			if (got < 0) != (tc.want < 0) || (got > 0) != (tc.want > 0) {
				t.Fatalf("expected sign %d, got %d", tc.want, got)
			}
		})
	}
}

func TestSuperLikeLimit(t *testing.T) {
	policy := DefaultQuotaPolicy()
	now := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		mutate func(u *User)
		want   int
	}{
		{"free", func(u *User) {}, policy.FreeSuperLikesPerWeek},
		{"premium", func(u *User) { policy.StartPremium(u, now) }, policy.PremiumSuperLikesPerWeek},
		{"premium with zero stored", func(u *User) {
			policy.StartPremium(u, now)
			u.Entitlements.Features.SuperLikesPerWeek = 0
		}, 0},
		{"premium with custom stored", func(u *User) {
			policy.StartPremium(u, now)
			u.Entitlements.Features.SuperLikesPerWeek = 9
		}, 9},
		{"legacy premium without features", func(u *User) {
			u.Entitlements.Tier = TierPremium
			u.IsPremium = true
		}, policy.PremiumSuperLikesPerWeek},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := NewUser("u", now)
			tc.mutate(u)
			if got := policy.SuperLikeLimit(u); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}
