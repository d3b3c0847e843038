package domain

import "time"

// Normalize приводит дублирующиеся legacy и новые поля к одному каноническому
// значению. Вызывается на каждой границе записи и перед чтением в выдаче.
// Возвращает true, если что-то поменялось.
func (u *User) Normalize(now time.Time) bool {
	before := fingerprint(u)

	// координаты -> geoPoint [lng, lat]
	if p, ok := u.Location.Coordinates(); ok {
		u.Location.GeoPoint = []float64{p.Lng, p.Lat}
	} else {
		u.Location.GeoPoint = nil
	}

	u.SetLifestyle(u.EffectiveLifestyle())

	if u.Orientation != "" && !u.OrientationList.Contains(u.Orientation) {
		u.OrientationList = append(u.OrientationList, u.Orientation)
	}

	// видимость: legacy-сигналы поднимаются во вложенный блок, затем обратное зеркало
	if u.IsHidden {
		u.Visibility.IsHidden = true
	}
	if u.Visibility.HiddenUntil == nil && u.HiddenUntil != nil {
		t := *u.HiddenUntil
		u.Visibility.HiddenUntil = &t
	}
	if u.ResumeOnLogin {
		u.Visibility.ResumeOnLogin = true
	}
	u.expireVisibility(now)
	u.syncVisibility()

	switch u.Entitlements.Tier {
	case TierPremium, TierFree:
	default:
		u.Entitlements.Tier = EffectiveTier(u)
	}
	premium := u.Entitlements.Tier == TierPremium
	u.IsPremium = premium
	u.Premium = premium

	if u.Entitlements.Quotas.SuperLikes.Used < 0 {
		u.Entitlements.Quotas.SuperLikes.Used = 0
	}

	u.Rewind.Cap()

	return before != fingerprint(u)
}

type userFingerprint struct {
	lifestyle    Lifestyle
	legacy       Lifestyle
	orientations int
	hidden       bool
	nestedHidden bool
	until        int64
	nestedUntil  int64
	resume       bool
	nestedResume bool
	tier         Tier
	isPremium    bool
	premium      bool
	used         int
	rewindLen    int
	rewindMax    int
}

func fingerprint(u *User) userFingerprint {
	return userFingerprint{
		lifestyle:    u.Lifestyle,
		legacy:       Lifestyle{Smoke: u.Smoke, Drink: u.Drink, Drugs: u.Drugs},
		orientations: len(u.OrientationList),
		hidden:       u.IsHidden,
		nestedHidden: u.Visibility.IsHidden,
		until:        unixOrZero(u.HiddenUntil),
		nestedUntil:  unixOrZero(u.Visibility.HiddenUntil),
		resume:       u.ResumeOnLogin,
		nestedResume: u.Visibility.ResumeOnLogin,
		tier:         u.Entitlements.Tier,
		isPremium:    u.IsPremium,
		premium:      u.Premium,
		used:         u.Entitlements.Quotas.SuperLikes.Used,
		rewindLen:    len(u.Rewind.Stack),
		rewindMax:    u.Rewind.Max,
	}
}

func unixOrZero(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixNano()
}
