package domain

import (
	"encoding/json"
	"time"
)

// Tier тариф пользователя
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// Feature ключ платной функции
type Feature string

const (
	FeatureSeeLikedYou      Feature = "seeLikedYou"
	FeatureSuperLikes       Feature = "superLikesPerWeek"
	FeatureUnlimitedLikes   Feature = "unlimitedLikes"
	FeatureUnlimitedRewinds Feature = "unlimitedRewinds"
	FeatureDealbreakers     Feature = "dealbreakers"
	FeatureQAVisibilityAll  Feature = "qaVisibilityAll"
	FeatureIntrosMessaging  Feature = "introsMessaging"
	FeatureNoAds            Feature = "noAds"
)

// Features флаги функций. SuperLikesPerWeek - единственная числовая квота.
type Features struct {
	SeeLikedYou       bool `json:"seeLikedYou"`
	SuperLikesPerWeek int  `json:"superLikesPerWeek"`
	UnlimitedLikes    bool `json:"unlimitedLikes"`
	UnlimitedRewinds  bool `json:"unlimitedRewinds"`
	Dealbreakers      bool `json:"dealbreakers"`
	QAVisibilityAll   bool `json:"qaVisibilityAll"`
	IntrosMessaging   bool `json:"introsMessaging"`
	NoAds             bool `json:"noAds"`
}

// UnmarshalJSON терпит старые записи, где superLikesPerWeek хранился булевым флагом
func (f *Features) UnmarshalJSON(data []byte) error {
	type plain Features
	var raw struct {
		plain
		SuperLikesPerWeek json.RawMessage `json:"superLikesPerWeek"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = Features(raw.plain)
	f.SuperLikesPerWeek = 0
	if len(raw.SuperLikesPerWeek) == 0 {
		return nil
	}

	var n int
	if err := json.Unmarshal(raw.SuperLikesPerWeek, &n); err == nil {
		f.SuperLikesPerWeek = n
		return nil
	}
	var flag bool
	if err := json.Unmarshal(raw.SuperLikesPerWeek, &flag); err == nil && flag {
		f.SuperLikesPerWeek = DefaultPremiumSuperLikesPerWeek
	}
	return nil
}

// QuotaState счётчик недельной квоты
type QuotaState struct {
	Used    int    `json:"used"`
	WeekKey string `json:"weekKey"`
}

// Quotas все квоты пользователя
type Quotas struct {
	SuperLikes QuotaState `json:"superLikes"`
}

// Entitlements итоговый набор прав пользователя
type Entitlements struct {
	Tier     Tier       `json:"tier"`
	Since    *time.Time `json:"since"`
	Until    *time.Time `json:"until"`
	Features Features   `json:"features"`
	Quotas   Quotas     `json:"quotas"`
}

const (
	DefaultFreeSuperLikesPerWeek    = 0
	DefaultPremiumSuperLikesPerWeek = 5
)

// QuotaPolicy дефолтные значения квот по тарифам
type QuotaPolicy struct {
	FreeSuperLikesPerWeek    int
	PremiumSuperLikesPerWeek int
}

// DefaultQuotaPolicy политика по умолчанию
func DefaultQuotaPolicy() QuotaPolicy {
	return QuotaPolicy{
		FreeSuperLikesPerWeek:    DefaultFreeSuperLikesPerWeek,
		PremiumSuperLikesPerWeek: DefaultPremiumSuperLikesPerWeek,
	}
}

// PremiumFeatures полный набор функций премиума
func (p QuotaPolicy) PremiumFeatures() Features {
	return Features{
		SeeLikedYou:       true,
		SuperLikesPerWeek: p.PremiumSuperLikesPerWeek,
		UnlimitedLikes:    true,
		UnlimitedRewinds:  true,
		Dealbreakers:      true,
		QAVisibilityAll:   true,
		IntrosMessaging:   true,
		NoAds:             true,
	}
}

// SuperLikeLimit лимит суперлайков в неделю. Записанный блок features читается
// как есть, включая 0; дефолт тарифа только для старых записей без features.
func (p QuotaPolicy) SuperLikeLimit(u *User) int {
	if u.Entitlements.Features != (Features{}) {
		return u.Entitlements.Features.SuperLikesPerWeek
	}
	if EffectiveTier(u) == TierPremium {
		return p.PremiumSuperLikesPerWeek
	}
	return p.FreeSuperLikesPerWeek
}

// EffectiveTier тариф с учётом legacy-флагов; отсутствующие или битые данные дают free
func EffectiveTier(u *User) Tier {
	if u == nil {
		return TierFree
	}
	switch u.Entitlements.Tier {
	case TierPremium:
		return TierPremium
	case TierFree:
		return TierFree
	}
	if u.IsPremium || u.Premium {
		return TierPremium
	}
	return TierFree
}

// HasFeature премиум даёт все функции, иначе смотрим явный флаг
func HasFeature(u *User, key Feature) bool {
	if u == nil {
		return false
	}
	if EffectiveTier(u) == TierPremium {
		return true
	}

	f := u.Entitlements.Features
	switch key {
	case FeatureSeeLikedYou:
		return f.SeeLikedYou
	case FeatureSuperLikes:
		return f.SuperLikesPerWeek > 0
	case FeatureUnlimitedLikes:
		return f.UnlimitedLikes
	case FeatureUnlimitedRewinds:
		return f.UnlimitedRewinds
	case FeatureDealbreakers:
		return f.Dealbreakers
	case FeatureQAVisibilityAll:
		return f.QAVisibilityAll
	case FeatureIntrosMessaging:
		return f.IntrosMessaging
	case FeatureNoAds:
		return f.NoAds
	default:
		return false
	}
}

// StartPremium переводит пользователя на премиум, все поля меняются вместе
func (p QuotaPolicy) StartPremium(u *User, now time.Time) {
	since := now
	u.Entitlements = Entitlements{
		Tier:     TierPremium,
		Since:    &since,
		Until:    nil,
		Features: p.PremiumFeatures(),
		Quotas:   Quotas{SuperLikes: QuotaState{Used: 0, WeekKey: ""}},
	}
	u.IsPremium = true
	u.Premium = true
}

// StopPremium возвращает free с нулевыми функциями и квотами и очищает ссылку на подписку
func StopPremium(u *User) {
	u.Entitlements = Entitlements{
		Tier:     TierFree,
		Features: Features{},
		Quotas:   Quotas{SuperLikes: QuotaState{Used: 0, WeekKey: ""}},
	}
	u.IsPremium = false
	u.Premium = false
	u.Billing.SubscriptionID = ""
}

// EntitlementsView права с рассчитанными остатками квот
type EntitlementsView struct {
	Tier       Tier       `json:"tier"`
	Since      *time.Time `json:"since"`
	Until      *time.Time `json:"until"`
	Features   Features   `json:"features"`
	SuperLikes QuotaView  `json:"superLikes"`
}

// View права пользователя на момент now
func (p QuotaPolicy) View(u *User, now time.Time) EntitlementsView {
	week := WeekKey(now)
	limit := p.SuperLikeLimit(u)
	q := u.Entitlements.Quotas.SuperLikes
	used := q.Used
	if q.WeekKey != week {
		used = 0
	}
	return EntitlementsView{
		Tier:     EffectiveTier(u),
		Since:    u.Entitlements.Since,
		Until:    u.Entitlements.Until,
		Features: u.Entitlements.Features,
		SuperLikes: QuotaView{
			Limit:     limit,
			Used:      used,
			Remaining: q.Remaining(limit, week),
			WeekKey:   week,
		},
	}
}
