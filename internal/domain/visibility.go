package domain

import "time"

// Visibility вложенный блок видимости
type Visibility struct {
	IsHidden      bool       `json:"isHidden"`
	HiddenUntil   *time.Time `json:"hiddenUntil"`
	ResumeOnLogin bool       `json:"resumeOnLogin"`
}

// VisibilityState итоговое состояние видимости
type VisibilityState struct {
	Hidden      bool       `json:"hidden"`
	HiddenUntil *time.Time `json:"hiddenUntil"`
}

// ResolveVisibility объединяет legacy и вложенные поля через OR: пользователь
// никогда не видимее самого строгого сигнала. Чистая функция.
func ResolveVisibility(u *User, now time.Time) VisibilityState {
	until := u.Visibility.HiddenUntil
	if until == nil {
		until = u.HiddenUntil
	} else if u.HiddenUntil != nil && u.HiddenUntil.After(*until) {
		until = u.HiddenUntil
	}

	hidden := u.IsHidden ||
		u.Visibility.IsHidden ||
		(until != nil && until.After(now)) ||
		u.Status == UserStatusHidden

	state := VisibilityState{Hidden: hidden}
	if until != nil && until.After(now) {
		t := *until
		state.HiddenUntil = &t
	}
	return state
}

// HiddenAt скрыт ли пользователь с учётом снятия истёкшего скрытия, то есть
// как после Normalize(now). То же условие выборка кандидатов строит в SQL.
func HiddenAt(u *User, now time.Time) bool {
	until := u.Visibility.HiddenUntil
	if until == nil {
		until = u.HiddenUntil
	}
	if until != nil && !until.After(now) {
		return u.Status == UserStatusHidden
	}
	return ResolveVisibility(u, now).Hidden
}

// Hide скрывает пользователя; duration 0 - бессрочно
func (u *User) Hide(now time.Time, duration time.Duration, resumeOnLogin bool) {
	u.Visibility.IsHidden = true
	u.Visibility.ResumeOnLogin = resumeOnLogin
	u.Visibility.HiddenUntil = nil
	if duration > 0 {
		until := now.Add(duration)
		u.Visibility.HiddenUntil = &until
	}
	if u.Status == UserStatusHidden {
		u.Status = ""
	}
	u.syncVisibility()
}

// Unhide снимает скрытие
func (u *User) Unhide() {
	u.Visibility = Visibility{}
	u.IsHidden = false
	u.HiddenUntil = nil
	u.ResumeOnLogin = false
	if u.Status == UserStatusHidden {
		u.Status = ""
	}
}

// syncVisibility переносит вложенный блок в legacy-поля
func (u *User) syncVisibility() {
	u.IsHidden = u.Visibility.IsHidden
	u.HiddenUntil = u.Visibility.HiddenUntil
	u.ResumeOnLogin = u.Visibility.ResumeOnLogin
}

// expireVisibility снимает истёкшее временное скрытие
func (u *User) expireVisibility(now time.Time) bool {
	if u.Visibility.HiddenUntil == nil || u.Visibility.HiddenUntil.After(now) {
		return false
	}
	u.Visibility.IsHidden = false
	u.Visibility.HiddenUntil = nil
	return true
}
