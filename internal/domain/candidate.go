package domain

import (
	"cmp"
	"strings"
	"time"
)

// Matches проверка базовых фильтров в памяти; повторяет условия SQL-выборки
func (q CandidateQuery) Matches(u *User) bool {
	if q.ExcludeID != nil && u.ID == *q.ExcludeID {
		return false
	}
	if !q.VisibleAt.IsZero() && !(q.SelfID != nil && u.ID == *q.SelfID) && HiddenAt(u, q.VisibleAt) {
		return false
	}

	eq := []struct{ want, got string }{
		{q.Gender, u.Gender},
		{q.Country, u.Location.Country},
		{q.Region, u.Location.Region},
		{q.City, u.Location.City},
		{q.PoliticalIdeology, u.PoliticalIdeology},
		{q.Religion, u.Religion},
		{q.Education, u.Education},
		{q.Children, u.Children},
		{q.Pets, u.Pets},
		{q.Goal, u.Goal},
		{q.LookingFor, u.LookingFor},
		{q.BodyType, u.BodyType},
		{q.Status, u.Status},
	}
	for _, f := range eq {
		if f.want != "" && !equalFold(f.want, f.got) {
			return false
		}
	}

	lifestyle := u.EffectiveLifestyle()
	for _, f := range []struct{ want, got string }{
		{q.Smoke, lifestyle.Smoke},
		{q.Drink, lifestyle.Drink},
		{q.Drugs, lifestyle.Drugs},
	} {
		if f.want != "" && !equalFold(f.want, f.got) {
			return false
		}
	}

	if q.Orientation != "" && !equalFold(q.Orientation, u.Orientation) && !u.OrientationList.Contains(q.Orientation) {
		return false
	}

	if q.Profession != "" && !containsFold(u.Profession, q.Profession) {
		return false
	}
	if q.Username != "" && !containsFold(u.Username, q.Username) {
		return false
	}

	if q.MinAge != nil && (u.Age == nil || *u.Age < *q.MinAge) {
		return false
	}
	if q.MaxAge != nil && (u.Age == nil || *u.Age > *q.MaxAge) {
		return false
	}

	if q.Box != nil {
		p, ok := u.Location.Coordinates()
		if !ok || !q.Box.Contains(p) {
			return false
		}
	}

	return true
}

// CompareBySort порядок кандидатов по ключу сортировки: отрицательное значение
// ставит a раньше b. Пустые значения уходят в конец, ничьи решает id.
// Расстояние здесь не считается, для него хранилище отдаёт порядок recent.
func CompareBySort(key SortKey, a, b *User) int {
	var c int
	switch key {
	case SortNewest:
		c = b.CreatedAt.Compare(a.CreatedAt)
	case SortAgeAsc:
		c = compareMissingLast(a.Age, b.Age, cmp.Compare[int])
	case SortAgeDesc:
		c = compareMissingLast(a.Age, b.Age, func(x, y int) int { return cmp.Compare(y, x) })
	default:
		c = compareMissingLast(a.LastActiveAt, b.LastActiveAt, func(x, y time.Time) int { return y.Compare(x) })
	}
	if c != 0 {
		return c
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}

func compareMissingLast[T any](a, b *T, compare func(x, y T) int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return compare(*a, *b)
}

// Contains точка внутри прямоугольника с учётом перехода через 180-й меридиан
func (b BoundingBox) Contains(p GeoPoint) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	switch {
	case b.MinLng < -180:
		return p.Lng >= b.MinLng+360 || p.Lng <= b.MaxLng
	case b.MaxLng > 180:
		return p.Lng >= b.MinLng || p.Lng <= b.MaxLng-360
	default:
		return p.Lng >= b.MinLng && p.Lng <= b.MaxLng
	}
}

func containsFold(s, sub string) bool {
	return strings.Contains(normalizeValue(s), normalizeValue(sub))
}
