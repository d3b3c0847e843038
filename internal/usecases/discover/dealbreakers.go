package discover

import (
	"github.com/admin/loventia/discover/internal/domain"
)

// dealbreakers фильтры, реально действующие в этом запросе.
// Явное значение из запроса перекрывает сохранённое в профиле.
type dealbreakers struct {
	enabled       bool
	mustHavePhoto bool
	nonSmokerOnly bool
	noDrugs       bool
	petsOk        *bool
	distanceKm    *float64
	religion      domain.StringList
	education     domain.StringList
}

// resolveDealbreakers без функции dealbreakers фильтр пустой,
// даже если в профиле что-то сохранено
func resolveDealbreakers(requester *domain.User, f domain.DiscoverFilters) dealbreakers {
	if !domain.HasFeature(requester, domain.FeatureDealbreakers) {
		return dealbreakers{}
	}

	stored := requester.Preferences.Dealbreakers
	d := dealbreakers{
		enabled:       true,
		mustHavePhoto: boolOr(f.MustHavePhoto, stored.MustHavePhoto),
		nonSmokerOnly: boolOr(f.NonSmokerOnly, stored.NonSmokerOnly),
		noDrugs:       boolOr(f.NoDrugs, stored.NoDrugs),
		petsOk:        stored.PetsOk,
		distanceKm:    stored.DistanceKm,
		religion:      stored.Religion,
		education:     stored.Education,
	}
	if f.PetsOk != nil {
		d.petsOk = f.PetsOk
	}
	if f.DistanceKm != nil {
		d.distanceKm = f.DistanceKm
	}
	// 0 и меньше - фильтр расстояния выключен
	if d.distanceKm != nil && *d.distanceKm <= 0 {
		d.distanceKm = nil
	}
	return d
}

// allows кандидат проходит все включённые условия (AND).
// distance посчитан заранее; distanceKnown=false - координат нет.
func (d dealbreakers) allows(c *domain.User, distance float64, distanceKnown bool) bool {
	if !d.enabled {
		return true
	}

	if d.distanceKm != nil && (!distanceKnown || distance > *d.distanceKm) {
		return false
	}

	if d.mustHavePhoto && !c.HasPhoto() {
		return false
	}

	lifestyle := c.EffectiveLifestyle()
	if d.nonSmokerOnly && !domain.IsNonSmoker(lifestyle.Smoke) {
		return false
	}
	if d.noDrugs && !domain.IsDrugFree(lifestyle.Drugs) {
		return false
	}

	if d.petsOk != nil {
		if *d.petsOk && domain.PetsIntolerant(c.Pets) {
			return false
		}
		if !*d.petsOk && domain.HasPets(c.Pets) {
			return false
		}
	}

	// незаполненные религия и образование не исключают
	if len(d.religion) > 0 && c.Religion != "" && !d.religion.Contains(c.Religion) {
		return false
	}
	if len(d.education) > 0 && c.Education != "" && !d.education.Contains(c.Education) {
		return false
	}

	return true
}

func boolOr(explicit *bool, fallback bool) bool {
	if explicit != nil {
		return *explicit
	}
	return fallback
}
