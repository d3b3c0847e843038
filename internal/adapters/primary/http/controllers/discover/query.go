package discover

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/admin/loventia/discover/internal/domain"
)

// parseFilters разбирает query-параметры выдачи. Пустое значение равно отсутствию.
func parseFilters(q url.Values) (domain.DiscoverFilters, error) {
	f := domain.DiscoverFilters{
		Gender:            get(q, "gender"),
		Orientation:       get(q, "orientation"),
		Country:           get(q, "country"),
		Region:            get(q, "region"),
		City:              get(q, "city"),
		Smoke:             get(q, "smoke"),
		Drink:             get(q, "drink"),
		Drugs:             get(q, "drugs"),
		PoliticalIdeology: get(q, "politicalIdeology"),
		Profession:        get(q, "profession"),
		Religion:          get(q, "religion"),
		Education:         get(q, "education"),
		Children:          get(q, "children"),
		Pets:              get(q, "pets"),
		Goal:              get(q, "goal", "goals"),
		LookingFor:        get(q, "lookingFor"),
		BodyType:          get(q, "bodyType"),
		Status:            get(q, "status"),
		Username:          get(q, "username"),
		IncludeSelf:       truthy(get(q, "includeSelf")),
		WithMeta:          truthy(get(q, "withMeta")),
		Sort:              domain.SortKey(get(q, "sort")),
	}

	var err error
	if f.MinAge, err = optInt(q, "minAge"); err != nil {
		return f, err
	}
	if f.MaxAge, err = optInt(q, "maxAge"); err != nil {
		return f, err
	}
	if f.DistanceKm, err = optFloat(q, "distanceKm"); err != nil {
		return f, err
	}

	f.MustHavePhoto = optBool(q, "mustHavePhoto")
	f.NonSmokerOnly = optBool(q, "nonSmokerOnly")
	f.NoDrugs = optBool(q, "noDrugs")
	f.PetsOk = optBool(q, "petsOk")

	page, err := optInt(q, "page")
	if err != nil {
		return f, err
	}
	if page != nil {
		f.Page = *page
	}
	limit, err := optInt(q, "limit")
	if err != nil {
		return f, err
	}
	if limit != nil {
		f.Limit = *limit
	}

	return f, nil
}

// get первое непустое значение среди имён (алиасов)
func get(q url.Values, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

func truthy(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func optBool(q url.Values, name string) *bool {
	if !q.Has(name) {
		return nil
	}
	b := truthy(strings.TrimSpace(q.Get(name)))
	return &b
}

func optInt(q url.Values, name string) (*int, error) {
	raw := get(q, name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, domain.NewValidationError(name, "must be an integer")
	}
	return &n, nil
}

func optFloat(q url.Values, name string) (*float64, error) {
	raw := get(q, name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, domain.NewValidationError(name, "must be a number")
	}
	// ParseFloat принимает NaN и Inf, в JSON они не сериализуются
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, domain.NewValidationError(name, "must be a finite number")
	}
	return &n, nil
}
