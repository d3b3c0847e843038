package discover

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/admin/loventia/discover/internal/domain"
	"github.com/google/uuid"
)

const (
	metaErrRequesterUnavailable  = "requester unavailable"
	metaErrCandidatesUnavailable = "candidates unavailable"
)

type candidate struct {
	user          *domain.User
	self          bool
	distance      float64
	distanceKnown bool
}

// Discover выдача кандидатов. Шаги идут строго по порядку: запрашивающий,
// базовая выборка, исключение себя, видимость, dealbreakers, сортировка, страница.
// Неизвестный запрашивающий даёт ErrUnauthorized, остальные сбои хранилища
// превращаются в пустую выдачу с meta.error.
func (s *Service) Discover(ctx context.Context, requesterID uuid.UUID, f domain.DiscoverFilters) (*domain.DiscoverResult, error) {
	now := s.Now()

	sortKey, err := domain.ParseSortKey(string(f.Sort))
	if err != nil {
		return nil, err
	}
	f.Sort = sortKey
	f.MinAge, f.MaxAge = normalizeAgeRange(f.MinAge, f.MaxAge)
	page, limit := s.pagination(f.Page, f.Limit)

	meta := domain.DiscoverMeta{
		IncludeSelf: f.IncludeSelf,
		Page:        page,
		Limit:       limit,
		Sort:        sortKey,
	}

	requester, err := s.UserRepo.GetByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: requester %s not found", domain.ErrUnauthorized, requesterID)
		}
		s.Log.Error("failed to load requester for discover",
			"user_id", requesterID,
			"error", err)
		meta.Error = metaErrRequesterUnavailable
		return &domain.DiscoverResult{Users: []domain.PublicUser{}, Meta: meta}, nil
	}
	requester.Normalize(now)

	db := resolveDealbreakers(requester, f)
	query := s.candidateQuery(requester, f, db, now)

	meta.DealbreakersEnabled = db.enabled
	meta.AppliedMustHavePhoto = db.mustHavePhoto
	meta.AppliedNonSmokerOnly = db.nonSmokerOnly
	meta.AppliedNoDrugs = db.noDrugs
	meta.AppliedPetsOk = db.petsOk
	meta.AppliedDistanceKm = db.distanceKm
	meta.AppliedMinAge = query.MinAge
	meta.AppliedMaxAge = query.MaxAge
	if db.enabled {
		meta.AppliedReligion = db.religion
		meta.AppliedEducation = db.education
	}

	users, err := s.UserRepo.ListCandidates(ctx, query)
	if err != nil {
		s.Log.Error("failed to list discover candidates",
			"user_id", requesterID,
			"error", err)
		meta.Error = metaErrCandidatesUnavailable
		return &domain.DiscoverResult{Users: []domain.PublicUser{}, Meta: meta}, nil
	}

	candidates := make([]candidate, 0, len(users))
	for _, u := range users {
		if u == nil {
			continue
		}
		self := u.ID == requester.ID
		if self && !f.IncludeSelf {
			continue
		}

		// истёкшее временное скрытие снимается при чтении
		u.Normalize(now)
		if !self && domain.ResolveVisibility(u, now).Hidden {
			continue
		}

		c := candidate{user: u, self: self}
		c.distance, c.distanceKnown = domain.CandidateDistance(requester, u)

		// свою карточку dealbreakers не отсекают
		if !self && !db.allows(u, c.distance, c.distanceKnown) {
			continue
		}
		candidates = append(candidates, c)
	}

	sortCandidates(candidates, sortKey)
	meta.Total = len(candidates)

	start, end := pageBounds(page, limit, len(candidates))
	out := make([]domain.PublicUser, 0, end-start)
	for _, c := range candidates[start:end] {
		out = append(out, s.project(ctx, c, now))
	}

	s.Log.Debug("discover served",
		"user_id", requesterID,
		"candidates", len(users),
		"total", meta.Total,
		"returned", len(out),
		"dealbreakers", db.enabled)

	return &domain.DiscoverResult{Users: out, Meta: meta}, nil
}

// candidateQuery базовые фильтры доступны всем тарифам
func (s *Service) candidateQuery(requester *domain.User, f domain.DiscoverFilters, db dealbreakers, now time.Time) domain.CandidateQuery {
	q := domain.CandidateQuery{
		Gender:            f.Gender,
		Orientation:       f.Orientation,
		MinAge:            f.MinAge,
		MaxAge:            f.MaxAge,
		Country:           f.Country,
		Region:            f.Region,
		City:              f.City,
		Smoke:             f.Smoke,
		Drink:             f.Drink,
		Drugs:             f.Drugs,
		PoliticalIdeology: f.PoliticalIdeology,
		Profession:        f.Profession,
		Religion:          f.Religion,
		Education:         f.Education,
		Children:          f.Children,
		Pets:              f.Pets,
		Goal:              f.Goal,
		LookingFor:        f.LookingFor,
		BodyType:          f.BodyType,
		Status:            f.Status,
		Username:          f.Username,
		VisibleAt:         now,
		Sort:              f.Sort,
		ScanLimit:         s.Cfg.CandidateScanLimit,
	}
	id := requester.ID
	if f.IncludeSelf {
		q.SelfID = &id
	} else {
		q.ExcludeID = &id
	}

	// сохранённый возрастной диапазон премиума, если в запросе его нет
	if db.enabled && q.MinAge == nil && q.MaxAge == nil {
		stored := requester.Preferences.Dealbreakers
		q.MinAge, q.MaxAge = normalizeAgeRange(stored.AgeMin, stored.AgeMax)
	}

	if db.distanceKm != nil {
		if center, ok := requester.Location.Coordinates(); ok {
			box := domain.BoundingBoxAround(center, *db.distanceKm)
			q.Box = &box
		}
	}
	return q
}

// normalizeAgeRange зажимает возраст в [18, 120], недостающую границу
// достраивает, перевёрнутый диапазон меняет местами
func normalizeAgeRange(minAge, maxAge *int) (*int, *int) {
	if minAge == nil && maxAge == nil {
		return nil, nil
	}
	lo, hi := domain.MinAllowedAge, domain.MaxAllowedAge
	if minAge != nil {
		lo = clampAge(*minAge)
	}
	if maxAge != nil {
		hi = clampAge(*maxAge)
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return &lo, &hi
}

func clampAge(v int) int {
	if v < domain.MinAllowedAge {
		return domain.MinAllowedAge
	}
	if v > domain.MaxAllowedAge {
		return domain.MaxAllowedAge
	}
	return v
}

func (s *Service) pagination(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = s.Cfg.DefaultLimit
	}
	if limit > s.Cfg.MaxLimit {
		limit = s.Cfg.MaxLimit
	}
	return page, limit
}

// pageBounds границы страницы в [0, total]; номер страницы не умножается,
// пока не ясно, что она существует, иначе большой page переполняет int
func pageBounds(page, limit, total int) (int, int) {
	if page-1 > total/limit {
		return total, total
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := total
	if total-start > limit {
		end = start + limit
	}
	return start, end
}

// sortCandidates ничьи разрешаются по id, отсутствующие значения в конце
func sortCandidates(cs []candidate, key domain.SortKey) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if key != domain.SortDistance {
			return domain.CompareBySort(key, a.user, b.user) < 0
		}
		switch {
		case a.distanceKnown != b.distanceKnown:
			return a.distanceKnown
		case a.distanceKnown && a.distance != b.distance:
			return a.distance < b.distance
		}
		return a.user.ID.String() < b.user.ID.String()
	})
}
