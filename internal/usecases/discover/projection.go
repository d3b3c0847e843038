package discover

import (
	"context"
	"math"
	"time"

	"github.com/admin/loventia/discover/internal/domain"
)

// project публичная карточка: без биллинга, прав, истории rewind,
// legacy-зеркал и точных координат
func (s *Service) project(ctx context.Context, c candidate, now time.Time) domain.PublicUser {
	u := c.user
	lifestyle := u.EffectiveLifestyle()

	pu := domain.PublicUser{
		ID:                u.ID.String(),
		Username:          u.Username,
		Gender:            u.Gender,
		Age:               u.Age,
		Orientation:       u.Orientation,
		OrientationList:   []string(u.OrientationList),
		Religion:          u.Religion,
		Education:         u.Education,
		Profession:        u.Profession,
		PoliticalIdeology: u.PoliticalIdeology,
		Children:          u.Children,
		Pets:              u.Pets,
		Goal:              u.Goal,
		LookingFor:        u.LookingFor,
		BodyType:          u.BodyType,
		Location: domain.Location{
			Country: u.Location.Country,
			Region:  u.Location.Region,
			City:    u.Location.City,
		},
		Lifestyle: lifestyle,
		Photos:    []domain.Photo{},
		Premium:   domain.EffectiveTier(u) == domain.TierPremium,
	}

	paths := u.PhotoPaths()
	for _, p := range paths {
		pu.Photos = append(pu.Photos, domain.Photo{URL: s.photoURL(ctx, p)})
	}
	if pic := domain.UploadsPath(u.ProfilePicture); pic != "" && pic != domain.UploadsPrefix {
		url := s.photoURL(ctx, pic)
		pu.ProfilePicture = &url
	} else if len(pu.Photos) > 0 {
		url := pu.Photos[0].URL
		pu.ProfilePicture = &url
	}

	if c.distanceKnown {
		d := math.Round(c.distance*10) / 10
		pu.DistanceKm = &d
	}
	if u.LastActiveAt != nil {
		ts := u.LastActiveAt.UTC().Format(time.RFC3339)
		pu.LastActiveAt = &ts
	}
	// баннер скрытия видит только сам пользователь
	if c.self {
		state := domain.ResolveVisibility(u, now)
		pu.Visibility = &state
	}
	return pu
}

func (s *Service) photoURL(ctx context.Context, path string) string {
	if s.Photos == nil {
		return path
	}
	return s.Photos.Resolve(ctx, path)
}
