package domain

import "math"

// EarthRadiusKm средний радиус Земли
const EarthRadiusKm = 6371.0

// GeoPoint точка в градусах
type GeoPoint struct {
	Lat float64
	Lng float64
}

// DistanceKm расстояние по большому кругу (haversine)
func DistanceKm(a, b GeoPoint) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// CandidateDistance расстояние между пользователями; false если у кого-то нет координат
func CandidateDistance(requester, candidate *User) (float64, bool) {
	from, ok := requester.Location.Coordinates()
	if !ok {
		return 0, false
	}
	to, ok := candidate.Location.Coordinates()
	if !ok {
		return 0, false
	}
	return DistanceKm(from, to), true
}

// BoundingBox прямоугольник для предфильтра по индексу
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBoxAround прямоугольник, гарантированно содержащий круг радиуса radiusKm
func BoundingBoxAround(center GeoPoint, radiusKm float64) BoundingBox {
	dLat := radiusKm / EarthRadiusKm * 180 / math.Pi

	box := BoundingBox{
		MinLat: math.Max(-90, center.Lat-dLat),
		MaxLat: math.Min(90, center.Lat+dLat),
		MinLng: -180,
		MaxLng: 180,
	}

	// у полюсов долгота не ограничивает
	if box.MinLat > -90 && box.MaxLat < 90 {
		dLng := dLat / math.Cos(toRad(center.Lat))
		if dLng < 180 {
			box.MinLng = center.Lng - dLng
			box.MaxLng = center.Lng + dLng
		}
	}
	return box
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
