package places

import "math"

const (
	earthRadiusKm = 6371.0
	kmPerMile     = 0.621371
)

// DistanceMiles computes the great-circle distance between two coordinates
// using the haversine formula, rounded to one decimal mile.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	miles := earthRadiusKm * c * kmPerMile
	return math.Round(miles*10) / 10
}
