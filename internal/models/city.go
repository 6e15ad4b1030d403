package models

// City identifies one of the fixed set of city communities.
type City string

// Supported cities. Feeds, chat rooms, and personas are partitioned by city.
const (
	CitySF     City = "sf"
	CityNYC    City = "nyc"
	CityAustin City = "austin"
)

// Cities lists every supported city in display order.
func Cities() []City {
	return []City{CitySF, CityNYC, CityAustin}
}

// Valid reports whether the city is part of the supported set.
func (c City) Valid() bool {
	switch c {
	case CitySF, CityNYC, CityAustin:
		return true
	}
	return false
}

// DisplayName returns the full city name used in user-facing text.
func (c City) DisplayName() string {
	switch c {
	case CitySF:
		return "San Francisco"
	case CityNYC:
		return "New York City"
	case CityAustin:
		return "Austin"
	}
	return string(c)
}
