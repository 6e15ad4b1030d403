// Package personas holds the compiled-in catalog of anonymous identities
// handed out at signup. Three fixed personas exist per city; the catalog is
// never mutated at runtime.
package personas

import (
	"fmt"
	"math/rand"

	"github.com/nobody-social/nobody-api/internal/models"
)

// Persona is a fixed, named identity used as a user's anonymous display identity.
type Persona struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Emoji  string      `json:"emoji"`
	Bio    string      `json:"bio"`
	Traits []string    `json:"traits"`
	Topics []string    `json:"topics"`
	City   models.City `json:"city"`
}

var catalog = map[models.City][]Persona{
	models.CitySF: {
		{
			ID:     "sf-artist",
			Name:   "Marina Artist",
			Emoji:  "🎨",
			Bio:    "Discusses the intersection of tech and art, weekend farmers markets, and the best coffee in the Mission.",
			Traits: []string{"creative", "introspective", "passionate"},
			Topics: []string{"art galleries", "coffee culture", "tech meets art", "farmers markets"},
			City:   models.CitySF,
		},
		{
			ID:     "sf-developer",
			Name:   "SOMA Developer",
			Emoji:  "💻",
			Bio:    "Talks about startup life, the latest frameworks, and where to find the best ramen after a late night coding session.",
			Traits: []string{"analytical", "ambitious", "caffeinated"},
			Topics: []string{"startups", "coding", "tech trends", "late night food"},
			City:   models.CitySF,
		},
		{
			ID:     "sf-runner",
			Name:   "Golden Gate Runner",
			Emoji:  "🏃",
			Bio:    "Shares running routes, discusses fog patterns, and debates the best views of the bridge.",
			Traits: []string{"energetic", "outdoorsy", "health-conscious"},
			Topics: []string{"running routes", "weather", "scenic views", "fitness"},
			City:   models.CitySF,
		},
	},
	models.CityNYC: {
		{
			ID:     "nyc-broadway",
			Name:   "Broadway Enthusiast",
			Emoji:  "🎭",
			Bio:    "Debates the best shows, shares theater gossip, and knows every speakeasy in the Theater District.",
			Traits: []string{"dramatic", "cultured", "social"},
			Topics: []string{"theater", "broadway shows", "nightlife", "arts"},
			City:   models.CityNYC,
		},
		{
			ID:     "nyc-foodie",
			Name:   "Brooklyn Foodie",
			Emoji:  "🍕",
			Bio:    "Argues about the best pizza slice, discovers hidden gems in Williamsburg, and tracks food truck locations.",
			Traits: []string{"adventurous", "opinionated", "curious"},
			Topics: []string{"food spots", "pizza debates", "food trucks", "neighborhoods"},
			City:   models.CityNYC,
		},
		{
			ID:     "nyc-finance",
			Name:   "Wall Street Insider",
			Emoji:  "💼",
			Bio:    "Discusses market trends, the best power lunch spots, and how to survive the subway during rush hour.",
			Traits: []string{"ambitious", "fast-paced", "strategic"},
			Topics: []string{"finance", "markets", "business lunch", "commuting"},
			City:   models.CityNYC,
		},
	},
	models.CityAustin: {
		{
			ID:     "austin-musician",
			Name:   "6th Street Musician",
			Emoji:  "🎸",
			Bio:    "Shares the best live music venues, discusses SXSW memories, and knows every taco truck on the East Side.",
			Traits: []string{"laid-back", "creative", "social"},
			Topics: []string{"live music", "SXSW", "venues", "local scene"},
			City:   models.CityAustin,
		},
		{
			ID:     "austin-taco",
			Name:   "Taco Connoisseur",
			Emoji:  "🌮",
			Bio:    "Debates breakfast taco supremacy, shares secret spots, and chronicles the best queso in town.",
			Traits: []string{"passionate", "local", "friendly"},
			Topics: []string{"tacos", "food spots", "breakfast", "tex-mex"},
			City:   models.CityAustin,
		},
		{
			ID:     "austin-tech",
			Name:   "Tech Transplant",
			Emoji:  "🚀",
			Bio:    "Compares Austin to Silicon Valley, discusses the startup scene, and complains about traffic on MoPac.",
			Traits: []string{"analytical", "ambitious", "adaptable"},
			Topics: []string{"tech scene", "startups", "traffic", "city growth"},
			City:   models.CityAustin,
		},
	},
}

// ForCity returns the fixed, ordered persona set for the given city.
func ForCity(city models.City) []Persona {
	set := catalog[city]
	out := make([]Persona, len(set))
	copy(out, set)
	return out
}

// Random picks one of the city's personas uniformly at random.
func Random(city models.City) (Persona, error) {
	set := catalog[city]
	if len(set) == 0 {
		return Persona{}, fmt.Errorf("no personas for city %q", city)
	}
	return set[rand.Intn(len(set))], nil
}

// FindByID looks a persona up across all cities.
func FindByID(id string) (Persona, bool) {
	for _, city := range models.Cities() {
		for _, p := range catalog[city] {
			if p.ID == id {
				return p, true
			}
		}
	}
	return Persona{}, false
}
