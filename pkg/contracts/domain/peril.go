package domain

import (
	"strings"
)

// PerilCategory is a coarse classification of a loss cause.
type PerilCategory string

const (
	PerilEarthquake      PerilCategory = "earthquake"
	PerilMaliciousDamage PerilCategory = "malicious_damage"
	PerilFire            PerilCategory = "fire"
	PerilFlood           PerilCategory = "flood"
	PerilExplosion       PerilCategory = "explosion"
	PerilWindstorm       PerilCategory = "windstorm"
	PerilTheft           PerilCategory = "theft"
	PerilOther           PerilCategory = "other"
)

// perilMarkers maps cause-description substrings to categories. Cedant
// submissions arrive in Spanish or English, so both sets of markers are
// matched. Order matters: the first category with a matching marker wins.
var perilMarkers = []struct {
	category PerilCategory
	markers  []string
}{
	{PerilEarthquake, []string{"sism", "terremoto", "earthquake", "quake"}},
	{PerilMaliciousDamage, []string{"miner", "malic", "vandalismo", "vandal", "sabot"}},
	{PerilFire, []string{"incendio", "fuego", "fire"}},
	{PerilFlood, []string{"inundacion", "inundación", "agua", "lluvia", "flood", "water"}},
	{PerilExplosion, []string{"explosion", "explosión"}},
	{PerilWindstorm, []string{"viento", "huracan", "huracán", "wind", "hurricane", "storm"}},
	{PerilTheft, []string{"robo", "hurto", "theft", "burglary"}},
}

// ClassifyPeril maps a free-text loss cause to a peril category.
func ClassifyPeril(cause string) PerilCategory {
	lower := strings.ToLower(cause)
	for _, entry := range perilMarkers {
		for _, marker := range entry.markers {
			if strings.Contains(lower, marker) {
				return entry.category
			}
		}
	}
	return PerilOther
}
