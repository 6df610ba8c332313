package geo

import (
	"math"
	"sort"

	"marketplace-service/internal/models"
)

// RankByDistance returns the sellers that carry a location, each with its
// distance from origin attached, sorted nearest first. Sellers without a
// location are left out. Ties keep their input order. The input slice is
// not modified.
func RankByDistance(origin models.Coordinate, sellers []models.Seller) []models.Seller {
	type scored struct {
		seller models.Seller
		km     float64
	}

	candidates := make([]scored, 0, len(sellers))
	for _, s := range sellers {
		if s.Location == nil {
			continue
		}
		km := Distance(origin, *s.Location)
		s.Distance = roundKm(km)
		candidates = append(candidates, scored{seller: s, km: km})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].km < candidates[j].km
	})

	ranked := make([]models.Seller, len(candidates))
	for i, c := range candidates {
		ranked[i] = c.seller
	}
	return ranked
}

// Nearby ranks sellers and keeps at most limit of them.
// A non-positive limit keeps everything.
func Nearby(origin models.Coordinate, sellers []models.Seller, limit int) []models.Seller {
	ranked := RankByDistance(origin, sellers)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func roundKm(km float64) float64 {
	return math.Round(km*10) / 10
}
