package geo

import (
	"strings"

	"marketplace-service/internal/models"
)

// city centers accepted for manual location entry, keyed by lower-case name
var cityCenters = map[string]models.Coordinate{
	"mumbai":     {Latitude: 19.07, Longitude: 72.87},
	"delhi":      {Latitude: 28.6139, Longitude: 77.2090},
	"new delhi":  {Latitude: 28.6139, Longitude: 77.2090},
	"bangalore":  {Latitude: 12.9716, Longitude: 77.5946},
	"bengaluru":  {Latitude: 12.9716, Longitude: 77.5946},
	"hyderabad":  {Latitude: 17.3850, Longitude: 78.4867},
	"chennai":    {Latitude: 13.0827, Longitude: 80.2707},
	"kolkata":    {Latitude: 22.5726, Longitude: 88.3639},
	"pune":       {Latitude: 18.5204, Longitude: 73.8567},
	"ahmedabad":  {Latitude: 23.0225, Longitude: 72.5714},
	"jaipur":     {Latitude: 26.9124, Longitude: 75.7873},
	"lucknow":    {Latitude: 26.8467, Longitude: 80.9462},
	"surat":      {Latitude: 21.1702, Longitude: 72.8311},
	"kochi":      {Latitude: 9.9312, Longitude: 76.2673},
	"chandigarh": {Latitude: 30.7333, Longitude: 76.7794},
	"indore":     {Latitude: 22.7196, Longitude: 75.8577},
	"nagpur":     {Latitude: 21.1458, Longitude: 79.0882},
}

var exampleCities = []string{"Mumbai", "Delhi", "Bangalore", "Chennai", "Kolkata"}

// ResolveCity looks up a city center by name, ignoring case and surrounding
// whitespace. There is no fuzzy matching.
func ResolveCity(name string) (models.Coordinate, bool) {
	c, ok := cityCenters[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// ExampleCities returns a few names accepted by ResolveCity, for hints
func ExampleCities() []string {
	out := make([]string, len(exampleCities))
	copy(out, exampleCities)
	return out
}
