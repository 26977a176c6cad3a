package seed

import "github.com/nomadnest/nomadnest/internal/listing"

// Sample is one demo listing. Images point at the bundled artwork.
type Sample struct {
	Title       string
	Description string
	Location    string
	Country     string
	Price       float64
	Image       string
	Lng         float64
	Lat         float64
}

var Samples = []Sample{
	{
		Title:       "Cozy Beachfront Cottage",
		Description: "Wake up to the sound of waves in this bright cottage a few steps from the sand.",
		Location:    "Malibu",
		Country:     "United States",
		Price:       1500,
		Image:       "/static/images/beach.svg",
		Lng:         -118.7798,
		Lat:         34.0259,
	},
	{
		Title:       "Modern Loft in Downtown",
		Description: "Stylish loft with city views, close to galleries and late night food.",
		Location:    "New York City",
		Country:     "United States",
		Price:       1200,
		Image:       "/static/images/city.svg",
		Lng:         -74.006,
		Lat:         40.7128,
	},
	{
		Title:       "Mountain Retreat",
		Description: "A quiet cabin with a wood stove and trails leaving from the front door.",
		Location:    "Aspen",
		Country:     "United States",
		Price:       1000,
		Image:       "/static/images/mountains.svg",
		Lng:         -106.8175,
		Lat:         39.1911,
	},
	{
		Title:       "Historic Villa in Tuscany",
		Description: "Restored farmhouse among the vineyards with a shaded terrace.",
		Location:    "Florence",
		Country:     "Italy",
		Price:       2500,
		Image:       "/static/images/bridge.svg",
		Lng:         11.2558,
		Lat:         43.7696,
	},
	{
		Title:       "Secluded Treehouse Getaway",
		Description: "Sleep among the canopy in a treehouse reached by a rope bridge.",
		Location:    "Portland",
		Country:     "United States",
		Price:       800,
		Image:       "/static/images/forest.svg",
		Lng:         -122.6765,
		Lat:         45.5231,
	},
	{
		Title:       "Desert Oasis",
		Description: "Adobe house with a private plunge pool and clear night skies.",
		Location:    "Dubai",
		Country:     "United Arab Emirates",
		Price:       3000,
		Image:       "/static/images/desert.svg",
		Lng:         55.2708,
		Lat:         25.2048,
	},
	{
		Title:       "Ski-In/Ski-Out Chalet",
		Description: "Chalet right on the slopes with a sauna and boot warmers.",
		Location:    "Cortina d'Ampezzo",
		Country:     "Italy",
		Price:       3500,
		Image:       "/static/images/snow.svg",
		Lng:         12.1357,
		Lat:         46.5405,
	},
	{
		Title:       "Lakeside Camping Spot",
		Description: "Pitch a tent by the water and borrow the canoe at dawn.",
		Location:    "Lake Tahoe",
		Country:     "United States",
		Price:       300,
		Image:       "/static/images/lake.svg",
		Lng:         -120.0324,
		Lat:         39.0968,
	},
	{
		Title:       "Jungle Eco Lodge",
		Description: "Open air bungalows, howler monkeys and a river swim before breakfast.",
		Location:    "Tulum",
		Country:     "Mexico",
		Price:       900,
		Image:       "/static/images/jungle.svg",
		Lng:         -87.4654,
		Lat:         20.2114,
	},
	{
		Title:       "Vintage Campervan by the Coast",
		Description: "A restored van parked on a cliff road, ready for a slow road trip.",
		Location:    "Big Sur",
		Country:     "United States",
		Price:       450,
		Image:       "/static/images/roadtrip.svg",
		Lng:         -121.8081,
		Lat:         36.2704,
	},
}

func (s Sample) listing() *listing.Listing {
	return &listing.Listing{
		Title:       s.Title,
		Description: s.Description,
		Location:    s.Location,
		Country:     s.Country,
		Price:       s.Price,
		Image:       listing.Image{URL: s.Image},
		Geometry:    &listing.Point{Longitude: s.Lng, Latitude: s.Lat},
	}
}
