package listing

import "strings"

// Category is a filter bar entry. A listing falls into it when its text
// contains one of Terms.
type Category struct {
	Key   string
	Label string
	Icon  string
	Terms []string
}

const trendingKey = "trending"

// categories is ordered: the first match wins when classifying.
var categories = []Category{
	{Key: "rooms", Label: "Rooms", Icon: "fa-bed", Terms: []string{"room"}},
	{Key: "pools", Label: "Pools", Icon: "fa-person-swimming", Terms: []string{"pool"}},
	{Key: "mountains", Label: "Mountains", Icon: "fa-mountain", Terms: []string{"mountain", "alpine"}},
	{Key: "camping", Label: "Camping", Icon: "fa-campground", Terms: []string{"camp", "glamp"}},
	{Key: "arctic", Label: "Arctic", Icon: "fa-snowflake", Terms: []string{"arctic", "snow", "ice"}},
	{Key: "skiing", Label: "Skiing", Icon: "fa-person-skiing", Terms: []string{"ski"}},
	{Key: "campervan", Label: "Campervan", Icon: "fa-van-shuttle", Terms: []string{"campervan", "rv", "van"}},
	{Key: "hills", Label: "Hills", Icon: "fa-mountain-sun", Terms: []string{"hill", "hills"}},
	{Key: "castles", Label: "Castles", Icon: "fa-chess-rook", Terms: []string{"castle", "historic"}},
	{Key: "luxe", Label: "Luxe", Icon: "fa-gem", Terms: []string{"luxe", "luxury", "penthouse"}},
	{Key: "cruise", Label: "Cruise", Icon: "fa-ship", Terms: []string{"cruise", "island", "beachfront"}},
	{Key: trendingKey, Label: "Trending", Icon: "fa-fire"},
}

// Categories returns the filter bar entries in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Classify returns the first category with a term contained in text,
// ignoring case, and trending when none matches.
func Classify(text string) Category {
	lower := strings.ToLower(text)
	for _, c := range categories {
		for _, term := range c.Terms {
			if strings.Contains(lower, term) {
				return c
			}
		}
	}
	return categories[len(categories)-1]
}

// CategoryByKey looks up a category by its URL key.
func CategoryByKey(key string) (Category, bool) {
	for _, c := range categories {
		if c.Key == key {
			return c, true
		}
	}
	return Category{}, false
}
