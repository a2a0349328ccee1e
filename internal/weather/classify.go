package weather

import "strings"

var descriptorCategories = map[string]Category{
	"thunderstorm": CategoryCritical,
	"tornado":      CategoryCritical,
	"squall":       CategoryCritical,
	"ash":          CategoryCritical,

	"snow": CategorySevere,
	"sand": CategorySevere,
	"dust": CategorySevere,

	"rain":    CategoryModerate,
	"drizzle": CategoryModerate,
	"mist":    CategoryModerate,
	"fog":     CategoryModerate,
	"haze":    CategoryModerate,
	"smoke":   CategoryModerate,

	"clear":  CategoryGood,
	"clouds": CategoryGood,
}

// Classify maps a provider descriptor to a severity category. Empty or
// unrecognised descriptors are treated as good weather.
func Classify(descriptor string) Category {
	if cat, ok := descriptorCategories[strings.ToLower(strings.TrimSpace(descriptor))]; ok {
		return cat
	}
	return CategoryGood
}
