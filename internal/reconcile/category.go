package reconcile

import "strings"

// Categories assigned to local-only detections.
const (
	CategoryPerson     = "Person"
	CategoryAnimal     = "Animal"
	CategoryVehicle    = "Vehicle"
	CategoryFurniture  = "Furniture"
	CategoryTechnology = "Technology"
	CategoryFood       = "Food"
	CategoryObject     = "Object"
	CategoryScene      = "Scene"
)

type categoryKeyword struct {
	keyword  string
	category string
}

// categoryTable maps detector vocabulary to categories. Keywords are matched as
// substrings of the lower-cased label and the longest hit wins, so "hot dog"
// is Food even though it contains "dog".
var categoryTable = []categoryKeyword{
	{"person", CategoryPerson},
	{"people", CategoryPerson},
	{"man", CategoryPerson},
	{"woman", CategoryPerson},
	{"child", CategoryPerson},
	{"boy", CategoryPerson},
	{"girl", CategoryPerson},
	{"baby", CategoryPerson},
	{"human", CategoryPerson},
	{"face", CategoryPerson},

	{"dog", CategoryAnimal},
	{"cat", CategoryAnimal},
	{"bird", CategoryAnimal},
	{"horse", CategoryAnimal},
	{"sheep", CategoryAnimal},
	{"cow", CategoryAnimal},
	{"elephant", CategoryAnimal},
	{"bear", CategoryAnimal},
	{"zebra", CategoryAnimal},
	{"giraffe", CategoryAnimal},
	{"fish", CategoryAnimal},
	{"animal", CategoryAnimal},

	{"car", CategoryVehicle},
	{"truck", CategoryVehicle},
	{"bus", CategoryVehicle},
	{"motorcycle", CategoryVehicle},
	{"bicycle", CategoryVehicle},
	{"bike", CategoryVehicle},
	{"train", CategoryVehicle},
	{"airplane", CategoryVehicle},
	{"boat", CategoryVehicle},
	{"van", CategoryVehicle},
	{"vehicle", CategoryVehicle},

	{"chair", CategoryFurniture},
	{"couch", CategoryFurniture},
	{"sofa", CategoryFurniture},
	{"bed", CategoryFurniture},
	{"table", CategoryFurniture},
	{"dining table", CategoryFurniture},
	{"desk", CategoryFurniture},
	{"bench", CategoryFurniture},
	{"shelf", CategoryFurniture},
	{"furniture", CategoryFurniture},

	{"laptop", CategoryTechnology},
	{"tv", CategoryTechnology},
	{"television", CategoryTechnology},
	{"phone", CategoryTechnology},
	{"cell phone", CategoryTechnology},
	{"keyboard", CategoryTechnology},
	{"mouse", CategoryTechnology},
	{"remote", CategoryTechnology},
	{"computer", CategoryTechnology},
	{"monitor", CategoryTechnology},
	{"tablet", CategoryTechnology},
	{"camera", CategoryTechnology},

	{"banana", CategoryFood},
	{"apple", CategoryFood},
	{"orange", CategoryFood},
	{"sandwich", CategoryFood},
	{"broccoli", CategoryFood},
	{"carrot", CategoryFood},
	{"hot dog", CategoryFood},
	{"pizza", CategoryFood},
	{"donut", CategoryFood},
	{"cake", CategoryFood},
	{"fruit", CategoryFood},
	{"food", CategoryFood},
}

// Categorize derives a category from a detector label. Unknown labels are Object.
func Categorize(label string) string {
	l := strings.ToLower(strings.TrimSpace(label))
	best, bestLen := CategoryObject, 0
	for _, kw := range categoryTable {
		if len(kw.keyword) > bestLen && strings.Contains(l, kw.keyword) {
			best, bestLen = kw.category, len(kw.keyword)
		}
	}
	return best
}
