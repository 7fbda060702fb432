// Package category defines the report categories a query can target.
// The category values map 1:1 to backend URL path segments and are part
// of the wire contract: adding a category requires a matching backend
// endpoint on every analysis service.
package category

import "fmt"

// Category is the advertising-entity type a query targets.
type Category string

const (
	Campaign Category = "campaign"
	Creative Category = "creative"
	SiteApp  Category = "siteapp"
)

// Info carries presentation metadata for a category: what to call it,
// what it covers, and an example query shown as a prompt placeholder.
type Info struct {
	Label       string
	Description string
	Placeholder string
}

var infos = map[Category]Info{
	Campaign: {
		Label:       "Campaign Analysis",
		Description: "Analyze campaign performance, ROI, and optimization opportunities",
		Placeholder: "campaign: summer_sale_2024 last week",
	},
	Creative: {
		Label:       "Creative Analysis",
		Description: "Evaluate creative performance, engagement, and visual impact",
		Placeholder: "creative: banner_v2 this month",
	},
	SiteApp: {
		Label:       "Site/App Analysis",
		Description: "Monitor site and app performance, user behavior, and conversions",
		Placeholder: "siteapp: mobile_app today",
	},
}

// All returns every known category in presentation order.
func All() []Category {
	return []Category{Campaign, Creative, SiteApp}
}

// Parse converts a raw string into a known Category.
func Parse(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown report category: %q", s)
	}
	return c, nil
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := infos[c]
	return ok
}

// PathSegment returns the URL path segment for this category.
func (c Category) PathSegment() string {
	return string(c)
}

// Info returns presentation metadata for this category.
func (c Category) Info() Info {
	return infos[c]
}
