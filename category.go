package usertrace

import (
	"fmt"
	"strings"
)

// Category classifies the kind of service a [Site] represents.
//
// Categories are used for grouping and filtering sites, e.g. restricting a
// scan to social media platforms via [Pool.Get] with a category predicate.
type Category int

const (
	// CategoryUnknown is the zero value, used when no category was assigned.
	CategoryUnknown Category = iota
	CategorySocialMedia
	CategoryAdult
	CategoryBlog
	CategoryArt
	CategoryProgramming
	CategoryVideo
	CategoryMessaging
	CategoryDating
	CategoryMusic
	CategorySport
	CategoryMemes
	CategoryOffice
	CategoryNews
	CategoryGames
	CategoryLinks
	CategoryOther
)

var categoryNames = map[Category]string{
	CategoryUnknown:     "unknown",
	CategorySocialMedia: "social_media",
	CategoryAdult:       "adult",
	CategoryBlog:        "blog",
	CategoryArt:         "art",
	CategoryProgramming: "programming",
	CategoryVideo:       "video",
	CategoryMessaging:   "messaging",
	CategoryDating:      "dating",
	CategoryMusic:       "music",
	CategorySport:       "sport",
	CategoryMemes:       "memes",
	CategoryOffice:      "office",
	CategoryNews:        "news",
	CategoryGames:       "games",
	CategoryLinks:       "links",
	CategoryOther:       "other",
}

// String returns the lowercase name of the category, or "unknown" for
// values outside the defined range.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return categoryNames[CategoryUnknown]
}

// ParseCategory converts a category name into a [Category] value.
// Matching is case-insensitive; both "social_media" and "Social_Media"
// parse to [CategorySocialMedia].
//
// Returns an error if the name does not correspond to a known category.
func ParseCategory(name string) (Category, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for c, n := range categoryNames {
		if n == needle {
			return c, nil
		}
	}
	return CategoryUnknown, fmt.Errorf("unknown category %q", name)
}

// Categories returns all defined categories in ascending order, excluding
// [CategoryUnknown].
func Categories() []Category {
	all := make([]Category, 0, len(categoryNames)-1)
	for c := CategorySocialMedia; c <= CategoryOther; c++ {
		all = append(all, c)
	}
	return all
}
