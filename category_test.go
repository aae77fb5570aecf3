package usertrace

import "testing"

func TestCategoryString(t *testing.T) {
	tests := []struct {
		category Category
		want     string
	}{
		{CategoryUnknown, "unknown"},
		{CategorySocialMedia, "social_media"},
		{CategoryProgramming, "programming"},
		{CategoryOther, "other"},
		{Category(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if tt.category.String() != tt.want {
				t.Errorf("String() = %v, want %v", tt.category.String(), tt.want)
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Category
		wantErr bool
	}{
		{"exact", "social_media", CategorySocialMedia, false},
		{"mixed case", "Social_Media", CategorySocialMedia, false},
		{"surrounding space", "  blog  ", CategoryBlog, false},
		{"unknown literal", "unknown", CategoryUnknown, false},
		{"bogus", "astrology", CategoryUnknown, true},
		{"empty", "", CategoryUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCategory(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCategory(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCategory(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCategories_RoundTrip(t *testing.T) {
	all := Categories()
	if len(all) == 0 {
		t.Fatal("Categories() returned no categories")
	}

	for _, c := range all {
		if c == CategoryUnknown {
			t.Error("Categories() includes CategoryUnknown")
		}
		parsed, err := ParseCategory(c.String())
		if err != nil {
			t.Errorf("ParseCategory(%q) error = %v", c.String(), err)
			continue
		}
		if parsed != c {
			t.Errorf("ParseCategory(%q) = %v, want %v", c.String(), parsed, c)
		}
	}
}
