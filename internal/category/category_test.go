package category_test

import (
	"testing"

	"github.com/adlens/adlens/internal/category"
)

func TestParse(t *testing.T) {
	for _, c := range category.All() {
		got, err := category.Parse(string(c))
		if err != nil || got != c {
			t.Errorf("Parse(%q) = %q, %v", c, got, err)
		}
	}

	for _, bad := range []string{"", "Campaign", "video", "site-app"} {
		if _, err := category.Parse(bad); err == nil {
			t.Errorf("Parse(%q) should fail", bad)
		}
	}
}

func TestInfo(t *testing.T) {
	for _, c := range category.All() {
		info := c.Info()
		if info.Label == "" || info.Description == "" || info.Placeholder == "" {
			t.Errorf("Info(%s) has empty fields: %+v", c, info)
		}
	}
}

func TestPathSegment(t *testing.T) {
	if got := category.SiteApp.PathSegment(); got != "siteapp" {
		t.Errorf("PathSegment() = %q, want siteapp", got)
	}
}
