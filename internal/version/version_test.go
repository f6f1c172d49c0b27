// ABOUTME: Tests for version constants
// ABOUTME: Ensures version information is defined and the user agent is well formed
package version

import (
	"strings"
	"testing"
)

func TestIdentityDefined(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"Version", Version},
		{"Product", Product},
		{"Manufacturer", Manufacturer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value == "" {
				t.Errorf("%s should not be empty", tt.name)
			}
			if len(tt.value) > 100 {
				t.Errorf("%s is unreasonably long", tt.name)
			}
			for _, placeholder := range []string{"TODO", "FIXME", "XXX", "placeholder"} {
				if tt.value == placeholder {
					t.Errorf("%s should not be placeholder value: %s", tt.name, placeholder)
				}
			}
		})
	}
}

func TestUserAgent(t *testing.T) {
	ua := UserAgent()
	if !strings.HasPrefix(ua, Product+"/") {
		t.Errorf("user agent %q should start with %q", ua, Product+"/")
	}
	if !strings.HasSuffix(ua, Version) {
		t.Errorf("user agent %q should end with version %q", ua, Version)
	}
	if strings.ContainsAny(ua, " \t\n") {
		t.Errorf("user agent %q should not contain whitespace", ua)
	}
}
