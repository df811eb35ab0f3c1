package validation

import "testing"

func TestValidateDatabaseID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"compact", "13e206acf37d8012b5e4c1f1e7e6391e", true},
		{"dashed", "14d206ac-f37d-8038-8c24-fb4cd9c6b8e3", true},
		{"upper case", "13E206ACF37D8012B5E4C1F1E7E6391E", true},
		{"surrounding spaces", " 13e206acf37d8012b5e4c1f1e7e6391e ", true},
		{"empty", "", false},
		{"too short", "13e206acf37d8012", false},
		{"non hex", "13e206acf37d8012b5e4c1f1e7e6391z", false},
		{"url", "https://notion.so/13e206acf37d8012b5e4c1f1e7e6391e", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateDatabaseID(tt.id); got != tt.want {
				t.Errorf("ValidateDatabaseID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestNormalizeDatabaseID(t *testing.T) {
	got := NormalizeDatabaseID(" 14D206AC-f37d-8038-8c24-fb4cd9c6b8e3")
	want := "14d206acf37d80388c24fb4cd9c6b8e3"
	if got != want {
		t.Errorf("NormalizeDatabaseID() = %q, want %q", got, want)
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantOK  bool
		wantMsg string
	}{
		{"https", "https://api.notion.com", true, ""},
		{"http with path", "http://localhost:8080/external/students", true, ""},
		{"empty", "", false, "URL is required"},
		{"ftp scheme", "ftp://example.com", false, "URL must use http:// or https:// scheme"},
		{"javascript scheme", "javascript:alert(1)", false, "URL must use http:// or https:// scheme"},
		{"missing host", "https://", false, "URL must have a valid host"},
		{"no scheme", "api.notion.com", false, "URL must use http:// or https:// scheme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, msg := ValidateURL(tt.url)
			if ok != tt.wantOK {
				t.Errorf("ValidateURL(%q) ok = %v, want %v", tt.url, ok, tt.wantOK)
			}
			if msg != tt.wantMsg {
				t.Errorf("ValidateURL(%q) msg = %q, want %q", tt.url, msg, tt.wantMsg)
			}
		})
	}
}
