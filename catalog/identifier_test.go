package catalog

import "testing"

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{"bare channel id", "UCuAXFkgsw1L7xaCfnd5JJOw", "UCuAXFkgsw1L7xaCfnd5JJOw", true},
		{"bare id with spaces", "  UC123  ", "UC123", true},
		{"handle", "@kidsclub", "@kidsclub", true},
		{"channel URL", "https://www.youtube.com/channel/UC123", "UC123", true},
		{"channel URL other host", "https://example.com/channel/UC123", "UC123", true},
		{"channel URL trailing slash", "https://www.youtube.com/channel/UC123/", "UC123", true},
		{"channel URL with query", "https://www.youtube.com/channel/UC123?sub_confirmation=1", "UC123", true},
		{"channel URL videos tab", "https://www.youtube.com/channel/UC123/videos", "UC123", true},
		{"handle URL", "https://www.youtube.com/@kidsclub", "@kidsclub", true},
		{"handle URL videos tab", "http://youtube.com/@kidsclub/videos", "@kidsclub", true},
		{"uppercase scheme", "HTTPS://www.youtube.com/@kidsclub", "@kidsclub", true},
		{"empty", "", "", false},
		{"whitespace", "   ", "", false},
		{"bare at", "@", "", false},
		{"watch URL", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "", false},
		{"custom URL", "https://www.youtube.com/c/SomeName", "", false},
		{"channel URL without id", "https://www.youtube.com/channel/", "", false},
		{"handle URL without name", "https://www.youtube.com/@", "", false},
		{"text with spaces", "my favourite channel", "", false},
		{"relative path", "channel/UC123", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseIdentifier(tt.raw)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseIdentifier(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIsHandle(t *testing.T) {
	if !IsHandle("@kidsclub") {
		t.Error("IsHandle(@kidsclub) = false")
	}
	if IsHandle("UC123") {
		t.Error("IsHandle(UC123) = true")
	}
}
