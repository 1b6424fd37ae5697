package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeRemoteKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "media/photo.jpg", "media/photo.jpg"},
		{"leading slash", "/media/photo.jpg", "media/photo.jpg"},
		{"backslashes", `media\2024\photo.jpg`, "media/2024/photo.jpg"},
		{"double slashes", "media//photo.jpg", "media/photo.jpg"},
		{"whitespace", "  media/photo.jpg ", "media/photo.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeRemoteKey(tt.in))
		})
	}
}

func TestBuildStorageURL(t *testing.T) {
	assert.Equal(t,
		"https://storage.bunnycdn.com/myzone/media/photo.jpg",
		BuildStorageURL("myzone", "", "media/photo.jpg"))

	assert.Equal(t,
		"https://ny.storage.bunnycdn.com/myzone/media/photo.jpg",
		BuildStorageURL("myzone", "ny", "/media/photo.jpg"))
}

func TestBuildCDNURL(t *testing.T) {
	assert.Equal(t,
		"https://myzone.b-cdn.net/media/photo.jpg",
		BuildCDNURL("myzone", "", "media/photo.jpg"))

	assert.Equal(t,
		"https://cdn.example.com/media/photo.jpg",
		BuildCDNURL("myzone", "cdn.example.com", "media/photo.jpg"))

	// An already schemed hostname is kept as-is.
	assert.Equal(t,
		"http://cdn.example.com/media/photo.jpg",
		BuildCDNURL("myzone", "http://cdn.example.com", "media/photo.jpg"))

	// Exactly one slash between hostname and key.
	assert.Equal(t,
		"https://cdn.example.com/media/photo.jpg",
		BuildCDNURL("myzone", "https://cdn.example.com/", "/media/photo.jpg"))
}

func TestParseRemoteKey(t *testing.T) {
	key, ok := ParseRemoteKey("https://myzone.b-cdn.net/media/photo.jpg")
	require.True(t, ok)
	assert.Equal(t, "media/photo.jpg", key)

	_, ok = ParseRemoteKey("https://myzone.b-cdn.net/")
	assert.False(t, ok)

	_, ok = ParseRemoteKey("https://myzone.b-cdn.net")
	assert.False(t, ok)

	_, ok = ParseRemoteKey("://not a url")
	assert.False(t, ok)
}

func TestCDNURLRoundTrip(t *testing.T) {
	keys := []string{
		"photo.jpg",
		"media/photo.jpg",
		"media/2024/08/some-long-name.webp",
		"a/b/c/d/e",
	}

	for _, key := range keys {
		for _, hostname := range []string{"", "cdn.example.com", "https://cdn.example.com"} {
			parsed, ok := ParseRemoteKey(BuildCDNURL("myzone", hostname, key))
			require.True(t, ok, "key %q hostname %q", key, hostname)
			assert.Equal(t, key, parsed, "key %q hostname %q", key, hostname)
		}
	}
}
