package utils

import (
	"net/url"
	"strings"
)

const (
	// StorageAPIHost is the edge storage API host. Regional zones get a
	// region prefix (e.g. ny.storage.bunnycdn.com).
	StorageAPIHost = "storage.bunnycdn.com"

	// CDNHostSuffix is appended to the storage zone name when no custom
	// hostname is configured.
	CDNHostSuffix = ".b-cdn.net"
)

// SanitizeRemoteKey normalizes a remote object key: forward slashes only,
// no leading slash, no doubled separators.
func SanitizeRemoteKey(key string) string {
	key = strings.TrimSpace(key)
	key = strings.ReplaceAll(key, "\\", "/")
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	return strings.TrimPrefix(key, "/")
}

// BuildStorageURL builds the storage API endpoint for a remote key.
// The region is advisory: when set it selects the regional API host.
func BuildStorageURL(zone, region, key string) string {
	host := StorageAPIHost
	if region != "" {
		host = region + "." + host
	}
	return "https://" + host + "/" + zone + "/" + SanitizeRemoteKey(key)
}

// BuildCDNURL builds the public CDN URL for a remote key. A configured
// custom hostname wins over the default zone hostname; the result always
// carries an explicit scheme and exactly one slash before the key.
func BuildCDNURL(zone, customHostname, key string) string {
	host := customHostname
	if host == "" {
		host = zone + CDNHostSuffix
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return strings.TrimSuffix(host, "/") + "/" + SanitizeRemoteKey(key)
}

// ParseRemoteKey recovers the remote key from a CDN URL. Returns false on
// an unparsable URL or an empty path. Inverse of BuildCDNURL for keys made
// of unreserved path characters.
func ParseRemoteKey(cdnURL string) (string, bool) {
	parsed, err := url.Parse(cdnURL)
	if err != nil {
		return "", false
	}
	key := strings.TrimPrefix(parsed.Path, "/")
	if key == "" {
		return "", false
	}
	return key, true
}
