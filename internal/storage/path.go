package storage

import (
	"net/url"
	"strings"
)

// ExtractPath recovers the object path inside bucket from a signed, public
// or plain storage URL. It returns "" when the URL does not reference bucket.
func ExtractPath(rawURL, bucket string) string {
	if rawURL == "" || bucket == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	p := parsed.Path

	markers := []string{
		"/object/sign/" + bucket + "/",
		"/object/public/" + bucket + "/",
		"/" + bucket + "/",
	}
	for _, marker := range markers {
		if i := strings.Index(p, marker); i >= 0 {
			return p[i+len(marker):]
		}
	}
	return ""
}
