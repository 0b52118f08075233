package scraper

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// trackingParams are dropped so the same article shared with different campaigns dedups
var trackingParams = []string{
	"variant", "utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"fbclid", "gclid", "msclkid", "ref", "source", "campaign",
	"_ga", "_gl", "mc_cid", "mc_eid", "yclid",
}

// CanonicalizeURL strips tracking parameters and the fragment
func CanonicalizeURL(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}

	query := parsed.Query()
	for _, param := range trackingParams {
		query.Del(param)
	}
	parsed.RawQuery = query.Encode()
	parsed.Fragment = ""
	return parsed.String()
}

// ContentHash is the hex SHA-256 of the article text, used to catch republished copies
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
