package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
)

// HashContent returns the hex SHA-256 of s. Used as the page fingerprint.
func HashContent(s string) string {
	h := sha256.New()
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

// ToAbsoluteURL converts a relative URL to an absolute URL given a base URL.
// Fragments are dropped so the same document is not reported twice.
func ToAbsoluteURL(base *url.URL, relative string) (string, error) {
	relURL, err := url.Parse(strings.TrimSpace(relative))
	if err != nil {
		return "", err
	}
	abs := base.ResolveReference(relURL)
	abs.Fragment = ""
	return abs.String(), nil
}

// IsPDFURL reports whether the URL path names a PDF document.
func IsPDFURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.EqualFold(path.Ext(u.Path), ".pdf")
}

// FileNameFromURL returns the last path segment of raw, or fallback when the
// segment is empty or does not carry the wanted extension.
func FileNameFromURL(raw, ext, fallback string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return fallback
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" || !strings.EqualFold(path.Ext(name), ext) {
		return fallback
	}
	return name
}

// HostSlug turns the host of raw into a filesystem-friendly token.
func HostSlug(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "page"
	}
	return strings.NewReplacer(".", "_", ":", "_").Replace(u.Host)
}
