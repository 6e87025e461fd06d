package playlist

import (
	"net/url"

	"github.com/tvhmux/tvhmux/m3u"
)

// StripParam removes the named query parameter from a URL. The backend
// injects its default streaming profile into every stream URL; removing
// it lets the backend pick the profile at play time. Unparseable URLs
// are returned unchanged.
func StripParam(rawURL, param string) string {
	if param == "" {
		return rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	query := parsed.Query()
	if _, ok := query[param]; !ok {
		return rawURL
	}
	query.Del(param)
	parsed.RawQuery = query.Encode()

	return parsed.String()
}

// InjectAuth appends an auth query parameter unless one is already
// present, so rewritten URLs carry exactly one auth secret.
func InjectAuth(rawURL, secret string) string {
	if secret == "" {
		return rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	query := parsed.Query()
	if _, ok := query["auth"]; ok {
		return rawURL
	}
	query.Set("auth", secret)
	parsed.RawQuery = query.Encode()

	return parsed.String()
}

// rewriteEntry applies the per-channel rewrite steps: strip the profile
// parameter, inject the auth secret, optionally authenticate the icon
// URL, and label the entry with its tag's display name.
func rewriteEntry(e m3u.Entry, tagName, secret, profileParam string, iconAuth bool) m3u.Entry {
	// Entries are value objects; don't mutate the caller's attributes
	e.Attrs = append([]m3u.Attr(nil), e.Attrs...)

	e.URL = InjectAuth(StripParam(e.URL, profileParam), secret)

	if iconAuth {
		if logo, ok := e.Attr("tvg-logo"); ok && logo != "" {
			e.SetAttr("tvg-logo", InjectAuth(logo, secret))
		}
	}

	e.SetAttr("group-title", tagName)

	return e
}
