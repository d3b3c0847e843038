package domain

import (
	"regexp"
	"strings"
)

const UploadsPrefix = "/uploads/"

var (
	schemeHostRe    = regexp.MustCompile(`(?i)^https?://[^/]+`)
	uploadsPrefixRe = regexp.MustCompile(`(?i)^/?uploads/?`)
	slashesRe       = regexp.MustCompile(`/{2,}`)
)

// UploadsPath приводит сохранённый путь или URL к виду /uploads/...
func UploadsPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, `\`, "/")
	p = schemeHostRe.ReplaceAllString(p, "")
	p = uploadsPrefixRe.ReplaceAllString(p, "")
	return slashesRe.ReplaceAllString(UploadsPrefix+p, "/")
}

// PhotoPaths фото профиля в порядке показа: photos, extraImages, затем profilePicture.
// Пустые и повторяющиеся пути отбрасываются.
func (u *User) PhotoPaths() []string {
	all := make([]string, 0, len(u.Photos)+len(u.ExtraImages)+1)
	all = append(all, u.Photos...)
	all = append(all, u.ExtraImages...)
	all = append(all, u.ProfilePicture)

	seen := make(map[string]struct{}, len(all))
	out := make([]string, 0, len(all))
	for _, raw := range all {
		p := UploadsPath(raw)
		if p == "" || p == UploadsPrefix {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
