package util

import (
	"github.com/gosimple/slug"
)

func SlugifyTitle(title string, maxLength int) string {
	s := slug.Make(title)
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	return s
}

func SafeFilename(title string, maxLength int) string {
	base := SlugifyTitle(title, maxLength)
	if base == "" {
		base = "entry"
	}
	return base
}
