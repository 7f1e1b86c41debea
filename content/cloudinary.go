package content

import (
	"regexp"
	"strings"
)

const (
	cloudinaryHost    = "res.cloudinary.com"
	uploadMarker      = "/upload/"
	displayTransform  = "f_auto,q_auto,c_limit,w_1600"
	fullSizeTransform = "f_auto,q_auto:best,c_limit,w_4000"
)

var reVersion = regexp.MustCompile(`^v\d+$`)

// Variants returns the display, full-size and original URLs for raw.
// Cloudinary delivery URLs get transformation segments; anything else is
// returned unchanged for all three.
func Variants(raw string) (src, full, original string) {
	base, ok := cloudinaryBase(raw)
	if !ok {
		return raw, raw, raw
	}
	return withTransform(base, displayTransform), withTransform(base, fullSizeTransform), base
}

// cloudinaryBase strips existing transformation segments from a Cloudinary
// upload URL.
func cloudinaryBase(raw string) (string, bool) {
	if !strings.Contains(raw, cloudinaryHost) {
		return "", false
	}
	i := strings.Index(raw, uploadMarker)
	if i < 0 {
		return "", false
	}
	prefix, rest := raw[:i+len(uploadMarker)], raw[i+len(uploadMarker):]
	segs := strings.Split(rest, "/")
	for len(segs) > 1 && !reVersion.MatchString(segs[0]) && isTransform(segs[0]) {
		segs = segs[1:]
	}
	return prefix + strings.Join(segs, "/"), true
}

func withTransform(base, transform string) string {
	i := strings.Index(base, uploadMarker)
	return base[:i+len(uploadMarker)] + transform + "/" + base[i+len(uploadMarker):]
}

// isTransform reports whether seg looks like "w_800,c_fill".
func isTransform(seg string) bool {
	for _, part := range strings.Split(seg, ",") {
		k, _, ok := strings.Cut(part, "_")
		if !ok || k == "" || len(k) > 3 {
			return false
		}
	}
	return true
}
