package redirect

import (
	"net/http"
	"strings"
)

const (
	MobilePage  = "/mobile/calendrier.html"
	DesktopPage = "/pc/calendrier.html"
)

// mobileMarkers are user-agent substrings that select the mobile page.
// "like Mac" matches iPhone and iPad ("like Mac OS X").
var mobileMarkers = []string{"Android", "like Mac"}

// IsMobile reports whether the user agent looks like a phone or tablet.
func IsMobile(userAgent string) bool {
	for _, m := range mobileMarkers {
		if strings.Contains(userAgent, m) {
			return true
		}
	}
	return false
}

// Target returns the page the visitor should be sent to, or "" when the
// current path already matches the device.
func Target(userAgent, path string) string {
	if IsMobile(userAgent) {
		if !strings.Contains(path, "mobile") {
			return MobilePage
		}
		return ""
	}
	if !strings.Contains(path, "pc") {
		return DesktopPage
	}
	return ""
}

// Middleware redirects page requests to the device variant. Data, API and
// asset paths pass through untouched.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || !isPage(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if target := Target(r.UserAgent(), r.URL.Path); target != "" {
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isPage(path string) bool {
	switch {
	case path == "/health", path == "/preview.png":
		return false
	case strings.HasPrefix(path, "/api/"), strings.HasPrefix(path, "/images/"):
		return false
	case strings.HasSuffix(path, ".json"):
		return false
	}
	return path == "/" || strings.HasSuffix(path, ".html") || strings.HasSuffix(path, "/")
}
