package ics

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var (
	imageExts   = []string{".jpg", ".png", ".webp", ".jpeg"}
	bannerNames = []string{"wallpaper", "banner", "hero", "cover"}
	allowedExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true, ".svg": true}
)

// ImagePicker chooses a poster for each event from the images directory.
type ImagePicker struct {
	Dir string
	// Getenv looks up DEFAULT_IMAGE_<ASSOCIATION>; os.Getenv when nil.
	Getenv func(string) string
}

// Pick returns a root-relative URL ("/images/<name>") or "" when nothing
// fits. Lookup order:
//  1. a CATEGORIES entry "image=<file>" / "img=<file>", or a category equal
//     to an existing file name
//  2. DEFAULT_IMAGE_<ASSOCIATION>
//  3. <association>.{jpg,png,webp,jpeg}, also lower-cased
//  4. wallpaper / banner / hero / cover
//  5. the only image in the directory
func (p ImagePicker) Pick(association string, categories []string) string {
	if p.Dir == "" {
		return ""
	}

	for _, c := range categories {
		low := strings.ToLower(c)
		if strings.HasPrefix(low, "image=") || strings.HasPrefix(low, "img=") {
			_, name, _ := strings.Cut(c, "=")
			if name = strings.TrimSpace(name); p.exists(name) {
				return imageURL(name)
			}
		}
		if p.exists(c) {
			return imageURL(c)
		}
	}

	getenv := p.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if name := getenv("DEFAULT_IMAGE_" + strings.ToUpper(association)); name != "" && p.exists(name) {
		return imageURL(name)
	}

	for _, base := range []string{association, strings.ToLower(association)} {
		for _, ext := range imageExts {
			if p.exists(base + ext) {
				return imageURL(base + ext)
			}
		}
	}

	for _, base := range bannerNames {
		for _, ext := range imageExts {
			if p.exists(base + ext) {
				return imageURL(base + ext)
			}
		}
	}

	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		return ""
	}
	var only string
	for _, e := range entries {
		if e.IsDir() || !allowedExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		if only != "" {
			return ""
		}
		only = e.Name()
	}
	if only != "" {
		return imageURL(only)
	}
	return ""
}

func (p ImagePicker) exists(name string) bool {
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return false
	}
	info, err := os.Stat(filepath.Join(p.Dir, name))
	return err == nil && !info.IsDir()
}

func imageURL(name string) string {
	return "/images/" + url.PathEscape(name)
}
