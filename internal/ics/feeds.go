package ics

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"
)

// FeedsFromEnv turns every <SLUG>_ICS=<url> entry of environ into a source
// for association SLUG. Output is sorted by association.
func FeedsFromEnv(environ []string) []Source {
	var out []Source
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasSuffix(k, "_ICS") {
			continue
		}
		slug := strings.TrimSuffix(k, "_ICS")
		if slug == "" || strings.TrimSpace(v) == "" {
			continue
		}
		out = append(out, Source{Association: slug, URL: NormalizeURL(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Association < out[j].Association })
	return out
}

// ParseFeedsFile reads "association=url" lines. Blank lines and lines
// starting with # are ignored. A missing file yields no sources.
func ParseFeedsFile(path string) ([]Source, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []Source
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out = append(out, Source{Association: k, URL: NormalizeURL(v)})
	}
	return out, sc.Err()
}

// MergeSources concatenates the lists, keeping the first source seen for
// each association.
func MergeSources(lists ...[]Source) []Source {
	seen := make(map[string]struct{})
	var out []Source
	for _, list := range lists {
		for _, s := range list {
			if _, dup := seen[s.Association]; dup {
				continue
			}
			seen[s.Association] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
