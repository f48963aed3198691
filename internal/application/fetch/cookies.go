package fetch

import (
	"strings"
	"sync"
)

// CookieJar accumulates Set-Cookie values for one scrape session.
type CookieJar struct {
	mu    sync.Mutex
	order []string
	vals  map[string]string
}

func NewCookieJar() *CookieJar {
	return &CookieJar{vals: map[string]string{}}
}

// Merge folds a Set-Cookie header into the jar. Comma-joined headers are split
// only where the comma starts a new name=value pair, so Expires dates survive.
func (j *CookieJar) Merge(setCookie string) {
	if setCookie == "" {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.vals == nil {
		j.vals = map[string]string{}
	}
	for _, part := range splitSetCookie(setCookie) {
		nameValue := strings.TrimSpace(part)
		if i := strings.IndexByte(nameValue, ';'); i >= 0 {
			nameValue = nameValue[:i]
		}
		name, value := nameValue, ""
		if i := strings.IndexByte(nameValue, '='); i >= 0 {
			name, value = nameValue[:i], nameValue[i+1:]
		}
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if name == "" {
			continue
		}
		if _, ok := j.vals[name]; !ok {
			j.order = append(j.order, name)
		}
		j.vals[name] = value
	}
}

// String renders "k=v; k2=v2" in first-seen order.
func (j *CookieJar) String() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	parts := make([]string, 0, len(j.order))
	for _, k := range j.order {
		parts = append(parts, k+"="+j.vals[k])
	}
	return strings.Join(parts, "; ")
}

func splitSetCookie(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' && startsPair(s[i+1:]) {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// startsPair reports whether s begins with `[^;]+=[^;]+`.
func startsPair(s string) bool {
	seg := s
	if i := strings.IndexByte(seg, ';'); i >= 0 {
		seg = seg[:i]
	}
	for i := 1; i < len(seg)-1; i++ {
		if seg[i] == '=' {
			return true
		}
	}
	return false
}
