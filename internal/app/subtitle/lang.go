// Package subtitle discovers sidecar subtitle languages, tracks a cyclable
// language preference with a time-to-live, and applies it against the render
// engine's live track list.
package subtitle

import (
	"path/filepath"
	"sort"
	"strings"
)

const maxLangTokenLen = 16

// ExtractLang infers a language tag from a subtitle sidecar filename:
// "movie.en.srt" -> "en", "movie.pt-BR.vtt" -> "pt-br". The token is the
// last dot-segment of the stem; it must start with a 2-3 letter language
// part, contain only alphanumeric hyphen-joined parts, and stay short.
// Non-matching filenames return ("", false) and are simply skipped.
func ExtractLang(path string) (string, bool) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	i := strings.LastIndex(stem, ".")
	if i < 0 {
		return "", false
	}
	tok := strings.ToLower(strings.TrimSpace(stem[i+1:]))
	if tok == "" {
		return "", false
	}
	tok = strings.ReplaceAll(tok, "_", "-")
	if len(tok) > maxLangTokenLen {
		return "", false
	}

	parts := strings.Split(tok, "-")
	for _, part := range parts {
		if part == "" || !isAlnum(part) {
			return "", false
		}
	}

	first := parts[0]
	if len(first) < 2 || len(first) > 3 || !isAlpha(first) {
		return "", false
	}
	return tok, true
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// DiscoverLanguages extracts the language tags of the given sidecar files,
// deduplicated and in stable sorted order.
func DiscoverLanguages(sidecars []string) []string {
	seen := make(map[string]struct{})
	var langs []string
	for _, p := range sidecars {
		lang, ok := ExtractLang(p)
		if !ok {
			continue
		}
		if _, dup := seen[lang]; dup {
			continue
		}
		seen[lang] = struct{}{}
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// MergePreferences combines the configured preference order with discovered
// languages: configured entries first, discovered extras appended, all
// lowercase, first occurrence wins. An empty result falls back to a fixed
// built-in default.
func MergePreferences(configured, discovered []string) []string {
	var merged []string
	seen := make(map[string]struct{})

	add := func(lang string) {
		lang = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(lang)), "_", "-")
		if lang == "" {
			return
		}
		if _, dup := seen[lang]; dup {
			return
		}
		seen[lang] = struct{}{}
		merged = append(merged, lang)
	}

	for _, l := range configured {
		add(l)
	}
	for _, l := range discovered {
		add(l)
	}

	if len(merged) == 0 {
		merged = []string{"nl", "en"}
	}
	return merged
}
