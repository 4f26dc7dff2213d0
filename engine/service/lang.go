package service

import "strings"

// Supported languages.
const (
	LangEN = "en"
	LangCN = "cn"
)

// chineseVariants are the query values that resolve to the Chinese engine.
var chineseVariants = map[string]struct{}{
	"zh":         {},
	"cn":         {},
	"zh-cn":      {},
	"zh-hans":    {},
	"zh-hans-cn": {},
}

// NormalizeLang maps any requested language to a supported engine key. The
// mapping is total and idempotent: Chinese variants collapse to "cn",
// everything else to "en".
func NormalizeLang(raw string) string {
	if _, ok := chineseVariants[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return LangCN
	}
	return LangEN
}

// resolveLang picks the effective language: the query value when present,
// else the session's stored language, else English.
func resolveLang(query, stored string) string {
	if strings.TrimSpace(query) != "" {
		return NormalizeLang(query)
	}
	if stored != "" {
		return NormalizeLang(stored)
	}
	return LangEN
}
