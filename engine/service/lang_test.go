package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLang(t *testing.T) {
	t.Run("Should collapse Chinese variants to cn", func(t *testing.T) {
		for _, raw := range []string{"zh", "cn", "zh-CN", "ZH-Hans", "zh-hans-cn", " zh "} {
			assert.Equal(t, LangCN, NormalizeLang(raw), "raw %q", raw)
		}
	})
	t.Run("Should map everything else to en", func(t *testing.T) {
		for _, raw := range []string{"", "en", "en-US", "fr", "de", "zh-hant"} {
			assert.Equal(t, LangEN, NormalizeLang(raw), "raw %q", raw)
		}
	})
	t.Run("Should be idempotent", func(t *testing.T) {
		for _, raw := range []string{"zh", "en", "fr", ""} {
			once := NormalizeLang(raw)
			assert.Equal(t, once, NormalizeLang(once))
		}
	})
}

func TestResolveLang(t *testing.T) {
	t.Run("Should prefer the query value", func(t *testing.T) {
		assert.Equal(t, LangCN, resolveLang("zh", "en"))
	})
	t.Run("Should fall back to the stored language", func(t *testing.T) {
		assert.Equal(t, LangCN, resolveLang("", "cn"))
		assert.Equal(t, LangCN, resolveLang("  ", "zh-cn"))
	})
	t.Run("Should default to en", func(t *testing.T) {
		assert.Equal(t, LangEN, resolveLang("", ""))
	})
}
