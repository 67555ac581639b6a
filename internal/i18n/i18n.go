package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

const (
	LocaleZhCN = "zh-CN"
	LocaleEnUS = "en-US"

	// DefaultLocale 未指定语言时的默认语言
	DefaultLocale = LocaleZhCN
)

//go:embed locales/*.json
var localeFS embed.FS

var (
	loadOnce sync.Once
	catalogs map[string]map[string]string
)

func load() {
	catalogs = make(map[string]map[string]string)
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return
	}
	for _, entry := range entries {
		raw, err := localeFS.ReadFile(path.Join("locales", entry.Name()))
		if err != nil {
			continue
		}
		messages := make(map[string]string)
		if err := json.Unmarshal(raw, &messages); err != nil {
			continue
		}
		catalogs[strings.TrimSuffix(entry.Name(), ".json")] = messages
	}
}

// T 翻译消息 key，缺失时回退默认语言，仍缺失则返回 key 本身
func T(locale, key string) string {
	loadOnce.Do(load)
	if msg, ok := catalogs[NormalizeLocale(locale)][key]; ok {
		return msg
	}
	if msg, ok := catalogs[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 翻译并格式化
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}

// NormalizeLocale 归一化语言标识，只支持 zh-CN / en-US
func NormalizeLocale(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(value, "en"):
		return LocaleEnUS
	case strings.HasPrefix(value, "zh"):
		return LocaleZhCN
	default:
		return DefaultLocale
	}
}

// ResolveLocale 从请求解析语言：X-Locale 优先，其次 Accept-Language 第一项
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return DefaultLocale
	}
	if locale := strings.TrimSpace(c.GetHeader("X-Locale")); locale != "" {
		return NormalizeLocale(locale)
	}
	accept := c.GetHeader("Accept-Language")
	if accept == "" {
		return DefaultLocale
	}
	first := strings.SplitN(accept, ",", 2)[0]
	first = strings.SplitN(first, ";", 2)[0]
	return NormalizeLocale(first)
}
