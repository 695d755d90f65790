package text

import (
	"strings"
	"unicode/utf8"
)

// Truncate 按字节上限截断，但只在 rune 边界下刀，避免把中文字切成烂码。
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// Compact 去除空白与 Markdown 装饰符，用于在自由文本中做关键词比对。
func Compact(s string) string {
	replacer := strings.NewReplacer(" ", "", "\n", "", "\r", "", "\t", "", "*", "")
	return replacer.Replace(s)
}
