package node

import (
	"strings"
	"unicode/utf8"
)

// TruncateByRunes 按字符数截断，避免把超长正文整段塞进提示词
func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// JoinOr 拼接非空元素，全部为空时返回 fallback
func JoinOr(items []string, sep, fallback string) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, sep)
}

// BulletList 渲染为 "- item" 列表
func BulletList(items []string, fallback string) string {
	return JoinOr(prefixAll(items, "- "), "\n", fallback)
}

func prefixAll(items []string, prefix string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			out = append(out, prefix+s)
		}
	}
	return out
}
