package entity

import "strings"

// CountWords 统计以空白分隔的非空词数。
// 全系统唯一的字数算法：章节、章节索引、整书统计都使用它。
func CountWords(text string) int {
	return len(strings.Fields(text))
}
