package text

import (
	"regexp"
	"strings"
)

var timestampPrefix = regexp.MustCompile(`^\d+:\d+\s*`)

// StripTimestamps 去掉行首的 "分:秒" 时间戳
func StripTimestamps(line string) string {
	return timestampPrefix.ReplaceAllString(line, "")
}

// StripTimestampsAll 对多行文本逐行去掉时间戳, 保留原有换行
func StripTimestampsAll(content string) string {
	lines := strings.SplitAfter(content, "\n")
	for i, l := range lines {
		lines[i] = StripTimestamps(l)
	}
	return strings.Join(lines, "")
}
