// Package lrc 解析 LRC 格式的时间轴歌词
package lrc

import (
	"bufio"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"lyrica/pkg/music"
)

// DefaultLineDuration 无法推算结束时间时每行的默认持续时长（毫秒）
const DefaultLineDuration = 4000

// 兼容 [mm:ss]、[mm:ss.x]、[mm:ss.xx]、[mm:ss.xxx] 以及部分来源的 [mm:ss..xx]
var lineRe = regexp.MustCompile(`^\s*\[(\d{2}):(\d{2})(?:\.{1,2}(\d{1,3}))?\](.*)`)

// Line 解析后的单行歌词
type Line struct {
	Time float64
	Text string
}

// parseLine 解析单行，返回开始时间（毫秒）和文本
func parseLine(line string) (int64, string, bool) {
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	min, _ := strconv.Atoi(m[1])
	sec, _ := strconv.Atoi(m[2])
	ms := 0
	if frac := m[3]; frac != "" {
		ms, _ = strconv.Atoi(frac)
		// 根据小数位数换算：.1 表示 100ms，.49 表示 490ms
		switch len(frac) {
		case 1:
			ms *= 100
		case 2:
			ms *= 10
		}
	}
	return int64(min*60+sec)*1000 + int64(ms), strings.TrimSpace(m[4]), true
}

// Parse 解析 LRC 文本并按时间排序
func Parse(lrc string) []Line {
	scanner := bufio.NewScanner(strings.NewReader(lrc))
	var result []Line
	for scanner.Scan() {
		start, text, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		result = append(result, Line{Time: float64(start) / 1000, Text: text})
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Time < result[j].Time })
	return result
}

// Timed 把 LRC 文本转换为带开始/结束时间的歌词行
//
// 每行的结束时间取下一行的开始时间；下一行没有时间标签时取开始时间加 4 秒；
// 最后一行在已知歌曲时长时以时长结束。空文本行不输出，id 使用原始行号。
func Timed(lrc string, durationSec float64, idPrefix string) []music.LyricLine {
	raw := strings.Split(strings.ReplaceAll(lrc, "\r\n", "\n"), "\n")
	var lines []music.LyricLine
	for i, line := range raw {
		start, text, ok := parseLine(line)
		if !ok || text == "" {
			continue
		}
		end := start + DefaultLineDuration
		if i < len(raw)-1 {
			if next, _, ok := parseLine(raw[i+1]); ok {
				end = next
			}
		} else if durationSec > 0 {
			end = int64(durationSec * 1000)
		}
		lines = append(lines, music.LyricLine{
			Text:        text,
			StartTimeMs: start,
			EndTimeMs:   end,
			ID:          fmt.Sprintf("%s_%d", idPrefix, i),
		})
	}
	return lines
}

// Plain 去掉时间标签，只保留文本
func Plain(lrc string) string {
	var b strings.Builder
	for _, l := range Parse(lrc) {
		if l.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.Text)
	}
	return b.String()
}

// IsSynced 文本中是否包含时间标签
func IsSynced(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if lineRe.MatchString(line) {
			return true
		}
	}
	return false
}
