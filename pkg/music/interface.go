package music

import (
	"context"
	"strings"
	"time"
)

// TimestampLayout 结果采集时间的格式（UTC）
const TimestampLayout = "2006-01-02 15:04:05"

// Fetcher 歌词提供商通用接口
type Fetcher interface {
	// Name 获取提供商名称
	Name() string

	// Fetch 根据歌手和歌名获取歌词；没有结果时返回 (nil, nil)
	Fetch(ctx context.Context, artist, song string, timestamps bool) (*LyricsResult, error)
}

// LyricLine 时间轴歌词行
type LyricLine struct {
	Text        string `json:"text"`
	StartTimeMs int64  `json:"start_time"`
	EndTimeMs   int64  `json:"end_time"`
	ID          string `json:"id,omitempty"`
}

// LyricsResult 提供商返回的歌词结果
type LyricsResult struct {
	Source        string      `json:"source"`
	Artist        string      `json:"artist"`
	Title         string      `json:"title"`
	Album         string      `json:"album,omitempty"`
	Duration      float64     `json:"duration,omitempty"` // 歌曲时长（秒）
	Instrumental  bool        `json:"instrumental,omitempty"`
	Lyrics        string      `json:"lyrics,omitempty"`
	Synced        string      `json:"timestamped,omitempty"` // 原始LRC文本
	TimedLyrics   []LyricLine `json:"timed_lyrics,omitempty"`
	HasTimestamps bool        `json:"hasTimestamps"`
	Timestamp     string      `json:"timestamp"`
}

// HasSyncedData 是否携带时间轴数据
func (r *LyricsResult) HasSyncedData() bool {
	if r == nil {
		return false
	}
	return r.HasTimestamps || len(r.TimedLyrics) > 0 || strings.TrimSpace(r.Synced) != ""
}

// HasContent 是否包含歌词文本（纯文本或时间轴）
func (r *LyricsResult) HasContent() bool {
	if r == nil {
		return false
	}
	return strings.TrimSpace(r.Lyrics) != "" || strings.TrimSpace(r.Synced) != "" || len(r.TimedLyrics) > 0
}

// CaptureTimestamp 返回当前采集时间
func CaptureTimestamp() string {
	return time.Now().UTC().Format(TimestampLayout)
}
