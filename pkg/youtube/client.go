// Package youtube 通过 YouTube Music 的 innertube 接口获取歌词
//
// 流程：search 找到 videoId，next 找到歌词页的 browseId（MPLY 开头），browse 读取歌词文本。
// 网页端接口只提供纯文本歌词。
package youtube

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyrica/pkg/music"
	"lyrica/pkg/webclient"
)

const (
	// DefaultBaseURL innertube 接口地址
	DefaultBaseURL = "https://music.youtube.com/youtubei/v1"

	clientName    = "WEB_REMIX"
	clientVersion = "1.20240918.01.00"
	// 搜索过滤器：只返回歌曲
	songsFilter = "EgWKAQIIAWoMEA4QChADEAQQCRAF"
	origin      = "https://music.youtube.com"
)

// Client YouTube Music客户端
type Client struct {
	web     *webclient.Client
	baseURL string
	logger  zerolog.Logger
}

// NewClient 创建客户端，cookie 可为空（匿名访问）
func NewClient(baseURL, cookie string, opts ...webclient.Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	opts = append([]webclient.Option{
		webclient.WithHeader("Cookie", cookie),
		webclient.WithHeader("Origin", origin),
		webclient.WithHeader("X-Origin", origin),
	}, opts...)
	return &Client{
		web:     webclient.New("youtube", opts...),
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log.With().Str("component", "youtube").Logger(),
	}
}

// Name 返回提供商名称
func (c *Client) Name() string {
	return music.ProviderYouTubeMusic.String()
}

// Fetch 获取歌词
func (c *Client) Fetch(ctx context.Context, artist, song string, timestamps bool) (*music.LyricsResult, error) {
	c.logger.Info().Str("artist", artist).Str("song", song).Msg("Attempting YouTube Music")

	var search map[string]any
	if err := c.call(ctx, "search", map[string]any{"query": song + " " + artist, "params": songsFilter}, &search); err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}
	videoID, _ := findString(search, "videoId", nil)
	if videoID == "" {
		return nil, nil
	}

	var next map[string]any
	if err := c.call(ctx, "next", map[string]any{"videoId": videoID, "isAudioOnly": true}, &next); err != nil {
		return nil, fmt.Errorf("youtube watch playlist: %w", err)
	}
	browseID, _ := findString(next, "browseId", func(s string) bool { return strings.HasPrefix(s, "MPLY") })
	if browseID == "" {
		c.logger.Debug().Str("video_id", videoID).Msg("No lyrics tab")
		return nil, nil
	}

	var browse map[string]any
	if err := c.call(ctx, "browse", map[string]any{"browseId": browseID}, &browse); err != nil {
		return nil, fmt.Errorf("youtube lyrics: %w", err)
	}
	shelf, ok := findKey(browse, "musicDescriptionShelfRenderer")
	if !ok {
		return nil, nil
	}
	lyrics := strings.TrimSpace(runsText(lookup(shelf, "description")))
	if lyrics == "" {
		return nil, nil
	}

	res := &music.LyricsResult{
		Source:    "youtube_music",
		Artist:    artist,
		Title:     song,
		Lyrics:    strings.ReplaceAll(lyrics, "\r\n", "\n"),
		Timestamp: music.CaptureTimestamp(),
	}
	if item, ok := findKey(next, "playlistPanelVideoRenderer"); ok {
		if t := runsText(lookup(item, "title")); t != "" {
			res.Title = t
		}
		if a := firstRun(lookup(item, "shortBylineText")); a != "" {
			res.Artist = a
		}
	}
	return res, nil
}

func (c *Client) call(ctx context.Context, endpoint string, body map[string]any, out any) error {
	body["context"] = map[string]any{
		"client": map[string]any{
			"clientName":    clientName,
			"clientVersion": clientVersion,
			"hl":            "en",
		},
	}
	return c.web.PostJSON(ctx, c.baseURL+"/"+endpoint, url.Values{"prettyPrint": {"false"}}, body, out)
}

// Close 释放HTTP连接
func (c *Client) Close() error {
	return c.web.Close()
}

// findKey 深度优先查找第一个名为 key 的字段
func findKey(node any, key string) (any, bool) {
	switch v := node.(type) {
	case map[string]any:
		if found, ok := v[key]; ok {
			return found, true
		}
		for _, child := range v {
			if found, ok := findKey(child, key); ok {
				return found, true
			}
		}
	case []any:
		for _, child := range v {
			if found, ok := findKey(child, key); ok {
				return found, true
			}
		}
	}
	return nil, false
}

// findString 查找第一个名为 key、满足 accept 的字符串字段
//
// map 的遍历顺序不固定，所以同层字段先于子节点检查，数组按顺序遍历。
func findString(node any, key string, accept func(string) bool) (string, bool) {
	switch v := node.(type) {
	case map[string]any:
		if s, ok := v[key].(string); ok && (accept == nil || accept(s)) {
			return s, true
		}
		for _, child := range v {
			if s, ok := findString(child, key, accept); ok {
				return s, true
			}
		}
	case []any:
		for _, child := range v {
			if s, ok := findString(child, key, accept); ok {
				return s, true
			}
		}
	}
	return "", false
}

func lookup(node any, key string) any {
	if m, ok := node.(map[string]any); ok {
		return m[key]
	}
	return nil
}

// runsText 拼接 {"runs": [{"text": ...}]} 中的全部文本
func runsText(node any) string {
	runs, _ := lookup(node, "runs").([]any)
	var b strings.Builder
	for _, r := range runs {
		if s, ok := lookup(r, "text").(string); ok {
			b.WriteString(s)
		}
	}
	return b.String()
}

func firstRun(node any) string {
	runs, _ := lookup(node, "runs").([]any)
	if len(runs) == 0 {
		return ""
	}
	s, _ := lookup(runs[0], "text").(string)
	return s
}
