package lrclib

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyrica/pkg/lrc"
	"lyrica/pkg/music"
	"lyrica/pkg/webclient"
)

const (
	// DefaultBaseURL LRCLib API 地址
	DefaultBaseURL = "https://lrclib.net/api"
	// DefaultGetURL 精确获取接口（可通过 LRCLIB_API_URL 覆盖）
	DefaultGetURL = DefaultBaseURL + "/get"
)

// Client LRCLib客户端
type Client struct {
	web     *webclient.Client
	baseURL string
	getURL  string
	logger  zerolog.Logger
}

// Response LRCLib API响应结构
type Response struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// Option 客户端选项
type Option func(*Client)

// WithBaseURL 覆盖搜索接口地址前缀
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithGetURL 覆盖精确获取接口地址
func WithGetURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.getURL = u
		}
	}
}

// WithTimeout 设置HTTP请求超时
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.web = webclient.New("lrclib", webclient.WithTimeout(d), webclient.WithRetries(1, 300*time.Millisecond))
	}
}

// NewClient 创建新的LRCLib客户端
func NewClient(opts ...Option) *Client {
	c := &Client{
		web:     webclient.New("lrclib", webclient.WithRetries(1, 300*time.Millisecond)),
		baseURL: DefaultBaseURL,
		getURL:  DefaultGetURL,
		logger:  log.With().Str("component", "lrclib").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name 返回提供商名称
func (c *Client) Name() string {
	return music.ProviderLRCLib.String()
}

// Fetch 先搜索再精确获取歌词；请求时间轴时只接受同步歌词
func (c *Client) Fetch(ctx context.Context, artist, song string, timestamps bool) (*music.LyricsResult, error) {
	c.logger.Info().Str("artist", artist).Str("song", song).Msg("Attempting LRCLib")

	params := url.Values{}
	params.Set("track_name", song)
	params.Set("artist_name", artist)

	var results []Response
	if err := c.web.GetJSON(ctx, c.baseURL+"/search", params, &results); err != nil {
		if webclient.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lrclib search: %w", err)
	}

	c.logger.Debug().Int("count", len(results)).Msg("Search finished")
	if len(results) == 0 {
		return nil, nil
	}

	track := findBestMatch(results, song, artist)
	data, err := c.get(ctx, track)
	if err != nil {
		// 搜索结果本身带有歌词，精确获取失败时直接使用
		c.logger.Warn().Err(err).Str("track", track.TrackName).Msg("Get request failed, using search result")
		data = track
	}

	return buildResult(data, timestamps), nil
}

func (c *Client) get(ctx context.Context, track *Response) (*Response, error) {
	params := url.Values{}
	params.Set("track_name", track.TrackName)
	params.Set("artist_name", track.ArtistName)
	params.Set("album_name", track.AlbumName)
	if track.Duration > 0 {
		params.Set("duration", strconv.FormatFloat(track.Duration, 'f', -1, 64))
	}

	var data Response
	if err := c.web.GetJSON(ctx, c.getURL, params, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func buildResult(data *Response, timestamps bool) *music.LyricsResult {
	text := data.PlainLyrics
	if timestamps {
		text = data.SyncedLyrics
	} else if text == "" && data.SyncedLyrics != "" {
		text = lrc.Plain(data.SyncedLyrics)
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	res := &music.LyricsResult{
		Source:       "lrclib",
		Artist:       data.ArtistName,
		Title:        data.TrackName,
		Album:        data.AlbumName,
		Duration:     data.Duration,
		Instrumental: data.Instrumental,
		Lyrics:       text,
		Synced:       data.SyncedLyrics,
		Timestamp:    music.CaptureTimestamp(),
	}
	if timestamps {
		if timed := lrc.Timed(data.SyncedLyrics, data.Duration, "lrc"); len(timed) > 0 {
			res.TimedLyrics = timed
			res.HasTimestamps = true
		}
	}
	return res
}

// findBestMatch 从搜索结果中找到最佳匹配的歌词
func findBestMatch(responses []Response, targetTitle, targetArtist string) *Response {
	var exactMatches, titleMatches []*Response
	for i := range responses {
		r := &responses[i]
		switch {
		case containsIgnoreCase(r.TrackName, targetTitle) && containsIgnoreCase(r.ArtistName, targetArtist):
			exactMatches = append(exactMatches, r)
		case containsIgnoreCase(r.TrackName, targetTitle):
			titleMatches = append(titleMatches, r)
		}
	}

	pool := exactMatches
	if len(pool) == 0 {
		pool = titleMatches
	}
	if len(pool) == 0 {
		return &responses[0]
	}
	return pool[0]
}

// Close 释放HTTP连接
func (c *Client) Close() error {
	return c.web.Close()
}

// containsIgnoreCase 忽略大小写检查包含关系
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
