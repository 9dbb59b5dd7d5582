// Package chartlyrics ChartLyrics XML 接口客户端
package chartlyrics

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyrica/pkg/music"
	"lyrica/pkg/webclient"
)

// DefaultBaseURL ChartLyrics API 地址
const DefaultBaseURL = "http://api.chartlyrics.com/apiv1.asmx"

// LyricResult SearchLyricDirect 的返回结构
type LyricResult struct {
	XMLName     xml.Name `xml:"GetLyricResult"`
	LyricSong   string   `xml:"LyricSong"`
	LyricArtist string   `xml:"LyricArtist"`
	Lyric       string   `xml:"Lyric"`
}

// Client ChartLyrics客户端
type Client struct {
	web     *webclient.Client
	baseURL string
	logger  zerolog.Logger
}

// NewClient 创建客户端，baseURL 为空时使用默认地址
func NewClient(baseURL string, opts ...webclient.Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		web:     webclient.New("chartlyrics", opts...),
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log.With().Str("component", "chartlyrics").Logger(),
	}
}

// Name 返回提供商名称
func (c *Client) Name() string {
	return music.ProviderChartLyrics.String()
}

// Fetch 调用 SearchLyricDirect 获取纯文本歌词
func (c *Client) Fetch(ctx context.Context, artist, song string, timestamps bool) (*music.LyricsResult, error) {
	c.logger.Info().Str("artist", artist).Str("song", song).Msg("Attempting ChartLyrics")

	body, err := c.web.Get(ctx, c.baseURL+"/SearchLyricDirect", url.Values{"artist": {artist}, "song": {song}})
	if err != nil {
		if webclient.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("chartlyrics: %w", err)
	}
	if !strings.Contains(string(body), "<Lyric>") {
		return nil, nil
	}

	var result LyricResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("chartlyrics: failed to parse XML: %w", err)
	}
	if strings.TrimSpace(result.Lyric) == "" {
		return nil, nil
	}

	return &music.LyricsResult{
		Source:    "chartlyrics",
		Artist:    firstNonEmpty(result.LyricArtist, artist),
		Title:     firstNonEmpty(result.LyricSong, song),
		Lyrics:    strings.TrimSpace(result.Lyric),
		Timestamp: music.CaptureTimestamp(),
	}, nil
}

// Close 释放HTTP连接
func (c *Client) Close() error {
	return c.web.Close()
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
