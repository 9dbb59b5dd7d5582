// Package lyricsovh Lyrics.ovh 客户端
package lyricsovh

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

// DefaultBaseURL Lyrics.ovh API 地址
const DefaultBaseURL = "https://api.lyrics.ovh/v1"

// Client Lyrics.ovh客户端
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
		web:     webclient.New("lyricsovh", opts...),
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log.With().Str("component", "lyricsovh").Logger(),
	}
}

// Name 返回提供商名称
func (c *Client) Name() string {
	return music.ProviderLyricsOvh.String()
}

// Fetch 获取纯文本歌词，接口不返回元数据，歌手和歌名沿用请求值
func (c *Client) Fetch(ctx context.Context, artist, song string, timestamps bool) (*music.LyricsResult, error) {
	c.logger.Info().Str("artist", artist).Str("song", song).Msg("Attempting Lyrics.ovh")

	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(artist), url.PathEscape(song))
	var resp struct {
		Lyrics string `json:"lyrics"`
		Error  string `json:"error"`
	}
	if err := c.web.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		if webclient.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lyrics.ovh: %w", err)
	}
	if strings.TrimSpace(resp.Lyrics) == "" {
		return nil, nil
	}

	return &music.LyricsResult{
		Source:    "lyrics.ovh",
		Artist:    artist,
		Title:     song,
		Lyrics:    strings.ReplaceAll(resp.Lyrics, "\r\n", "\n"),
		Timestamp: music.CaptureTimestamp(),
	}, nil
}

// Close 释放HTTP连接
func (c *Client) Close() error {
	return c.web.Close()
}
