package app

import (
	"github.com/rs/zerolog/log"

	"lyrica/internal/config"
	"lyrica/pkg/chartlyrics"
	"lyrica/pkg/genius"
	"lyrica/pkg/lrclib"
	"lyrica/pkg/lyricsovh"
	"lyrica/pkg/music"
	"lyrica/pkg/simpmusic"
	"lyrica/pkg/webclient"
	"lyrica/pkg/youtube"
)

// buildRegistry 按配置创建全部提供商；禁用或缺少凭据的提供商注册为 nil
func buildRegistry(cfg *config.Config) *music.Registry {
	timeout := webclient.WithTimeout(cfg.Fetch.CallTimeout)
	builders := map[music.ProviderID]func() music.Fetcher{
		music.ProviderGenius: func() music.Fetcher {
			if cfg.Providers.GeniusToken == "" {
				return nil
			}
			return genius.NewClient(cfg.Providers.GeniusToken, genius.WithTimeout(cfg.Fetch.CallTimeout))
		},
		music.ProviderLRCLib: func() music.Fetcher {
			return lrclib.NewClient(
				lrclib.WithTimeout(cfg.Fetch.CallTimeout),
				lrclib.WithBaseURL(cfg.Providers.LRCLibBaseURL),
				lrclib.WithGetURL(cfg.Providers.LRCLibGetURL),
			)
		},
		music.ProviderSimpMusic: func() music.Fetcher {
			return simpmusic.NewClient(cfg.Providers.SimpMusicURL, timeout)
		},
		music.ProviderYouTubeMusic: func() music.Fetcher {
			return youtube.NewClient("", cfg.Providers.YouTubeCookie, timeout)
		},
		music.ProviderLyricsOvh: func() music.Fetcher {
			return lyricsovh.NewClient(cfg.Providers.LyricsOvhURL, timeout)
		},
		music.ProviderChartLyrics: func() music.Fetcher {
			return chartlyrics.NewClient(cfg.Providers.ChartLyricsURL, timeout)
		},
	}

	registry := music.NewRegistry()
	for _, id := range music.AllProviders() {
		if cfg.ProviderDisabled(id.Key(), id.String()) {
			log.Info().Str("provider", id.String()).Msg("Provider disabled by config")
			registry.Register(id, nil)
			continue
		}
		f := builders[id]()
		if f == nil {
			log.Info().Str("provider", id.String()).Msg("Provider not configured")
			registry.Register(id, nil)
			continue
		}
		registry.Register(id, f)
	}
	return registry
}
