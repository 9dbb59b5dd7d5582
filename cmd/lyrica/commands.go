package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"lyrica/internal/app"
	"lyrica/internal/config"
	"lyrica/internal/lyrics"
	"lyrica/pkg/music"
)

// errResponse 查询失败，错误信息已经输出
var errResponse = errors.New("lyrics request failed")

type rootOptions struct {
	configPath string
	logLevel   string

	app *app.App
}

// close 释放应用；cobra 在 RunE 返回错误时不会调用 PersistentPostRunE
func (o *rootOptions) close() error {
	if o.app == nil {
		return nil
	}
	err := o.app.Close()
	o.app = nil
	return err
}

// execute 执行命令，无论成功与否都释放应用
func execute(cmd *cobra.Command, opts *rootOptions) error {
	err := cmd.Execute()
	if cerr := opts.close(); cerr != nil {
		log.Warn().Err(cerr).Msg("Failed to close app")
	}
	return err
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lyrica",
		Short:         "Fetch lyrics from multiple providers with validation and caching",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}
			app.SetupLogging(cfg.Log.Level, cmd.ErrOrStderr())

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			opts.app = a
			a.StartMetrics(cmd.Context())
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config.toml (default $XDG_CONFIG_HOME/lyrica/config.toml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")

	cmd.AddCommand(
		newGetCmd(opts),
		newNowCmd(opts),
		newWatchCmd(opts),
		newCacheCmd(opts),
		newProvidersCmd(opts),
	)
	return cmd
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	var (
		q      lyrics.Query
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "get <artist> <song>",
		Short: "Fetch lyrics for a song",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Artist, q.Song = args[0], args[1]
			resp := opts.app.Lyrics(cmd.Context(), q)
			return printResponse(cmd.OutOrStdout(), resp, asJSON)
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&q.Timestamps, "timestamps", "t", false, "Require time-synced lyrics")
	f.BoolVarP(&q.Fast, "fast", "f", false, "Race the fastest providers in parallel")
	f.BoolVar(&q.Pass, "pass", false, "Use the provider sequence given by --sequence")
	f.StringVarP(&q.Sequence, "sequence", "s", "", "Comma-separated provider ids, e.g. 2,3,4 (see 'lyrica providers')")
	f.BoolVar(&q.Mood, "mood", false, "Request mood analysis (separate cache entry)")
	f.BoolVar(&q.Metadata, "metadata", false, "Request metadata enrichment (separate cache entry)")
	f.BoolVar(&asJSON, "json", false, "Print the full JSON response")
	return cmd
}

func newNowCmd(opts *rootOptions) *cobra.Command {
	var (
		timestamps bool
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "now",
		Short: "Fetch lyrics for the track currently playing (playerctl)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, resp, err := opts.app.NowPlaying(cmd.Context(), timestamps)
			if err != nil {
				return err
			}
			if !asJSON {
				fmt.Fprintf(cmd.OutOrStdout(), "%s - %s\n\n", info.Artist, info.Title)
			}
			return printResponse(cmd.OutOrStdout(), resp, asJSON)
		},
	}
	cmd.Flags().BoolVarP(&timestamps, "timestamps", "t", false, "Require time-synced lyrics")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full JSON response")
	return cmd
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var socketPath string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the player and print lyrics line by line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return opts.app.Watch(ctx, cmd.OutOrStdout(), socketPath)
		},
	}
	cmd.Flags().StringVar(&socketPath, "socket", "", "Also broadcast lines on this unix socket (overrides app.socket_path)")
	return cmd
}

func newCacheCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the lyrics cache",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show cache statistics",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				stats, err := opts.app.Cache().Stats(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to read cache stats: %w", err)
				}
				return writeJSON(cmd.OutOrStdout(), stats)
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every cache entry",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				report, err := opts.app.Cache().Clear(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to clear cache: %w", err)
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"status":  "cache cleared",
					"details": report,
				})
			},
		},
	)
	return cmd
}

func newProvidersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List providers with their ids and status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, id := range music.AllProviders() {
				status := "not configured"
				if _, ok := opts.app.Registry().Get(id); ok {
					status = "ready"
				}
				fmt.Fprintf(out, "%d  %-14s %s\n", int(id), id.String(), status)
			}
			fmt.Fprintf(out, "\nsynced default: %s\nplain default:  %s\nfast:           %s\n",
				music.DefaultSyncedSequence, music.DefaultPlainSequence, music.FastSequence)
			return nil
		},
	}
}

func printResponse(w io.Writer, resp *lyrics.Response, asJSON bool) error {
	if asJSON {
		if err := writeJSON(w, resp); err != nil {
			return err
		}
		if !resp.OK() {
			return errResponse
		}
		return nil
	}

	if !resp.OK() {
		fmt.Fprintln(w, resp.Error.Message)
		for _, a := range resp.Attempts {
			fmt.Fprintf(w, "  %-14s %s %s\n", a.Provider, a.Reason, a.Detail)
		}
		return errResponse
	}

	d := resp.Data
	if len(d.TimedLyrics) > 0 {
		for _, l := range d.TimedLyrics {
			fmt.Fprintf(w, "[%02d:%05.2f] %s\n", l.StartTimeMs/60000, float64(l.StartTimeMs%60000)/1000, l.Text)
		}
	} else {
		fmt.Fprintln(w, d.Lyrics)
	}
	if resp.Validation != nil {
		fmt.Fprintf(w, "\n(%s, song match %.3f)\n", resp.Validation.Reason, resp.Validation.SongMatch)
	}
	fmt.Fprintf(w, "\nsource: %s", d.Source)
	if resp.Cached {
		fmt.Fprint(w, " (cached)")
	}
	fmt.Fprintln(w)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
