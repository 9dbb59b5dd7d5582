// Package player 通过 playerctl 读取当前播放的曲目
package player

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// metadataFormat 字段以制表符分隔，mpris:length 单位为微秒
const metadataFormat = "{{artist}}\t{{title}}\t{{mpris:length}}"

// ErrNoPlayer 没有正在播放的播放器
var ErrNoPlayer = errors.New("no music playing")

// Track 当前曲目
type Track struct {
	Artist string
	Title  string
	Length float64 // 秒，未知时为 0
}

// Identifier 返回 "歌手 - 歌名" 形式的标识，用于检测切歌和AI解析
func (t Track) Identifier() string {
	switch {
	case t.Artist == "":
		return t.Title
	case t.Title == "":
		return t.Artist
	}
	return t.Artist + " - " + t.Title
}

// Runner 执行外部命令并返回标准输出
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Player playerctl 封装
type Player struct {
	run Runner
}

// New 创建播放器读取器，run 为 nil 时直接调用 playerctl
func New(run Runner) *Player {
	if run == nil {
		run = execRunner
	}
	return &Player{run: run}
}

// CurrentTrack 获取当前曲目
func (p *Player) CurrentTrack(ctx context.Context) (Track, error) {
	out, err := p.run(ctx, "playerctl", "metadata", "--format", metadataFormat)
	if err != nil {
		return Track{}, fmt.Errorf("%w: %v", ErrNoPlayer, err)
	}
	t := parseMetadata(string(out))
	if t.Identifier() == "" {
		return Track{}, ErrNoPlayer
	}
	return t, nil
}

// Position 获取当前播放进度（秒），失败时返回 -1
func (p *Player) Position(ctx context.Context) float64 {
	out, err := p.run(ctx, "playerctl", "position")
	if err != nil {
		return -1
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return -1
	}
	return seconds
}

func parseMetadata(s string) Track {
	fields := strings.Split(strings.TrimRight(s, "\r\n"), "\t")
	var t Track
	if len(fields) > 0 {
		t.Artist = strings.TrimSpace(fields[0])
	}
	if len(fields) > 1 {
		t.Title = strings.TrimSpace(fields[1])
	}
	if len(fields) > 2 {
		if us, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64); err == nil && us > 0 {
			t.Length = float64(us) / 1e6
		}
	}
	return t
}
