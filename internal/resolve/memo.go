package resolve

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// memoFormat 每行一条：媒体标题 => 歌手\t歌名
const memoFormat = "%s => %s\t%s\n"

// Memo 已解析媒体标题的持久化记录，避免同一标题重复调用AI
type Memo struct {
	fs   afero.Fs
	path string

	mu      sync.RWMutex
	entries map[string]SongInfo
}

// LoadMemo 读取记录文件，文件不存在时返回空记录
func LoadMemo(fs afero.Fs, path string) (*Memo, error) {
	m := &Memo{fs: fs, path: path, entries: make(map[string]SongInfo)}
	data, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read resolver memo %s: %w", path, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), " => ")
		if !ok {
			continue
		}
		artist, title, ok := strings.Cut(value, "\t")
		if !ok || artist == "" || title == "" {
			continue
		}
		m.entries[key] = SongInfo{Artist: artist, Title: title, IsSong: true}
	}
	return m, scanner.Err()
}

// Get 查找已解析的标题
func (m *Memo) Get(identifier string) (SongInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.entries[identifier]
	return info, ok
}

// Put 记录解析结果并追加到文件
func (m *Memo) Put(identifier string, info SongInfo) error {
	if strings.ContainsAny(identifier, "\n") || strings.Contains(identifier, " => ") || strings.ContainsAny(info.Artist+info.Title, "\t\n") {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[identifier]; ok {
		return nil
	}
	m.entries[identifier] = info

	if err := m.fs.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return err
	}
	f, err := m.fs.OpenFile(m.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, memoFormat, identifier, info.Artist, info.Title)
	return err
}
