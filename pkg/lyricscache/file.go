package lyricscache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"
)

// FileStore 每个条目一个 <key>.json 文件
type FileStore struct {
	fs  afero.Fs
	dir string
}

// NewFileStore 创建文件后端，目录不存在时自动创建
func NewFileStore(fs afero.Fs, dir string) (*FileStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &FileStore{fs: fs, dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Read 读取条目
func (s *FileStore) Read(_ context.Context, key string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Write 写入条目，过期时间保存在条目内容中
func (s *FileStore) Write(_ context.Context, key string, data []byte, _ time.Duration) error {
	return afero.WriteFile(s.fs, s.path(key), data, 0o644)
}

// Delete 删除条目
func (s *FileStore) Delete(ctx context.Context, key string) error {
	return s.Remove(ctx, key+".json")
}

// List 列出缓存目录下的全部文件
func (s *FileStore) List(_ context.Context) ([]string, error) {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Remove 删除缓存目录下的文件
func (s *FileStore) Remove(_ context.Context, name string) error {
	err := s.fs.Remove(filepath.Join(s.dir, filepath.Base(name)))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// Location 缓存目录
func (s *FileStore) Location() string {
	return s.dir
}

// Backend 后端名称
func (s *FileStore) Backend() string {
	return "file"
}
