// Package ipc 通过 unix socket 向状态栏等客户端广播当前歌词行
package ipc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Server 广播服务器，每个客户端连接后先收到最后一行，之后收到每次广播
type Server struct {
	socketPath   string
	lockFilePath string
	lockFile     *os.File
	listener     net.Listener

	mu      sync.Mutex
	clients map[net.Conn]struct{}
	last    string

	wg     sync.WaitGroup
	logger zerolog.Logger
}

// NewServer 创建服务器
func NewServer(socketPath string) *Server {
	return &Server{
		socketPath:   socketPath,
		lockFilePath: socketPath + ".lock",
		clients:      make(map[net.Conn]struct{}),
		logger:       log.With().Str("component", "ipc").Str("socket_path", socketPath).Logger(),
	}
}

// Start 获取进程锁并开始监听
func (s *Server) Start() error {
	if err := s.acquireLock(); err != nil {
		return err
	}
	if err := os.RemoveAll(s.socketPath); err != nil {
		s.releaseLock()
		return err
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		s.releaseLock()
		return err
	}
	s.listener = listener
	s.logger.Info().Msg("IPC server listening")

	s.wg.Add(1)
	go s.acceptConnections()
	return nil
}

func (s *Server) acceptConnections() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to accept IPC connection")
			continue
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	last := s.last
	s.mu.Unlock()
	s.logger.Debug().Msg("Client connected")

	if last != "" {
		if _, err := conn.Write([]byte(last + "\n")); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to send last line")
		}
	}

	// 客户端不发送数据，读到 EOF 即断开
	buf := make([]byte, 64)
	for {
		if _, err := conn.Read(buf); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
	s.logger.Debug().Msg("Client disconnected")
}

// Broadcast 向所有客户端发送一行，写入失败的客户端会被移除
func (s *Server) Broadcast(line string) {
	line = strings.TrimRight(line, "\r\n")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = line

	data := []byte(line + "\n")
	for conn := range s.clients {
		if _, err := conn.Write(data); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to write to client, removing")
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

// Write 按行广播，便于与 io.MultiWriter 组合
func (s *Server) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		s.Broadcast(line)
	}
	return len(p), nil
}

// Close 停止监听、断开客户端并释放进程锁
func (s *Server) Close() error {
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.mu.Lock()
	for conn := range s.clients {
		conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()

	os.Remove(s.socketPath)
	s.releaseLock()
	return err
}

func (s *Server) acquireLock() error {
	s.cleanStaleLock()

	// 先加锁再截断，失败的实例不能清掉持锁进程写入的 PID
	file, err := os.OpenFile(s.lockFilePath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return fmt.Errorf("another lyrica instance is already serving %s", s.socketPath)
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if err := writePID(file); err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return fmt.Errorf("failed to write PID to lock file: %w", err)
	}

	s.lockFile = file
	s.logger.Debug().Int("pid", os.Getpid()).Msg("Acquired process lock")
	return nil
}

func writePID(file *os.File) error {
	if err := file.Truncate(0); err != nil {
		return err
	}
	_, err := file.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	return err
}

// cleanStaleLock 删除进程已经不存在且无人持有的锁文件
func (s *Server) cleanStaleLock() {
	content, err := os.ReadFile(s.lockFilePath)
	if err != nil {
		return
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err == nil && syscall.Kill(pid, 0) == nil {
		return
	}

	file, err := os.OpenFile(s.lockFilePath, os.O_RDWR, 0)
	if err != nil {
		return
	}
	defer file.Close()
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		s.logger.Debug().Str("lock_file", s.lockFilePath).Msg("Lock file is held, keeping it")
		return
	}
	s.logger.Info().Str("lock_file", s.lockFilePath).Msg("Removing stale lock file")
	os.Remove(s.lockFilePath)
	syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
}

func (s *Server) releaseLock() {
	if s.lockFile == nil {
		return
	}
	syscall.Flock(int(s.lockFile.Fd()), syscall.LOCK_UN)
	s.lockFile.Close()
	os.Remove(s.lockFilePath)
	s.lockFile = nil
}
