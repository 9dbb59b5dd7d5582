package ipc

import (
	"bufio"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

func socketPath(t *testing.T) string {
	t.Helper()
	// unix socket 路径长度有限，避免过长的临时目录
	dir, err := os.MkdirTemp("", "lyrica")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "s.sock")
}

func readLine(t *testing.T, r *bufio.Reader, conn net.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("ReadString() error = %v", err)
	}
	return line
}

func TestBroadcast(t *testing.T) {
	path := socketPath(t)
	s := NewServer(path)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Close()

	s.Broadcast("... Searching for lyrics for Adele - Hello ...")

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	r := bufio.NewReader(conn)

	if got := readLine(t, r, conn); got != "... Searching for lyrics for Adele - Hello ...\n" {
		t.Errorf("replayed line = %q", got)
	}

	// 等待服务端登记连接
	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		n := len(s.clients)
		s.mu.Unlock()
		if n == 1 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := s.Write([]byte("Hello, it's me\nI was wondering\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got := readLine(t, r, conn); got != "Hello, it's me\n" {
		t.Errorf("first line = %q", got)
	}
	if got := readLine(t, r, conn); got != "I was wondering\n" {
		t.Errorf("second line = %q", got)
	}
}

func TestSecondInstanceRejected(t *testing.T) {
	path := socketPath(t)
	first := NewServer(path)
	if err := first.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer first.Close()

	second := NewServer(path)
	if err := second.Start(); err == nil {
		second.Close()
		t.Fatal("second instance should fail to acquire the lock")
	}
}

func TestCloseRemovesSocket(t *testing.T) {
	path := socketPath(t)
	s := NewServer(path)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("socket still present: %v", err)
	}
	if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
		t.Errorf("lock file still present: %v", err)
	}
}

func TestRejectedInstancesKeepLock(t *testing.T) {
	path := socketPath(t)
	first := NewServer(path)
	if err := first.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer first.Close()

	for i := range 3 {
		other := NewServer(path)
		if err := other.Start(); err == nil {
			other.Close()
			t.Fatalf("instance %d acquired the lock while the first is still running", i+2)
		}
	}

	content, err := os.ReadFile(path + ".lock")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got, want := strings.TrimSpace(string(content)), strconv.Itoa(os.Getpid()); got != want {
		t.Errorf("lock file PID = %q, want %q", got, want)
	}
	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("running instance socket was removed: %v", err)
	}
	conn.Close()
}

func TestStaleLockReplaced(t *testing.T) {
	path := socketPath(t)
	// 不存在的进程留下的锁文件
	if err := os.WriteFile(path+".lock", []byte("not-a-pid\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s := NewServer(path)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Close()

	content, err := os.ReadFile(path + ".lock")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got := strings.TrimSpace(string(content)); got != strconv.Itoa(os.Getpid()) {
		t.Errorf("lock file PID = %q", got)
	}
}
