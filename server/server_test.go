package server

import (
	"bufio"
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"privhelper-go/config"
	"privhelper-go/logging"
	"privhelper-go/privilege"
)

type fakePlatform struct {
	mu         sync.Mutex
	euid, egid int
}

func (p *fakePlatform) Supported() bool { return true }

func (p *fakePlatform) Geteuid() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.euid
}

func (p *fakePlatform) Getegid() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.egid
}

func (p *fakePlatform) Seteuid(euid int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.euid = euid
	return nil
}

func (p *fakePlatform) Setegid(egid int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.egid = egid
	return nil
}

type staticResolver struct{}

func (staticResolver) ResolveUser(string) (uint32, error)  { return 1, nil }
func (staticResolver) ResolveGroup(string) (uint32, error) { return 1, nil }

func newDroppableHelper(t *testing.T) *privilege.Helper {
	t.Helper()
	h := privilege.New(
		privilege.WithPlatform(&fakePlatform{}),
		privilege.WithResolver(staticResolver{}),
		privilege.WithLogger(logging.Discard()),
	)
	require.NoError(t, h.Initialize("daemon", "daemon"))
	return h
}

func TestServer_BindDropServe(t *testing.T) {
	h := newDroppableHelper(t)
	pidFile := filepath.Join(t.TempDir(), "privhelper.pid")

	srv := New(h, []config.Listener{
		{Network: "tcp", Address: "127.0.0.1:0"},
		{Network: "udp", Address: "127.0.0.1:0"},
	}, pidFile, logging.Discard())

	require.NoError(t, srv.Bind())
	assert.Equal(t, privilege.ModeDropped, h.Mode())

	data, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(data)))

	addrs := srv.Addrs()
	require.Len(t, addrs, 2)

	ctx, cancel := context.WithCancel(logging.ContextWithLogger(context.Background(), logging.Discard()))
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	conn, err := net.DialTimeout("tcp", addrs[0].String(), 5*time.Second)
	require.NoError(t, err)
	line, err := bufio.NewReader(conn).ReadString('\n')
	conn.Close()
	require.NoError(t, err)
	assert.Equal(t, "uid=1 gid=1 mode=dropped\n", line)

	uconn, err := net.Dial("udp", addrs[1].String())
	require.NoError(t, err)
	_, err = uconn.Write([]byte("?"))
	require.NoError(t, err)
	require.NoError(t, uconn.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 128)
	n, err := uconn.Read(buf)
	uconn.Close()
	require.NoError(t, err)
	assert.Equal(t, "uid=1 gid=1 mode=dropped\n", string(buf[:n]))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	_, err = os.Stat(pidFile)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, privilege.ModeDropped, h.Mode())
}

func TestServer_BindFailureClosesAndDrops(t *testing.T) {
	h := newDroppableHelper(t)

	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	srv := New(h, []config.Listener{
		{Network: "tcp", Address: "127.0.0.1:0"},
		{Network: "tcp", Address: taken.Addr().String()},
	}, "", logging.Discard())

	err = srv.Bind()
	require.Error(t, err)
	assert.Empty(t, srv.Addrs())
	assert.Equal(t, privilege.ModeDropped, h.Mode())
}
