// Package server binds listeners with elevated privileges and serves them
// after privileges have been dropped.
//
// Each accepted connection (or received datagram) is answered with the
// effective identity the process is running as, which makes the privilege
// state observable from outside the process.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/google/renameio/v2"
	"golang.org/x/sync/errgroup"

	"privhelper-go/config"
	perrors "privhelper-go/errors"
	"privhelper-go/logging"
	"privhelper-go/privilege"
)

// Server owns the bound sockets and the pidfile.
type Server struct {
	helper    *privilege.Helper
	listeners []config.Listener
	pidFile   string
	logger    *slog.Logger

	mu      sync.Mutex
	streams []net.Listener
	packets []net.PacketConn

	conns sync.WaitGroup
}

// New creates a Server. Nothing is bound until Bind is called.
func New(helper *privilege.Helper, listeners []config.Listener, pidFile string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	return &Server{
		helper:    helper,
		listeners: listeners,
		pidFile:   pidFile,
		logger:    logger,
	}
}

// Bind raises privileges, opens every listener, writes the pidfile and drops
// privileges again. On failure every socket opened so far is closed.
func (s *Server) Bind() error {
	err := s.helper.RunElevated(func() error {
		for _, l := range s.listeners {
			if err := s.bind(l); err != nil {
				return err
			}
		}
		return s.writePIDFile()
	})
	if err != nil {
		s.closeAll()
		return err
	}
	return nil
}

func (s *Server) bind(l config.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch l.Network {
	case "udp", "udp4", "udp6":
		pc, err := net.ListenPacket(l.Network, l.Address)
		if err != nil {
			return perrors.WrapWithDetail(err, perrors.ErrInternal, "bind", l.String())
		}
		s.packets = append(s.packets, pc)
		s.logger.Info("bound", "network", l.Network, "address", pc.LocalAddr().String())
	default:
		ln, err := net.Listen(l.Network, l.Address)
		if err != nil {
			return perrors.WrapWithDetail(err, perrors.ErrInternal, "bind", l.String())
		}
		s.streams = append(s.streams, ln)
		s.logger.Info("bound", "network", l.Network, "address", ln.Addr().String())
	}
	return nil
}

func (s *Server) writePIDFile() error {
	if s.pidFile == "" {
		return nil
	}
	pid := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if err := renameio.WriteFile(s.pidFile, pid, 0644); err != nil {
		return perrors.WrapWithDetail(err, perrors.ErrInternal, "write pidfile", s.pidFile)
	}
	return nil
}

// Addrs returns the local addresses of the bound sockets.
func (s *Server) Addrs() []net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	addrs := make([]net.Addr, 0, len(s.streams)+len(s.packets))
	for _, ln := range s.streams {
		addrs = append(addrs, ln.Addr())
	}
	for _, pc := range s.packets {
		addrs = append(addrs, pc.LocalAddr())
	}
	return addrs
}

// Serve answers requests on every bound socket until ctx is done, then
// closes the sockets and removes the pidfile with elevated privileges.
// Per-request diagnostics go to the logger attached to ctx.
func (s *Server) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	s.mu.Lock()
	for _, ln := range s.streams {
		g.Go(func() error { return s.acceptLoop(gctx, ln) })
	}
	for _, pc := range s.packets {
		g.Go(func() error { return s.packetLoop(gctx, pc) })
	}
	s.mu.Unlock()

	g.Go(func() error {
		<-gctx.Done()
		s.closeAll()
		return nil
	})

	err := g.Wait()
	s.conns.Wait()
	if rmErr := s.removePIDFile(); rmErr != nil {
		s.logger.Warn("cannot remove pidfile", "path", s.pidFile, "error", rmErr)
	}
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	logger := logging.FromContext(ctx).With("address", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept on %s: %w", ln.Addr(), err)
		}
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handle(logger, conn)
		}()
	}
}

func (s *Server) handle(logger *slog.Logger, conn net.Conn) {
	defer conn.Close()
	if _, err := conn.Write(s.identityLine()); err != nil {
		logger.Debug("write reply", "remote", conn.RemoteAddr().String(), "error", err)
	}
}

func (s *Server) packetLoop(ctx context.Context, pc net.PacketConn) error {
	logger := logging.FromContext(ctx).With("address", pc.LocalAddr().String())
	buf := make([]byte, 512)
	for {
		_, addr, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read on %s: %w", pc.LocalAddr(), err)
		}
		if _, err := pc.WriteTo(s.identityLine(), addr); err != nil {
			logger.Debug("write reply", "remote", addr.String(), "error", err)
		}
	}
}

func (s *Server) identityLine() []byte {
	eff := s.helper.Effective()
	return []byte(fmt.Sprintf("%s mode=%s\n", eff, s.helper.Mode()))
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ln := range s.streams {
		ln.Close()
	}
	for _, pc := range s.packets {
		pc.Close()
	}
	s.streams = nil
	s.packets = nil
}

func (s *Server) removePIDFile() error {
	if s.pidFile == "" {
		return nil
	}
	return s.helper.RunElevated(func() error {
		if err := os.Remove(s.pidFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	})
}
