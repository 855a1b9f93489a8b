package camera

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"go.uber.org/atomic"

	"objectlens/internal/logger"
	"objectlens/internal/model"
)

// UDPSource listens for JPEG frames sent over UDP by network cameras.
type UDPSource struct {
	port   int
	camera string
	logger *logger.Logger

	busy *atomic.Bool

	mu     sync.Mutex
	conn   *net.UDPConn
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewUDPSource listens on port. Frames are named camera, or after the sender's
// IP when camera is empty.
func NewUDPSource(port int, camera string, log *logger.Logger) *UDPSource {
	return &UDPSource{
		port:   port,
		camera: camera,
		logger: log.WithFields(logger.Fields{"component": "udp-camera"}),
		busy:   atomic.NewBool(false),
	}
}

// Addr returns the bound address while started.
func (s *UDPSource) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

func (s *UDPSource) Start(ctx context.Context) (<-chan model.Frame, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, model.ErrSourceBusy
	}

	addr, err := net.ResolveUDPAddr("udp", ":"+strconv.Itoa(s.port))
	if err != nil {
		s.busy.Store(false)
		return nil, fmt.Errorf("%w: failed to resolve UDP address: %v", model.ErrMediaAccess, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		s.busy.Store(false)
		return nil, fmt.Errorf("%w: failed to listen on UDP port %d: %v", model.ErrMediaAccess, s.port, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.mu.Unlock()

	frames := make(chan model.Frame, 1)
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		defer s.wg.Done()
		defer close(frames)
		s.read(ctx, conn, frames)
	}()

	s.logger.Info("📷 UDP camera source listening on %s", conn.LocalAddr())
	return frames, nil
}

func (s *UDPSource) read(ctx context.Context, conn *net.UDPConn, frames chan model.Frame) {
	assembler := NewAssembler()
	buffer := make([]byte, 65535)

	for {
		n, remote, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("Error reading UDP packet: %v", err)
			continue
		}

		camera := s.camera
		if camera == "" {
			camera = remote.IP.String()
		}

		data := assembler.Push(camera, buffer[:n])
		if data == nil {
			continue
		}
		frame, err := model.NewFrame(data)
		if err != nil {
			s.logger.Debug("dropping undecodable frame from %s: %v", camera, err)
			continue
		}
		frame.Camera = camera
		offer(frames, frame)
	}
}

// Stop closes the socket and waits for the reader to exit.
func (s *UDPSource) Stop() error {
	s.mu.Lock()
	conn, cancel := s.conn, s.cancel
	s.conn, s.cancel = nil, nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	cancel()
	s.wg.Wait()
	s.busy.Store(false)
	return nil
}
