package gateway

import (
	"context"
	"net"

	"go.uber.org/zap"
)

// Server binds the configured listening address, accepts connections, and
// spawns a Handler per accepted socket. It holds no state of its own
// beyond the listener: the command ring and order id allocator it wires
// into every Handler are owned by the engine and outlive every
// connection.
type Server struct {
	addr     string
	commands CommandPublisher
	ids      OrderIDAllocator
	logger   *zap.Logger
}

func NewServer(addr string, commands CommandPublisher, ids OrderIDAllocator, logger *zap.Logger) *Server {
	return &Server{addr: addr, commands: commands, ids: ids, logger: logger}
}

// Serve blocks accepting connections until ctx is canceled or the listener
// itself fails. A listener bind failure is fatal and returned to the
// caller to abort the process with a non-zero exit code.
func (s *Server) Serve(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	s.logger.Info("listening", zap.String("addr", s.addr))

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}

		s.logger.Debug("accepted connection", zap.String("remote", conn.RemoteAddr().String()))
		handler := NewHandler(conn, s.commands, s.ids)
		go func() {
			if err := handler.Run(ctx); err != nil {
				s.logger.Debug("connection closed", zap.Error(err))
			}
		}()
	}
}
