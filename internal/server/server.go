// Package server accepts connections on the supervisor's Unix-domain
// control socket and dispatches each length-framed Request to a
// dispatcher.Dispatcher, the transport half of the control plane (spec
// §4.1, §6), grounded on the teacher's internal/server.Run shape (a small
// constructor-wired Run loop over the stdio protocol handler, here
// generalized from stdio to an accept loop over many connections).
package server

import (
	"context"
	"net"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/tliron/commonlog"

	"github.com/sozu-sh/sozuctl/internal/dispatcher"
	"github.com/sozu-sh/sozuctl/internal/wire"
)

// Server serves the control socket, handing every decoded Request to a
// Dispatcher and framing back its interim and terminal Responses.
type Server struct {
	log        commonlog.Logger
	socketPath string
	disp       *dispatcher.Dispatcher
}

// New builds a Server listening at socketPath once Run is called.
func New(log commonlog.Logger, socketPath string, disp *dispatcher.Dispatcher) *Server {
	return &Server{log: log, socketPath: socketPath, disp: disp}
}

// Run listens on the control socket and serves connections until ctx is
// cancelled, at which point it stops accepting and waits, before
// returning, for every open connection to be closed by its peer and for
// that connection's in-flight requests to finish; cancellation does not
// close open connections.
func (s *Server) Run(ctx context.Context) error {
	if err := os.RemoveAll(s.socketPath); err != nil {
		return errors.Wrap(err, "server: clear stale socket")
	}
	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return errors.Wrap(err, "server: listen")
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var conns sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			conns.Wait()
			select {
			case <-ctx.Done():
				return nil
			default:
				return errors.Wrap(err, "server: accept")
			}
		}

		conns.Add(1)
		go func() {
			defer conns.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

// serveConn reads length-framed Requests off conn until it errors or
// closes, dispatching each in its own goroutine so a long fan-out or an
// open SUBSCRIBE_EVENTS stream never blocks a sibling request on the same
// connection (spec §5 "responses to distinct Requests may interleave").
// Every Response, interim or terminal, is written back through one
// mutex-guarded Framer so concurrent writers on this connection never
// interleave their frame bytes.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	framer := wire.NewFramer(conn)

	var writeMu sync.Mutex
	write := func(resp wire.Response) {
		payload, err := wire.EncodeResponse(resp)
		if err != nil {
			s.log.Errorf("server: encode response %s: %s", resp.ID, err)
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := framer.WriteFrame(payload); err != nil {
			s.log.Errorf("server: write frame: %s", err)
		}
	}

	var requests sync.WaitGroup
	defer requests.Wait()

	for {
		payload, err := framer.ReadFrame()
		if err != nil {
			return
		}

		req, err := wire.DecodeRequest(payload)
		if err != nil {
			write(wire.Err(req.ID, err))
			continue
		}

		requests.Add(1)
		go func(req wire.Request) {
			defer requests.Done()
			write(s.disp.Handle(ctx, req, write))
		}(req)
	}
}
