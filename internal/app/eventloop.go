package app

import (
	"context"
	"errors"

	"github.com/dshills/dashwire/internal/runtime"
)

// startInbound pumps inbound transport messages into the runtime so that
// ws.onMessage handlers see them.
func (s *Session) startInbound() {
	ctx, cancel := context.WithCancel(context.Background())
	s.inboundCancel = cancel
	s.inboundDone = make(chan struct{})

	msgs, err := s.transport.Receive(ctx)
	if err != nil {
		s.logger.Warn("inbound messages disabled: %v", err)
		close(s.inboundDone)
		return
	}

	go func() {
		defer close(s.inboundDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					s.logger.Debug("inbound stream ended")
					return
				}
				s.metrics.observeInbound()
				if err := s.runtime.DeliverMessage(msg); err != nil {
					if errors.Is(err, runtime.ErrClosed) {
						return
					}
					s.logger.Warn("deliver message %s: %v", msg.ID, err)
				}
			}
		}
	}()
}

func (s *Session) stopInbound() {
	if s.inboundCancel == nil {
		return
	}
	s.inboundCancel()
	<-s.inboundDone
}
