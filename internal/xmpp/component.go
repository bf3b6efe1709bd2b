package xmpp

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"gosrc.io/xmpp"
	"gosrc.io/xmpp/stanza"

	"github.com/worklog-bot/worklog/internal/config"
)

// ErrNotConnected is returned by Send while the component has no stream.
var ErrNotConnected = errors.New("xmpp component not connected")

// Component is the bot's XMPP external component (XEP-0114). It answers on
// the component domain, so every bare JID may talk to it.
type Component struct {
	sm        *xmpp.StreamManager
	comp      *xmpp.Component
	domain    string
	connected atomic.Bool
}

// NewComponent creates the component and routes stanzas to handler.
func NewComponent(cfg config.XMPPConfig, handler *Handler) (*Component, error) {
	router := xmpp.NewRouter()
	router.HandleFunc("message", handler.HandleMessage)
	router.HandleFunc("presence", handler.HandlePresence)
	router.HandleFunc("iq", handler.HandleIQ)

	c := &Component{domain: cfg.ComponentName}

	opts := xmpp.ComponentOptions{
		TransportConfiguration: xmpp.TransportConfiguration{
			Address: cfg.ComponentAddr(),
			Domain:  cfg.ComponentName,
		},
		Domain:   cfg.ComponentName,
		Secret:   cfg.ComponentSecret,
		Name:     "Worklog Bot",
		Category: "client",
		Type:     "bot",
	}

	comp, err := xmpp.NewComponent(opts, router, func(err error) {
		c.connected.Store(false)
		slog.Error("XMPP component error", "error", err, "domain", cfg.ComponentName)
	})
	if err != nil {
		return nil, err
	}
	c.comp = comp

	c.sm = xmpp.NewStreamManager(comp, func(xmpp.Sender) {
		c.connected.Store(true)
		slog.Info("XMPP component connected", "domain", cfg.ComponentName)
	})

	return c, nil
}

// Start connects and keeps the stream up. It blocks until ctx is cancelled
// or the stream manager gives up.
func (c *Component) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.sm.Run()
	}()

	select {
	case <-ctx.Done():
		c.Stop()
		return nil
	case err := <-errCh:
		c.connected.Store(false)
		return err
	}
}

// Send delivers a stanza, failing fast while disconnected so that callers
// can retry later.
func (c *Component) Send(packet stanza.Packet) error {
	if !c.connected.Load() {
		return ErrNotConnected
	}
	return c.comp.Send(packet)
}

// Connected reports whether the component stream is up.
func (c *Component) Connected() bool {
	return c.connected.Load()
}

// Stop disconnects the XMPP component.
func (c *Component) Stop() {
	c.connected.Store(false)
	c.sm.Stop()
}
