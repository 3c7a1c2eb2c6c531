// Package notify pushes fired alerts to external consumers over an NNG
// pub socket. SOC tooling subscribes with any nanomsg-compatible SUB
// client; when nothing is connected, alerts are simply dropped on the
// floor (persistence is the alert store's job, not the notifier's).
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/dd0wney/cluso-sentinel/pkg/logging"
	"github.com/dd0wney/cluso-sentinel/pkg/model"
	"github.com/dd0wney/cluso-sentinel/pkg/pubsub"
)

// Notifier bridges the in-process alert bus to an NNG pub socket.
type Notifier struct {
	sock   mangos.Socket
	logger logging.Logger

	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewNotifier opens a pub socket listening on addr, e.g.
// "tcp://0.0.0.0:5555" or "ipc:///tmp/sentinel-alerts.ipc".
func NewNotifier(addr string, logger logging.Logger) (*Notifier, error) {
	sock, err := pub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create pub socket: %w", err)
	}
	if err := sock.Listen(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return &Notifier{
		sock:   sock,
		logger: logger,
		done:   make(chan struct{}),
	}, nil
}

// Run subscribes to the alert topic on the bus and forwards every alert
// until Stop is called or the bus shuts down.
func (n *Notifier) Run(bus *pubsub.PubSub, topic string) {
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel

	sub := bus.Subscribe(ctx, topic)
	if sub == nil {
		close(n.done)
		return
	}

	go func() {
		defer close(n.done)
		for alert := range sub.Channel() {
			n.send(alert)
		}
	}()
}

func (n *Notifier) send(alert model.Alert) {
	data, err := json.Marshal(alert)
	if err != nil {
		n.logger.Error("failed to marshal alert for notify", logging.Error(err))
		return
	}
	if err := n.sock.Send(data); err != nil {
		n.logger.Warn("failed to publish alert",
			logging.String("alert_id", alert.ID),
			logging.Error(err),
		)
	}
}

// Stop stops forwarding and closes the socket.
func (n *Notifier) Stop() error {
	var err error
	n.stopOnce.Do(func() {
		if n.cancel != nil {
			n.cancel()
			<-n.done
		}
		err = n.sock.Close()
	})
	return err
}
