package notify

import (
	"encoding/json"
	"testing"
	"time"

	"go.nanomsg.org/mangos/v3/protocol/sub"

	"github.com/dd0wney/cluso-sentinel/pkg/logging"
	"github.com/dd0wney/cluso-sentinel/pkg/model"
	"github.com/dd0wney/cluso-sentinel/pkg/pubsub"
)

func testAlert() model.Alert {
	return model.NewAlert(model.DetectionResult{
		DetectionType: model.DetectPrivilegeEscalation,
		Severity:      model.SeverityHigh,
		HostID:        "host:web-01",
		Description:   "Privilege escalation detected",
	})
}

func TestNotifier_ForwardsAlertsToSubscriber(t *testing.T) {
	addr := "inproc://notify-forward-test"
	n, err := NewNotifier(addr, logging.Nop{})
	if err != nil {
		t.Fatalf("NewNotifier() error = %v", err)
	}
	defer n.Stop()

	client, err := sub.NewSocket()
	if err != nil {
		t.Fatalf("sub.NewSocket() error = %v", err)
	}
	defer client.Close()
	if err := client.Dial(addr); err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if err := client.SetOption("SUBSCRIBE", []byte("")); err != nil {
		t.Fatalf("SetOption(SUBSCRIBE) error = %v", err)
	}
	// Let the inproc pipe attach before publishing.
	time.Sleep(50 * time.Millisecond)

	bus := pubsub.New()
	defer bus.Shutdown()
	n.Run(bus, "alerts")

	want := testAlert()
	bus.Publish("alerts", want)

	recvDone := make(chan []byte, 1)
	go func() {
		data, err := client.Recv()
		if err != nil {
			return
		}
		recvDone <- data
	}()

	select {
	case data := <-recvDone:
		var got model.Alert
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("published alert is not valid JSON: %v", err)
		}
		if got.ID != want.ID {
			t.Errorf("received alert ID = %s, want %s", got.ID, want.ID)
		}
		if got.DetectionType != want.DetectionType {
			t.Errorf("received detection = %s, want %s", got.DetectionType, want.DetectionType)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no alert received on the sub socket")
	}
}

func TestNotifier_StopIdempotent(t *testing.T) {
	n, err := NewNotifier("inproc://notify-stop-test", logging.Nop{})
	if err != nil {
		t.Fatalf("NewNotifier() error = %v", err)
	}

	bus := pubsub.New()
	defer bus.Shutdown()
	n.Run(bus, "alerts")

	if err := n.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := n.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestNotifier_ListenFailure(t *testing.T) {
	if _, err := NewNotifier("bogus://not-a-transport", logging.Nop{}); err == nil {
		t.Fatal("NewNotifier() with invalid address succeeded, want error")
	}
}
