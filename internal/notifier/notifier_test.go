package notifier

import (
	"testing"
	"time"

	"github.com/arjunv/wavesyncdb/internal/messages"
)

func TestNotifier_PublishDelivers(t *testing.T) {
	n := New()
	ch, unsub := n.Subscribe()
	defer unsub()

	note := messages.ChangeNotification{Table: "tasks", Kind: messages.KindInsert, PrimaryKey: "1"}
	n.Publish(note)

	select {
	case got := <-ch:
		if got != note {
			t.Errorf("got %+v, want %+v", got, note)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestNotifier_MultipleSubscribers(t *testing.T) {
	n := New()
	ch1, unsub1 := n.Subscribe()
	defer unsub1()
	ch2, unsub2 := n.Subscribe()
	defer unsub2()

	note := messages.ChangeNotification{Table: "tasks", Kind: messages.KindUpdate, PrimaryKey: "2"}
	n.Publish(note)

	for _, ch := range []<-chan messages.ChangeNotification{ch1, ch2} {
		select {
		case got := <-ch:
			if got != note {
				t.Errorf("got %+v, want %+v", got, note)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for notification")
		}
	}
}

func TestNotifier_UnsubscribeClosesChannel(t *testing.T) {
	n := New()
	ch, unsub := n.Subscribe()
	unsub()

	_, ok := <-ch
	if ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
}

func TestNotifier_DoesNotBlockOnFullSubscriber(t *testing.T) {
	n := New()
	_, unsub := n.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultBuffer+10; i++ {
			n.Publish(messages.ChangeNotification{Table: "t", PrimaryKey: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber buffer")
	}
}
