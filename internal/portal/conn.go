package portal

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/xaionaro-go/xsync"
)

// SignalKind tells what ended a pending request
type SignalKind int

const (
	SignalResponse SignalKind = iota + 1
	SignalBrokerLost
)

// Signal is either a Request.Response or the loss of the broker
type Signal struct {
	Kind    SignalKind
	Code    uint32
	Results map[string]dbus.Variant
}

func (s Signal) String() string {
	if s.Kind == SignalBrokerLost {
		return "broker-lost"
	}
	return fmt.Sprintf("response(%d)", s.Code)
}

// Conn is the part of the session bus the negotiator needs
type Conn interface {
	// UniqueName is our own bus name, used to predict request paths
	UniqueName() string
	// Call invokes a method on the portal object at path and returns the reply body
	Call(ctx context.Context, path dbus.ObjectPath, method string, args ...any) ([]any, error)
	// Property reads a property of the portal object
	Property(ctx context.Context, name string) (dbus.Variant, error)
	// WatchRequest subscribes to the Response signal of a request object
	// and to the loss of the broker. It must be called before the request
	// is issued.
	WatchRequest(ctx context.Context, path dbus.ObjectPath) (*Watch, error)
}

// Watch receives the signals relevant to one pending request
type Watch struct {
	Path dbus.ObjectPath
	C    <-chan Signal

	ch   chan Signal
	stop func()
}

// Stop unsubscribes and returns the signals nobody consumed
func (w *Watch) Stop() []Signal {
	if w.stop != nil {
		w.stop()
		w.stop = nil
	}
	var late []Signal
	for {
		select {
		case s := <-w.ch:
			late = append(late, s)
		default:
			return late
		}
	}
}

// watchRegistry dispatches signals to watches by request path
type watchRegistry struct {
	locker  xsync.Mutex
	watches map[*Watch]struct{}
}

func (r *watchRegistry) add(ctx context.Context, path dbus.ObjectPath, onStop func()) *Watch {
	ch := make(chan Signal, 4)
	w := &Watch{Path: path, C: ch, ch: ch}
	w.stop = func() {
		r.locker.Do(ctx, func() {
			delete(r.watches, w)
		})
		if onStop != nil {
			onStop()
		}
	}
	r.locker.Do(ctx, func() {
		if r.watches == nil {
			r.watches = map[*Watch]struct{}{}
		}
		r.watches[w] = struct{}{}
	})
	return w
}

// deliver sends s to the watches of path; a nil path means every watch
func (r *watchRegistry) deliver(ctx context.Context, path *dbus.ObjectPath, s Signal) int {
	return xsync.DoR1(ctx, &r.locker, func() int {
		n := 0
		for w := range r.watches {
			if path != nil && w.Path != *path {
				continue
			}
			select {
			case w.ch <- s:
				n++
			default:
			}
		}
		return n
	})
}

func (r *watchRegistry) len(ctx context.Context) int {
	return xsync.DoR1(ctx, &r.locker, func() int {
		return len(r.watches)
	})
}
