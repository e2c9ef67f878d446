package portal

import (
	"context"
	"fmt"
	"strings"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/godbus/dbus/v5"
	"github.com/xaionaro-go/observability"
)

const (
	propertiesGet    = "org.freedesktop.DBus.Properties.Get"
	nameOwnerChanged = "org.freedesktop.DBus.NameOwnerChanged"
	responseSignal   = RequestInterface + ".Response"
)

// DBusConn is a Conn on the session bus
type DBusConn struct {
	conn     *dbus.Conn
	signals  chan *dbus.Signal
	registry watchRegistry
	cancel   context.CancelFunc
}

var _ Conn = (*DBusConn)(nil)

// Dial connects to the session bus and starts routing portal signals
func Dial(ctx context.Context) (*DBusConn, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the session bus: %w", err)
	}

	err = conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, BusName),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to watch the portal bus name: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &DBusConn{
		conn:    conn,
		signals: make(chan *dbus.Signal, 32),
		cancel:  cancel,
	}
	conn.Signal(c.signals)

	observability.Go(ctx, func(ctx context.Context) {
		c.route(ctx)
	})
	return c, nil
}

func (c *DBusConn) route(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-c.signals:
			if !ok {
				return
			}
			c.dispatch(ctx, sig)
		}
	}
}

func (c *DBusConn) dispatch(ctx context.Context, sig *dbus.Signal) {
	switch sig.Name {
	case nameOwnerChanged:
		if len(sig.Body) < 3 {
			return
		}
		name, _ := sig.Body[0].(string)
		newOwner, _ := sig.Body[2].(string)
		if name != BusName || newOwner != "" {
			return
		}
		n := c.registry.deliver(ctx, nil, Signal{Kind: SignalBrokerLost})
		logger.Warnf(ctx, "%s left the bus, failing %d pending requests", BusName, n)

	case responseSignal:
		if len(sig.Body) < 2 {
			logger.Warnf(ctx, "malformed response on %s: %v", sig.Path, sig.Body)
			return
		}
		code, _ := sig.Body[0].(uint32)
		results, _ := sig.Body[1].(map[string]dbus.Variant)
		path := sig.Path
		if c.registry.deliver(ctx, &path, Signal{Kind: SignalResponse, Code: code, Results: results}) == 0 {
			logger.Debugf(ctx, "response on %s has no pending request", sig.Path)
		}
	}
}

// UniqueName implements Conn
func (c *DBusConn) UniqueName() string {
	names := c.conn.Names()
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// Call implements Conn
func (c *DBusConn) Call(ctx context.Context, path dbus.ObjectPath, method string, args ...any) ([]any, error) {
	call := c.conn.Object(BusName, path).CallWithContext(ctx, method, 0, args...)
	if call.Err != nil {
		return nil, call.Err
	}
	return call.Body, nil
}

// Property implements Conn
func (c *DBusConn) Property(ctx context.Context, name string) (dbus.Variant, error) {
	return getProperty(ctx, c.conn.Object(BusName, ObjectPath), name)
}

// getProperty reads "interface.Property" from obj, bounded by ctx
func getProperty(ctx context.Context, obj dbus.BusObject, name string) (dbus.Variant, error) {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return dbus.Variant{}, fmt.Errorf("invalid property name %q", name)
	}

	var v dbus.Variant
	call := obj.CallWithContext(ctx, propertiesGet, 0, name[:idx], name[idx+1:])
	if call.Err != nil {
		return dbus.Variant{}, call.Err
	}
	if err := call.Store(&v); err != nil {
		return dbus.Variant{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return v, nil
}

// WatchRequest implements Conn
func (c *DBusConn) WatchRequest(ctx context.Context, path dbus.ObjectPath) (*Watch, error) {
	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(RequestInterface),
		dbus.WithMatchMember("Response"),
	}
	if err := c.conn.AddMatchSignal(opts...); err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", path, err)
	}
	return c.registry.add(ctx, path, func() {
		if err := c.conn.RemoveMatchSignal(opts...); err != nil {
			logger.Debugf(ctx, "failed to unsubscribe from %s: %v", path, err)
		}
	}), nil
}

// Close disconnects from the bus
func (c *DBusConn) Close() error {
	c.cancel()
	c.conn.RemoveSignal(c.signals)
	return c.conn.Close()
}
