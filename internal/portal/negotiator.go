package portal

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/godbus/dbus/v5"
	"github.com/xaionaro-go/observability"

	"github.com/kartoza/kartoza-portal-recorder/internal/models"
	"github.com/kartoza/kartoza-portal-recorder/internal/recerr"
)

// closeTimeout bounds a background session close
const closeTimeout = 5 * time.Second

// Negotiator runs the ScreenCast request/response protocol
type Negotiator struct {
	conn Conn
}

// NewNegotiator returns a negotiator talking over conn
func NewNegotiator(conn Conn) *Negotiator {
	return &Negotiator{conn: conn}
}

// request issues a portal method that answers through a Request object
// and waits for the first of the Response signal and the broker loss.
func (n *Negotiator) request(ctx context.Context, op, method string, options map[string]dbus.Variant, args ...any) (map[string]dbus.Variant, error) {
	token := NewHandleToken()
	options["handle_token"] = dbus.MakeVariant(token)
	path := RequestPath(n.conn.UniqueName(), token)

	watch, err := n.conn.WatchRequest(ctx, path)
	if err != nil {
		return nil, recerr.Broker(op, err)
	}
	watches := []*Watch{watch}
	defer func() {
		for _, w := range watches {
			for _, late := range w.Stop() {
				logger.Debugf(ctx, "%s: ignoring %s that arrived after the request resolved", op, late)
			}
		}
	}()

	body, err := n.conn.Call(ctx, ObjectPath, ScreenCastInterface+"."+method, append(args, options)...)
	if err != nil {
		return nil, recerr.Broker(op, err)
	}
	if len(body) > 0 {
		if handle, ok := body[0].(dbus.ObjectPath); ok && handle != path {
			logger.Warnf(ctx, "%s: broker uses request path %s instead of %s", op, handle, path)
			extra, err := n.conn.WatchRequest(ctx, handle)
			if err != nil {
				return nil, recerr.Broker(op, err)
			}
			watches = append(watches, extra)
		}
	}

	var other <-chan Signal
	if len(watches) > 1 {
		other = watches[1].C
	}
	var sig Signal
	select {
	case sig = <-watch.C:
	case sig = <-other:
	case <-ctx.Done():
		return nil, recerr.Wrap(ctx.Err(), recerr.KindCancelled, op)
	}
	logger.Debugf(ctx, "%s resolved with %s", op, sig)

	if sig.Kind == SignalBrokerLost {
		return nil, recerr.BrokerLost(op)
	}
	switch sig.Code {
	case ResponseSuccess:
		if sig.Results == nil {
			sig.Results = map[string]dbus.Variant{}
		}
		return sig.Results, nil
	case ResponseCancelled:
		return nil, recerr.UserCancelled(op)
	case ResponseEnded:
		return nil, recerr.BrokerEndedUnexpectedly(op)
	default:
		return nil, recerr.Broker(op, fmt.Errorf("unknown response code %d", sig.Code))
	}
}

func (n *Negotiator) property(ctx context.Context, name string) (uint32, error) {
	v, err := n.conn.Property(ctx, ScreenCastInterface+"."+name)
	if err != nil {
		return 0, recerr.Broker("read "+name, err)
	}
	u, ok := v.Value().(uint32)
	if !ok {
		return 0, recerr.Broker("read "+name, fmt.Errorf("unexpected type %s", v.Signature()))
	}
	return u, nil
}

// Version returns the ScreenCast interface version
func (n *Negotiator) Version(ctx context.Context) (uint32, error) {
	return n.property(ctx, "version")
}

// AvailableSourceTypes returns what the broker can capture
func (n *Negotiator) AvailableSourceTypes(ctx context.Context) (models.SourceType, error) {
	v, err := n.property(ctx, "AvailableSourceTypes")
	return models.SourceType(v), err
}

// AvailableCursorModes returns how the broker can render the pointer
func (n *Negotiator) AvailableCursorModes(ctx context.Context) (models.CursorMode, error) {
	v, err := n.property(ctx, "AvailableCursorModes")
	return models.CursorMode(v), err
}

// CreateSession opens a capture session
func (n *Negotiator) CreateSession(ctx context.Context) (*Session, error) {
	const op = "create session"

	results, err := n.request(ctx, op, "CreateSession", map[string]dbus.Variant{
		"session_handle_token": dbus.MakeVariant(NewHandleToken()),
	})
	if err != nil {
		return nil, err
	}
	handle := variantString(results, "session_handle")
	if handle == "" {
		return nil, recerr.Broker(op, fmt.Errorf("no session handle in the response"))
	}
	logger.Debugf(ctx, "created session %s", handle)
	return newSession(dbus.ObjectPath(handle)), nil
}

// SelectSources tells the broker what the user may pick
func (n *Negotiator) SelectSources(ctx context.Context, s *Session, opts models.CaptureOptions) error {
	options := map[string]dbus.Variant{
		"types":        dbus.MakeVariant(uint32(opts.SourceTypes)),
		"multiple":     dbus.MakeVariant(opts.AllowMultiple),
		"cursor_mode":  dbus.MakeVariant(uint32(opts.CursorMode)),
		"persist_mode": dbus.MakeVariant(uint32(opts.PersistMode)),
	}
	if opts.RestoreToken != "" {
		options["restore_token"] = dbus.MakeVariant(opts.RestoreToken)
	}
	_, err := n.request(ctx, "select sources", "SelectSources", options, s.Handle)
	return err
}

// Start shows the broker dialog and returns the granted streams and the
// restore token, empty when the broker did not send one
func (n *Negotiator) Start(ctx context.Context, s *Session, parentWindow string) ([]models.Stream, string, error) {
	const op = "start"

	results, err := n.request(ctx, op, "Start", map[string]dbus.Variant{}, s.Handle, parentWindow)
	if err != nil {
		return nil, "", err
	}
	v, ok := results["streams"]
	if !ok {
		return nil, "", recerr.Broker(op, fmt.Errorf("no streams in the response"))
	}
	streams, err := decodeStreams(v)
	if err != nil {
		return nil, "", recerr.Broker(op, err)
	}
	if len(streams) == 0 {
		return nil, "", recerr.Broker(op, fmt.Errorf("the broker granted no streams"))
	}
	return streams, variantString(results, "restore_token"), nil
}

// OpenTransferHandle returns the descriptor to read the streams from
func (n *Negotiator) OpenTransferHandle(ctx context.Context, s *Session) (*TransferHandle, error) {
	const op = "open pipewire remote"

	body, err := n.conn.Call(ctx, ObjectPath, ScreenCastInterface+".OpenPipeWireRemote", s.Handle, map[string]dbus.Variant{})
	if err != nil {
		return nil, recerr.Broker(op, err)
	}
	if len(body) == 0 {
		return nil, recerr.Broker(op, fmt.Errorf("empty reply"))
	}
	fd, ok := body[0].(dbus.UnixFD)
	if !ok {
		return nil, recerr.Broker(op, fmt.Errorf("unexpected reply type %T", body[0]))
	}
	return NewTransferHandle(os.NewFile(uintptr(fd), "pipewire-remote")), nil
}

// Close ends the session. Closing twice is a no-op.
func (n *Negotiator) Close(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	return s.open.Release(ctx, func(handle dbus.ObjectPath) error {
		if _, err := n.conn.Call(ctx, handle, SessionInterface+".Close"); err != nil {
			return recerr.Broker("close session", err)
		}
		logger.Debugf(ctx, "closed session %s", handle)
		return nil
	})
}

// CloseInBackground closes the session without waiting; failures are logged
func (n *Negotiator) CloseInBackground(ctx context.Context, s *Session) {
	if s == nil {
		return
	}
	observability.Go(ctx, func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if err := n.Close(ctx, s); err != nil {
			logger.Warnf(ctx, "failed to close the capture session: %v", err)
		}
	})
}

// Negotiate runs create, select, start and open in order. On failure the
// session, if any, is closed in the background.
func (n *Negotiator) Negotiate(ctx context.Context, opts models.CaptureOptions, parentWindow string) (_ *NegotiationResult, _err error) {
	if v, err := n.Version(ctx); err == nil {
		logger.Debugf(ctx, "screencast portal version %d", v)
	}
	if v, err := n.AvailableSourceTypes(ctx); err == nil {
		logger.Debugf(ctx, "available source types: %s", v)
	}
	if v, err := n.AvailableCursorModes(ctx); err == nil {
		logger.Debugf(ctx, "available cursor modes: %s", v)
	}

	session, err := n.CreateSession(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if _err != nil {
			n.CloseInBackground(ctx, session)
		}
	}()

	if err := n.SelectSources(ctx, session, opts); err != nil {
		return nil, err
	}
	streams, restoreToken, err := n.Start(ctx, session, parentWindow)
	if err != nil {
		return nil, err
	}
	logger.Debugf(ctx, "granted streams: %+v", streams)

	transfer, err := n.OpenTransferHandle(ctx, session)
	if err != nil {
		return nil, err
	}
	return &NegotiationResult{
		Session:      session,
		Streams:      streams,
		Transfer:     transfer,
		RestoreToken: restoreToken,
	}, nil
}
