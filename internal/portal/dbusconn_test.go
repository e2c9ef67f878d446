package portal

import (
	"context"
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey struct{}

// fakeObject records the method calls made on it
type fakeObject struct {
	dbus.BusObject

	ctx    context.Context
	method string
	args   []any
	reply  *dbus.Call
}

func (o *fakeObject) CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call {
	o.ctx = ctx
	o.method = method
	o.args = args
	if err := ctx.Err(); err != nil {
		return &dbus.Call{Err: err}
	}
	return o.reply
}

func TestGetProperty(t *testing.T) {
	ctx := context.WithValue(context.Background(), ctxKey{}, "caller")
	obj := &fakeObject{reply: &dbus.Call{Body: []any{dbus.MakeVariant(uint32(5))}}}

	v, err := getProperty(ctx, obj, ScreenCastInterface+".AvailableSourceTypes")
	require.NoError(t, err)
	assert.Equal(t, uint32(5), v.Value())

	assert.Equal(t, "caller", obj.ctx.Value(ctxKey{}))
	assert.Equal(t, propertiesGet, obj.method)
	assert.Equal(t, []any{ScreenCastInterface, "AvailableSourceTypes"}, obj.args)
}

func TestGetPropertyHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := getProperty(ctx, &fakeObject{}, ScreenCastInterface+".version")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestGetPropertyInvalidName(t *testing.T) {
	for _, name := range []string{"version", ".version", "org.freedesktop.portal.ScreenCast."} {
		obj := &fakeObject{}
		_, err := getProperty(context.Background(), obj, name)
		assert.Error(t, err, name)
		assert.Empty(t, obj.method, name)
	}
}
