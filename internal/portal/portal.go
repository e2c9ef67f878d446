// Package portal negotiates screen capture with xdg-desktop-portal over D-Bus.
package portal

import (
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
)

const (
	BusName             = "org.freedesktop.portal.Desktop"
	ObjectPath          = dbus.ObjectPath("/org/freedesktop/portal/desktop")
	ScreenCastInterface = "org.freedesktop.portal.ScreenCast"
	RequestInterface    = "org.freedesktop.portal.Request"
	SessionInterface    = "org.freedesktop.portal.Session"

	requestPathPrefix = "/org/freedesktop/portal/desktop/request/"
	handleTokenPrefix = "kartoza_"
)

// Response codes of org.freedesktop.portal.Request.Response
const (
	ResponseSuccess   uint32 = 0
	ResponseCancelled uint32 = 1
	ResponseEnded     uint32 = 2
)

// NewHandleToken returns a token unique to this process, valid as an
// object path element
func NewHandleToken() string {
	return handleTokenPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// RequestPath is the object path the portal uses for a request made by
// sender with token
func RequestPath(sender, token string) dbus.ObjectPath {
	sender = strings.TrimPrefix(sender, ":")
	sender = strings.ReplaceAll(sender, ".", "_")
	return dbus.ObjectPath(requestPathPrefix + sender + "/" + token)
}
