package httpx

import (
	"net"
	"net/http"
	"strings"
)

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformMac     Platform = "mac"
	PlatformWindows Platform = "win"
	PlatformLinux   Platform = "linux"
	PlatformWeb     Platform = "web"
	PlatformDesktop Platform = "desktop"
)

const (
	HeaderDeviceID   = "X-Device-Id"
	HeaderDeviceName = "X-Device-Name"
	HeaderPlatform   = "X-Client-Platform"
	HeaderAppVersion = "X-App-Version"
)

type DeviceMeta struct {
	DeviceID   string   `header:"X-Device-Id"      validate:"omitempty,min=8,max=128"` // allow UUID/ULID/custom
	DeviceName string   `header:"X-Device-Name"    validate:"omitempty,min=1,max=64"`  // human label
	Platform   Platform `header:"X-Client-Platform" validate:"omitempty,oneof=ios android mac win linux web desktop"`
	AppVersion string   `header:"X-App-Version"    validate:"omitempty,min=1,max=32"` // optional semantic version
	UserAgent  string   `header:"-"                validate:"omitempty,max=256"`      // from r.UserAgent()
	IP         string   `header:"-"                validate:"omitempty,max=64"`       // derived from X-Forwarded-For/RemoteAddr
}

func DeviceMetaFromRequest(r *http.Request) DeviceMeta {
	return DeviceMeta{
		DeviceID:   r.Header.Get(HeaderDeviceID),
		DeviceName: r.Header.Get(HeaderDeviceName),
		Platform:   Platform(strings.ToLower(r.Header.Get(HeaderPlatform))),
		AppVersion: r.Header.Get(HeaderAppVersion),
		UserAgent:  r.UserAgent(),
		IP:         clientIP(r),
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
