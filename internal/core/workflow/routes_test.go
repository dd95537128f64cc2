package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteGuard_Resolve(t *testing.T) {
	var g RouteGuard

	tests := []struct {
		path   string
		authed bool
		want   string
	}{
		{"/", false, RouteHome},
		{"", false, RouteHome},
		{"/imei-check", false, RouteImeiCheck},
		{"/imei-check?imei=123", false, RouteImeiCheck},
		{"/device-registration", false, RouteLogin},
		{"/device-registration", true, RouteDeviceRegistration},
		{"/transfer-ownership", false, RouteLogin},
		{"/profile/dashboard/devices/", false, RouteLogin},
		{"/profile/dashboard/devices/", true, RouteMyDevices},
		{"/nowhere", true, RouteHome},
		{"/nowhere", false, RouteHome},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, g.Resolve(tt.path, tt.authed), "%s authed=%v", tt.path, tt.authed)
	}

	assert.True(t, g.IsProtected("/profile"))
	assert.False(t, g.IsProtected("/login"))
}
