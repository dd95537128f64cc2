package workflow

import "strings"

// Navigation targets.
const (
	RouteHome               = "/"
	RouteImeiCheck          = "/imei-check"
	RouteLogin              = "/login"
	RouteSignup             = "/signup"
	RouteForgotPassword     = "/forgot-password"
	RouteHelp               = "/help"
	RoutePrivacyPolicy      = "/help/privacy-policy"
	RouteTerms              = "/terms"
	RouteAbout              = "/about-us"
	RouteDeviceRegistration = "/device-registration"
	RouteTransferOwnership  = "/transfer-ownership"
	RouteProfile            = "/profile"
	RouteCreditBalance      = "/profile/credit-balance"
	RouteSecurity           = "/profile/security"
	RouteDocuments          = "/profile/documents"
	RouteDashboard          = "/profile/dashboard"
	RouteMyDevices          = "/profile/dashboard/devices"
	RouteImeiStatus         = "/profile/dashboard/imei-status"
	RouteSearchHistory      = "/profile/dashboard/search-history"
	RouteTransactions       = "/profile/transactions"
)

var (
	publicRoutes = map[string]bool{
		RouteHome: true, RouteImeiCheck: true, RouteLogin: true, RouteSignup: true,
		RouteForgotPassword: true, RouteHelp: true, RoutePrivacyPolicy: true,
		RouteTerms: true, RouteAbout: true,
	}
	protectedRoutes = map[string]bool{
		RouteDeviceRegistration: true, RouteTransferOwnership: true, RouteProfile: true,
		RouteCreditBalance: true, RouteSecurity: true, RouteDocuments: true,
		RouteDashboard: true, RouteMyDevices: true, RouteImeiStatus: true,
		RouteSearchHistory: true, RouteTransactions: true,
	}
)

// RouteGuard decides where a navigation actually lands.
type RouteGuard struct{}

// IsProtected reports whether path requires a signed-in user.
func (RouteGuard) IsProtected(path string) bool {
	return protectedRoutes[normalizePath(path)]
}

// Resolve returns the route to show for path. Unknown paths land on the
// home page; protected paths send anonymous visitors to the login page.
func (g RouteGuard) Resolve(path string, authenticated bool) string {
	path = normalizePath(path)
	switch {
	case publicRoutes[path]:
		return path
	case protectedRoutes[path]:
		if !authenticated {
			return RouteLogin
		}
		return path
	default:
		return RouteHome
	}
}

func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if path == "" {
		return RouteHome
	}
	return path
}
