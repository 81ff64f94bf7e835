package models

// View is a console destination.
type View int

const (
	ViewRoot View = iota
	ViewLogin
	ViewDashboard
	ViewRegisterUser
	ViewPlaceOrder
	ViewTrades
	ViewChart
)

var viewPaths = map[View]string{
	ViewRoot:         "/",
	ViewLogin:        "/admin_login",
	ViewDashboard:    "/admin_dashboard",
	ViewRegisterUser: "/register_user",
	ViewPlaceOrder:   "/place_order",
	ViewTrades:       "/trades",
	ViewChart:        "/chart",
}

var viewNames = map[View]string{
	ViewRoot:         "root",
	ViewLogin:        "login",
	ViewDashboard:    "dashboard",
	ViewRegisterUser: "register_user",
	ViewPlaceOrder:   "place_order",
	ViewTrades:       "trades",
	ViewChart:        "chart",
}

// ProtectedViews are reachable only with an authenticated session.
var ProtectedViews = []View{ViewDashboard, ViewRegisterUser, ViewPlaceOrder, ViewTrades, ViewChart}

// Path returns the URL path of the view.
func (v View) Path() string { return viewPaths[v] }

func (v View) String() string {
	if n, ok := viewNames[v]; ok {
		return n
	}
	return "unknown"
}

// Protected reports whether v needs an authenticated session.
func (v View) Protected() bool {
	for _, p := range ProtectedViews {
		if p == v {
			return true
		}
	}
	return false
}
