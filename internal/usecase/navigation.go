package usecase

import (
	"BrokerConsole/internal/domain/models"
	drepo "BrokerConsole/internal/domain/repository"
)

// Decision is the outcome of gating one navigation.
type Decision struct {
	// View is what to show, or where to go when Redirect is set.
	View     models.View
	Redirect bool
	// Replace means the redirect must not add a history entry.
	Replace bool
}

func render(v models.View) Decision   { return Decision{View: v} }
func redirect(v models.View) Decision { return Decision{View: v, Redirect: true, Replace: true} }

// Guard decides what a navigation to view resolves to for the given session
// state. It never mutates the session.
func Guard(view models.View, authenticated bool) Decision {
	switch {
	case view == models.ViewRoot:
		if authenticated {
			return render(models.ViewDashboard)
		}
		return render(models.ViewLogin)
	case view == models.ViewLogin:
		if authenticated {
			return redirect(models.ViewDashboard)
		}
		return render(models.ViewLogin)
	case view.Protected() && !authenticated:
		return redirect(models.ViewLogin)
	default:
		return render(view)
	}
}

// NavigationGate applies Guard against the live session.
type NavigationGate struct {
	session drepo.SessionStore
}

// NewNavigationGate creates a gate reading session.
func NewNavigationGate(session drepo.SessionStore) *NavigationGate {
	return &NavigationGate{session: session}
}

// Resolve gates a navigation to view.
func (g *NavigationGate) Resolve(view models.View) Decision {
	return Guard(view, g.session.IsAuthenticated())
}

// Authenticated reports the current session state.
func (g *NavigationGate) Authenticated() bool {
	return g.session.IsAuthenticated()
}
