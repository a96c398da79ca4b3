package session

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/login"

// Navigator changes the current view.
type Navigator interface {
	Navigate(path string)
}

// Decision is the outcome of a guard check.
type Decision struct {
	Allow      bool
	RedirectTo string
}

// Guard gates protected views on the manager state.
type Guard struct {
	manager *Manager
}

// NewGuard wraps m.
func NewGuard(m *Manager) *Guard {
	return &Guard{manager: m}
}

// Decide maps a state onto a decision. While loading nothing is rendered and
// no redirect happens.
func Decide(s State) Decision {
	switch {
	case s.Loading:
		return Decision{}
	case s.User == nil:
		return Decision{RedirectTo: LoginPath}
	default:
		return Decision{Allow: true}
	}
}

// Render runs children when authenticated, redirects through nav when not.
// It reports whether children ran.
func (g *Guard) Render(nav Navigator, children func()) bool {
	decision := Decide(g.manager.State())
	if decision.RedirectTo != "" {
		nav.Navigate(decision.RedirectTo)
		return false
	}
	if !decision.Allow {
		return false
	}
	children()
	return true
}
