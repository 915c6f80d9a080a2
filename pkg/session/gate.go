package session

import (
	"errors"
	"strings"
)

// Known routes.
const (
	RouteLogin     = "/login"
	RouteDashboard = "/dashboard"
	RoutePatients  = "/patients"
)

const maxRedirects = 8

// ErrRedirectLoop is returned by Navigate when redirects do not settle.
var ErrRedirectLoop = errors.New("session: too many redirects")

// RouteClass groups routes by their access rule.
type RouteClass int

const (
	RouteUnknown RouteClass = iota
	RouteProtected
	RoutePublicLogin
)

// GateState is the authentication state the gate decides on.
type GateState int

const (
	GateLoading GateState = iota
	GateAuthenticated
	GateUnauthenticated
)

func (s GateState) String() string {
	switch s {
	case GateLoading:
		return "loading"
	case GateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Decision is what the caller should do with a route.
type Decision int

const (
	DecisionRender Decision = iota
	DecisionRedirect
	DecisionPlaceholder
)

func (d Decision) String() string {
	switch d {
	case DecisionRender:
		return "render"
	case DecisionRedirect:
		return "redirect"
	default:
		return "placeholder"
	}
}

// Outcome pairs a decision with its route: the redirect target for
// DecisionRedirect, the requested route otherwise.
type Outcome struct {
	Decision Decision
	Route    string
}

// NormalizeRoute trims whitespace and trailing slashes; empty becomes "/".
func NormalizeRoute(route string) string {
	route = strings.TrimSpace(route)
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	route = strings.TrimRight(route, "/")
	if route == "" {
		return "/"
	}
	return route
}

// ClassifyRoute returns the access class of route.
func ClassifyRoute(route string) RouteClass {
	switch NormalizeRoute(route) {
	case RouteDashboard, RoutePatients:
		return RouteProtected
	case RouteLogin:
		return RoutePublicLogin
	default:
		return RouteUnknown
	}
}

// Evaluate decides what to do with route in state.
func Evaluate(state GateState, route string) Outcome {
	route = NormalizeRoute(route)
	if state == GateLoading {
		return Outcome{Decision: DecisionPlaceholder, Route: route}
	}
	authenticated := state == GateAuthenticated
	switch ClassifyRoute(route) {
	case RouteProtected:
		if !authenticated {
			return Outcome{Decision: DecisionRedirect, Route: RouteLogin}
		}
	case RoutePublicLogin:
		if authenticated {
			return Outcome{Decision: DecisionRedirect, Route: RouteDashboard}
		}
	default:
		return Outcome{Decision: DecisionRedirect, Route: RouteLogin}
	}
	return Outcome{Decision: DecisionRender, Route: route}
}

// Gate applies Evaluate to the live state of a Store.
type Gate struct {
	store *Store
}

// NewGate returns a gate reading from store.
func NewGate(store *Store) Gate {
	return Gate{store: store}
}

// State derives the gate state from the store.
func (g Gate) State() GateState {
	snap := g.store.Snapshot()
	switch {
	case snap.Loading:
		return GateLoading
	case snap.Authenticated:
		return GateAuthenticated
	default:
		return GateUnauthenticated
	}
}

// Decide evaluates route once.
func (g Gate) Decide(route string) Outcome {
	return Evaluate(g.State(), route)
}

// Navigate follows redirects from route until a render or placeholder
// decision and returns it.
func (g Gate) Navigate(route string) (Outcome, error) {
	current := NormalizeRoute(route)
	for i := 0; i <= maxRedirects; i++ {
		out := g.Decide(current)
		if out.Decision != DecisionRedirect {
			return out, nil
		}
		current = out.Route
	}
	return Outcome{}, ErrRedirectLoop
}
