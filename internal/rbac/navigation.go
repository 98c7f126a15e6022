package rbac

import (
	"strings"

	"github.com/frahmantamala/ops-portal/internal/core/domain"
)

const (
	RouteLogin     = "/login"
	RouteDashboard = "/dashboard"
	RouteTools     = "/tools"
	RouteHR        = "/hr"
	RouteRequests  = "/requests"
	RouteFinance   = "/finance"
	RouteAdmin     = "/admin"
)

type Clearance int

const (
	ClearancePublic Clearance = iota
	ClearanceAuthenticated
	ClearanceAdmin
)

var routeClearance = map[string]Clearance{
	RouteLogin:     ClearancePublic,
	RouteDashboard: ClearanceAuthenticated,
	RouteTools:     ClearanceAuthenticated,
	RouteHR:        ClearanceAuthenticated,
	RouteRequests:  ClearanceAuthenticated,
	RouteFinance:   ClearanceAdmin,
	RouteAdmin:     ClearanceAdmin,
}

// AdminRoutes lists the routes that require admin clearance.
func AdminRoutes() []string {
	return []string{RouteFinance, RouteAdmin}
}

type NavDecision struct {
	Route    string `json:"route"`
	Allowed  bool   `json:"allowed"`
	Redirect string `json:"redirect,omitempty"`
}

// Navigate decides whether principal may open route, and where to send them if not.
func Navigate(principal *domain.User, route string) NavDecision {
	route = normalizeRoute(route)
	signedIn := principal != nil && principal.IsActive()

	if route == "/" {
		if signedIn {
			return NavDecision{Route: route, Redirect: RouteDashboard}
		}
		return NavDecision{Route: route, Redirect: RouteLogin}
	}

	clearance, known := routeClearance[route]
	switch {
	case !known && signedIn:
		return NavDecision{Route: route, Redirect: RouteDashboard}
	case !known:
		return NavDecision{Route: route, Redirect: RouteLogin}
	case clearance == ClearancePublic:
		return NavDecision{Route: route, Allowed: true}
	case !signedIn:
		return NavDecision{Route: route, Redirect: RouteLogin}
	case clearance == ClearanceAdmin && principal.Role != domain.RoleAdmin:
		return NavDecision{Route: route, Redirect: RouteDashboard}
	}
	return NavDecision{Route: route, Allowed: true}
}

func normalizeRoute(route string) string {
	route = strings.TrimSpace(route)
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	if route == "" {
		return "/"
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	if len(route) > 1 {
		route = strings.TrimRight(route, "/")
	}
	return strings.ToLower(route)
}

type NavItem struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Path  string `json:"path"`
}

var navTable = []struct {
	name  string
	path  string
	roles []domain.Role
}{
	{"Dashboard", RouteDashboard, domain.Roles()},
	{"Tool Registry", RouteTools, domain.Roles()},
	{"HR / Employees", RouteHR, []domain.Role{domain.RoleAdmin, domain.RoleOpsHR, domain.RoleEmployee, domain.RoleIntern}},
	{"Finance", RouteFinance, []domain.Role{domain.RoleAdmin, domain.RoleFinance}},
	{"Requests", RouteRequests, domain.Roles()},
	{"Admin", RouteAdmin, []domain.Role{domain.RoleAdmin}},
}

// NavItems returns the menu for role in display order.
func NavItems(role domain.Role) []NavItem {
	var items []NavItem
	for _, entry := range navTable {
		if !containsRole(entry.roles, role) {
			continue
		}
		label := entry.name
		if entry.path == RouteRequests {
			label = RequestsTitle(role)
		}
		items = append(items, NavItem{Name: entry.name, Label: label, Path: entry.path})
	}
	return items
}

// RequestsTitle is the role-conditional label of the requests view.
func RequestsTitle(role domain.Role) string {
	if SeesAllRequests(role) {
		return "Request Center"
	}
	return "My Requests"
}

func containsRole(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
