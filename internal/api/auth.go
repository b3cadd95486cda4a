// Package api implements HTTP handlers and helpers for the PanePlan service.
package api

import "net/http"

type Principal struct {
    Account string
    Role    string // admin, owner, viewer
}

// getPrincipal extracts account and role from request headers. Deployments
// sit behind a gateway that authenticates and stamps these; absent headers
// fall back to a demo account for local development.
func (s *Server) getPrincipal(r *http.Request) Principal {
    account := r.Header.Get("X-Account-Id")
    role := r.Header.Get("X-Role")
    if account == "" {
        account = "acct_demo"
    }
    if role == "" {
        role = "owner"
    }
    return Principal{Account: account, Role: role}
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == "admin" }
