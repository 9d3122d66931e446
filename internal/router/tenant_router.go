// Package router implements TenantRouter: extracting a tenant identifier
// from a request's header, URL path, or Host subdomain, and detecting
// conflicts when more than one source disagrees.
package router

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/libervia/gateway/internal/security"
)

// pathTenantPattern matches the tenant-id segment in routes that carry one.
var pathTenantPattern = regexp.MustCompile(`^/(?:api/v1/tenants|admin/tenants|admin/query)/([^/]+)(?:/|$)`)

// reservedQuerySubroutes are /admin/query/<x> segments that name a global
// route, not a tenant id.
var reservedQuerySubroutes = map[string]struct{}{
	"tenants": {}, "instances": {}, "metrics": {}, "eventlog": {},
}

// Result is the outcome of tenant extraction.
type Result struct {
	TenantID        string
	HasConflict     bool
	ConflictDetails map[string]string
}

// Request is the subset of an HTTP request TenantRouter needs, kept
// independent of any particular web framework.
type Request struct {
	Headers http.Header
	Path    string
	Host    string
}

// ExtractTenantIDWithConflictDetection runs every extractor and reports a
// conflict if more than one yields a non-empty, differing normalized id.
func ExtractTenantIDWithConflictDetection(req Request) Result {
	headerID := extractFromHeader(req.Headers)
	pathID := extractFromPath(req.Path)
	hostID := extractFromHost(req.Host)

	candidates := map[string]string{}
	if headerID != "" {
		candidates["headerTenant"] = headerID
	}
	if pathID != "" {
		candidates["pathTenant"] = pathID
	}
	if hostID != "" {
		candidates["hostTenant"] = hostID
	}

	distinct := map[string]struct{}{}
	for _, v := range candidates {
		distinct[v] = struct{}{}
	}

	if len(distinct) > 1 {
		return Result{HasConflict: true, ConflictDetails: candidates}
	}
	for _, v := range candidates {
		return Result{TenantID: v}
	}
	return Result{}
}

func extractFromHeader(h http.Header) string {
	if h == nil {
		return ""
	}
	return normalizeOrEmpty(h.Get("X-Tenant-Id"))
}

func extractFromPath(path string) string {
	m := pathTenantPattern.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	candidate := m[1]
	if strings.HasPrefix(path, "/admin/query/") {
		if _, reserved := reservedQuerySubroutes[candidate]; reserved {
			return ""
		}
	}
	return normalizeOrEmpty(candidate)
}

func extractFromHost(host string) string {
	host = strings.SplitN(host, ":", 2)[0]
	labels := strings.Split(host, ".")
	if len(labels) < 3 {
		return ""
	}
	first := strings.ToLower(labels[0])
	if first == "www" || first == "api" {
		return ""
	}
	return normalizeOrEmpty(first)
}

// normalizeOrEmpty normalizes a candidate id. Shape validation (length,
// charset, reserved names) is deliberately left to the tenant-resolution
// hook downstream, which can distinguish INVALID_TENANT_ID from
// TENANT_NOT_FOUND; the router only normalizes for conflict comparison.
func normalizeOrEmpty(s string) string {
	return security.NormalizeTenantID(s)
}
