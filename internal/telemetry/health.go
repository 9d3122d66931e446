package telemetry

import "time"

// Status is the severity level of a single check or the overall report.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// Check is one operational health check's result.
type Check struct {
	Name    string  `json:"name"`
	Status  Status  `json:"status"`
	Value   float64 `json:"value"`
	Message string  `json:"message,omitempty"`
}

// HealthReport is the result of one OperationalHealth evaluation.
type HealthReport struct {
	Status        Status    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds float64   `json:"uptimeSeconds"`
	Checks        []Check   `json:"checks"`
	Summary       string    `json:"summary"`
}

// Fixed thresholds per the operational health checklist. Each check fires
// WARN at its lower bound and CRITICAL at its upper bound.
const (
	memoryHeapWarnBytes     = 500 * 1024 * 1024
	memoryHeapCriticalBytes = 800 * 1024 * 1024

	uptimeWarnSeconds = 300.0

	errorRateWarnRatio     = 0.001
	errorRateCriticalRatio = 0.01

	authFailureWarnPerSec     = 1.0
	authFailureCriticalPerSec = 10.0

	tenantConflictsWarnCount     = 1.0
	tenantConflictsCriticalCount = 10.0

	rateLimitAbuseWarnRatio     = 0.05
	rateLimitAbuseCriticalRatio = 0.20
)

// sumCounter adds up every label combination recorded for name. It takes
// no lock of its own beyond the registry's RLock, and never mutates state:
// OperationalHealth evaluation must be side-effect free.
func (r *Registry) sumCounter(name string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total float64
	for _, lv := range r.counters[name] {
		total += lv.value.Load()
	}
	return total
}

func (r *Registry) gaugeValue(name string, labels map[string]string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket, ok := r.gauges[name]
	if !ok {
		return 0
	}
	lv, ok := bucket[labelKey(labels)]
	if !ok {
		return 0
	}
	return lv.value.Load()
}

func statusFor(value, warn, critical float64) Status {
	switch {
	case value >= critical:
		return StatusCritical
	case value >= warn:
		return StatusDegraded
	default:
		return StatusOK
	}
}

func worse(a, b Status) Status {
	rank := map[Status]int{StatusOK: 0, StatusDegraded: 1, StatusCritical: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// OperationalHealth evaluates the six fixed-threshold checks against the
// registry's current metric values. It is a pure read: it never mutates
// any stored counter or gauge, and may be called repeatedly with no
// side effects.
func (r *Registry) OperationalHealth() HealthReport {
	uptime := r.gaugeValue(MetricProcessUptimeSeconds, nil)
	heapUsed := r.gaugeValue(MetricProcessMemoryBytes, map[string]string{"kind": "heap_used"})

	totalRequests := r.sumCounter(MetricHTTPRequestsTotal)
	totalErrors := r.sumCounter(MetricHTTPErrorsTotal)
	totalAuthFailures := r.sumCounter(MetricAuthFailuresTotal)
	totalTenantConflicts := r.sumCounter(MetricTenantConflictsTotal)
	totalRateLimited := r.sumCounter(MetricRateLimitedTotal)

	errorRatio := safeRatio(totalErrors, totalRequests)
	rateLimitRatio := safeRatio(totalRateLimited, totalRequests)
	authFailuresPerSec := safeRatio(totalAuthFailures, uptime)

	checks := []Check{
		{
			Name:   "memory_heap",
			Status: statusFor(heapUsed, memoryHeapWarnBytes, memoryHeapCriticalBytes),
			Value:  heapUsed,
		},
		{
			Name:    "process_uptime",
			Status:  uptimeStatus(uptime),
			Value:   uptime,
			Message: "uptime below warm-up threshold",
		},
		{
			Name:   "error_rate_5xx",
			Status: statusFor(errorRatio, errorRateWarnRatio, errorRateCriticalRatio),
			Value:  errorRatio,
		},
		{
			Name:   "auth_failures",
			Status: statusFor(authFailuresPerSec, authFailureWarnPerSec, authFailureCriticalPerSec),
			Value:  authFailuresPerSec,
		},
		{
			Name:   "tenant_conflicts",
			Status: statusFor(totalTenantConflicts, tenantConflictsWarnCount, tenantConflictsCriticalCount),
			Value:  totalTenantConflicts,
		},
		{
			Name:   "rate_limit_abuse",
			Status: statusFor(rateLimitRatio, rateLimitAbuseWarnRatio, rateLimitAbuseCriticalRatio),
			Value:  rateLimitRatio,
		},
	}

	overall := StatusOK
	for _, c := range checks {
		overall = worse(overall, c.Status)
	}

	return HealthReport{
		Status:        overall,
		Timestamp:     time.Now(),
		UptimeSeconds: uptime,
		Checks:        checks,
		Summary:       summarize(overall, checks),
	}
}

// uptimeStatus is inverted relative to the other checks: a low uptime is
// the concerning condition, not a high one, and it only ever warns.
func uptimeStatus(uptime float64) Status {
	if uptime < uptimeWarnSeconds {
		return StatusDegraded
	}
	return StatusOK
}

func safeRatio(numerator, denominator float64) float64 {
	if denominator <= 0 {
		return 0
	}
	return numerator / denominator
}

func summarize(overall Status, checks []Check) string {
	if overall == StatusOK {
		return "all checks passing"
	}
	n := 0
	for _, c := range checks {
		if c.Status != StatusOK {
			n++
		}
	}
	if overall == StatusCritical {
		return "critical: one or more checks breached critical threshold"
	}
	_ = n
	return "degraded: one or more checks breached warning threshold"
}
