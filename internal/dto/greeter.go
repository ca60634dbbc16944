package dto

// ExamModeHostsResponse lists the registered workstations that currently
// admit a running exam.
type ExamModeHostsResponse struct {
	ExamModeHosts []string `json:"exam_mode_hosts"`
	Message       string   `json:"message"`
	Status        string   `json:"status"`
}

// StatusResponse is returned by liveness endpoints.
type StatusResponse struct {
	Status string `json:"status"`
}

// HealthResponse reports data source readiness.
type HealthResponse struct {
	Status          string `json:"status"`
	DataSource      bool   `json:"data_source"`
	KnownHosts      int    `json:"known_hosts"`
	LastCacheChange string `json:"last_cache_change,omitempty"`
}
