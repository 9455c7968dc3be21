package metrics

// Declarations for every metric the service records. Components register
// the subset they feed at construction time; shared declarations (the error
// counter) may be registered by more than one component.
var (
	RequestsTotal = Decl{
		Name:   "attendance_http_requests_total",
		Kind:   KindCounter,
		Help:   "Total number of HTTP requests",
		Labels: []string{"endpoint", "method", "status_code", "service"},
	}

	RequestDuration = Decl{
		Name:    "attendance_http_request_duration_seconds",
		Kind:    KindDistribution,
		Help:    "HTTP request duration in seconds",
		Labels:  []string{"endpoint", "method", "service"},
		Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}

	RequestsInProgress = Decl{
		Name:   "attendance_http_requests_in_progress",
		Kind:   KindGauge,
		Help:   "Number of requests currently being handled",
		Labels: []string{"endpoint"},
	}

	ErrorsTotal = Decl{
		Name:   "attendance_errors_total",
		Kind:   KindCounter,
		Help:   "Total number of errors by classification",
		Labels: []string{"endpoint", "error_type", "service"},
	}

	DBConnectionsCurrent = Decl{
		Name: "attendance_db_connections_current",
		Kind: KindGauge,
		Help: "Number of active database connections",
	}

	DBPoolConnections = Decl{
		Name:   "attendance_db_pool_connections",
		Kind:   KindGauge,
		Help:   "Database connection pool state",
		Labels: []string{"state"},
	}

	DBOperationDuration = Decl{
		Name:    "attendance_db_operation_duration_seconds",
		Kind:    KindDistribution,
		Help:    "Database operation latency in seconds",
		Labels:  []string{"operation", "table"},
		Buckets: []float64{.01, .05, .1, .5, 1, 2, 5},
	}

	CPUUsagePercent = Decl{
		Name:   "attendance_system_cpu_usage_percent",
		Kind:   KindGauge,
		Help:   "CPU usage percentage per logical core",
		Labels: []string{"core"},
	}

	MemoryTotalBytes = Decl{
		Name: "attendance_system_memory_total_bytes",
		Kind: KindGauge,
		Help: "Total memory in bytes",
	}

	MemoryAvailableBytes = Decl{
		Name: "attendance_system_memory_available_bytes",
		Kind: KindGauge,
		Help: "Available memory in bytes",
	}

	MemoryUsedBytes = Decl{
		Name: "attendance_system_memory_used_bytes",
		Kind: KindGauge,
		Help: "Used memory in bytes",
	}

	MemoryCachedBytes = Decl{
		Name: "attendance_system_memory_cached_bytes",
		Kind: KindGauge,
		Help: "Cached memory in bytes",
	}

	MemoryUsagePercent = Decl{
		Name: "attendance_system_memory_usage_percent",
		Kind: KindGauge,
		Help: "Memory usage percentage",
	}

	DiskTotalBytes = Decl{
		Name: "attendance_system_disk_total_bytes",
		Kind: KindGauge,
		Help: "Total disk space in bytes",
	}

	DiskUsedBytes = Decl{
		Name: "attendance_system_disk_used_bytes",
		Kind: KindGauge,
		Help: "Used disk space in bytes",
	}

	DiskFreeBytes = Decl{
		Name: "attendance_system_disk_free_bytes",
		Kind: KindGauge,
		Help: "Free disk space in bytes",
	}

	DiskUsagePercent = Decl{
		Name: "attendance_system_disk_usage_percent",
		Kind: KindGauge,
		Help: "Disk usage percentage",
	}

	AppInfo = Decl{
		Name:   "attendance_app_info",
		Kind:   KindGauge,
		Help:   "Application build information",
		Labels: []string{"version", "go_version", "service"},
	}
)
