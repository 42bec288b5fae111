package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks the run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is reported but does not block the run.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one validation finding. Path is the dotted config key, e.g.
// "storage.dsn".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// MetricsBackends lists the accepted metrics.backend values.
var MetricsBackends = []string{"none", "pushgateway", "datadog"}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate lints c without mutating it. storageKinds lists the registered
// storage backends (storage.ListKinds()).
func Validate(c Config, storageKinds []string) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(c.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it labels metrics and logs")
	}
	if _, err := c.Location(); err != nil {
		add(SeverityError, "time_zone", "unknown time zone %q: %v", c.TimeZone, err)
	}

	// Source.
	if strings.TrimSpace(c.Source.SongDir) == "" {
		add(SeverityError, "source.song_dir", "song_dir must not be empty")
	}
	if strings.TrimSpace(c.Source.LogDir) == "" {
		add(SeverityError, "source.log_dir", "log_dir must not be empty")
	}
	if c.Source.Pattern != "" {
		if _, err := filepath.Match(c.Source.Pattern, ""); err != nil {
			add(SeverityError, "source.pattern", "malformed glob %q", c.Source.Pattern)
		}
	}

	// Storage.
	switch kind := strings.TrimSpace(c.Storage.Kind); {
	case kind == "":
		add(SeverityError, "storage.kind", "storage.kind must not be empty")
	case !slices.Contains(storageKinds, kind):
		add(SeverityError, "storage.kind", "unknown storage kind %q (known: %s)", kind, strings.Join(storageKinds, ", "))
	}
	if strings.TrimSpace(c.Storage.DSN) == "" {
		add(SeverityError, "storage.dsn", "storage.dsn must not be empty")
	}
	if c.Storage.TablePrefix != "" && !identRe.MatchString(c.Storage.TablePrefix) {
		add(SeverityError, "storage.table_prefix", "table_prefix %q must be a plain identifier", c.Storage.TablePrefix)
	}
	if c.Storage.MaxRetries < 0 {
		add(SeverityError, "storage.max_retries", "max_retries must be >= 0")
	}
	if c.Storage.ConnectTimeout < 0 {
		add(SeverityError, "storage.connect_timeout", "connect_timeout must be >= 0")
	} else if c.Storage.ConnectTimeout > 0 && c.Storage.ConnectTimeout < time.Second {
		add(SeverityWarning, "storage.connect_timeout", "connect_timeout %s is very short", c.Storage.ConnectTimeout)
	}

	// Runtime.
	if c.Runtime.BatchSize <= 0 {
		add(SeverityError, "runtime.batch_size", "batch_size must be > 0, got %d", c.Runtime.BatchSize)
	}
	switch {
	case c.Runtime.CatalogCacheSize < 0:
		add(SeverityError, "runtime.catalog_cache_size", "catalog_cache_size must be >= 0")
	case c.Runtime.CatalogCacheSize == 0:
		add(SeverityWarning, "runtime.catalog_cache_size", "catalog cache disabled; every play queries the database")
	}
	if c.Runtime.MaxErrorSamples < 0 {
		add(SeverityError, "runtime.max_error_samples", "max_error_samples must be >= 0")
	}

	if !c.Ledger.Enabled {
		add(SeverityWarning, "ledger.enabled", "ledger disabled; re-running the same log files duplicates songplays")
	}

	// Metrics.
	backend := c.Metrics.Backend
	if backend == "" {
		backend = "none"
	}
	switch backend {
	case "pushgateway":
		if strings.TrimSpace(c.Metrics.PushgatewayURL) == "" {
			add(SeverityError, "metrics.pushgateway_url", "pushgateway backend requires pushgateway_url")
		}
	case "datadog":
		if strings.TrimSpace(c.Metrics.DatadogAddr) == "" {
			add(SeverityError, "metrics.datadog_addr", "datadog backend requires datadog_addr")
		}
	case "none":
	default:
		add(SeverityError, "metrics.backend", "unknown metrics backend %q (known: %s)", backend, strings.Join(MetricsBackends, ", "))
	}

	return issues
}
