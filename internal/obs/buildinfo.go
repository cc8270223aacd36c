package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfoOnce sync.Once

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "AcademiHub API build information.",
		},
		[]string{"version", "commit"},
	)

	buildMu      sync.RWMutex
	buildVersion = "dev"
	buildCommit  = "unknown"
)

// InitBuildInfo registers build_info once and records the running version.
func InitBuildInfo(version, commit string) {
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	buildMu.Lock()
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	buildMu.Unlock()
	buildInfo.WithLabelValues(version, commit).Set(1)
}

// Build returns the version and commit recorded by InitBuildInfo.
func Build() (version, commit string) {
	buildMu.RLock()
	defer buildMu.RUnlock()
	return buildVersion, buildCommit
}
