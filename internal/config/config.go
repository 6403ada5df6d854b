// Package config resolves the injectable configuration surface from spec
// §6. Nothing is baked in: every tunable is a Config field, constructed
// once by the coordinator (or the CLI) and passed down as a collaborator —
// never read from the environment deep inside a pipeline stage.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/klauspost/cpuid/v2"
	"github.com/pbnjay/memory"
)

// Config is the fully-resolved configuration for one process run.
type Config struct {
	NCBIEmail          string  `envconfig:"NCBI_EMAIL" required:"true"`
	NCBIAPIKey         string  `envconfig:"NCBI_API_KEY"`
	UnpaywallEmail     string  `envconfig:"UNPAYWALL_EMAIL"`
	COREAPIKey         string  `envconfig:"CORE_API_KEY"`
	SemanticScholarKey string  `envconfig:"SEMANTIC_SCHOLAR_KEY"`

	StoreRoot string `envconfig:"STORE_ROOT" default:"./store"`

	HTTPTimeoutConnectS float64 `envconfig:"HTTP_TIMEOUT_CONNECT_S" default:"5"`
	HTTPTimeoutReadS    float64 `envconfig:"HTTP_TIMEOUT_READ_S" default:"30"`

	RetryMax       int     `envconfig:"RETRY_MAX" default:"3"`
	RetryBaseDelayS float64 `envconfig:"RETRY_BASE_DELAY_S" default:"1.0"`
	RetryMult       float64 `envconfig:"RETRY_MULT" default:"2.0"`
	RetryJitter     float64 `envconfig:"RETRY_JITTER" default:"0.25"`

	PerURLMaxRetries  int     `envconfig:"PER_URL_MAX_RETRIES" default:"2"`
	PerURLRetryDelayS float64 `envconfig:"PER_URL_RETRY_DELAY_S" default:"1.5"`

	PDFMinBytes int `envconfig:"PDF_MIN_BYTES" default:"1024"`

	DiscoveryCacheTTLS int `envconfig:"DISCOVERY_CACHE_TTL_S" default:"604800"`

	EnableSources []string `envconfig:"ENABLE_SOURCES"`

	MaxPapersPerGEO int `envconfig:"MAX_PAPERS_PER_GEO" default:"0"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	// WorkerMemoryBudgetMB and HTTPParallelism default from the host's
	// resources (pbnjay/memory, klauspost/cpuid) when unset, rather than
	// from a fixed constant. Nothing outside this package reads either
	// value: stage concurrency is fixed in internal/coordinator and the
	// per-host limits in cmd/omicsoracle.
	WorkerMemoryBudgetMB int `envconfig:"WORKER_MEMORY_BUDGET_MB" default:"0"`
	HTTPParallelism      int `envconfig:"HTTP_PARALLELISM" default:"0"`
}

// defaultEnabledSources is used when ENABLE_SOURCES is unset: every source
// considered "open" per spec §4.2, explicitly excluding anything the §9 Open
// Questions flagged as policy-gated (Sci-Hub/LibGen style alt-sources).
var defaultEnabledSources = []string{
	"ncbi", "openalex", "semanticscholar", "pmc", "europepmc",
	"unpaywall", "crossref", "core", "biorxiv", "arxiv",
}

// Load reads a .env file if present (absence is not an error — only a
// deployed environment is required to set real values) then resolves Config
// from the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if len(c.EnableSources) == 0 {
		c.EnableSources = defaultEnabledSources
	}
	c.applyResourceDefaults()

	return &c, nil
}

// applyResourceDefaults sizes WorkerMemoryBudgetMB and HTTPParallelism from
// the host's actual resources when the operator left them at zero.
func (c *Config) applyResourceDefaults() {
	if c.WorkerMemoryBudgetMB == 0 {
		totalMB := memory.TotalMemory() / (1024 * 1024)
		// Budget a quarter of system memory for in-flight buffers
		// (downloaded artifacts, parsed sections); never below 256MB.
		budget := totalMB / 4
		if budget < 256 {
			budget = 256
		}
		c.WorkerMemoryBudgetMB = int(budget)
	}
	if c.HTTPParallelism == 0 {
		cores := cpuid.CPU.LogicalCores
		if cores < 1 {
			cores = 1
		}
		// I/O bound fan-out can comfortably exceed core count; cap at a
		// sane multiple so a huge-core box does not open thousands of
		// sockets against polite external APIs.
		parallelism := cores * 2
		if parallelism > 32 {
			parallelism = 32
		}
		c.HTTPParallelism = parallelism
	}
}

// SourceEnabled reports whether the named source is in ENABLE_SOURCES.
func (c *Config) SourceEnabled(name string) bool {
	name = strings.ToLower(name)
	for _, s := range c.EnableSources {
		if strings.ToLower(s) == name {
			return true
		}
	}
	return false
}
