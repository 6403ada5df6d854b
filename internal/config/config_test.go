package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"NCBI_EMAIL", "NCBI_API_KEY", "UNPAYWALL_EMAIL", "CORE_API_KEY",
		"SEMANTIC_SCHOLAR_KEY", "STORE_ROOT", "HTTP_TIMEOUT_CONNECT_S",
		"HTTP_TIMEOUT_READ_S", "RETRY_MAX", "RETRY_BASE_DELAY_S", "RETRY_MULT",
		"RETRY_JITTER", "PER_URL_MAX_RETRIES", "PER_URL_RETRY_DELAY_S",
		"PDF_MIN_BYTES", "DISCOVERY_CACHE_TTL_S", "ENABLE_SOURCES",
		"MAX_PAPERS_PER_GEO", "LOG_LEVEL", "LOG_FORMAT",
		"WORKER_MEMORY_BUDGET_MB", "HTTP_PARALLELISM",
	}
	for _, k := range keys {
		orig, had := os.LookupEnv(k)
		os.Unsetenv(k)
		k, orig, had := k, orig, had
		t.Cleanup(func() {
			if had {
				os.Setenv(k, orig)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

func TestLoadRequiresNCBIEmail(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("NCBI_EMAIL", "researcher@example.org")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "./store", c.StoreRoot)
	assert.Equal(t, 5.0, c.HTTPTimeoutConnectS)
	assert.Equal(t, 30.0, c.HTTPTimeoutReadS)
	assert.Equal(t, 3, c.RetryMax)
	assert.Equal(t, 2, c.PerURLMaxRetries)
	assert.Equal(t, 1024, c.PDFMinBytes)
	assert.Equal(t, 604800, c.DiscoveryCacheTTLS)
	assert.Equal(t, 0, c.MaxPapersPerGEO)
	assert.NotEmpty(t, c.EnableSources)
	assert.True(t, c.SourceEnabled("ncbi"))
	assert.True(t, c.SourceEnabled("NCBI"))
	assert.False(t, c.SourceEnabled("scihub"))
	assert.Greater(t, c.WorkerMemoryBudgetMB, 0)
	assert.Greater(t, c.HTTPParallelism, 0)
}

func TestLoadHonorsExplicitEnableSources(t *testing.T) {
	clearEnv(t)
	os.Setenv("NCBI_EMAIL", "researcher@example.org")
	os.Setenv("ENABLE_SOURCES", "ncbi,pmc")

	c, err := Load()
	require.NoError(t, err)
	assert.True(t, c.SourceEnabled("pmc"))
	assert.False(t, c.SourceEnabled("unpaywall"))
}

func TestLoadHonorsExplicitResourceBudgets(t *testing.T) {
	clearEnv(t)
	os.Setenv("NCBI_EMAIL", "researcher@example.org")
	os.Setenv("WORKER_MEMORY_BUDGET_MB", "512")
	os.Setenv("HTTP_PARALLELISM", "16")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 512, c.WorkerMemoryBudgetMB)
	assert.Equal(t, 16, c.HTTPParallelism)
}
