package app

import (
	"os"
	"sync"
	"sync/atomic"
)

const testModeEnv = "MERIDIAN_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeInit sync.Once
)

// InTestMode reports whether the process runs under the test harness and
// should skip startup side effects. The env var is read once on first call.
func InTestMode() bool {
	testModeInit.Do(RefreshTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads the flag after a test mutates the environment.
func RefreshTestMode() {
	testMode.Store(os.Getenv(testModeEnv) == "1")
}
