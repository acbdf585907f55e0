// Package guard forces test mode on import so test binaries never start
// runtime side effects.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("SOCIETYHUB_TEST_MODE") == "" {
			_ = os.Setenv("SOCIETYHUB_TEST_MODE", "1")
		}
	})
}
