package state

import "time"

// newLocalEnv creates a new LocalEnv instance with default values.
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
	}
}
