package store

import "time"

// lockRetryInterval is how often Open retries the advisory file lock while
// context.Context has not expired.
const lockRetryInterval = 50 * time.Millisecond
