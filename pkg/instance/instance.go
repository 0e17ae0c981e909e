package instance

import "github.com/angelmondragon/crumbly-backend/pkg/env"

// GetID returns the process instance identifier used for logs and lock ownership.
func GetID() string {
	return env.Get("CRUMBLY_INSTANCE_ID", env.Get("DYNO", "local"))
}
