package instance

import "os"

const fallbackID = "libris-0"

// GetID identifies this process among replicas. LIBRIS_INSTANCE_ID wins, then
// the platform dyno name, then the hostname.
func GetID() string {
	for _, key := range []string{"LIBRIS_INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
