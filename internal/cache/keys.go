package cache

import "strings"

const (
	GlobalKeyPrefix = "glauk"
)

// GenerateCacheKey generates a cache key for a given service, object type, and identifier.
// If paramsKey are provided, they are joined by "_" and appended to the cache key.
func GenerateCacheKey(serviceName, objectType, identifier string, paramsKey ...string) string {
	baseKey := strings.Join([]string{GlobalKeyPrefix, serviceName, objectType, identifier}, ":")
	if len(paramsKey) > 0 {
		return strings.Join([]string{baseKey, strings.Join(paramsKey, "_")}, ":")
	}
	return baseKey
}

// QueueKey builds the key for one structure of a named job queue,
// e.g. glauk:queue:quiz-processing:wait.
func QueueKey(queueName string, parts ...string) string {
	return strings.Join(append([]string{GlobalKeyPrefix, "queue", queueName}, parts...), ":")
}
