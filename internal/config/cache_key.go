package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AdminSessionKey returns the cache key holding the JTI of the admin's active login.
func (r *CacheKeyStruct) AdminSessionKey(username string) string {
	return fmt.Sprintf("portal:admin:%s:session", username)
}

// GenerationJobKey returns the cache key for an AI question generation job.
func (r *CacheKeyStruct) GenerationJobKey(jobID string) string {
	return fmt.Sprintf("portal:generation_job:%s", jobID)
}

// ActiveSessionsKey returns the hash holding the current stage of every live portal session.
func (r *CacheKeyStruct) ActiveSessionsKey() string {
	return "portal:sessions:active"
}

// SessionMonitorChannel returns the Redis PubSub channel name for portal session events.
func (r *CacheKeyStruct) SessionMonitorChannel() string {
	return "portal:sessions:monitor"
}

var CacheKey = NewCacheKeyStruct()
