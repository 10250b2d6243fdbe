package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CatalogGenerationKey holds the counter bumped by every ingestion write.
func (r *CacheKeyStruct) CatalogGenerationKey() string {
	return "catalog:generation"
}

// ResolvedCourseKey returns the cache key for a course's canonical id within one catalog generation
func (r *CacheKeyStruct) ResolvedCourseKey(generation int64, courseID int) string {
	return fmt.Sprintf("catalog:%d:course:%d:canonical", generation, courseID)
}

var CacheKey = NewCacheKeyStruct()
