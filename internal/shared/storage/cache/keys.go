package cache

import "fmt"

// StatusKey is the cache key for a program's processing status snapshot.
func StatusKey(programID string) string {
	return fmt.Sprintf("program:status:%s", programID)
}
