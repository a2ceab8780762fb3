package middleware

import "github.com/gin-gonic/gin"

// CacheControl sets the Cache-Control header on every response. Exam routes
// use "no-store" so entry URLs and attempt state never land in shared caches.
func CacheControl(value string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", value)
		c.Next()
	}
}
