package middelware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware answers preflight requests and sets CORS headers for allowed origins
type CORSMiddleware struct {
	origins []string
}

// NewCORSMiddleware creates a CORS middleware. Entries may be "*", an exact origin or "*.example.com".
func NewCORSMiddleware(origins []string) *CORSMiddleware {
	return &CORSMiddleware{origins: origins}
}

// CORS returns a gin.HandlerFunc for handling CORS
func (m *CORSMiddleware) CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			switch m.match(origin) {
			case matchOrigin:
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Credentials", "true")
				c.Header("Vary", "Origin")
			case matchAny:
				// browsers reject credentials alongside a wildcard origin
				c.Header("Access-Control-Allow-Origin", "*")
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
		// exports are downloaded by name
		c.Header("Access-Control-Expose-Headers", "Content-Disposition")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

type originMatch int

const (
	matchNone originMatch = iota
	matchAny
	matchOrigin
)

// match prefers a named or subdomain entry over "*"
func (m *CORSMiddleware) match(origin string) originMatch {
	result := matchNone
	for _, allowed := range m.origins {
		switch {
		case allowed == origin:
			return matchOrigin
		case strings.HasPrefix(allowed, "*."):
			if strings.HasSuffix(origin, allowed[1:]) {
				return matchOrigin
			}
		case allowed == "*":
			result = matchAny
		}
	}
	return result
}
