package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig holds browser cross-origin settings.
type CORSConfig struct {
	Enabled          bool          `yaml:"enabled"`
	AllowedOrigins   []string      `yaml:"allowedOrigins"`
	AllowedMethods   []string      `yaml:"allowedMethods"`
	AllowedHeaders   []string      `yaml:"allowedHeaders"`
	ExposedHeaders   []string      `yaml:"exposedHeaders"`
	AllowCredentials bool          `yaml:"allowCredentials"`
	MaxAge           time.Duration `yaml:"maxAge"`
}

var (
	defaultCORSMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	defaultCORSHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Trace-Id", "X-Request-Id"}
	defaultCORSExposed = []string{"X-Trace-Id", "X-Request-Id"}
)

// CORSMiddleware applies CORS headers for browser clients.
func CORSMiddleware(cfg CORSConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	conf := cors.Config{
		AllowMethods:     orDefault(cfg.AllowedMethods, defaultCORSMethods),
		AllowHeaders:     orDefault(cfg.AllowedHeaders, defaultCORSHeaders),
		ExposeHeaders:    orDefault(cfg.ExposedHeaders, defaultCORSExposed),
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}
	if allowsAnyOrigin(cfg.AllowedOrigins) && !cfg.AllowCredentials {
		conf.AllowAllOrigins = true
	} else {
		origins := make([]string, 0, len(cfg.AllowedOrigins))
		for _, item := range cfg.AllowedOrigins {
			item = strings.TrimSpace(item)
			if item == "*" {
				conf.AllowOriginFunc = func(string) bool { return true }
				continue
			}
			if item != "" {
				origins = append(origins, item)
			}
		}
		conf.AllowOrigins = origins
		if conf.AllowOriginFunc == nil && len(origins) == 0 {
			conf.AllowOriginFunc = func(string) bool { return false }
		}
	}
	return cors.New(conf)
}

func allowsAnyOrigin(allowed []string) bool {
	for _, item := range allowed {
		if strings.TrimSpace(item) == "*" {
			return true
		}
	}
	return false
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}
