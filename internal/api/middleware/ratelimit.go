package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Alexjoshwa/agri-1.0/internal/config"
)

const (
	cleanupInterval = 10 * time.Minute
	clientIdleTTL   = 30 * time.Minute
)

// clientLimiter stores the token bucket for a specific client.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterMiddleware manages rate limiting for API endpoints.
type RateLimiterMiddleware struct {
	clients map[string]*clientLimiter
	mu      sync.Mutex
	cfg     *config.Config
	log     *zap.SugaredLogger
	stop    chan struct{}
}

// NewRateLimiterMiddleware creates a new RateLimiterMiddleware and starts its
// cleanup loop. Call Stop to end the loop.
func NewRateLimiterMiddleware(cfg *config.Config, log *zap.SugaredLogger) *RateLimiterMiddleware {
	rm := &RateLimiterMiddleware{
		clients: make(map[string]*clientLimiter),
		cfg:     cfg,
		log:     log,
		stop:    make(chan struct{}),
	}
	go rm.cleanupClients()
	return rm
}

// Stop ends the cleanup loop.
func (rm *RateLimiterMiddleware) Stop() {
	close(rm.stop)
}

// getClientIdentifier creates a unique key based on IP, Fingerprint, and SPA Session ID.
func getClientIdentifier(c *gin.Context) string {
	ip := c.ClientIP()
	fingerprint := c.GetHeader("X-BFP")
	spaSession := c.GetHeader("X-SPA")
	return fmt.Sprintf("%s|%s|%s", ip, fingerprint, spaSession)
}

// getClientLimiter retrieves or creates the limiter for a given client identifier.
func (rm *RateLimiterMiddleware) getClientLimiter(identifier string) *clientLimiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	cl, exists := rm.clients[identifier]
	if !exists {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(rm.cfg.RateLimitRefillRate), rm.cfg.RateLimitBucketSize),
		}
		rm.clients[identifier] = cl
		rm.log.Debugw("Created rate limiter entry", "client", identifier)
	}
	cl.lastSeen = time.Now()
	return cl
}

// cleanupClients periodically removes idle client entries from the map.
func (rm *RateLimiterMiddleware) cleanupClients() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rm.stop:
			return
		case <-ticker.C:
		}
		rm.mu.Lock()
		count := 0
		for id, client := range rm.clients {
			if time.Since(client.lastSeen) > clientIdleTTL {
				delete(rm.clients, id)
				count++
			}
		}
		rm.mu.Unlock()
		if count > 0 {
			rm.log.Infow("Rate limiter cleanup removed idle clients", "count", count)
		}
	}
}

// Limit creates the Gin middleware handler.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := getClientIdentifier(c)
		cl := rm.getClientLimiter(clientKey)

		if !cl.limiter.Allow() {
			rm.log.Warnw("Rate limit exceeded", "client", clientKey, "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}

		c.Next()
	}
}
