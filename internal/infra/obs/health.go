package obs

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Check pings one dependency such as mongo or redis.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthHandlers struct {
	Checks  []Check
	Timeout time.Duration
}

func (h HealthHandlers) Livez(c *gin.Context) {
	c.Status(http.StatusOK)
}

// Readyz runs every check concurrently and answers 503 when any of them fails.
func (h HealthHandlers) Readyz(c *gin.Context) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]string, len(h.Checks))
		ready   = true
	)
	for _, check := range h.Checks {
		if check.Ping == nil {
			continue
		}
		wg.Add(1)
		go func(check Check) {
			defer wg.Done()
			status := "ok"
			err := check.Ping(ctx)
			if err != nil {
				status = err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			results[check.Name] = status
			if err != nil {
				ready = false
			}
		}(check)
	}
	wg.Wait()

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "checks": results})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": results})
}
