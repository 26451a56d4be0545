package app

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker probes every backing service of the linker
type HealthChecker struct {
	probes map[string]pinger
}

func NewHealthChecker(infra Infrastructure) *HealthChecker {
	probes := map[string]pinger{
		"postgres": infra.Postgres(),
		"redis":    infra.Redis(),
	}
	// only brokers holding a live connection can be probed
	if bus, ok := infra.Publisher().(pinger); ok {
		probes["events"] = bus
	}
	return &HealthChecker{probes: probes}
}

func (h *HealthChecker) check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		healthy = true
		results = make(map[string]string, len(h.probes))
	)

	for name, probe := range h.probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := probe.Ping(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[name] = err.Error()
				healthy = false
				return
			}
			results[name] = "pass"
		}()
	}
	wg.Wait()

	return results, healthy
}

func (h *HealthChecker) Handler(c *gin.Context) {
	results, healthy := h.check(c.Request.Context())
	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "fail",
			"checks": results,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "pass",
		"checks": results,
	})
}
