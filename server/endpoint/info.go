package endpoint

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/phrame/version"
)

var startTime = time.Now()

func uptime() string { return time.Since(startTime).Round(time.Second).String() }

// Liveness answers 200 as long as the process can serve HTTP. It checks no
// dependency; use Health for that.
func Liveness(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive", "service": serviceName, "uptime": uptime()})
	}
}

// Info reports the build version, uptime and goroutine count.
func Info(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v := version.Get()
		c.JSON(http.StatusOK, gin.H{
			"service":    serviceName,
			"version":    v.String(),
			"git_commit": v.GitCommit,
			"build_time": v.BuildTime,
			"go_version": v.GoVersion,
			"goroutines": runtime.NumGoroutine(),
			"started_at": startTime.UTC().Format(time.RFC3339),
			"uptime":     uptime(),
		})
	}
}
