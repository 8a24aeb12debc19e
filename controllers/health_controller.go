package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mansatask/mansatask-api/utils"
)

// Pinger is anything that can report whether it is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	db    *gorm.DB
	redis Pinger
}

func NewHealthController(db *gorm.DB, redis Pinger) *HealthController {
	return &HealthController{db: db, redis: redis}
}

// Check pings the database and Redis; any failure turns the answer into a 503
func (ctl *HealthController) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	database := "up"
	if err := ctl.pingDB(ctx); err != nil {
		utils.LogError("Health check: database down: %v", err)
		database = "down"
		status = http.StatusServiceUnavailable
	}

	cache := "up"
	if ctl.redis == nil {
		cache = "down"
		status = http.StatusServiceUnavailable
	} else if err := ctl.redis.Ping(ctx); err != nil {
		utils.LogError("Health check: redis down: %v", err)
		cache = "down"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{"database": database, "redis": cache})
}

func (ctl *HealthController) pingDB(ctx context.Context) error {
	sqlDB, err := ctl.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
