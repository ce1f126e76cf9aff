package db

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Pinger is satisfied by *mongo.Client.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// HealthStatus is the body of the database health endpoint.
type HealthStatus struct {
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	Latency      string `json:"latency"`
	Transactions bool   `json:"transactions"`
}

// HealthHandler returns a handler for the database health check endpoint.
func HealthHandler(p Pinger, tx Transactor) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		start := time.Now()
		err := p.Ping(ctx, readpref.Primary())
		status := HealthStatus{
			Status:  "healthy",
			Latency: time.Since(start).String(),
		}
		if tx != nil {
			status.Transactions = tx.Atomic()
		}

		if err != nil {
			status.Status = "unhealthy"
			status.Error = err.Error()
			return c.JSON(http.StatusServiceUnavailable, status)
		}
		return c.JSON(http.StatusOK, status)
	}
}
