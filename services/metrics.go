package services

import (
	"context"
	"time"

	awspkg "github.com/yashrajoria/grocery-backend/pkg/aws"
)

// recordCount and recordValue push a business metric off the request path.
// A nil or disabled client is a no-op.
func recordCount(m *awspkg.MetricsClient, name string) {
	if !m.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.RecordCount(ctx, name, map[string]string{"Service": "grocery-api"})
	}()
}

func recordValue(m *awspkg.MetricsClient, name string, value float64) {
	if !m.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.RecordValue(ctx, name, value, map[string]string{"Service": "grocery-api"})
	}()
}
