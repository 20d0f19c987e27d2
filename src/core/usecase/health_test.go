package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"metadirectory/src/core/ports"
	"metadirectory/src/core/usecase"
	"metadirectory/src/infra/logger"
)

type pinger struct{ err error }

func (p pinger) Health(context.Context) error { return p.err }

func TestHealthService_Check(t *testing.T) {
	tests := []struct {
		name       string
		components map[string]ports.ExternalService
		want       string
		unhealthy  []string
	}{
		{
			name:       "all healthy",
			components: map[string]ports.ExternalService{"store": pinger{}, "redis": pinger{}},
			want:       "ok",
		},
		{
			name:       "redis down",
			components: map[string]ports.ExternalService{"store": pinger{}, "redis": pinger{errors.New("dial tcp: refused")}},
			want:       "degraded",
			unhealthy:  []string{"redis"},
		},
		{
			name:       "nil entry skipped",
			components: map[string]ports.ExternalService{"store": pinger{}, "redis": nil},
			want:       "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := usecase.NewHealthService(logger.Discard(), tt.components).Check(context.Background())
			assert.Equal(t, tt.want, got.Status)
			for _, name := range tt.unhealthy {
				assert.Equal(t, "unhealthy", got.Components[name].Status)
				assert.NotEmpty(t, got.Components[name].Message)
			}
			assert.Equal(t, "healthy", got.Components["store"].Status)
		})
	}
}
