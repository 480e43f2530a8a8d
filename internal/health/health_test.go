package health

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestChecker_AllHealthy(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("db", func(ctx context.Context) Status { return StatusOK })
	c.Register("llm", func(ctx context.Context) Status { return StatusOK })

	assert.True(t, c.IsReady(context.Background()))
	assert.Equal(t, []string{"db", "llm"}, c.Names())
}

func TestChecker_OneDown(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("db", func(ctx context.Context) Status { return StatusOK })
	c.Register("llm", func(ctx context.Context) Status { return StatusDown })

	report := c.Check(context.Background())
	assert.False(t, report.Ready)
	assert.Equal(t, StatusDown, report.Checks["llm"])
}

func TestChecker_Degraded_StillReady(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("db", func(ctx context.Context) Status { return StatusDegraded })

	assert.True(t, c.IsReady(context.Background()))
}

func TestChecker_NoChecks(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	assert.True(t, c.IsReady(context.Background()))
}

func TestPingCheck(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, StatusOK, PingCheck(fakePinger{})(ctx))
	assert.Equal(t, StatusDown, PingCheck(fakePinger{err: errors.New("refused")})(ctx))
}

func TestConfiguredCheck(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, StatusOK, ConfiguredCheck(true)(ctx))
	assert.Equal(t, StatusDegraded, ConfiguredCheck(false)(ctx))
}

func TestChecker_StatusTransition(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	up := true
	c.Register("db", func(ctx context.Context) Status {
		if up {
			return StatusOK
		}
		return StatusDown
	})

	assert.True(t, c.IsReady(context.Background()))
	up = false
	assert.False(t, c.IsReady(context.Background()))
}
