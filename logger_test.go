package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatLogLine(t *testing.T) {
	t.Run("message only", func(t *testing.T) {
		got := formatLogLine("[INF] AUTH", "Sign in complete")
		assert.Equal(t, "[INF] AUTH Sign in complete", got)
	})

	t.Run("key value pairs", func(t *testing.T) {
		got := formatLogLine("[INF] AUTH", "Setting redirect cookie", "key", "rejected_route", "path", "/posts")
		assert.Equal(t, "[INF] AUTH Setting redirect cookie key=rejected_route path=/posts", got)
	})

	t.Run("non string values", func(t *testing.T) {
		got := formatLogLine("[WRN] AUTH", "retrying", "attempt", 3)
		assert.Equal(t, "[WRN] AUTH retrying attempt=3", got)
	})

	t.Run("trailing unpaired argument", func(t *testing.T) {
		got := formatLogLine("[ERR] AUTH", "boom", "code", 500, "dangling")
		assert.Equal(t, "[ERR] AUTH boom code=500 dangling", got)
	})
}
