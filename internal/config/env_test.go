package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseString(t *testing.T) {
	t.Run("from environment", func(t *testing.T) {
		t.Setenv("PARKING_TEST_STR", "value")
		assert.Equal(t, "value", ParseString("PARKING_TEST_STR", "default"))
	})

	t.Run("default when unset", func(t *testing.T) {
		assert.Equal(t, "default", ParseString("PARKING_TEST_STR_UNSET", "default"))
	})

	t.Run("default when empty", func(t *testing.T) {
		t.Setenv("PARKING_TEST_STR", "")
		assert.Equal(t, "default", ParseString("PARKING_TEST_STR", "default"))
	})
}

func TestParseInt(t *testing.T) {
	t.Run("from environment", func(t *testing.T) {
		t.Setenv("PARKING_TEST_INT", "42")
		assert.Equal(t, 42, ParseInt("PARKING_TEST_INT", 7))
	})

	t.Run("invalid falls back", func(t *testing.T) {
		t.Setenv("PARKING_TEST_INT", "not-a-number")
		assert.Equal(t, 7, ParseInt("PARKING_TEST_INT", 7))
	})

	t.Run("default when unset", func(t *testing.T) {
		assert.Equal(t, 7, ParseInt("PARKING_TEST_INT_UNSET", 7))
	})
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"garbage", true, true},
		{"garbage", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("PARKING_TEST_BOOL", tt.value)
			assert.Equal(t, tt.want, ParseBool("PARKING_TEST_BOOL", tt.def))
		})
	}
}

func TestParseDuration(t *testing.T) {
	t.Run("from environment", func(t *testing.T) {
		t.Setenv("PARKING_TEST_DUR", "90s")
		assert.Equal(t, 90*time.Second, ParseDuration("PARKING_TEST_DUR", time.Minute))
	})

	t.Run("invalid falls back", func(t *testing.T) {
		t.Setenv("PARKING_TEST_DUR", "ninety")
		assert.Equal(t, time.Minute, ParseDuration("PARKING_TEST_DUR", time.Minute))
	})
}

func TestParseStringSlice(t *testing.T) {
	t.Run("comma separated", func(t *testing.T) {
		t.Setenv("PARKING_TEST_SLICE", "a:9092, b:9092 ,,c:9092")
		assert.Equal(t, []string{"a:9092", "b:9092", "c:9092"}, ParseStringSlice("PARKING_TEST_SLICE", nil))
	})

	t.Run("default when unset", func(t *testing.T) {
		def := []string{"x:1"}
		assert.Equal(t, def, ParseStringSlice("PARKING_TEST_SLICE_UNSET", def))
	})

	t.Run("only separators falls back", func(t *testing.T) {
		t.Setenv("PARKING_TEST_SLICE", " , ,")
		assert.Nil(t, ParseStringSlice("PARKING_TEST_SLICE", nil))
	})
}

func TestSensitiveKey(t *testing.T) {
	assert.True(t, sensitiveKey("PARKING_API_TOKEN"))
	assert.True(t, sensitiveKey("PARKING_URA_ACCESS_KEY"))
	assert.True(t, sensitiveKey("PARKING_DATAMALL_ACCOUNT_KEY"))
	assert.True(t, sensitiveKey("PARKING_REDIS_PASSWORD"))
	assert.False(t, sensitiveKey("PARKING_LISTEN"))
}
