package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("RAZORPAY_KEY_ID", "")
	t.Setenv("RAZORPAY_KEY_SECRET", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "INR", cfg.Payment.Currency)
	assert.False(t, cfg.Payment.Configured())
	assert.True(t, cfg.HTTP.AllowLocalhost)
	assert.False(t, cfg.Security.HideForeignBookings)
	assert.Equal(t, "booking-events", cfg.Kafka.TopicBookingEvents)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", "shh")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com")
	t.Setenv("HIDE_FOREIGN_BOOKINGS", "true")
	t.Setenv("GATEWAY_TIMEOUT_SECONDS", "not-a-number")

	cfg := Load()

	assert.True(t, cfg.Payment.Configured())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.HTTP.AllowedOrigins)
	assert.False(t, cfg.HTTP.AllowLocalhost)
	assert.True(t, cfg.Security.HideForeignBookings)
	assert.Equal(t, 15, cfg.Payment.TimeoutSeconds)
}
