package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `# comment
MQTT_BROKER=tcp://localhost:1883
TOPIC_IMU=fusion/readings/imu
TOPIC_ESTIMATE=fusion/estimate

GPS_SERIAL_PORT=/dev/serial0
GPS_BAUD_RATE=9600
IMU_SAMPLE_INTERVAL=10
FILTER_BUFFER_SIZE=128
FILTER_INIT_VARIANCE=2.0
NOISE_RANGE=0.25
SCHED_MAX_DELAY_MS=1500
DISPLAY_I2C_ADDR=0x3C
`

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("parses keys, comments and blank lines", func(t *testing.T) {
		t.Parallel()
		cfg, err := Load(writeConfig(t, validConfig))
		require.NoError(t, err)
		assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
		assert.Equal(t, 9600, cfg.GPSBaudRate)
		assert.Equal(t, 128, cfg.FilterBufferSize)
		assert.Equal(t, 2.0, cfg.FilterInitVariance)
		assert.Equal(t, 0.25, cfg.NoiseRange)
		assert.Equal(t, 1500, cfg.SchedMaxDelayMS)
		assert.Equal(t, uint16(0x3C), cfg.DisplayI2CAddr)
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		t.Parallel()
		_, err := Load(writeConfig(t, validConfig+"BOGUS_KEY=1\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown config key")
	})

	t.Run("rejects malformed lines", func(t *testing.T) {
		t.Parallel()
		_, err := Load(writeConfig(t, "MQTT_BROKER tcp://localhost\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config line")
	})

	t.Run("rejects non-numeric numbers", func(t *testing.T) {
		t.Parallel()
		_, err := Load(writeConfig(t, validConfig+"WEB_SERVER_PORT=eighty\n"))
		assert.Error(t, err)
	})

	t.Run("rejects non-positive variances", func(t *testing.T) {
		t.Parallel()
		_, err := Load(writeConfig(t, validConfig+"NOISE_GPS_POSITION=0\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be positive")
	})

	t.Run("requires the broker and core topics", func(t *testing.T) {
		t.Parallel()
		_, err := Load(writeConfig(t, "TOPIC_IMU=a\nTOPIC_ESTIMATE=b\nGPS_SERIAL_PORT=/dev/x\nGPS_BAUD_RATE=9600\nIMU_SAMPLE_INTERVAL=10\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MQTT_BROKER is required")
	})

	t.Run("missing file is an error", func(t *testing.T) {
		t.Parallel()
		_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
		assert.Error(t, err)
	})
}
