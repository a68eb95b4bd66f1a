package config

import (
	"errors"
	"time"

	"github.com/andreyvit/tinyjson"

	"sfy-go/drivers/ism330dhcx"
	"sfy-go/x/mathx"
	"sfy-go/x/strx"
	"sfy-go/x/timex"
)

// -----------------------------------------------------------------------------
// String constants (live in flash, not RAM)
// -----------------------------------------------------------------------------

const (
	DefaultDevice  = "sfy"
	DefaultProduct = "no.met.gauteh:sfy"
	DefaultSerial  = "cain"
)

// MaxTick is the longest acquisition tick: a sixth of the time the IMU FIFO
// takes to fill at the default rate, rounded down to 100 ms.
var MaxTick = (timex.FifoCoverage(ism330dhcx.FifoDepth, ism330dhcx.Rate208Hz.Hz()) / 6).Truncate(100 * time.Millisecond)

var (
	ErrNoConfig  = errors.New("config: no embedded config for device")
	ErrNotObject = errors.New("config: embedded config is not a JSON object")
	ErrMalformed = errors.New("config: malformed JSON")
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Config is the resolved device configuration.
type Config struct {
	Device  string
	Product string
	Serial  string

	// IMU interrupt.
	TickPeriod time.Duration // capped at MaxTick
	ImuRetries uint32
	QueueSize  int

	// Main loop.
	LoopPeriod  time.Duration
	LoopRetries uint32
	IdleSleep   bool

	LocationInterval time.Duration
	SyncInterval     time.Duration
	SyncStoragePct   float64
	ResetSettle      time.Duration

	HeartbeatInterval time.Duration
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Device:           DefaultDevice,
		Product:          DefaultProduct,
		Serial:           DefaultSerial,
		TickPeriod:       100 * time.Millisecond,
		ImuRetries:       5,
		QueueSize:        32,
		LoopPeriod:       time.Second,
		LoopRetries:      5,
		LocationInterval: 60 * time.Second,
		SyncInterval:     20 * time.Minute,
		SyncStoragePct:   75,
		ResetSettle:      3 * time.Second,

		HeartbeatInterval: 10 * time.Minute,
	}
}

// Load resolves the embedded config for device.
func Load(device string) (Config, error) {
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return Config{}, ErrNoConfig
	}
	c, err := Parse(raw)
	if err != nil {
		return Config{}, err
	}
	c.Device = device
	return c, nil
}

// Parse applies the JSON document raw on top of Defaults. Unknown keys are
// ignored.
func Parse(raw []byte) (c Config, err error) {
	c = Defaults()
	m, err := decode(raw)
	if err != nil {
		return Config{}, err
	}

	c.Product = strx.Coalesce(str(m, "product"), c.Product)
	c.Serial = strx.Coalesce(str(m, "sn"), c.Serial)

	if imu, ok := m["imu"].(map[string]any); ok {
		if v, ok := num(imu, "tick_ms"); ok {
			c.TickPeriod = time.Duration(mathx.Clamp(v, 10, float64(MaxTick.Milliseconds()))) * time.Millisecond
		}
		if v, ok := num(imu, "retries"); ok {
			c.ImuRetries = uint32(mathx.Clamp(v, 1, 100))
		}
		if v, ok := num(imu, "queue"); ok {
			c.QueueSize = mathx.FloorPow2(int(mathx.Clamp(v, 2, 64)))
		}
	}
	if loop, ok := m["loop"].(map[string]any); ok {
		if v, ok := num(loop, "period_ms"); ok {
			c.LoopPeriod = time.Duration(mathx.Clamp(v, 100, 60_000)) * time.Millisecond
		}
		if v, ok := num(loop, "retries"); ok {
			c.LoopRetries = uint32(mathx.Clamp(v, 1, 100))
		}
		if v, ok := loop["idle_sleep"].(bool); ok {
			c.IdleSleep = v
		}
		if v, ok := num(loop, "reset_settle_ms"); ok {
			c.ResetSettle = time.Duration(mathx.Clamp(v, 0, 30_000)) * time.Millisecond
		}
	}
	if loc, ok := m["location"].(map[string]any); ok {
		if v, ok := num(loc, "interval_s"); ok {
			c.LocationInterval = time.Duration(mathx.Max(v, 1)) * time.Second
		}
	}
	if hb, ok := m["heartbeat"].(map[string]any); ok {
		if v, ok := num(hb, "interval_s"); ok {
			c.HeartbeatInterval = time.Duration(mathx.Max(v, 60)) * time.Second
		}
	}
	if s, ok := m["sync"].(map[string]any); ok {
		if v, ok := num(s, "interval_s"); ok {
			c.SyncInterval = time.Duration(mathx.Max(v, 60)) * time.Second
		}
		if v, ok := num(s, "storage_pct"); ok {
			c.SyncStoragePct = mathx.Clamp(v, 1, 100)
		}
	}
	return c, nil
}

func decode(raw []byte) (m map[string]any, err error) {
	defer func() {
		if recover() != nil {
			m, err = nil, ErrMalformed
		}
	}()
	r := tinyjson.Raw(raw)
	val := r.Value() // should be a map[string]any
	r.EnsureEOF()

	m, ok := val.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return m, nil
}

func str(m map[string]any, k string) string {
	s, _ := m[k].(string)
	return s
}

func num(m map[string]any, k string) (float64, bool) {
	v, ok := m[k].(float64)
	return v, ok
}
