package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (selected at build time, see cmd/sfy-buoy)
// Val: raw JSON bytes for that device; absent keys take Defaults()
// -----------------------------------------------------------------------------

const cfgSFY = `{
  "product": "no.met.gauteh:sfy",
  "sn": "cain",
  "imu": {
      "tick_ms": 100,
      "retries": 5,
      "queue": 32
  },
  "loop": {
      "period_ms": 1000,
      "retries": 5,
      "idle_sleep": true,
      "reset_settle_ms": 3000
  },
  "location": {
      "interval_s": 60
  },
  "sync": {
      "interval_s": 1200,
      "storage_pct": 75
  },
  "heartbeat": {
      "interval_s": 600
  }
}`

const cfgBench = `{
  "sn": "bench",
  "loop": {
      "idle_sleep": false
  },
  "sync": {
      "interval_s": 300
  }
}`

var embeddedConfigs = map[string][]byte{
	"sfy":   []byte(cfgSFY),
	"bench": []byte(cfgBench),
}
