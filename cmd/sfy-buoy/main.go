// Command sfy-buoy is the wave buoy firmware: it samples the IMU from a
// periodic timer, batches accelerations and forwards them through the
// Notecard.
package main

import (
	"context"
	"log/slog"
	"time"

	"sfy-go/axl"
	"sfy-go/board"
	"sfy-go/drivers/ism330dhcx"
	"sfy-go/drivers/notecard"
	"sfy-go/services/config"
	"sfy-go/services/diag"
	"sfy-go/services/heartbeat"
	"sfy-go/services/imu"
	"sfy-go/services/location"
	"sfy-go/services/note"
	"sfy-go/services/state"
	"sfy-go/services/storage"
	"sfy-go/services/system"
	"sfy-go/version"
	"sfy-go/x/slot"
	"sfy-go/x/spsc"
)

// device selects the embedded config (-ldflags "-X main.device=bench").
var device = config.DefaultDevice

func main() {
	println("SFY", version.String(), "booting")

	b, err := board.Open()
	if err != nil {
		panic("board: " + err.Error())
	}

	var dlog diag.Log
	logger := slog.New(diag.NewHandler(b.Console, &dlog, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(device)
	if err != nil {
		logger.Error("config:load-failed", "device", device, "err", err)
		cfg = config.Defaults()
	}

	sys := system.New(b, &dlog, system.Options{Settle: cfg.ResetSettle, Logger: logger})
	defer sys.Recover()

	var st state.Shared
	st.Init(state.State{Clock: state.NewOffsetClock(nil)})

	// Modem power up.
	b.Feed()
	b.Sleep(5 * time.Second)
	b.Feed()

	card := notecard.New(b.Modem)
	card.Configure(notecard.Config{Sleep: b.Sleep})
	nc, err := note.New(card, note.Options{
		Product:        cfg.Product,
		Serial:         cfg.Serial,
		LocationPeriod: cfg.LocationInterval,
		SyncStoragePct: cfg.SyncStoragePct,
		SyncInterval:   cfg.SyncInterval,
		Sleep:          b.Sleep,
	})
	if err != nil {
		sys.Panic("notecard setup: " + err.Error())
		return
	}
	sys.SetUplink(nc)
	logger.Info("system:boot", "cause", b.ResetCause().String())
	if err := nc.HubLog(system.StartupNote(version.String(), cfg.Serial, b.ResetCause()), false, false); err != nil {
		logger.Warn("note:startup-log-failed", "err", err)
	}
	b.Feed()

	if b.Storage != nil {
		vol := &storage.Volume{}
		rec, err := storage.Boot(b.Storage, vol, version.String())
		if err != nil {
			logger.Warn("storage:boot-record-failed", "err", err)
		}
		logger.Info("storage:boot", "count", rec.Count)
		nc.OnSent = storage.NewJournal(b.Storage, vol, logger).Sent
		b.Feed()
	}

	dev := ism330dhcx.New(b.IMU)
	now, lon, lat := st.Snapshot()
	waves, err := imu.NewWaves(&dev, ism330dhcx.Config{}, now, lon, lat)
	if err != nil {
		sys.Panic("imu setup: " + err.Error())
		return
	}

	q := spsc.New[axl.Packet](cfg.QueueSize)
	prod, cons := q.Split()

	var cell slot.Cell[imu.Waves]
	h := imu.NewHandler(imu.Options{
		Cell:    &cell,
		State:   &st,
		Queue:   prod,
		Log:     &dlog,
		Fault:   sys.Panic,
		Retries: cfg.ImuRetries,
	})

	now, lon, lat = st.Snapshot()
	waves.TakeBuf(now, lon, lat)
	if err := waves.EnableFifo(); err != nil {
		sys.Panic("imu fifo: " + err.Error())
		return
	}
	cell.Install(waves)
	b.Every(cfg.TickPeriod, func() {
		defer sys.Recover()
		h.Tick()
	})
	logger.Info("imu:started",
		"rate_hz", dev.SampleRate(),
		"tick", cfg.TickPeriod,
		"queue", q.Cap(),
	)

	loc := location.New(&st, cfg.LocationInterval)
	hb := heartbeat.New(cfg.HeartbeatInterval, func() heartbeat.Counters {
		return heartbeat.Counters{
			Enqueued: waves.Enqueued(),
			Lost:     waves.Lost(),
			Sent:     nc.Sent(),
			Resets:   h.Resets(),
			Fixes:    loc.Fixes(),
		}
	}, &dlog, logger)

	loop := system.NewLoop(&st, b, nc, loc, cons, &dlog, sys,
		system.LoopConfig{
			Period:    cfg.LoopPeriod,
			Retries:   cfg.LoopRetries,
			IdleSleep: cfg.IdleSleep,
			OnCycle:   func(now int64) { hb.Beat(now) },
			Logger:    logger,
		})
	_ = loop.Run(context.Background())
}
