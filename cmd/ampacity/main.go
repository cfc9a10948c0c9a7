package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/gridsense-io/ampacity/cmd/app"
	httpctrl "github.com/gridsense-io/ampacity/internal/controllers/http"
	modbusctrl "github.com/gridsense-io/ampacity/internal/controllers/modbus"
	mqttctrl "github.com/gridsense-io/ampacity/internal/controllers/mqtt"
	"github.com/gridsense-io/ampacity/internal/monitor"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file (.yaml/.yml/.json)")
	flag.Parse()

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	site, err := cfg.SiteModel()
	if err != nil {
		log.Fatal(err)
	}

	mon, err := monitor.New(site, cfg.Snapshot(), cfg.SolverModel())
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 4)

	go func() { errCh <- mon.Run(ctx, cfg.RefreshInterval) }()

	if cfg.Controllers.HTTP.Enabled {
		srv := httpctrl.New(mon, cfg.Controllers.HTTP.Addr, cfg.DeviceID)
		log.WithField("addr", cfg.Controllers.HTTP.Addr).Info("http controller listening")
		go func() { errCh <- srv.Run(ctx) }()
	}

	if cfg.Controllers.MQTT.Enabled {
		ctrl, err := mqttctrl.New(mon, mqttctrl.Config{
			DeviceID:        cfg.DeviceID,
			BrokerURL:       cfg.Controllers.MQTT.BrokerURL,
			ClientID:        cfg.Controllers.MQTT.ClientID,
			BaseTopic:       cfg.Controllers.MQTT.BaseTopic,
			QoS:             cfg.Controllers.MQTT.QoS,
			RetainSnapshot:  cfg.Controllers.MQTT.RetainSnapshot,
			PublishInterval: cfg.Controllers.MQTT.PublishInterval,
			Username:        cfg.Controllers.MQTT.Username,
			Password:        cfg.Controllers.MQTT.Password,
		})
		if err != nil {
			log.Fatal(err)
		}
		log.WithField("broker", cfg.Controllers.MQTT.BrokerURL).Info("mqtt controller starting")
		go func() { errCh <- ctrl.Run(ctx) }()
	}

	if cfg.Controllers.Modbus.Enabled {
		ctrl, err := modbusctrl.New(mon, modbusctrl.Config{
			DeviceID: cfg.DeviceID,
			Addr:     cfg.Controllers.Modbus.Addr,
			UnitID:   cfg.Controllers.Modbus.UnitID,
		})
		if err != nil {
			log.Fatal(err)
		}
		log.WithField("addr", cfg.Controllers.Modbus.Addr).Info("modbus controller starting")
		go func() { errCh <- ctrl.Run(ctx) }()
	}

	if err := <-errCh; err != nil && err != context.Canceled {
		log.WithError(err).Error("controller exited")
	}
}
