package main

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"charging_station/actions"
	"charging_station/config"
	"charging_station/connectivity"
	"charging_station/devicemodel"
	"charging_station/evse"
	notifier "charging_station/notifier/nats"
	"charging_station/station"
	"charging_station/store"
	"charging_station/types"
)

var log *logrus.Logger

func buildTLSConfig(cfg config.Config) *tls.Config {
	if cfg.SecurityProfile < 2 {
		return nil
	}
	var certPool *x509.CertPool
	if cfg.CaCertificatePath == "" {
		log.Info("no CA certificate configured, using system CA pool")
		systemPool, err := x509.SystemCertPool()
		if err != nil {
			log.Fatalf("couldn't get system CA pool: %v", err)
		}
		certPool = systemPool
	} else {
		certPool = x509.NewCertPool()
		data, err := os.ReadFile(cfg.CaCertificatePath)
		if err != nil {
			log.Fatalf("couldn't read CA certificate from %v: %v", cfg.CaCertificatePath, err)
		}
		if !certPool.AppendCertsFromPEM(data) {
			log.Fatalf("couldn't read CA certificate from %v", cfg.CaCertificatePath)
		}
	}

	tlsConfig := &tls.Config{RootCAs: certPool}
	if cfg.SecurityProfile == 3 {
		if cfg.ClientCertPath == "" || cfg.ClientKeyPath == "" {
			log.Fatal("security profile 3 requires a client certificate and key")
		}
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
		if err != nil {
			log.Fatalf("couldn't load client certificate: %v", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig
}

func main() {
	cfg := config.Load()

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open station database: %v", err)
	}
	defer st.Close()

	deviceModel, err := devicemodel.New(st)
	if err != nil {
		log.Fatalf("failed to load device model: %v", err)
	}

	evses := evse.NewManager(cfg.EvseConnectors, st, nil)

	network := connectivity.NewManager([]connectivity.Profile{{
		ConfigurationSlot: 1,
		Priority:          0,
		SecurityProfile:   cfg.SecurityProfile,
		URI:               cfg.CsmsURL,
		BasicAuthPassword: cfg.BasicAuthPassword,
	}})

	chargingStation := station.New(station.Deps{
		Config:      cfg,
		Log:         log,
		Store:       st,
		DeviceModel: deviceModel,
		Evses:       evses,
		Network:     network,
		TLSConfig:   buildTLSConfig(cfg),
	})

	if cfg.NatsURL != "" {
		busNotifier := notifier.New(cfg.NatsURL)
		busNotifier.SetChannel(chargingStation.NotificationChannel())
		busNotifier.SetTimeout(cfg.CommandTimeout)
		log.Printf("command timeout: %v", busNotifier.Timeout().String())

		localActions := actions.InitializeLocalActions(chargingStation)
		busNotifier.AddHandler(actions.PlugIn, localActions.PlugIn)
		busNotifier.AddHandler(actions.PlugOut, localActions.PlugOut)
		busNotifier.AddHandler(actions.Authorize, localActions.Authorize)
		busNotifier.AddHandler(actions.StartCharging, localActions.StartCharging)
		busNotifier.AddHandler(actions.StopCharging, localActions.StopCharging)
		busNotifier.AddHandler(actions.SuspendEV, localActions.SuspendEV)
		busNotifier.AddHandler(actions.Resume, localActions.Resume)
		busNotifier.AddHandler(actions.Fault, localActions.Fault)
		busNotifier.AddHandler(actions.FaultCleared, localActions.FaultCleared)
		busNotifier.AddHandler(actions.MeterSample, localActions.MeterSample)
		busNotifier.AddHandler(actions.LocalReset, localActions.LocalReset)

		if err := busNotifier.Start(); err != nil {
			log.Fatalf("failed to start nats notifier: %v", err)
		}
		defer busNotifier.Stop()
	}

	if err := chargingStation.Start(types.BootReasonPowerUp); err != nil {
		log.Fatalf("failed to start charging station: %v", err)
	}

	log.Infof("charging station %v connecting to %v", cfg.StationID, cfg.CsmsURL)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	chargingStation.Stop()
	log.Info("charging station stopped")
}

func init() {
	log = logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	// Set this to DebugLevel to retrieve verbose logs from the queue and
	// websocket layers.
	log.SetLevel(logrus.InfoLevel)
}
