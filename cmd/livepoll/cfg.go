package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/galdor/go-ejson"
	"github.com/galdor/go-log"
	"github.com/galdor/go-service/pkg/service"
)

const envPrefix = "LIVEPOLL_"

type ServiceCfg struct {
	Service service.ServiceCfg `json:"service"`
	API     APICfg             `json:"api"`
	Hub     HubCfg             `json:"hub"`
	Poll    PollCfg            `json:"poll"`
}

type APICfg struct {
	Address string `json:"address" env:"API_ADDRESS"`
}

type HubCfg struct {
	Address         string `json:"address" env:"HUB_ADDRESS"`
	QueueSize       int    `json:"queueSize" env:"HUB_QUEUE_SIZE"`
	MaxMessageSize  int    `json:"maxMessageSize" env:"HUB_MAX_MESSAGE_SIZE"`
	MaxDecodeErrors int    `json:"maxDecodeErrors" env:"HUB_MAX_DECODE_ERRORS"`
}

type PollCfg struct {
	MaxDuration int `json:"maxDuration" env:"POLL_MAX_DURATION"`
	MaxOptions  int `json:"maxOptions" env:"POLL_MAX_OPTIONS"`
}

func DefaultServiceCfg() ServiceCfg {
	return ServiceCfg{
		Service: service.ServiceCfg{
			Logger: &log.LoggerCfg{
				BackendType: log.BackendTypeTerminal,
				TerminalBackend: &log.TerminalBackendCfg{
					Color: true,
				},
			},

			DataDirectory: "data",
		},

		API: APICfg{
			Address: "localhost:8081",
		},

		Hub: HubCfg{
			Address:         "localhost:8080",
			QueueSize:       64,
			MaxMessageSize:  4 * 1024,
			MaxDecodeErrors: 5,
		},

		Poll: PollCfg{
			MaxDuration: 3600,
			MaxOptions:  26,
		},
	}
}

// applyEnv overrides configuration values with LIVEPOLL_* environment
// variables.
func (cfg *ServiceCfg) applyEnv() error {
	opts := env.Options{Prefix: envPrefix}

	targets := []interface{}{&cfg.API, &cfg.Hub, &cfg.Poll}

	for _, target := range targets {
		if err := env.ParseWithOptions(target, opts); err != nil {
			return fmt.Errorf("cannot read environment: %w", err)
		}
	}

	return nil
}

func (cfg *ServiceCfg) ValidateJSON(v *ejson.Validator) {
	v.CheckObject("service", &cfg.Service)

	v.CheckObject("api", &cfg.API)
	v.CheckObject("hub", &cfg.Hub)
	v.CheckObject("poll", &cfg.Poll)
}

func (cfg *APICfg) ValidateJSON(v *ejson.Validator) {
	v.CheckStringNotEmpty("address", cfg.Address)
}

func (cfg *HubCfg) ValidateJSON(v *ejson.Validator) {
	v.CheckStringNotEmpty("address", cfg.Address)

	v.CheckIntMin("queueSize", cfg.QueueSize, 1)
	v.CheckIntMin("maxMessageSize", cfg.MaxMessageSize, 1)
	v.CheckIntMin("maxDecodeErrors", cfg.MaxDecodeErrors, 1)
}

func (cfg *PollCfg) ValidateJSON(v *ejson.Validator) {
	v.CheckIntMin("maxDuration", cfg.MaxDuration, 1)
	v.CheckIntMin("maxOptions", cfg.MaxOptions, 2)
}

// validate runs the checks performed when a configuration file is loaded.
// It is used again once environment overrides have been applied.
func (cfg *ServiceCfg) validate() error {
	return ejson.Validate(cfg)
}
