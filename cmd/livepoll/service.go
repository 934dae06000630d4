package main

import (
	"fmt"

	"github.com/galdor/go-livepoll/pkg/hub"
	"github.com/galdor/go-livepoll/pkg/poll"
	"github.com/galdor/go-log"
	"github.com/galdor/go-program"
	"github.com/galdor/go-service/pkg/service"
	"github.com/galdor/go-service/pkg/shttp"
)

type Service struct {
	Cfg     ServiceCfg
	Program *program.Program
	Service *service.Service
	Log     *log.Logger

	cfgPrepared bool
	cfgErr      error

	hub         *hub.Hub
	coordinator *poll.Coordinator
	apiServer   *APIServer
}

func NewService() *Service {
	return &Service{
		Cfg: DefaultServiceCfg(),
	}
}

func (s *Service) InitProgram(p *program.Program) {
	s.Program = p
}

func (s *Service) DefaultCfg() interface{} {
	return &s.Cfg
}

func (s *Service) ValidateCfg() error {
	return s.prepareCfg()
}

// prepareCfg applies environment overrides on top of the default or loaded
// configuration and validates the result. The configuration file is
// optional, so this also runs from ServiceCfg.
func (s *Service) prepareCfg() error {
	if s.cfgPrepared {
		return s.cfgErr
	}

	s.cfgPrepared = true

	if err := s.Cfg.applyEnv(); err != nil {
		s.cfgErr = err
	} else {
		s.cfgErr = s.Cfg.validate()
	}

	return s.cfgErr
}

func (s *Service) ServiceCfg() *service.ServiceCfg {
	if err := s.prepareCfg(); err != nil && s.Program != nil {
		s.Program.Fatal("invalid configuration: %v", err)
	}

	cfg := &s.Cfg.Service

	if cfg.HTTPServers == nil {
		cfg.HTTPServers = make(map[string]*shttp.ServerCfg)
	}

	cfg.HTTPServers["api"] = &shttp.ServerCfg{
		Address:               s.Cfg.API.Address,
		LogSuccessfulRequests: true,
		ErrorHandler:          shttp.JSONErrorHandler,
	}

	return cfg
}

func (s *Service) Init(ss *service.Service) error {
	s.Service = ss
	s.Log = ss.Log

	if err := s.prepareCfg(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := s.initHub(); err != nil {
		return err
	}

	if err := s.initCoordinator(); err != nil {
		return err
	}

	if err := s.initAPIServer(); err != nil {
		return err
	}

	return nil
}

func (s *Service) initHub() error {
	hubCfg := hub.HubCfg{
		Address: s.Cfg.Hub.Address,

		Logger: s.Log.Child("hub", log.Data{
			"address": s.Cfg.Hub.Address,
		}),

		QueueSize:       s.Cfg.Hub.QueueSize,
		MaxMessageSize:  s.Cfg.Hub.MaxMessageSize,
		MaxDecodeErrors: s.Cfg.Hub.MaxDecodeErrors,
	}

	h, err := hub.NewHub(hubCfg)
	if err != nil {
		return fmt.Errorf("cannot create hub: %w", err)
	}

	s.hub = h

	return nil
}

func (s *Service) initCoordinator() error {
	coordinatorCfg := poll.CoordinatorCfg{
		Logger:      s.Log.Child("poll", log.Data{}),
		Broadcaster: s.hub,
		Voters:      s.hub.Registry,

		MaxDuration: s.Cfg.Poll.MaxDuration,
		MaxOptions:  s.Cfg.Poll.MaxOptions,
	}

	c, err := poll.NewCoordinator(coordinatorCfg)
	if err != nil {
		return fmt.Errorf("cannot create poll coordinator: %w", err)
	}

	s.coordinator = c
	s.hub.Polls = c

	return nil
}

func (s *Service) initAPIServer() error {
	api, err := NewAPIServer(s)
	if err != nil {
		return fmt.Errorf("cannot create api server: %w", err)
	}

	s.apiServer = api

	return nil
}

func (s *Service) Start(ss *service.Service) error {
	if err := s.coordinator.Start(ss.ErrorChan()); err != nil {
		return fmt.Errorf("cannot start poll coordinator: %w", err)
	}

	if err := s.hub.Start(ss.ErrorChan()); err != nil {
		return fmt.Errorf("cannot start hub: %w", err)
	}

	if err := s.apiServer.Init(); err != nil {
		return fmt.Errorf("cannot initialize api server: %w", err)
	}

	return nil
}

func (s *Service) Stop(ss *service.Service) {
	s.hub.Stop()
	s.coordinator.Stop()
}

func (s *Service) Terminate(ss *service.Service) {
}
