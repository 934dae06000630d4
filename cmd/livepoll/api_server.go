package main

import (
	"errors"

	"github.com/galdor/go-ejson"
	jsonvalidator "github.com/galdor/go-json-validator"
	"github.com/galdor/go-livepoll/pkg/poll"
	"github.com/galdor/go-service/pkg/shttp"
)

type APIServer struct {
	Service *Service
}

type StatusResponse struct {
	poll.Status

	NbSessions int `json:"nbSessions"`
}

type VoteRequest struct {
	OptionId *poll.OptionId `json:"optionId"`
}

func (r *VoteRequest) ValidateJSON(v *ejson.Validator) {
	v.Check("optionId", r.OptionId != nil, "missingValue", "missing value")
}

type PollValidationErrorData struct {
	ValidationErrors jsonvalidator.ValidationErrors `json:"validationErrors"`
}

func NewAPIServer(s *Service) (*APIServer, error) {
	api := APIServer{
		Service: s,
	}

	return &api, nil
}

func (api *APIServer) Init() error {
	api.initRoutes()
	return nil
}

func (api *APIServer) initRoutes() {
	api.Route("/status", "GET", api.hStatusGET)
	api.Route("/history", "GET", api.hHistoryGET)
	api.Route("/participants", "GET", api.hParticipantsGET)

	api.Route("/poll", "POST", api.hPollPOST)
	api.Route("/poll/stop", "POST", api.hPollStopPOST)
	api.Route("/poll/votes", "POST", api.hPollVotesPOST)
}

func (api *APIServer) Route(pathPattern, method string, routeFunc shttp.RouteFunc) {
	s := api.Service.Service.HTTPServer("api")
	s.Route(pathPattern, method, routeFunc)
}

func (api *APIServer) hStatusGET(h *shttp.Handler) {
	status, err := api.Service.coordinator.Status(h.Request.Context())
	if err != nil {
		api.replyCoordinatorError(h, err)
		return
	}

	res := StatusResponse{
		Status:     status,
		NbSessions: api.Service.hub.NbSessions(),
	}

	h.ReplyJSON(200, &res)
}

func (api *APIServer) hHistoryGET(h *shttp.Handler) {
	polls, err := api.Service.coordinator.History(h.Request.Context())
	if err != nil {
		api.replyCoordinatorError(h, err)
		return
	}

	h.ReplyJSON(200, polls)
}

func (api *APIServer) hParticipantsGET(h *shttp.Handler) {
	h.ReplyJSON(200, api.Service.hub.Registry.List())
}

func (api *APIServer) hPollPOST(h *shttp.Handler) {
	var req poll.PollRequest
	if err := h.JSONRequestData(&req); err != nil {
		return
	}

	p, err := api.Service.coordinator.CreatePoll(h.Request.Context(), req)
	if err != nil {
		var validationErrs jsonvalidator.ValidationErrors

		if errors.As(err, &validationErrs) {
			data := PollValidationErrorData{
				ValidationErrors: validationErrs,
			}

			h.ReplyErrorData(400, "invalidPoll", data, "%v", err)
			return
		}

		api.replyCoordinatorError(h, err)
		return
	}

	h.ReplyJSON(201, &p)
}

func (api *APIServer) hPollStopPOST(h *shttp.Handler) {
	p, stopped, err := api.Service.coordinator.StopPoll(h.Request.Context())
	if err != nil {
		api.replyCoordinatorError(h, err)
		return
	}

	if !stopped {
		h.ReplyEmpty(204)
		return
	}

	h.ReplyJSON(200, &p)
}

// Votes which cannot be counted (no active poll, unknown option) are
// ignored without telling the voter, as on the websocket.
func (api *APIServer) hPollVotesPOST(h *shttp.Handler) {
	var req VoteRequest
	if err := h.JSONRequestData(&req); err != nil {
		return
	}

	_, err := api.Service.coordinator.SubmitVote(h.Request.Context(),
		*req.OptionId)
	if err != nil {
		api.replyCoordinatorError(h, err)
		return
	}

	h.ReplyEmpty(202)
}

func (api *APIServer) replyCoordinatorError(h *shttp.Handler, err error) {
	if errors.Is(err, poll.ErrStopped) {
		h.ReplyError(503, "serviceUnavailable", "%v", err)
		return
	}

	h.ReplyInternalError(500, "%v", err)
}
