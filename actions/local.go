// Package actions holds the handlers for the local station bus: the
// commands an operator panel or EV-side controller issues against the
// runtime.
package actions

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"charging_station/common"
	"charging_station/station"
	"charging_station/types"
)

func logDefault(evseID int, action string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{"evse": evseID, "action": action})
}

// Action names accepted on the bus.
const (
	PlugIn        = "plug.in"
	PlugOut       = "plug.out"
	Authorize     = "authorize"
	StartCharging = "start.charging"
	StopCharging  = "stop.charging"
	SuspendEV     = "suspend.ev"
	Resume        = "resume.charging"
	Fault         = "fault"
	FaultCleared  = "fault.cleared"
	MeterSample   = "meter.sample"
	LocalReset    = "reset.local"
)

type LocalActions struct {
	station *station.Station
}

func InitializeLocalActions(st *station.Station) LocalActions {
	return LocalActions{station: st}
}

type connectorPayload struct {
	ConnectorID int `json:"connectorId" validate:"gte=0"`
}

func decodeConnector(payload []byte) (int, error) {
	p := connectorPayload{ConnectorID: 1}
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, &p); err != nil {
			return 0, err
		}
	}
	if p.ConnectorID == 0 {
		p.ConnectorID = 1
	}
	return p.ConnectorID, nil
}

func (a *LocalActions) PlugIn(evseID int, payload []byte, responseChannel chan common.Response) {
	connectorID, err := decodeConnector(payload)
	if err != nil {
		responseChannel <- common.Response{Err: &common.Error{
			Code:    "command.plug.in.payload.not.valid",
			Message: "invalid connector payload",
		}}
		return
	}
	a.station.PlugIn(evseID, connectorID)
	logDefault(evseID, PlugIn).Info("cable plugged in")
	responseChannel <- common.Response{Payload: map[string]interface{}{"status": "ok"}}
}

func (a *LocalActions) PlugOut(evseID int, payload []byte, responseChannel chan common.Response) {
	connectorID, err := decodeConnector(payload)
	if err != nil {
		responseChannel <- common.Response{Err: &common.Error{
			Code:    "command.plug.out.payload.not.valid",
			Message: "invalid connector payload",
		}}
		return
	}
	a.station.PlugOut(evseID, connectorID)
	logDefault(evseID, PlugOut).Info("cable unplugged")
	responseChannel <- common.Response{Payload: map[string]interface{}{"status": "ok"}}
}

func (a *LocalActions) Authorize(evseID int, payload []byte, responseChannel chan common.Response) {
	var response common.Response

	var Validator = validator.New()
	request := &types.IdToken{Type: types.IdTokenTypeISO14443}

	json.Unmarshal(payload, request)
	if err := Validator.Struct(request); err != nil {
		response.Err = &common.Error{
			Code:    "command.authorize.payload.not.valid",
			Message: "invalid id token",
		}
		responseChannel <- response
		return
	}

	info := a.station.AuthorizeToken(evseID, *request)
	logDefault(evseID, Authorize).Infof("token resolved to %v", info.Status)
	response.Payload = map[string]interface{}{"status": string(info.Status)}
	if info.Status != types.AuthorizationStatusAccepted {
		response.Err = &common.Error{
			Code:    "command.authorize.rejected",
			Message: fmt.Sprintf("token not accepted: %v", info.Status),
		}
	}
	responseChannel <- response
}

func (a *LocalActions) StartCharging(evseID int, payload []byte, responseChannel chan common.Response) {
	a.station.StartCharging(evseID)
	responseChannel <- common.Response{Payload: map[string]interface{}{"status": "ok"}}
}

func (a *LocalActions) StopCharging(evseID int, payload []byte, responseChannel chan common.Response) {
	var request struct {
		Reason types.StopReason `json:"reason"`
	}
	json.Unmarshal(payload, &request)
	if request.Reason == "" {
		request.Reason = types.StopReasonLocal
	}
	a.station.StopCharging(evseID, request.Reason)
	logDefault(evseID, StopCharging).Infof("charging stopped: %v", request.Reason)
	responseChannel <- common.Response{Payload: map[string]interface{}{"status": "ok"}}
}

func (a *LocalActions) SuspendEV(evseID int, payload []byte, responseChannel chan common.Response) {
	a.station.SuspendEV(evseID)
	responseChannel <- common.Response{Payload: map[string]interface{}{"status": "ok"}}
}

func (a *LocalActions) Resume(evseID int, payload []byte, responseChannel chan common.Response) {
	a.station.ResumeCharging(evseID)
	responseChannel <- common.Response{Payload: map[string]interface{}{"status": "ok"}}
}

func (a *LocalActions) Fault(evseID int, payload []byte, responseChannel chan common.Response) {
	connectorID, err := decodeConnector(payload)
	if err != nil {
		responseChannel <- common.Response{Err: &common.Error{
			Code:    "command.fault.payload.not.valid",
			Message: "invalid connector payload",
		}}
		return
	}
	a.station.Fault(evseID, connectorID)
	responseChannel <- common.Response{Payload: map[string]interface{}{"status": "ok"}}
}

func (a *LocalActions) FaultCleared(evseID int, payload []byte, responseChannel chan common.Response) {
	connectorID, err := decodeConnector(payload)
	if err != nil {
		responseChannel <- common.Response{Err: &common.Error{
			Code:    "command.fault.cleared.payload.not.valid",
			Message: "invalid connector payload",
		}}
		return
	}
	a.station.FaultCleared(evseID, connectorID)
	responseChannel <- common.Response{Payload: map[string]interface{}{"status": "ok"}}
}

func (a *LocalActions) MeterSample(evseID int, payload []byte, responseChannel chan common.Response) {
	var response common.Response

	var Validator = validator.New()
	request := &types.MeterValue{}

	if err := json.Unmarshal(payload, request); err != nil {
		response.Err = &common.Error{
			Code:    "command.meter.sample.payload.not.valid",
			Message: "invalid meter value",
		}
		responseChannel <- response
		return
	}
	if err := Validator.Struct(request); err != nil {
		response.Err = &common.Error{
			Code:    "command.meter.sample.payload.not.valid",
			Message: "invalid meter value",
		}
		responseChannel <- response
		return
	}

	a.station.MeterSample(evseID, *request)
	response.Payload = map[string]interface{}{"status": "ok"}
	responseChannel <- response
}

func (a *LocalActions) LocalReset(evseID int, payload []byte, responseChannel chan common.Response) {
	logDefault(evseID, LocalReset).Warn("local reset requested")
	a.station.Stop()
	responseChannel <- common.Response{Payload: map[string]interface{}{"status": "stopping"}}
}
