// Package nats bridges the station runtime onto a local NATS bus: station
// events are published per topic, and operator / EV-driver commands arrive
// over request/reply on the station.request subject.
package nats

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"charging_station/common"
	"charging_station/notifier"
)

func init() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stdout)
}

// RequestSubject is the request/reply subject the notifier serves.
const RequestSubject = "station.request"

// Function handles one local command.
type Function func(evseID int, payload []byte, responseChannel chan common.Response)

type natsStationNotifier struct {
	notification chan notifier.Notification // events flowing out of the station
	connection   *nats.Conn
	url          string
	handlers     map[string]Function
	timeout      time.Duration
}

func (n *natsStationNotifier) SetTimeout(timeout time.Duration) {
	n.timeout = timeout
}

func (n natsStationNotifier) Timeout() time.Duration {
	return n.timeout
}

func (n *natsStationNotifier) AddHandler(action string, fn Function) {
	n.handlers[action] = fn
}

func (n *natsStationNotifier) SetChannel(notification chan notifier.Notification) {
	n.notification = notification
}

func (n natsStationNotifier) notificationFromStation() {
	for {
		ev, ok := <-n.notification
		if !ok {
			return
		}
		bt, err := json.Marshal(ev.Data)
		if err != nil {
			log.Error(err)
			continue
		}
		n.connection.Publish(ev.Topic, bt)
	}
}

func (n *natsStationNotifier) requestHandler() {
	var Validator = validator.New()

	n.connection.Subscribe(RequestSubject, func(m *nats.Msg) {
		var command common.Command
		json.Unmarshal(m.Data, &command)
		log.Printf("RequestHandler, %+v", string(m.Data))

		if err := Validator.Struct(&command); err != nil {
			bt, _ := json.Marshal(common.Response{
				Err: &common.Error{
					Code:    "command.format.not.valid",
					Message: "invalid command envelope",
				},
			})
			m.Respond(bt)
			return
		}

		fn, exists := n.handlers[command.Action]
		if !exists {
			bt, _ := json.Marshal(common.Response{
				Err: &common.Error{
					Code:    "command.action.not.found",
					Message: fmt.Sprintf("no such action %q", command.Action),
				},
			})
			m.Respond(bt)
			return
		}

		responseChannel := make(chan common.Response, 1)
		payload, _ := json.Marshal(command.Payload)

		go fn(command.EvseID, payload, responseChannel)

		select {
		case response := <-responseChannel:
			bt, _ := json.Marshal(response)
			m.Respond(bt)
		case <-time.After(n.timeout):
			bt, _ := json.Marshal(common.Response{
				Err: &common.Error{
					Code:    "request.timeout",
					Message: "command response timed out",
				},
			})
			m.Respond(bt)
		}
	})
}

func (n *natsStationNotifier) Start() error {
	url := n.url
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	n.connection = nc
	go n.notificationFromStation()
	go n.requestHandler()
	return nil
}

func (n *natsStationNotifier) Stop() {
	if n.connection != nil {
		n.connection.Close()
		log.Info("NatsStopped")
	}
}

func New(url string) *natsStationNotifier {
	return &natsStationNotifier{
		url:      url,
		handlers: make(map[string]Function),
		timeout:  30 * time.Second,
	}
}
