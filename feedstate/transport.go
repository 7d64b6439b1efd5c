package feedstate

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

// maintains the push channel: one websocket to the platform that
// delivers mutation echo events for every watched feed. decoded
// envelopes are handed to the sink; the transport itself never touches
// a snapshot

type PushEventSink interface {
	HandleWsEvent(event *PushEvent)
}

type PushTransportSettings struct {
	WsHandshakeTimeout time.Duration
	AuthTimeout        time.Duration
	ReconnectTimeout   time.Duration
	PingTimeout        time.Duration
	WriteTimeout       time.Duration
	ReadTimeout        time.Duration
}

func DefaultPushTransportSettings() *PushTransportSettings {
	return &PushTransportSettings{
		WsHandshakeTimeout: 2 * time.Second,
		AuthTimeout:        2 * time.Second,
		ReconnectTimeout:   5 * time.Second,
		PingTimeout:        1 * time.Second,
		WriteTimeout:       5 * time.Second,
		ReadTimeout:        15 * time.Second,
	}
}

type pushAuth struct {
	Token      string `json:"token"`
	InstanceId Id     `json:"instance_id"`
}

type PushTransport struct {
	ctx    context.Context
	cancel context.CancelFunc

	instanceId Id

	platformUrl string
	token       string

	sink PushEventSink

	settings *PushTransportSettings
}

func NewPushTransportWithDefaults(
	ctx context.Context,
	platformUrl string,
	token string,
	sink PushEventSink,
) *PushTransport {
	return NewPushTransport(ctx, platformUrl, token, sink, DefaultPushTransportSettings())
}

func NewPushTransport(
	ctx context.Context,
	platformUrl string,
	token string,
	sink PushEventSink,
	settings *PushTransportSettings,
) *PushTransport {
	cancelCtx, cancel := context.WithCancel(ctx)
	transport := &PushTransport{
		ctx:         cancelCtx,
		cancel:      cancel,
		instanceId:  NewId(),
		platformUrl: platformUrl,
		token:       token,
		sink:        sink,
		settings:    settings,
	}
	go transport.run()
	return transport
}

func (self *PushTransport) run() {
	defer self.cancel()

	authBytes, err := json.Marshal(&pushAuth{
		Token:      self.token,
		InstanceId: self.instanceId,
	})
	if err != nil {
		return
	}

	for {
		connect := func() (*websocket.Conn, error) {
			dialer := &websocket.Dialer{
				HandshakeTimeout: self.settings.WsHandshakeTimeout,
			}
			ws, _, err := dialer.DialContext(self.ctx, self.platformUrl, nil)
			if err != nil {
				return nil, err
			}

			success := false
			defer func() {
				if !success {
					ws.Close()
				}
			}()

			ws.SetWriteDeadline(time.Now().Add(self.settings.AuthTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, authBytes); err != nil {
				return nil, err
			}

			success = true
			return ws, nil
		}

		ws, err := connect()
		if err != nil {
			glog.Infof("[push]%s connect error = %s\n", self.instanceId, err)
			select {
			case <-self.ctx.Done():
				return
			case <-time.After(self.settings.ReconnectTimeout):
				continue
			}
		}

		c := func() {
			defer ws.Close()

			handleCtx, handleCancel := context.WithCancel(self.ctx)
			defer handleCancel()

			go func() {
				defer handleCancel()

				for {
					select {
					case <-handleCtx.Done():
						return
					case <-time.After(self.settings.PingTimeout):
					}

					ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
					if err := ws.WriteMessage(websocket.TextMessage, make([]byte, 0)); err != nil {
						// a websocket deadline timeout cannot be recovered
						return
					}
				}
			}()

			go func() {
				defer handleCancel()

				for {
					select {
					case <-handleCtx.Done():
						return
					default:
					}

					ws.SetReadDeadline(time.Now().Add(self.settings.ReadTimeout))
					messageType, message, err := ws.ReadMessage()
					if err != nil {
						glog.Infof("[push]%s<- error = %s\n", self.instanceId, err)
						return
					}

					switch messageType {
					case websocket.TextMessage:
						if 0 == len(message) {
							// ping
							glog.V(2).Infof("[push]ping %s<-\n", self.instanceId)
							continue
						}

						event := &PushEvent{}
						if err := json.Unmarshal(message, event); err != nil {
							glog.Infof("[push]%s<- decode error = %s\n", self.instanceId, err)
							continue
						}
						glog.V(2).Infof("[push]%s<- %s\n", self.instanceId, event.Type)
						self.sink.HandleWsEvent(event)
					default:
						glog.V(2).Infof("[push]other=%d %s<-\n", messageType, self.instanceId)
					}
				}
			}()

			select {
			case <-handleCtx.Done():
			}
		}
		c()

		select {
		case <-self.ctx.Done():
			return
		case <-time.After(self.settings.ReconnectTimeout):
		}
	}
}

func (self *PushTransport) Close() {
	self.cancel()
}
