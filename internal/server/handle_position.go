package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/TWIMPapp/game.twimp.app-sub000/internal/geolocation"
)

// PositionFrame is one message from the device: either a fix or an error.
type PositionFrame struct {
	Lat      *float64            `json:"lat,omitempty"`
	Lng      *float64            `json:"lng,omitempty"`
	Accuracy *float64            `json:"accuracy,omitempty"`
	Error    *PositionFrameError `json:"error,omitempty"`
}

type PositionFrameError struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type positionAck struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func handlePositionFeed(logger *slog.Logger, sink PositionSink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithTimeout(r.Context(), 12*time.Hour)
		defer cancel()

		logger.Info("position feed connected", "remote", r.RemoteAddr)
		for {
			_, msg, err := conn.Read(ctx)
			if err != nil {
				logger.Debug("position feed ended", "error", err)
				return
			}

			ack := applyFrame(sink, msg)
			data, _ := json.Marshal(ack)
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

func applyFrame(sink PositionSink, msg []byte) positionAck {
	var f PositionFrame
	if err := json.Unmarshal(msg, &f); err != nil {
		return positionAck{Error: "invalid frame"}
	}
	if f.Error != nil {
		sink.Fail(&geolocation.PositionError{
			Code:    geolocation.ParseErrorCode(f.Error.Code),
			Message: f.Error.Message,
		})
		return positionAck{OK: true}
	}
	if f.Lat == nil || f.Lng == nil {
		return positionAck{Error: "lat and lng are required"}
	}
	if *f.Lat < -90 || *f.Lat > 90 || *f.Lng < -180 || *f.Lng > 180 {
		return positionAck{Error: "coordinates out of range"}
	}
	sink.Push(geolocation.Position{Lat: *f.Lat, Lng: *f.Lng, Accuracy: f.Accuracy})
	return positionAck{OK: true}
}
