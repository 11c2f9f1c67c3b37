package handlers

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	chatservice "github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/service/chat"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/service/dispatch"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/service/presence"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/logger"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/realtime"
)

type chatHistoryFrame struct {
	RideID string `json:"ride_id"`
}

type sendMessageFrame struct {
	RideID string `json:"ride_id"`
	Text   string `json:"text"`
}

type statusUpdateFrame struct {
	RideID string `json:"ride_id"`
	Status string `json:"status"`
}

type updateLocationFrame struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RegisterBusHandlers wires the inbound websocket events to services. The
// same operations exist as REST endpoints; the socket variants exist so
// active clients do not pay an HTTP round trip per action.
func RegisterBusHandlers(bus *realtime.Bus, dispatchSvc *dispatch.Service, chatSvc *chatservice.Service, presenceSvc *presence.Service, log *logger.Logger) {
	bus.Handle(realtime.EventGetChatHistory, func(ctx context.Context, userID uuid.UUID, data json.RawMessage) {
		var frame chatHistoryFrame
		rideID, ok := parseFrame(log, data, &frame, &frame.RideID)
		if !ok {
			return
		}

		msgs, err := chatSvc.History(ctx, userID, rideID)
		if err != nil {
			log.Warn("Chat history over socket failed", logger.Err(err))
			return
		}
		bus.Send(userID, realtime.EventMessageHistory, map[string]interface{}{
			"ride_id":  rideID,
			"messages": msgs,
		})
	})

	bus.Handle(realtime.EventSendMessage, func(ctx context.Context, userID uuid.UUID, data json.RawMessage) {
		var frame sendMessageFrame
		rideID, ok := parseFrame(log, data, &frame, &frame.RideID)
		if !ok {
			return
		}

		if _, err := chatSvc.Send(ctx, userID, rideID, frame.Text); err != nil {
			log.Warn("Chat send over socket failed", logger.Err(err))
		}
	})

	bus.Handle(realtime.EventStatusUpdate, func(ctx context.Context, userID uuid.UUID, data json.RawMessage) {
		var frame statusUpdateFrame
		rideID, ok := parseFrame(log, data, &frame, &frame.RideID)
		if !ok {
			return
		}

		var err error
		switch frame.Status {
		case "arrived":
			_, err = dispatchSvc.ArriveRide(ctx, userID, rideID)
		case "started":
			_, err = dispatchSvc.StartRide(ctx, userID, rideID)
		case "completed":
			_, err = dispatchSvc.CompleteRide(ctx, userID, rideID)
		default:
			log.Warn("Unknown status over socket", logger.String("status", frame.Status))
			return
		}
		if err != nil {
			log.Warn("Status update over socket failed",
				logger.String("status", frame.Status), logger.Err(err))
		}
	})

	bus.Handle(realtime.EventUpdateLocation, func(ctx context.Context, userID uuid.UUID, data json.RawMessage) {
		var frame updateLocationFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Warn("Malformed location frame", logger.Err(err))
			return
		}

		if err := presenceSvc.UpdateLocation(ctx, userID, frame.Latitude, frame.Longitude); err != nil {
			log.Warn("Location update over socket failed", logger.Err(err))
		}
	})
}

// parseFrame unmarshals a socket frame and parses its ride id
func parseFrame(log *logger.Logger, data json.RawMessage, frame interface{}, rideIDField *string) (uuid.UUID, bool) {
	if err := json.Unmarshal(data, frame); err != nil {
		log.Warn("Malformed socket frame", logger.Err(err))
		return uuid.Nil, false
	}
	rideID, err := uuid.Parse(*rideIDField)
	if err != nil {
		log.Warn("Invalid ride id in socket frame", logger.Err(err))
		return uuid.Nil, false
	}
	return rideID, true
}
