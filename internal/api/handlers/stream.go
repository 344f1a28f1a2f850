package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/MaStr/pv-bat-simulator/internal/api/models"
	"github.com/MaStr/pv-bat-simulator/internal/model"
)

const (
	MessageHour    = "stunde"
	MessageSummary = "zusammenfassung"
	MessageError   = "fehler"

	streamWriteWait = 5 * time.Second
	streamReadWait  = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Stream handles GET /api/v1/stream. The client sends one compute request; the
// server answers with one message per hour, then a summary, and closes.
func (h *ComputeHandler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("[Stream] upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(streamReadWait))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			log.Warn().Err(err).Msg("[Stream] read failed")
		}
		return
	}

	var req models.ComputeRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		writeStreamError(conn, models.ErrorDetail{Code: "INVALID_REQUEST", Message: err.Error()})
		return
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		writeStreamError(conn, models.ErrorDetail{Code: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	tr, err := h.run(c.Request.Context(), req)
	if err != nil {
		_, detail := errorDetail(err)
		writeStreamError(conn, detail)
		return
	}
	id := h.save(c.Request.Context(), req, tr)

	for _, s := range tr.Steps {
		step := models.StreamStep{
			Type:       MessageHour,
			Hour:       s.Hour,
			Grid:       model.Round(s.GridWh, 2),
			Discharge:  model.Round(s.DischargeWh, 2),
			Charge:     model.Round(s.ChargeWh, 2),
			GridCharge: model.Round(s.GridChargeWh, 2),
			Export:     model.Round(s.ExportWh, 2),
			Stored:     model.Round(s.StoredWh, 2),
			Price:      model.Round(s.Price, 4),
			Cost:       model.Round(s.CostEUR, 4),
			Mode:       int(s.Mode),
			Action:     string(s.Action()),
		}
		if !s.Time.IsZero() {
			step.Time = s.Time.Format(time.RFC3339)
		}
		if err := writeStreamJSON(conn, step); err != nil {
			log.Warn().Err(err).Int("hour", s.Hour).Msg("[Stream] write failed")
			return
		}
	}

	if err := writeStreamJSON(conn, models.StreamSummary{
		Type:   MessageSummary,
		Result: models.NewComputeResponse(id, tr),
	}); err != nil {
		log.Warn().Err(err).Msg("[Stream] write failed")
		return
	}
	closeStream(conn)
}

func writeStreamJSON(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(v)
}

func writeStreamError(conn *websocket.Conn, detail models.ErrorDetail) {
	if err := writeStreamJSON(conn, models.StreamError{Type: MessageError, Error: detail}); err != nil {
		log.Warn().Err(err).Msg("[Stream] write failed")
		return
	}
	closeStream(conn)
}

func closeStream(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteWait))
}
