package ws

import (
	"encoding/json"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cricfever/backend/internal/auth"
	"github.com/cricfever/backend/internal/game"
	"github.com/cricfever/backend/internal/room"
)

// Handler upgrades HTTP requests and dispatches the cricket protocol.
type Handler struct {
	hub     *Hub
	manager *room.Manager
	tokens  *auth.TokenService
}

func NewHandler(hub *Hub, manager *room.Manager, tokens *auth.TokenService) *Handler {
	return &Handler{hub: hub, manager: manager, tokens: tokens}
}

// HandleWebSocket upgrades the connection. A fresh client gets a generated
// player ID; a client presenting a valid resume token reclaims its old one
// and its held room slot.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	var (
		playerID string
		resuming bool
	)

	if rt := c.Query("resume"); rt != "" && h.tokens != nil {
		claims, err := h.tokens.Verify(rt)
		if err != nil {
			log.Printf("[WS] resume token rejected: %v", err)
		} else {
			playerID = claims.PlayerID
			resuming = true
		}
	}
	if playerID == "" {
		playerID = uuid.NewString()
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:      h.hub,
		conn:     conn,
		playerID: playerID,
		send:     make(chan []byte, 256),
	}
	h.hub.register <- client

	go client.writePump()
	go client.readPump()

	if resuming {
		h.manager.Resume(playerID)
	} else {
		h.hub.ToPlayer(playerID, map[string]interface{}{
			"type":     "connected",
			"playerId": playerID,
		})
	}
}

// Message payloads.
type createRoomData struct {
	PlayerName string `json:"playerName"`
	Overs      int    `json:"overs"`
}

type joinRoomData struct {
	PlayerName string `json:"playerName"`
	Code       string `json:"code"`
}

type tossChoiceData struct {
	Choice string `json:"choice"`
}

// handleMessage routes one protocol message to the room layer.
func (c *Client) handleMessage(msg WSMessage) {
	m := c.hub.manager

	switch msg.Type {
	case "create_room":
		var data createRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid create_room data")
			return
		}
		m.CreateRoom(c.playerID, data.PlayerName, data.Overs)

	case "join_room":
		var data joinRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid join_room data")
			return
		}
		m.JoinRoom(c.playerID, data.PlayerName, data.Code)

	case "player_ready":
		m.SetReady(c.playerID)

	case "toss_choice":
		var data tossChoiceData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid toss_choice data")
			return
		}
		m.HandleTossChoice(c.playerID, data.Choice)

	case "bowl_input":
		var data room.BowlInput
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid bowl_input data")
			return
		}
		m.HandleBowlInput(c.playerID, data)

	case "shot_input":
		var data room.ShotInput
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid shot_input data")
			return
		}
		m.HandleShotInput(c.playerID, data)

	case "ball_result_from_client":
		var data game.BallOutcome
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid ball_result data")
			return
		}
		m.HandleBallResult(c.playerID, data)

	case "leave_room":
		m.LeaveRoom(c.playerID)

	case "get_state":
		m.SendState(c.playerID)

	default:
		c.sendError("Unknown message type")
	}
}
