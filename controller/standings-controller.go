package controller

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"vibtrix/service"
	"vibtrix/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

type StandingsController struct {
	standingsService *service.StandingsService
	mu               sync.Mutex
	connections      map[string]map[*websocket.Conn]bool
}

func NewStandingsController(db *gorm.DB) *StandingsController {
	controller := &StandingsController{
		standingsService: service.NewStandingsService(db),
		connections:      make(map[string]map[*websocket.Conn]bool),
	}
	controller.StartStandingsUpdater()
	return controller
}

func setupStandingsController(db *gorm.DB) []RouteInfo {
	e := NewStandingsController(db)
	basePath := "/competitions/:competition_id/standings"
	routes := []RouteInfo{
		{Method: "GET", Path: "/latest", HandlerFunc: e.getLatestStandingsHandler()},
		{Method: "GET", Path: "/ws", HandlerFunc: e.WebSocketHandler},
	}
	for i, route := range routes {
		routes[i].Path = basePath + route.Path
	}
	return routes
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// allow any host origin to connect to the websocket
		return true
	},
}

// @id StandingsWebSocket
// @Description Websocket for live standings. Once connected, the client receives a full snapshot followed by diffs.
// @Tags standings
// @Param competition_id path string true "Competition Id"
// @Success 200 {array} service.StandingDifference
// @Router /competitions/{competition_id}/standings/ws [get]
func (e *StandingsController) WebSocketHandler(c *gin.Context) {
	competitionId := c.Param("competition_id")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		http.NotFound(c.Writer, c.Request)
		return
	}
	defer conn.Close()

	standings, err := e.standingsService.CurrentStandings(competitionId)
	if err != nil {
		return
	}

	// Send the full ranking to the new subscriber
	serialized, err := json.Marshal(toStandingsSnapshot(standings))
	if err != nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, serialized); err != nil {
		return
	}

	e.mu.Lock()
	if _, ok := e.connections[competitionId]; !ok {
		e.connections[competitionId] = make(map[*websocket.Conn]bool)
	}
	e.connections[competitionId][conn] = true
	e.mu.Unlock()

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			e.mu.Lock()
			delete(e.connections[competitionId], conn)
			if len(e.connections[competitionId]) == 0 {
				delete(e.connections, competitionId)
			}
			e.mu.Unlock()
			return
		}
	}
}

func (e *StandingsController) StartStandingsUpdater() {
	go func() {
		for {
			e.mu.Lock()
			// only recompute standings for competitions with subscribers
			competitionIds := utils.Keys(e.connections)
			e.mu.Unlock()
			for _, competitionId := range competitionIds {
				fresh, err := e.standingsService.ComputeStandings(competitionId)
				if err != nil {
					continue
				}
				diffs := e.standingsService.Diff(competitionId, fresh)
				if len(diffs) == 0 {
					continue
				}
				serialized, err := json.Marshal(diffs)
				if err != nil {
					log.Printf("failed to serialize standings diff for competition %s: %v", competitionId, err)
					continue
				}
				e.mu.Lock()
				for conn := range e.connections[competitionId] {
					if err := conn.WriteMessage(websocket.TextMessage, serialized); err != nil {
						conn.Close()
						delete(e.connections[competitionId], conn)
					}
				}
				e.mu.Unlock()
			}
			time.Sleep(5 * time.Second)
		}
	}()
}

// @id GetLatestStandings
// @Description Fetches the current ranking of the running round
// @Tags standings
// @Produce json
// @Param competition_id path string true "Competition Id"
// @Success 200 {array} service.Standing
// @Router /competitions/{competition_id}/standings/latest [get]
func (e *StandingsController) getLatestStandingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		competitionId := c.Param("competition_id")
		standings, err := e.standingsService.ComputeStandings(competitionId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, toStandingsSnapshot(standings))
	}
}

func toStandingsSnapshot(standings service.StandingMap) []*service.StandingDifference {
	response := make([]*service.StandingDifference, 0, len(standings))
	for _, standing := range standings {
		response = append(response, &service.StandingDifference{Standing: standing, DiffType: service.Added})
	}
	return response
}
