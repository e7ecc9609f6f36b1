// Package httpapi is the HTTP surface: deck CRUD, room snapshot reads
// for late joiners, and the websocket mount.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hexproof-games/tabletop/internal/cache"
	"github.com/hexproof-games/tabletop/internal/cardinfo"
	"github.com/hexproof-games/tabletop/internal/database"
	"github.com/hexproof-games/tabletop/internal/relay"
	"github.com/hexproof-games/tabletop/internal/tabletop"
)

// ownerHeader carries the caller's stable player key. Decks are scoped
// to it; there is no account system beyond this.
const ownerHeader = "X-Player-Key"

// API bundles the service dependencies the handlers need. Decks and
// Snaps may be nil when their backing store is not configured; the
// corresponding routes then answer 503.
type API struct {
	Decks *database.Decks
	Snaps *cache.Snapshots
	Cards *cardinfo.Client
	Hub   *relay.Hub
	Log   *logrus.Logger
}

// NewRouter builds the gin engine with all routes mounted.
func NewRouter(api API) *gin.Engine {
	if api.Log == nil {
		api.Log = logrus.StandardLogger()
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if api.Hub != nil {
		r.GET("/ws", gin.WrapF(api.Hub.ServeWS))
	}

	r.GET("/api/rooms/:code/snapshot", api.getRoomSnapshot)

	r.POST("/api/decks", api.createDeck)
	r.GET("/api/decks", api.listDecks)
	r.GET("/api/decks/:id", api.getDeck)
	r.DELETE("/api/decks/:id", api.deleteDeck)

	return r
}

// getRoomSnapshot serves the durable snapshot so a late joiner can
// hydrate before any peer broadcasts.
func (api *API) getRoomSnapshot(c *gin.Context) {
	if api.Snaps == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshot store not configured"})
		return
	}
	doc, ok := api.Snaps.Load(c.Request.Context(), c.Param("code"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot for room"})
		return
	}
	c.Data(http.StatusOK, "application/json", doc)
}

type createDeckRequest struct {
	Name       string               `json:"name" binding:"required"`
	Text       string               `json:"text"`
	Entries    []tabletop.DeckEntry `json:"entries"`
	Commanders []tabletop.DeckEntry `json:"commanders"`
}

// createDeck imports a deck, either from structured entries or from
// plain decklist text. Card images are resolved best-effort.
func (api *API) createDeck(c *gin.Context) {
	if api.Decks == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "deck store not configured"})
		return
	}
	owner := c.GetHeader(ownerHeader)
	if owner == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": ownerHeader + " header required"})
		return
	}

	var req createDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries := req.Entries
	if len(entries) == 0 && req.Text != "" {
		entries = ParseDecklist(req.Text)
	}
	if len(entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deck has no cards"})
		return
	}

	if api.Cards != nil {
		for i := range entries {
			if entries[i].Image == "" {
				entries[i].Image = api.Cards.Lookup(c.Request.Context(), entries[i].Name).Image
			}
		}
		for i := range req.Commanders {
			if req.Commanders[i].Image == "" {
				req.Commanders[i].Image = api.Cards.Lookup(c.Request.Context(), req.Commanders[i].Name).Image
			}
		}
	}

	deck := database.Deck{
		OwnerKey:   owner,
		Name:       req.Name,
		Entries:    entries,
		Commanders: req.Commanders,
	}
	if err := api.Decks.Save(c.Request.Context(), &deck); err != nil {
		api.Log.WithError(err).Error("saving deck")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save deck"})
		return
	}
	c.JSON(http.StatusCreated, deck)
}

func (api *API) listDecks(c *gin.Context) {
	if api.Decks == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "deck store not configured"})
		return
	}
	owner := c.GetHeader(ownerHeader)
	if owner == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": ownerHeader + " header required"})
		return
	}
	decks, err := api.Decks.List(c.Request.Context(), owner)
	if err != nil {
		api.Log.WithError(err).Error("listing decks")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list decks"})
		return
	}
	if decks == nil {
		decks = []database.Deck{}
	}
	c.JSON(http.StatusOK, decks)
}

func (api *API) getDeck(c *gin.Context) {
	if api.Decks == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "deck store not configured"})
		return
	}
	owner := c.GetHeader(ownerHeader)
	deck, err := api.Decks.Get(c.Request.Context(), owner, c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "deck not found"})
		return
	}
	if err != nil {
		api.Log.WithError(err).Error("fetching deck")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch deck"})
		return
	}
	c.JSON(http.StatusOK, deck)
}

func (api *API) deleteDeck(c *gin.Context) {
	if api.Decks == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "deck store not configured"})
		return
	}
	owner := c.GetHeader(ownerHeader)
	err := api.Decks.Delete(c.Request.Context(), owner, c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "deck not found"})
		return
	}
	if err != nil {
		api.Log.WithError(err).Error("deleting deck")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete deck"})
		return
	}
	c.Status(http.StatusNoContent)
}
