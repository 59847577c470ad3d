package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"auction-engine/internal/auctionerrors"
	"auction-engine/internal/bidding"
	"auction-engine/internal/presence"
	"auction-engine/internal/realtime"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
)

// heartbeatInterval paces presence refreshes and SSE keepalives on an open
// stream. It must stay well under the presence TTL.
const heartbeatInterval = 10 * time.Second

// StreamHandler serves GET /auctions/:auction_id/stream as a Server-Sent
// Events stream. The open connection doubles as the viewer's presence
// session: join on connect, heartbeat while connected, leave on disconnect.
func StreamHandler(svc *bidding.Service, bc *realtime.Broadcaster, tracker *presence.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		auctionID := c.Param("auction_id")
		viewerID := c.Query("viewer_id")
		if viewerID == "" {
			utils.JSONError(c, http.StatusBadRequest, auctionerrors.ErrInvalidBid, "viewer_id is required")
			return
		}

		if _, err := svc.GetAuctionState(auctionID); err != nil {
			if errors.Is(err, auctionerrors.ErrAuctionNotFound) {
				utils.JSONError(c, http.StatusNotFound, err, "auction not found")
				return
			}
			utils.JSONError(c, http.StatusInternalServerError, err, "internal server error")
			return
		}

		sub := bc.Subscribe(auctionID, viewerID)
		tracker.Join(auctionID, viewerID)
		defer func() {
			bc.Unsubscribe(sub)
			tracker.Leave(auctionID, viewerID)
		}()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		c.Stream(func(w io.Writer) bool {
			select {
			case ev, ok := <-sub.Events():
				if !ok {
					return false
				}
				c.SSEvent(string(ev.Type), ev)
				return true
			case <-heartbeat.C:
				tracker.Heartbeat(auctionID, viewerID)
				c.SSEvent("heartbeat", time.Now().UTC().Format(time.RFC3339))
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}
