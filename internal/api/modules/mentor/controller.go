package mentor_module

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ethanbaker/mentor/internal/engine"
	"github.com/ethanbaker/mentor/pkg/conversation"
	"github.com/ethanbaker/mentor/pkg/sdk"
	"github.com/gin-gonic/gin"
)

type controller struct {
	svc *Service
}

// OpenView handles POST requests to open a new view
func (ctl *controller) OpenView(c *gin.Context) {
	// Parse request body
	var req sdk.OpenViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}

	ct, err := conversation.ParseContextType(req.ContextType)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Invalid context type", err).AsGinResponse())
		return
	}

	view, err := ctl.svc.Open(req.UserID, conversation.Context{Type: ct, ID: req.ContextID}, req.Params)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to open view", err).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("View opened successfully", toSDKView(view)).AsGinResponse())
}

// GetView handles GET requests for the current state of a view
func (ctl *controller) GetView(c *gin.Context) {
	view, ok := ctl.view(c)
	if !ok {
		return
	}

	c.JSON(sdk.NewSuccessResponse("View retrieved successfully", toSDKView(view)).AsGinResponse())
}

// CloseView handles DELETE requests to tear down a view
func (ctl *controller) CloseView(c *gin.Context) {
	if err := ctl.svc.Close(c.Param("id")); err != nil {
		c.JSON(sdk.NewErrorResponse(errorStatus(err), "Failed to close view", err).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccess("View closed successfully").AsGinResponse())
}

// PostMessage handles POST requests to send a user message
func (ctl *controller) PostMessage(c *gin.Context) {
	view, ok := ctl.view(c)
	if !ok {
		return
	}

	// Parse request body
	var req sdk.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}

	if err := view.Engine.Send(req.Content); err != nil {
		c.JSON(sdk.NewErrorResponse(errorStatus(err), "Failed to send message", err).AsGinResponse())
		return
	}

	c.JSON(sdk.NewAcceptedResponse("Message sent, reply pending", toSDKView(view)).AsGinResponse())
}

// StartNew handles POST requests to start a new conversation
func (ctl *controller) StartNew(c *gin.Context) {
	view, ok := ctl.view(c)
	if !ok {
		return
	}

	if err := view.Engine.StartNew(); err != nil {
		c.JSON(sdk.NewErrorResponse(errorStatus(err), "Failed to start new conversation", err).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("New conversation started", toSDKView(view)).AsGinResponse())
}

// GetHistory handles GET requests to list past conversations
func (ctl *controller) GetHistory(c *gin.Context) {
	view, ok := ctl.view(c)
	if !ok {
		return
	}

	limit := ctl.svc.HistoryLimit()
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Invalid limit", raw).AsGinResponse())
			return
		}
		limit = n
	}

	records, err := view.Engine.History(c.Request.Context(), limit)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(errorStatus(err), "Failed to list history", err).AsGinResponse())
		return
	}

	resp := sdk.HistoryResponse{Conversations: make([]sdk.ConversationSummary, 0, len(records))}
	for _, rec := range records {
		resp.Conversations = append(resp.Conversations, toSDKSummary(rec))
	}
	resp.Count = len(resp.Conversations)

	c.JSON(sdk.NewSuccessResponse("History retrieved successfully", resp).AsGinResponse())
}

// Resume handles POST requests to continue a past conversation
func (ctl *controller) Resume(c *gin.Context) {
	view, ok := ctl.view(c)
	if !ok {
		return
	}

	// Parse request body
	var req sdk.ResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}

	if err := view.Engine.Resume(c.Request.Context(), req.ConversationID); err != nil {
		c.JSON(sdk.NewErrorResponse(errorStatus(err), "Failed to resume conversation", err).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Conversation resumed", toSDKView(view)).AsGinResponse())
}

// DeleteConversation handles DELETE requests to remove a past conversation
func (ctl *controller) DeleteConversation(c *gin.Context) {
	view, ok := ctl.view(c)
	if !ok {
		return
	}

	if err := view.Engine.Delete(c.Request.Context(), c.Param("cid")); err != nil {
		c.JSON(sdk.NewErrorResponse(errorStatus(err), "Failed to delete conversation", err).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Conversation deleted", toSDKView(view)).AsGinResponse())
}

// view looks up the view named in the path, writing a 404 if there is none
func (ctl *controller) view(c *gin.Context) (*View, bool) {
	view, err := ctl.svc.View(c.Param("id"))
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "View not found", err).AsGinResponse())
		return nil, false
	}
	return view, true
}

// errorStatus maps domain errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrViewNotFound), errors.Is(err, conversation.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, conversation.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrDetached):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// Helper method to convert a view to its sdk representation
func toSDKView(view *View) sdk.View {
	snap := view.Engine.Snapshot()

	resp := sdk.View{
		ID:             view.ID,
		UserID:         view.Owner,
		ContextType:    string(view.Context.Type),
		ContextID:      view.Context.ID,
		Transcript:     make([]sdk.Turn, 0, len(snap.Transcript)),
		ReplyPending:   snap.ReplyPending,
		ConversationID: snap.ConversationID,
		State:          snap.State.String(),
	}

	for _, turn := range snap.Transcript {
		resp.Transcript = append(resp.Transcript, sdk.Turn{
			Role:      string(turn.Role),
			Text:      turn.Text,
			Timestamp: turn.Timestamp,
		})
	}

	return resp
}

// Helper method to convert a stored record to a history entry
func toSDKSummary(rec *conversation.Record) sdk.ConversationSummary {
	return sdk.ConversationSummary{
		ID:          rec.ID,
		Title:       rec.Title,
		ContextType: string(rec.Context.Type),
		ContextID:   rec.Context.ID,
		TurnCount:   len(rec.Messages),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}
