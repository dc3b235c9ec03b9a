package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/monument-sim/monument/pkg/services"
)

// submitActionHandler handles POST /sim/:namespace/agent/:agent_id/action.
func (s *Server) submitActionHandler(c *echo.Context) error {
	var body ActionSubmission
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	result, err := s.admissionService.Submit(c.Request().Context(), services.Submission{
		Namespace:     c.Param("namespace"),
		BodyNamespace: body.Namespace,
		AgentID:       c.Param("agent_id"),
		Secret:        c.Request().Header.Get(agentSecretHeader),
		SupertickID:   body.SupertickID,
		ContextHash:   body.ContextHash,
		Action:        body.Action,
		LLMInput:      body.LLMInput,
		LLMOutput:     body.LLMOutput,
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, ActionResponse{Success: true, Message: result.Message})
}
