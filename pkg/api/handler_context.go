package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/monument-sim/monument/pkg/services"
)

// agentSecretHeader carries the per-agent secret on both endpoints.
const agentSecretHeader = "X-Agent-Secret"

// getContextHandler handles GET /sim/:namespace/agent/:agent_id/context.
func (s *Server) getContextHandler(c *echo.Context) error {
	req := services.ContextRequest{
		Namespace: c.Param("namespace"),
		AgentID:   c.Param("agent_id"),
		Secret:    c.Request().Header.Get(agentSecretHeader),
	}

	if v := c.QueryParam("history_length"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "history_length must be an integer")
		}
		req.HistoryLength = &n
	}
	if v := c.QueryParam("chat_length"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "chat_length must be an integer")
		}
		req.ChatLength = &n
	}

	snapshot, err := s.contextService.GetContext(c.Request().Context(), req)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, snapshot)
}
