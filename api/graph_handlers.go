package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"trellis-api/assist"
	"trellis-api/domain"
)

type linkRequest struct {
	FromProjectID string `json:"fromProjectId"`
	ToProjectID   string `json:"toProjectId"`
	Type          string `json:"type"`
}

func postGraphLink(graphStore GraphStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return err
		}
		var req linkRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if req.FromProjectID == "" || req.ToProjectID == "" {
			return writeError(c, fmt.Errorf("%w: project ids must not be empty", domain.ErrInvalidArgument))
		}
		linkType, err := domain.ParseLinkType(req.Type)
		if err != nil {
			return writeError(c, err)
		}
		if err := graphStore.Link(c.Request().Context(), userID, req.FromProjectID, req.ToProjectID, linkType); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, map[string]bool{"ok": true})
	}
}

type linkSuggestionsResponse struct {
	Suggestions []assist.LinkSuggestion `json:"suggestions"`
}

// getLinkSuggestions proposes relationships across the caller's projects. It
// reads the project list only; nothing is written to the graph until the
// caller confirms a suggestion via postGraphLink.
func getLinkSuggestions(store Store, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return err
		}
		projects, err := store.ListProjects(c.Request().Context(), userID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, linkSuggestionsResponse{Suggestions: assist.LinkSuggestions(projects)})
	}
}

func getGraphLinks(graphStore GraphStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return err
		}
		links, err := graphStore.Links(c.Request().Context(), userID, c.Param("projectId"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, linksResponse{Links: links})
	}
}
