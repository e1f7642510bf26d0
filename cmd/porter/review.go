package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/darklock-net/gatehouse/admission"
	"github.com/darklock-net/gatehouse/admission/audit"
	"github.com/darklock-net/gatehouse/admission/scorestore"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
)

// buildReviewAPI sets up the small HTTP surface staff use to act on held
// joins. Routes are token-scoped: knowing a review token is the capability
// to decide that one join.
func (s *Server) buildReviewAPI() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(s.logger))
	e.Use(middleware.Recover())
	e.Use(echoprometheus.NewMiddleware("porter"))
	e.HTTPErrorHandler = s.errorHandler

	e.GET("/_health", s.handleHealthCheck)
	e.GET("/review/:token", s.handleReviewGet)
	e.POST("/review/:token", s.handleReviewPost)
	return e
}

type GenericStatus struct {
	Daemon string `json:"daemon"`
	Status string `json:"status"`
}

func (s *Server) handleHealthCheck(c echo.Context) error {
	return c.JSON(200, GenericStatus{Status: "ok", Daemon: "porter"})
}

func (s *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := "internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}
	if code >= 500 {
		s.logger.Warn("review API internal error", "err", err, "path", c.Path())
	}
	if !c.Response().Committed {
		c.JSON(code, map[string]any{"error": msg})
	}
}

type reviewSummary struct {
	CommunityID string    `json:"community_id"`
	MemberID    string    `json:"member_id"`
	Mode        string    `json:"mode"`
	Status      string    `json:"status"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`

	Assessment *scorestore.AssessmentRecord `json:"assessment,omitempty"`
	History    []audit.AuditRecord          `json:"history,omitempty"`
}

func (s *Server) handleReviewGet(c echo.Context) error {
	ctx := c.Request().Context()
	token := c.Param("token")

	chal, err := s.engine.Challenges.GetPendingByReviewToken(ctx, token)
	if err != nil {
		return err
	}
	if chal == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no pending review for token")
	}

	out := reviewSummary{
		CommunityID: chal.CommunityID,
		MemberID:    chal.MemberID,
		Mode:        string(chal.Mode),
		Status:      string(chal.Status),
		IssuedAt:    chal.IssuedAt,
		ExpiresAt:   chal.ExpiresAt,
	}
	if rec, err := s.engine.Scores.GetAssessment(ctx, chal.CommunityID, chal.MemberID); err == nil && rec != nil {
		out.Assessment = rec
	}
	if s.auditLog != nil {
		if hist, err := s.auditLog.Recent(ctx, chal.CommunityID, chal.MemberID, 20); err == nil {
			out.History = hist
		}
	}
	return c.JSON(http.StatusOK, out)
}

type reviewDecisionBody struct {
	Action   string `json:"action"`
	Reviewer string `json:"reviewer"`
}

func (s *Server) handleReviewPost(c echo.Context) error {
	ctx := c.Request().Context()
	token := c.Param("token")

	var body reviewDecisionBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	var approve bool
	switch body.Action {
	case "approve":
		approve = true
	case "deny":
		approve = false
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "action must be approve or deny")
	}
	if body.Reviewer == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "reviewer is required")
	}

	outcome, err := s.engine.ProcessReviewDecision(ctx, token, approve, body.Reviewer)
	if err != nil {
		return err
	}
	status := http.StatusOK
	switch outcome {
	case admission.OutcomeNoChallenge:
		status = http.StatusNotFound
	case admission.OutcomeExpired:
		status = http.StatusGone
	case admission.OutcomeThrottled:
		status = http.StatusTooManyRequests
	}
	return c.JSON(status, map[string]any{"outcome": outcome})
}
