// Package server provides embeddable HTTP handlers for one matcher session.
// Endpoints mirror the interactive surface:
//
//	GET    /processes          query: potential=...&communication=...&vacant=1
//	GET    /processes/report
//	POST   /employees          body: add-employee request JSON
//	GET    /employees
//	DELETE /employees/:email
//	GET    /suggestions        query: potential=...&communication=...
//	GET    /history
//	GET    /export             CSV download
//	GET    /metrics            Prometheus
package server

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/staffkit/staff-matcher/internal/ai"
	"github.com/staffkit/staff-matcher/internal/filtering"
	"github.com/staffkit/staff-matcher/internal/roster"
	"github.com/staffkit/staff-matcher/internal/session"
	"github.com/staffkit/staff-matcher/internal/store"
)

type Router struct {
	sess    *session.Session
	logger  *zap.Logger
	token   string
	advisor ai.Advisor
}

// NewRouter constructs a Router over the supplied session. An empty token
// disables auth; a non-nil advisor annotates suggestion responses.
func NewRouter(sess *session.Session, logger *zap.Logger, token string, advisor ai.Advisor) *Router {
	return &Router{sess: sess, logger: logger, token: token, advisor: advisor}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())

	if r.token != "" {
		g.Use(r.requireToken)
	}

	g.GET("/processes", r.handleProcesses)
	g.GET("/processes/report", r.handleReport)
	g.POST("/employees", r.handleAddEmployee)
	g.GET("/employees", r.handleEmployees)
	g.DELETE("/employees/:email", r.handleDeleteEmployee)
	g.GET("/suggestions", r.handleSuggestions)
	g.GET("/history", r.handleHistory)
	g.GET("/export", r.handleExport)
	g.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return g
}

// NewServer returns a configured http.Server for addr using this router.
func NewServer(addr string, r *Router) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

func (r *Router) requireToken(c *gin.Context) {
	if c.GetHeader("Authorization") != "Bearer "+r.token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResp{Error: "invalid or missing token"})
		return
	}
	c.Next()
}

func (r *Router) handleProcesses(c *gin.Context) {
	table := r.sess.Table()
	if table == nil {
		c.JSON(http.StatusConflict, errorResp{Error: session.ErrNoTable.Error()})
		return
	}

	steps, err := filtersFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}

	filtered, err := filtering.Run(steps, table, r.logger)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"processes": filtered.Items, "total_vacancies": filtered.TotalVacancies()})
}

func filtersFromQuery(c *gin.Context) ([]filtering.Filter, error) {
	var potentials []roster.Potential
	for _, raw := range c.QueryArray("potential") {
		p, err := roster.ParsePotential(raw)
		if err != nil {
			return nil, err
		}
		potentials = append(potentials, p)
	}

	var communications []roster.Communication
	for _, raw := range c.QueryArray("communication") {
		comm, err := roster.ParseCommunication(raw)
		if err != nil {
			return nil, err
		}
		communications = append(communications, comm)
	}

	vacant, _ := strconv.ParseBool(c.DefaultQuery("vacant", "false"))

	return []filtering.Filter{
		filtering.NewPotential(potentials),
		filtering.NewCommunication(communications),
		filtering.NewVacantOnly(vacant),
	}, nil
}

func (r *Router) handleReport(c *gin.Context) {
	table := r.sess.Table()
	if table == nil {
		c.JSON(http.StatusConflict, errorResp{Error: session.ErrNoTable.Error()})
		return
	}

	c.JSON(http.StatusOK, table.ReportByPotential())
}

type addEmployeeRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Potential       string `json:"potential" binding:"required"`
	Communication   string `json:"communication" binding:"required"`
	AllowUnassigned bool   `json:"allow_unassigned"`
}

type addEmployeeResponse struct {
	Matched         bool   `json:"matched"`
	Outcome         string `json:"outcome"`
	AssignedProcess string `json:"assigned_process,omitempty"`
	VacancyLeft     *int   `json:"vacancy_left,omitempty"`
	Recorded        bool   `json:"recorded"`
}

func (r *Router) handleAddEmployee(c *gin.Context) {
	var req addEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}

	result, err := r.sess.AddEmployee(
		req.Name, req.Email,
		roster.Potential(req.Potential), roster.Communication(req.Communication),
		req.AllowUnassigned,
	)
	if err != nil {
		c.JSON(statusForError(err), errorResp{Error: err.Error()})
		return
	}

	resp := addEmployeeResponse{
		Matched:  result.Matched,
		Outcome:  string(result.Outcome),
		Recorded: result.Recorded,
	}
	if result.Process != nil {
		resp.AssignedProcess = result.Process.Name
		vacancy := result.Process.Vacancy
		resp.VacancyLeft = &vacancy
	}

	c.JSON(http.StatusOK, resp)
}

func (r *Router) handleEmployees(c *gin.Context) {
	employees, err := r.sess.Employees()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"employees": employees.Items})
}

func (r *Router) handleDeleteEmployee(c *gin.Context) {
	if err := r.sess.RemoveEmployee(c.Param("email")); err != nil {
		c.JSON(statusForError(err), errorResp{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, okResp{OK: true})
}

func (r *Router) handleSuggestions(c *gin.Context) {
	suggestions, err := r.sess.Suggestions(
		roster.Potential(c.Query("potential")),
		roster.Communication(c.Query("communication")),
	)
	if err != nil {
		c.JSON(statusForError(err), errorResp{Error: err.Error()})
		return
	}

	resp := gin.H{"suggestions": suggestions}

	if r.advisor != nil && len(suggestions) > 0 {
		placement := &ai.Placement{
			Potential:     roster.Potential(c.Query("potential")),
			Communication: roster.Communication(c.Query("communication")),
		}
		recommendation, err := r.advisor.Advise(c.Request.Context(), placement, suggestions)
		if err != nil {
			r.logger.Warn("advisor failed", zap.Error(err))
		} else {
			resp["note"] = recommendation.Note
			resp["note_confidence"] = recommendation.Confidence
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (r *Router) handleHistory(c *gin.Context) {
	history, err := r.sess.History()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

func (r *Router) handleExport(c *gin.Context) {
	table := r.sess.Table()
	if table == nil {
		c.JSON(http.StatusConflict, errorResp{Error: session.ErrNoTable.Error()})
		return
	}

	var buf bytes.Buffer
	if err := roster.WriteTable(&buf, table); err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="process_data.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func statusForError(err error) int {
	var invalid *roster.InvalidCategoryError

	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrNoVacancy):
		return http.StatusConflict
	case errors.Is(err, session.ErrNoTable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
