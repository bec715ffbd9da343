package daemon

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/vetcalc/pkg/calculator"
	"github.com/charlie0129/vetcalc/pkg/catalog"
	"github.com/charlie0129/vetcalc/pkg/version"
)

// maxImportSize caps the body of POST /import.
const maxImportSize = 8 << 20

type evaluateRequest struct {
	Inputs map[string]string `json:"inputs" binding:"required"`
}

type selectRequest struct {
	ID string `json:"id" binding:"required"`
}

type postponeRequest struct {
	Duration string `json:"duration" binding:"required"`
}

type importResponse struct {
	Imported int `json:"imported"`
}

// BackupStatus is the body of GET /backup.
type BackupStatus struct {
	Schedule string    `json:"schedule"`
	Dir      string    `json:"dir"`
	NextRun  time.Time `json:"nextRun"`
	Running  bool      `json:"running"`
}

func (s *Server) getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

func (s *Server) listCalculators(c *gin.Context) {
	snap := s.catalog.Snapshot()
	group := c.Query("group")
	typ := calculator.Type(c.Query("type"))

	switch typ {
	case "", calculator.TypeBuiltin, calculator.TypeCustom:
	default:
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("unknown calculator type %q", typ))
		return
	}

	summaries := []calculator.Summary{}
	for _, g := range snap.ByGroup(c.Query("q")) {
		if group != "" && !strings.EqualFold(g.Name, group) {
			continue
		}
		for _, calc := range g.Calculators {
			if typ != "" && calc.Type != typ {
				continue
			}
			summaries = append(summaries, calc.Summary())
		}
	}

	c.IndentedJSON(http.StatusOK, summaries)
}

func (s *Server) getCalculator(c *gin.Context) {
	calc, ok := s.catalog.Snapshot().Get(c.Param("id"))
	if !ok {
		abortWithError(c, http.StatusNotFound, fmt.Errorf("%w: %s", catalog.ErrNotFound, c.Param("id")))
		return
	}
	c.IndentedJSON(http.StatusOK, calc)
}

func (s *Server) addCalculator(c *gin.Context) {
	var draft calculator.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	calc, err := s.catalog.Add(c.Request.Context(), draft)
	if err != nil && !catalog.IsPersistError(err) {
		abortWithError(c, statusFor(err), err)
		return
	}
	warnPersist(c, err)
	observeMutation("add", len(s.catalog.Snapshot().Custom()))

	c.IndentedJSON(http.StatusCreated, calc)
}

func (s *Server) deleteCalculator(c *gin.Context) {
	id := c.Param("id")
	err := s.catalog.Delete(c.Request.Context(), id)
	if err != nil && !catalog.IsPersistError(err) {
		abortWithError(c, statusFor(err), err)
		return
	}
	warnPersist(c, err)
	observeMutation("delete", len(s.catalog.Snapshot().Custom()))

	c.IndentedJSON(http.StatusOK, fmt.Sprintf("deleted calculator %s", id))
}

func (s *Server) evaluate(c *gin.Context) {
	prog, ok := s.catalog.Snapshot().Program(c.Param("id"))
	if !ok {
		abortWithError(c, http.StatusNotFound, fmt.Errorf("%w: %s", catalog.ErrNotFound, c.Param("id")))
		return
	}

	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	result := prog.Evaluate(req.Inputs)
	observeEvaluation(result, time.Since(start))

	if result.Err != nil {
		logrus.WithFields(logrus.Fields{
			"id":    c.Param("id"),
			"error": result.Err,
		}).Debug("calculation failed")
	}

	c.IndentedJSON(http.StatusOK, result)
}

func (s *Server) getGroups(c *gin.Context) {
	if builtin, _ := strconv.ParseBool(c.Query("builtin")); builtin {
		c.IndentedJSON(http.StatusOK, s.catalog.BuiltinGroups())
		return
	}
	groups := s.catalog.Snapshot().Groups()
	if groups == nil {
		groups = []string{}
	}
	c.IndentedJSON(http.StatusOK, groups)
}

func (s *Server) importCalculators(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize+1))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if len(data) > maxImportSize {
		abortWithError(c, http.StatusRequestEntityTooLarge, errors.New("import file is too large"))
		return
	}

	n, err := s.catalog.Import(c.Request.Context(), data)
	if err != nil && !catalog.IsPersistError(err) {
		abortWithError(c, statusFor(err), err)
		return
	}
	warnPersist(c, err)
	observeMutation("import", len(s.catalog.Snapshot().Custom()))

	c.IndentedJSON(http.StatusOK, importResponse{Imported: n})
}

func (s *Server) exportCalculators(c *gin.Context) {
	data, err := s.catalog.Export()
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", calculator.ExportFilename(time.Now())))
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (s *Server) getSelection(c *gin.Context) {
	calc, ok := s.catalog.Selected()
	if !ok {
		abortWithError(c, http.StatusNotFound, errors.New("no calculator is selected"))
		return
	}
	c.IndentedJSON(http.StatusOK, calc)
}

func (s *Server) setSelection(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	calc, err := s.catalog.Select(req.ID)
	if err != nil {
		abortWithError(c, statusFor(err), fmt.Errorf("%w: %s", err, req.ID))
		return
	}
	catalogMutationsTotal.WithLabelValues("select").Inc()

	c.IndentedJSON(http.StatusOK, calc)
}

func (s *Server) clearSelection(c *gin.Context) {
	s.catalog.ClearSelection()
	c.IndentedJSON(http.StatusOK, "selection cleared")
}

func (s *Server) streamEvents(c *gin.Context) {
	ch := s.hub.Subscribe()
	eventSubscribers.Set(float64(s.hub.Subscribers()))
	defer func() {
		s.hub.Unsubscribe(ch)
		eventSubscribers.Set(float64(s.hub.Subscribers()))
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	// Flush headers so clients see the stream open before the first event.
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(_ io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func (s *Server) getBackup(c *gin.Context) {
	if s.backup == nil {
		abortWithError(c, http.StatusNotFound, errors.New("backups are not scheduled"))
		return
	}
	c.IndentedJSON(http.StatusOK, s.backup.Status())
}

func (s *Server) skipBackup(c *gin.Context) {
	if s.backup == nil {
		abortWithError(c, http.StatusNotFound, errors.New("backups are not scheduled"))
		return
	}
	if err := s.backup.Skip(); err != nil {
		abortWithError(c, http.StatusConflict, err)
		return
	}
	c.IndentedJSON(http.StatusOK, s.backup.Status())
}

func (s *Server) postponeBackup(c *gin.Context) {
	if s.backup == nil {
		abortWithError(c, http.StatusNotFound, errors.New("backups are not scheduled"))
		return
	}

	var req postponeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	d, err := time.ParseDuration(req.Duration)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("invalid duration %q: %w", req.Duration, err))
		return
	}

	if err := s.backup.Postpone(d); err != nil {
		abortWithError(c, http.StatusConflict, err)
		return
	}
	c.IndentedJSON(http.StatusOK, s.backup.Status())
}
