package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gogotex/gogotex/backend/docservice/internal/document"
	"github.com/gogotex/gogotex/backend/docservice/internal/document/service"
	"github.com/gogotex/gogotex/backend/docservice/internal/document/versions"
	"github.com/gogotex/gogotex/backend/docservice/pkg/logger"
	"github.com/gogotex/gogotex/backend/docservice/pkg/middleware"
)

// Handler exposes the document service over HTTP. Routes expect
// middleware.AuthMiddleware to have run on the group.
type Handler struct {
	svc service.Service
	log *zap.SugaredLogger
}

func New(svc service.Service) *Handler {
	return &Handler{svc: svc, log: logger.Named("http")}
}

// Register mounts the document routes on rg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	docs := rg.Group("/documents")
	docs.POST("", h.create)
	docs.GET("", h.list)
	docs.GET("/:id", h.get)
	docs.PUT("/:id", h.update)
	docs.DELETE("/:id", h.delete)
	docs.GET("/:id/versions", h.listVersions)
	docs.GET("/:id/versions/:versionNumber", h.getVersion)
	docs.PUT("/:id/restore", h.restore)
}

type updateRequest struct {
	document.UpdateFields
	ChangeDescription string `json:"changeDescription"`
}

type restoreRequest struct {
	VersionNumber     int    `json:"versionNumber"`
	ChangeDescription string `json:"changeDescription"`
}

func (h *Handler) create(c *gin.Context) {
	var req document.CreateFields
	if !h.bind(c, &req) {
		return
	}
	d, err := h.svc.Create(c.Request.Context(), req, middleware.CallerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *Handler) list(c *gin.Context) {
	docs, err := h.svc.List(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *Handler) get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) update(c *gin.Context) {
	var req updateRequest
	if !h.bind(c, &req) {
		return
	}
	d, err := h.svc.Update(c.Request.Context(), c.Param("id"), req.UpdateFields, middleware.CallerID(c), req.ChangeDescription)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) delete(c *gin.Context) {
	res, err := h.svc.Delete(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) listVersions(c *gin.Context) {
	req := versions.PageRequest{ModifiedBy: c.Query("modifiedBy")}
	bad := map[string]string{}
	req.Page = queryInt(c, "page", bad)
	req.PageSize = queryInt(c, "pageSize", bad)
	if len(bad) > 0 {
		h.fail(c, &document.ValidationError{Fields: bad})
		return
	}
	page, err := h.svc.ListVersions(c.Request.Context(), c.Param("id"), middleware.CallerID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) getVersion(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("versionNumber"))
	if err != nil {
		h.fail(c, &document.ValidationError{Fields: map[string]string{"versionNumber": "must be an integer"}})
		return
	}
	v, err := h.svc.GetVersion(c.Request.Context(), c.Param("id"), n, middleware.CallerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) restore(c *gin.Context) {
	var req restoreRequest
	if !h.bind(c, &req) {
		return
	}
	if req.VersionNumber < 1 {
		h.fail(c, &document.ValidationError{Fields: map[string]string{"versionNumber": "must be a positive integer"}})
		return
	}
	d, err := h.svc.Restore(c.Request.Context(), c.Param("id"), req.VersionNumber, middleware.CallerID(c), req.ChangeDescription)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// bind decodes the JSON body into v; an empty body leaves v zero.
func (h *Handler) bind(c *gin.Context, v interface{}) bool {
	err := c.ShouldBindJSON(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typ):
		h.fail(c, &document.ValidationError{Fields: map[string]string{typ.Field: "has the wrong type"}})
	case errors.As(err, &syntax):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed JSON body"})
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
	return false
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := document.MapHTTPStatus(err)
	body := gin.H{"error": err.Error()}
	var ve *document.ValidationError
	if errors.As(err, &ve) {
		body["fields"] = ve.Fields
	}
	if status == http.StatusInternalServerError {
		h.log.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		body["error"] = "internal error"
	}
	c.AbortWithStatusJSON(status, body)
}

// queryInt parses an optional integer query parameter; absent means 0.
func queryInt(c *gin.Context, key string, bad map[string]string) int {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		bad[key] = "must be an integer"
		return 0
	}
	return n
}
