package api

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"visionchat/internal/auth"
	"visionchat/internal/models"
	"visionchat/internal/service/assistant"
	"visionchat/internal/service/usage"
	"visionchat/internal/session"
	"visionchat/internal/web"
	"visionchat/internal/worker"
)

const busyMessage = "server is busy, please retry"

// Options tunes the HTTP layer.
type Options struct {
	MaxUploadBytes int64
	RateLimit      float64
	RateBurst      int
}

// Handler wires HTTP routes to the assistant service.
type Handler struct {
	assistant *assistant.Service
	auth      *auth.Service
	usage     usage.Recorder
	renderer  *web.Renderer
	logger    *zap.Logger
	limiters  *limiterSet
	maxUpload int64
}

// NewHandler constructs a Handler instance.
func NewHandler(service *assistant.Service, authService *auth.Service, recorder usage.Recorder, logger *zap.Logger, opts Options) *Handler {
	if recorder == nil {
		recorder = usage.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &Handler{
		assistant: service,
		auth:      authService,
		usage:     recorder,
		renderer:  web.NewRenderer(),
		logger:    logger,
		limiters:  newLimiterSet(opts.RateLimit, opts.RateBurst),
		maxUpload: opts.MaxUploadBytes,
	}
}

// RegisterRoutes attaches all HTTP routes and page templates to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(h.renderer.Templates())
	router.StaticFS("/static", http.FS(web.Static()))

	router.GET("/", h.index)
	router.GET("/healthz", h.healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sessionMW := []gin.HandlerFunc{h.bodyLimit(), h.auth.CSRFMiddleware(), h.auth.Middleware()}

	pages := router.Group("/apps/:app", sessionMW...)
	pages.GET("", h.showApp)
	pages.POST("", h.rateLimit(), h.submitForm)
	pages.POST("/reset", h.resetForm)

	api := router.Group("/api")
	api.GET("/usage", h.usageReport)
	appAPI := api.Group("/apps/:app", sessionMW...)
	appAPI.POST("/messages", h.rateLimit(), h.postMessage)
	appAPI.POST("/stream", h.rateLimit(), h.streamMessage)
	appAPI.GET("/history", h.getHistory)
	appAPI.DELETE("/session", h.deleteSession)
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{"Profiles": assistant.Profiles()})
}

// pageData is what app.html renders.
type pageData struct {
	Profile   assistant.Profile
	CSRFToken string
	Prompt    string
	Preview   template.URL
	Result    string
	Warning   string
	Error     string
	History   []models.Turn
}

// sessionProfile resolves the session and profile of an app route. The
// session middleware has already rejected unknown apps.
func (h *Handler) sessionProfile(c *gin.Context) (*session.Context, assistant.Profile, bool) {
	sc, ok := auth.SessionFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session missing"})
		return nil, assistant.Profile{}, false
	}
	profile, ok := assistant.Lookup(sc.App)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown app"})
		return nil, assistant.Profile{}, false
	}
	return sc, profile, true
}

func (h *Handler) newPage(c *gin.Context, sc *session.Context, profile assistant.Profile) *pageData {
	data := &pageData{Profile: profile, CSRFToken: h.auth.CSRFToken(c)}
	if profile.History {
		history, err := h.assistant.History(c.Request.Context(), sc)
		if err != nil {
			h.logger.Warn("load history", zap.String("session", sc.ID), zap.Error(err))
		}
		data.History = history
	}
	return data
}

func (h *Handler) showApp(c *gin.Context) {
	sc, profile, ok := h.sessionProfile(c)
	if !ok {
		return
	}
	c.HTML(http.StatusOK, "app.html", h.newPage(c, sc, profile))
}

func (h *Handler) submitForm(c *gin.Context) {
	sc, profile, ok := h.sessionProfile(c)
	if !ok {
		return
	}
	in, err := parseSubmission(c, h.maxUpload)
	if err != nil {
		data := h.newPage(c, sc, profile)
		data.Prompt = in.Text
		data.Warning = err.Error()
		c.HTML(http.StatusOK, "app.html", data)
		return
	}

	res, err := h.assistant.Submit(c.Request.Context(), sc, in)
	data := h.newPage(c, sc, profile)
	data.Prompt = in.Text
	if !in.Image.Empty() {
		data.Preview = template.URL(in.Image.DataURL())
	}
	if err != nil {
		if w, ok := assistant.AsWarning(err); ok {
			data.Warning = w.Message
		} else {
			data.Error = userError(err)
		}
		c.HTML(http.StatusOK, "app.html", data)
		return
	}
	data.Result = res.Response
	if res.History != nil {
		data.History = res.History
	}
	c.HTML(http.StatusOK, "app.html", data)
}

func (h *Handler) resetForm(c *gin.Context) {
	sc, profile, ok := h.sessionProfile(c)
	if !ok {
		return
	}
	if err := h.assistant.EndSession(c.Request.Context(), sc); err != nil {
		h.logger.Warn("end session", zap.String("session", sc.ID), zap.Error(err))
	}
	h.auth.ClearSession(c, profile.Name)
	c.Redirect(http.StatusSeeOther, "/apps/"+profile.Name)
}

func (h *Handler) postMessage(c *gin.Context) {
	sc, _, ok := h.sessionProfile(c)
	if !ok {
		return
	}
	in, err := parseSubmission(c, h.maxUpload)
	if err != nil {
		var ue *uploadError
		if errors.As(err, &ue) {
			c.JSON(ue.Status, gin.H{"error": ue.Message})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.assistant.Submit(c.Request.Context(), sc, in)
	if err != nil {
		if w, ok := assistant.AsWarning(err); ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"warning": w.Message})
			return
		}
		c.JSON(errorStatus(err), gin.H{"error": userError(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": sc.ID,
		"response":   res.Response,
		"html":       h.renderer.Markdown(res.Response),
		"history":    res.History,
	})
}

func (h *Handler) streamMessage(c *gin.Context) {
	sc, _, ok := h.sessionProfile(c)
	if !ok {
		return
	}
	in, err := parseSubmission(c, h.maxUpload)
	if err != nil {
		var ue *uploadError
		if errors.As(err, &ue) {
			c.JSON(ue.Status, gin.H{"error": ue.Message})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, ok := startSSE(c)
	if !ok {
		return
	}
	if err := events.send("ack", gin.H{
		"session_id": sc.ID,
		"prompt":     in.Text,
		"has_image":  !in.Image.Empty(),
	}); err != nil {
		return
	}
	res, err := h.assistant.SubmitStream(c.Request.Context(), sc, in, func(chunk string) error {
		return events.send("stream", gin.H{"content": chunk})
	})
	if err != nil {
		payload := gin.H{"message": userError(err), "kind": "model"}
		if w, ok := assistant.AsWarning(err); ok {
			payload = gin.H{"message": w.Message, "kind": "warning"}
		} else if errors.Is(err, worker.ErrDispatcherBusy) {
			payload["kind"] = "busy"
		}
		_ = events.send("error", payload)
		return
	}
	_ = events.send("done", gin.H{
		"response": res.Response,
		"history":  res.History,
	})
}

func (h *Handler) getHistory(c *gin.Context) {
	sc, profile, ok := h.sessionProfile(c)
	if !ok {
		return
	}
	turns, err := h.assistant.History(c.Request.Context(), sc)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if turns == nil {
		turns = []models.Turn{}
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": sc.ID,
		"app":        profile.Name,
		"turns":      turns,
	})
}

func (h *Handler) deleteSession(c *gin.Context) {
	sc, profile, ok := h.sessionProfile(c)
	if !ok {
		return
	}
	if err := h.assistant.EndSession(c.Request.Context(), sc); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	h.auth.ClearSession(c, profile.Name)
	c.Status(http.StatusNoContent)
}

func (h *Handler) usageReport(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	summary, err := h.usage.Summary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	recent, err := h.usage.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if summary == nil {
		summary = []models.UsageSummary{}
	}
	if recent == nil {
		recent = []models.UsageRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary, "recent": recent})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, worker.ErrDispatcherBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, assistant.ErrModel):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func userError(err error) string {
	if errors.Is(err, worker.ErrDispatcherBusy) {
		return busyMessage
	}
	return err.Error()
}
