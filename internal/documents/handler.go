package documents

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/inklessflow/inkless-backend/internal/auth"
	"github.com/inklessflow/inkless-backend/pkg/storage"
)

type Handler struct {
	service Service
	storage storage.S3Client
	bucket  string
}

func NewHandler(service Service, store storage.S3Client, bucket string) *Handler {
	return &Handler{service: service, storage: store, bucket: bucket}
}

// RegisterRoutes mounts the document routes. requireAuth guards
// owner-only routes; the sign and read routes also accept a share token.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth, optionalAuth gin.HandlerFunc) {
	docs := rg.Group("/documents")
	{
		docs.POST("", requireAuth, h.Create)
		docs.GET("", requireAuth, h.List)
		docs.POST("/upload", requireAuth, h.Upload)
		docs.GET("/:id", optionalAuth, h.Get)
		docs.PATCH("/:id", requireAuth, h.Update)
		docs.DELETE("/:id", requireAuth, h.Delete)
		docs.POST("/:id/cancel", requireAuth, h.Cancel)

		docs.POST("/:id/fields", requireAuth, h.CreateField)
		docs.PATCH("/:id/fields/:fieldId", requireAuth, h.UpdateField)
		docs.DELETE("/:id/fields/:fieldId", requireAuth, h.DeleteField)

		docs.POST("/:id/sign", optionalAuth, h.Sign)

		docs.GET("/:id/signers", optionalAuth, h.ListSigners)
		docs.POST("/:id/signers", requireAuth, h.AddSigner)
		docs.DELETE("/:id/signers/:signerId", requireAuth, h.RemoveSigner)
		docs.POST("/:id/signers/:signerId/remind", requireAuth, h.Remind)

		docs.POST("/:id/share", requireAuth, h.Share)
		docs.POST("/:id/start", requireAuth, h.Start)
		docs.GET("/:id/status", requireAuth, h.Status)
		docs.GET("/:id/activity", requireAuth, h.Activities)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := h.service.CreateDocument(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *Handler) List(c *gin.Context) {
	var status *DocumentStatus
	if s := c.Query("status"); s != "" {
		st := DocumentStatus(s)
		status = &st
	}
	docs, err := h.service.ListDocuments(c.Request.Context(), auth.UserID(c), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *Handler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	key := storage.DocumentKey(auth.UserID(c).String(), file.Filename)
	if err := h.storage.Upload(c.Request.Context(), h.bucket, key, f); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	url, err := h.storage.GetPresignedURL(c.Request.Context(), h.bucket, key, DefaultLinkTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"fileUrl": url, "fileKey": key})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	doc, err := h.service.GetDocument(c.Request.Context(), id, actorFrom(c), c.Query("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := h.service.UpdateDocument(c.Request.Context(), id, auth.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteDocument(c.Request.Context(), id, auth.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.CancelDocument(c.Request.Context(), id, auth.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) CreateField(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req FieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	field, err := h.service.CreateField(c.Request.Context(), id, auth.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, field)
}

func (h *Handler) UpdateField(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	fieldID, ok := parseID(c, "fieldId")
	if !ok {
		return
	}
	var req FieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	field, err := h.service.UpdateFieldPlacement(c.Request.Context(), id, fieldID, auth.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, field)
}

func (h *Handler) DeleteField(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	fieldID, ok := parseID(c, "fieldId")
	if !ok {
		return
	}
	if err := h.service.DeleteField(c.Request.Context(), id, fieldID, auth.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Sign(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var body struct {
		Fields []FieldValue `json:"fields" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid field data"})
		return
	}

	result, err := h.service.SignDocument(c.Request.Context(), id, SignRequest{
		Fields:     body.Fields,
		Actor:      actorFrom(c),
		ShareToken: c.Query("token"),
		Meta: ActivityMeta{
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": result.Outcome, "fields": result.Fields})
}

func (h *Handler) ListSigners(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	signers, err := h.service.ListSigners(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"signers": signers})
}

func (h *Handler) AddSigner(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req AddSignerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	signer, err := h.service.AddSigner(c.Request.Context(), id, auth.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"signer": signer})
}

func (h *Handler) RemoveSigner(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	signerID, ok := parseID(c, "signerId")
	if !ok {
		return
	}
	if err := h.service.RemoveSigner(c.Request.Context(), id, signerID, auth.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Remind(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	signerID, ok := parseID(c, "signerId")
	if !ok {
		return
	}
	if err := h.service.RemindSigner(c.Request.Context(), id, signerID, auth.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Share(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	link, err := h.service.ShareDocument(c.Request.Context(), id, auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

func (h *Handler) Start(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var body struct {
		Message string `json:"message"`
	}
	_ = c.ShouldBindJSON(&body)

	if err := h.service.StartWorkflow(c.Request.Context(), id, auth.UserID(c), body.Message); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Status(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	status, err := h.service.WorkflowStatus(c.Request.Context(), id, auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) Activities(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	activities, err := h.service.ListActivities(c.Request.Context(), id, auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func actorFrom(c *gin.Context) Actor {
	actor := Actor{Email: auth.UserEmail(c)}
	if id, ok := auth.OptionalUserID(c); ok {
		actor.UserID = &id
	}
	return actor
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrDocumentNotFound),
		errors.Is(err, ErrFieldNotFound),
		errors.Is(err, ErrSignerNotFound),
		errors.Is(err, ErrShareLinkNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ErrSignerExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrSignerImmutable),
		errors.Is(err, ErrNoSigners),
		errors.Is(err, ErrWorkflowClosed),
		errors.Is(err, ErrShareLinkExpired),
		errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred"})
	}
}
