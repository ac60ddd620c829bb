package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/attendance/internal/attendance"
	"github.com/your-org/attendance/internal/models"
	"github.com/your-org/attendance/internal/storage"
	"github.com/your-org/attendance/internal/vision"
	"github.com/your-org/attendance/pkg/dto"
)

// Enroller registers an identity from an extracted embedding.
type Enroller interface {
	Enroll(ctx context.Context, in attendance.Enrollment) (*models.Identity, error)
}

type UserHandler struct {
	store     storage.Store
	photos    storage.PhotoStore
	enroller  Enroller
	extractor vision.Extractor
}

// NewUserHandler builds the identity endpoints. photos and extractor may be nil.
func NewUserHandler(store storage.Store, photos storage.PhotoStore, enroller Enroller, extractor vision.Extractor) *UserHandler {
	return &UserHandler{store: store, photos: photos, enroller: enroller, extractor: extractor}
}

// Register enrolls a new identity from a captured face.
func (h *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	img, emb, err := probe(h.extractor, req.Image)
	if err != nil {
		respondError(c, err)
		return
	}

	ident, err := h.enroller.Enroll(c.Request.Context(), attendance.Enrollment{
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		Event:            req.Event,
		Embedding:        emb,
		Photo:            img.Data,
		PhotoContentType: img.ContentType,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	success(c, http.StatusCreated, dto.RegisterResponse{DigitalID: ident.DigitalID, User: *ident})
}

func (h *UserHandler) List(c *gin.Context) {
	limit, offset, err := pageQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	users, total, err := h.store.ListIdentities(c.Request.Context(), storage.IdentityFilter{
		Event:  c.Query("event"),
		Search: strings.TrimSpace(c.Query("search")),
		Sort:   c.Query("sort"),
		Order:  c.Query("order"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if users == nil {
		users = []models.Identity{}
	}

	success(c, http.StatusOK, dto.UserListResponse{
		Users: users,
		Page:  dto.Page{Total: total, Limit: limit, Offset: offset},
	})
}

// Get returns the identity with its attendance history, newest first.
func (h *UserHandler) Get(c *gin.Context) {
	ident, ok := h.lookup(c)
	if !ok {
		return
	}

	logs, _, err := h.store.ListLogs(c.Request.Context(), storage.LogFilter{IdentityID: ident.DigitalID})
	if err != nil {
		respondError(c, err)
		return
	}
	if logs == nil {
		logs = []models.AttendanceLog{}
	}

	success(c, http.StatusOK, dto.UserDetailResponse{User: *ident, Log: logs})
}

func (h *UserHandler) Update(c *gin.Context) {
	ident, ok := h.lookup(c)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name != nil {
		ident.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		ident.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		ident.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Event != nil {
		ident.Event = strings.TrimSpace(*req.Event)
	}

	if err := h.store.UpdateIdentity(c.Request.Context(), ident); err != nil {
		respondError(c, err)
		return
	}
	success(c, http.StatusOK, ident)
}

// Delete removes the identity and its photo. Attendance entries stay.
func (h *UserHandler) Delete(c *gin.Context) {
	ident, ok := h.lookup(c)
	if !ok {
		return
	}

	if err := h.store.DeleteIdentity(c.Request.Context(), ident.ID); err != nil {
		respondError(c, err)
		return
	}
	if h.photos != nil && ident.PhotoKey != "" {
		if err := h.photos.DeletePhoto(c.Request.Context(), ident.PhotoKey); err != nil {
			slog.Warn("delete enrollment photo", "digital_id", ident.DigitalID, "error", err)
		}
	}

	c.JSON(http.StatusOK, dto.Response{Status: dto.StatusSuccess, Message: "deleted"})
}

// Photo serves the image captured at enrollment.
func (h *UserHandler) Photo(c *gin.Context) {
	ident, ok := h.lookup(c)
	if !ok {
		return
	}
	if h.photos == nil || ident.PhotoKey == "" {
		fail(c, http.StatusNotFound, "photo not found")
		return
	}

	data, contentType, err := h.photos.GetPhoto(c.Request.Context(), ident.PhotoKey)
	if err != nil {
		respondError(c, err)
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, data)
}

// lookup resolves :id as a record UUID or a digital id and writes the error
// response itself when it returns false.
func (h *UserHandler) lookup(c *gin.Context) (*models.Identity, bool) {
	raw := c.Param("id")

	var (
		ident *models.Identity
		err   error
	)
	if id, perr := uuid.Parse(raw); perr == nil {
		ident, err = h.store.GetIdentity(c.Request.Context(), id)
	} else {
		ident, err = h.store.GetIdentityByDigitalID(c.Request.Context(), raw)
	}
	if err != nil {
		respondError(c, fmt.Errorf("get user %s: %w", raw, err))
		return nil, false
	}
	if ident == nil {
		fail(c, http.StatusNotFound, "user not found")
		return nil, false
	}
	return ident, true
}
