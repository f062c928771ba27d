package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/koichi-mofmof/kokoiko-sub002/model"
	"github.com/koichi-mofmof/kokoiko-sub002/repository"
	"github.com/koichi-mofmof/kokoiko-sub002/service"
	"github.com/koichi-mofmof/kokoiko-sub002/utils"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const discoverCacheKey = "discover"
const discoverFeedLimit = 50

// imageStore is the slice of the Cloudinary service the list handler needs.
type imageStore interface {
	UploadImage(ctx context.Context, file io.Reader, publicID string) (string, error)
	DeleteImage(ctx context.Context, publicID string) error
}

type listHandler struct {
	listRepo      repository.ListRepository
	placeRepo     repository.PlaceRepository
	permissionSvc service.PermissionService
	discoverCache *utils.ResponseCache
	images        imageStore
	validate      *validator.Validate
}

func NewListHandler(
	listRepo repository.ListRepository,
	placeRepo repository.PlaceRepository,
	permissionSvc service.PermissionService,
	discoverCache *utils.ResponseCache,
	images imageStore,
) *listHandler {
	return &listHandler{
		listRepo:      listRepo,
		placeRepo:     placeRepo,
		permissionSvc: permissionSvc,
		discoverCache: discoverCache,
		images:        images,
		validate:      validator.New(),
	}
}

// removeCoverAsset deletes an uploaded cover image. Cleanup is best effort:
// an orphaned asset is logged, never surfaced to the caller.
func (h *listHandler) removeCoverAsset(ctx context.Context, logger *logrus.Entry, coverURL string) {
	if h.images == nil || coverURL == "" {
		return
	}
	publicID := utils.GetPublicIDFromURL(coverURL)
	if publicID == "" {
		return
	}
	if err := h.images.DeleteImage(ctx, publicID); err != nil {
		logger.Warnf("Error removing cover asset %s: %v", publicID, err)
	}
}

func (h *listHandler) CreateList(c echo.Context) error {
	logger := logrus.WithField("endpoint", "create_list")

	userClaims, err := authSession(c)
	if err != nil {
		return respondError(c, logger, service.ErrUnauthorized)
	}

	var req model.CreateListRequest
	if err := c.Bind(&req); err != nil {
		logger.Errorf("Error parsing request: %v", err)
		return c.JSON(http.StatusBadRequest, response{
			Success: false,
			Message: "invalid request body",
		})
	}

	if err := h.validate.Struct(req); err != nil {
		logger.Errorf("Validation error: %v", err)
		return c.JSON(http.StatusBadRequest, response{
			Success: false,
			Message: err.Error(),
		})
	}

	list := &model.List{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   userClaims.ID,
		IsPublic:    req.IsPublic,
	}

	if err := h.listRepo.Create(c.Request().Context(), list); err != nil {
		logger.Errorf("Error creating list: %v", err)
		return respondError(c, logger, err)
	}

	if list.IsPublic {
		h.discoverCache.Invalidate(discoverCacheKey)
	}

	return c.JSON(http.StatusCreated, response{
		Success: true,
		Data:    list.ToListResponse(model.PermissionManage, nil),
	})
}

// GetList serves both authenticated and anonymous callers; the permission
// resolver decides whether the list is visible at all.
func (h *listHandler) GetList(c echo.Context) error {
	logger := logrus.WithField("endpoint", "get_list")

	listID := c.Param("id")
	userID := optionalUserID(c)

	decision, err := h.permissionSvc.Resolve(c.Request().Context(), listID, userID)
	if err != nil {
		return respondError(c, logger, err)
	}
	if !decision.CanAccess {
		// Private lists are indistinguishable from missing ones for outsiders
		return respondError(c, logger, service.ErrListNotFound)
	}

	list, err := h.listRepo.FindByID(c.Request().Context(), listID)
	if err != nil {
		return respondError(c, logger, err)
	}
	if list == nil {
		return respondError(c, logger, service.ErrListNotFound)
	}

	places, err := h.placeRepo.FindByList(c.Request().Context(), listID)
	if err != nil {
		return respondError(c, logger, err)
	}

	return c.JSON(http.StatusOK, response{
		Success: true,
		Data:    list.ToListResponse(decision.Permission, places),
	})
}

func (h *listHandler) GetMyLists(c echo.Context) error {
	logger := logrus.WithField("endpoint", "get_my_lists")

	userClaims, err := authSession(c)
	if err != nil {
		return respondError(c, logger, service.ErrUnauthorized)
	}

	lists, err := h.listRepo.FindByOwner(c.Request().Context(), userClaims.ID)
	if err != nil {
		return respondError(c, logger, err)
	}

	responses := make([]model.ListResponse, len(lists))
	for i := range lists {
		responses[i] = lists[i].ToListResponse(model.PermissionManage, nil)
	}

	return c.JSON(http.StatusOK, response{
		Success: true,
		Data:    responses,
	})
}

func (h *listHandler) UpdateList(c echo.Context) error {
	logger := logrus.WithField("endpoint", "update_list")

	userClaims, err := authSession(c)
	if err != nil {
		return respondError(c, logger, service.ErrUnauthorized)
	}

	listID := c.Param("id")

	decision, err := h.permissionSvc.Resolve(c.Request().Context(), listID, userClaims.ID)
	if err != nil {
		return respondError(c, logger, err)
	}
	if !decision.CanAccess {
		return respondError(c, logger, service.ErrListNotFound)
	}
	if !decision.Permission.Satisfies(model.PermissionEdit) {
		return respondError(c, logger, service.ErrForbidden)
	}

	list, err := h.listRepo.FindByID(c.Request().Context(), listID)
	if err != nil {
		return respondError(c, logger, err)
	}
	if list == nil {
		return respondError(c, logger, service.ErrListNotFound)
	}

	var req model.UpdateListRequest
	if err := c.Bind(&req); err != nil {
		logger.Errorf("Error parsing request: %v", err)
		return c.JSON(http.StatusBadRequest, response{
			Success: false,
			Message: "invalid request body",
		})
	}

	wasPublic := list.IsPublic

	if req.Name != nil {
		list.Name = *req.Name
	}
	if req.Description != nil {
		list.Description = *req.Description
	}
	if req.IsPublic != nil {
		// Only the owner controls visibility
		if userClaims.ID != list.CreatedBy {
			return respondError(c, logger, service.ErrForbidden)
		}
		list.IsPublic = *req.IsPublic
	}

	if err := h.listRepo.Update(c.Request().Context(), list); err != nil {
		logger.Errorf("Error updating list: %v", err)
		return respondError(c, logger, err)
	}

	if wasPublic || list.IsPublic {
		h.discoverCache.Invalidate(discoverCacheKey)
	}

	return c.JSON(http.StatusOK, response{
		Success: true,
		Data:    list.ToListResponse(decision.Permission, nil),
	})
}

func (h *listHandler) DeleteList(c echo.Context) error {
	logger := logrus.WithField("endpoint", "delete_list")

	userClaims, err := authSession(c)
	if err != nil {
		return respondError(c, logger, service.ErrUnauthorized)
	}

	listID := c.Param("id")

	list, err := h.listRepo.FindByID(c.Request().Context(), listID)
	if err != nil {
		return respondError(c, logger, err)
	}
	if list == nil {
		return respondError(c, logger, service.ErrListNotFound)
	}
	if list.CreatedBy != userClaims.ID {
		return respondError(c, logger, service.ErrForbidden)
	}

	if err := h.listRepo.Delete(c.Request().Context(), listID); err != nil {
		logger.Errorf("Error deleting list: %v", err)
		return respondError(c, logger, err)
	}

	h.removeCoverAsset(c.Request().Context(), logger, list.CoverImageURL)

	if list.IsPublic {
		h.discoverCache.Invalidate(discoverCacheKey)
	}

	return c.JSON(http.StatusOK, response{
		Success: true,
		Message: "list deleted",
	})
}

// Discover returns the public list feed. Responses are served from a short
// TTL cache; the cache is advisory and invalidated on public list changes.
func (h *listHandler) Discover(c echo.Context) error {
	logger := logrus.WithField("endpoint", "discover")

	if cached, ok := h.discoverCache.Get(discoverCacheKey); ok {
		return c.JSON(http.StatusOK, response{
			Success: true,
			Data:    cached,
		})
	}

	lists, err := h.listRepo.FindPublic(c.Request().Context(), discoverFeedLimit)
	if err != nil {
		return respondError(c, logger, err)
	}

	responses := make([]model.ListResponse, len(lists))
	for i := range lists {
		responses[i] = lists[i].ToListResponse("", nil)
	}

	h.discoverCache.Set(discoverCacheKey, responses)

	return c.JSON(http.StatusOK, response{
		Success: true,
		Data:    responses,
	})
}

func (h *listHandler) UploadCover(c echo.Context) error {
	logger := logrus.WithField("endpoint", "upload_cover")

	userClaims, err := authSession(c)
	if err != nil {
		return respondError(c, logger, service.ErrUnauthorized)
	}

	listID := c.Param("id")

	list, err := h.listRepo.FindByID(c.Request().Context(), listID)
	if err != nil {
		return respondError(c, logger, err)
	}
	if list == nil {
		return respondError(c, logger, service.ErrListNotFound)
	}
	if list.CreatedBy != userClaims.ID {
		return respondError(c, logger, service.ErrForbidden)
	}

	if h.images == nil {
		return c.JSON(http.StatusServiceUnavailable, response{
			Success: false,
			Message: "image uploads are not configured",
		})
	}

	fileHeader, err := c.FormFile("cover")
	if err != nil {
		return c.JSON(http.StatusBadRequest, response{
			Success: false,
			Message: "cover file is required",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Errorf("Error opening upload: %v", err)
		return respondError(c, logger, err)
	}
	defer file.Close()

	previousURL := list.CoverImageURL

	url, err := h.images.UploadImage(c.Request().Context(), file, fmt.Sprintf("list-cover-%s", listID))
	if err != nil {
		logger.Errorf("Error uploading cover: %v", err)
		return respondError(c, logger, err)
	}

	list.CoverImageURL = url
	if err := h.listRepo.Update(c.Request().Context(), list); err != nil {
		logger.Errorf("Error saving cover url: %v", err)
		return respondError(c, logger, err)
	}

	// Uploads reuse the list's public ID so replacements overwrite in place;
	// only a cover stored under a different public ID leaves an asset behind.
	if previousURL != "" && utils.GetPublicIDFromURL(previousURL) != utils.GetPublicIDFromURL(url) {
		h.removeCoverAsset(c.Request().Context(), logger, previousURL)
	}

	return c.JSON(http.StatusOK, response{
		Success: true,
		Data: map[string]string{
			"cover_image_url": url,
		},
	})
}
