package handler

import (
	"net/http"
	"time"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/koichi-mofmof/kokoiko-sub002/model"
	"github.com/koichi-mofmof/kokoiko-sub002/repository"
	"github.com/koichi-mofmof/kokoiko-sub002/service"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type shareHandler struct {
	shareRepo     repository.ShareRepository
	listRepo      repository.ListRepository
	permissionSvc service.PermissionService
	validate      *validator.Validate
}

func NewShareHandler(
	shareRepo repository.ShareRepository,
	listRepo repository.ListRepository,
	permissionSvc service.PermissionService,
) *shareHandler {
	return &shareHandler{
		shareRepo:     shareRepo,
		listRepo:      listRepo,
		permissionSvc: permissionSvc,
		validate:      validator.New(),
	}
}

// CreateShareToken issues a redeemable share link for a list. Owner only.
func (h *shareHandler) CreateShareToken(c echo.Context) error {
	logger := logrus.WithField("endpoint", "create_share_token")

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

	var req model.CreateShareTokenRequest
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

	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		parsed, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, response{
				Success: false,
				Message: "expires_at must be RFC 3339",
			})
		}
		expiresAt = &parsed
	}

	token := &model.ShareToken{
		Token:             uuid.NewString(),
		ListID:            listID,
		DefaultPermission: req.DefaultPermission,
		IsActive:          true,
		ExpiresAt:         expiresAt,
		MaxUses:           req.MaxUses,
	}

	if err := h.shareRepo.CreateToken(c.Request().Context(), token); err != nil {
		logger.Errorf("Error creating share token: %v", err)
		return respondError(c, logger, err)
	}

	return c.JSON(http.StatusCreated, response{
		Success: true,
		Data:    token.ToShareTokenResponse(),
	})
}

// RevokeShareToken deactivates a share link. Owner only.
func (h *shareHandler) RevokeShareToken(c echo.Context) error {
	logger := logrus.WithField("endpoint", "revoke_share_token")

	userClaims, err := authSession(c)
	if err != nil {
		return respondError(c, logger, service.ErrUnauthorized)
	}

	tokenID := c.Param("token")

	token, err := h.shareRepo.FindToken(c.Request().Context(), tokenID)
	if err != nil {
		return respondError(c, logger, err)
	}
	if token == nil {
		return respondError(c, logger, service.ErrInvalidToken)
	}

	list, err := h.listRepo.FindByID(c.Request().Context(), token.ListID)
	if err != nil {
		return respondError(c, logger, err)
	}
	if list == nil || list.CreatedBy != userClaims.ID {
		return respondError(c, logger, service.ErrForbidden)
	}

	if err := h.shareRepo.DeactivateToken(c.Request().Context(), tokenID); err != nil {
		logger.Errorf("Error deactivating token: %v", err)
		return respondError(c, logger, err)
	}

	return c.JSON(http.StatusOK, response{
		Success: true,
		Message: "share link revoked",
	})
}

// PreviewToken reports what joining would grant, without consuming a use.
// Anonymous callers may preview; joining requires authentication.
func (h *shareHandler) PreviewToken(c echo.Context) error {
	logger := logrus.WithField("endpoint", "preview_share_token")

	tokenID := c.Param("token")
	userID := optionalUserID(c)

	result, err := h.permissionSvc.CanJoinViaToken(c.Request().Context(), tokenID, userID)
	if err != nil {
		return respondError(c, logger, err)
	}

	list, err := h.listRepo.FindByID(c.Request().Context(), result.ListID)
	if err != nil {
		return respondError(c, logger, err)
	}
	if list == nil {
		return respondError(c, logger, service.ErrListNotFound)
	}

	return c.JSON(http.StatusOK, response{
		Success: true,
		Data: map[string]interface{}{
			"list_id":        result.ListID,
			"list_name":      list.Name,
			"permission":     result.Permission,
			"already_joined": result.AlreadyJoined,
		},
	})
}

// JoinViaToken redeems a share link for the authenticated user.
func (h *shareHandler) JoinViaToken(c echo.Context) error {
	logger := logrus.WithField("endpoint", "join_via_token")

	userClaims, err := authSession(c)
	if err != nil {
		return respondError(c, logger, service.ErrUnauthorized)
	}

	tokenID := c.Param("token")

	result, err := h.permissionSvc.JoinViaToken(c.Request().Context(), tokenID, userClaims.ID)
	if err != nil {
		return respondError(c, logger, err)
	}

	message := "joined list"
	if result.AlreadyJoined {
		message = "already a member of this list"
	}

	return c.JSON(http.StatusOK, response{
		Success: true,
		Message: message,
		Data: map[string]interface{}{
			"list_id":        result.ListID,
			"permission":     result.Permission,
			"already_joined": result.AlreadyJoined,
		},
	})
}
