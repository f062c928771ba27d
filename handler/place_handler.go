package handler

import (
	"net/http"

	"github.com/go-playground/validator"
	"github.com/koichi-mofmof/kokoiko-sub002/model"
	"github.com/koichi-mofmof/kokoiko-sub002/repository"
	"github.com/koichi-mofmof/kokoiko-sub002/service"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type placeHandler struct {
	registrationSvc service.RegistrationService
	permissionSvc   service.PermissionService
	placeRepo       repository.PlaceRepository
	validate        *validator.Validate
}

func NewPlaceHandler(
	registrationSvc service.RegistrationService,
	permissionSvc service.PermissionService,
	placeRepo repository.PlaceRepository,
) *placeHandler {
	return &placeHandler{
		registrationSvc: registrationSvc,
		permissionSvc:   permissionSvc,
		placeRepo:       placeRepo,
		validate:        validator.New(),
	}
}

// RegisterPlace adds a place to a list. The registration service enforces the
// full guard: permission, duplicate and quota checks before the insert.
func (h *placeHandler) RegisterPlace(c echo.Context) error {
	logger := logrus.WithField("endpoint", "register_place")

	userID := optionalUserID(c)
	listID := c.Param("id")

	var req model.RegisterPlaceRequest
	if err := c.Bind(&req); err != nil {
		logger.Errorf("Error parsing request: %v", err)
		return c.JSON(http.StatusBadRequest, response{
			Success: false,
			Message: "invalid request body",
		})
	}

	place, err := h.registrationSvc.RegisterPlace(c.Request().Context(), userID, listID, req)
	if err != nil {
		return respondError(c, logger, err)
	}

	return c.JSON(http.StatusCreated, response{
		Success: true,
		Message: "place registered",
		Data:    place.ToListPlaceResponse(),
	})
}

func (h *placeHandler) DeletePlace(c echo.Context) error {
	logger := logrus.WithField("endpoint", "delete_place")

	userClaims, err := authSession(c)
	if err != nil {
		return respondError(c, logger, service.ErrUnauthorized)
	}

	listID := c.Param("id")
	placeID := c.Param("placeId")

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

	place, err := h.placeRepo.FindByID(c.Request().Context(), placeID)
	if err != nil {
		return respondError(c, logger, err)
	}
	if place == nil || place.ListID != listID {
		return c.JSON(http.StatusNotFound, response{
			Success:  false,
			Message:  "place not found",
			ErrorKey: "place_not_found",
		})
	}

	if err := h.placeRepo.Delete(c.Request().Context(), placeID); err != nil {
		logger.Errorf("Error deleting place: %v", err)
		return respondError(c, logger, err)
	}

	return c.JSON(http.StatusOK, response{
		Success: true,
		Message: "place removed",
	})
}

func (h *placeHandler) UpdatePlaceOrder(c echo.Context) error {
	logger := logrus.WithField("endpoint", "update_place_order")

	userClaims, err := authSession(c)
	if err != nil {
		return respondError(c, logger, service.ErrUnauthorized)
	}

	listID := c.Param("id")
	placeID := c.Param("placeId")

	var req model.UpdatePlaceOrderRequest
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

	place, err := h.placeRepo.FindByID(c.Request().Context(), placeID)
	if err != nil {
		return respondError(c, logger, err)
	}
	if place == nil || place.ListID != listID {
		return c.JSON(http.StatusNotFound, response{
			Success:  false,
			Message:  "place not found",
			ErrorKey: "place_not_found",
		})
	}

	if err := h.placeRepo.UpdateDisplayOrder(c.Request().Context(), placeID, req.DisplayOrder); err != nil {
		logger.Errorf("Error updating display order: %v", err)
		return respondError(c, logger, err)
	}

	return c.JSON(http.StatusOK, response{
		Success: true,
		Message: "order updated",
	})
}
