package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	httpdto "github.com/voxsentry/voxsentry/app/dto/http"
	"github.com/voxsentry/voxsentry/app/entity"
	"github.com/voxsentry/voxsentry/app/middleware"
	"github.com/voxsentry/voxsentry/app/service"
)

type ClipController struct {
	clipService service.ClipService
}

func NewClipController(clipService service.ClipService) *ClipController {
	return &ClipController{clipService: clipService}
}

// Predict accepts a multipart WAV upload in the "file" field, classifies
// it, and returns the stored result.
func (c *ClipController) Predict(ctx echo.Context) error {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		logrus.Warn("Predict failed: missing user in context")
		return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		logrus.WithError(err).Debug("Predict failed: missing file")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "audio file is required"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		logrus.WithError(err).Error("Predict failed: cannot open upload")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}
	defer file.Close()

	deviceID := ctx.FormValue("device_id")

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"filename": fileHeader.Filename,
	}).Info("Predict request received")

	clip, err := c.clipService.Predict(ctx.Request().Context(), user.ID, fileHeader.Filename, file, deviceID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAudio) || errors.Is(err, service.ErrSilentAudio) {
			logrus.WithField("user_id", user.ID).Warn("Predict failed: unusable audio")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		}
		logrus.WithError(err).WithField("user_id", user.ID).Error("Predict failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"clip_id": clip.ID,
		"result":  clip.Result,
	}).Info("Clip classified")

	return ctx.JSON(http.StatusOK, httpdto.ClipResponse{
		ID:                clip.ID,
		Filename:          clip.Filename,
		Result:            clip.Result,
		Score:             clip.Score,
		Message:           resultMessage(clip.Result),
		InferenceDuration: clip.InferenceDuration,
		Timestamp:         clip.CreatedAt,
	})
}

// List returns the caller's classification history, optionally filtered by
// ?device_id=.
func (c *ClipController) List(ctx echo.Context) error {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		logrus.Warn("List clips failed: missing user in context")
		return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
	}

	var (
		clips []*entity.Clip
		err   error
	)
	if deviceID := ctx.QueryParam("device_id"); deviceID != "" {
		clips, err = c.clipService.ListByUserAndDevice(ctx.Request().Context(), user.ID, deviceID)
	} else {
		clips, err = c.clipService.ListByUser(ctx.Request().Context(), user.ID)
	}
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("List clips failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	items := make([]httpdto.ClipListItem, 0, len(clips))
	for _, clip := range clips {
		items = append(items, httpdto.ClipListItem{
			ID:        clip.ID,
			Filename:  clip.Filename,
			Result:    clip.Result,
			Score:     clip.Score,
			DeviceID:  clip.DeviceID.String,
			Timestamp: clip.CreatedAt,
		})
	}

	return ctx.JSON(http.StatusOK, items)
}

func resultMessage(result string) string {
	if result == entity.ResultSynthetic {
		return "High probability of AI-generated audio"
	}
	return "Low probability of AI-generated audio"
}
