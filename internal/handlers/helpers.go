package handlers

import (
	"fmt"
	"mime/multipart"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/zfogg/vlogbook/backend/internal/errors"
	"github.com/zfogg/vlogbook/backend/internal/storage"
	"github.com/zfogg/vlogbook/backend/internal/telemetry"
	"github.com/zfogg/vlogbook/backend/internal/util"
)

// storeImage validates and uploads an image form file, returning its public URL
func (h *Handlers) storeImage(c *gin.Context, kind storage.Kind, field, ownerID string, fh *multipart.FileHeader) (string, error) {
	ctx, span := telemetry.GetBusinessEvents().TraceMedia(c.Request.Context(), "store_image", string(kind), fh.Size)

	file, err := fh.Open()
	if err != nil {
		telemetry.End(span, err)
		return "", apperrors.ValidationError(field, "could not read uploaded file")
	}
	defer file.Close()

	url, err := h.media.StoreImage(ctx, kind, field, ownerID, fh.Filename, file, fh.Size)
	telemetry.End(span, err)
	return url, err
}

// idParam reads a positive numeric path parameter, responding 400 when it is malformed
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := util.ParseUintParam(c, name)
	if err != nil {
		util.RespondWithError(c, err)
		return 0, false
	}
	return id, true
}

// flexibleID accepts ids sent as JSON numbers or numeric strings, as form clients do
type flexibleID uint

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return fmt.Errorf("invalid id %s", string(b))
	}
	*f = flexibleID(v)
	return nil
}
