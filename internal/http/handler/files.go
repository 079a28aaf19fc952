package handler

import (
	"errors"
	"mime"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"uploadstore/internal/http/middleware"
	"uploadstore/internal/model"
	"uploadstore/internal/service"
)

// FileListResponse is the body of GET /files.
type FileListResponse struct {
	Items []model.StoredFile `json:"data"`
	Total int                `json:"total"`
}

// UploadResponse is the body of POST /files.
type UploadResponse struct {
	ID string `json:"id"`
}

// DeleteAllResponse is the body of DELETE /files.
type DeleteAllResponse struct {
	Deleted int64 `json:"deleted"`
}

// MetadataRequest is the body of PUT /files/:id/metadata. A null metadata clears it.
type MetadataRequest struct {
	Metadata *string `json:"metadata"`
}

// withSession passes the session storage bound by middleware.Session to h.
func withSession(h func(c *fiber.Ctx, s service.SessionStorage) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := middleware.SessionFrom(c)
		if s == nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return h(c, s)
	}
}

// storageError translates storage errors into the standard error body.
// Validation messages are safe to return; anything else is reported as an internal error.
func storageError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrContextRequired):
		return writeError(c, fiber.StatusBadRequest, "SESSION_REQUIRED", "session is required")
	case errors.Is(err, service.ErrDuplicateID):
		return writeError(c, fiber.StatusConflict, "DUPLICATE_ID", "file id already exists")
	case errors.Is(err, service.ErrPayloadTooLarge):
		return writeError(c, fiber.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "payload too large")
	case errors.Is(err, service.ErrValidation):
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

func notFound(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "file not found")
}

// UploadFile stores a multipart upload in the caller's session.
//
// @Summary Upload a file
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "payload"
// @Param metadata formData string false "opaque metadata, up to 255 characters"
// @Param id formData string false "predefined file id"
// @Param ttl formData integer false "time to live in seconds"
// @Success 201 {object} UploadResponse
// @Failure 400 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Failure 413 {object} errorPayload
// @Router /files [post]
func UploadFile(defaultTTL int64) fiber.Handler {
	return withSession(func(c *fiber.Ctx, s service.SessionStorage) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		ttl := defaultTTL
		if v := c.FormValue("ttl"); v != "" {
			ttl, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_TTL", "invalid ttl")
			}
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		p := model.Payload{
			Name:             "file",
			OriginalFilename: fh.Filename,
			ContentType:      ct,
			Size:             fh.Size,
			Content:          f,
		}
		metadata := model.StringPtr(c.FormValue("metadata"))

		id := c.FormValue("id")
		if id != "" {
			err = s.SaveWithID(c.UserContext(), id, p, ttl, metadata)
		} else {
			id, err = s.Save(c.UserContext(), p, ttl, metadata)
		}
		if err != nil {
			return storageError(c, err)
		}

		c.Location("/files/" + id)
		return c.Status(fiber.StatusCreated).JSON(UploadResponse{ID: id})
	})
}

// ListFiles returns every file of the caller's session, oldest first.
//
// @Summary List session files
// @Produce json
// @Success 200 {object} FileListResponse
// @Router /files [get]
func ListFiles() fiber.Handler {
	return withSession(func(c *fiber.Ctx, s service.SessionStorage) error {
		files, err := s.FindAll(c.UserContext())
		if err != nil {
			return storageError(c, err)
		}
		return c.JSON(FileListResponse{Items: files, Total: len(files)})
	})
}

// DownloadFile streams the payload of a session file.
//
// @Summary Download a file
// @Produce octet-stream
// @Param id path string true "file id"
// @Success 200 {file} binary
// @Failure 404 {object} errorPayload
// @Router /files/{id} [get]
func DownloadFile() fiber.Handler {
	return withSession(func(c *fiber.Ctx, s service.SessionStorage) error {
		f, err := s.Find(c.UserContext(), c.Params("id"))
		if err != nil {
			return storageError(c, err)
		}
		if f == nil {
			return notFound(c)
		}
		rc, err := s.Payload(c.UserContext(), f.ID)
		if err != nil {
			return storageError(c, err)
		}
		if rc == nil {
			return notFound(c)
		}

		c.Set(fiber.HeaderContentType, f.ContentType)
		if f.OriginalFilename != "" {
			c.Set(fiber.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": f.OriginalFilename}))
		}
		// the response writer closes rc once the body is sent
		return c.SendStream(rc, int(f.Size))
	})
}

// FileInfo returns the descriptive fields of a session file.
//
// @Summary Get file info
// @Produce json
// @Param id path string true "file id"
// @Success 200 {object} model.StoredFile
// @Failure 404 {object} errorPayload
// @Router /files/{id}/info [get]
func FileInfo() fiber.Handler {
	return withSession(func(c *fiber.Ctx, s service.SessionStorage) error {
		f, err := s.Find(c.UserContext(), c.Params("id"))
		if err != nil {
			return storageError(c, err)
		}
		if f == nil {
			return notFound(c)
		}
		return c.JSON(f)
	})
}

// UpdateMetadata replaces the metadata of a session file.
//
// @Summary Replace file metadata
// @Accept json
// @Param id path string true "file id"
// @Param body body MetadataRequest true "new metadata"
// @Success 204
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /files/{id}/metadata [put]
func UpdateMetadata() fiber.Handler {
	return withSession(func(c *fiber.Ctx, s service.SessionStorage) error {
		var req MetadataRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		n, err := s.SetMetadata(c.UserContext(), c.Params("id"), req.Metadata)
		if err != nil {
			return storageError(c, err)
		}
		if n == 0 {
			return notFound(c)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// DeleteFile removes a session file.
//
// @Summary Delete a file
// @Param id path string true "file id"
// @Success 204
// @Failure 404 {object} errorPayload
// @Router /files/{id} [delete]
func DeleteFile() fiber.Handler {
	return withSession(func(c *fiber.Ctx, s service.SessionStorage) error {
		n, err := s.Delete(c.UserContext(), c.Params("id"))
		if err != nil {
			return storageError(c, err)
		}
		if n == 0 {
			return notFound(c)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// DeleteAllFiles removes every file of the caller's session.
//
// @Summary Delete all session files
// @Produce json
// @Success 200 {object} DeleteAllResponse
// @Router /files [delete]
func DeleteAllFiles() fiber.Handler {
	return withSession(func(c *fiber.Ctx, s service.SessionStorage) error {
		n, err := s.DeleteAll(c.UserContext())
		if err != nil {
			return storageError(c, err)
		}
		return c.JSON(DeleteAllResponse{Deleted: n})
	})
}
