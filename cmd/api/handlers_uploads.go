// cmd/api/handlers_uploads.go
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aoideee/kitobchi/internal/validator"
)

// imageExtensions maps the sniffed content types we accept to object key
// extensions.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// uploadImageHandler handles POST /uploads/images. It takes a multipart
// "file" field, stores it in object storage and returns the public URL to
// put in a listing's images.
func (app *applicationDependencies) uploadImageHandler(w http.ResponseWriter, r *http.Request) {
	maxBytes := app.config.Storage.MaxUploadBytes

	// Leave room for the multipart framing around the file.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+64<<10)
	err := r.ParseMultipartForm(maxBytes)
	if err != nil {
		var maxBytesError *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesError), strings.Contains(err.Error(), "request body too large"):
			app.payloadTooLargeResponse(w, r)
		default:
			app.badRequestResponse(w, r, errors.New("body must be multipart/form-data"))
		}
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		v := validator.New()
		v.AddError("file", "must be provided")
		app.failedValidationResponse(w, r, v.Errors)
		return
	}
	defer file.Close()

	if header.Size > maxBytes {
		app.payloadTooLargeResponse(w, r)
		return
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		app.serverErrorResponse(w, r, err)
		return
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	ext, ok := imageExtensions[contentType]
	if !ok {
		v := validator.New()
		v.AddError("file", "must be a JPEG, PNG, WebP or GIF image")
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	user := app.contextGetUser(r)
	key := fmt.Sprintf("books/%d/%s/%s%s", user.ID, time.Now().UTC().Format("2006/01"), uuid.NewString(), ext)

	url, err := app.images.Put(r.Context(), key, io.MultiReader(bytes.NewReader(head), file), header.Size, contentType)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.logger.Info("image uploaded", "user_id", user.ID, "key", key, "size", header.Size)

	err = app.writeJSON(w, http.StatusCreated, envelope{"url": url}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
