package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/aretw0/lemon/pkg/domain"
	"github.com/aretw0/lemon/pkg/persistence/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

type visitedResponse struct {
	Visited  []string            `json:"visited"`
	Frontier int                 `json:"frontier"`
	Pages    []domain.PageStatus `json:"pages"`
}

func (s *Server) visitedResponse(visited domain.VisitedSet) visitedResponse {
	return visitedResponse{
		Visited:  visited.Keys(),
		Frontier: s.Gate.Frontier(visited),
		Pages:    s.Gate.Statuses(visited),
	}
}

// postVisited handles POST /api/pages/{key}/visited.
// Only pages at or before the frontier can be reported.
func (s *Server) postVisited(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	sess := sessionFrom(r)

	visited := sess.Visited(r.Context())
	ok, err := s.Gate.IsUnlocked(key, visited)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if !ok {
		frontier := s.Gate.Frontier(visited)
		writeJSON(w, http.StatusForbidden, errorResponse{
			Error:    domain.ErrLocked.Error(),
			Redirect: s.Gate.Hub(),
			Frontier: &frontier,
		})
		return
	}

	if err := sess.MarkVisited(r.Context(), key); err != nil {
		s.Logger.Error("MarkVisited failed", "session_id", sess.ID(), "page", key, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to record visit")
		return
	}
	writeJSON(w, http.StatusOK, s.visitedResponse(sess.Visited(r.Context())))
}

// getVisited handles GET /api/visited.
func (s *Server) getVisited(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.visitedResponse(sessionFrom(r).Visited(r.Context())))
}

type imagesResponse struct {
	Images []string `json:"images"`
}

// getImages handles GET /api/images.
func (s *Server) getImages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, imagesResponse{Images: sessionFrom(r).Images(r.Context())})
}

type addImageRequest struct {
	DataURL string `json:"data_url"`
}

// postImage handles POST /api/images. It accepts either a JSON body with a
// data URL or a multipart form with a "file" field.
func (s *Server) postImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes())

	var blob string
	var err error
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		blob, err = s.readUpload(r)
	} else {
		var body addImageRequest
		if err = json.NewDecoder(r.Body).Decode(&body); err == nil {
			blob, err = validateDataURL(body.DataURL)
		}
	}
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := sessionFrom(r)
	if err := sess.AddImage(r.Context(), blob); err != nil {
		if errors.Is(err, middleware.ErrValueTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "gallery is full")
			return
		}
		s.Logger.Error("AddImage failed", "session_id", sess.ID(), "err", err)
		writeError(w, http.StatusInternalServerError, "failed to store image")
		return
	}
	writeJSON(w, http.StatusCreated, imagesResponse{Images: sess.Images(r.Context())})
}

// readUpload encodes the multipart "file" field as a data URL.
func (s *Server) readUpload(r *http.Request) (string, error) {
	file, _, err := r.FormFile("file")
	if err != nil {
		return "", fmt.Errorf("missing file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.MaxUploadBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > s.MaxUploadBytes {
		return "", &http.MaxBytesError{Limit: s.MaxUploadBytes}
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func validateDataURL(s string) (string, error) {
	if !strings.HasPrefix(s, "data:image/") || !strings.Contains(s, ",") {
		return "", errors.New("data_url must be an image data URL")
	}
	return s, nil
}

// deleteImage handles DELETE /api/images/{index}. Out-of-range indices are
// accepted and change nothing.
func (s *Server) deleteImage(w http.ResponseWriter, r *http.Request) {
	var index int
	err := runtime.BindStyledParameterWithOptions("simple", "index", chi.URLParam(r, "index"), &index,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	sess := sessionFrom(r)
	if err := sess.RemoveImage(r.Context(), index); err != nil {
		s.Logger.Error("RemoveImage failed", "session_id", sess.ID(), "index", index, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to remove image")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type musicResponse struct {
	Playing bool `json:"playing"`
}

// getMusic handles GET /api/music.
func (s *Server) getMusic(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, musicResponse{Playing: sessionFrom(r).Music(r.Context())})
}

// postMusic handles POST /api/music by toggling the preference.
func (s *Server) postMusic(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	playing, err := sess.ToggleMusic(r.Context())
	if err != nil {
		s.Logger.Error("ToggleMusic failed", "session_id", sess.ID(), "err", err)
		writeError(w, http.StatusInternalServerError, "failed to toggle music")
		return
	}
	writeJSON(w, http.StatusOK, musicResponse{Playing: playing})
}

// postEndSession handles POST /api/session/end. Browsers submitting the hub
// form are sent back to the landing page.
func (s *Server) postEndSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := sess.End(r.Context()); err != nil {
		s.Logger.Error("End session failed", "session_id", sess.ID(), "err", err)
		writeError(w, http.StatusInternalServerError, "failed to end session")
		return
	}
	http.SetCookie(w, s.cookie("", -1))

	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
