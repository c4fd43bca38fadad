package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/rewear/internal/auth"
	"github.com/erazemk/rewear/internal/imaging"
	"github.com/erazemk/rewear/internal/model"
	"github.com/erazemk/rewear/internal/store"
	"github.com/erazemk/rewear/internal/swap"
	"github.com/erazemk/rewear/internal/textutil"
)

// Browse paging.
const (
	defaultPageSize = 12
	maxPageSize     = 50
	featuredCount   = 6
)

// maxUploadBody bounds a multipart listing request: every image at its
// limit plus room for the text fields.
const maxUploadBody = model.MaxImagesPerRequest*imaging.MaxUploadSize + 1<<20

// ItemsHandler handles listing endpoints.
type ItemsHandler struct {
	DB         *sql.DB
	Swaps      *swap.Service
	Moderation bool
}

type browseResponse struct {
	Items       []model.Item `json:"items"`
	TotalPages  int          `json:"totalPages"`
	CurrentPage int          `json:"currentPage"`
	Total       int          `json:"total"`
}

// List handles GET /api/items. Only approved, available items are listed.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	approved := true
	f := store.ItemFilter{
		Status:   model.ItemStatusAvailable,
		Approved: &approved,
		Search:   q.Get("search"),
	}

	var err error
	if v := q.Get("category"); v != "" {
		if f.Category, err = model.ParseCategory(v); err != nil {
			writeError(w, err, "list items")
			return
		}
	}
	if v := q.Get("type"); v != "" {
		if f.Type, err = model.ParseItemType(v); err != nil {
			writeError(w, err, "list items")
			return
		}
	}
	if v := q.Get("size"); v != "" {
		if f.Size, err = model.ParseSize(v); err != nil {
			writeError(w, err, "list items")
			return
		}
	}

	page := queryInt(q.Get("page"), 1)
	limit := min(queryInt(q.Get("limit"), defaultPageSize), maxPageSize)
	f.Limit = limit
	f.Offset = (page - 1) * limit

	items, total, err := store.ListItems(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, err, "list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}

	jsonResponse(w, http.StatusOK, browseResponse{
		Items:       items,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
		Total:       total,
	})
}

// Featured handles GET /api/items/featured.
func (h *ItemsHandler) Featured(w http.ResponseWriter, r *http.Request) {
	approved := true
	items, _, err := store.ListItems(r.Context(), h.DB, store.ItemFilter{
		Status:   model.ItemStatusAvailable,
		Approved: &approved,
		Limit:    featuredCount,
	})
	if err != nil {
		writeError(w, err, "list featured items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Mine handles GET /api/items/mine.
func (h *ItemsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	items, err := store.ListItemsByOwner(r.Context(), h.DB, claims.UserID)
	if err != nil {
		writeError(w, err, "list own items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Get handles GET /api/items/{id}. Listings awaiting moderation or taken
// down are only shown to their owner and to admins.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := store.GetItem(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		writeError(w, err, "get item")
		return
	}
	if item == nil || !canView(GetClaims(r.Context()), item) {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// canView reports whether the caller (nil when anonymous) may see item.
// Swapped items stay public so swap history can link to them.
func canView(claims *auth.Claims, item *model.Item) bool {
	if item.IsApproved && (item.Status == model.ItemStatusAvailable || item.Status == model.ItemStatusSwapped) {
		return true
	}
	if claims == nil {
		return false
	}
	return claims.UserID == item.OwnerID || model.RoleAtLeast(claims.Role, model.RoleAdmin)
}

// Create handles POST /api/items (multipart form with 1-5 images).
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	if !parseMultipart(w, r) {
		return
	}

	fields, err := itemFields(r, store.ItemFields{})
	if err != nil {
		writeError(w, err, "create item")
		return
	}
	images, err := formImages(r)
	if err != nil {
		writeError(w, err, "create item")
		return
	}
	if len(images) == 0 {
		jsonError(w, http.StatusBadRequest, "at least one image is required")
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, claims.UserID, fields, images, h.Moderation)
	if err != nil {
		writeError(w, err, "create item")
		return
	}

	slog.Info("item listed", "item", item.ID, "owner", claims.UserID, "status", item.Status)
	jsonResponse(w, http.StatusCreated, item)
}

// Update handles PUT /api/items/{id}. Omitted fields keep their values and
// uploaded images are appended.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")

	if !parseMultipart(w, r) {
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, err, "update item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	if item.OwnerID != claims.UserID {
		jsonError(w, http.StatusForbidden, "not authorized")
		return
	}

	fields, err := itemFields(r, fieldsOf(item))
	if err != nil {
		writeError(w, err, "update item")
		return
	}
	images, err := formImages(r)
	if err != nil {
		writeError(w, err, "update item")
		return
	}

	updated, err := store.UpdateItem(r.Context(), h.DB, id, fields, images)
	if err != nil {
		writeError(w, err, "update item")
		return
	}

	slog.Info("item updated", "item", id, "owner", claims.UserID, "new_images", len(images))
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")

	deleted, err := h.Swaps.DeleteItem(r.Context(), id, claims.UserID)
	if err != nil {
		writeError(w, err, "delete item")
		return
	}

	slog.Info("item deleted", "item", id, "owner", claims.UserID, "hard_delete", deleted)
	jsonMessage(w, "item deleted")
}

// parseMultipart reads a multipart body, writing a 400 on failure.
func parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		jsonError(w, http.StatusBadRequest, "request too large or invalid multipart form")
		return false
	}
	return true
}

// itemFields overlays the submitted form values on base and validates the result.
func itemFields(r *http.Request, base store.ItemFields) (store.ItemFields, error) {
	f := base
	form := r.MultipartForm.Value
	has := func(key string) bool {
		_, ok := form[key]
		return ok
	}
	var err error

	if has("title") {
		f.Title = textutil.Clean(r.FormValue("title"))
	}
	if has("description") {
		f.Description = textutil.Clean(r.FormValue("description"))
	}
	if has("category") {
		if f.Category, err = model.ParseCategory(r.FormValue("category")); err != nil {
			return f, err
		}
	}
	if has("type") {
		if f.Type, err = model.ParseItemType(r.FormValue("type")); err != nil {
			return f, err
		}
	}
	if has("size") {
		if f.Size, err = model.ParseSize(r.FormValue("size")); err != nil {
			return f, err
		}
	}
	if has("condition") {
		if f.Condition, err = model.ParseCondition(r.FormValue("condition")); err != nil {
			return f, err
		}
	}
	if has("tags") {
		f.Tags = textutil.CleanTags(model.ParseTags(r.FormValue("tags")))
	}
	if has("pointsValue") {
		v, err := strconv.Atoi(strings.TrimSpace(r.FormValue("pointsValue")))
		if err != nil {
			return f, model.Invalid("pointsValue", "points value must be a number")
		}
		f.PointsValue = v
	}
	for key, dst := range map[string]*string{
		"brand": &f.Brand, "color": &f.Color, "material": &f.Material, "location": &f.Location,
	} {
		if has(key) {
			*dst = textutil.Clean(r.FormValue(key))
		}
	}

	if err := model.ValidateTitle(f.Title); err != nil {
		return f, err
	}
	if err := model.ValidateDescription(f.Description); err != nil {
		return f, err
	}
	if _, err := model.ParseCategory(string(f.Category)); err != nil {
		return f, err
	}
	if _, err := model.ParseItemType(string(f.Type)); err != nil {
		return f, err
	}
	if _, err := model.ParseSize(string(f.Size)); err != nil {
		return f, err
	}
	if _, err := model.ParseCondition(string(f.Condition)); err != nil {
		return f, err
	}
	if err := model.ValidatePointsValue(f.PointsValue); err != nil {
		return f, err
	}
	return f, nil
}

func fieldsOf(item *model.Item) store.ItemFields {
	return store.ItemFields{
		Title:       item.Title,
		Description: item.Description,
		Category:    item.Category,
		Type:        item.Type,
		Size:        item.Size,
		Condition:   item.Condition,
		Tags:        item.Tags,
		PointsValue: item.PointsValue,
		Brand:       item.Brand,
		Color:       item.Color,
		Material:    item.Material,
		Location:    item.Location,
	}
}

// formImages processes the uploaded "images" files.
func formImages(r *http.Request) ([]store.ImageData, error) {
	files := r.MultipartForm.File["images"]
	if len(files) > model.MaxImagesPerRequest {
		return nil, model.Invalid("images", fmt.Sprintf("at most %d images per request", model.MaxImagesPerRequest))
	}

	images := make([]store.ImageData, 0, len(files))
	for _, fh := range files {
		img, err := processUpload(fh)
		if err != nil {
			return nil, err
		}
		images = append(images, *img)
	}
	return images, nil
}

func processUpload(fh *multipart.FileHeader) (*store.ImageData, error) {
	if fh.Size > imaging.MaxUploadSize {
		return nil, imaging.ErrTooLarge
	}
	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer file.Close()

	result, err := imaging.Process(file)
	if err != nil {
		return nil, err
	}
	return &store.ImageData{Data: result.Data, MIME: result.MIME}, nil
}

// queryInt parses a positive integer query value, falling back to def.
func queryInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
