package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"storefront-order-service/internal/catalog"
	"storefront-order-service/internal/media"
	"storefront-order-service/pkg/response"
)

func (h *Handler) AdminBusinessList(w http.ResponseWriter, r *http.Request) {
	businesses, err := h.Catalog.ListBusinesses(r.Context(), false)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	scope := claimsOf(r).Scope()
	out := make([]catalog.Business, 0, len(businesses))
	for _, b := range businesses {
		if scope.Allows(b.ID, b.Region) {
			out = append(out, b)
		}
	}
	response.Success(w, out)
}

func (h *Handler) AdminBusinessCreate(w http.ResponseWriter, r *http.Request) {
	var body catalog.BusinessInput
	if err := decodeJSON(r, &body); err != nil {
		invalidBody(w)
		return
	}
	scope := claimsOf(r).Scope()
	if !scope.All() && !(scope.Region != "" && strings.EqualFold(scope.Region, body.Region)) {
		forbidden(w)
		return
	}
	b, err := h.Catalog.CreateBusiness(r.Context(), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Created(w, b)
}

func (h *Handler) AdminBusinessUpdate(w http.ResponseWriter, r *http.Request) {
	id := readPathString(r, "id")
	if !h.guard(w, r, id) {
		return
	}
	var body catalog.BusinessInput
	if err := decodeJSON(r, &body); err != nil {
		invalidBody(w)
		return
	}
	b, err := h.Catalog.UpdateBusiness(r.Context(), id, body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, b)
}

func (h *Handler) AdminBusinessDelete(w http.ResponseWriter, r *http.Request) {
	id := readPathString(r, "id")
	if !h.guard(w, r, id) {
		return
	}
	if err := h.Catalog.DeleteBusiness(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, map[string]any{"deleted": id})
}

func (h *Handler) AdminProductList(w http.ResponseWriter, r *http.Request) {
	businessID := readPathString(r, "id")
	if !h.guard(w, r, businessID) {
		return
	}
	products, err := h.Catalog.ListProducts(r.Context(), businessID, false)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, products)
}

func (h *Handler) AdminProductCreate(w http.ResponseWriter, r *http.Request) {
	businessID := readPathString(r, "id")
	if !h.guard(w, r, businessID) {
		return
	}
	var body catalog.ProductInput
	if err := decodeJSON(r, &body); err != nil {
		invalidBody(w)
		return
	}
	p, err := h.Catalog.CreateProduct(r.Context(), businessID, body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Created(w, p)
}

// loadProduct fetches the product in the path and checks scope against its
// comercio.
func (h *Handler) loadProduct(w http.ResponseWriter, r *http.Request) (catalog.Product, bool) {
	p, err := h.Catalog.GetProduct(r.Context(), readPathString(r, "productId"))
	if err != nil {
		h.writeError(w, r, err)
		return catalog.Product{}, false
	}
	if !h.guard(w, r, p.BusinessID) {
		return catalog.Product{}, false
	}
	return p, true
}

func (h *Handler) AdminProductUpdate(w http.ResponseWriter, r *http.Request) {
	var body catalog.ProductInput
	if err := decodeJSON(r, &body); err != nil {
		invalidBody(w)
		return
	}
	p, ok := h.loadProduct(w, r)
	if !ok {
		return
	}
	updated, err := h.Catalog.UpdateProduct(r.Context(), p.ID, body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, updated)
}

func (h *Handler) AdminProductDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProduct(w, r)
	if !ok {
		return
	}
	if err := h.Catalog.DeleteProduct(r.Context(), p.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, map[string]any{"deleted": p.ID})
}

var errFileTooLarge = errors.New("file too large")

func readUpload(r *http.Request, field string, maxBytes int64) ([]byte, error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, err
	}
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, errFileTooLarge
	}
	return data, nil
}

func formInt(r *http.Request, key string) int {
	v, _ := strconv.Atoi(strings.TrimSpace(r.FormValue(key)))
	return v
}

// AdminProductImage accepts a multipart "file" plus optional cropX, cropY,
// cropWidth and cropHeight in source pixels.
func (h *Handler) AdminProductImage(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProduct(w, r)
	if !ok {
		return
	}
	maxBytes := h.Config.MaxFileSizeBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	data, err := readUpload(r, "file", maxBytes)
	if errors.Is(err, errFileTooLarge) {
		response.Error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
			"File size must be less than "+strconv.FormatInt(maxBytes/(1024*1024), 10)+"MB.")
		return
	}
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "File is required")
		return
	}
	crop := media.Crop{
		X:      formInt(r, "cropX"),
		Y:      formInt(r, "cropY"),
		Width:  formInt(r, "cropWidth"),
		Height: formInt(r, "cropHeight"),
	}
	updated, err := h.Catalog.UploadProductImage(r.Context(), p.ID, data, crop)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, updated)
}
