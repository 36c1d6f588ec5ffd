package web

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/vitrine/catalog"
	"github.com/relabs-tech/vitrine/core/access"
	"github.com/relabs-tech/vitrine/core/logger"
)

const (
	productNotFound = "Produto não encontrado. Verifique o link e tente novamente."
	maxProductBody  = 1 << 20
	maxUploadMemory = 8 << 20
)

func queryFromRequest(r *http.Request) catalog.Query {
	values := r.URL.Query()
	q := catalog.Query{
		Search:   values.Get("search"),
		Category: values.Get("category"),
		Sort:     values.Get("sort"),
	}
	q.Page, _ = strconv.Atoi(values.Get("page"))
	return q
}

func (a *API) handlePublicRoutes() {
	rlog := logger.Default()
	rlog.Debugln("catalog")

	rlog.Debugln("  handle route: /health GET")
	a.router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	rlog.Debugln("  handle route: /categories GET")
	a.router.HandleFunc("/categories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, catalog.Categories)
	}).Methods(http.MethodGet)

	rlog.Debugln("  handle route: /colors GET")
	a.router.HandleFunc("/colors", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, catalog.Palette)
	}).Methods(http.MethodGet)

	rlog.Debugln("  handle route: /contact GET")
	a.router.HandleFunc("/contact", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, a.catalog.Contact())
	}).Methods(http.MethodGet)

	rlog.Debugln("  handle route: /showcase GET")
	a.router.HandleFunc("/showcase", func(w http.ResponseWriter, r *http.Request) {
		cards, err := a.catalog.Showcase(r.Context(), r.URL.Query().Get("category"))
		if err != nil {
			writeError(w, r, err, productNotFound)
			return
		}
		writeJSON(w, http.StatusOK, cards)
	}).Methods(http.MethodGet)

	rlog.Debugln("  handle route: /products GET")
	a.router.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		listing, err := a.catalog.Browse(r.Context(), queryFromRequest(r))
		if err != nil {
			writeError(w, r, err, productNotFound)
			return
		}
		writeJSON(w, http.StatusOK, listing)
	}).Methods(http.MethodGet)

	rlog.Debugln("  handle route: /products/{product_id} GET")
	a.router.HandleFunc("/products/{product_id}", func(w http.ResponseWriter, r *http.Request) {
		d, err := a.catalog.Detail(r.Context(), mux.Vars(r)["product_id"])
		if err != nil {
			writeError(w, r, err, productNotFound)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}).Methods(http.MethodGet)
}

func (a *API) handleAdminRoutes() {
	rlog := logger.Default()
	rlog.Debugln("admin")
	admin := a.router.PathPrefix("/admin").Subrouter()
	admin.Use(access.RequireRole(access.RoleAdmin))

	readInput := func(w http.ResponseWriter, r *http.Request) (catalog.ProductInput, bool) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxProductBody))
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "Não foi possível ler o produto")
			return catalog.ProductInput{}, false
		}
		in, err := a.catalog.ParseInput(body)
		if err != nil {
			writeError(w, r, err, productNotFound)
			return catalog.ProductInput{}, false
		}
		return in, true
	}

	rlog.Debugln("  handle route: /admin/products GET")
	admin.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		listing, err := a.catalog.AdminList(r.Context(), queryFromRequest(r))
		if err != nil {
			writeError(w, r, err, productNotFound)
			return
		}
		writeJSON(w, http.StatusOK, listing)
	}).Methods(http.MethodGet)

	rlog.Debugln("  handle route: /admin/products POST")
	admin.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		in, ok := readInput(w, r)
		if !ok {
			return
		}
		p, err := a.catalog.Save(r.Context(), "", in)
		if err != nil {
			writeError(w, r, err, productNotFound)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}).Methods(http.MethodPost)

	rlog.Debugln("  handle route: /admin/products/validate POST")
	admin.HandleFunc("/products/validate", func(w http.ResponseWriter, r *http.Request) {
		in, ok := readInput(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, in.Validate())
	}).Methods(http.MethodPost)

	rlog.Debugln("  handle route: /admin/products/{product_id} GET")
	admin.HandleFunc("/products/{product_id}", func(w http.ResponseWriter, r *http.Request) {
		p, err := a.catalog.Get(r.Context(), mux.Vars(r)["product_id"])
		if err != nil {
			writeError(w, r, err, productNotFound)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}).Methods(http.MethodGet)

	rlog.Debugln("  handle route: /admin/products/{product_id} PUT")
	admin.HandleFunc("/products/{product_id}", func(w http.ResponseWriter, r *http.Request) {
		in, ok := readInput(w, r)
		if !ok {
			return
		}
		p, err := a.catalog.Save(r.Context(), mux.Vars(r)["product_id"], in)
		if err != nil {
			writeError(w, r, err, productNotFound)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}).Methods(http.MethodPut)

	rlog.Debugln("  handle route: /admin/products/{product_id} DELETE")
	admin.HandleFunc("/products/{product_id}", func(w http.ResponseWriter, r *http.Request) {
		if err := a.catalog.Delete(r.Context(), mux.Vars(r)["product_id"]); err != nil {
			writeError(w, r, err, productNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)

	rlog.Debugln("  handle route: /admin/uploads POST")
	admin.HandleFunc("/uploads", a.uploadImages).Methods(http.MethodPost)

	rlog.Debugln("  handle route: /admin/uploads/{key} DELETE")
	admin.HandleFunc("/uploads/{key:.+}", func(w http.ResponseWriter, r *http.Request) {
		if err := a.catalog.DeleteImage(r.Context(), mux.Vars(r)["key"]); err != nil {
			writeError(w, r, err, "Imagem não encontrada")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)

	rlog.Debugln("  handle route: /admin/stats GET")
	admin.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := a.catalog.Stats(r.Context())
		if err != nil {
			writeError(w, r, err, productNotFound)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}).Methods(http.MethodGet)
}

// uploadImages stores the "images" files of a multipart form. The optional
// "product_id" field names the product, "existing" is the number of images
// the product has already.
func (a *API) uploadImages(w http.ResponseWriter, r *http.Request) {
	rlog := logger.FromContext(r.Context())
	limit := int64(catalog.MaxImages*catalog.MaxImageBytes + maxProductBody)
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		rlog.WithError(err).Warnln("cannot parse upload")
		writeErrorMessage(w, http.StatusBadRequest, "Não foi possível ler as imagens enviadas")
		return
	}
	defer r.MultipartForm.RemoveAll()

	existing, _ := strconv.Atoi(r.FormValue("existing"))
	var uploads []catalog.Upload
	for _, fh := range r.MultipartForm.File["images"] {
		upload, err := readUpload(fh)
		if err != nil {
			rlog.WithError(err).Errorf("Error 4003: cannot read upload %s", fh.Filename)
			writeErrorMessage(w, http.StatusBadRequest, "Não foi possível ler as imagens enviadas")
			return
		}
		uploads = append(uploads, upload)
	}
	if len(uploads) == 0 {
		writeErrorMessage(w, http.StatusBadRequest, "Nenhuma imagem enviada")
		return
	}

	images, err := a.catalog.UploadImages(r.Context(), r.FormValue("product_id"), existing, uploads)
	if err != nil {
		writeError(w, r, err, productNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"images": images})
}

// readUpload reads a file of the form. Oversized files are not read, the
// validation reports them by size.
func readUpload(fh *multipart.FileHeader) (catalog.Upload, error) {
	upload := catalog.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
	}
	if fh.Size > catalog.MaxImageBytes {
		return upload, nil
	}
	f, err := fh.Open()
	if err != nil {
		return upload, err
	}
	defer f.Close()
	if upload.Data, err = io.ReadAll(f); err != nil {
		return upload, fmt.Errorf("cannot read %s: %w", fh.Filename, err)
	}
	return upload, nil
}
