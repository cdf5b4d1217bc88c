package catalog

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"tourmart/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Handler struct {
	catalog *MongoCatalog
}

func NewHandler(catalog *MongoCatalog) *Handler {
	return &Handler{catalog: catalog}
}

// GetProduct returns one catalog entry, on-sale or not.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	productID := ps.ByName("productid")

	product, err := h.catalog.GetProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		log.Println("GetProduct lookup error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not retrieve product")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, product)
}

// ListProducts returns on-sale products with limit/skip paging.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	skip, _ := strconv.ParseInt(r.URL.Query().Get("skip"), 10, 64)
	if skip < 0 {
		skip = 0
	}

	products, err := h.catalog.ListOnSale(r.Context(), limit, skip)
	if err != nil {
		log.Println("ListProducts error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not retrieve products")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, products)
}

func listOptions(limit, skip int64) *options.FindOptions {
	return options.Find().
		SetSort(bson.M{"createdat": -1}).
		SetLimit(limit).
		SetSkip(skip)
}
