package cart

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*chi.Mux, *Service) {
	t.Helper()
	svc, _ := newTestService(t)
	h := &Handler{Svc: svc, Currency: "IDR"}
	r := chi.NewRouter()
	r.Post("/carts", h.Create)
	r.Get("/carts/{id}", h.Get)
	r.Post("/carts/{id}/items", h.AddItem)
	r.Patch("/carts/{id}/items/{productId}", h.UpdateItem)
	r.Delete("/carts/{id}/items/{productId}", h.RemoveItem)
	r.Post("/carts/{id}/promo", h.ApplyPromo)
	r.Delete("/carts/{id}/promo", h.ClearPromo)
	r.Delete("/carts/{id}", h.Clear)
	return r, svc
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func createCart(t *testing.T, r http.Handler) string {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/carts", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.ID)
	return resp.Data.ID
}

func TestHandlerAddItemReportsNormalization(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createCart(t, r)

	rec := doJSON(t, r, http.MethodPost, "/carts/"+id+"/items", `{"productId":"sku-1","qty":7}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Mutation MutationResult `json:"mutation"`
		Data     struct {
			Totals    Totals `json:"totals"`
			ItemCount int    `json:"itemCount"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 12, resp.Mutation.Qty)
	require.True(t, resp.Mutation.Normalized)
	require.Equal(t, 1, resp.Data.ItemCount)
	require.Equal(t, int64(18600), int64(resp.Data.Totals.Subtotal))
}

func TestHandlerUpdateItemRequiresQty(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createCart(t, r)
	doJSON(t, r, http.MethodPost, "/carts/"+id+"/items", `{"productId":"sku-1","qty":6}`)

	rec := doJSON(t, r, http.MethodPatch, "/carts/"+id+"/items/sku-1", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "BAD_REQUEST")
}

func TestHandlerUpdateItemNegativeQty(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createCart(t, r)
	doJSON(t, r, http.MethodPost, "/carts/"+id+"/items", `{"productId":"sku-1","qty":6}`)

	rec := doJSON(t, r, http.MethodPatch, "/carts/"+id+"/items/sku-1", `{"qty":-2}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_QUANTITY")
}

func TestHandlerUpdateMissingItem(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createCart(t, r)

	rec := doJSON(t, r, http.MethodPatch, "/carts/"+id+"/items/ghost", `{"qty":6}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "ITEM_NOT_FOUND")
}

func TestHandlerPromoFlow(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createCart(t, r)
	doJSON(t, r, http.MethodPost, "/carts/"+id+"/items", `{"productId":"sku-1","qty":24}`)

	rec := doJSON(t, r, http.MethodPost, "/carts/"+id+"/promo", `{"code":"WELCOME10"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data struct {
			Promo  *string `json:"promo"`
			Totals Totals  `json:"totals"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data.Promo)
	require.Equal(t, "WELCOME10", *resp.Data.Promo)
	require.Equal(t, int64(30132), int64(resp.Data.Totals.GrandTotal))
	require.True(t, resp.Data.Totals.MinimumMet)

	rec = doJSON(t, r, http.MethodDelete, "/carts/"+id+"/promo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Data.Promo)
	require.Equal(t, int64(33480), int64(resp.Data.Totals.GrandTotal))
}

func TestHandlerPromoUnknownCode(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createCart(t, r)
	doJSON(t, r, http.MethodPost, "/carts/"+id+"/items", `{"productId":"sku-1","qty":24}`)

	rec := doJSON(t, r, http.MethodPost, "/carts/"+id+"/promo", `{"code":"NOPE"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "UNKNOWN_PROMO_CODE")
}

func TestHandlerPromoMinSpend(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createCart(t, r)
	doJSON(t, r, http.MethodPost, "/carts/"+id+"/items", `{"productId":"sku-1","qty":6}`)

	rec := doJSON(t, r, http.MethodPost, "/carts/"+id+"/promo", `{"code":"BIGSPEND"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "PROMO_NOT_APPLICABLE")
}

func TestHandlerGetMissingCart(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := doJSON(t, r, http.MethodGet, "/carts/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerClearCart(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createCart(t, r)
	doJSON(t, r, http.MethodPost, "/carts/"+id+"/items", `{"productId":"sku-1","qty":12}`)

	rec := doJSON(t, r, http.MethodDelete, "/carts/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data struct {
			ItemCount int    `json:"itemCount"`
			Totals    Totals `json:"totals"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Zero(t, resp.Data.ItemCount)
	require.Zero(t, int64(resp.Data.Totals.GrandTotal))
}
