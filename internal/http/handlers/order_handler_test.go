// README: Handler tests for order transitions, the duplicate-submission guard and error mapping.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"courier/internal/http/handlers"
	"courier/internal/modules/api"
	"courier/internal/modules/entity"
	"courier/internal/modules/order"
	"courier/internal/modules/route"
	"courier/internal/types"
)

// stubOrders answers every dispatch with reply; when block is set, Complete
// waits on it so a second request can race the first.
type stubOrders struct {
	mu       sync.Mutex
	calls    int
	guardErr error
	reply    api.Event
	entered  chan struct{}
	block    chan struct{}
}

func (s *stubOrders) record() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *stubOrders) Get(context.Context, types.ID) api.Event { s.record(); return s.reply }
func (s *stubOrders) MarkInProcess(context.Context, order.MarkInProcessCommand) api.Event {
	s.record()
	return s.reply
}
func (s *stubOrders) Cancel(context.Context, order.CancelCommand) api.Event { s.record(); return s.reply }
func (s *stubOrders) Complete(context.Context, order.CompleteCommand) api.Event {
	s.record()
	if s.block != nil {
		s.entered <- struct{}{}
		<-s.block
	}
	return s.reply
}
func (s *stubOrders) Guard(types.ID, order.Status) error { return s.guardErr }

type stubOrderCache map[types.ID]entity.Order

func (c stubOrderCache) Order(id types.ID) (entity.Order, bool) {
	o, ok := c[id]
	return o, ok
}

func buildOrderRouter(svc handlers.OrderService, cache handlers.OrderReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := handlers.NewOrderHandler(svc, cache, nil)
	r.GET("/orders/:id", h.Get)
	r.POST("/orders/:id/process", h.MarkInProcess)
	r.POST("/orders/:id/complete", h.Complete)
	r.POST("/orders/:id/cancel", h.Cancel)
	return r
}

func doRequest(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func success(action string) api.Event {
	return api.Event{Action: action, Kind: api.KindSuccess, Status: http.StatusOK}
}

func TestOrderTransition_OK(t *testing.T) {
	svc := &stubOrders{reply: success(order.ActionMarkInProcess)}
	w := doRequest(buildOrderRouter(svc, stubOrderCache{}), http.MethodPost, "/orders/100/process", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got struct {
		Type string `json:"type"`
		OK   bool   `json:"ok"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Type != "MARK_IN_PROCESS_SUCCESS" || !got.OK {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestOrderTransition_InvalidID(t *testing.T) {
	svc := &stubOrders{}
	w := doRequest(buildOrderRouter(svc, stubOrderCache{}), http.MethodPost, "/orders/abc/complete", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if svc.calls != 0 {
		t.Errorf("service called %d times for a bad id", svc.calls)
	}
}

func TestOrderTransition_GuardRejects(t *testing.T) {
	svc := &stubOrders{guardErr: order.ErrInvalidState}
	w := doRequest(buildOrderRouter(svc, stubOrderCache{}), http.MethodPost, "/orders/100/cancel", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if svc.calls != 0 {
		t.Errorf("guarded transition was still sent")
	}
}

func TestOrderTransition_NotCached(t *testing.T) {
	svc := &stubOrders{guardErr: order.ErrNotFound}
	w := doRequest(buildOrderRouter(svc, stubOrderCache{}), http.MethodPost, "/orders/100/complete", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestOrderTransition_ServiceFailure(t *testing.T) {
	svc := &stubOrders{reply: api.Event{Action: order.ActionComplete, Kind: api.KindFailure, Status: 500, Err: "order locked"}}
	w := doRequest(buildOrderRouter(svc, stubOrderCache{}), http.MethodPost, "/orders/100/complete", nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("order locked")) {
		t.Errorf("alert missing from %s", w.Body.String())
	}
}

func TestOrderTransition_DuplicateWhileInFlight(t *testing.T) {
	svc := &stubOrders{
		reply:   success(order.ActionComplete),
		entered: make(chan struct{}),
		block:   make(chan struct{}),
	}
	r := buildOrderRouter(svc, stubOrderCache{})

	first := make(chan int)
	go func() {
		first <- doRequest(r, http.MethodPost, "/orders/100/complete", nil).Code
	}()
	<-svc.entered

	if w := doRequest(r, http.MethodPost, "/orders/100/complete", nil); w.Code != http.StatusConflict {
		t.Errorf("second submission: expected 409, got %d", w.Code)
	}
	close(svc.block)
	if code := <-first; code != http.StatusOK {
		t.Errorf("first submission: expected 200, got %d", code)
	}

	// settled, so the order is free again
	svc.block = nil
	if w := doRequest(r, http.MethodPost, "/orders/100/complete", nil); w.Code != http.StatusOK {
		t.Errorf("after settle: expected 200, got %d", w.Code)
	}
}

func TestAdvanceCompletion_SharesOrderLock(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubOrders{
		reply:   success(order.ActionComplete),
		entered: make(chan struct{}),
		block:   make(chan struct{}),
	}
	routes := &stubRoutes{decision: route.Decide(entityDriver(7, 100), entityRoute(9, 7, 100))}
	locks := handlers.NewOrderLocks()
	r := gin.New()
	r.POST("/orders/:id/complete", handlers.NewOrderHandler(svc, stubOrderCache{}, locks).Complete)
	r.POST("/drivers/:id/advance", handlers.NewRouteHandler(routes, locks).Advance)

	first := make(chan int)
	go func() {
		first <- doRequest(r, http.MethodPost, "/orders/100/complete", nil).Code
	}()
	<-svc.entered

	if w := doRequest(r, http.MethodPost, "/drivers/7/advance", nil); w.Code != http.StatusConflict {
		t.Errorf("advance during completion: expected 409, got %d", w.Code)
	}
	close(svc.block)
	if code := <-first; code != http.StatusOK {
		t.Errorf("completion: expected 200, got %d", code)
	}

	if w := doRequest(r, http.MethodPost, "/drivers/7/advance", nil); w.Code != http.StatusOK {
		t.Errorf("advance after settle: expected 200, got %d", w.Code)
	}
}

func TestAdvanceStrayChoice_HoldsOrderLock(t *testing.T) {
	routes := &stubRoutes{decision: strayDecision()}
	locks := handlers.NewOrderLocks()
	if !locks.Acquire(100) {
		t.Fatal("fresh lock refused")
	}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/drivers/:id/advance", handlers.NewRouteHandler(routes, locks).Advance)

	w := doRequest(r, http.MethodPost, "/drivers/7/advance", map[string]string{"choice": "complete_order_first"})
	if w.Code != http.StatusConflict {
		t.Errorf("complete_order_first on a busy order: expected 409, got %d", w.Code)
	}
	if routes.choice != "" {
		t.Errorf("advance reached the service with %q", routes.choice)
	}

	w = doRequest(r, http.MethodPost, "/drivers/7/advance", map[string]string{"choice": "progress_anyway"})
	if w.Code != http.StatusOK {
		t.Errorf("progress_anyway: expected 200, got %d", w.Code)
	}
}

func TestOrderGet_ReturnsCachedOrder(t *testing.T) {
	svc := &stubOrders{reply: success(order.ActionGetDetails)}
	cache := stubOrderCache{100: {ID: 100, Status: string(order.StatusQueued)}}
	w := doRequest(buildOrderRouter(svc, cache), http.MethodGet, "/orders/100", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got entity.Order
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != 100 || got.Status != "queued" {
		t.Errorf("unexpected order %+v", got)
	}
}
