package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"restaurant-pos/internal/faults"
	"restaurant-pos/internal/models"
)

// Memory is an in-process Store used by the service tests and local
// fixtures. A single mutex serializes whole transactions, which gives
// the same observable guarantee as the database's row locks: of two
// concurrent conflicting transactions exactly one wins and the loser
// sees the committed state of the winner. Writes go to a staged copy
// of the state and are swapped in on commit, so an error from the
// callback leaves nothing behind.
type Memory struct {
	mu sync.Mutex
	st *memState
}

type memState struct {
	tables   map[int64]*models.Table
	orders   map[int64]*models.Order
	items    map[int64]*models.OrderItem
	products map[int64]*models.Product
	methods  map[int64]*models.PaymentMethod
	payments map[int64]*models.Payment

	orderNumbers map[string]int64

	nextOrder   int64
	nextItem    int64
	nextPayment int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{st: &memState{
		tables:       make(map[int64]*models.Table),
		orders:       make(map[int64]*models.Order),
		items:        make(map[int64]*models.OrderItem),
		products:     make(map[int64]*models.Product),
		methods:      make(map[int64]*models.PaymentMethod),
		payments:     make(map[int64]*models.Payment),
		orderNumbers: make(map[string]int64),
	}}
}

// WithinTx runs fn against a staged copy of the state and commits it
// atomically when fn returns nil.
func (m *Memory) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stage := m.st.clone()
	if err := fn(ctx, &memTx{st: stage}); err != nil {
		return err
	}
	m.st = stage
	return nil
}

// Seeding and inspection helpers for tests and fixtures.

func (m *Memory) SeedTable(t models.Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.tables[t.ID] = copyTable(&t)
}

func (m *Memory) SeedProduct(p models.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.products[p.ID] = copyProduct(&p)
}

func (m *Memory) SeedPaymentMethod(pm models.PaymentMethod) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := pm
	m.st.methods[pm.ID] = &cp
}

func (m *Memory) TableByID(id int64) *models.Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.st.tables[id]; ok {
		return copyTable(t)
	}
	return nil
}

func (m *Memory) OrderByID(id int64) *models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.st.orders[id]; ok {
		return copyOrder(o)
	}
	return nil
}

func (m *Memory) ProductByID(id int64) *models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.st.products[id]; ok {
		return copyProduct(p)
	}
	return nil
}

func (m *Memory) ItemsByOrder(orderID int64) []models.OrderItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.OrderItem
	for _, it := range m.st.items {
		if it.OrderID == orderID {
			out = append(out, *copyItem(it))
		}
	}
	sortItems(out)
	return out
}

func (m *Memory) PaymentsByOrder(orderID int64) []models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payment
	for _, p := range m.st.payments {
		if p.OrderID == orderID {
			out = append(out, *p)
		}
	}
	return out
}

// memTx implements Tx against the staged state. Getters hand out
// copies; mutations only land via the Save/Insert methods.
type memTx struct {
	st *memState
}

func (t *memTx) GetTableForUpdate(ctx context.Context, tableID int64) (*models.Table, error) {
	tbl, ok := t.st.tables[tableID]
	if !ok || !tbl.Active {
		return nil, faults.NotFound("table %d not found", tableID)
	}
	return copyTable(tbl), nil
}

func (t *memTx) SaveTable(ctx context.Context, tbl *models.Table) error {
	if _, ok := t.st.tables[tbl.ID]; !ok {
		return faults.NotFound("table %d not found", tbl.ID)
	}
	cp := copyTable(tbl)
	cp.UpdatedAt = time.Now().UTC()
	t.st.tables[tbl.ID] = cp
	return nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *models.Order) error {
	if _, taken := t.st.orderNumbers[o.Number]; taken {
		return faults.Conflict("order number %s already exists", o.Number)
	}
	t.st.nextOrder++
	o.ID = t.st.nextOrder
	o.OpenedAt = time.Now().UTC()
	o.UpdatedAt = o.OpenedAt
	t.st.orders[o.ID] = copyOrder(o)
	t.st.orderNumbers[o.Number] = o.ID
	return nil
}

func (t *memTx) GetOrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error) {
	o, ok := t.st.orders[orderID]
	if !ok {
		return nil, faults.NotFound("order %d not found", orderID)
	}
	return copyOrder(o), nil
}

func (t *memTx) SaveOrder(ctx context.Context, o *models.Order) error {
	if _, ok := t.st.orders[o.ID]; !ok {
		return faults.NotFound("order %d not found", o.ID)
	}
	cp := copyOrder(o)
	cp.UpdatedAt = time.Now().UTC()
	t.st.orders[o.ID] = cp
	return nil
}

func (t *memTx) InsertOrderItem(ctx context.Context, it *models.OrderItem) error {
	t.st.nextItem++
	it.ID = t.st.nextItem
	it.AddedAt = time.Now().UTC()
	t.st.items[it.ID] = copyItem(it)
	return nil
}

func (t *memTx) GetOrderItem(ctx context.Context, orderID, itemID int64) (*models.OrderItem, error) {
	it, ok := t.st.items[itemID]
	if !ok || it.OrderID != orderID {
		return nil, faults.NotFound("item %d not found on order %d", itemID, orderID)
	}
	return copyItem(it), nil
}

func (t *memTx) SaveOrderItem(ctx context.Context, it *models.OrderItem) error {
	if _, ok := t.st.items[it.ID]; !ok {
		return faults.NotFound("item %d not found", it.ID)
	}
	t.st.items[it.ID] = copyItem(it)
	return nil
}

func (t *memTx) ListOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var out []models.OrderItem
	for _, it := range t.st.items {
		if it.OrderID == orderID {
			out = append(out, *copyItem(it))
		}
	}
	sortItems(out)
	return out, nil
}

func (t *memTx) GetProductForUpdate(ctx context.Context, productID int64) (*models.Product, error) {
	p, ok := t.st.products[productID]
	if !ok {
		return nil, faults.NotFound("product %d not found", productID)
	}
	return copyProduct(p), nil
}

func (t *memTx) SaveProductStock(ctx context.Context, productID int64, stock int) error {
	p, ok := t.st.products[productID]
	if !ok {
		return faults.NotFound("product %d not found", productID)
	}
	cp := copyProduct(p)
	cp.StockQuantity = &stock
	t.st.products[productID] = cp
	return nil
}

func (t *memTx) GetPaymentMethod(ctx context.Context, methodID int64) (*models.PaymentMethod, error) {
	m, ok := t.st.methods[methodID]
	if !ok {
		return nil, faults.NotFound("payment method %d not found", methodID)
	}
	cp := *m
	return &cp, nil
}

func (t *memTx) InsertPayment(ctx context.Context, p *models.Payment) error {
	t.st.nextPayment++
	p.ID = t.st.nextPayment
	p.CreatedAt = time.Now().UTC()
	cp := *p
	t.st.payments[p.ID] = &cp
	return nil
}

func (s *memState) clone() *memState {
	cp := &memState{
		tables:       make(map[int64]*models.Table, len(s.tables)),
		orders:       make(map[int64]*models.Order, len(s.orders)),
		items:        make(map[int64]*models.OrderItem, len(s.items)),
		products:     make(map[int64]*models.Product, len(s.products)),
		methods:      make(map[int64]*models.PaymentMethod, len(s.methods)),
		payments:     make(map[int64]*models.Payment, len(s.payments)),
		orderNumbers: make(map[string]int64, len(s.orderNumbers)),
		nextOrder:    s.nextOrder,
		nextItem:     s.nextItem,
		nextPayment:  s.nextPayment,
	}
	for id, t := range s.tables {
		cp.tables[id] = copyTable(t)
	}
	for id, o := range s.orders {
		cp.orders[id] = copyOrder(o)
	}
	for id, it := range s.items {
		cp.items[id] = copyItem(it)
	}
	for id, p := range s.products {
		cp.products[id] = copyProduct(p)
	}
	for id, m := range s.methods {
		c := *m
		cp.methods[id] = &c
	}
	for id, p := range s.payments {
		c := *p
		cp.payments[id] = &c
	}
	for n, id := range s.orderNumbers {
		cp.orderNumbers[n] = id
	}
	return cp
}

func copyTable(t *models.Table) *models.Table {
	cp := *t
	cp.CurrentOrderID = copyInt64(t.CurrentOrderID)
	cp.LockHolder = copyInt64(t.LockHolder)
	cp.LockAcquiredAt = copyTime(t.LockAcquiredAt)
	return &cp
}

func copyOrder(o *models.Order) *models.Order {
	cp := *o
	cp.TableID = copyInt64(o.TableID)
	cp.ClosedAt = copyTime(o.ClosedAt)
	return &cp
}

func copyItem(it *models.OrderItem) *models.OrderItem {
	cp := *it
	cp.ServedAt = copyTime(it.ServedAt)
	return &cp
}

func copyProduct(p *models.Product) *models.Product {
	cp := *p
	if p.StockQuantity != nil {
		v := *p.StockQuantity
		cp.StockQuantity = &v
	}
	return &cp
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func sortItems(items []models.OrderItem) {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}
