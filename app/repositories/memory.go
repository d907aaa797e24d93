package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/shopfront/app/models"
)

// MemoryStore keeps every entity in maps behind one lock. It backs
// DB_DRIVER=memory and the service tests.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]models.User
	stores   map[string]models.Store
	products map[string]models.Product
	carts    map[string]models.Cart
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]models.User),
		stores:   make(map[string]models.Store),
		products: make(map[string]models.Product),
		carts:    make(map[string]models.Cart),
	}
}

// NewMemory wires a MemoryStore into a Repositories set.
func NewMemory() *Repositories {
	m := NewMemoryStore()
	return &Repositories{
		Users:    &memoryUsers{m},
		Stores:   &memoryStores{m},
		Products: &memoryProducts{m},
		Carts:    &memoryCarts{m},
		Tx:       &memoryTx{m},
	}
}

// transaction-aware locking: inside WithTransaction the write lock is
// already held, so repository calls skip their own.
type txKey struct{}

func isTx(ctx context.Context) bool {
	b, ok := ctx.Value(txKey{}).(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}

func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}

func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}

func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

type memorySnapshot struct {
	users    map[string]models.User
	stores   map[string]models.Store
	products map[string]models.Product
	carts    map[string]models.Cart
}

func (m *MemoryStore) snapshot() memorySnapshot {
	s := memorySnapshot{
		users:    make(map[string]models.User, len(m.users)),
		stores:   make(map[string]models.Store, len(m.stores)),
		products: make(map[string]models.Product, len(m.products)),
		carts:    make(map[string]models.Cart, len(m.carts)),
	}
	for k, v := range m.users {
		s.users[k] = v
	}
	for k, v := range m.stores {
		s.stores[k] = v
	}
	for k, v := range m.products {
		s.products[k] = copyProduct(v)
	}
	for k, v := range m.carts {
		s.carts[k] = copyCart(v)
	}
	return s
}

func (m *MemoryStore) restore(s memorySnapshot) {
	m.users, m.stores, m.products, m.carts = s.users, s.stores, s.products, s.carts
}

func copyProduct(p models.Product) models.Product {
	p.Thumbnails = append([]string(nil), p.Thumbnails...)
	return p
}

func copyCart(c models.Cart) models.Cart {
	c.Items = append([]models.CartItem{}, c.Items...)
	if c.PaidAt != nil {
		t := *c.PaidAt
		c.PaidAt = &t
	}
	return c
}

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

// ── transactions ─────────────────────────────────────────────────────────────

type memoryTx struct{ store *MemoryStore }

// WithTransaction holds the write lock for the whole of fn and puts the
// maps back the way they were when fn fails.
func (tx *memoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if isTx(ctx) {
		return fn(ctx)
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	snap := tx.store.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		tx.store.restore(snap)
		return err
	}
	return nil
}

// ── users ────────────────────────────────────────────────────────────────────

type memoryUsers struct{ store *MemoryStore }

func (r *memoryUsers) emailTaken(email, exceptID string) bool {
	for _, u := range r.store.users {
		if u.ID != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r *memoryUsers) Create(ctx context.Context, u *models.User) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if r.emailTaken(u.Email, "") {
		return ErrDuplicate
	}
	stamp(&u.CreatedAt, &u.UpdatedAt)
	r.store.users[u.ID] = *u
	return nil
}

func (r *memoryUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	u, ok := r.store.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *memoryUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	for _, u := range r.store.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryUsers) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.store.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memoryUsers) Update(ctx context.Context, u *models.User) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if _, ok := r.store.users[u.ID]; !ok {
		return ErrNotFound
	}
	if r.emailTaken(u.Email, u.ID) {
		return ErrDuplicate
	}
	stamp(nil, &u.UpdatedAt)
	r.store.users[u.ID] = *u
	return nil
}

func (r *memoryUsers) All(ctx context.Context) ([]models.User, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]models.User, 0, len(r.store.users))
	for _, u := range r.store.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ── stores ───────────────────────────────────────────────────────────────────

type memoryStores struct{ store *MemoryStore }

func (r *memoryStores) Create(ctx context.Context, s *models.Store) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	stamp(&s.CreatedAt, &s.UpdatedAt)
	r.store.stores[s.ID] = *s
	return nil
}

func (r *memoryStores) FindByID(ctx context.Context, id string) (*models.Store, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	s, ok := r.store.stores[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *memoryStores) All(ctx context.Context) ([]models.Store, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]models.Store, 0, len(r.store.stores))
	for _, s := range r.store.stores {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryStores) Update(ctx context.Context, s *models.Store) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if _, ok := r.store.stores[s.ID]; !ok {
		return ErrNotFound
	}
	stamp(nil, &s.UpdatedAt)
	r.store.stores[s.ID] = *s
	return nil
}

// ── products ─────────────────────────────────────────────────────────────────

type memoryProducts struct{ store *MemoryStore }

func (r *memoryProducts) codeTaken(code, exceptID string) bool {
	for _, p := range r.store.products {
		if p.ID != exceptID && p.Code == code {
			return true
		}
	}
	return false
}

func (r *memoryProducts) Create(ctx context.Context, p *models.Product) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if r.codeTaken(p.Code, "") {
		return ErrDuplicate
	}
	stamp(&p.CreatedAt, &p.UpdatedAt)
	r.store.products[p.ID] = copyProduct(*p)
	return nil
}

func (r *memoryProducts) FindByID(ctx context.Context, id string) (*models.Product, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	p, ok := r.store.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	p = copyProduct(p)
	return &p, nil
}

func (r *memoryProducts) FindByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.store.products[id]; ok {
			out = append(out, copyProduct(p))
		}
	}
	return out, nil
}

func (r *memoryProducts) List(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]models.Product, 0)
	for _, p := range r.store.products {
		if f.Matches(&p) {
			out = append(out, copyProduct(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryProducts) Update(ctx context.Context, p *models.Product) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if _, ok := r.store.products[p.ID]; !ok {
		return ErrNotFound
	}
	if r.codeTaken(p.Code, p.ID) {
		return ErrDuplicate
	}
	stamp(nil, &p.UpdatedAt)
	r.store.products[p.ID] = copyProduct(*p)
	return nil
}

func (r *memoryProducts) DecrementStock(ctx context.Context, id string, qty int) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	p, ok := r.store.products[id]
	if !ok {
		return ErrNotFound
	}
	if !p.Status || p.Stock < qty {
		return ErrConflict
	}
	p.Stock -= qty
	stamp(nil, &p.UpdatedAt)
	r.store.products[id] = p
	return nil
}

// ── carts ────────────────────────────────────────────────────────────────────

type memoryCarts struct{ store *MemoryStore }

func (r *memoryCarts) open(userID, storeID string) (models.Cart, bool) {
	for _, c := range r.store.carts {
		if c.UserID == userID && c.StoreID == storeID && c.InProgress() {
			return c, true
		}
	}
	return models.Cart{}, false
}

func (r *memoryCarts) Create(ctx context.Context, c *models.Cart) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if c.InProgress() {
		if _, taken := r.open(c.UserID, c.StoreID); taken {
			return ErrDuplicate
		}
	}
	if c.Items == nil {
		c.Items = []models.CartItem{}
	}
	stamp(&c.CreatedAt, nil)
	r.store.carts[c.ID] = copyCart(*c)
	return nil
}

func (r *memoryCarts) FindByID(ctx context.Context, id string) (*models.Cart, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	c, ok := r.store.carts[id]
	if !ok {
		return nil, ErrNotFound
	}
	c = copyCart(c)
	return &c, nil
}

func (r *memoryCarts) FindOpen(ctx context.Context, userID, storeID string) (*models.Cart, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	c, ok := r.open(userID, storeID)
	if !ok {
		return nil, ErrNotFound
	}
	c = copyCart(c)
	return &c, nil
}

func (r *memoryCarts) ListByUser(ctx context.Context, userID string) ([]models.Cart, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]models.Cart, 0)
	for _, c := range r.store.carts {
		if c.UserID == userID {
			out = append(out, copyCart(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryCarts) ListPaidByStore(ctx context.Context, storeID string) ([]models.Cart, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]models.Cart, 0)
	for _, c := range r.store.carts {
		if c.StoreID == storeID && c.Status == models.CartPaid {
			out = append(out, copyCart(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaidAt.After(*out[j].PaidAt) })
	return out, nil
}

func (r *memoryCarts) guard(id string) (models.Cart, error) {
	c, ok := r.store.carts[id]
	if !ok {
		return c, ErrNotFound
	}
	if !c.InProgress() {
		return c, ErrConflict
	}
	return c, nil
}

func (r *memoryCarts) SaveItems(ctx context.Context, c *models.Cart) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	stored, err := r.guard(c.ID)
	if err != nil {
		return err
	}
	stored.Items = append([]models.CartItem{}, c.Items...)
	for i := range stored.Items {
		stored.Items[i].CartID = c.ID
		stored.Items[i].Position = i
	}
	r.store.carts[c.ID] = stored
	return nil
}

func (r *memoryCarts) MarkPaid(ctx context.Context, id string, at time.Time) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	stored, err := r.guard(id)
	if err != nil {
		return err
	}
	stored.Status = models.CartPaid
	stored.PaidAt = &at
	r.store.carts[id] = stored
	return nil
}

func (r *memoryCarts) Delete(ctx context.Context, id string) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if _, err := r.guard(id); err != nil {
		return err
	}
	delete(r.store.carts, id)
	return nil
}

func (r *memoryCarts) DeleteAbandoned(ctx context.Context, before time.Time) (int64, error) {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	var n int64
	for id, c := range r.store.carts {
		if c.InProgress() && len(c.Items) == 0 && c.CreatedAt.Before(before) {
			delete(r.store.carts, id)
			n++
		}
	}
	return n, nil
}
