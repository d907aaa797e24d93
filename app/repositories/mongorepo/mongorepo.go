// Package mongorepo implements the repositories on MongoDB. Documents use
// the same UUID string IDs as the SQL backends, and cart items are
// embedded in the cart document.
package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shashiranjanraj/shopfront/app/models"
	"github.com/shashiranjanraj/shopfront/app/repositories"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	colUsers    = "users"
	colStores   = "stores"
	colProducts = "products"
	colCarts    = "carts"
)

// Options tunes the backend.
type Options struct {
	// Transactions enables multi-document transactions. Standalone
	// servers do not support them.
	Transactions bool
}

// New wires every repository onto db after making sure the indexes exist.
func New(ctx context.Context, client *mongo.Client, db *mongo.Database, opts Options) (*repositories.Repositories, error) {
	if err := EnsureIndexes(ctx, db); err != nil {
		return nil, err
	}
	return &repositories.Repositories{
		Users:    &UserRepository{col: db.Collection(colUsers)},
		Stores:   &StoreRepository{col: db.Collection(colStores)},
		Products: &ProductRepository{col: db.Collection(colProducts)},
		Carts:    &CartRepository{col: db.Collection(colCarts)},
		Tx:       &TxManager{client: client, enabled: opts.Transactions},
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		Close: func(ctx context.Context) error { return client.Disconnect(ctx) },
	}, nil
}

// EnsureIndexes creates the unique and lookup indexes. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colProducts: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colCarts: {
			{
				Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "store_id", Value: 1}},
				Options: options.Index().
					SetName("one_open_cart").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": models.CartInProgress}),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "status", Value: 1}, {Key: "paid_at", Value: -1}}},
		},
	}
	for col, idx := range specs {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("mongorepo: indexes on %s: %w", col, err)
		}
	}
	return nil
}

func translate(scope string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repositories.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", scope, repositories.ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", scope, err)
	}
}

func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// ── transactions ─────────────────────────────────────────────────────────────

// TxManager runs fn inside a session transaction. With transactions
// disabled fn runs directly; stock taken by a failed fn is put back by
// compensating writes, everything else stands on its own.
type TxManager struct {
	client  *mongo.Client
	enabled bool
}

func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil || undoFrom(ctx) != nil {
		return fn(ctx)
	}
	if !m.enabled {
		return withUndo(ctx, fn)
	}

	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongorepo: start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// ── users ────────────────────────────────────────────────────────────────────

type userDoc struct {
	ID        string    `bson:"_id"`
	Email     string    `bson:"email"`
	Password  string    `bson:"password"`
	FirstName string    `bson:"first_name"`
	LastName  string    `bson:"last_name"`
	Role      string    `bson:"role"`
	StoreID   string    `bson:"store_id,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toUserDoc(u *models.User) userDoc {
	return userDoc{
		ID: u.ID, Email: strings.ToLower(u.Email), Password: u.Password,
		FirstName: u.FirstName, LastName: u.LastName, Role: u.Role, StoreID: u.StoreID,
		CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func (d userDoc) model() models.User {
	return models.User{
		ID: d.ID, Email: d.Email, Password: d.Password,
		FirstName: d.FirstName, LastName: d.LastName, Role: d.Role, StoreID: d.StoreID,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

type UserRepository struct{ col *mongo.Collection }

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now()
	}
	u.UpdatedAt = now()
	u.Email = strings.ToLower(u.Email)
	_, err := r.col.InsertOne(ctx, toUserDoc(u))
	return translate("users: create", err)
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var d userDoc
	if err := r.col.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, translate("users: find", err)
	}
	u := d.model()
	return &u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, nil)
}

func (r *UserRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.User, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate("users: find many", err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate("users: decode", err)
	}
	out := make([]models.User, len(docs))
	for i, d := range docs {
		out[i] = d.model()
	}
	return out, nil
}

func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	u.UpdatedAt = now()
	u.Email = strings.ToLower(u.Email)
	d := toUserDoc(u)
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": bson.M{
		"email": d.Email, "password": d.Password, "first_name": d.FirstName,
		"last_name": d.LastName, "role": d.Role, "store_id": d.StoreID, "updated_at": d.UpdatedAt,
	}})
	if err != nil {
		return translate("users: update", err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *UserRepository) All(ctx context.Context) ([]models.User, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

// ── stores ───────────────────────────────────────────────────────────────────

type storeDoc struct {
	ID        string    `bson:"_id"`
	StoreName string    `bson:"store_name"`
	Address   string    `bson:"address"`
	WhatsApp  string    `bson:"whatsapp,omitempty"`
	OwnerID   string    `bson:"owner_id,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d storeDoc) model() models.Store {
	return models.Store{
		ID: d.ID, StoreName: d.StoreName, Address: d.Address, WhatsApp: d.WhatsApp,
		OwnerID: d.OwnerID, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

type StoreRepository struct{ col *mongo.Collection }

func (r *StoreRepository) Create(ctx context.Context, s *models.Store) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now()
	}
	s.UpdatedAt = now()
	_, err := r.col.InsertOne(ctx, storeDoc{
		ID: s.ID, StoreName: s.StoreName, Address: s.Address, WhatsApp: s.WhatsApp,
		OwnerID: s.OwnerID, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt,
	})
	return translate("stores: create", err)
}

func (r *StoreRepository) FindByID(ctx context.Context, id string) (*models.Store, error) {
	var d storeDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, translate("stores: find", err)
	}
	s := d.model()
	return &s, nil
}

func (r *StoreRepository) All(ctx context.Context) ([]models.Store, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, translate("stores: all", err)
	}
	var docs []storeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate("stores: decode", err)
	}
	out := make([]models.Store, len(docs))
	for i, d := range docs {
		out[i] = d.model()
	}
	return out, nil
}

func (r *StoreRepository) Update(ctx context.Context, s *models.Store) error {
	s.UpdatedAt = now()
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": s.ID}, bson.M{"$set": bson.M{
		"store_name": s.StoreName, "address": s.Address, "whatsapp": s.WhatsApp,
		"owner_id": s.OwnerID, "updated_at": s.UpdatedAt,
	}})
	if err != nil {
		return translate("stores: update", err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// ── products ─────────────────────────────────────────────────────────────────

type productDoc struct {
	ID          string               `bson:"_id"`
	Title       string               `bson:"title"`
	Description string               `bson:"description"`
	Code        string               `bson:"code"`
	Category    string               `bson:"category"`
	Price       primitive.Decimal128 `bson:"price"`
	Stock       int                  `bson:"stock"`
	Thumbnails  []string             `bson:"thumbnails"`
	Status      bool                 `bson:"status"`
	StoreID     string               `bson:"store_id"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

func toProductDoc(p *models.Product) (productDoc, error) {
	price, err := primitive.ParseDecimal128(p.Price.String())
	if err != nil {
		return productDoc{}, fmt.Errorf("products: price %s: %w", p.Price, err)
	}
	thumbs := p.Thumbnails
	if thumbs == nil {
		thumbs = []string{}
	}
	return productDoc{
		ID: p.ID, Title: p.Title, Description: p.Description, Code: p.Code, Category: p.Category,
		Price: price, Stock: p.Stock, Thumbnails: thumbs, Status: p.Status, StoreID: p.StoreID,
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}, nil
}

func (d productDoc) model() (models.Product, error) {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return models.Product{}, fmt.Errorf("products: decode price of %s: %w", d.ID, err)
	}
	return models.Product{
		ID: d.ID, Title: d.Title, Description: d.Description, Code: d.Code, Category: d.Category,
		Price: price, Stock: d.Stock, Thumbnails: d.Thumbnails, Status: d.Status, StoreID: d.StoreID,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}, nil
}

type ProductRepository struct{ col *mongo.Collection }

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}
	p.UpdatedAt = now()
	d, err := toProductDoc(p)
	if err != nil {
		return err
	}
	_, err = r.col.InsertOne(ctx, d)
	return translate("products: create", err)
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var d productDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, translate("products: find", err)
	}
	p, err := d.model()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Product, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate("products: find many", err)
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate("products: decode", err)
	}
	out := make([]models.Product, 0, len(docs))
	for _, d := range docs {
		p, err := d.model()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, nil)
}

func (r *ProductRepository) List(ctx context.Context, f repositories.ProductFilter) ([]models.Product, error) {
	filter := bson.M{}
	if f.StoreID != "" {
		filter["store_id"] = f.StoreID
	}
	if f.ActiveOnly {
		filter["status"] = true
	}
	if f.Category != "" {
		filter["category"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(f.Category) + "$", Options: "i"}
	}
	if f.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = bson.A{bson.M{"title": re}, bson.M{"code": re}}
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	p.UpdatedAt = now()
	d, err := toProductDoc(p)
	if err != nil {
		return err
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": bson.M{
		"title": d.Title, "description": d.Description, "code": d.Code, "category": d.Category,
		"price": d.Price, "stock": d.Stock, "thumbnails": d.Thumbnails, "status": d.Status,
		"store_id": d.StoreID, "updated_at": d.UpdatedAt,
	}})
	if err != nil {
		return translate("products: update", err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) DecrementStock(ctx context.Context, id string, qty int) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": true, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}, "$set": bson.M{"updated_at": now()}},
	)
	if err != nil {
		return translate("products: decrement stock", err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrConflict
	}
	onRollback(ctx, func(ctx context.Context) error {
		_, err := r.col.UpdateOne(ctx,
			bson.M{"_id": id},
			bson.M{"$inc": bson.M{"stock": qty}, "$set": bson.M{"updated_at": now()}},
		)
		return translate("products: restore stock", err)
	})
	return nil
}

// ── carts ────────────────────────────────────────────────────────────────────

type cartItemDoc struct {
	ProductID string `bson:"product_id"`
	Quantity  int    `bson:"quantity"`
}

type cartDoc struct {
	ID        string        `bson:"_id"`
	UserID    string        `bson:"user_id"`
	StoreID   string        `bson:"store_id"`
	Status    string        `bson:"status"`
	Items     []cartItemDoc `bson:"items"`
	CreatedAt time.Time     `bson:"created_at"`
	PaidAt    *time.Time    `bson:"paid_at,omitempty"`
}

func itemDocs(items []models.CartItem) []cartItemDoc {
	out := make([]cartItemDoc, len(items))
	for i, it := range items {
		out[i] = cartItemDoc{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return out
}

func (d cartDoc) model() models.Cart {
	items := make([]models.CartItem, len(d.Items))
	for i, it := range d.Items {
		items[i] = models.CartItem{CartID: d.ID, ProductID: it.ProductID, Quantity: it.Quantity, Position: i}
	}
	return models.Cart{
		ID: d.ID, UserID: d.UserID, StoreID: d.StoreID, Status: d.Status,
		Items: items, CreatedAt: d.CreatedAt, PaidAt: d.PaidAt,
	}
}

type CartRepository struct{ col *mongo.Collection }

func (r *CartRepository) Create(ctx context.Context, c *models.Cart) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now()
	}
	if c.Items == nil {
		c.Items = []models.CartItem{}
	}
	_, err := r.col.InsertOne(ctx, cartDoc{
		ID: c.ID, UserID: c.UserID, StoreID: c.StoreID, Status: c.Status,
		Items: itemDocs(c.Items), CreatedAt: c.CreatedAt, PaidAt: c.PaidAt,
	})
	return translate("carts: create", err)
}

func (r *CartRepository) findOne(ctx context.Context, filter bson.M) (*models.Cart, error) {
	var d cartDoc
	if err := r.col.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, translate("carts: find", err)
	}
	c := d.model()
	return &c, nil
}

func (r *CartRepository) find(ctx context.Context, filter bson.M, sort bson.D) ([]models.Cart, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, translate("carts: find many", err)
	}
	var docs []cartDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate("carts: decode", err)
	}
	out := make([]models.Cart, len(docs))
	for i, d := range docs {
		out[i] = d.model()
	}
	return out, nil
}

func (r *CartRepository) FindByID(ctx context.Context, id string) (*models.Cart, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *CartRepository) FindOpen(ctx context.Context, userID, storeID string) (*models.Cart, error) {
	return r.findOne(ctx, bson.M{"user_id": userID, "store_id": storeID, "status": models.CartInProgress})
}

func (r *CartRepository) ListByUser(ctx context.Context, userID string) ([]models.Cart, error) {
	return r.find(ctx, bson.M{"user_id": userID}, bson.D{{Key: "created_at", Value: -1}})
}

func (r *CartRepository) ListPaidByStore(ctx context.Context, storeID string) ([]models.Cart, error) {
	return r.find(ctx, bson.M{"store_id": storeID, "status": models.CartPaid}, bson.D{{Key: "paid_at", Value: -1}})
}

// miss resolves why a write guarded on status matched nothing.
func (r *CartRepository) miss(ctx context.Context, id string) error {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return translate("carts: guard", err)
	}
	if n == 0 {
		return repositories.ErrNotFound
	}
	return repositories.ErrConflict
}

func (r *CartRepository) SaveItems(ctx context.Context, c *models.Cart) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": c.ID, "status": models.CartInProgress},
		bson.M{"$set": bson.M{"items": itemDocs(c.Items)}},
	)
	if err != nil {
		return translate("carts: save items", err)
	}
	if res.MatchedCount == 0 {
		return r.miss(ctx, c.ID)
	}
	return nil
}

func (r *CartRepository) MarkPaid(ctx context.Context, id string, at time.Time) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.CartInProgress},
		bson.M{"$set": bson.M{"status": models.CartPaid, "paid_at": at}},
	)
	if err != nil {
		return translate("carts: mark paid", err)
	}
	if res.MatchedCount == 0 {
		return r.miss(ctx, id)
	}
	return nil
}

func (r *CartRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "status": models.CartInProgress})
	if err != nil {
		return translate("carts: delete", err)
	}
	if res.DeletedCount == 0 {
		return r.miss(ctx, id)
	}
	return nil
}

func (r *CartRepository) DeleteAbandoned(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{
		"status":     models.CartInProgress,
		"created_at": bson.M{"$lt": before},
		"items.0":    bson.M{"$exists": false},
	})
	if err != nil {
		return 0, translate("carts: delete abandoned", err)
	}
	return res.DeletedCount, nil
}
