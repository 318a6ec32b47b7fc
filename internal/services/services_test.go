package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"nexusmarket/internal/auth"
	"nexusmarket/internal/domain"
	"nexusmarket/internal/repos"
	"nexusmarket/internal/services"
)

type published struct {
	topic string
	key   string
	event any
}

type recordingPublisher struct {
	mu  sync.Mutex
	got []published
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, ev any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, published{topic: topic, key: key, event: ev})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.got {
		out = append(out, e.topic)
	}
	return out
}

type env struct {
	db      *sqlx.DB
	auth    *services.AuthService
	catalog *services.CatalogService
	orders  *services.OrderService
	events  *recordingPublisher
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := repos.OpenDB("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	products := repos.NewProductRepo(db)
	pub := &recordingPublisher{}
	return &env{
		db:      db,
		auth:    services.NewAuthService(repos.NewUserRepo(db), auth.NewTokenManager("test-secret", "", time.Hour)),
		catalog: services.NewCatalogService(db, products),
		orders:  services.NewOrderService(db, products, repos.NewOrderRepo(db), pub),
		events:  pub,
	}
}

func (e *env) user(t *testing.T, email string, role domain.Role) services.Caller {
	t.Helper()
	u, err := repos.NewUserRepo(e.db).Create(context.Background(), domain.User{
		FirstName: "Sam", LastName: "Seller", Email: email, Hash: "x", Role: role,
	})
	require.NoError(t, err)
	return services.Caller{ID: u.ID, Role: u.Role}
}

func (e *env) product(t *testing.T, seller services.Caller, name, price string, stock int) domain.Product {
	t.Helper()
	desc := name + " for everyday use"
	p := dec(price)
	p2, err := e.catalog.CreateProduct(context.Background(), seller, services.ProductInput{
		Name: &name, Description: &desc, Price: &p, Stock: &stock,
	})
	require.NoError(t, err)
	return p2
}

func (e *env) stock(t *testing.T, id int64) (int, domain.ProductStatus) {
	t.Helper()
	p, err := e.catalog.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Stock, p.Status
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decp(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}
