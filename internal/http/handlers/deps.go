package handlers

import (
	"nexusmarket/internal/auth"
	"nexusmarket/internal/config"
	"nexusmarket/internal/events"
	"nexusmarket/internal/repos"
	"nexusmarket/internal/services"

	"github.com/jmoiron/sqlx"
)

type Deps struct {
	DB      *sqlx.DB
	AuthSvc *services.AuthService

	AuthHandler    *AuthHandler
	UserHandler    *UserHandler
	ProductHandler *ProductHandler
	OrderHandler   *OrderHandler
	AdminHandler   *AdminHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, pub events.Publisher) *Deps {
	userRepo := repos.NewUserRepo(db)
	prodRepo := repos.NewProductRepo(db)
	orderRepo := repos.NewOrderRepo(db)

	tokens := auth.NewTokenManager(cfg.JWTSecret, "nexusmarket", cfg.JWTTTL)
	authSvc := services.NewAuthService(userRepo, tokens)
	catalogSvc := services.NewCatalogService(db, prodRepo)
	orderSvc := services.NewOrderService(db, prodRepo, orderRepo, pub)

	return &Deps{
		DB:             db,
		AuthSvc:        authSvc,
		AuthHandler:    &AuthHandler{Auth: authSvc},
		UserHandler:    &UserHandler{Auth: authSvc},
		ProductHandler: &ProductHandler{Catalog: catalogSvc},
		OrderHandler:   &OrderHandler{Orders: orderSvc},
		AdminHandler:   &AdminHandler{Orders: orderSvc},
	}
}
