// Command seed loads initial comercios, products and users. It does not
// check for existing rows, so running it twice duplicates the data.
package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"storefront-order-service/internal/auth"
	"storefront-order-service/internal/catalog"
	"storefront-order-service/internal/config"
	"storefront-order-service/internal/db"
	"storefront-order-service/internal/logger"
	"storefront-order-service/internal/store"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

type seedVariant struct {
	Name  string  `yaml:"name"`
	Price float64 `yaml:"price"`
}

type seedProduct struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Category    string        `yaml:"category"`
	Price       float64       `yaml:"price"`
	Stock       int           `yaml:"stock"`
	Variants    []seedVariant `yaml:"variants"`
}

type seedBusiness struct {
	Key      string        `yaml:"key"`
	Name     string        `yaml:"name"`
	Kind     string        `yaml:"type"`
	Phone    string        `yaml:"phone"`
	WhatsApp string        `yaml:"whatsapp"`
	Address  string        `yaml:"address"`
	Region   string        `yaml:"region"`
	Products []seedProduct `yaml:"products"`
}

type seedUser struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Comercio string `yaml:"comercio"`
	Region   string `yaml:"region"`
}

type seedDoc struct {
	Comercios []seedBusiness `yaml:"comercios"`
	Users     []seedUser     `yaml:"users"`
}

type seedPlan struct {
	businesses []catalog.Business
	products   []catalog.Product
	users      []auth.User
}

type repositories struct {
	catalog catalog.Repository
	users   auth.Repository
}

func parseSeed(raw []byte) (seedDoc, error) {
	var doc seedDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return seedDoc{}, fmt.Errorf("parse seed: %w", err)
	}
	return doc, nil
}

// buildPlan assigns fresh ids and resolves user comercio keys.
func buildPlan(doc seedDoc, now time.Time, cost int) (seedPlan, error) {
	var plan seedPlan
	ids := make(map[string]string, len(doc.Comercios))
	for _, sb := range doc.Comercios {
		kind := sb.Kind
		if kind == "" {
			kind = catalog.KindRestaurant
		}
		b := catalog.Business{
			ID:        uuid.NewString(),
			Name:      sb.Name,
			Kind:      kind,
			Phone:     sb.Phone,
			WhatsApp:  sb.WhatsApp,
			Address:   sb.Address,
			Region:    sb.Region,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if sb.Key != "" {
			ids[sb.Key] = b.ID
		}
		plan.businesses = append(plan.businesses, b)

		for _, sp := range sb.Products {
			p := catalog.Product{
				ID:          uuid.NewString(),
				BusinessID:  b.ID,
				Name:        sp.Name,
				Description: sp.Description,
				Category:    sp.Category,
				Price:       sp.Price,
				Stock:       sp.Stock,
				Active:      true,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			for _, v := range sp.Variants {
				p.Variants = append(p.Variants, catalog.Variant{ID: uuid.NewString(), Name: v.Name, Price: v.Price})
			}
			plan.products = append(plan.products, p)
		}
	}

	for _, su := range doc.Users {
		role, ok := auth.ParseRole(su.Role)
		if !ok {
			return seedPlan{}, fmt.Errorf("user %s: unknown role %q", su.Email, su.Role)
		}
		businessID := ""
		if su.Comercio != "" {
			businessID, ok = ids[su.Comercio]
			if !ok {
				return seedPlan{}, fmt.Errorf("user %s: unknown comercio %q", su.Email, su.Comercio)
			}
		}
		hash, err := auth.HashPassword(su.Password, cost)
		if err != nil {
			return seedPlan{}, err
		}
		plan.users = append(plan.users, auth.User{
			ID:           uuid.NewString(),
			Email:        auth.NormalizeEmail(su.Email),
			Name:         su.Name,
			PasswordHash: hash,
			Role:         role,
			BusinessID:   businessID,
			Region:       su.Region,
			CreatedAt:    now,
		})
	}
	return plan, nil
}

// apply writes comercios first, then products and users concurrently.
func apply(ctx context.Context, repos repositories, plan seedPlan) error {
	for _, b := range plan.businesses {
		if err := repos.catalog.SaveBusiness(ctx, b); err != nil {
			return fmt.Errorf("insert comercio %s: %w", b.Name, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, p := range plan.products {
		p := p
		g.Go(func() error {
			if err := repos.catalog.SaveProduct(gctx, p); err != nil {
				return fmt.Errorf("insert product %s: %w", p.Name, err)
			}
			return nil
		})
	}
	for _, u := range plan.users {
		u := u
		g.Go(func() error {
			if err := repos.users.Create(gctx, u); err != nil {
				return fmt.Errorf("insert user %s: %w", u.Email, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	raw := defaultSeed
	if cfg.SeedFile != "" {
		data, err := os.ReadFile(cfg.SeedFile)
		if err != nil {
			return err
		}
		raw = data
	}
	doc, err := parseSeed(raw)
	if err != nil {
		return err
	}
	plan, err := buildPlan(doc, time.Now(), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}

	repos := repositories{catalog: store.NewCatalogRepository(pool), users: store.NewUserRepository(pool)}
	if err := apply(ctx, repos, plan); err != nil {
		return err
	}
	log.Info("seed complete",
		zap.Int("comercios", len(plan.businesses)),
		zap.Int("products", len(plan.products)),
		zap.Int("users", len(plan.users)),
	)
	return nil
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log, err := logger.New(cfg.Env, "storefront-seed")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := run(ctx, cfg, log); err != nil {
		log.Error("seed failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}
