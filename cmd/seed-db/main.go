package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/aurumcart/aurum-backend/internal/domain/auth"
	"github.com/aurumcart/aurum-backend/internal/repository"
)

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
		withDemoData bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or AURUM_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or AURUM_API_KEY_PEPPER env)")
	flag.BoolVar(&withDemoData, "demo-data", false, "seed demo catalog and accounts")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("AURUM_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or AURUM_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("AURUM_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper, withDemoData); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string, withDemoData bool) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedSettings(ctx, pool); err != nil {
		return errors.Wrap(err, "seed settings")
	}
	if err := seedEMIPlans(ctx, pool); err != nil {
		return errors.Wrap(err, "seed emi plans")
	}
	if err := seedVouchers(ctx, pool); err != nil {
		return errors.Wrap(err, "seed vouchers")
	}
	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	if withDemoData {
		if err := seedDemoData(ctx, pool); err != nil {
			return errors.Wrap(err, "seed demo data")
		}
	}

	return nil
}

const upsertSettingSQL = `INSERT INTO app_settings (key, value, description, category)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (key) DO NOTHING`

// seedSettings inserts the business tunables with their documented defaults.
// Existing values are left untouched so reseeding never reverts admin changes.
func seedSettings(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding default settings")

	defaults := []struct {
		key, value, description, category string
	}{
		{"business_name", `"Aurum Jewellery"`, "Seller name printed on tax invoices", "business"},
		{"business_address", `"12 MG Road, Bengaluru, Karnataka 560001"`, "Seller address printed on tax invoices", "business"},
		{"business_phone", `"+91-80-4000-1234"`, "Seller phone printed on tax invoices", "business"},
		{"business_email", `"billing@aurumjewellery.in"`, "Seller email printed on tax invoices", "business"},
		{"business_gstin", `"29AAACA1234F1Z5"`, "Seller GSTIN printed on tax invoices", "business"},
		{"tax_percent", "3", "GST percent applied to order pricing", "pricing"},
		{"cgst_rate", "1.5", "CGST percent shown on tax invoices", "invoicing"},
		{"sgst_rate", "1.5", "SGST percent shown on tax invoices", "invoicing"},
		{"shipping_fee", "99", "Flat shipping fee in rupees", "pricing"},
		{"free_shipping_above", "5000", "Order total above which shipping is free", "pricing"},
		{"loyalty_point_value", "1", "Rupee value of a single loyalty point", "loyalty"},
		{"min_loyalty_redemption", "100", "Minimum points per redemption", "loyalty"},
		{"max_loyalty_usage_percent", "50", "Max percent of an order payable with points", "loyalty"},
		{"referral_reward_percent", "50", "Percent of first-order value awarded as referral points", "referral"},
		{"referral_validity_days", "30", "Days a pending referral stays eligible for reward", "referral"},
	}

	for _, d := range defaults {
		if _, err := pool.Exec(ctx, upsertSettingSQL, d.key, d.value, d.description, d.category); err != nil {
			return errors.Wrapf(err, "insert setting %s", d.key)
		}
	}

	slog.Info("settings seeded", slog.Int("count", len(defaults)))
	return nil
}

const upsertEMIPlanSQL = `INSERT INTO emi_plans (id, months, interest_rate, min_amount, max_amount, processing_fee, active)
	VALUES ($1, $2, $3, $4, $5, $6, TRUE)
	ON CONFLICT (id) DO UPDATE SET
		months = EXCLUDED.months,
		interest_rate = EXCLUDED.interest_rate,
		min_amount = EXCLUDED.min_amount,
		max_amount = EXCLUDED.max_amount,
		processing_fee = EXCLUDED.processing_fee,
		active = TRUE`

func seedEMIPlans(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding emi plans")

	plans := []struct {
		id             string
		months         int
		rate, min, max string
		processingFee  string
	}{
		{id: "emi_3m", months: 3, rate: "12", min: "3000", max: "500000", processingFee: "99"},
		{id: "emi_6m", months: 6, rate: "13", min: "5000", max: "500000", processingFee: "149"},
		{id: "emi_9m", months: 9, rate: "14", min: "10000", max: "1000000", processingFee: "199"},
		{id: "emi_12m", months: 12, rate: "15", min: "15000", max: "1000000", processingFee: "249"},
	}

	for _, p := range plans {
		rate, err := decimal.NewFromString(p.rate)
		if err != nil {
			return errors.Wrapf(err, "parse rate for plan %s", p.id)
		}
		minAmt, _ := decimal.NewFromString(p.min)
		maxAmt, _ := decimal.NewFromString(p.max)
		fee, _ := decimal.NewFromString(p.processingFee)

		if _, err := pool.Exec(ctx, upsertEMIPlanSQL, p.id, p.months, rate, minAmt, maxAmt, fee); err != nil {
			return errors.Wrapf(err, "upsert emi plan %s", p.id)
		}

		slog.Info("upserted emi plan", slog.String("id", p.id), slog.Int("months", p.months))
	}

	return nil
}

const upsertVoucherSQL = `INSERT INTO vouchers
	(code, description, discount_type, discount_value, min_amount, max_discount, usage_limit, active)
	VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
	ON CONFLICT (code) DO UPDATE SET
		description = EXCLUDED.description,
		discount_type = EXCLUDED.discount_type,
		discount_value = EXCLUDED.discount_value,
		min_amount = EXCLUDED.min_amount,
		max_discount = EXCLUDED.max_discount,
		usage_limit = EXCLUDED.usage_limit,
		active = TRUE`

func seedVouchers(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding vouchers")

	type voucherSeed struct {
		code, description, discountType string
		value, minAmount                decimal.Decimal
		maxDiscount                     *decimal.Decimal
		usageLimit                      *int
	}

	cap2000 := decimal.NewFromInt(2000)
	cap5000 := decimal.NewFromInt(5000)
	limit1000 := 1000

	vouchers := []voucherSeed{
		{
			code: "WELCOME10", description: "Welcome offer: 10% off",
			discountType: "percentage", value: decimal.NewFromInt(10),
			minAmount: decimal.NewFromInt(1000), maxDiscount: &cap2000,
		},
		{
			code: "FESTIVE20", description: "Festive season: 20% off",
			discountType: "percentage", value: decimal.NewFromInt(20),
			minAmount: decimal.NewFromInt(5000), maxDiscount: &cap5000, usageLimit: &limit1000,
		},
		{
			code: "FLAT500", description: "Flat 500 off orders above 10000",
			discountType: "fixed", value: decimal.NewFromInt(500),
			minAmount: decimal.NewFromInt(10000),
		},
		{
			code: "NEWUSER15", description: "New customer: 15% off",
			discountType: "percentage", value: decimal.NewFromInt(15),
			minAmount: decimal.NewFromInt(2000), maxDiscount: &cap2000,
		},
	}

	for _, v := range vouchers {
		if _, err := pool.Exec(ctx, upsertVoucherSQL,
			v.code, v.description, v.discountType, v.value, v.minAmount, v.maxDiscount, v.usageLimit,
		); err != nil {
			return errors.Wrapf(err, "upsert voucher %s", v.code)
		}

		slog.Info("upserted voucher", slog.String("code", v.code), slog.String("description", v.description))
	}

	return nil
}

const upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes, active)
	VALUES ($1, $2, $3, $4, TRUE)
	ON CONFLICT (id) DO UPDATE SET
		key_hash = EXCLUDED.key_hash,
		name = EXCLUDED.name,
		scopes = EXCLUDED.scopes,
		active = TRUE`

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding admin API key")

	keyHash := auth.HashKey([]byte(pepper), apiKey)

	if _, err := pool.Exec(ctx, upsertAPIKeySQL,
		"admin-default", keyHash, "Default admin key", []string{"admin"},
	); err != nil {
		return errors.Wrap(err, "upsert admin API key")
	}

	slog.Info("upserted API key", slog.String("id", "admin-default"))
	return nil
}

const (
	upsertCategorySQL = `INSERT INTO categories (name, making_percent_default, making_percent_by_material)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET
			making_percent_default = EXCLUDED.making_percent_default,
			making_percent_by_material = EXCLUDED.making_percent_by_material`

	upsertProductSQL = `INSERT INTO products (id, name, category, material, price, making_charge_percent, stock, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			material = EXCLUDED.material,
			price = EXCLUDED.price,
			making_charge_percent = EXCLUDED.making_charge_percent,
			stock = EXCLUDED.stock,
			active = TRUE`

	upsertAccountSQL = `INSERT INTO accounts (id, name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`
)

// seedDemoData loads a small catalog and two demo accounts for local development.
func seedDemoData(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo data")

	categories := []struct {
		name, defaultPercent, byMaterial string
	}{
		{"rings", "12", `{"gold": 14, "silver": 8, "platinum": 16}`},
		{"necklaces", "15", `{"gold": 18, "silver": 10}`},
		{"earrings", "10", `{"gold": 12, "silver": 7}`},
		{"bangles", "11", `{"gold": 13}`},
	}
	for _, c := range categories {
		pct, _ := decimal.NewFromString(c.defaultPercent)
		if _, err := pool.Exec(ctx, upsertCategorySQL, c.name, pct, c.byMaterial); err != nil {
			return errors.Wrapf(err, "upsert category %s", c.name)
		}
	}

	products := []struct {
		id, name, category, material string
		price                        string
		makingPercent                *string
		stock                        int
	}{
		{id: "prod_ring_gold_001", name: "Classic Gold Band", category: "rings", material: "gold", price: "24500", stock: 12},
		{id: "prod_ring_plat_001", name: "Platinum Solitaire Ring", category: "rings", material: "platinum", price: "89000", stock: 4},
		{id: "prod_neck_gold_001", name: "Temple Gold Necklace", category: "necklaces", material: "gold", price: "132000", stock: 3},
		{id: "prod_ear_silv_001", name: "Silver Jhumka Earrings", category: "earrings", material: "silver", price: "3400", stock: 30},
		{id: "prod_bang_gold_001", name: "Filigree Gold Bangle", category: "bangles", material: "gold", price: "56000", makingPercent: strPtr("17"), stock: 8},
	}
	for _, p := range products {
		price, err := decimal.NewFromString(p.price)
		if err != nil {
			return errors.Wrapf(err, "parse price for product %s", p.id)
		}
		var making *decimal.Decimal
		if p.makingPercent != nil {
			d, err := decimal.NewFromString(*p.makingPercent)
			if err != nil {
				return errors.Wrapf(err, "parse making charge for product %s", p.id)
			}
			making = &d
		}
		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.id, p.name, p.category, p.material, price, making, p.stock,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.id)
		}

		slog.Info("upserted product", slog.String("id", p.id), slog.String("name", p.name))
	}

	accounts := []struct{ id, name, email string }{
		{"acc_demo_asha", "Asha Nair", "asha@example.com"},
		{"acc_demo_rohan", "Rohan Mehta", "rohan@example.com"},
	}
	for _, a := range accounts {
		if _, err := pool.Exec(ctx, upsertAccountSQL, a.id, a.name, a.email); err != nil {
			return errors.Wrapf(err, "upsert account %s", a.id)
		}
	}

	return nil
}

func strPtr(s string) *string { return &s }
