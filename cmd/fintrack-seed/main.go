package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("fintrack-seed", flag.ContinueOnError)
	fs.SetOutput(stderr)

	email := fs.String("email", "", "Email of the user that owns the transactions")
	accountFlag := fs.String("account", "", "Account id (default: the user's first owned account)")
	count := fs.Int("n", 200, "Number of transactions to create")
	dbPath := fs.String("db", "./data/fintrack.db", "Path to database file")
	seed := fs.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		fmt.Fprintln(stdout, "Usage: fintrack-seed -email <email> [-account <id>] [-n 200] [-db <db_path>]")
		fs.PrintDefaults()
		return errors.New("missing required flags: email")
	}
	if *count < 1 {
		return errors.New("-n must be positive")
	}
	if path := os.Getenv("SQLITE_DB_PATH"); path != "" && *dbPath == "./data/fintrack.db" {
		*dbPath = path
	}

	repo, err := storage.NewSQLiteRepository(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer repo.Close()

	r := rand.New(rand.NewPCG(*seed, *seed>>1))
	n, err := seedLedger(context.Background(), repo, *email, core.ID(*accountFlag), generate(r, *count, time.Now()))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d transactions created for %s\n", n, *email)
	return nil
}

// seedLedger records txs for the user via the services, creating missing
// categories by name.
func seedLedger(ctx context.Context, store ledger.Store, email string, accountID core.ID, txs []fakeTransaction) (int, error) {
	user, err := store.GetUserByEmail(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("user %s: %w", email, err)
	}

	accounts := services.NewAccountService(store)
	if accountID == "" {
		owned, err := accounts.ListOwned(ctx, user.ID)
		if err != nil {
			return 0, err
		}
		if len(owned) == 0 {
			return 0, fmt.Errorf("user %s owns no account", email)
		}
		accountID = owned[0].ID
	}

	cats := services.NewCategoryService(store)
	existing, err := cats.List(ctx, user.ID)
	if err != nil {
		return 0, err
	}
	byName := make(map[string]core.ID, len(existing))
	for _, c := range existing {
		byName[c.Name] = c.ID
	}

	txSvc := services.NewTransactionService(store, nil)
	created := 0
	for _, ft := range txs {
		catID, ok := byName[ft.Category]
		if !ok {
			c, err := cats.Create(ctx, user.ID, services.NewCategory{Name: ft.Category})
			if err != nil {
				return created, fmt.Errorf("create category %q: %w", ft.Category, err)
			}
			catID = c.ID
			byName[ft.Category] = catID
		}
		_, err := txSvc.Create(ctx, user.ID, services.NewTransaction{
			AccountID:   accountID,
			CategoryID:  catID,
			Description: ft.Description,
			Type:        ft.Type,
			Value:       ft.Value,
			Date:        ft.Date,
			Status:      ft.Status,
			ExpenseType: ft.ExpenseType,
		})
		if err != nil {
			return created, fmt.Errorf("create transaction: %w", err)
		}
		created++
	}
	return created, nil
}
