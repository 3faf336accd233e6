package catalog

import (
	"context"
	"fmt"
)

// schema is the minimal Chinook-shaped subset the bot touches.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS Artist (
		ArtistId INTEGER PRIMARY KEY,
		Name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS Album (
		AlbumId INTEGER PRIMARY KEY,
		Title TEXT NOT NULL,
		ArtistId INTEGER NOT NULL REFERENCES Artist(ArtistId)
	)`,
	`CREATE TABLE IF NOT EXISTS Genre (
		GenreId INTEGER PRIMARY KEY,
		Name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS Track (
		TrackId INTEGER PRIMARY KEY,
		Name TEXT NOT NULL,
		AlbumId INTEGER NOT NULL REFERENCES Album(AlbumId),
		GenreId INTEGER REFERENCES Genre(GenreId),
		UnitPrice REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS Customer (
		CustomerId INTEGER PRIMARY KEY,
		FirstName TEXT,
		LastName TEXT,
		Address TEXT,
		City TEXT,
		State TEXT,
		Country TEXT,
		PostalCode TEXT,
		Phone TEXT,
		Email TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS Invoice (
		InvoiceId INTEGER PRIMARY KEY,
		CustomerId INTEGER NOT NULL REFERENCES Customer(CustomerId),
		InvoiceDate TEXT,
		BillingAddress TEXT,
		BillingCity TEXT,
		BillingState TEXT,
		BillingCountry TEXT,
		BillingPostalCode TEXT,
		Total REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS InvoiceLine (
		InvoiceLineId INTEGER PRIMARY KEY,
		InvoiceId INTEGER NOT NULL REFERENCES Invoice(InvoiceId),
		TrackId INTEGER NOT NULL REFERENCES Track(TrackId),
		UnitPrice REAL NOT NULL,
		Quantity INTEGER NOT NULL
	)`,
}

// EnsureSchema creates the tables if they do not exist.
func (c *SQLite) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SeedDemo loads a small catalogue and one customer, for chat mode against a
// fresh database. Safe to call repeatedly.
func (c *SQLite) SeedDemo(ctx context.Context) error {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Track`).Scan(&n); err != nil {
		return fmt.Errorf("seed check: %w", err)
	}
	if n > 0 {
		return nil
	}

	seed := []string{
		`INSERT INTO Artist (ArtistId, Name) VALUES
			(1, 'Queen'), (2, 'Eagles'), (3, 'Led Zeppelin'), (4, 'Amy Winehouse'), (5, 'AC/DC')`,
		`INSERT INTO Genre (GenreId, Name) VALUES (1, 'Rock'), (2, 'Soul')`,
		`INSERT INTO Album (AlbumId, Title, ArtistId) VALUES
			(1, 'A Night at the Opera', 1),
			(2, 'Hotel California', 2),
			(3, 'Led Zeppelin IV', 3),
			(4, 'Back to Black', 4),
			(5, 'For Those About to Rock We Salute You', 5)`,
		`INSERT INTO Track (TrackId, Name, AlbumId, GenreId, UnitPrice) VALUES
			(1, 'Bohemian Rhapsody', 1, 1, 0.99),
			(2, 'Love of My Life', 1, 1, 0.99),
			(3, 'Hotel California', 2, 1, 0.99),
			(4, 'New Kid in Town', 2, 1, 0.99),
			(5, 'Stairway to Heaven', 3, 1, 0.99),
			(6, 'Black Dog', 3, 1, 0.99),
			(7, 'Rehab', 4, 2, 0.99),
			(8, 'Back to Black', 4, 2, 0.99),
			(9, 'For Those About to Rock (We Salute You)', 5, 1, 0.99)`,
		`INSERT INTO Customer (CustomerId, FirstName, LastName, Address, City, State, Country, PostalCode, Phone, Email) VALUES
			(1, 'Luis', 'Goncalves', 'Av. Brigadeiro Faria Lima, 2170', 'Sao Jose dos Campos', 'SP', 'Brazil', '12227-000', '+55 (12) 3923-5555', 'luisg@embraer.com.br')`,
	}
	for _, stmt := range seed {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("seed demo: %w", err)
		}
	}
	return nil
}
