// Package testdb opens an in-memory SQLite database with the console schema
// for tests.
package testdb

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/manveru/faker"
	"github.com/stretchr/testify/require"

	"github.com/gnemet/crudgrid/database/connpool"
	"github.com/gnemet/crudgrid/internal/logger"
)

const schema = `
CREATE TABLE vendors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name VARCHAR(100) NOT NULL,
	description VARCHAR(255)
);
CREATE TABLE customers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name VARCHAR(100) NOT NULL,
	contactName VARCHAR(100),
	email VARCHAR(100),
	phone VARCHAR(20)
);
CREATE TABLE orderStatus (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	status VARCHAR(50) NOT NULL
);
CREATE TABLE shippingCarriers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name VARCHAR(100) NOT NULL,
	estimatedCost DECIMAL(10,2)
);
CREATE TABLE inventory (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	inventoryNumber VARCHAR(50) NOT NULL,
	vendorId INTEGER REFERENCES vendors(id),
	quantity INT NOT NULL DEFAULT 0,
	unitPrice DECIMAL(10,2),
	received DATE,
	active BIT
);
CREATE TABLE orders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	customerId INTEGER NOT NULL REFERENCES customers(id),
	orderStatusId INTEGER REFERENCES orderStatus(id),
	shippingCarrierId INTEGER REFERENCES shippingCarriers(id),
	orderDate DATE,
	notes VARCHAR(1000)
);
CREATE TABLE orderItems (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	orderId INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	inventoryId INTEGER REFERENCES inventory(id),
	quantity INT NOT NULL
);
CREATE TABLE canWeights (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	weight DOUBLE,
	recorded DATETIME
);
CREATE TABLE secrets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	value VARCHAR(100)
)`

// New opens a fresh database with the schema and no rows. It is closed when
// the test ends.
func New(t testing.TB) *sqlx.DB {
	t.Helper()

	db, err := connpool.Open(context.Background(), connpool.Options{Dialect: connpool.SQLite}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return db
}

// Fixture holds the ids of the rows Seed inserted.
type Fixture struct {
	Vendors   []int64
	Customers []int64
	Statuses  []int64
	Carriers  []int64
	Inventory []int64
	Orders    []int64
	Items     []int64
}

// Seed fills the lookup tables and inserts the given number of orders, each
// with two order items.
func Seed(t testing.TB, db *sqlx.DB, orders int) Fixture {
	t.Helper()

	fake, err := faker.New("en")
	require.NoError(t, err)

	var fx Fixture
	for i := 0; i < 3; i++ {
		fx.Vendors = append(fx.Vendors, insert(t, db,
			`INSERT INTO vendors (name, description) VALUES (?, ?)`,
			fake.CompanyName(), fmt.Sprintf("vendor %d", i+1)))
	}
	for i := 0; i < 5; i++ {
		fx.Customers = append(fx.Customers, insert(t, db,
			`INSERT INTO customers (name, contactName, email, phone) VALUES (?, ?, ?, ?)`,
			fake.CompanyName(), fake.Name(), fake.Email(), fake.PhoneNumber()))
	}
	for _, s := range []string{"Pending", "Shipped", "Delivered"} {
		fx.Statuses = append(fx.Statuses, insert(t, db,
			`INSERT INTO orderStatus (status) VALUES (?)`, s))
	}
	for i, name := range []string{"Ground", "Air"} {
		fx.Carriers = append(fx.Carriers, insert(t, db,
			`INSERT INTO shippingCarriers (name, estimatedCost) VALUES (?, ?)`, name, 10.5*float64(i+1)))
	}
	for i := 0; i < 4; i++ {
		fx.Inventory = append(fx.Inventory, insert(t, db,
			`INSERT INTO inventory (inventoryNumber, vendorId, quantity, unitPrice, received, active) VALUES (?, ?, ?, ?, ?, ?)`,
			fmt.Sprintf("INV-%04d", i+1), fx.Vendors[i%len(fx.Vendors)], 10*(i+1), 2.25, "2024-03-0"+fmt.Sprint(i+1), 1))
	}
	for i := 0; i < orders; i++ {
		id := insert(t, db,
			`INSERT INTO orders (customerId, orderStatusId, shippingCarrierId, orderDate, notes) VALUES (?, ?, ?, ?, ?)`,
			fx.Customers[i%len(fx.Customers)], fx.Statuses[i%len(fx.Statuses)], fx.Carriers[i%len(fx.Carriers)],
			"2024-01-15", fmt.Sprintf("order %d", i+1))
		fx.Orders = append(fx.Orders, id)
		for j := 0; j < 2; j++ {
			fx.Items = append(fx.Items, insert(t, db,
				`INSERT INTO orderItems (orderId, inventoryId, quantity) VALUES (?, ?, ?)`,
				id, fx.Inventory[j%len(fx.Inventory)], j+1))
		}
	}
	return fx
}

func insert(t testing.TB, db *sqlx.DB, query string, args ...interface{}) int64 {
	t.Helper()
	res, err := db.Exec(query, args...)
	require.NoError(t, err, query)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}
