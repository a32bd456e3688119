package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/iurnickita/dairyshop/internal/model"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type store struct {
	database *sql.DB
}

func NewPostgresStore(dsn string) (Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	tables := []string{
		// Учетные записи: покупатели и сотрудники
		"CREATE TABLE IF NOT EXISTS users (" +
			" email VARCHAR (100) PRIMARY KEY," +
			" name VARCHAR (100) NOT NULL," +
			" surname VARCHAR (100) NOT NULL," +
			" password_hash VARCHAR (100) NOT NULL," +
			" role SMALLINT NOT NULL" +
			" );",
		// Каталог. Остаток не может уйти в минус
		"CREATE TABLE IF NOT EXISTS product (" +
			" product_id SERIAL PRIMARY KEY," +
			" name VARCHAR (100) NOT NULL," +
			" year INTEGER NOT NULL," +
			" producer VARCHAR (100) NOT NULL," +
			" notes TEXT NOT NULL," +
			" quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0)," +
			" UNIQUE (name, year, producer)" +
			" );",
		// Корзина. Повторное добавление товара создает новую строку
		"CREATE TABLE IF NOT EXISTS cart (" +
			" line_id SERIAL PRIMARY KEY," +
			" email VARCHAR (100) NOT NULL," +
			" product_id INTEGER NOT NULL REFERENCES product (product_id)," +
			" quantity INTEGER NOT NULL" +
			" );",
		// Журнал заказов: одна строка на позицию, реквизиты товара на момент заказа
		"CREATE TABLE IF NOT EXISTS purchase_order (" +
			" order_id INTEGER NOT NULL," +
			" line_no SERIAL," +
			" email VARCHAR (100) NOT NULL," +
			" product_id INTEGER NOT NULL," +
			" name VARCHAR (100) NOT NULL," +
			" year INTEGER NOT NULL," +
			" producer VARCHAR (100) NOT NULL," +
			" notes TEXT NOT NULL," +
			" quantity INTEGER NOT NULL," +
			" shipped BOOLEAN NOT NULL DEFAULT false," +
			" PRIMARY KEY (order_id, line_no)" +
			" );",
		"CREATE SEQUENCE IF NOT EXISTS order_id_seq;",
		// Подписки на поступление товара
		"CREATE TABLE IF NOT EXISTS notification (" +
			" notification_id SERIAL PRIMARY KEY," +
			" email VARCHAR (100) NOT NULL," +
			" product_id INTEGER NOT NULL," +
			" send BOOLEAN NOT NULL DEFAULT false" +
			" );",
	}
	for _, query := range tables {
		if _, err = db.Exec(query); err != nil {
			return nil, err
		}
	}

	// Последовательность номеров заказов не должна отставать от журнала
	_, err = db.Exec(
		"SELECT setval('order_id_seq', m.max_id)" +
			" FROM (SELECT MAX(order_id) AS max_id FROM purchase_order) AS m, order_id_seq AS s" +
			" WHERE m.max_id IS NOT NULL" +
			"   AND m.max_id > (CASE WHEN s.is_called THEN s.last_value ELSE s.last_value - 1 END)")
	if err != nil {
		return nil, err
	}

	return &store{
		database: db,
	}, nil
}

func (store *store) Close() error {
	return store.database.Close()
}

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func (store *store) UserCreate(ctx context.Context, user model.User, passwordHash string) error {
	_, err := store.database.ExecContext(ctx,
		"INSERT INTO users (email, name, surname, password_hash, role)"+
			" VALUES ($1, $2, $3, $4, $5)",
		user.Email,
		user.Name,
		user.Surname,
		passwordHash,
		user.Role)
	if err != nil {
		if pgErrCode(err) == pgUniqueViolation {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (store *store) UserGet(ctx context.Context, email string) (model.User, string, error) {
	row := store.database.QueryRowContext(ctx,
		"SELECT email, name, surname, password_hash, role FROM users"+
			" WHERE email = $1",
		email)
	var user model.User
	var passwordHash string
	err := row.Scan(&user.Email, &user.Name, &user.Surname, &passwordHash, &user.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, "", ErrNotFound
		}
		return model.User{}, "", err
	}
	return user, passwordHash, nil
}

func (store *store) UserList(ctx context.Context, role model.Role) ([]model.User, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT email, name, surname, role FROM users"+
			" WHERE role = $1"+
			" ORDER BY email",
		role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var user model.User
		if err := rows.Scan(&user.Email, &user.Name, &user.Surname, &user.Role); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (store *store) ProductAdd(ctx context.Context, info model.ProductInfo) (model.Product, error) {
	row := store.database.QueryRowContext(ctx,
		"INSERT INTO product (name, year, producer, notes, quantity)"+
			" VALUES ($1, $2, $3, $4, 0)"+
			" RETURNING product_id",
		info.Name,
		info.Year,
		info.Producer,
		info.Notes)
	product := model.Product{ProductInfo: info}
	if err := row.Scan(&product.ID); err != nil {
		if pgErrCode(err) == pgUniqueViolation {
			return model.Product{}, ErrAlreadyExists
		}
		return model.Product{}, err
	}
	return product, nil
}

func (store *store) ProductGet(ctx context.Context, id int) (model.Product, error) {
	row := store.database.QueryRowContext(ctx,
		"SELECT product_id, name, year, producer, notes, quantity FROM product"+
			" WHERE product_id = $1",
		id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Product{}, ErrNotFound
		}
		return model.Product{}, err
	}
	return product, nil
}

func (store *store) ProductQuantity(ctx context.Context, id int) (int, error) {
	row := store.database.QueryRowContext(ctx,
		"SELECT quantity FROM product WHERE product_id = $1",
		id)
	var quantity int
	if err := row.Scan(&quantity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return quantity, nil
}

func (store *store) ProductAdjust(ctx context.Context, id int, delta int) (bool, error) {
	// Изменение остатка одной командой: проверка и запись атомарны
	res, err := store.database.ExecContext(ctx,
		"UPDATE product"+
			" SET quantity = quantity + $1"+
			" WHERE product_id = $2"+
			"   AND quantity + $1 >= 0",
		delta,
		id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (store *store) ProductSearch(ctx context.Context, name string, year int) ([]model.Product, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT product_id, name, year, producer, notes, quantity FROM product"+
			" WHERE ($1::text = '' OR name = $1::text)"+
			"   AND ($2::integer = 0 OR year = $2::integer)"+
			" ORDER BY product_id",
		name,
		year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Year, &p.Producer, &p.Notes, &p.Quantity)
	return p, err
}

func (store *store) CartAdd(ctx context.Context, line model.CartLine) (model.CartLine, error) {
	row := store.database.QueryRowContext(ctx,
		"INSERT INTO cart (email, product_id, quantity)"+
			" VALUES ($1, $2, $3)"+
			" RETURNING line_id",
		line.Customer,
		line.ProductID,
		line.Quantity)
	if err := row.Scan(&line.ID); err != nil {
		if pgErrCode(err) == pgForeignKeyViolation {
			return model.CartLine{}, ErrNotFound
		}
		return model.CartLine{}, err
	}
	return line, nil
}

func (store *store) CartLines(ctx context.Context, customer string) ([]model.CartLine, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT line_id, email, product_id, quantity FROM cart"+
			" WHERE email = $1"+
			" ORDER BY line_id",
		customer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []model.CartLine
	for rows.Next() {
		var line model.CartLine
		if err := rows.Scan(&line.ID, &line.Customer, &line.ProductID, &line.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (store *store) CartRemoveLine(ctx context.Context, customer string, lineID int) error {
	_, err := store.database.ExecContext(ctx,
		"DELETE FROM cart WHERE email = $1 AND line_id = $2",
		customer,
		lineID)
	return err
}

func (store *store) CartRemoveProduct(ctx context.Context, customer string, productID int) error {
	_, err := store.database.ExecContext(ctx,
		"DELETE FROM cart WHERE email = $1 AND product_id = $2",
		customer,
		productID)
	return err
}

func (store *store) OrderNextID(ctx context.Context) (int, error) {
	var id int
	if err := store.database.QueryRowContext(ctx, "SELECT nextval('order_id_seq')").Scan(&id); err != nil {
		return 0, fmt.Errorf("reserve order id: %w", err)
	}
	return id, nil
}

func (store *store) OrderMaxID(ctx context.Context) (int, error) {
	var id int
	err := store.database.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(order_id), 0) FROM purchase_order").Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (store *store) OrderAppendLine(ctx context.Context, orderID int, customer string, line model.OrderLine) error {
	_, err := store.database.ExecContext(ctx,
		"INSERT INTO purchase_order (order_id, email, product_id, name, year, producer, notes, quantity, shipped)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false)",
		orderID,
		customer,
		line.ProductID,
		line.Name,
		line.Year,
		line.Producer,
		line.Notes,
		line.Quantity)
	return err
}

func (store *store) OrderShip(ctx context.Context, orderID int) error {
	res, err := store.database.ExecContext(ctx,
		"UPDATE purchase_order SET shipped = true WHERE order_id = $1",
		orderID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (store *store) OrderList(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT order_id, email, shipped, product_id, name, year, producer, notes, quantity"+
			" FROM purchase_order"+
			" WHERE ($1::text = '' OR email = $1::text)"+
			"   AND (NOT $2::boolean OR shipped = false)"+
			" ORDER BY order_id, line_no",
		filter.Customer,
		filter.UnshippedOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var (
			orderID  int
			customer string
			shipped  bool
			line     model.OrderLine
		)
		err := rows.Scan(&orderID, &customer, &shipped,
			&line.ProductID, &line.Name, &line.Year, &line.Producer, &line.Notes, &line.Quantity)
		if err != nil {
			return nil, err
		}
		// строки отсортированы по заказу, группируем подряд идущие
		if len(orders) == 0 || orders[len(orders)-1].ID != orderID {
			orders = append(orders, model.Order{ID: orderID, Customer: customer, Shipped: shipped})
		}
		last := &orders[len(orders)-1]
		last.Lines = append(last.Lines, line)
	}
	return orders, rows.Err()
}

func (store *store) NotificationEnqueue(ctx context.Context, customer string, productID int) error {
	_, err := store.database.ExecContext(ctx,
		"INSERT INTO notification (email, product_id) VALUES ($1, $2)",
		customer,
		productID)
	return err
}

func (store *store) NotificationMarkPending(ctx context.Context, productID int) error {
	_, err := store.database.ExecContext(ctx,
		"UPDATE notification SET send = true WHERE product_id = $1",
		productID)
	return err
}

func (store *store) NotificationDrain(ctx context.Context, customer string) ([]model.Product, error) {
	// выборка и удаление одной командой, уведомление не может быть выдано дважды
	rows, err := store.database.QueryContext(ctx,
		"WITH drained AS ("+
			"   DELETE FROM notification WHERE email = $1 AND send = true"+
			"   RETURNING notification_id, product_id)"+
			" SELECT p.product_id, p.name, p.year, p.producer, p.notes, p.quantity"+
			" FROM drained AS d JOIN product AS p ON p.product_id = d.product_id"+
			" ORDER BY d.notification_id",
		customer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}
