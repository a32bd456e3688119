package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/iurnickita/dairyshop/internal/client"
	"github.com/iurnickita/dairyshop/internal/model"
)

const usage = `usage: shopctl [-a addr] [-u email -p password] <command> [args]

commands:
  register NAME SURNAME EMAIL PASSWORD
  register-employee NAME SURNAME EMAIL PASSWORD
  users | employees
  products
  search NAME [YEAR]
  add-product NAME PRODUCER YEAR [NOTES]
  restock PRODUCT_ID QUANTITY
  cart | cart-add PRODUCT_ID QUANTITY | cart-remove PRODUCT_ID
  order | my-orders | notifications
  orders | pending | ship ORDER_ID
`

var errUsage = errors.New("bad arguments")

func main() {
	if err := run(); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func run() error {
	addr := flag.String("a", "localhost:8080", "server address")
	email := flag.String("u", "", "login email, guest session when empty")
	password := flag.String("p", "", "login password")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		return errUsage
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.NewClient(*addr)
	if args[0] != "register" {
		if err := openSession(ctx, c, *email, *password); err != nil {
			return err
		}
	}

	result, err := execute(ctx, c, args[0], args[1:])
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func openSession(ctx context.Context, c client.Client, email, password string) error {
	if email == "" {
		return c.Guest(ctx)
	}
	_, err := c.Login(ctx, email, password)
	return err
}

func execute(ctx context.Context, c client.Client, command string, args []string) (any, error) {
	switch command {
	case "register", "register-employee":
		if len(args) != 4 {
			return nil, errUsage
		}
		req := client.RegisterRequest{Name: args[0], Surname: args[1], Email: args[2], Password: args[3]}
		if command == "register" {
			return c.Register(ctx, req)
		}
		return c.RegisterEmployee(ctx, req)
	case "users":
		return c.GetUsers(ctx)
	case "employees":
		return c.GetEmployees(ctx)
	case "products":
		return c.GetProducts(ctx)
	case "search":
		if len(args) < 1 || len(args) > 2 {
			return nil, errUsage
		}
		year := 0
		if len(args) == 2 {
			year, _ = strconv.Atoi(args[1])
		}
		return c.Search(ctx, args[0], year)
	case "add-product":
		if len(args) < 3 || len(args) > 4 {
			return nil, errUsage
		}
		year, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, errUsage
		}
		info := model.ProductInfo{Name: args[0], Producer: args[1], Year: year}
		if len(args) == 4 {
			info.Notes = args[3]
		}
		return c.AddProduct(ctx, info)
	case "restock":
		ids, err := ints(args, 2)
		if err != nil {
			return nil, err
		}
		return c.Restock(ctx, ids[0], ids[1])
	case "cart":
		return c.DisplayCart(ctx)
	case "cart-add":
		ids, err := ints(args, 2)
		if err != nil {
			return nil, err
		}
		return c.AddToCart(ctx, ids[0], ids[1])
	case "cart-remove":
		ids, err := ints(args, 1)
		if err != nil {
			return nil, err
		}
		return nil, c.RemoveFromCart(ctx, ids[0])
	case "order":
		return c.NewOrder(ctx)
	case "my-orders":
		return c.GetOrdersUser(ctx)
	case "notifications":
		return c.GetNotifications(ctx)
	case "orders":
		return c.GetOrders(ctx)
	case "pending":
		return c.GetOrdersEmployee(ctx)
	case "ship":
		ids, err := ints(args, 1)
		if err != nil {
			return nil, err
		}
		return nil, c.ShipOrder(ctx, ids[0])
	}
	return nil, errUsage
}

func ints(args []string, n int) ([]int, error) {
	if len(args) != n {
		return nil, errUsage
	}
	out := make([]int, n)
	for i, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return nil, errUsage
		}
		out[i] = v
	}
	return out, nil
}
