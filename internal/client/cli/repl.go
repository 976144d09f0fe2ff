package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dealerclient/internal/client/client"
	"github.com/dmitrijs2005/dealerclient/internal/client/models"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// usageError is returned by commands called with malformed arguments.
type usageError string

func (e usageError) Error() string { return "Cách dùng: " + string(e) }

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	pendingErrors() []error

	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error

	Cart(ctx context.Context) error
	Add(ctx context.Context, args []string) error
	Update(ctx context.Context, action models.QuantityAction, args []string) error
	Remove(ctx context.Context, args []string) error
	Clear(ctx context.Context) error

	Product(ctx context.Context, args []string) error
	Checkout(ctx context.Context) error
	Orders(ctx context.Context) error
	Warranty(ctx context.Context) error
}

// runREPL starts a read–eval–print loop for the dealer CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command and the rest as its arguments, and dispatches to methods on 'a'.
// The loop exits on scanner EOF or when the user types "exit" or "quit".
//
// Commands:
//
//	Not logged in:
//	  - help                  — show available commands
//	  - login                 — authenticate
//	  - exit | quit           — leave the program
//
//	Logged in:
//	  - whoami                — show the current dealer
//	  - cart                  — reload and print the cart
//	  - add <productId> <qty> — add a product to the cart
//	  - inc | dec <cartId>    — change the quantity of a line by one
//	  - set <cartId> <qty>    — set the quantity of a line
//	  - rm <cartId>           — remove a line
//	  - clear                 — empty the cart
//	  - product <id>          — show a product and its stock
//	  - checkout              — place an order from the cart
//	  - orders                — list placed orders
//	  - warranty              — register a warranty (interactive)
//	  - logout                — log out
//
// Errors returned by handlers are printed with client.UserMessage, so the
// loop itself never stops on a failed command. Failures of background cart
// updates are printed before the next prompt.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		for _, err := range a.pendingErrors() {
			printlnFn("Cập nhật giỏ hàng thất bại:", client.UserMessage(err))
		}

		printlnFn(fmt.Sprintf("dealer %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Tạm biệt!")
			return
		}

		if err := dispatch(ctx, a, cmd, args); err != nil {
			var usage usageError
			if errors.As(err, &usage) {
				printlnFn(usage.Error())
				continue
			}
			printlnFn(client.UserMessage(err))
		}
	}
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "help":
		if a.isLoggedIn() {
			printlnFn("Các lệnh: whoami, cart, add, inc, dec, set, rm, clear, product, checkout, orders, warranty, logout, exit")
		} else {
			printlnFn("Các lệnh: login, exit")
		}
		return nil
	case "login":
		return a.Login(ctx)
	}

	if !a.isLoggedIn() {
		if isKnownCommand(cmd) {
			printlnFn("Vui lòng đăng nhập trước (lệnh 'login').")
		} else {
			printlnFn("Lệnh không hợp lệ:", cmd)
		}
		return nil
	}

	switch cmd {
	case "logout":
		return a.Logout(ctx)
	case "whoami":
		return a.WhoAmI(ctx)
	case "cart":
		return a.Cart(ctx)
	case "add":
		return a.Add(ctx, args)
	case "inc":
		return a.Update(ctx, models.ActionIncrement, args)
	case "dec":
		return a.Update(ctx, models.ActionDecrement, args)
	case "set":
		return a.Update(ctx, models.ActionSet, args)
	case "rm":
		return a.Remove(ctx, args)
	case "clear":
		return a.Clear(ctx)
	case "product":
		return a.Product(ctx, args)
	case "checkout":
		return a.Checkout(ctx)
	case "orders":
		return a.Orders(ctx)
	case "warranty":
		return a.Warranty(ctx)
	default:
		printlnFn("Lệnh không hợp lệ:", cmd)
		return nil
	}
}

func isKnownCommand(cmd string) bool {
	switch cmd {
	case "logout", "whoami", "cart", "add", "inc", "dec", "set", "rm", "clear",
		"product", "checkout", "orders", "warranty":
		return true
	}
	return false
}
