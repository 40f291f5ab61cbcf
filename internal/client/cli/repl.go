package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Contacts(ctx context.Context, query string) error
	Open(ctx context.Context, id string) error
	Send(ctx context.Context, text string) error
	History(ctx context.Context) error
	Chats(ctx context.Context) error
	Check(ctx context.Context) error
}

// runREPL reads a line from the provided scanner, parses the first token as
// the command, and dispatches to methods on 'a'. The rest of the line is
// passed verbatim to commands that take an argument, so "send" keeps the
// message text intact. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Errors returned by command handlers are ignored here; handlers report
// their own failures.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("wb %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: contacts <query>, open <user-id>, send <text>, history, chats, check, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "contacts":
			_ = a.Contacts(ctx, rest)

		case "open":
			_ = a.Open(ctx, rest)

		case "send":
			_ = a.Send(ctx, rest)

		case "history":
			_ = a.History(ctx)

		case "chats":
			_ = a.Chats(ctx)

		case "check":
			_ = a.Check(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
