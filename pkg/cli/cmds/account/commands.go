package account

import (
	"context"
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/nodeterm/pkg/cli/sh"
)

var (
	// WhoCmd shows the stored username.
	WhoCmd = ishell.Cmd{
		Name: "account",
		Help: "",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			accounts := sh.ShellFrom(c).Image.Accounts
			if sh.PrintJSON(c, map[string]interface{}{
				"username":       accounts.Username(),
				"using_defaults": accounts.UsingDefaults(),
			}) {
				return
			}
			c.Print(accounts.Username())
			if accounts.UsingDefaults() {
				c.Print(" (factory default)")
			}
			c.Println()
		}),
	}

	// SetCmd replaces the credential. The password is asked for when not
	// given.
	SetCmd = ishell.Cmd{
		Name: "account.set",
		Help: "USERNAME [PASSWORD]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("USERNAME required"))
				return
			}
			password := ""
			if len(c.Args) > 1 {
				password = c.Args[1]
			} else {
				c.Print("Password: ")
				password = c.ReadPassword()
			}
			accounts := sh.ShellFrom(c).Image.Accounts
			if err := accounts.Change(context.Background(), c.Args[0], password); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}

	// ResetCmd restores the factory credential.
	ResetCmd = ishell.Cmd{
		Name: "account.reset",
		Help: "",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			if err := sh.ShellFrom(c).Image.Accounts.Reset(context.Background()); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}
)

func init() {
	sh.AddCmds(
		&WhoCmd,
		&SetCmd,
		&ResetCmd,
	)
}
