package logs

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/nodeterm/pkg/cli/sh"
	"github.com/robotalks/nodeterm/pkg/logstore"
)

const pageSize = 10

// ParseLevel finds a level by name, case insensitive.
func ParseLevel(name string) (logstore.Level, error) {
	for l := logstore.LevelInfo; l <= logstore.LevelDebug; l++ {
		if strings.EqualFold(l.String(), name) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown level %q", name)
}

func printRecords(c *ishell.Context, records []logstore.Record) {
	for _, r := range records {
		sec := r.Timestamp / 1000
		c.Printf("%3d %02d:%02d:%02d %-7s %-15s %s\n", r.Slot,
			sec/3600, sec/60%60, sec%60, r.Level, r.Module, r.Message)
	}
}

var (
	// LogsCmd lists stored records.
	LogsCmd = ishell.Cmd{
		Name:    "logs",
		Aliases: []string{"ls"},
		Help:    "[PAGE]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			store := sh.ShellFrom(c).Image.Logs
			var records []logstore.Record
			if len(c.Args) > 0 {
				page, err := strconv.Atoi(c.Args[0])
				if err != nil || page < 1 {
					c.Err(fmt.Errorf("invalid PAGE: %s", c.Args[0]))
					return
				}
				records = store.Page(page-1, pageSize)
			} else {
				records = store.Records()
			}
			if sh.PrintJSON(c, records) {
				return
			}
			if len(records) == 0 {
				c.Println("No logs stored")
				return
			}
			printRecords(c, records)
		}),
	}

	// AddCmd appends a record.
	AddCmd = ishell.Cmd{
		Name: "logs.add",
		Help: "LEVEL MODULE MESSAGE...",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			if len(c.Args) < 3 {
				c.Err(fmt.Errorf("LEVEL MODULE MESSAGE required"))
				return
			}
			level, err := ParseLevel(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			store := sh.ShellFrom(c).Image.Logs
			if err := store.Add(context.Background(), level, c.Args[1], strings.Join(c.Args[2:], " ")); err != nil {
				c.Err(err)
			}
		}),
	}

	// EraseCmd erases all records.
	EraseCmd = ishell.Cmd{
		Name: "logs.erase",
		Help: "",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			if err := sh.ShellFrom(c).Image.Logs.EraseAll(context.Background()); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}

	// ExportCmd writes the records to a compressed file.
	ExportCmd = ishell.Cmd{
		Name: "logs.export",
		Help: "FILE",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("FILE required"))
				return
			}
			f, err := os.Create(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			records := sh.ShellFrom(c).Image.Logs.Records()
			err = logstore.Export(f, records)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("%d records exported\n", len(records))
		}),
	}

	// ShowExportCmd prints an exported file.
	ShowExportCmd = ishell.Cmd{
		Name: "logs.show-export",
		Help: "FILE",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("FILE required"))
				return
			}
			f, err := os.Open(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			defer f.Close()
			records, err := logstore.ReadExport(f)
			if err != nil {
				c.Err(err)
				return
			}
			if sh.PrintJSON(c, records) {
				return
			}
			for _, r := range records {
				c.Printf("%3d %10d %-7s %-15s %s\n", r.Slot, r.Timestamp, r.Level, r.Module, r.Message)
			}
		},
	}
)

func init() {
	sh.AddCmds(
		&LogsCmd,
		&AddCmd,
		&EraseCmd,
		&ExportCmd,
		&ShowExportCmd,
	)
}
