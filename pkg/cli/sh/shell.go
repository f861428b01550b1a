// Package sh is the maintenance shell working on a node's flash image
// while the node is offline.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/nodeterm/pkg/account"
	"github.com/robotalks/nodeterm/pkg/config"
	"github.com/robotalks/nodeterm/pkg/flash"
	fx "github.com/robotalks/nodeterm/pkg/framework"
	"github.com/robotalks/nodeterm/pkg/guard"
	"github.com/robotalks/nodeterm/pkg/logstore"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoOpen    bool

	Shell  *ishell.Shell
	Config *config.Config
	Image  *Image
}

// Image is an opened flash image with the stores over it.
type Image struct {
	Path     string
	Dev      *flash.File
	Clock    fx.Clock
	Logs     *logstore.Store
	Accounts *account.Store
}

const (
	shellKey     = "$shell"
	closedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&OpenCmd,
		&CloseCmd,
		&InfoCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *config.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeOpen wraps command func requires an opened image.
func MustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Image == nil {
			c.Err(fmt.Errorf("no image opened"))
			return
		}
		fn(c)
	}
}

// PrintJSON prints v as JSON when the output is JSON and reports whether
// it did.
func PrintJSON(c *ishell.Context, v interface{}) bool {
	if !ShellFrom(c).OutputJSON {
		return false
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return true
	}
	c.Println(string(out))
	return true
}

// OpenImage opens the flash image at path with the stores laid out by conf.
// A missing image is created blank and formatted.
func OpenImage(ctx context.Context, path string, conf *config.Config) (*Image, error) {
	locks, err := guard.NewSet(conf.Timeouts())
	if err != nil {
		return nil, err
	}
	dev, err := flash.OpenFile(path, conf.Geometry())
	if err != nil {
		return nil, err
	}
	img := &Image{Path: path, Dev: dev, Clock: fx.NewSystemClock()}
	if img.Logs, err = logstore.New(dev, locks.Storage, img.Clock, conf.LogStore()); err == nil {
		err = img.Logs.Init(ctx)
	}
	if err == nil {
		img.Accounts, err = account.New(dev, locks.Storage, conf.Accounts())
	}
	if err == nil {
		err = img.Accounts.Load(ctx)
	}
	if err != nil {
		dev.Close()
		return nil, err
	}
	return img, nil
}

// Close implements io.Closer.
func (img *Image) Close() error {
	return img.Dev.Close()
}

// Open opens an image, replacing the current one.
func (s *Shell) Open(path string) error {
	img, err := OpenImage(context.Background(), path, s.Config)
	if err != nil {
		return err
	}
	s.Close()
	s.Image = img
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", path))
	return nil
}

// Close closes the current image.
func (s *Shell) Close() {
	if s.Image != nil {
		s.Image.Close()
		s.Image = nil
		s.Shell.SetPrompt(closedPrompt)
	}
}

// WithAutoOpen sets AutoOpen.
func (s *Shell) WithAutoOpen(en bool) *Shell {
	s.AutoOpen = en
	return s
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoOpen && s.Config.Flash != "" {
		if err := s.Open(s.Config.Flash); err != nil {
			log.Fatalf("open %q failed: %v", s.Config.Flash, err)
		}
	}
	defer s.Close()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// ImageInfo summarizes an opened image.
type ImageInfo struct {
	Path          string `json:"path"`
	SectorSize    uint32 `json:"sector_size"`
	Sectors       int    `json:"sectors"`
	Records       int    `json:"records"`
	Capacity      int    `json:"capacity"`
	Username      string `json:"username"`
	UsingDefaults bool   `json:"using_defaults"`
}

// Info summarizes the image.
func (img *Image) Info() ImageInfo {
	geo := img.Dev.Geometry()
	return ImageInfo{
		Path:          img.Path,
		SectorSize:    geo.SectorSize,
		Sectors:       geo.Sectors,
		Records:       img.Logs.Count(),
		Capacity:      img.Logs.Capacity(),
		Username:      img.Accounts.Username(),
		UsingDefaults: img.Accounts.UsingDefaults(),
	}
}

var (
	// OpenCmd opens a flash image.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "[PATH]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			path := s.Config.Flash
			if len(c.Args) > 0 {
				path = c.Args[0]
			}
			if err := s.Open(path); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes the current image.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Close()
		},
	}

	// InfoCmd shows the image summary.
	InfoCmd = ishell.Cmd{
		Name:    "info",
		Aliases: []string{"i"},
		Help:    "",
		Func: MustBeOpen(func(c *ishell.Context) {
			info := ShellFrom(c).Image.Info()
			if PrintJSON(c, info) {
				return
			}
			c.Printf("%s: %d x %d bytes\n", info.Path, info.Sectors, info.SectorSize)
			c.Printf("logs: %d/%d records\n", info.Records, info.Capacity)
			c.Printf("user: %s", info.Username)
			if info.UsingDefaults {
				c.Print(" (factory default)")
			}
			c.Println()
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	if err := config.Parse(); err != nil {
		log.Fatalln(err)
	}
	New(config.Default()).WithAutoOpen(true).Run(flag.Args()...)
}
