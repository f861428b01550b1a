package console

import (
	"context"
	"strings"
)

// Handler runs a command with the trimmed line.
type Handler func(s *Session, ctx context.Context, line string)

// Command is an entry of the command table.
type Command struct {
	Name  string
	Usage string
	Help  string
	Group string
	// Prefix commands match any line starting with Name and parse their
	// arguments from the line.
	Prefix  bool
	Handler Handler
}

// Match is how a token relates to the command table.
type Match int

// Matches.
const (
	MatchNone Match = iota
	MatchPrefix
	MatchExact
)

// CommandTable is the ordered set of commands.
type CommandTable struct {
	commands []Command
}

// NewCommandTable creates a table.
func NewCommandTable(commands ...Command) *CommandTable {
	return &CommandTable{commands: commands}
}

// Commands returns the commands in table order.
func (t *CommandTable) Commands() []Command {
	return t.commands
}

// Lookup finds the command handling a trimmed line.
func (t *CommandTable) Lookup(line string) *Command {
	for n := range t.commands {
		cmd := &t.commands[n]
		if line == cmd.Name || (cmd.Prefix && strings.HasPrefix(line, cmd.Name)) {
			return cmd
		}
	}
	return nil
}

// Match classifies the first whitespace-delimited token of line.
func (t *CommandTable) Match(line string) Match {
	token := line
	if fields := strings.Fields(line); len(fields) > 0 {
		token = fields[0]
	}
	if token == "" {
		return MatchNone
	}
	m := MatchNone
	for _, cmd := range t.commands {
		if cmd.Name == token {
			return MatchExact
		}
		if strings.HasPrefix(cmd.Name, token) {
			m = MatchPrefix
		}
	}
	return m
}

// Completion is the result of completing a prefix.
type Completion struct {
	// Matches are the command names starting with the prefix.
	Matches []string
	// Extension is what to append to the prefix, empty when nothing can be
	// added.
	Extension string
}

// Ambiguous tells whether several commands match and nothing can be added.
func (c Completion) Ambiguous() bool {
	return len(c.Matches) > 1 && c.Extension == ""
}

// Complete completes prefix against the command names.
func (t *CommandTable) Complete(prefix string) (c Completion) {
	if prefix == "" {
		return
	}
	for _, cmd := range t.commands {
		if strings.HasPrefix(cmd.Name, prefix) {
			c.Matches = append(c.Matches, cmd.Name)
		}
	}
	if len(c.Matches) == 0 {
		return
	}
	common := c.Matches[0]
	for _, name := range c.Matches[1:] {
		n := 0
		for n < len(common) && n < len(name) && common[n] == name[n] {
			n++
		}
		common = common[:n]
	}
	c.Extension = common[len(prefix):]
	return
}
