// Package all registers every maintenance shell command.
package all

import (
	_ "github.com/robotalks/nodeterm/pkg/cli/cmds/account"
	_ "github.com/robotalks/nodeterm/pkg/cli/cmds/logs"
)
