package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// CommandKind enumerates the runner commands.
type CommandKind int

const (
	CmdNone CommandKind = iota
	CmdNext
	CmdBack
	CmdGoto
	CmdShow
	CmdCheck
	CmdFinish
	CmdQuit
	CmdHelp
	CmdSet
	CmdSelect
	CmdDeselect
)

// Command is one parsed input line.
type Command struct {
	Kind  CommandKind
	Path  string
	Value string
	Step  int
}

// ParseCommand reads one line of runner input. Blank lines yield CmdNone.
//
//	:next | :back | :goto N | :show | :check | :finish | :quit | :help
//	path=value | path+=option | path-=option
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{Kind: CmdNone}, nil
	}

	if strings.HasPrefix(line, ":") {
		fields := strings.Fields(line[1:])
		if len(fields) == 0 {
			return Command{}, fmt.Errorf("empty command")
		}
		name, args := strings.ToLower(fields[0]), fields[1:]
		switch name {
		case "next", "n":
			return Command{Kind: CmdNext}, nil
		case "back", "b":
			return Command{Kind: CmdBack}, nil
		case "goto", "g":
			if len(args) != 1 {
				return Command{}, fmt.Errorf(":goto needs a step number")
			}
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return Command{}, fmt.Errorf(":goto needs a step number, got %q", args[0])
			}
			return Command{Kind: CmdGoto, Step: n}, nil
		case "show", "s":
			return Command{Kind: CmdShow}, nil
		case "check", "c":
			return Command{Kind: CmdCheck}, nil
		case "finish", "f":
			return Command{Kind: CmdFinish}, nil
		case "quit", "q", "exit":
			return Command{Kind: CmdQuit}, nil
		case "help", "h", "?":
			return Command{Kind: CmdHelp}, nil
		default:
			return Command{}, fmt.Errorf("unknown command %q", ":"+name)
		}
	}

	idx := strings.Index(line, "=")
	if idx < 0 {
		return Command{}, fmt.Errorf("cannot parse %q (try :help)", line)
	}
	path, value := line[:idx], strings.TrimSpace(line[idx+1:])
	kind := CmdSet
	switch {
	case strings.HasSuffix(path, "+"):
		kind, path = CmdSelect, strings.TrimSuffix(path, "+")
	case strings.HasSuffix(path, "-"):
		kind, path = CmdDeselect, strings.TrimSuffix(path, "-")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Command{}, fmt.Errorf("missing field path in %q", line)
	}
	return Command{Kind: kind, Path: path, Value: value}, nil
}

const helpText = `Commands:
  :next  :back  :goto N      move between steps
  :show                      redisplay the current step
  :check                     list answers that do not fit their field
  :finish                    complete the session (last step only)
  :quit                      leave without saving
  path=value                 answer a field, e.g. emotions.anxiety=6
  path+=option, path-=option select or clear a choice
`
