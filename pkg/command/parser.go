package command

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Command is one parsed shell line.
type Command struct {
	Op    string // put, get, del, size, keys, clear, help, exit
	Key   string
	Value string
	Limit int
}

var (
	tokenRe = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"|(\S+)`)

	aliases = map[string]string{
		"set":    "put",
		"rm":     "del",
		"delete": "del",
		"quit":   "exit",
		"count":  "size",
	}
)

// Parse parses a shell line:
// "put <key> <value...>"
// "get <key>" / "del <key>"
// "keys [limit <n>]"
// "size" / "clear" / "help" / "exit"
// Keys and values may be double quoted to carry spaces.
func Parse(s string) (*Command, error) {
	line := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ";"))
	if line == "" {
		return nil, errors.New("empty command")
	}

	args, err := tokenize(line)
	if err != nil {
		return nil, err
	}
	op := strings.ToLower(args[0])
	if a, ok := aliases[op]; ok {
		op = a
	}
	cmd := &Command{Op: op, Limit: -1}
	args = args[1:]

	switch op {
	case "put":
		if len(args) < 2 {
			return nil, errors.New("syntax: put <key> <value>")
		}
		cmd.Key = args[0]
		cmd.Value = strings.Join(args[1:], " ")
	case "get", "del":
		if len(args) != 1 {
			return nil, errors.New("syntax: " + op + " <key>")
		}
		cmd.Key = args[0]
	case "keys":
		switch {
		case len(args) == 0:
		case len(args) == 2 && strings.EqualFold(args[0], "limit"):
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 0 {
				return nil, errors.New("invalid LIMIT value")
			}
			cmd.Limit = n
		default:
			return nil, errors.New("syntax: keys [limit <n>]")
		}
	case "size", "clear", "help", "exit":
		if len(args) != 0 {
			return nil, errors.New("syntax: " + op + " takes no arguments")
		}
	default:
		return nil, errors.New("unknown command: " + op)
	}
	return cmd, nil
}

func tokenize(line string) ([]string, error) {
	if strings.Count(line, `"`)-strings.Count(line, `\"`) == 1 {
		return nil, errors.New("unterminated quote")
	}
	matches := tokenRe.FindAllStringSubmatch(line, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if m[2] != "" {
			out = append(out, m[2])
			continue
		}
		out = append(out, strings.ReplaceAll(m[1], `\"`, `"`))
	}
	return out, nil
}
